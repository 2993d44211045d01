package records

import (
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey puts an id or filename into Unicode NFC so that canonically
// equivalent spellings ("é" vs "e" + combining acute) compare equal.
func NormalizeKey(s string) string {
	return norm.NFC.String(s)
}
