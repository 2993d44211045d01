package records

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"
)

// fileMagic prefixes every record file so foreign files are rejected early.
const fileMagic = "FACEREG1\n"

// fileFormat is the gob payload of a record file.
type fileFormat struct {
	Embeddings [][]float32
	IDs        []string
	Filenames  []string
}

// FileStore persists the snapshot as a single gob file that is replaced
// atomically on every save. Paths ending in ".zst" are zstd-compressed.
type FileStore struct {
	path     string
	compress bool
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		compress: strings.HasSuffix(path, ".zst"),
	}
}

// Load reads the whole file. A missing file is an empty store.
func (f *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path) //nolint:gosec // path is from trusted config
	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening record file: %w", err)
	}
	defer file.Close()

	var r io.Reader = bufio.NewReader(file)
	if f.compress {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		defer dec.Close()
		r = dec
	}

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != fileMagic {
		return nil, fmt.Errorf("%w: %s is not a record file", ErrCorrupt, f.path)
	}

	var data fileFormat
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, f.path, err)
	}

	snap := NewSnapshot()
	if data.Embeddings != nil {
		snap.Embeddings = data.Embeddings
	}
	if data.IDs != nil {
		snap.IDs = data.IDs
	}
	if data.Filenames != nil {
		snap.Filenames = data.Filenames
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save writes the snapshot to a temp file and renames it over the target.
func (f *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("creating record directory: %w", err)
	}

	pending, err := renameio.TempFile("", f.path)
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op after a successful replace

	buf := bufio.NewWriter(pending)
	var out io.Writer = buf

	var enc *zstd.Encoder
	if f.compress {
		enc, err = zstd.NewWriter(buf)
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		out = enc
	}

	if _, err := io.WriteString(out, fileMagic); err != nil {
		return fmt.Errorf("writing record header: %w", err)
	}
	payload := fileFormat{
		Embeddings: snap.Embeddings,
		IDs:        snap.IDs,
		Filenames:  snap.Filenames,
	}
	if err := gob.NewEncoder(out).Encode(payload); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("closing zstd writer: %w", err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flushing record file: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing record file: %w", err)
	}
	return nil
}
