package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/registry"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the face in an image",
	Long: `Recognize the single face in an image against the enrolled faces.

The earliest enrolled face within the tolerance wins.

Examples:
  face-registry recognize query.jpg

  # Show the distance to every enrolled face
  face-registry recognize query.jpg --verbose

  # Stricter matching for this run only
  face-registry recognize query.jpg --tolerance 0.45`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("verbose", false, "Print the distance to every enrolled face")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
	recognizeCmd.Flags().Float64("tolerance", 0, "Override MATCH_TOLERANCE (lower = stricter, 0 = configured)")
}

// RecognizeOutput is the JSON output of the recognize command.
type RecognizeOutput struct {
	registry.Recognition
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Candidate is one enrolled face with its distance to the query.
type Candidate struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Distance float64 `json:"distance"`
	Match    bool    `json:"match"`
}

// recognizeImage recognizes image, listing every candidate when verbose.
// The image is extracted once either way.
func recognizeImage(ctx context.Context, service *registry.Service, image []byte, verbose bool) (RecognizeOutput, error) {
	if !verbose {
		result, err := service.Recognize(ctx, image)
		if err != nil {
			return RecognizeOutput{}, err
		}
		return RecognizeOutput{Recognition: result}, nil
	}

	exp, err := service.Explain(ctx, image)
	if err != nil {
		return RecognizeOutput{}, err
	}
	output := RecognizeOutput{Recognition: exp.Recognition}
	for i, e := range exp.Entries {
		output.Candidates = append(output.Candidates, Candidate{
			ID:       e.ID,
			Filename: e.Filename,
			Distance: exp.Distances[i],
			Match:    exp.Matches[i],
		})
	}
	return output, nil
}

func runRecognize(cmd *cobra.Command, args []string) error {
	verbose := mustGetBool(cmd, "verbose")
	jsonOutput := mustGetBool(cmd, "json")

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	ctx := context.Background()
	service, cleanup, err := openService(ctx, config.Load(), mustGetFloat64(cmd, "tolerance"))
	if err != nil {
		return err
	}
	defer cleanup()

	output, err := recognizeImage(ctx, service, image, verbose)
	if err != nil {
		return fmt.Errorf("recognizing %s: %w", args[0], err)
	}
	result := output.Recognition

	if jsonOutput {
		return outputJSON(output)
	}

	if result.IsValid {
		fmt.Printf("Recognized: %s (%s)\n", result.ID, result.Filename)
	} else {
		fmt.Println("No matching face enrolled")
	}

	if verbose && len(output.Candidates) > 0 {
		fmt.Printf("\nDistances (%s, tolerance %.3f):\n", service.Matcher().Metric(), service.Matcher().Tolerance())
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tID\tFILENAME\tDISTANCE\tMATCH")
		for i, c := range output.Candidates {
			match := ""
			if c.Match {
				match = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%s\n", i, c.ID, c.Filename, c.Distance, match)
		}
		w.Flush()
	}
	return nil
}
