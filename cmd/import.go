package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/faces"
	"github.com/kozaktomas/face-registry/internal/registry"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Bulk enroll images laid out as <dir>/<id>/<image>",
	Long: `Bulk enroll every image under <dir>/<id>/, using the directory name as the
subject id and the image file name as the record filename.

Images without exactly one face and faces that are already enrolled are
skipped. Extractor failures are counted and the import continues. Storage
failures abort the import.

Examples:
  face-registry import ./people

  # Limit concurrency
  face-registry import ./people --concurrency 2

  # JSON summary for scripting
  face-registry import ./people --json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int("concurrency", constants.DefaultImportConcurrency, "Number of parallel workers")
	importCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// ImportResult summarizes an import run
type ImportResult struct {
	Success       bool   `json:"success"`
	Images        int    `json:"images"`
	Enrolled      int    `json:"enrolled"`
	Skipped       int    `json:"skipped"`
	Errors        int    `json:"errors"`
	DurationMs    int64  `json:"duration_ms"`
	DurationHuman string `json:"duration_human,omitempty"`
}

// importJob is one image to enroll
type importJob struct {
	ID       string
	Filename string
	Path     string
}

var importExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

// collectImportJobs lists <dir>/<id>/<image> files sorted by id and filename.
// Hidden entries and files directly under dir are ignored.
func collectImportJobs(dir string) ([]importJob, error) {
	subjects, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading import directory: %w", err)
	}

	var jobs []importJob
	for _, subject := range subjects {
		if !subject.IsDir() || strings.HasPrefix(subject.Name(), ".") {
			continue
		}
		subjectDir := filepath.Join(dir, subject.Name())
		files, err := os.ReadDir(subjectDir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", subjectDir, err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || strings.HasPrefix(name, ".") || !importExtensions[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			jobs = append(jobs, importJob{
				ID:       subject.Name(),
				Filename: name,
				Path:     filepath.Join(subjectDir, name),
			})
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].ID != jobs[j].ID {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].Filename < jobs[j].Filename
	})
	return jobs, nil
}

// importOutcome classifies the result of enrolling one image.
type importOutcome int

const (
	importEnrolled importOutcome = iota
	importSkipped
	importFailed
)

// enrollImage registers one job. Only storage failures are returned as errors.
func enrollImage(ctx context.Context, service *registry.Service, job importJob) (importOutcome, error) {
	image, err := os.ReadFile(job.Path)
	if err != nil {
		return importFailed, nil
	}

	err = service.Register(ctx, job.ID, job.Filename, image)
	switch {
	case err == nil:
		return importEnrolled, nil
	case registry.IsValidation(err), errors.Is(err, registry.ErrAlreadyRegistered):
		return importSkipped, nil
	case errors.Is(err, faces.ErrExtractor):
		return importFailed, nil
	default:
		return importFailed, fmt.Errorf("enrolling %s: %w", job.Path, err)
	}
}

// runImportJobs enrolls jobs with bounded concurrency and stops at the first storage failure.
func runImportJobs(ctx context.Context, service *registry.Service, jobs []importJob, concurrency int, progress func()) (ImportResult, error) {
	var enrolled, skipped, failed int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))

	for _, job := range jobs {
		g.Go(func() error {
			defer progress()
			outcome, err := enrollImage(ctx, service, job)
			switch outcome {
			case importEnrolled:
				atomic.AddInt64(&enrolled, 1)
			case importSkipped:
				atomic.AddInt64(&skipped, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
			return err
		})
	}

	err := g.Wait()
	return ImportResult{
		Success:  err == nil,
		Images:   len(jobs),
		Enrolled: int(enrolled),
		Skipped:  int(skipped),
		Errors:   int(failed),
	}, err
}

func runImport(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")
	startTime := time.Now()

	jobs, err := collectImportJobs(args[0])
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		if jsonOutput {
			return outputJSON(ImportResult{Success: true})
		}
		fmt.Println("No images found. Expected layout: <dir>/<id>/<image>")
		return nil
	}

	ctx := context.Background()
	service, cleanup, err := openService(ctx, config.Load(), 0)
	if err != nil {
		return err
	}
	defer cleanup()

	if !jsonOutput {
		fmt.Printf("Found %d images to import\n\n", len(jobs))
	}

	// Create progress bar (only for non-JSON output)
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("Enrolling faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}
	progress := func() {
		if bar != nil {
			bar.Add(1)
		}
	}

	result, err := runImportJobs(ctx, service, jobs, concurrency, progress)
	if bar != nil {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	duration := time.Since(startTime)
	result.DurationMs = duration.Milliseconds()

	if jsonOutput {
		return outputJSON(result)
	}

	result.DurationHuman = formatDuration(duration)
	fmt.Println("\nImport complete!")
	fmt.Printf("  Images:   %d\n", result.Images)
	fmt.Printf("  Enrolled: %d\n", result.Enrolled)
	fmt.Printf("  Skipped:  %d\n", result.Skipped)
	if result.Errors > 0 {
		fmt.Printf("  Errors:   %d\n", result.Errors)
	}
	fmt.Printf("  Duration: %s\n", result.DurationHuman)
	return nil
}
