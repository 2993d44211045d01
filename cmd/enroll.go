package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/registry"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <id> <image>",
	Short: "Enroll the face in an image under a subject id",
	Long: `Enroll the single face found in an image under a subject id.

The image must contain exactly one face, and that face must not match any
face already enrolled.

Examples:
  # Enroll with the image's base name as the record filename
  face-registry enroll alice photos/alice-2023.jpg

  # Override the stored filename
  face-registry enroll alice /tmp/upload.jpg --filename alice-2023.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("filename", "", "Filename stored with the record (defaults to the image base name)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	id, imagePath := args[0], args[1]
	filename := mustGetString(cmd, "filename")
	if filename == "" {
		filename = filepath.Base(imagePath)
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	ctx := context.Background()
	service, cleanup, err := openService(ctx, config.Load(), 0)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := service.Register(ctx, id, filename, image); err != nil {
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			return errors.New("face is already registered")
		}
		return fmt.Errorf("enrolling %s: %w", imagePath, err)
	}

	fmt.Printf("Enrolled %s as %s (%s)\n", imagePath, id, filename)
	return nil
}
