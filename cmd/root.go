package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "face-registry",
	Short: "Enroll and recognize faces over HTTP or from the command line",
	Long: `Face Registry keeps a list of enrolled faces, each tagged with a subject id
and a source filename, and recognizes new photos against it.

Faces are turned into embeddings by an extractor (an HTTP embedding service
or the built-in dlib recognizer) and stored in a local file or a SQL database.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(os.Stderr, config.Load().Log))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
