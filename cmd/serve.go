package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Face Registry HTTP API.

Endpoints:
  POST   /recognize                              recognize the face in "image"
  POST   /register                               enroll "image" under "id" and "filename"
  GET    /all_training_data                      list all enrolled records
  GET    /get_training_data/{id}                 list filenames enrolled under an id
  DELETE /delete_training_data/{id}/{filename}   remove matching records
  GET    /health                                 liveness check`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", constants.DefaultWebPort, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", constants.DefaultWebHost, "Host to bind to (overrides WEB_HOST)")
}

// resolveServeHostPort applies explicitly set flags over the environment config.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.WebConfig) {
	if cmd.Flags().Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, &cfg.Web)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, cleanup, err := openService(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer cleanup()

	server := web.NewServer(cfg, service, slog.Default())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Starting Face Registry API on http://%s\n", cfg.Web.Addr())
	if cfg.Web.APIToken != "" {
		fmt.Println("Bearer token authentication enabled")
	}
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
