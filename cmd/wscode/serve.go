package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/wscode/internal/logger"
	"github.com/ehrlich-b/wscode/internal/session"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func serveCmd() *cobra.Command {
	var workspacePath string
	var port int
	var logLevel string
	var logFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editor backend for a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workspacePath == "" {
				return fmt.Errorf("--workspace is required")
			}

			if err := logger.Init(envOr("WSCODE_LOG_LEVEL", logLevel), logFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ws, err := session.NewWorkspace(workspacePath)
			if err != nil {
				return fmt.Errorf("init workspace: %w", err)
			}

			srv := session.NewServer(ws)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(fmt.Sprintf(":%d", port))
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("serve: shutting down")
				return srv.Close()
			}
		},
	}

	cmd.Flags().StringVar(&workspacePath, "workspace", "", "workspace root directory (required)")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().StringVar(&logFile, "log-file", "", "optional log file path, in addition to stdout")

	return cmd
}
