// Command aqueducts-executor runs the executor service: it accepts
// WebSocket sessions, queues and runs pipelines one at a time per the
// single-slot concurrency model, and streams progress back over the
// same connection that submitted the work.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aqueducts-go/aqueducts/internal/config"
	"github.com/aqueducts-go/aqueducts/internal/executorsvc"
)

func main() {
	cmd := newServeCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aqueducts-executor",
		Short:         "Run the Aqueducts executor service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadExecutor(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.ExecutorID == "" {
				cfg.ExecutorID = uuid.NewString()
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLogLevel(cfg.LogLevel),
			}))

			return serve(cfg, logger)
		},
	}

	cmd.Flags().String("api-key", "", "api key required on every client connection (or AQUEDUCTS_API_KEY)")
	cmd.Flags().String("host", "0.0.0.0", "address to listen on")
	cmd.Flags().Int("port", 7878, "port to listen on")
	cmd.Flags().Int("max-memory", 0, "memory budget in GB for the execution engine, 0 means unbounded")
	cmd.Flags().String("executor-id", "", "identifier reported in the Welcome handshake (random if unset)")
	cmd.Flags().String("log-level", "info", "debug|info|warn|error")

	return cmd
}

func serve(cfg config.Executor, logger *slog.Logger) error {
	srv := executorsvc.NewServer(cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("executor listening", "addr", addr, "executor_id", cfg.ExecutorID)
		errCh <- httpServer.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
