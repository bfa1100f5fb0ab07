package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollowbeak/syndibot/internal/app"
	"github.com/hollowbeak/syndibot/internal/config"
)

var serveProbeInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the operator endpoint",
	Long: `Serve /healthz and /metrics. Platform reachability is probed
periodically and feeds the health endpoint. Posting stays a manual,
synchronous operation; serve does no scheduling.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveProbeInterval, "probe-interval", 5*time.Minute, "How often to probe platform reachability")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForPosting(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	// First probe before serving so /healthz has data immediately.
	a.Health.Probe(ctx, a.Manager)
	go func() {
		ticker := time.NewTicker(serveProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Health.Probe(ctx, a.Manager)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !a.Health.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(a.Health.Statuses())
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving operator endpoint", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	}

	slog.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
	cancel()

	return nil
}
