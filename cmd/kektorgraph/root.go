package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sanonone/kektorgraph/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	logLevel    string
	metricsAddr string

	metricsServer *http.Server
)

var rootCmd = &cobra.Command{
	Use:   "kektorgraph",
	Short: "KektorGraph - graph embedding trainer",
	Long: `KektorGraph learns dense vector representations for the vertices of a
weighted graph read from tab-separated edge lists.

Examples:
  kektorgraph deepwalk --train net.txt --save net.embed
  kektorgraph bpr --train ui.txt --save ui.embed --update-times 20
  kektorgraph kgcf --train ui.txt --train-secondary ik.txt --save kgcf.embed
  kektorgraph export --snapshot run.snap --save run.embed`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { stopMetrics() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(*cobra.Command, []string) error {
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// startMetrics serves /metrics on addr until stopMetrics is called.
func startMetrics(addr string) {
	if addr == "" || metricsServer != nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("[Metrics] Listening", "addr", addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Metrics] Server failed", "error", err)
		}
	}()
}

func stopMetrics() {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Warn("[Metrics] Shutdown failed", "error", err)
	}
	metricsServer = nil
}
