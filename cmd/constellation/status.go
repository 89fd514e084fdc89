package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goatcheese98/career-constellation/pkg/client"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
)

var (
	serverAddr string
	noColor    bool
	statusTime time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running server",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Ask a running server to rebuild its constellation",
	Args:  cobra.NoArgs,
	RunE:  runRebuild,
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, rebuildCmd} {
		c.Flags().StringVar(&serverAddr, "addr", "", "server base URL (default: settings host and port)")
		c.Flags().DurationVar(&statusTime, "timeout", client.DefaultTimeout, "request timeout")
		rootCmd.AddCommand(c)
	}
	statusCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func serverClient() *client.Client {
	base := serverAddr
	if base == "" {
		base = client.BaseURL(cfg.WorkerHost, cfg.WorkerPort)
	} else if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return client.New(base, statusTime)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), statusTime)
	defer cancel()

	c := serverClient()
	useColors := !noColor && os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"

	health, err := c.Health(ctx)
	if err != nil {
		cmd.Println(formatOffline(useColors))
		return fmt.Errorf("server not reachable: %w", err)
	}
	if !health.Ready() {
		cmd.Println(formatStarting(health, useColors))
		return nil
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	cmd.Println(formatStatus(health, stats, useColors))
	if client.VersionMismatch(health.Version, Version) {
		cmd.Printf("warning: server version %s differs from %s\n", health.Version, Version)
	}
	return nil
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), statusTime)
	defer cancel()

	queued, err := serverClient().Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild request failed: %w", err)
	}
	if queued {
		cmd.Println("Rebuild queued.")
	} else {
		cmd.Println("A rebuild is already queued.")
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func paint(s, color string, useColors bool) string {
	if !useColors {
		return s
	}
	return color + s + colorReset
}

// formatStatus renders the ready state, e.g.
// [constellation] ● jobs:120 | clusters:8 | duplicates:14 | tfidf
func formatStatus(h *client.Health, s *client.Stats, useColors bool) string {
	parts := []string{
		fmt.Sprintf("jobs:%d", s.TotalJobs),
		fmt.Sprintf("clusters:%d", s.NumClusters),
		fmt.Sprintf("duplicates:%d", s.StandardizationPairs),
		s.EmbeddingStrategy,
	}
	if s.DroppedRecords > 0 {
		parts = append(parts, paint(fmt.Sprintf("dropped:%d", s.DroppedRecords), colorYellow, useColors))
	}
	if s.Degraded {
		parts = append(parts, paint("degraded", colorYellow, useColors))
	}
	if h.Generation != "" {
		parts = append(parts, "gen:"+shortID(h.Generation))
	}
	return paint("[constellation]", colorCyan, useColors) + " " +
		paint("●", colorGreen, useColors) + " " + strings.Join(parts, " | ")
}

func formatStarting(h *client.Health, useColors bool) string {
	return paint("[constellation]", colorCyan, useColors) + " " +
		paint("○ building...", colorYellow, useColors) + " (" + h.Version + ")"
}

func formatOffline(useColors bool) string {
	return paint("[constellation]", colorCyan, useColors) + " " + paint("○ offline", colorRed, useColors)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
