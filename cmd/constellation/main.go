// Package main provides the career-constellation command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goatcheese98/career-constellation/internal/config"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/dataset"
	"github.com/goatcheese98/career-constellation/internal/worker"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfg *config.Config

	debug         bool
	dataFlag      string
	reportsFlag   string
	embeddingFlag string
	useSample     bool
	maxJobsFlag   int
)

var rootCmd = &cobra.Command{
	Use:           "constellation",
	Short:         "Cluster job descriptions and query the result",
	Long:          `Builds the job constellation (clusters, affinities, near-duplicate titles) from a CSV job table and answers retrieval queries over the report library.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen})

		_ = godotenv.Load()

		loaded, err := config.Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load config, using defaults")
			loaded = config.Default()
		}
		if dataFlag != "" {
			loaded.DataPath = dataFlag
		}
		if reportsFlag != "" {
			loaded.ReportsDir = reportsFlag
		}
		if embeddingFlag != "" {
			loaded.EmbeddingProvider = embeddingFlag
		}
		if maxJobsFlag > 0 {
			loaded.MaxJobs = maxJobsFlag
		}
		cfg = loaded
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringVar(&dataFlag, "data", "", "job table CSV (default: settings)")
	flags.StringVar(&reportsFlag, "reports", "", "reports directory (default: settings)")
	flags.StringVar(&embeddingFlag, "embedding", "", "embedding provider: http, gemini or tfidf")
	flags.BoolVar(&useSample, "sample", false, "use the bundled sample records instead of the job table")
	flags.IntVar(&maxJobsFlag, "max-jobs", 0, "cap on rows read from the job table")
}

func main() {
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDataset loads the records and runs the pipeline once.
func buildDataset(ctx context.Context) (*constellation.Dataset, error) {
	records, source, err := loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	pipeline := constellation.NewPipeline(cfg.PipelineConfig(), worker.NewEmbedder(ctx, cfg))
	ds, err := pipeline.Run(ctx, source, records, func(stage constellation.Stage, detail string) {
		log.Debug().Str("stage", string(stage)).Str("detail", detail).Msg("Pipeline progress")
	})
	if err != nil {
		return nil, fmt.Errorf("build constellation: %w", err)
	}
	return ds, nil
}

func loadRecords(ctx context.Context) ([]models.RawRecord, string, error) {
	if useSample {
		return constellation.SampleRecords(), worker.SampleSource, nil
	}
	records, err := dataset.Load(ctx, cfg.DataPath, cfg.MaxJobs)
	if err != nil {
		return nil, "", err
	}
	return records, cfg.DataPath, nil
}
