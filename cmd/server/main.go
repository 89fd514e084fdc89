// Package main provides the HTTP server entry point for career-constellation.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/goatcheese98/career-constellation/internal/config"
	"github.com/goatcheese98/career-constellation/internal/dataset"
	gormdb "github.com/goatcheese98/career-constellation/internal/db/gorm"
	"github.com/goatcheese98/career-constellation/internal/watcher"
	"github.com/goatcheese98/career-constellation/internal/worker"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Parse flags
	dataPath := flag.String("data", "", "Job table CSV (default: settings)")
	reportsDir := flag.String("reports", "", "Reports directory (default: settings)")
	noHistory := flag.Bool("no-history", false, "Do not persist generation history")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *reportsDir != "" {
		cfg.ReportsDir = *reportsDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Generation history is optional; the API serves without it.
	var store *gormdb.Store
	if !*noHistory {
		store, err = gormdb.NewStore(gormdb.Config{
			Driver:   cfg.DBDriver,
			Path:     cfg.DBDSN,
			LogLevel: logger.Silent,
		})
		if err != nil {
			log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("Generation store unavailable, history disabled")
			store = nil
		} else {
			defer store.Close()
		}
	}

	svc, err := worker.NewService(Version, cfg, worker.Options{
		Store:     store,
		Embedder:  worker.NewEmbedder(ctx, cfg),
		Generator: worker.NewGenerator(ctx, cfg),
		Loader: func(ctx context.Context) ([]models.RawRecord, string, error) {
			records, err := dataset.Load(ctx, cfg.DataPath, cfg.MaxJobs)
			return records, cfg.DataPath, err
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker")
	}

	stopWatchers := startWatchers(ctx, cfg, svc)
	defer stopWatchers()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down worker")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Worker shutdown failed")
		}
		cancel()
	}()

	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Worker error")
	}
}

// startWatchers rebuilds on job table changes and re-indexes on report
// changes. It returns a func stopping every watcher that started.
func startWatchers(ctx context.Context, cfg *config.Config, svc *worker.Service) func() {
	debounce := time.Duration(cfg.WatchDebounceMS) * time.Millisecond
	var started []*watcher.Watcher

	dataWatcher, err := watcher.New(cfg.DataPath, func() {
		log.Info().Str("path", cfg.DataPath).Msg("Job table changed, rebuilding")
		if !svc.TriggerRebuild() {
			log.Debug().Msg("Rebuild already queued")
		}
	}, watcher.WithDebounce(debounce))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create job table watcher")
	} else if err := dataWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start job table watcher")
	} else {
		log.Info().Str("path", cfg.DataPath).Msg("Job table watcher started")
		started = append(started, dataWatcher)
	}

	reportsWatcher, err := watcher.New(cfg.ReportsDir, func() {
		log.Info().Str("dir", cfg.ReportsDir).Msg("Reports changed, re-indexing")
		if err := svc.ReloadReports(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to re-index reports")
		}
	}, watcher.WithDebounce(debounce), watcher.WithExtensions(".md"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create reports watcher")
	} else if err := reportsWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start reports watcher")
	} else {
		log.Info().Str("dir", cfg.ReportsDir).Msg("Reports watcher started")
		started = append(started, reportsWatcher)
	}

	// Settings changes need a restart, like the pipeline parameters they carry.
	settingsPath := config.SettingsPath()
	configWatcher, err := watcher.New(settingsPath, func() {
		log.Warn().Str("path", settingsPath).Msg("Settings changed, restart to apply")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
	} else if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start settings watcher")
	} else {
		started = append(started, configWatcher)
	}

	return func() {
		for _, w := range started {
			if err := w.Stop(); err != nil {
				log.Debug().Err(err).Msg("Failed to stop watcher")
			}
		}
	}
}
