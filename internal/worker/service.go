// Package worker provides the HTTP service for career-constellation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/goatcheese98/career-constellation/internal/chat"
	"github.com/goatcheese98/career-constellation/internal/chunking"
	"github.com/goatcheese98/career-constellation/internal/collections"
	"github.com/goatcheese98/career-constellation/internal/config"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	gormdb "github.com/goatcheese98/career-constellation/internal/db/gorm"
	"github.com/goatcheese98/career-constellation/internal/embedding"
	"github.com/goatcheese98/career-constellation/internal/search"
	"github.com/goatcheese98/career-constellation/internal/worker/sse"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// SampleSource names generations built from the bundled sample records.
const SampleSource = "sample"

// Loader reads the raw job records and names their source.
type Loader func(ctx context.Context) ([]models.RawRecord, string, error)

// Options carries the collaborators a Service is built from. Store and
// Generator are optional.
type Options struct {
	Store     *gormdb.Store
	Embedder  *embedding.Service
	Generator chat.Generator
	Loader    Loader
}

// Service serves the constellation API and owns the rebuild lifecycle.
type Service struct {
	startTime      time.Time
	ctx            context.Context
	loader         Loader
	config         *config.Config
	store          *gormdb.Store
	generations    *gormdb.GenerationStore
	pipeline       *constellation.Pipeline
	data           *constellation.Holder
	search         *search.Manager
	chat           *chat.Engine
	sseBroadcaster *sse.Broadcaster
	metrics        *Metrics
	router         chi.Router
	server         *http.Server
	chatLimiter    *rate.Limiter
	cancel         context.CancelFunc
	version        string
	rebuildMu      sync.Mutex
	pending        atomic.Bool // a rebuild was requested and has not started
	draining       atomic.Bool // a goroutine is running pending rebuilds
	ready          atomic.Bool
}

// NewService wires a service from cfg and opts. Nothing is loaded until Start.
func NewService(version string, cfg *config.Config, opts Options) (*Service, error) {
	if opts.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if opts.Loader == nil {
		opts.Loader = func(context.Context) ([]models.RawRecord, string, error) {
			return constellation.SampleRecords(), SampleSource, nil
		}
	}

	catalog, err := collections.Load(cfg.CollectionsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.CollectionsPath).Msg("Failed to load report collections")
		catalog = nil
	}

	holder := &constellation.Holder{}
	sm := search.NewManager(chunking.NewDefaultManager(chunking.DefaultChunkOptions()), catalog, cfg.ReportsDir)

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		version:        version,
		config:         cfg,
		store:          opts.Store,
		pipeline:       constellation.NewPipeline(cfg.PipelineConfig(), opts.Embedder),
		data:           holder,
		search:         sm,
		chat:           chat.NewEngine(sm, holder, opts.Generator, chat.NewBudget(cfg.ContextTokens), cfg.TopKChunks),
		sseBroadcaster: sse.NewBroadcaster(),
		metrics:        NewMetrics(),
		router:         chi.NewRouter(),
		chatLimiter:    newChatLimiter(cfg.ChatRateLimit, cfg.ChatBurst),
		loader:         opts.Loader,
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	if opts.Store != nil {
		svc.generations = gormdb.NewGenerationStore(opts.Store)
	}

	svc.setupRoutes()
	return svc, nil
}

// Handler returns the service router.
func (s *Service) Handler() http.Handler { return s.router }

// Start loads the reports and the first generation, then serves HTTP until
// Shutdown. It returns once the listener stops.
func (s *Service) Start() error {
	if err := s.ReloadReports(s.ctx); err != nil {
		log.Warn().Err(err).Str("dir", s.config.ReportsDir).Msg("Reports unavailable, retrieval starts empty")
	}

	go func() {
		if err := s.Rebuild(s.ctx); err != nil {
			log.Error().Err(err).Msg("Initial build failed")
		}
	}()

	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", s.server.Addr).Str("version", s.version).Msg("Starting worker")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown stops the listener and cancels background work.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

// Rebuild runs the pipeline over freshly loaded records and publishes the
// result. Before the first generation, a failed load or build falls back to
// the sample records. Once a generation is published, any failure keeps
// serving it.
func (s *Service) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	progress := func(stage constellation.Stage, detail string) {
		s.sseBroadcaster.Broadcast(sse.Event{Type: sse.EventProgress, Stage: string(stage), Detail: detail})
	}
	firstBuild := !s.data.Ready()

	raws, source, err := s.loader(ctx)
	if err != nil {
		if !firstBuild {
			if source == "" {
				source = s.config.DataPath
			}
			return s.rebuildFailed(ctx, source, fmt.Errorf("load records: %w", err), time.Since(start))
		}
		log.Warn().Err(err).Msg("Failed to load job records, using sample data")
		raws, source = constellation.SampleRecords(), SampleSource
	}

	ds, err := s.pipeline.Run(ctx, source, raws, progress)
	if err != nil && firstBuild && source != SampleSource && ctx.Err() == nil {
		log.Error().Err(err).Str("source", source).Msg("Build failed, falling back to sample data")
		source = SampleSource
		ds, err = s.pipeline.Run(ctx, source, constellation.SampleRecords(), progress)
	}
	took := time.Since(start)

	if err != nil {
		return s.rebuildFailed(ctx, source, err, took)
	}

	s.publish(ctx, ds, took)
	return nil
}

// rebuildFailed records a failed rebuild and returns it wrapped. The live
// generation is left in place.
func (s *Service) rebuildFailed(ctx context.Context, source string, err error, took time.Duration) error {
	s.metrics.RecordBuild(ctx, false, took)
	s.sseBroadcaster.Broadcast(sse.Event{Type: sse.EventBuildFailed, Source: source, Error: err.Error()})
	if s.generations != nil {
		if ferr := s.generations.RecordFailure(ctx, uuid.NewString(), source, err, took); ferr != nil {
			log.Warn().Err(ferr).Msg("Failed to record build failure")
		}
	}
	log.Error().Err(err).Str("source", source).Msg("Rebuild failed, keeping current generation")
	return fmt.Errorf("rebuild from %s: %w", source, err)
}

// publish swaps in ds and records it.
func (s *Service) publish(ctx context.Context, ds *constellation.Dataset, took time.Duration) {
	previous := s.data.Store(ds)
	s.ready.Store(true)
	s.metrics.RecordBuild(ctx, true, took)

	event := log.Info().
		Str("generation", ds.ID).
		Str("source", ds.Source).
		Str("strategy", string(ds.Strategy)).
		Int("jobs", len(ds.Jobs)).
		Int("clusters", len(ds.Clusters)).
		Int("duplicate_pairs", len(ds.Duplicates)).
		Dur("duration", took)
	if previous != nil {
		event = event.Str("replaced", previous.ID)
	}
	event.Msg("Generation published")

	s.sseBroadcaster.Broadcast(sse.Event{
		Type:       sse.EventGeneration,
		Generation: ds.ID,
		Source:     ds.Source,
		Jobs:       len(ds.Jobs),
		Clusters:   len(ds.Clusters),
	})

	if s.generations == nil {
		return
	}
	if err := s.generations.SaveGeneration(ctx, ds, took); err != nil {
		log.Warn().Err(err).Str("generation", ds.ID).Msg("Failed to persist generation")
		return
	}
	if n, err := s.generations.Prune(ctx, gormdb.DefaultKeepGenerations); err != nil {
		log.Warn().Err(err).Msg("Failed to prune generation history")
	} else if n > 0 {
		log.Debug().Int64("removed", n).Msg("Pruned generation history")
	}
}

// TriggerRebuild requests a background rebuild. A request made while a
// rebuild runs is queued and runs after it. It reports false when a queued
// request already covers this one.
func (s *Service) TriggerRebuild() bool {
	if !s.pending.CompareAndSwap(false, true) {
		return false
	}
	if s.draining.CompareAndSwap(false, true) {
		go s.drainRebuilds()
	}
	return true
}

// drainRebuilds runs rebuilds until no request is pending.
func (s *Service) drainRebuilds() {
	for {
		for s.pending.Swap(false) {
			if err := s.Rebuild(s.ctx); err != nil {
				log.Error().Err(err).Msg("Rebuild failed")
			}
		}
		s.draining.Store(false)
		// A request may have seen draining still set after the last check.
		if !s.pending.Load() || !s.draining.CompareAndSwap(false, true) {
			return
		}
	}
}

// ReloadReports re-chunks the reports directory and swaps the index.
func (s *Service) ReloadReports(ctx context.Context) error {
	if err := s.search.LoadReports(ctx); err != nil {
		return err
	}
	s.sseBroadcaster.Broadcast(sse.Event{Type: sse.EventReports, Reports: len(s.search.Reports())})
	return nil
}

// Dataset returns the current generation, or nil before the first build.
func (s *Service) Dataset() *constellation.Dataset {
	return s.data.Load()
}

func newChatLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
