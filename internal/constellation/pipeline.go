package constellation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/goatcheese98/career-constellation/internal/affinity"
	"github.com/goatcheese98/career-constellation/internal/cluster"
	"github.com/goatcheese98/career-constellation/internal/duplicates"
	"github.com/goatcheese98/career-constellation/internal/embedding"
	"github.com/goatcheese98/career-constellation/internal/labeler"
	"github.com/goatcheese98/career-constellation/internal/textnorm"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// ErrNoRecords is returned when no record passes the text-length floor.
var ErrNoRecords = errors.New("no records left after normalization")

// Config holds the pipeline parameters.
type Config struct {
	Cluster          cluster.Config `json:"cluster"`
	LabelStopWords   []string       `json:"label_stop_words,omitempty"`
	MaxK             int            `json:"max_k"`
	Density          int            `json:"density"`
	MinK             int            `json:"min_k"`
	GlobalThreshold  float64        `json:"global_threshold"`
	ClusterThreshold float64        `json:"cluster_threshold"`
	DuplicateFloor   float64        `json:"duplicate_floor"`
	CandidateLimit   int            `json:"candidate_limit"`
	MinTextLength    int            `json:"min_text_length"`
	Workers          int            `json:"workers"`
	StripNoise       bool           `json:"strip_noise"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		Cluster:          cluster.DefaultConfig(),
		MaxK:             15,
		Density:          10,
		MinK:             3,
		GlobalThreshold:  duplicates.DefaultGlobalThreshold,
		ClusterThreshold: duplicates.DefaultClusterThreshold,
		DuplicateFloor:   duplicates.DefaultScanFloor,
		CandidateLimit:   duplicates.DefaultCandidateLimit,
		MinTextLength:    textnorm.DefaultMinTextLength,
		StripNoise:       true,
	}
}

// ScanFloor is the threshold of the load-time global scan: the lower of the
// global threshold and the duplicate floor.
func (c Config) ScanFloor() float64 {
	return math.Min(c.GlobalThreshold, c.DuplicateFloor)
}

// Stage names a pipeline step reported through Progress.
type Stage string

const (
	StageNormalize  Stage = "normalize"
	StageEmbed      Stage = "embed"
	StageCluster    Stage = "cluster"
	StageAffinity   Stage = "affinity"
	StageDuplicates Stage = "duplicates"
	StageLabel      Stage = "label"
	StageLayout     Stage = "layout"
	StageFeatures   Stage = "features"
	StageDone       Stage = "done"
)

// Progress receives stage transitions. It may be nil.
type Progress func(stage Stage, detail string)

// Pipeline turns raw records into a dataset generation.
type Pipeline struct {
	embedder *embedding.Service
	labeler  *labeler.Labeler
	cfg      Config
}

// NewPipeline creates a pipeline. A nil embedder uses the tf-idf fallback only.
func NewPipeline(cfg Config, embedder *embedding.Service) *Pipeline {
	if embedder == nil {
		embedder = embedding.NewService(nil, nil)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{embedder: embedder, labeler: labeler.New(cfg.LabelStopWords...), cfg: cfg}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run executes normalization, embedding, clustering, affinity, duplicate
// scanning, labeling and layout, then assembles the result. It either
// returns a complete dataset or an error; nothing is published here.
func (p *Pipeline) Run(ctx context.Context, source string, raws []models.RawRecord, progress Progress) (*Dataset, error) {
	if progress == nil {
		progress = func(Stage, string) {}
	}
	started := time.Now()

	progress(StageNormalize, fmt.Sprintf("%d raw records", len(raws)))
	norm := textnorm.Normalize(raws, textnorm.Options{MinTextLength: p.cfg.MinTextLength, StripNoise: p.cfg.StripNoise})
	if norm.Dropped > 0 {
		log.Debug().Int("dropped", norm.Dropped).Msg("Dropped records below text floor")
	}
	if len(norm.Records) == 0 {
		return nil, ErrNoRecords
	}

	progress(StageEmbed, fmt.Sprintf("%d texts", len(norm.Records)))
	texts := make([]string, len(norm.Records))
	for i, r := range norm.Records {
		texts[i] = r.EmbedText
	}
	emb, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed records: %w", err)
	}

	k := cluster.ChooseK(len(norm.Records), p.cfg.MaxK, p.cfg.Density, p.cfg.MinK)
	progress(StageCluster, fmt.Sprintf("k=%d", k))
	clustering, err := cluster.KMeans(ctx, emb.Vectors, k, p.cfg.Cluster)
	if err != nil {
		return nil, fmt.Errorf("cluster records: %w", err)
	}

	progress(StageAffinity, "")
	pairwise, err := affinity.NewPairwise(ctx, emb.Vectors, p.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("pairwise similarity: %w", err)
	}
	jobAffinity := affinity.JobToCluster(emb.Vectors, clustering.Centroids)
	clusterSim := affinity.ClusterToCluster(clustering.Centroids, nil)

	progress(StageDuplicates, "")
	titles := make([]string, len(norm.Records))
	for i, r := range norm.Records {
		titles[i] = r.Raw.Title
	}
	detector := duplicates.NewDetector(pairwise, titles)
	scanned := detector.Global(p.cfg.ScanFloor())
	global := duplicates.Above(scanned, p.cfg.GlobalThreshold)
	members := clustering.Members()
	clusterPairs := make(map[int][]models.DuplicatePair, len(members))
	candidates := make(map[int][]string, len(members))
	for c, ids := range members {
		if len(ids) == 0 {
			continue
		}
		pairs := detector.IntraCluster(c, ids, p.cfg.ClusterThreshold)
		clusterPairs[c] = pairs
		candidates[c] = duplicates.Candidates(pairs, ids, titles, clustering.Distances, p.cfg.CandidateLimit)
	}

	progress(StageLabel, "")
	labels := make(map[int]string, len(members))
	for c, ids := range members {
		memberTitles := make([]string, len(ids))
		for i, id := range ids {
			memberTitles[i] = titles[id]
		}
		labels[c] = p.labeler.Label(memberTitles)
	}

	progress(StageLayout, "")
	layout, err := Layout(emb.Vectors)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	progress(StageFeatures, "")
	keywords, skills, err := p.features(ctx, norm.Records)
	if err != nil {
		return nil, err
	}

	ds := Assemble(Parts{
		ID:                uuid.NewString(),
		Source:            source,
		Config:            p.cfg,
		Records:           norm.Records,
		Dropped:           norm.Dropped,
		Embedding:         emb,
		Clustering:        clustering,
		JobAffinity:       jobAffinity,
		ClusterSimilarity: clusterSim,
		Pairwise:          pairwise,
		Scanned:           scanned,
		Global:            global,
		ClusterPairs:      clusterPairs,
		Candidates:        candidates,
		Labels:            labels,
		Layout:            layout,
		Keywords:          keywords,
		Skills:            skills,
	})

	log.Info().
		Str("generation", ds.ID).
		Str("source", source).
		Str("strategy", string(emb.Strategy)).
		Int("jobs", len(ds.Jobs)).
		Int("clusters", len(ds.Clusters)).
		Int("pairs", len(global)).
		Dur("took", time.Since(started)).
		Msg("Dataset generation built")
	progress(StageDone, ds.ID)
	return ds, nil
}

func (p *Pipeline) features(ctx context.Context, records []textnorm.Record) ([][]string, [][]string, error) {
	keywords := make([][]string, len(records))
	skills := make([][]string, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			keywords[i] = Keywords(records[i].FullText, KeywordsPerJob)
			skills[i] = Skills(records[i].FullText)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("extract features: %w", err)
	}
	return keywords, skills, nil
}
