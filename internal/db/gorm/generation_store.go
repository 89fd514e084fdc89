package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// MaxStoredPairs caps the duplicate pairs kept per generation.
const MaxStoredPairs = 500

// DefaultKeepGenerations is how many generations Prune retains.
const DefaultKeepGenerations = 20

// ErrGenerationNotFound is returned for an unknown generation id.
var ErrGenerationNotFound = errors.New("generation not found")

// GenerationStore records dataset builds.
type GenerationStore struct {
	db *gorm.DB
}

// NewGenerationStore creates a generation store.
func NewGenerationStore(store *Store) *GenerationStore {
	return &GenerationStore{db: store.DB}
}

// SaveGeneration stores a published generation with its clusters and the
// strongest dataset-wide duplicate pairs.
func (s *GenerationStore) SaveGeneration(ctx context.Context, ds *constellation.Dataset, took time.Duration) error {
	cfgJSON, err := json.Marshal(ds.Config)
	if err != nil {
		return fmt.Errorf("marshal generation config: %w", err)
	}

	gen := &Generation{
		ID:             ds.ID,
		Source:         ds.Source,
		Strategy:       string(ds.Strategy),
		Status:         StatusPublished,
		ConfigJSON:     string(cfgJSON),
		TotalJobs:      ds.Stats.TotalJobs,
		NumClusters:    ds.Stats.NumClusters,
		DuplicatePairs: ds.Stats.StandardizationPairs,
		DroppedRecords: ds.Stats.DroppedRecords,
		EmbeddingDim:   ds.Stats.EmbeddingDim,
		Degraded:       ds.Stats.Degraded,
		DurationMS:     took.Milliseconds(),
	}
	if !ds.BuiltAt.IsZero() {
		gen.BuiltAtEpoch = ds.BuiltAt.UnixMilli()
	}

	clusters := make([]ClusterSnapshot, len(ds.Clusters))
	for i := range ds.Clusters {
		c := &ds.Clusters[i]
		clusters[i] = ClusterSnapshot{
			GenerationID:  ds.ID,
			ClusterID:     c.ID,
			Label:         c.Label,
			Color:         c.Color,
			Size:          c.Size,
			Messiness:     c.Messiness,
			Keywords:      c.Keywords,
			ExampleTitles: c.ExampleTitles,
			Candidates:    c.Candidates,
		}
	}

	pairs := ds.Duplicates
	if len(pairs) > MaxStoredPairs {
		pairs = pairs[:MaxStoredPairs]
	}
	dups := make([]DuplicateSnapshot, len(pairs))
	for i, p := range pairs {
		dups[i] = DuplicateSnapshot{
			GenerationID: ds.ID,
			JobA:         p.JobA,
			JobB:         p.JobB,
			TitleA:       p.TitleA,
			TitleB:       p.TitleB,
			Similarity:   p.Similarity,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Clusters", "Duplicates").Create(gen).Error; err != nil {
			return fmt.Errorf("insert generation: %w", err)
		}
		if len(clusters) > 0 {
			if err := tx.CreateInBatches(clusters, 100).Error; err != nil {
				return fmt.Errorf("insert cluster snapshots: %w", err)
			}
		}
		if len(dups) > 0 {
			if err := tx.CreateInBatches(dups, 100).Error; err != nil {
				return fmt.Errorf("insert duplicate snapshots: %w", err)
			}
		}
		return nil
	})
}

// RecordFailure stores a build that did not publish.
func (s *GenerationStore) RecordFailure(ctx context.Context, id, source string, buildErr error, took time.Duration) error {
	gen := &Generation{
		ID:         id,
		Source:     source,
		Strategy:   "none",
		Status:     StatusFailed,
		Error:      nullString(errString(buildErr)),
		DurationMS: took.Milliseconds(),
	}
	if err := s.db.WithContext(ctx).Omit("Clusters", "Duplicates").Create(gen).Error; err != nil {
		return fmt.Errorf("insert failed generation: %w", err)
	}
	return nil
}

// ListGenerations returns the newest generations first, without children.
func (s *GenerationStore) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = DefaultKeepGenerations
	}
	var gens []Generation
	err := s.db.WithContext(ctx).
		Order("built_at_epoch DESC").
		Limit(limit).
		Find(&gens).Error
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return gens, nil
}

// GetGeneration returns a generation with its clusters ordered by id and its
// pairs by descending similarity.
func (s *GenerationStore) GetGeneration(ctx context.Context, id string) (*Generation, error) {
	var gen Generation
	err := s.db.WithContext(ctx).
		Preload("Clusters", func(db *gorm.DB) *gorm.DB { return db.Order("cluster_id ASC") }).
		Preload("Duplicates", func(db *gorm.DB) *gorm.DB { return db.Order("similarity DESC, job_a ASC, job_b ASC") }).
		Where("id = ?", id).
		First(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("generation %s: %w", id, ErrGenerationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return &gen, nil
}

// LatestPublished returns the newest published generation without children.
func (s *GenerationStore) LatestPublished(ctx context.Context) (*Generation, error) {
	var gen Generation
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusPublished).
		Order("built_at_epoch DESC").
		First(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGenerationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest generation: %w", err)
	}
	return &gen, nil
}

// DuplicatePairs returns the stored pairs of a generation at or above
// threshold, strongest first.
func (s *GenerationStore) DuplicatePairs(ctx context.Context, id string, threshold float64) ([]models.DuplicatePair, error) {
	var rows []DuplicateSnapshot
	err := s.db.WithContext(ctx).
		Where("generation_id = ? AND similarity >= ?", id, threshold).
		Order("similarity DESC, job_a ASC, job_b ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list duplicate pairs: %w", err)
	}
	out := make([]models.DuplicatePair, len(rows))
	for i := range rows {
		out[i] = rows[i].Pair()
	}
	return out, nil
}

// Prune keeps the newest keep generations and deletes the rest with their
// snapshots. It returns the number of generations removed.
func (s *GenerationStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultKeepGenerations
	}
	var stale []string
	err := s.db.WithContext(ctx).
		Model(&Generation{}).
		Order("built_at_epoch DESC").
		Offset(keep).
		Pluck("id", &stale).Error
	if err != nil {
		return 0, fmt.Errorf("find stale generations: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var removed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("generation_id IN ?", stale).Delete(&DuplicateSnapshot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("generation_id IN ?", stale).Delete(&ClusterSnapshot{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", stale).Delete(&Generation{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("prune generations: %w", err)
	}
	return removed, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
