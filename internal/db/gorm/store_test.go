package gorm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"

	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/embedding"
)

func TestNewStore_FileMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping())
	assert.Equal(t, DriverSQLite, store.Driver())

	var journalMode string
	require.NoError(t, store.DB.Raw("PRAGMA journal_mode").Scan(&journalMode).Error)
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"generations", "cluster_snapshots", "duplicate_snapshots"} {
		assert.True(t, store.DB.Migrator().HasTable(table), "table %q missing", table)
	}
}

func TestMigrationIdempotency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := NewStore(Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	defer second.Close()

	var applied int64
	require.NoError(t, second.DB.Table("migrations").Count(&applied).Error)
	assert.Equal(t, int64(4), applied)
}

func TestNewStore_UnsupportedDriver(t *testing.T) {
	_, err := NewStore(Config{Driver: "oracle"})
	assert.Error(t, err)
}

// GenerationStoreSuite exercises the store against an in-memory database and
// a dataset built from the sample records.
type GenerationStoreSuite struct {
	suite.Suite
	ds    *constellation.Dataset
	store *Store
	gens  *GenerationStore
}

func TestGenerationStoreSuite(t *testing.T) {
	suite.Run(t, new(GenerationStoreSuite))
}

func (s *GenerationStoreSuite) SetupSuite() {
	p := constellation.NewPipeline(constellation.DefaultConfig(), embedding.NewService(nil, nil))
	ds, err := p.Run(context.Background(), "sample", constellation.SampleRecords(), nil)
	s.Require().NoError(err)
	s.ds = ds
}

func (s *GenerationStoreSuite) SetupTest() {
	store, err := NewStore(Config{Path: ":memory:", LogLevel: logger.Silent})
	s.Require().NoError(err)
	s.store = store
	s.gens = NewGenerationStore(store)
}

func (s *GenerationStoreSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

// copyAt returns the dataset under a new id and build time.
func (s *GenerationStoreSuite) copyAt(id string, at time.Time) *constellation.Dataset {
	d := *s.ds
	d.ID = id
	d.BuiltAt = at
	return &d
}

func (s *GenerationStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	s.Require().NoError(s.gens.SaveGeneration(ctx, s.ds, 1500*time.Millisecond))

	gen, err := s.gens.GetGeneration(ctx, s.ds.ID)
	s.Require().NoError(err)
	s.Equal(StatusPublished, gen.Status)
	s.Equal("sample", gen.Source)
	s.Equal(string(s.ds.Strategy), gen.Strategy)
	s.Equal(len(s.ds.Jobs), gen.TotalJobs)
	s.Equal(int64(1500), gen.DurationMS)
	s.Equal(s.ds.BuiltAt.UnixMilli(), gen.BuiltAtEpoch)
	s.Contains(gen.ConfigJSON, `"max_k":15`)

	s.Require().Len(gen.Clusters, len(s.ds.Clusters))
	for i, c := range gen.Clusters {
		s.Equal(s.ds.Clusters[i].ID, c.ClusterID)
		s.Equal(s.ds.Clusters[i].Label, c.Label)
		s.Equal(s.ds.Clusters[i].Size, c.Size)
		s.NotNil(c.Keywords)
	}

	want := min(len(s.ds.Duplicates), MaxStoredPairs)
	s.Len(gen.Duplicates, want)
	for i := 1; i < len(gen.Duplicates); i++ {
		s.GreaterOrEqual(gen.Duplicates[i-1].Similarity, gen.Duplicates[i].Similarity)
	}
}

func (s *GenerationStoreSuite) TestGetGeneration_NotFound() {
	_, err := s.gens.GetGeneration(context.Background(), "missing")
	s.True(errors.Is(err, ErrGenerationNotFound))
}

func (s *GenerationStoreSuite) TestListAndLatest() {
	ctx := context.Background()
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.gens.SaveGeneration(ctx, s.copyAt(fmt.Sprintf("gen-%d", i), base.Add(time.Duration(i)*time.Hour)), 0))
	}
	s.Require().NoError(s.gens.RecordFailure(ctx, "gen-failed", "broken.csv", errors.New("read rows: boom"), time.Second))

	gens, err := s.gens.ListGenerations(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(gens, 4)
	// The failure was recorded now, after the fixed base dates.
	s.Equal("gen-failed", gens[0].ID)
	s.Equal(StatusFailed, gens[0].Status)
	s.Equal("read rows: boom", gens[0].Error.String)
	s.Equal("gen-2", gens[1].ID)

	latest, err := s.gens.LatestPublished(ctx)
	s.Require().NoError(err)
	s.Equal("gen-2", latest.ID)
}

func (s *GenerationStoreSuite) TestLatestPublished_Empty() {
	_, err := s.gens.LatestPublished(context.Background())
	s.ErrorIs(err, ErrGenerationNotFound)
}

func (s *GenerationStoreSuite) TestDuplicatePairsThreshold() {
	ctx := context.Background()
	s.Require().NoError(s.gens.SaveGeneration(ctx, s.ds, 0))

	all, err := s.gens.DuplicatePairs(ctx, s.ds.ID, 0)
	s.Require().NoError(err)
	s.Len(all, min(len(s.ds.Duplicates), MaxStoredPairs))

	none, err := s.gens.DuplicatePairs(ctx, s.ds.ID, 1.01)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *GenerationStoreSuite) TestPrune() {
	ctx := context.Background()
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.gens.SaveGeneration(ctx, s.copyAt(fmt.Sprintf("gen-%d", i), base.Add(time.Duration(i)*time.Minute)), 0))
	}

	removed, err := s.gens.Prune(ctx, 2)
	s.Require().NoError(err)
	s.Equal(int64(3), removed)

	gens, err := s.gens.ListGenerations(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(gens, 2)
	s.Equal("gen-4", gens[0].ID)
	s.Equal("gen-3", gens[1].ID)

	var orphans int64
	s.Require().NoError(s.store.DB.Model(&ClusterSnapshot{}).Where("generation_id = ?", "gen-0").Count(&orphans).Error)
	s.Zero(orphans)

	removed, err = s.gens.Prune(ctx, 2)
	s.Require().NoError(err)
	s.Zero(removed)
}
