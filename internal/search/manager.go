package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/goatcheese98/career-constellation/internal/chunking"
	"github.com/goatcheese98/career-constellation/internal/collections"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// ReportInfo describes one indexed report.
type ReportInfo struct {
	Metadata    map[string]string `json:"metadata,omitempty"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Collections []string          `json:"collections"`
	Chunks      int               `json:"chunks"`
}

// Report is one report with its chunks.
type Report struct {
	ReportInfo
	Sections []chunking.Chunk `json:"sections"`
}

// JobHit is one job search result.
type JobHit struct {
	Job          models.Job `json:"job"`
	ClusterLabel string     `json:"cluster_label"`
	Score        float64    `json:"score"`
}

// jobIndex is the BM25 index for one dataset generation.
type jobIndex struct {
	bm25       *BM25
	generation string
}

// Manager owns the report index and the per-generation job index. Both are
// replaced atomically, so queries never see a half-built index.
type Manager struct {
	chunker    *chunking.Manager
	catalog    *collections.Catalog
	index      atomic.Pointer[Index]
	jobs       atomic.Pointer[jobIndex]
	reportsDir string
}

// NewManager creates a new search manager. catalog may be nil.
func NewManager(chunker *chunking.Manager, catalog *collections.Catalog, reportsDir string) *Manager {
	if catalog == nil {
		catalog = &collections.Catalog{}
	}
	m := &Manager{
		chunker:    chunker,
		catalog:    catalog,
		reportsDir: reportsDir,
	}
	empty, _ := NewIndex(nil, IndexOptions())
	m.index.Store(empty)
	return m
}

// ReportsDir returns the watched reports directory.
func (m *Manager) ReportsDir() string { return m.reportsDir }

// Catalog returns the report collection catalog.
func (m *Manager) Catalog() *collections.Catalog { return m.catalog }

// LoadReports chunks the reports directory and swaps in a fresh index.
// On error the previous index stays in place.
func (m *Manager) LoadReports(ctx context.Context) error {
	start := time.Now()
	chunks, err := m.chunker.ChunkDir(ctx, m.reportsDir)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	idx, err := NewIndex(chunks, IndexOptions())
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	m.index.Store(idx)
	log.Info().
		Int("chunks", idx.Len()).
		Int("features", idx.Features()).
		Dur("duration", time.Since(start)).
		Msg("Report index built")
	return nil
}

// Index returns the current report index.
func (m *Manager) Index() *Index { return m.index.Load() }

// Retrieve ranks report chunks for query. See Index.Retrieve.
func (m *Manager) Retrieve(query, currentReport string, topK int) []models.RetrievedContext {
	return m.index.Load().Retrieve(query, currentReport, topK)
}

// Reports lists indexed reports in file name order.
func (m *Manager) Reports() []ReportInfo {
	byID := m.group()
	out := make([]ReportInfo, 0, len(byID))
	for _, r := range byID {
		out = append(out, r.ReportInfo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Report returns one report by file name. The ".md" suffix may be omitted.
func (m *Manager) Report(id string) (*Report, bool) {
	byID := m.group()
	if r, ok := byID[id]; ok {
		return r, true
	}
	r, ok := byID[id+".md"]
	return r, ok
}

func (m *Manager) group() map[string]*Report {
	byID := make(map[string]*Report)
	for _, ch := range m.index.Load().Chunks() {
		r, ok := byID[ch.Source]
		if !ok {
			r = &Report{ReportInfo: ReportInfo{
				ID:          ch.Source,
				Title:       ch.Title,
				Metadata:    ch.Metadata,
				Collections: nonNilStrings(m.catalog.For(ch.Source)),
			}}
			byID[ch.Source] = r
		}
		r.Sections = append(r.Sections, ch)
		r.Chunks++
	}
	return byID
}

// ReportContext returns catalog framing text for the report whose file name
// contains current, or "" when there is none.
func (m *Manager) ReportContext(current string) string {
	if current == "" {
		return ""
	}
	if r, ok := m.Report(current); ok {
		return m.catalog.Context(r.ID)
	}
	return m.catalog.Context(current)
}

// SearchJobs fuses a substring ranking over title, cluster label, keywords
// and summary with a BM25 ranking of the job text. Title matches lead the
// substring ranking. limit <= 0 returns every hit.
func (m *Manager) SearchJobs(ds *constellation.Dataset, query string, limit int) []JobHit {
	q := strings.ToLower(strings.TrimSpace(query))
	if ds == nil || q == "" {
		return nil
	}
	bm := m.jobIndexFor(ds)

	labels := make(map[int]string, len(ds.Clusters))
	for i := range ds.Clusters {
		labels[ds.Clusters[i].ID] = ds.Clusters[i].Label
	}

	var titleHits, otherHits []int
	for i := range ds.Jobs {
		j := &ds.Jobs[i]
		switch {
		case strings.Contains(strings.ToLower(j.Title), q):
			titleHits = append(titleHits, j.ID)
		case strings.Contains(strings.ToLower(labels[j.ClusterID]), q),
			containsAny(j.Keywords, q),
			strings.Contains(strings.ToLower(j.Summary), q):
			otherHits = append(otherHits, j.ID)
		}
	}
	substring := append(titleHits, otherHits...)
	lexical := hitIDs(bm.bm25.Search(query, 0))

	fused := FuseJobRankings(substring, lexical)
	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	hits := make([]JobHit, 0, len(fused))
	for _, f := range fused {
		job, err := ds.Job(f.ID)
		if err != nil {
			log.Warn().Err(err).Int("job_id", f.ID).Msg("Skipping search hit")
			continue
		}
		hits = append(hits, JobHit{
			Job:          job.Preview(),
			ClusterLabel: labels[job.ClusterID],
			Score:        f.Score,
		})
	}
	return hits
}

// jobIndexFor returns the BM25 index for ds, building it on first use after
// a generation change.
func (m *Manager) jobIndexFor(ds *constellation.Dataset) *jobIndex {
	if cur := m.jobs.Load(); cur != nil && cur.generation == ds.ID {
		return cur
	}
	docs := make([]string, len(ds.Jobs))
	for i := range ds.Jobs {
		docs[i] = ds.Jobs[i].FullText
	}
	next := &jobIndex{bm25: NewBM25(docs), generation: ds.ID}
	m.jobs.Store(next)
	return next
}

func containsAny(items []string, q string) bool {
	for _, s := range items {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
