// Package constellation assembles clustered jobs into an immutable dataset
// generation and serves read-only queries over it.
package constellation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/goatcheese98/career-constellation/internal/affinity"
	"github.com/goatcheese98/career-constellation/internal/duplicates"
	"github.com/goatcheese98/career-constellation/internal/embedding"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

var (
	// ErrNotReady is returned before the first generation is published.
	ErrNotReady = errors.New("dataset not loaded yet")
	// ErrJobNotFound is returned for an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrClusterNotFound is returned for an unknown cluster id.
	ErrClusterNotFound = errors.New("cluster not found")
	// ErrBelowScanFloor is returned for a duplicate threshold under the
	// floor of the load-time scan.
	ErrBelowScanFloor = errors.New("threshold below duplicate scan floor")
)

// Stats is the aggregate view of a dataset.
type Stats struct {
	ClusterDistribution  map[string]int   `json:"cluster_distribution"`
	EmbeddingStrategy    string           `json:"embedding_strategy"`
	TopKeywords          []models.Counted `json:"top_keywords_overall"`
	TotalJobs            int              `json:"total_jobs"`
	NumClusters          int              `json:"num_clusters"`
	AvgJobsPerCluster    float64          `json:"avg_jobs_per_cluster"`
	StandardizationPairs int              `json:"standardization_pairs"`
	DroppedRecords       int              `json:"dropped_records"`
	EmbeddingDim         int              `json:"embedding_dim"`
	Degraded             bool             `json:"degraded"`
}

// Dataset is one generation of derived data. It is never mutated after
// assembly, so any number of readers may share it.
type Dataset struct {
	BuiltAt           time.Time
	pairwise          *affinity.Pairwise
	scanned           []models.DuplicatePair
	ClusterSimilarity map[string]float64
	clusterPairs      map[int][]models.DuplicatePair
	members           map[int]*roaring.Bitmap
	clusterIndex      map[int]int
	ID                string
	Source            string
	Strategy          embedding.Strategy
	Jobs              []models.Job
	Clusters          []models.Cluster
	Duplicates        []models.DuplicatePair
	Stats             Stats
	Config            Config
	ScanFloor         float64
}

// Job returns the job with the given id.
func (d *Dataset) Job(id int) (*models.Job, error) {
	if id < 0 || id >= len(d.Jobs) {
		return nil, fmt.Errorf("job %d: %w", id, ErrJobNotFound)
	}
	return &d.Jobs[id], nil
}

// Cluster returns the cluster with the given id.
func (d *Dataset) Cluster(id int) (*models.Cluster, error) {
	i, ok := d.clusterIndex[id]
	if !ok {
		return nil, fmt.Errorf("cluster %d: %w", id, ErrClusterNotFound)
	}
	return &d.Clusters[i], nil
}

// JobsInClusters returns the jobs belonging to any of the given clusters in
// id order. Unknown cluster ids are ignored; an empty list returns all jobs.
func (d *Dataset) JobsInClusters(ids []int) []models.Job {
	if len(ids) == 0 {
		return d.Jobs
	}
	sets := make([]*roaring.Bitmap, 0, len(ids))
	for _, id := range ids {
		if bm, ok := d.members[id]; ok {
			sets = append(sets, bm)
		}
	}
	union := roaring.FastOr(sets...)
	out := make([]models.Job, 0, union.GetCardinality())
	it := union.Iterator()
	for it.HasNext() {
		out = append(out, d.Jobs[it.Next()])
	}
	return out
}

// SimilarJob is a neighbor in embedding space.
type SimilarJob struct {
	Title      string                 `json:"title"`
	Keywords   models.JSONStringArray `json:"keywords"`
	ID         int                    `json:"id"`
	ClusterID  int                    `json:"cluster_id"`
	Similarity float64                `json:"similarity"`
}

// SimilarJobs returns the k jobs most similar to id, excluding itself.
func (d *Dataset) SimilarJobs(id, k int) ([]SimilarJob, error) {
	if _, err := d.Job(id); err != nil {
		return nil, err
	}
	neighbors := d.pairwise.TopSimilar(id, k)
	out := make([]SimilarJob, 0, len(neighbors))
	for _, nb := range neighbors {
		j := &d.Jobs[nb.Index]
		out = append(out, SimilarJob{
			ID:         j.ID,
			Title:      j.Title,
			ClusterID:  j.ClusterID,
			Keywords:   j.Keywords,
			Similarity: nb.Similarity,
		})
	}
	return out, nil
}

// Similarity returns the cosine similarity of two jobs.
func (d *Dataset) Similarity(a, b int) (float64, error) {
	if _, err := d.Job(a); err != nil {
		return 0, err
	}
	if _, err := d.Job(b); err != nil {
		return 0, err
	}
	return d.pairwise.At(a, b), nil
}

// DuplicatesAbove returns global pairs above threshold by filtering the
// load-time scan. Thresholds under ScanFloor are rejected.
func (d *Dataset) DuplicatesAbove(threshold float64) ([]models.DuplicatePair, error) {
	if threshold < d.ScanFloor {
		return nil, fmt.Errorf("threshold %g under %g: %w", threshold, d.ScanFloor, ErrBelowScanFloor)
	}
	return duplicates.Above(d.scanned, threshold), nil
}

// ClusterPairs returns the intra-cluster duplicate pairs of a cluster.
func (d *Dataset) ClusterPairs(id int) ([]models.DuplicatePair, error) {
	if _, err := d.Cluster(id); err != nil {
		return nil, err
	}
	return d.clusterPairs[id], nil
}

// JobSummary is a compact job reference.
type JobSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	ID      int    `json:"id"`
}

// ClusterDetails is the drill-down view of one cluster.
type ClusterDetails struct {
	Label          string                 `json:"label"`
	Jobs           []JobSummary           `json:"jobs"`
	TopSkills      []models.Counted       `json:"top_skills"`
	TopKeywords    []models.Counted       `json:"top_keywords"`
	Candidates     models.JSONStringArray `json:"standardization_candidates"`
	DuplicatePairs []models.DuplicatePair `json:"duplicate_pairs"`
	ClusterID      int                    `json:"cluster_id"`
	Size           int                    `json:"size"`
	Messiness      float64                `json:"messiness"`
}

// ClusterDetails aggregates skills, keywords and duplicate signals of a cluster.
func (d *Dataset) ClusterDetails(id int) (*ClusterDetails, error) {
	c, err := d.Cluster(id)
	if err != nil {
		return nil, err
	}
	var skills, keywords []string
	jobs := make([]JobSummary, 0, len(c.Jobs))
	for _, jid := range c.Jobs {
		j := &d.Jobs[jid]
		skills = append(skills, j.Skills...)
		keywords = append(keywords, j.Keywords...)
		jobs = append(jobs, JobSummary{ID: j.ID, Title: j.Title, Summary: models.Truncate(j.Summary, 100)})
	}
	pairs := d.clusterPairs[id]
	if pairs == nil {
		pairs = []models.DuplicatePair{}
	}
	return &ClusterDetails{
		ClusterID:      c.ID,
		Label:          c.Label,
		Size:           c.Size,
		Jobs:           jobs,
		TopSkills:      TopCounts(skills, 10),
		TopKeywords:    TopCounts(keywords, 10),
		Candidates:     c.Candidates,
		DuplicatePairs: pairs,
		Messiness:      c.Messiness,
	}, nil
}

// MessinessEntry ranks a cluster by its share of near-duplicate titles.
type MessinessEntry struct {
	Label     string  `json:"label"`
	ClusterID int     `json:"cluster_id"`
	Size      int     `json:"size"`
	PairCount int     `json:"pair_count"`
	Messiness float64 `json:"messiness"`
}

// MessinessRanking orders clusters from messiest to cleanest; ties by id.
func (d *Dataset) MessinessRanking() []MessinessEntry {
	out := make([]MessinessEntry, 0, len(d.Clusters))
	for _, c := range d.Clusters {
		out = append(out, MessinessEntry{
			ClusterID: c.ID,
			Label:     c.Label,
			Size:      c.Size,
			PairCount: len(d.clusterPairs[c.ID]),
			Messiness: c.Messiness,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Messiness != out[b].Messiness {
			return out[a].Messiness > out[b].Messiness
		}
		return out[a].ClusterID < out[b].ClusterID
	})
	return out
}

// Titles returns every job title in id order.
func (d *Dataset) Titles() []string {
	out := make([]string, len(d.Jobs))
	for i := range d.Jobs {
		out[i] = d.Jobs[i].Title
	}
	return out
}
