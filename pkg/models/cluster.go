package models

// Cluster is a group of jobs sharing a cluster id.
// Size always equals len(Jobs).
type Cluster struct {
	Label         string          `json:"label"`
	Color         string          `json:"color"`
	Keywords      JSONStringArray `json:"keywords"`
	ExampleTitles JSONStringArray `json:"example_titles"`
	Candidates    JSONStringArray `json:"standardization_candidates"`
	Jobs          []int           `json:"jobs"`
	Embedding     []float64       `json:"-"`
	Centroid      Point           `json:"centroid"`
	ID            int             `json:"id"`
	Size          int             `json:"size"`
	Messiness     float64         `json:"messiness"`
}

// DuplicatePair is an unordered pair of jobs with differing titles whose
// similarity exceeded a threshold. JobA < JobB.
type DuplicatePair struct {
	ClusterID  *int    `json:"cluster_id,omitempty"`
	TitleA     string  `json:"title_a"`
	TitleB     string  `json:"title_b"`
	JobA       int     `json:"job_a"`
	JobB       int     `json:"job_b"`
	Similarity float64 `json:"similarity"`
}

// RetrievedContext is one ranked retrieval result.
type RetrievedContext struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}
