package models

// RawRecord is one row of the job table before normalization.
// Missing fields are empty strings.
type RawRecord struct {
	Title            string
	Summary          string
	Responsibilities string
	Qualifications   string
	Level            string
	Scope            string
}

// Point is a position in layout space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Job is a normalized, embedded and clustered job description.
// ID is the row index after filtering and is stable within one generation.
type Job struct {
	Affinities         map[int]float64 `json:"affinities"`
	Title              string          `json:"title"`
	Summary            string          `json:"summary"`
	Responsibilities   string          `json:"responsibilities"`
	Qualifications     string          `json:"qualifications"`
	Level              string          `json:"level,omitempty"`
	Scope              string          `json:"scope,omitempty"`
	FullText           string          `json:"-"`
	Color              string          `json:"color"`
	Keywords           JSONStringArray `json:"keywords"`
	Skills             JSONStringArray `json:"skills"`
	ID                 int             `json:"id"`
	ClusterID          int             `json:"cluster_id"`
	X                  float64         `json:"x"`
	Y                  float64         `json:"y"`
	Z                  float64         `json:"z"`
	Size               float64         `json:"size"`
	DistanceToCentroid float64         `json:"distance_to_centroid"`
}

// Coordinates returns the job's layout position.
func (j *Job) Coordinates() Point {
	return Point{X: j.X, Y: j.Y, Z: j.Z}
}

// Rune limits applied by Preview.
const (
	PreviewSummaryRunes = 200
	PreviewDetailRunes  = 300
)

// Preview returns a copy with long text fields cut for list views.
func (j Job) Preview() Job {
	j.Summary = Truncate(j.Summary, PreviewSummaryRunes)
	j.Responsibilities = Truncate(j.Responsibilities, PreviewDetailRunes)
	j.Qualifications = Truncate(j.Qualifications, PreviewDetailRunes)
	return j
}
