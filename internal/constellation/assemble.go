package constellation

import (
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/goatcheese98/career-constellation/internal/affinity"
	"github.com/goatcheese98/career-constellation/internal/cluster"
	"github.com/goatcheese98/career-constellation/internal/duplicates"
	"github.com/goatcheese98/career-constellation/internal/embedding"
	"github.com/goatcheese98/career-constellation/internal/textnorm"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// exampleTitles is the number of titles shown on a cluster card.
const exampleTitles = 3

// Parts are the outputs of the pipeline stages, indexed by record position.
type Parts struct {
	Embedding         *embedding.Result
	Clustering        *cluster.Result
	Pairwise          *affinity.Pairwise
	ClusterSimilarity map[string]float64
	ClusterPairs      map[int][]models.DuplicatePair
	Candidates        map[int][]string
	Labels            map[int]string
	ID                string
	Source            string
	Records           []textnorm.Record
	JobAffinity       [][]float64
	Scanned           []models.DuplicatePair
	Global            []models.DuplicatePair
	Layout            [][3]float64
	Keywords          [][]string
	Skills            [][]string
	Config            Config
	Dropped           int
}

// Assemble shapes stage outputs into a Dataset. Clusters without members
// are left out, and every job references an emitted cluster.
func Assemble(p Parts) *Dataset {
	n := len(p.Records)
	jobs := make([]models.Job, n)
	for i, rec := range p.Records {
		cid := p.Clustering.Assignments[i]
		aff := make(map[int]float64, len(p.JobAffinity[i]))
		for c, v := range p.JobAffinity[i] {
			aff[c] = v
		}
		jobs[i] = models.Job{
			ID:                 i,
			Title:              rec.Raw.Title,
			Summary:            rec.Raw.Summary,
			Responsibilities:   rec.Raw.Responsibilities,
			Qualifications:     rec.Raw.Qualifications,
			Level:              rec.Raw.Level,
			Scope:              rec.Raw.Scope,
			FullText:           rec.FullText,
			ClusterID:          cid,
			X:                  p.Layout[i][0],
			Y:                  p.Layout[i][1],
			Z:                  p.Layout[i][2],
			Size:               PointSize(len([]rune(rec.FullText))),
			Color:              ColorFor(cid),
			DistanceToCentroid: p.Clustering.Distances[i],
			Keywords:           nonNil(p.Keywords[i]),
			Skills:             nonNil(p.Skills[i]),
			Affinities:         aff,
		}
	}

	members := p.Clustering.Members()
	clusters := make([]models.Cluster, 0, len(members))
	bitmaps := make(map[int]*roaring.Bitmap, len(members))
	index := make(map[int]int, len(members))
	distribution := make(map[string]int, len(members))
	var allKeywords []string

	for cid, ids := range members {
		if len(ids) == 0 {
			continue
		}
		var centroid models.Point
		var kw []string
		examples := make([]string, 0, exampleTitles)
		bm := roaring.New()
		for _, id := range ids {
			j := &jobs[id]
			centroid.X += j.X
			centroid.Y += j.Y
			centroid.Z += j.Z
			kw = append(kw, j.Keywords...)
			if len(examples) < exampleTitles {
				examples = append(examples, j.Title)
			}
			bm.Add(uint32(id))
		}
		size := float64(len(ids))
		centroid.X /= size
		centroid.Y /= size
		centroid.Z /= size
		allKeywords = append(allKeywords, kw...)

		label := p.Labels[cid]
		if label == "" {
			label = "Cluster " + strconv.Itoa(cid)
		}

		index[cid] = len(clusters)
		bitmaps[cid] = bm
		distribution[strconv.Itoa(cid)] = len(ids)
		clusters = append(clusters, models.Cluster{
			ID:            cid,
			Label:         label,
			Keywords:      nonNil(names(TopCounts(kw, 5))),
			ExampleTitles: examples,
			Candidates:    nonNil(p.Candidates[cid]),
			Size:          len(ids),
			Color:         ColorFor(cid),
			Centroid:      centroid,
			Embedding:     p.Clustering.Centroids[cid],
			Jobs:          ids,
			Messiness:     duplicates.Messiness(len(p.ClusterPairs[cid]), len(ids)),
		})
	}

	global := p.Global
	if global == nil {
		global = []models.DuplicatePair{}
	}

	stats := Stats{
		TotalJobs:            n,
		NumClusters:          len(clusters),
		ClusterDistribution:  distribution,
		TopKeywords:          TopCounts(allKeywords, 20),
		StandardizationPairs: len(global),
		DroppedRecords:       p.Dropped,
		EmbeddingStrategy:    string(p.Embedding.Strategy),
		EmbeddingDim:         p.Embedding.Dim,
		Degraded:             p.Embedding.Degraded,
	}
	if len(clusters) > 0 {
		stats.AvgJobsPerCluster = float64(n) / float64(len(clusters))
	}

	return &Dataset{
		ID:                p.ID,
		BuiltAt:           time.Now().UTC(),
		Source:            p.Source,
		Strategy:          p.Embedding.Strategy,
		Config:            p.Config,
		Jobs:              jobs,
		Clusters:          clusters,
		ClusterSimilarity: p.ClusterSimilarity,
		Duplicates:        global,
		Stats:             stats,
		pairwise:          p.Pairwise,
		ScanFloor:         p.Config.ScanFloor(),
		scanned:           p.Scanned,
		clusterPairs:      p.ClusterPairs,
		members:           bitmaps,
		clusterIndex:      index,
	}
}

func nonNil(s []string) models.JSONStringArray {
	if s == nil {
		return models.JSONStringArray{}
	}
	return models.JSONStringArray(s)
}
