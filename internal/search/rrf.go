// Package search ranks report chunks and job records for chat retrieval and
// job search.
package search

import "sort"

// fusionK damps how much the head of each ranking dominates the fused order.
const fusionK = 60

// Hit is a job id with its ranking score.
type Hit struct {
	ID    int
	Score float64
}

// FuseJobRankings merges ranked job-id lists, best first, with Reciprocal
// Rank Fusion. A job at rank r of a list gains 1/(fusionK+r+1); only its first
// appearance in a list counts. Jobs found by several rankings rise above jobs
// found by one. Ties order by job id.
func FuseJobRankings(rankings ...[]int) []Hit {
	scores := make(map[int]float64)
	for _, ranking := range rankings {
		seen := make(map[int]bool, len(ranking))
		for rank, id := range ranking {
			if seen[id] {
				continue
			}
			seen[id] = true
			scores[id] += 1 / float64(fusionK+rank+1)
		}
	}

	fused := make([]Hit, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, Hit{ID: id, Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}

func hitIDs(hits []Hit) []int {
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}
