package chat

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goatcheese98/career-constellation/internal/constellation"
)

const (
	analysisClusterRows = 10
	analysisLevelRows   = 10
	analysisTitleRows   = 10
	analysisKeywordRows = 15
	analysisTermRows    = 3
)

// termGroup counts postings mentioning any of a set of phrases when the
// query mentions one of its triggers.
type termGroup struct {
	name     string
	triggers []string
	pattern  *regexp.Regexp
}

func newTermGroup(name string, triggers []string, phrases ...string) termGroup {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return termGroup{
		name:     name,
		triggers: triggers,
		pattern:  regexp.MustCompile(strings.Join(quoted, "|")),
	}
}

var termGroups = []termGroup{
	newTermGroup("CCS", []string{"ccs", "carbon capture"}, "ccs", "carbon capture", "carbon capture and storage", "sequestration"),
	newTermGroup("Engineer", []string{"engineer"}, "engineer", "engineering", "technical"),
	newTermGroup("Manager", []string{"manager"}, "manager", "management", "leadership"),
	newTermGroup("Senior", []string{"senior"}, "senior", "sr.", "lead", "principal"),
}

// DataAnalysisContext renders dataset statistics for data questions: totals,
// jobs per cluster, level mix, frequent titles and keywords, and counts for
// topic terms named in query. It returns "" for a nil dataset.
func DataAnalysisContext(ds *constellation.Dataset, query string) string {
	if ds == nil {
		return ""
	}
	total := len(ds.Jobs)
	parts := []string{
		"\n### DATASET STATISTICS & ANALYSIS:",
		"\n**Dataset Overview:**",
		fmt.Sprintf("- Total jobs: %d", total),
		fmt.Sprintf("- Number of clusters: %d", len(ds.Clusters)),
	}

	clusters := make([]int, 0, len(ds.Clusters))
	for i := range ds.Clusters {
		clusters = append(clusters, i)
	}
	sort.Slice(clusters, func(a, b int) bool { return ds.Clusters[clusters[a]].ID < ds.Clusters[clusters[b]].ID })
	parts = append(parts, "\n**Cluster Distribution (jobs per cluster):**")
	for n, i := range clusters {
		if n == analysisClusterRows {
			parts = append(parts, fmt.Sprintf("  - ... and %d more clusters", len(clusters)-analysisClusterRows))
			break
		}
		c := &ds.Clusters[i]
		parts = append(parts, fmt.Sprintf("  - Cluster %d (%s): %d jobs", c.ID, c.Label, c.Size))
	}

	levels := make([]string, 0, total)
	var hasLevel bool
	for i := range ds.Jobs {
		level := ds.Jobs[i].Level
		if level == "" {
			level = "Not Specified"
		} else {
			hasLevel = true
		}
		levels = append(levels, level)
	}
	if hasLevel {
		parts = append(parts, "\n**Job Level Distribution:**")
		for _, c := range constellation.TopCounts(levels, analysisLevelRows) {
			pct := float64(c.Count) / float64(total) * 100
			parts = append(parts, fmt.Sprintf("  - %s: %d jobs (%.1f%%)", c.Name, c.Count, pct))
		}
	}

	titles := make([]string, len(ds.Jobs))
	var keywords []string
	for i := range ds.Jobs {
		titles[i] = ds.Jobs[i].Title
		keywords = append(keywords, ds.Jobs[i].Keywords...)
	}
	parts = append(parts, "\n**Top Job Titles:**")
	for _, c := range constellation.TopCounts(titles, analysisTitleRows) {
		parts = append(parts, fmt.Sprintf("  - %s: %d postings", c.Name, c.Count))
	}
	if top := constellation.TopCounts(keywords, analysisKeywordRows); len(top) > 0 {
		parts = append(parts, "\n**Most Common Keywords:**")
		for _, c := range top {
			parts = append(parts, fmt.Sprintf("  - %s: %d occurrences", c.Name, c.Count))
		}
	}

	q := strings.ToLower(query)
	for _, g := range termGroups {
		if !containsAny(q, g.triggers) {
			continue
		}
		perCluster := make(map[int]int)
		var matched int
		for i := range ds.Jobs {
			if g.pattern.MatchString(strings.ToLower(ds.Jobs[i].FullText)) {
				matched++
				perCluster[ds.Jobs[i].ClusterID]++
			}
		}
		if matched == 0 {
			continue
		}
		parts = append(parts,
			fmt.Sprintf("\n**Jobs related to '%s':** %d postings", g.name, matched),
			"  - Found in clusters: "+strings.Join(topClusters(perCluster, analysisTermRows), ", "),
		)
	}

	return strings.Join(parts, "\n")
}

// topClusters names the n clusters with the most hits, ties by lower id.
func topClusters(counts map[int]int, n int) []string {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if counts[ids[a]] != counts[ids[b]] {
			return counts[ids[a]] > counts[ids[b]]
		}
		return ids[a] < ids[b]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("Cluster %d", id)
	}
	return out
}
