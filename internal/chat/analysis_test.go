package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/embedding"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

func TestDataAnalysisContext(t *testing.T) {
	pipeline := constellation.NewPipeline(constellation.DefaultConfig(), embedding.NewService(nil, nil))
	ds, err := pipeline.Run(context.Background(), "sample", constellation.SampleRecords(), nil)
	require.NoError(t, err)

	got := DataAnalysisContext(ds, "How many engineer jobs are senior?")

	assert.Contains(t, got, "\n### DATASET STATISTICS & ANALYSIS:")
	assert.Contains(t, got, "- Total jobs: 32")
	assert.Contains(t, got, "- Number of clusters: 3")
	assert.Contains(t, got, "**Cluster Distribution (jobs per cluster):**")
	assert.Contains(t, got, "**Top Job Titles:**")
	assert.Contains(t, got, "  - Finance Manager: 1 postings")
	assert.Contains(t, got, "**Most Common Keywords:**")
	assert.Contains(t, got, "**Jobs related to 'Engineer':**")
	assert.Contains(t, got, "**Jobs related to 'Senior':**")
	assert.NotContains(t, got, "Job Level Distribution")
	assert.NotContains(t, got, "'CCS'")

	assert.Equal(t, "", DataAnalysisContext(nil, "anything"))
}

func TestDataAnalysisContext_Levels(t *testing.T) {
	ds := &constellation.Dataset{
		Jobs: []models.Job{
			{ID: 0, Title: "A", Level: "Senior", FullText: "carbon capture lead"},
			{ID: 1, Title: "B", Level: "Senior", ClusterID: 1, FullText: "ccs operator"},
			{ID: 2, Title: "C", FullText: "clerk"},
			{ID: 3, Title: "D", Level: "Junior", ClusterID: 1, FullText: "sequestration"},
		},
		Clusters: []models.Cluster{{ID: 1, Label: "Ops", Size: 2}, {ID: 0, Label: "Lead", Size: 2}},
	}

	got := DataAnalysisContext(ds, "Where is CCS work?")
	assert.Contains(t, got, "  - Senior: 2 jobs (50.0%)")
	assert.Contains(t, got, "  - Not Specified: 1 jobs (25.0%)")
	assert.Contains(t, got, "  - Cluster 0 (Lead): 2 jobs\n  - Cluster 1 (Ops): 2 jobs")
	assert.Contains(t, got, "**Jobs related to 'CCS':** 3 postings\n  - Found in clusters: Cluster 1, Cluster 0")
	assert.NotContains(t, got, "Most Common Keywords")
}
