package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

func titles(jobs []models.Job) []string {
	out := make([]string, len(jobs))
	for i := range jobs {
		out[i] = jobs[i].Title
	}
	return out
}

func TestSearchRecords_ColumnOrderAndDedupe(t *testing.T) {
	jobs := []models.Job{
		{ID: 0, Title: "Process Engineer", Summary: "Design chemical processes"},
		{ID: 1, Title: "Senior Process Engineer", Responsibilities: "Own process safety"},
		{ID: 2, Title: "Accountant", Summary: "Process invoices"},
		{ID: 3, Title: "Process Engineer", Summary: "Second posting"},
		{ID: 4, Title: "", Summary: "process without a title"},
	}

	got := SearchRecords(jobs, "PROCESS")
	assert.Equal(t, []string{"Process Engineer", "Senior Process Engineer", "Accountant"}, titles(got))
	assert.Equal(t, 0, got[0].ID)
}

func TestSearchRecords_StopsAfterEnoughMatches(t *testing.T) {
	var jobs []models.Job
	for i := 0; i < 5; i++ {
		jobs = append(jobs, models.Job{ID: i, Title: "Engineer " + string(rune('A'+i))})
	}
	jobs = append(jobs, models.Job{ID: 5, Title: "Clerk", Summary: "engineer support"})

	got := SearchRecords(jobs, "engineer")
	assert.Len(t, got, 5)
	assert.NotContains(t, titles(got), "Clerk")
}

func TestSearchRecords_NoMatch(t *testing.T) {
	jobs := []models.Job{{Title: "Buyer"}}
	assert.Empty(t, SearchRecords(jobs, "pilot"))
	assert.Empty(t, SearchRecords(jobs, "  "))
	assert.Empty(t, SearchRecords(nil, "buyer"))
}

func TestFormatRecordContext(t *testing.T) {
	long := strings.Repeat("a", 200)
	jobs := []models.Job{
		{Title: "Process Engineer", Level: "Senior", Summary: long},
		{Title: "Buyer"},
		{Title: "Clerk"},
		{Title: "Fourth"},
	}

	want := "\n### Relevant Job Postings:\n\n**Process Engineer (Senior)**\n" +
		strings.Repeat("a", 150) + "...\n\n**Buyer**\n\n**Clerk**"
	assert.Equal(t, want, FormatRecordContext(jobs))
	assert.Equal(t, "", FormatRecordContext(nil))
}

func TestBM25_Search(t *testing.T) {
	idx := NewBM25([]string{
		"process engineer designing process units",
		"senior accountant closing the books",
		"process safety coordinator",
		"",
	})
	require.Equal(t, 4, idx.Len())

	hits := idx.Search("process", 0)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].ID)
	assert.Equal(t, 2, hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	assert.Len(t, idx.Search("process", 1), 1)
	assert.Empty(t, idx.Search("the of", 0))
	assert.Empty(t, NewBM25(nil).Search("process", 0))
}
