package search

import (
	"strings"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	// RecordMatchTarget stops the column scan once this many matches exist.
	RecordMatchTarget = 5
	// RecordContextJobs is the number of postings rendered into chat context.
	RecordContextJobs = 3
	recordSummaryLen  = 150
)

// recordColumns lists the searched text columns in scan order.
var recordColumns = []func(*models.Job) string{
	func(j *models.Job) string { return j.Title },
	func(j *models.Job) string { return j.Responsibilities },
	func(j *models.Job) string { return j.Qualifications },
	func(j *models.Job) string { return j.Summary },
}

// SearchRecords finds jobs whose text contains query, case-insensitively.
// Columns are scanned in order and every match in a column is collected;
// the scan stops after the first column that brings the total to
// RecordMatchTarget. Results are de-duplicated by title, first seen wins,
// and jobs without a title are skipped.
func SearchRecords(jobs []models.Job, query string) []models.Job {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(jobs) == 0 {
		return nil
	}

	var matches []*models.Job
	for _, column := range recordColumns {
		for i := range jobs {
			if strings.Contains(strings.ToLower(column(&jobs[i])), q) {
				matches = append(matches, &jobs[i])
			}
		}
		if len(matches) >= RecordMatchTarget {
			break
		}
	}

	seen := make(map[string]bool)
	var out []models.Job
	for _, j := range matches {
		if j.Title == "" || seen[j.Title] {
			continue
		}
		seen[j.Title] = true
		out = append(out, *j)
	}
	return out
}

// FormatRecordContext renders up to RecordContextJobs postings as a markdown
// block for the generator. It returns "" for no jobs.
func FormatRecordContext(jobs []models.Job) string {
	if len(jobs) == 0 {
		return ""
	}
	parts := []string{"\n### Relevant Job Postings:"}
	for i := range jobs {
		if i == RecordContextJobs {
			break
		}
		j := &jobs[i]
		title := j.Title
		if title == "" {
			title = "Unknown Title"
		}
		line := "\n**" + title
		if j.Level != "" {
			line += " (" + j.Level + ")"
		}
		parts = append(parts, line+"**")
		if j.Summary != "" {
			parts = append(parts, models.Truncate(j.Summary, recordSummaryLen)+"...")
		}
	}
	return strings.Join(parts, "\n")
}
