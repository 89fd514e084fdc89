// Package dataset reads the job table into raw records.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

// SampleSeed fixes which rows survive the MaxJobs cap.
const SampleSeed = 42

// ErrEmptyTable is returned for a file without a header row.
var ErrEmptyTable = errors.New("job table has no header")

// Column names accepted for each record field, in order of preference.
var (
	titleColumns            = []string{"unified job title", "job_title", "title"}
	summaryColumns          = []string{"position_summary", "summary"}
	responsibilitiesColumns = []string{"responsibilities"}
	qualificationsColumns   = []string{"qualifications"}
	levelColumns            = []string{"job level", "level"}
	scopeColumns            = []string{"scope"}
)

// Load reads the CSV job table at path. maxJobs > 0 caps the rows by a
// seeded sample.
func Load(ctx context.Context, path string, maxJobs int) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open job table: %w", err)
	}
	defer f.Close()

	records, err := Read(ctx, f, maxJobs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("records", len(records)).Msg("Job table loaded")
	return records, nil
}

// Read parses a CSV job table. Header lookup is case-insensitive; missing
// columns and short rows yield empty fields.
func Read(ctx context.Context, r io.Reader, maxJobs int) ([]models.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumns(header)
	if cols.title < 0 {
		log.Warn().Strs("header", header).Msg("Job table has no title column")
	}

	var records []models.RawRecord
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping unreadable row")
			continue
		}
		records = append(records, models.RawRecord{
			Title:            field(row, cols.title),
			Summary:          field(row, cols.summary),
			Responsibilities: field(row, cols.responsibilities),
			Qualifications:   field(row, cols.qualifications),
			Level:            field(row, cols.level),
			Scope:            field(row, cols.scope),
		})
	}

	if maxJobs > 0 && len(records) > maxJobs {
		log.Info().Int("rows", len(records)).Int("max_jobs", maxJobs).Msg("Sampling job table")
		records = Sample(records, maxJobs, SampleSeed)
	}
	return records, nil
}

// Sample picks n records with a seeded permutation and keeps them in table
// order.
func Sample(records []models.RawRecord, n int, seed uint64) []models.RawRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	picked := rng.Perm(len(records))[:n]
	sort.Ints(picked)
	out := make([]models.RawRecord, n)
	for i, idx := range picked {
		out[i] = records[idx]
	}
	return out
}

type columns struct {
	title, summary, responsibilities, qualifications, level, scope int
}

func newColumns(header []string) columns {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}
	return columns{
		title:            find(titleColumns),
		summary:          find(summaryColumns),
		responsibilities: find(responsibilitiesColumns),
		qualifications:   find(qualificationsColumns),
		level:            find(levelColumns),
		scope:            find(scopeColumns),
	}
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
