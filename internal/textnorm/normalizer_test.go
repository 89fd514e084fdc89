package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

func TestComposite(t *testing.T) {
	got := Composite(models.RawRecord{Title: "Analyst", Summary: "Reviews data"})
	assert.Equal(t, "Title: Analyst. Title: Analyst. Summary: Reviews data. Responsibilities: . Qualifications: .", got)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Process Engineer", expected: "Process Engineer"},
		{name: "date prefix", input: "240115 Process Engineer", expected: "Process Engineer"},
		{name: "year month prefix", input: "2023 5- Buyer", expected: "Buyer"},
		{name: "posting boilerplate", input: "Internal Job Posting - Buyer", expected: "Buyer"},
		{name: "duration", input: "Accountant (12 months)", expected: "Accountant"},
		{name: "temp contract", input: "Temporary Contract HR Advisor", expected: "HR Advisor"},
		{name: "location", input: "Buyer Calgary AB", expected: "Buyer"},
		{name: "multi word location", input: "Operator Medicine Hat", expected: "Operator"},
		{name: "docx residue", input: "Planner.docx", expected: "Planner"},
		{name: "underscores", input: "Plant_Operator_Texas", expected: "Plant Operator"},
		{name: "everything stripped keeps original", input: "Job Posting", expected: "Job Posting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanTitle(tt.input))
		})
	}
}

func TestStripNoise(t *testing.T) {
	got := StripNoise("Based in Calgary, Alberta. See file.docx for details")
	assert.Equal(t, "Based in , . See file for details", got)
}

func TestStripLocations_WordBoundary(t *testing.T) {
	// "lab" must survive even though "ab" is a location token.
	assert.Equal(t, "lab technician", StripLocations("lab technician AB"))
}

func TestNormalize_LengthFloor(t *testing.T) {
	raws := []models.RawRecord{
		{Title: "Clerk"},
		{Title: "Finance Manager", Summary: "Oversees financial operations and reporting for the region."},
		{Title: "  ", Summary: strings.Repeat("x", 47)},
	}
	res := Normalize(raws, DefaultOptions())

	require.Len(t, res.Records, 1)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 1, res.Records[0].Source)
	assert.Equal(t, "Finance Manager", res.Records[0].Raw.Title)
	assert.Contains(t, res.Records[0].EmbedText, "Title: Finance Manager. Title: Finance Manager.")
}

func TestNormalize_ExactlyAtFloorIsDropped(t *testing.T) {
	raw := models.RawRecord{Title: strings.Repeat("a", 44), Summary: "bcd"}
	require.Equal(t, 50, floorLength(raw))
	res := Normalize([]models.RawRecord{raw}, DefaultOptions())
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Dropped)
}

func TestNormalize_FloorCountsSeparatorsOfEmptyFields(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawRecord
		kept bool
	}{
		{"lone 48 char title", models.RawRecord{Title: strings.Repeat("t", 48)}, true},
		{"lone 47 char title", models.RawRecord{Title: strings.Repeat("t", 47)}, false},
		{"lone 48 char qualifications", models.RawRecord{Qualifications: strings.Repeat("q", 48)}, true},
		{"two fields totalling 48", models.RawRecord{Title: strings.Repeat("t", 24), Responsibilities: strings.Repeat("r", 24)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize([]models.RawRecord{tt.raw}, DefaultOptions())
			if tt.kept {
				require.Len(t, res.Records, 1)
				assert.Zero(t, res.Dropped)
				assert.Equal(t, FullText(tt.raw), res.Records[0].FullText)
				return
			}
			assert.Empty(t, res.Records)
			assert.Equal(t, 1, res.Dropped)
		})
	}
}

func TestNormalize_NoiseOnlyAffectsEmbedText(t *testing.T) {
	raw := models.RawRecord{
		Title:   "240115 Buyer Calgary",
		Summary: "Purchases materials for the Calgary plant and vendors.",
	}
	res := Normalize([]models.RawRecord{raw}, DefaultOptions())
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "240115 Buyer Calgary", rec.Raw.Title)
	assert.Contains(t, rec.FullText, "Calgary")
	assert.NotContains(t, rec.EmbedText, "Calgary")
	assert.Contains(t, rec.EmbedText, "Title: Buyer.")
}
