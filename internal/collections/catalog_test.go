package collections

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
collections:
  - name: industry
    description: Industry research
    report_context:
      "": "Industry research from 2024."
      "safety": "Process safety focus."
  - name: pay
    description: Compensation benchmarks
    report_context:
      "compensation": "Benchmarks are in CAD."
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collections.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load("/nonexistent/path/that/does/not/exist.yml")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.All())
	assert.Empty(t, c.Names())
	assert.Equal(t, "", c.Context("safety_report.md"))
}

func TestLoadValidYAML(t *testing.T) {
	c, err := Load(writeCatalog(t, catalogYAML))
	require.NoError(t, err)

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "industry", all[0].Name)
	assert.Equal(t, "pay", all[1].Name)

	col, ok := c.Get("pay")
	require.True(t, ok)
	assert.Equal(t, "Compensation benchmarks", col.Description)

	_, ok = c.Get("nonexistent")
	assert.False(t, ok)
}

func TestLoadInvalidYAML(t *testing.T) {
	c, err := Load(writeCatalog(t, ":\tinvalid:\tyaml:\t[unclosed"))
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestLoadRejectsBadEntries(t *testing.T) {
	_, err := Load(writeCatalog(t, "collections:\n  - description: nameless\n"))
	assert.Error(t, err)

	_, err = Load(writeCatalog(t, "collections:\n  - name: a\n  - name: a\n"))
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	c, err := Load(writeCatalog(t, `
collections:
  - name: zebra
  - name: alpha
  - name: mango
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "mango", "zebra"}, c.Names())

	all := c.All()
	assert.Equal(t, "zebra", all[0].Name)
	assert.Equal(t, "alpha", all[1].Name)
	assert.Equal(t, "mango", all[2].Name)
}

func TestCatalogMembershipAndContext(t *testing.T) {
	c, err := Load(writeCatalog(t, catalogYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"industry"}, c.For("safety_report.md"))
	assert.Equal(t, []string{"industry", "pay"}, c.For("compensation_2024.md"))

	assert.Equal(t, "Industry research from 2024.\n\nProcess safety focus.", c.Context("safety_report.md"))
	assert.Equal(t, "Industry research from 2024.\n\nBenchmarks are in CAD.", c.Context("compensation_2024.md"))
}

func TestResolveContext(t *testing.T) {
	c := &Collection{
		Name: "test",
		ReportContext: map[string]string{
			"":              "all reports",
			"market":        "markets",
			"market_energy": "energy transition",
		},
	}

	tests := []struct {
		name     string
		report   string
		expected string
	}{
		{
			name:     "all three prefixes match",
			report:   "market_energy_2024.md",
			expected: "all reports\n\nmarkets\n\nenergy transition",
		},
		{
			name:     "two prefixes match",
			report:   "market_pay.md",
			expected: "all reports\n\nmarkets",
		},
		{
			name:     "only empty prefix matches",
			report:   "safety.md",
			expected: "all reports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.ResolveContext(tt.report))
		})
	}
}

func TestResolveContextNilCollection(t *testing.T) {
	var c *Collection
	assert.Equal(t, "", c.ResolveContext("safety.md"))
}

func TestResolveContextEmpty(t *testing.T) {
	c := &Collection{Name: "empty", ReportContext: map[string]string{}}
	assert.Equal(t, "", c.ResolveContext("safety.md"))
}
