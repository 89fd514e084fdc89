package labeler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name     string
		titles   []string
		expected string
	}{
		{
			name:     "bigram beats unigram",
			titles:   []string{"Process Engineer", "Process Engineer", "Senior Process Engineer", "Mechanical Engineer"},
			expected: "Process Engineer",
		},
		{
			name:     "unigram when no bigram repeats",
			titles:   []string{"Payroll Specialist", "Payroll Administrator", "HR Advisor"},
			expected: "Payroll",
		},
		{
			name:     "domain stop words ignored",
			titles:   []string{"Methanex Buyer", "Methanex Planner", "Senior Buyer"},
			expected: "Buyer",
		},
		{
			name:     "singleton falls back to title",
			titles:   []string{"chief sustainability officer"},
			expected: "Chief Sustainability Officer",
		},
		{
			name:     "long title truncated",
			titles:   []string{"Director of Global Enterprise Architecture and Integration Services"},
			expected: "Director Of Global Enterprise Architectu",
		},
		{
			name:     "first seen wins ties",
			titles:   []string{"Tax Analyst", "Audit Lead", "Tax Manager", "Audit Manager"},
			expected: "Tax",
		},
		{
			name:     "empty",
			titles:   nil,
			expected: "",
		},
	}
	l := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, l.Label(tt.titles))
		})
	}
}

func TestLabel_Stable(t *testing.T) {
	titles := []string{"Plant Operator", "Control Room Operator", "Plant Operator II", "Field Operator"}
	l := New()
	first := l.Label(titles)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, l.Label(titles))
	}
	assert.Equal(t, "Plant Operator", first)
}

func TestPhrases_DocumentFrequency(t *testing.T) {
	phrases := New().Phrases([]string{"Safety Safety Lead", "Safety Advisor"}, 1)
	assert.Equal(t, "safety", phrases[0].Text)
	assert.Equal(t, 3, phrases[0].Count)
	assert.Equal(t, 2, phrases[0].DocCount)
}

func TestNew_ExtraStopWords(t *testing.T) {
	l := New("Buyer")
	assert.Equal(t, "Procurement", l.Label([]string{"Procurement Buyer", "Procurement Lead"}))
}
