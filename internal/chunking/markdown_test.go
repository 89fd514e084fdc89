package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const safetyReport = `---
title: "Process Safety Outlook"
author: research
---
# Ignored H1

Intro paragraph.

## Incident Trends
Recordable incidents fell.

### Training
Operators need PSM certification.

## Empty Section

## Outlook
More audits.
`

func TestMarkdownChunker_Sections(t *testing.T) {
	c := NewMarkdownChunker(DefaultChunkOptions())
	chunks := c.ChunkText("safety_report.md", safetyReport)

	require.Len(t, chunks, 4)

	assert.Equal(t, ChunkTypePreamble, chunks[0].Type)
	assert.Equal(t, "", chunks[0].Header)
	assert.Equal(t, "# Ignored H1\n\nIntro paragraph.", chunks[0].Content)

	assert.Equal(t, "## Incident Trends", chunks[1].Header)
	assert.Equal(t, "## Incident Trends\nRecordable incidents fell.", chunks[1].Content)
	assert.Equal(t, "### Training", chunks[2].Header)
	assert.Equal(t, "## Outlook", chunks[3].Header)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "safety_report.md", ch.Source)
		assert.Equal(t, "Process Safety Outlook", ch.Title)
		assert.Equal(t, "research", ch.Metadata["author"])
		assert.NotContains(t, ch.Content, "title:")
	}
}

func TestMarkdownChunker_TitleFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		source string
		text   string
		want   string
	}{
		{"frontmatter", "a.md", "---\ntitle: Pay Bands\n---\n## A\nx", "Pay Bands"},
		{"h1", "a.md", "# Energy Transition\n## A\nx", "Energy Transition"},
		{"file name", "market_report.md", "## A\nx", "market_report"},
	}
	c := NewMarkdownChunker(DefaultChunkOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := c.ChunkText(tt.source, tt.text)
			require.NotEmpty(t, chunks)
			assert.Equal(t, tt.want, chunks[0].Title)
		})
	}

	assert.Equal(t, "", Title("no heading here"))
	assert.Equal(t, "Pay Bands", Title("---\ntitle: \"Pay Bands\"\n---\nbody"))
}

func TestMarkdownChunker_Windows(t *testing.T) {
	words := make([]string, 2000)
	for i := range words {
		words[i] = "w"
	}
	c := NewMarkdownChunker(DefaultChunkOptions())
	chunks := c.ChunkText("plain.txt", strings.Join(words, " "))

	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[0].Content), 1500)
	assert.Len(t, strings.Fields(chunks[1].Content), 800)
	for _, ch := range chunks {
		assert.Equal(t, ChunkTypeWindow, ch.Type)
		assert.Equal(t, "", ch.Header)
	}
}

func TestMarkdownChunker_WindowOverlap(t *testing.T) {
	words := make([]string, 10)
	for i := range words {
		words[i] = string(rune('a' + i))
	}
	c := NewMarkdownChunker(ChunkOptions{WindowWords: 4, OverlapWords: 1})
	chunks := c.ChunkText("x.md", strings.Join(words, "\n"))

	got := make([]string, len(chunks))
	for i, ch := range chunks {
		got[i] = ch.Content
	}
	assert.Equal(t, []string{"a b c d", "d e f g", "g h i j"}, got)
}

func TestMarkdownChunker_OversizedSection(t *testing.T) {
	body := "## Big\n" + strings.Repeat("word ", 20)
	c := NewMarkdownChunker(ChunkOptions{WindowWords: 10, OverlapWords: 0, MaxChunkSize: 50})
	chunks := c.ChunkText("big.md", body)

	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.Equal(t, "## Big", ch.Header)
		assert.Equal(t, ChunkTypeWindow, ch.Type)
	}
}

func TestMarkdownChunker_Empty(t *testing.T) {
	c := NewMarkdownChunker(DefaultChunkOptions())
	assert.Empty(t, c.ChunkText("empty.md", ""))
	assert.Empty(t, c.ChunkText("empty.md", "---\ntitle: x\n---\n   \n"))
}

func TestChunk_DisplaySource(t *testing.T) {
	ch := Chunk{Source: "safety_report.md", Header: "## Incident Trends"}
	assert.Equal(t, "Incident Trends (safety report)", ch.DisplaySource())

	ch = Chunk{Source: "market_report.md", Title: "Market"}
	assert.Equal(t, "Market (market report)", ch.DisplaySource())

	ch = Chunk{Source: "x.md"}
	assert.Equal(t, "General (x)", ch.DisplaySource())
	assert.Equal(t, "x.md#0", ch.Identifier())
}
