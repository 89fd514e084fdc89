// Package chunking splits research reports into retrievable sections.
// Markdown reports are cut at h2/h3 header boundaries so each chunk keeps the
// heading that gives it context; documents without headers fall back to
// overlapping word windows.
package chunking

import (
	"context"
	"fmt"
	"strings"
)

// ChunkType represents how a chunk boundary was found.
type ChunkType string

const (
	// ChunkTypeSection is a block introduced by an h2 or h3 header.
	ChunkTypeSection ChunkType = "section"
	// ChunkTypePreamble is text that precedes the first header.
	ChunkTypePreamble ChunkType = "preamble"
	// ChunkTypeWindow is a fixed-size word window of a header-less document.
	ChunkTypeWindow ChunkType = "window"
)

// Format represents a report document format.
type Format string

const (
	// FormatMarkdown is a markdown report with optional YAML frontmatter.
	FormatMarkdown Format = "markdown"
)

// Chunk is a contiguous section of one report. Chunks are immutable once the
// index is built.
type Chunk struct {
	Metadata map[string]string
	Source   string
	Title    string
	Header   string
	Content  string
	Type     ChunkType
	Index    int
}

// Identifier returns a stable identifier for this chunk.
// Format: "source#index"
func (c *Chunk) Identifier() string {
	return fmt.Sprintf("%s#%d", c.Source, c.Index)
}

// Heading returns the section header, or the document title for chunks
// without one.
func (c *Chunk) Heading() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Title
}

// DisplaySource renders the chunk origin as "Header (file name)" with markdown
// markers removed. Chunks with neither header nor title are "General".
func (c *Chunk) DisplaySource() string {
	heading := strings.TrimSpace(strings.ReplaceAll(c.Heading(), "#", ""))
	if heading == "" {
		heading = "General"
	}
	name := strings.ReplaceAll(strings.ReplaceAll(c.Source, ".md", ""), "_", " ")
	return fmt.Sprintf("%s (%s)", heading, name)
}

// Chunker is the interface for format-specific report chunkers.
type Chunker interface {
	// Chunk reads a report file and returns its chunks in document order.
	Chunk(ctx context.Context, filePath string) ([]Chunk, error)

	// ChunkText splits already loaded report text. source names the document.
	ChunkText(source, text string) []Chunk

	// Format returns the document format this chunker supports.
	Format() Format

	// SupportedExtensions returns file extensions this chunker handles.
	// Example: []string{".md"} for the markdown chunker
	SupportedExtensions() []string
}

// ChunkOptions provides options for chunking behavior.
type ChunkOptions struct {
	// WindowWords is the word count of a fallback window.
	WindowWords int

	// OverlapWords is the number of words shared by consecutive windows.
	// Must be smaller than WindowWords.
	OverlapWords int

	// MaxChunkSize is the maximum size of a chunk in bytes.
	// Larger chunks are re-split into windows. 0 means no limit.
	MaxChunkSize int

	// MinWords drops chunks with fewer words. 0 means no minimum.
	MinWords int
}

// DefaultChunkOptions returns the report chunking defaults.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		WindowWords:  1500,
		OverlapWords: 300,
		MaxChunkSize: 0,
		MinWords:     0,
	}
}

func (o ChunkOptions) step() int {
	step := o.WindowWords - o.OverlapWords
	if step <= 0 {
		step = o.WindowWords
	}
	if step <= 0 {
		step = 1
	}
	return step
}
