package chunking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)---[ \t]*\r?\n`)
	sectionPattern     = regexp.MustCompile(`(?m)^#{2,3}[ \t]+.+$`)
	titlePattern       = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)
)

// MarkdownChunker splits markdown reports at h2/h3 headers.
type MarkdownChunker struct {
	options ChunkOptions
}

// NewMarkdownChunker creates a markdown chunker.
func NewMarkdownChunker(options ChunkOptions) *MarkdownChunker {
	if options.WindowWords <= 0 {
		options.WindowWords = DefaultChunkOptions().WindowWords
	}
	return &MarkdownChunker{options: options}
}

// Format implements Chunker.
func (c *MarkdownChunker) Format() Format {
	return FormatMarkdown
}

// SupportedExtensions implements Chunker.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".txt"}
}

// Chunk implements Chunker.
func (c *MarkdownChunker) Chunk(ctx context.Context, filePath string) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return c.ChunkText(filepath.Base(filePath), string(data)), nil
}

// ChunkText implements Chunker.
func (c *MarkdownChunker) ChunkText(source, text string) []Chunk {
	meta, body := splitFrontmatter(text)
	title := meta["title"]
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = strings.TrimSuffix(source, filepath.Ext(source))
	}

	var chunks []Chunk
	add := func(header, content string, typ ChunkType) {
		chunks = append(chunks, Chunk{
			Metadata: meta,
			Source:   source,
			Title:    title,
			Header:   header,
			Content:  content,
			Type:     typ,
			Index:    len(chunks),
		})
	}

	headers := sectionPattern.FindAllStringIndex(body, -1)
	if len(headers) == 0 {
		for _, w := range windows(body, c.options) {
			add("", w, ChunkTypeWindow)
		}
		return chunks
	}

	if pre := body[:headers[0][0]]; strings.TrimSpace(pre) != "" {
		add("", strings.TrimSpace(pre), ChunkTypePreamble)
	}
	for i, loc := range headers {
		end := len(body)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		header := strings.TrimSpace(body[loc[0]:loc[1]])
		content := strings.TrimSpace(body[loc[1]:end])
		if content == "" {
			continue
		}
		full := header + "\n" + content
		if c.options.MaxChunkSize > 0 && len(full) > c.options.MaxChunkSize {
			for _, w := range windows(full, c.options) {
				add(header, w, ChunkTypeWindow)
			}
			continue
		}
		add(header, full, ChunkTypeSection)
	}
	return chunks
}

// Title extracts a report title from frontmatter or the first h1.
// Returns "" when neither is present.
func Title(text string) string {
	meta, body := splitFrontmatter(text)
	if t := meta["title"]; t != "" {
		return t
	}
	return firstHeading(body)
}

func splitFrontmatter(text string) (map[string]string, string) {
	loc := frontmatterPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return map[string]string{}, text
	}
	meta := make(map[string]string)
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(text[loc[2]:loc[3]]), &raw); err != nil {
		log.Debug().Err(err).Msg("Ignoring malformed report frontmatter")
	}
	for k, v := range raw {
		if v != nil {
			meta[strings.ToLower(k)] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return meta, text[loc[1]:]
}

func firstHeading(body string) string {
	m := titlePattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// windows cuts text into overlapping word windows.
func windows(text string, o ChunkOptions) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var out []string
	for i := 0; i < len(words); i += o.step() {
		end := min(i+o.WindowWords, len(words))
		out = append(out, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}
