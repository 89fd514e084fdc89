package chunking

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// mockChunker is a test chunker that returns one chunk per file
type mockChunker struct{}

func (m *mockChunker) Chunk(ctx context.Context, filePath string) ([]Chunk, error) {
	return []Chunk{
		{
			Source:  filepath.Base(filePath),
			Type:    ChunkTypeSection,
			Header:  "## Test",
			Content: "test",
		},
	}, nil
}

func (m *mockChunker) ChunkText(source, text string) []Chunk {
	return nil
}

func (m *mockChunker) Format() Format {
	return FormatMarkdown
}

func (m *mockChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

func TestManager_ChunkMultipleFiles(t *testing.T) {
	tmpDir := t.TempDir()

	mdFile := filepath.Join(tmpDir, "safety_report.md")
	if err := os.WriteFile(mdFile, []byte("## Safety\nBody"), 0600); err != nil {
		t.Fatalf("Failed to create markdown file: %v", err)
	}
	longFile := filepath.Join(tmpDir, "pay.markdown")
	if err := os.WriteFile(longFile, []byte("## Pay\nBody"), 0600); err != nil {
		t.Fatalf("Failed to create markdown file: %v", err)
	}

	manager := NewManager([]Chunker{&mockChunker{}}, DefaultChunkOptions())

	if !manager.SupportsFile(mdFile) {
		t.Error("Manager should support .md files")
	}
	if !manager.SupportsFile(longFile) {
		t.Error("Manager should support .markdown files")
	}
	if !manager.SupportsFile(filepath.Join(tmpDir, "UPPER.MD")) {
		t.Error("Extension matching should be case-insensitive")
	}
	if manager.SupportsFile(filepath.Join(tmpDir, "data.csv")) {
		t.Error("Manager should not support .csv files")
	}

	results, errs := manager.ChunkFiles(context.Background(), []string{mdFile, longFile})
	if len(errs) > 0 {
		t.Errorf("ChunkFiles returned errors: %v", errs)
	}
	if len(results) != 2 {
		t.Errorf("Expected results for 2 files, got %d", len(results))
	}

	_, errs = manager.ChunkFiles(context.Background(), []string{filepath.Join(tmpDir, "data.csv")})
	if len(errs) != 1 {
		t.Errorf("Expected 1 error for unsupported file, got %d", len(errs))
	}
}

// mockChunkerWithExts is a test chunker with configurable extensions
type mockChunkerWithExts struct {
	exts []string
}

func (m *mockChunkerWithExts) Chunk(ctx context.Context, filePath string) ([]Chunk, error) {
	return nil, nil
}

func (m *mockChunkerWithExts) ChunkText(source, text string) []Chunk {
	return nil
}

func (m *mockChunkerWithExts) Format() Format {
	return FormatMarkdown
}

func (m *mockChunkerWithExts) SupportedExtensions() []string {
	return m.exts
}

func TestManager_SupportedExtensions(t *testing.T) {
	manager := NewManager([]Chunker{
		&mockChunkerWithExts{exts: []string{".md"}},
		&mockChunkerWithExts{exts: []string{".txt", ".markdown"}},
	}, DefaultChunkOptions())

	exts := manager.SupportedExtensions()
	expected := []string{".markdown", ".md", ".txt"}
	if len(exts) != len(expected) {
		t.Fatalf("Expected %d extensions, got %v", len(expected), exts)
	}
	for i := range expected {
		if exts[i] != expected[i] {
			t.Errorf("Extension %d: expected %s, got %s", i, expected[i], exts[i])
		}
	}
}

func TestManager_ChunkDir(t *testing.T) {
	tmpDir := t.TempDir()
	files := map[string]string{
		"b_report.md": "## One\nfirst\n## Two\nsecond",
		"a_report.md": "# Title\n## Only\nbody",
		"notes.csv":   "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(body), 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "sub.md"), 0700); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	manager := NewDefaultManager(DefaultChunkOptions())
	chunks, err := manager.ChunkDir(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("ChunkDir failed: %v", err)
	}
	// a_report.md yields its h1 preamble plus one section.
	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(chunks))
	}
	if chunks[0].Source != "a_report.md" {
		t.Errorf("Expected files in name order, got %s first", chunks[0].Source)
	}
	if chunks[2].Source != "b_report.md" || chunks[2].Index != 0 || chunks[3].Index != 1 {
		t.Errorf("Unexpected sequence for b_report.md: %+v", chunks[2:])
	}
}

func TestManager_ChunkDirMissing(t *testing.T) {
	manager := NewDefaultManager(DefaultChunkOptions())
	chunks, err := manager.ChunkDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Missing dir should not be an error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks, got %d", len(chunks))
	}
}

func TestManager_MinWordsReindexes(t *testing.T) {
	opts := DefaultChunkOptions()
	opts.MinWords = 5
	manager := NewDefaultManager(opts)

	path := filepath.Join(t.TempDir(), "r.md")
	body := "## Short\nx\n## Long\nthree words here"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("Failed to write report: %v", err)
	}
	chunks, err := manager.ChunkFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ChunkFile failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Header != "## Long" || chunks[0].Index != 0 {
		t.Errorf("Unexpected chunk: %+v", chunks[0])
	}
}
