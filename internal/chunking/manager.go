package chunking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Manager dispatches report files to the appropriate format chunker.
type Manager struct {
	chunkers map[string]Chunker // extension -> chunker
	options  ChunkOptions
}

// NewManager creates a new chunking manager with the given chunkers.
func NewManager(chunkers []Chunker, options ChunkOptions) *Manager {
	m := &Manager{
		chunkers: make(map[string]Chunker),
		options:  options,
	}

	// Register chunkers by their supported extensions
	for _, chunker := range chunkers {
		for _, ext := range chunker.SupportedExtensions() {
			m.chunkers[ext] = chunker
		}
	}

	return m
}

// NewDefaultManager returns a manager with the markdown chunker registered.
func NewDefaultManager(options ChunkOptions) *Manager {
	return NewManager([]Chunker{NewMarkdownChunker(options)}, options)
}

// ChunkFile chunks a single file using the chunker for its extension.
// Returns an error if no chunker is found for the file extension.
func (m *Manager) ChunkFile(ctx context.Context, filePath string) ([]Chunk, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	chunker, ok := m.chunkers[ext]
	if !ok {
		return nil, fmt.Errorf("no chunker for extension %s", ext)
	}

	chunks, err := chunker.Chunk(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filePath, err)
	}
	return m.filter(chunks), nil
}

func (m *Manager) filter(chunks []Chunk) []Chunk {
	if m.options.MinWords <= 0 {
		return chunks
	}
	filtered := make([]Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(strings.Fields(chunk.Content)) < m.options.MinWords {
			continue
		}
		filtered = append(filtered, chunk)
	}
	// Keep sequence indexes contiguous after filtering.
	for i := range filtered {
		filtered[i].Index = i
	}
	return filtered
}

// ChunkFiles chunks multiple files.
// Returns a map of file path to chunks, and any errors encountered.
// Errors for individual files do not stop processing of other files.
func (m *Manager) ChunkFiles(ctx context.Context, filePaths []string) (map[string][]Chunk, []error) {
	results := make(map[string][]Chunk)
	var errors []error

	for _, filePath := range filePaths {
		chunks, err := m.ChunkFile(ctx, filePath)
		if err != nil {
			errors = append(errors, fmt.Errorf("%s: %w", filePath, err))
			continue
		}
		if len(chunks) > 0 {
			results[filePath] = chunks
		}
	}

	return results, errors
}

// ChunkDir chunks every supported report in dir, in file name order.
// A missing directory yields no chunks. Unreadable reports are logged and
// skipped.
func (m *Manager) ChunkDir(ctx context.Context, dir string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Warn().Str("dir", dir).Msg("Reports directory not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !m.SupportsFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var all []Chunk
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := m.ChunkFile(ctx, p)
		if err != nil {
			log.Error().Err(err).Str("file", p).Msg("Failed to load report")
			continue
		}
		log.Debug().Str("file", filepath.Base(p)).Int("chunks", len(chunks)).Msg("Loaded report")
		all = append(all, chunks...)
	}
	return all, nil
}

// SupportsFile checks if the manager can chunk the given file based on extension.
func (m *Manager) SupportsFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	_, ok := m.chunkers[ext]
	return ok
}

// SupportedExtensions returns all file extensions supported by registered chunkers.
func (m *Manager) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.chunkers))
	for ext := range m.chunkers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
