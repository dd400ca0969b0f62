package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// File is the on-disk shape of a corpus file: one document with its
// pre-chunked passages. Chunking itself happens upstream; the loader only
// moves already-chunked corpora into the index.
type File struct {
	Document domain.Document `json:"document"`
	Chunks   []domain.Chunk  `json:"chunks"`
}

// Loader embeds and indexes corpus files.
type Loader struct {
	embedder port.Embedder
	writer   port.IndexWriter
}

// NewLoader creates a corpus loader.
func NewLoader(embedder port.Embedder, writer port.IndexWriter) *Loader {
	return &Loader{embedder: embedder, writer: writer}
}

// Discover returns the corpus files under root matching the glob patterns.
func Discover(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*.json"}
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		for _, pattern := range patterns {
			if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	return files, err
}

// LoadFile parses, embeds, and indexes one corpus file. Returns the number
// of chunks indexed.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}
	if file.Document.ID == "" {
		return 0, fmt.Errorf("corpus file %s has no document id", path)
	}

	for i, chunk := range file.Chunks {
		if chunk.ID == "" {
			return 0, fmt.Errorf("corpus file %s chunk %d has no id", path, i)
		}
		if chunk.DocID == "" {
			file.Chunks[i].DocID = file.Document.ID
		} else if chunk.DocID != file.Document.ID {
			return 0, fmt.Errorf("chunk %s references %s, expected %s", chunk.ID, chunk.DocID, file.Document.ID)
		}
	}

	if err := l.writer.UpsertDocument(ctx, file.Document); err != nil {
		return 0, fmt.Errorf("failed to index document %s: %w", file.Document.ID, err)
	}
	if len(file.Chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(file.Chunks))
	for i, chunk := range file.Chunks {
		texts[i] = chunk.Body
	}
	embeddings, err := l.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks of %s: %w", file.Document.ID, err)
	}

	if err := l.writer.Upsert(ctx, file.Chunks, embeddings); err != nil {
		return 0, fmt.Errorf("failed to index chunks of %s: %w", file.Document.ID, err)
	}
	return len(file.Chunks), nil
}
