package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"doris-rag/internal/chunker"
	"doris-rag/internal/domain"
)

const collectionName = "document_embeddings"

var errNoEmbedding = errors.New("chromem store requires precomputed embeddings")

// Storage is an embedded vector store backed by chromem-go and persisted to a
// gzip-compressed gob file on Close. Similarity is cosine.
type Storage struct {
	path       string
	dimension  int
	db         *chromem.DB
	collection *chromem.Collection
}

// NewStorage creates a store persisted at path. An empty path keeps it in memory only.
func NewStorage(path string, dimension int) *Storage {
	return &Storage{path: path, dimension: dimension, db: chromem.NewDB()}
}

// refuse is installed as the collection's embedding function so chromem never
// calls out to a provider on its own.
func refuse(context.Context, string) ([]float32, error) { return nil, errNoEmbedding }

// Init loads the persisted file when present and opens the collection.
func (s *Storage) Init(context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.dimension)
	}
	if s.path != "" {
		if _, err := os.Stat(s.path); err == nil {
			if err := s.db.ImportFromFile(s.path, ""); err != nil {
				return fmt.Errorf("import from file: %w", err)
			}
		}
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, refuse)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.collection = col
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d, store expects %d", domain.ErrDimensionMismatch, c.Key, len(c.Embedding), s.dimension)
		}
		loc, err := json.Marshal(c.Location.Value())
		if err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:        c.Key,
			Content:   c.Text,
			Embedding: append([]float32(nil), c.Embedding...),
			Metadata: map[string]string{
				"filename":    c.Filename,
				"sequence_id": strconv.Itoa(c.SequenceID),
				"location":    string(loc),
			},
		}
	}
	return s.collection.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.RetrievalRecord, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}
	count := s.collection.Count()
	if count == 0 {
		return []domain.RetrievalRecord{}, nil
	}
	if k > count {
		k = count
	}
	var where map[string]string
	if filter != nil && filter.Filename != "" {
		where = map[string]string{"filename": filter.Filename}
	}
	results, err := s.collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	out := make([]domain.RetrievalRecord, 0, len(results))
	for _, r := range results {
		out = append(out, domain.RetrievalRecord{
			ChunkID:  r.ID,
			Score:    float64(r.Similarity),
			Text:     r.Content,
			Filename: r.Metadata["filename"],
			Location: domain.ParseLocation(r.Metadata["location"]),
		})
	}
	return out, nil
}

func (s *Storage) DeleteByFilename(ctx context.Context, filename string) error {
	return s.collection.Delete(ctx, map[string]string{"filename": filename}, nil)
}

// DeleteStale walks the document's keys upward from keep. chromem filters metadata
// by equality only, and a document's chunks are always numbered without gaps.
func (s *Storage) DeleteStale(ctx context.Context, filename string, keep int) error {
	var ids []string
	for seq := keep; ; seq++ {
		id := chunker.Key(filename, seq)
		if _, err := s.collection.GetByID(ctx, id); err != nil {
			break
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	return s.collection.Delete(ctx, nil, nil, ids...)
}

// Count returns the number of stored records.
func (s *Storage) Count() int { return s.collection.Count() }

// Close persists the database when a path is configured.
func (s *Storage) Close() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return s.db.ExportToFile(s.path, true, "")
}
