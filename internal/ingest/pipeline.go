// Package ingest runs the batch job that turns a documentation tree into stored chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"doris-rag/internal/chunker"
	"doris-rag/internal/cleaner"
	"doris-rag/internal/config"
	"doris-rag/internal/domain"
	"doris-rag/internal/logging"
	"doris-rag/internal/manifest"
	"doris-rag/internal/metrics"
	"doris-rag/internal/progress"
	"doris-rag/internal/source"
	"doris-rag/internal/vectorstore"
)

// ChunkEmbedder fills Chunk.Embedding for a document's chunks, in order.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []domain.Chunk) error
}

// Pipeline wires source → cleaner → chunker → embedder → store.
type Pipeline struct {
	Source   source.Options
	Chunker  *chunker.Chunker
	Embedder ChunkEmbedder
	Store    vectorstore.Storage
	Manifest *manifest.Manifest // optional; nil re-indexes everything
	StoreID  string             // identity of Store; manifest entries for another store are re-indexed
	Workers  int
	Timeout  time.Duration // bound on each embed, delete and upsert call
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Progress progress.Reporter
}

// SourceOptions returns the walk options for root using the configured patterns.
func SourceOptions(docs config.DocsConfig, root string) source.Options {
	return source.Options{Root: root, Include: docs.Include, Exclude: docs.Exclude}
}

// Options tune a single run.
type Options struct {
	// Full ignores the manifest and re-indexes every document.
	Full bool
}

// Report summarizes a run.
type Report struct {
	Documents int
	Indexed   int
	Unchanged int
	Empty     int
	Removed   int
	Chunks    int
	Duration  time.Duration
}

type outcome int

const (
	outcomeIndexed outcome = iota
	outcomeUnchanged
	outcomeEmpty
)

// Run indexes every matching document. Documents are processed in parallel; the
// chunks of one document keep their order. The first failure cancels the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	logger := logging.OrNop(p.Logger)
	reporter := p.Progress
	if reporter == nil {
		reporter = progress.Nop{}
	}

	files, err := source.Walk(ctx, p.Source)
	if err != nil {
		return nil, err
	}
	logger.Info("documents discovered", zap.String("root", p.Source.Root), zap.Int("count", len(files)))

	var (
		mu     sync.Mutex
		report = &Report{Documents: len(files)}
	)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.RelPath] = true
	}

	reporter.Start(len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for _, f := range files {
		g.Go(func() error {
			res, n, err := p.indexFile(gctx, f, opts, logger)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", f.RelPath, err)
			}
			mu.Lock()
			switch res {
			case outcomeIndexed:
				report.Indexed++
				report.Chunks += n
				p.Metrics.Document("indexed")
				p.Metrics.Chunks(n)
			case outcomeUnchanged:
				report.Unchanged++
				p.Metrics.Document("unchanged")
			case outcomeEmpty:
				report.Empty++
				p.Metrics.Document("empty")
			}
			mu.Unlock()
			reporter.Advance(f.RelPath)
			return nil
		})
	}
	err = g.Wait()
	reporter.Finish()
	if err != nil {
		return nil, err
	}

	removed, err := p.prune(ctx, seen, logger)
	if err != nil {
		return nil, err
	}
	report.Removed = removed
	report.Duration = time.Since(start)

	logger.Info("ingestion finished",
		zap.Int("documents", report.Documents),
		zap.Int("indexed", report.Indexed),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("empty", report.Empty),
		zap.Int("removed", report.Removed),
		zap.Int("chunks", report.Chunks),
		zap.Duration("took", report.Duration))
	return report, nil
}

func (p *Pipeline) indexFile(ctx context.Context, f source.File, opts Options, logger *zap.Logger) (outcome, int, error) {
	raw, err := source.Read(f)
	if err != nil {
		return 0, 0, err
	}
	hash := source.Hash(raw)

	var (
		prev  manifest.Entry
		known bool
	)
	if p.Manifest != nil {
		prev, known, err = p.Manifest.Get(ctx, f.RelPath)
		if err != nil {
			return 0, 0, err
		}
		if known && !opts.Full && prev.Hash == hash && prev.Store == p.StoreID {
			return outcomeUnchanged, 0, nil
		}
	}
	// Chunks from an earlier run may exist unless the manifest knows the document is new.
	replace := known || opts.Full || p.Manifest == nil

	doc, err := cleaner.Process(raw, source.BaseName(f.RelPath))
	if errors.Is(err, domain.ErrEmptyDocument) {
		logger.Info("skipping empty document", zap.String("path", f.RelPath))
		if known {
			if err := p.forget(ctx, f.RelPath); err != nil {
				return 0, 0, err
			}
		}
		return outcomeEmpty, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	chunks := p.Chunker.Chunk(doc)
	if err := p.call(ctx, func(ctx context.Context) error { return p.Embedder.EmbedChunks(ctx, chunks) }); err != nil {
		return 0, 0, fmt.Errorf("embed: %w", err)
	}
	// Invalidate first so a failed write below is retried by the next run. Keys are
	// stable per position, so the upsert overwrites in place and only the tail of a
	// shrunk document needs deleting.
	if known {
		if err := p.Manifest.Invalidate(ctx, f.RelPath); err != nil {
			return 0, 0, err
		}
	}
	if err := p.call(ctx, func(ctx context.Context) error { return p.Store.Upsert(ctx, chunks) }); err != nil {
		return 0, 0, fmt.Errorf("upsert: %w", err)
	}
	if replace {
		if err := p.call(ctx, func(ctx context.Context) error { return p.Store.DeleteStale(ctx, f.RelPath, len(chunks)) }); err != nil {
			return 0, 0, fmt.Errorf("delete stale chunks: %w", err)
		}
	}
	if p.Manifest != nil {
		if err := p.Manifest.Put(ctx, manifest.Entry{Path: f.RelPath, Hash: hash, Chunks: len(chunks), Store: p.StoreID}); err != nil {
			return 0, 0, err
		}
	}
	logger.Debug("document indexed",
		zap.String("path", f.RelPath),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)))
	return outcomeIndexed, len(chunks), nil
}

// prune removes chunks of documents that were indexed before but no longer exist.
func (p *Pipeline) prune(ctx context.Context, seen map[string]bool, logger *zap.Logger) (int, error) {
	if p.Manifest == nil {
		return 0, nil
	}
	paths, err := p.Manifest.Paths(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range paths {
		if seen[path] {
			continue
		}
		if err := p.forget(ctx, path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		logger.Info("removed deleted document", zap.String("path", path))
		p.Metrics.Document("removed")
		removed++
	}
	return removed, nil
}

func (p *Pipeline) forget(ctx context.Context, path string) error {
	if err := p.call(ctx, func(ctx context.Context) error { return p.Store.DeleteByFilename(ctx, path) }); err != nil {
		return err
	}
	return p.Manifest.Delete(ctx, path)
}

// call bounds fn by the configured timeout.
func (p *Pipeline) call(ctx context.Context, fn func(context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(ctx)
}
