// Package service implements one conversation turn: augment, retrieve, assemble, generate.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"doris-rag/internal/domain"
	"doris-rag/internal/i18n"
	"doris-rag/internal/llm"
	"doris-rag/internal/logging"
	"doris-rag/internal/metrics"
)

// QueryEmbedder embeds a retrieval query with the corpus model.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the vector store.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.RetrievalRecord, error)
}

// Options tune the service. Zero values get defaults.
type Options struct {
	TopK          int
	HistoryWindow int           // turns included in the answer prompt; 0 means all
	Timeout       time.Duration // bound on each external call
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// RAGService answers questions against the indexed corpus. It holds no
// per-conversation state and is safe for concurrent use.
type RAGService struct {
	augmenter *Augmenter
	embedder  QueryEmbedder
	store     Searcher
	gen       llm.Generator
	catalog   *i18n.Catalog
	opts      Options
	logger    *zap.Logger
}

// TurnResult is the full outcome of a turn, including the rewritten query.
type TurnResult struct {
	Answer    domain.Answer
	Augmented domain.AugmentedQuery
	Records   []domain.RetrievalRecord
}

// NewRAGService builds the service. Zero TopK and Timeout get defaults.
func NewRAGService(gen llm.Generator, embedder QueryEmbedder, store Searcher, catalog *i18n.Catalog, opts Options) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &RAGService{
		augmenter: NewAugmenter(gen, catalog),
		embedder:  embedder,
		store:     store,
		gen:       gen,
		catalog:   catalog,
		opts:      opts,
		logger:    logging.OrNop(opts.Logger).Named("rag"),
	}
}

// HandleTurn answers raw given the prior turns. history is read, never modified;
// the caller appends the new user and assistant turns.
func (s *RAGService) HandleTurn(ctx context.Context, raw string, history []domain.Turn) (*domain.Answer, error) {
	res, err := s.Turn(ctx, raw, history)
	if err != nil {
		return nil, err
	}
	return &res.Answer, nil
}

// Turn is HandleTurn returning the intermediate results as well.
func (s *RAGService) Turn(ctx context.Context, raw string, history []domain.Turn) (*TurnResult, error) {
	start := time.Now()
	if domain.IsBlank(raw) {
		s.opts.Metrics.ObserveTurn("empty", time.Since(start))
		return &TurnResult{Answer: *domain.EmptyAnswer()}, nil
	}

	res, err := s.turn(ctx, strings.TrimSpace(raw), history)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Warn("turn failed", zap.Error(err))
	}
	s.opts.Metrics.ObserveTurn(outcome, time.Since(start))
	return res, err
}

func (s *RAGService) turn(ctx context.Context, question string, history []domain.Turn) (*TurnResult, error) {
	var aug domain.AugmentedQuery
	err := s.step(ctx, "augment", func(ctx context.Context) (err error) {
		aug, err = s.augmenter.Augment(ctx, question, history)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("augment query: %w", err)
	}
	s.logger.Info(s.catalog.Format(i18n.ServiceOriginalAugmented, question, aug.RewrittenText))

	var vec []float32
	err = s.step(ctx, "embed", func(ctx context.Context) (err error) {
		vec, err = s.embedder.EmbedQuery(ctx, aug.RewrittenText)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var records []domain.RetrievalRecord
	err = s.step(ctx, "search", func(ctx context.Context) (err error) {
		records, err = s.store.Search(ctx, vec, s.opts.TopK, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(records) > s.opts.TopK {
		records = records[:s.opts.TopK]
	}

	contextText, sources := AssembleContext(records, s.catalog.Get(i18n.SourceLabel))
	prompt := BuildPrompt(
		s.catalog.Get(i18n.ChatPromptTemplate),
		domain.Window(history, s.opts.HistoryWindow),
		contextText,
		question,
	)

	var answer string
	err = s.step(ctx, "generate", func(ctx context.Context) (err error) {
		answer, err = s.gen.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	s.logger.Debug("turn answered",
		zap.Int("records", len(records)),
		zap.Int("prompt_runes", len([]rune(prompt))))
	return &TurnResult{
		Answer:    domain.Answer{Answer: answer, Sources: sources},
		Augmented: aug,
		Records:   records,
	}, nil
}

// step runs one external call under the per-call timeout and records it.
func (s *RAGService) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	s.opts.Metrics.ObserveStep(name, time.Since(start), err)
	return err
}
