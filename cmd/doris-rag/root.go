package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"doris-rag/internal/config"
	"doris-rag/internal/embedding"
	"doris-rag/internal/i18n"
	"doris-rag/internal/llm"
	"doris-rag/internal/logging"
	"doris-rag/internal/metrics"
	"doris-rag/internal/service"
	"doris-rag/internal/vectorstore"
)

var (
	cfgFile string
	lang    string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "doris-rag",
	Short: "Retrieval-augmented Q&A over the Apache Doris documentation",
	Long: `doris-rag indexes a Markdown documentation tree into a vector store
(Apache Doris by default) and answers questions about it with an LLM,
from the terminal or over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "interface and prompt language (zh or en); overrides app.language")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(indexCmd, serveCmd, chatCmd, askCmd, configCmd)
}

// app holds the process-wide dependencies built from the config.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	catalog *i18n.Catalog
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if lang != "" {
		cfg.App.Language = lang
	}
	level := cfg.App.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.App.LogPretty)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		catalog: i18n.For(cfg.App.Language),
	}, nil
}

// queryStack is everything a conversation turn needs.
type queryStack struct {
	svc   *service.RAGService
	store vectorstore.Storage
}

func (s *queryStack) Close() error { return s.store.Close() }

func (a *app) buildQueryStack(ctx context.Context) (*queryStack, error) {
	timeout := a.cfg.App.RequestTimeout
	gen, err := llm.New(a.cfg.LLM, timeout)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	emb, err := embedding.NewPipelineFromConfig(a.cfg.Embedding, timeout)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	store, err := vectorstore.New(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	a.logger.Debug("query stack ready",
		zap.String("generator", gen.Name()),
		zap.String("embedder", emb.Name()),
		zap.String("store", string(a.cfg.VectorStore.Type)))

	svc := service.NewRAGService(gen, emb, store, a.catalog, service.Options{
		TopK:          a.cfg.App.TopK,
		HistoryWindow: a.cfg.App.HistoryWindow,
		Timeout:       timeout,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	return &queryStack{svc: svc, store: store}, nil
}
