package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"doris-rag/internal/chunker"
	"doris-rag/internal/embedding"
	"doris-rag/internal/ingest"
	"doris-rag/internal/manifest"
	"doris-rag/internal/progress"
	"doris-rag/internal/vectorstore"
)

var (
	indexFull    bool
	indexRoot    string
	indexNoState bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the documentation tree into the vector store",
	Long: `Walks docs.doc_root, cleans and chunks every matching Markdown file,
embeds the chunks and writes them to the vector store. Unchanged files are
skipped using the manifest; files that disappeared are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		docs := a.cfg.Docs
		root := docs.DocRoot
		if indexRoot != "" {
			root = indexRoot
		}

		ch, err := chunker.New(docs.ChunkSize, docs.ChunkOverlap)
		if err != nil {
			return err
		}
		emb, err := embedding.NewPipelineFromConfig(a.cfg.Embedding, a.cfg.App.RequestTimeout)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		store, err := vectorstore.New(ctx, a.cfg, a.logger)
		if err != nil {
			return fmt.Errorf("opening vector store: %w", err)
		}
		defer store.Close()

		var mf *manifest.Manifest
		if !indexNoState && docs.ManifestPath != "" {
			mf, err = manifest.Open(docs.ManifestPath)
			if err != nil {
				return fmt.Errorf("opening manifest: %w", err)
			}
			defer mf.Close()
		}

		p := &ingest.Pipeline{
			Source:   ingest.SourceOptions(docs, root),
			Chunker:  ch,
			Embedder: emb,
			Store:    store,
			Manifest: mf,
			StoreID:  vectorstore.Identity(a.cfg),
			Workers:  docs.Workers,
			Timeout:  a.cfg.App.RequestTimeout,
			Logger:   a.logger,
			Metrics:  a.metrics,
			Progress: progress.NewReporter(),
		}
		a.logger.Info("indexing", zap.String("root", root), zap.String("embedder", emb.Name()), zap.Bool("full", indexFull))

		report, err := p.Run(ctx, ingest.Options{Full: indexFull})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d documents: %d indexed, %d unchanged, %d empty, %d removed; %d chunks in %s\n",
			report.Documents, report.Indexed, report.Unchanged, report.Empty, report.Removed, report.Chunks, report.Duration.Round(1e6))
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "re-index every document regardless of the manifest")
	indexCmd.Flags().StringVar(&indexRoot, "root", "", "documentation root; overrides docs.doc_root")
	indexCmd.Flags().BoolVar(&indexNoState, "no-manifest", false, "do not read or write the manifest")
}
