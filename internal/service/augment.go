package service

import (
	"context"
	"fmt"
	"strings"

	"doris-rag/internal/domain"
	"doris-rag/internal/i18n"
	"doris-rag/internal/llm"
)

// AugmentWindow is the number of most recent turns shown to the rewriter.
const AugmentWindow = 5

// Augmenter rewrites a raw question into a self-contained retrieval query.
type Augmenter struct {
	gen     llm.Generator
	catalog *i18n.Catalog
	window  int
}

// NewAugmenter creates an Augmenter that prompts gen in the catalog's language.
func NewAugmenter(gen llm.Generator, catalog *i18n.Catalog) *Augmenter {
	return &Augmenter{gen: gen, catalog: catalog, window: AugmentWindow}
}

// Augment asks the generator for a rewrite. With history the last AugmentWindow
// turns are supplied so references can be resolved. The output is only trimmed;
// a failed call or blank output fails the turn.
func (a *Augmenter) Augment(ctx context.Context, raw string, history []domain.Turn) (domain.AugmentedQuery, error) {
	out, err := a.gen.Generate(ctx, a.Prompt(raw, history))
	if err != nil {
		return domain.AugmentedQuery{}, err
	}
	rewritten := strings.TrimSpace(out)
	if rewritten == "" {
		return domain.AugmentedQuery{}, domain.ErrEmptyAugmentation
	}
	return domain.AugmentedQuery{RawText: raw, RewrittenText: rewritten}, nil
}

// Prompt returns the rewrite instruction for raw and history.
func (a *Augmenter) Prompt(raw string, history []domain.Turn) string {
	if len(history) == 0 {
		return a.catalog.Format(i18n.AugmentPromptNoHistory, raw)
	}
	var b strings.Builder
	for _, t := range domain.Window(history, a.window) {
		fmt.Fprintf(&b, "%s: %s\n", roleOf(t), t.Content)
	}
	return a.catalog.Format(i18n.AugmentPromptHistory, b.String(), raw)
}

func roleOf(t domain.Turn) string {
	if t.Role == "" {
		return string(domain.RoleUser)
	}
	return string(t.Role)
}
