package service

import (
	"fmt"
	"strings"

	"doris-rag/internal/domain"
)

// ContextSeparator joins context blocks.
const ContextSeparator = "\n\n---\n\n"

// AssembleContext concatenates records in store order, each tagged with
// "[label: filename]", and returns the matching provenance entries. Locations
// of unexpected shape become nil.
func AssembleContext(records []domain.RetrievalRecord, label string) (string, []domain.Source) {
	blocks := make([]string, 0, len(records))
	sources := make([]domain.Source, 0, len(records))
	for _, r := range records {
		blocks = append(blocks, fmt.Sprintf("[%s: %s]\n%s", label, r.Filename, r.Text))
		sources = append(sources, domain.Source{
			Key:      r.ChunkID,
			Filename: r.Filename,
			Location: domain.NormalizeLocation(r.Location),
		})
	}
	return strings.Join(blocks, ContextSeparator), sources
}

// FormatHistory renders turns as "ROLE: content" lines.
func FormatHistory(history []domain.Turn) string {
	var b strings.Builder
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(roleOf(t)), t.Content)
	}
	return strings.TrimSpace(b.String())
}

// BuildPrompt fills the {history}, {context} and {question} placeholders of
// template in a single pass, so placeholder text inside the values is left alone.
func BuildPrompt(template string, history []domain.Turn, context, question string) string {
	r := strings.NewReplacer(
		"{history}", FormatHistory(history),
		"{context}", strings.TrimSpace(context),
		"{question}", strings.TrimSpace(question),
	)
	return r.Replace(template)
}
