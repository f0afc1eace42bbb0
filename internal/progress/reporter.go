// Package progress reports ingestion progress on the terminal or in CI logs.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives ingestion progress. Implementations are safe for concurrent use.
type Reporter interface {
	Start(total int)
	Advance(message string)
	Finish()
}

// NewReporter returns a TerminalReporter when interactive, a LineReporter when the
// CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LineReporter{w: os.Stderr}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Indexing documents"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func (r *TerminalReporter) Advance(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Add(1)
	}
}

func (r *TerminalReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// LineReporter prints one line per document.
type LineReporter struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
}

// NewLineReporter writes progress lines to w.
func NewLineReporter(w io.Writer) *LineReporter { return &LineReporter{w: w} }

func (r *LineReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	fmt.Fprintf(r.w, "Indexing %d documents\n", total)
}

func (r *LineReporter) Advance(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current++
	fmt.Fprintf(r.w, "[%d/%d] %s\n", r.current, r.total, message)
}

func (r *LineReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, "Indexing complete")
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)      {}
func (Nop) Advance(string) {}
func (Nop) Finish()        {}
