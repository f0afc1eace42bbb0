// Package tui is the interactive terminal chat.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"doris-rag/internal/domain"
	"doris-rag/internal/i18n"
	"doris-rag/internal/service"
)

// Turner is the TUI-facing subset of the RAG service.
type Turner interface {
	Turn(ctx context.Context, raw string, history []domain.Turn) (*service.TurnResult, error)
}

// answerMsg carries a finished turn back into the update loop.
type answerMsg struct {
	query  string
	result *service.TurnResult
	err    error
}

// Model is the Bubble Tea model for the chat session. The conversation
// history lives here and is appended only after a turn succeeds.
type Model struct {
	ctx      context.Context
	svc      Turner
	catalog  *i18n.Catalog
	input    textinput.Model
	viewport viewport.Model
	history  []domain.Turn
	log      []string
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model bound to ctx.
func New(ctx context.Context, svc Turner, catalog *i18n.Catalog) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = catalog.Get(i18n.UIPlaceholder)
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		svc:      svc,
		catalog:  catalog,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   catalog.Get(i18n.CLIInputPrompt),
	}
}

// History returns the turns accumulated so far.
func (m Model) History() []domain.Turn { return m.history }

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, resize and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorStyle.Render(msg.err.Error())
			m.refresh()
			return m, nil
		}
		m.history = append(m.history,
			domain.Turn{Role: domain.RoleUser, Content: msg.query},
			domain.Turn{Role: domain.RoleAssistant, Content: msg.result.Answer.Answer})
		m.log = append(m.log, m.renderTurn(msg.result))
		m.status = m.catalog.Get(i18n.CLIInputPrompt)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.busy = true
			m.status = m.catalog.Get(i18n.UIThinking)
			m.log = append(m.log, userStyle.Render("> "+q))
			m.refresh()
			return m, m.ask(q)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the turn off the update loop.
func (m Model) ask(q string) tea.Cmd {
	history := append([]domain.Turn(nil), m.history...)
	return func() tea.Msg {
		res, err := m.svc.Turn(m.ctx, q, history)
		return answerMsg{query: q, result: res, err: err}
	}
}

// View renders header, transcript, input and status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Doris RAG")
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.log, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) renderTurn(res *service.TurnResult) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(m.catalog.Format(i18n.CLIAugmentedQuery, res.Augmented.RewrittenText)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(m.catalog.Get(i18n.CLIAnswerLabel)))
	b.WriteString("\n")
	b.WriteString(res.Answer.Answer)
	if refs := FormatSources(res.Answer.Sources); refs != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.catalog.Get(i18n.UISourceRef) + refs))
	}
	return b.String()
}

// FormatSources renders sources as "filename @ location" joined by "; ".
func FormatSources(sources []domain.Source) string {
	refs := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Location == nil {
			refs = append(refs, s.Filename)
			continue
		}
		loc, err := json.Marshal(s.Location)
		if err != nil {
			refs = append(refs, s.Filename)
			continue
		}
		refs = append(refs, fmt.Sprintf("%s @ %s", s.Filename, loc))
	}
	return strings.Join(refs, "; ")
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
