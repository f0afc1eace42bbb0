package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doris-rag/internal/domain"
	"doris-rag/internal/i18n"
	"doris-rag/internal/service"
)

type fakeTurner struct {
	histories [][]domain.Turn
	err       error
}

func (f *fakeTurner) Turn(_ context.Context, raw string, history []domain.Turn) (*service.TurnResult, error) {
	f.histories = append(f.histories, history)
	if f.err != nil {
		return nil, f.err
	}
	return &service.TurnResult{
		Answer:    domain.Answer{Answer: "answer to " + raw, Sources: []domain.Source{{Key: "k", Filename: "a.md", Location: []any{0, 10}}}},
		Augmented: domain.AugmentedQuery{RawText: raw, RewrittenText: raw + " doris"},
	}, nil
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_EmptyInputQuits(t *testing.T) {
	m := New(context.Background(), &fakeTurner{}, i18n.For("en"))

	_, cmd := enter(t, m, "   ")

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_TurnAppendsHistory(t *testing.T) {
	svc := &fakeTurner{}
	m := New(context.Background(), svc, i18n.For("en"))

	m, cmd := enter(t, m, "what is doris")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Content: "what is doris"},
		{Role: domain.RoleAssistant, Content: "answer to what is doris"},
	}, m.History())
	require.Len(t, m.log, 2)
	assert.Contains(t, m.log[1], "what is doris doris")
	assert.Contains(t, m.log[1], "a.md @ [0,10]")

	m, cmd = enter(t, m, "and then?")
	m.Update(cmd())
	require.Len(t, svc.histories, 2)
	assert.Empty(t, svc.histories[0])
	assert.Len(t, svc.histories[1], 2)
}

func TestModel_FailedTurnKeepsHistory(t *testing.T) {
	m := New(context.Background(), &fakeTurner{err: errors.New("generate: boom")}, i18n.For("en"))

	m, cmd := enter(t, m, "q")
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Empty(t, m.History())
	assert.Contains(t, m.status, "boom")
}

func TestModel_EnterWhileBusyIgnored(t *testing.T) {
	m := New(context.Background(), &fakeTurner{}, i18n.For("en"))
	m, _ = enter(t, m, "first")

	_, cmd := enter(t, m, "second")

	assert.Nil(t, cmd)
}

func TestFormatSources(t *testing.T) {
	got := FormatSources([]domain.Source{
		{Filename: "a.md", Location: []any{1, 5}},
		{Filename: "b.md"},
	})
	assert.Equal(t, "a.md @ [1,5]; b.md", got)
	assert.Empty(t, FormatSources(nil))
}
