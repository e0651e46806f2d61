package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/answer"
)

type stubService struct{ updates chan answer.Update }

func (s stubService) Ask(ctx context.Context, question string) (<-chan answer.Update, error) {
	return s.updates, nil
}

func TestStreamUpdatesAccumulate(t *testing.T) {
	ch := make(chan answer.Update, 4)
	m := New(stubService{updates: ch})

	next, _ := m.startAsk("what grew?")
	m = next.(Model)
	next, _ = m.Update(startedMsg{updates: ch})
	m = next.(Model)
	require.Equal(t, "Generating...", m.status)

	next, cmd := m.Update(updateMsg{updates: ch, update: answer.Update{Text: "Revenue"}})
	m = next.(Model)
	assert.Equal(t, "Revenue", m.answer)
	assert.NotNil(t, cmd)

	next, _ = m.Update(updateMsg{updates: ch, update: answer.Update{Text: "Revenue grew.", Done: true}})
	m = next.(Model)
	assert.Equal(t, "Revenue grew.", m.answer)
	assert.Equal(t, "Done.", m.status)

	next, _ = m.Update(streamClosedMsg{updates: ch})
	m = next.(Model)
	assert.Nil(t, m.updates)
}

func TestEscCancelDropsBufferedUpdates(t *testing.T) {
	ch := make(chan answer.Update, 1)
	m := New(stubService{updates: ch})

	next, _ := m.startAsk("what grew?")
	m = next.(Model)
	next, _ = m.Update(startedMsg{updates: ch})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	require.Equal(t, "Canceled.", m.status)

	// An update still buffered at cancel time must not resurface.
	next, _ = m.Update(updateMsg{updates: ch, update: answer.Update{Text: "leftover partial"}})
	m = next.(Model)
	assert.Equal(t, "Canceled.", m.status)
	assert.Empty(t, m.answer)
}

func TestCanceledTurnCannotClobberNextTurn(t *testing.T) {
	oldCh := make(chan answer.Update)
	newCh := make(chan answer.Update)
	m := New(stubService{updates: newCh})

	next, _ := m.startAsk("first")
	m = next.(Model)
	next, _ = m.Update(startedMsg{updates: oldCh})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)

	next, _ = m.startAsk("second")
	m = next.(Model)
	next, _ = m.Update(startedMsg{updates: newCh})
	m = next.(Model)
	next, _ = m.Update(updateMsg{updates: newCh, update: answer.Update{Text: "fresh"}})
	m = next.(Model)
	require.Equal(t, "fresh", m.answer)

	next, _ = m.Update(updateMsg{updates: oldCh, update: answer.Update{Text: "stale", Done: true}})
	m = next.(Model)
	assert.Equal(t, "fresh", m.answer)
	assert.Equal(t, "Generating...", m.status)

	next, _ = m.Update(streamClosedMsg{updates: oldCh})
	m = next.(Model)
	assert.NotNil(t, m.updates)
}
