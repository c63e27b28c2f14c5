package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/rag"
)

type fakeAsker struct {
	mu      sync.Mutex
	queries []rag.Query
	tokens  []string
	answer  *rag.Answer
	err     error
}

func (f *fakeAsker) Ask(_ context.Context, q rag.Query, onToken func(string)) (*rag.Answer, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	for _, tok := range f.tokens {
		onToken(tok)
	}
	return f.answer, f.err
}

func plainFile(text string) *document.File {
	return &document.File{Name: "report.txt", Type: document.PlainText, Content: document.Content{Text: text}}
}

func pagedFile() *document.File {
	return &document.File{
		Name: "deck.pdf",
		Type: document.Paginated,
		Content: document.Content{Pages: map[int]string{
			1: "one\ntwo\nthree",
			2: "four",
			3: "five\nsix",
		}},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

// runQuery starts the commands returned by submit and feeds events back
// into the model until the answer arrives.
func runQuery(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c != nil {
			go c()
		}
	}

	deadline := time.After(3 * time.Second)
	for {
		msgs := make(chan tea.Msg, 1)
		go func() { msgs <- m.events.listen()() }()
		select {
		case msg := <-msgs:
			m, _ = update(t, m, msg)
			if _, done := msg.(answerMsg); done {
				return m
			}
		case <-deadline:
			t.Fatal("timeout waiting for answer")
		}
	}
}

func TestNewModel(t *testing.T) {
	m := NewModel(&fakeAsker{}, plainFile("hello world"), nil)
	assert.False(t, m.sourcing)
	assert.False(t, m.busy)
	assert.NotNil(t, m.Init())

	view := m.View()
	assert.Contains(t, view, "report.txt")
	assert.Contains(t, view, "hello world")
	assert.Contains(t, view, "No answer yet.")
}

func TestModel_ToggleSourcing(t *testing.T) {
	m := NewModel(&fakeAsker{}, plainFile("x"), nil)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, m.sourcing)
	assert.Contains(t, m.View(), "sourcing: on")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.False(t, m.sourcing)

	m.busy = true
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.False(t, m.sourcing, "toggle is ignored while a question runs")
}

func TestModel_AskStreamsAnswer(t *testing.T) {
	doc := plainFile("intro\nhello world")
	cited := citation.Locate(citation.FromFile(doc), "hello world")
	asker := &fakeAsker{
		tokens: []string{"Hello", " world"},
		answer: &rag.Answer{Text: "Hello world", Spans: cited.Spans},
	}
	m := NewModel(asker, doc, nil)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = typeText(t, m, "what is said?")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	m = runQuery(t, m, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, "Hello world", m.answer)
	require.Len(t, m.spans, 1)
	assert.Equal(t, span{from: 6, to: 17}, m.spans[0])
	assert.Equal(t, "1 citation(s) located", m.status)
	assert.Contains(t, m.View(), "Hello world")

	require.Len(t, asker.queries, 1)
	assert.Equal(t, "what is said?", asker.queries[0].Question)
	assert.True(t, asker.queries[0].Sourcing)
	assert.Same(t, doc, asker.queries[0].Document)
}

func TestModel_NoContext(t *testing.T) {
	asker := &fakeAsker{answer: &rag.Answer{}, err: rag.ErrNoRelevantContext}
	m := NewModel(asker, plainFile("x"), nil)
	m = typeText(t, m, "anything")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runQuery(t, m, cmd)
	assert.Equal(t, rag.NoInformation, m.answer)
	assert.NoError(t, m.err)
}

func TestModel_AskError(t *testing.T) {
	asker := &fakeAsker{err: errors.New("chat unavailable")}
	m := NewModel(asker, plainFile("x"), nil)
	m = typeText(t, m, "anything")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = runQuery(t, m, cmd)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "error: chat unavailable")
}

func TestModel_BlankAndBusy(t *testing.T) {
	m := NewModel(&fakeAsker{}, plainFile("x"), nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.busy)

	m.busy = true
	m = typeText(t, m, "again")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "a question is already being answered", m.status)
}

func TestModel_StateHint(t *testing.T) {
	m := NewModel(&fakeAsker{}, plainFile("x"), nil)
	m.busy = true

	m, cmd := update(t, m, stateMsg{to: rag.StateGenerating})
	assert.NotNil(t, cmd)
	assert.Equal(t, "generating answer", m.hint)
	assert.Contains(t, m.View(), "generating answer")

	m, _ = update(t, m, stateMsg{to: rag.StateSourcing})
	assert.Equal(t, "sourcing citations", m.hint)
}

func TestModel_PageJump(t *testing.T) {
	m := NewModel(&fakeAsker{}, pagedFile(), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 12})

	m = typeText(t, m, "/page 3")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "page 3 of 3", m.status)
	assert.Equal(t, m.starts[4], m.docView.YOffset)

	m = typeText(t, m, "/page 9")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, rag.ErrPageOutOfRange.Error())

	m = typeText(t, m, "/page x")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "usage: /page N", m.status)
}

func TestModel_ScrollsToFirstCitation(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "filler line"
	}
	lines[30] = "the key finding"
	doc := plainFile(strings.Join(lines, "\n"))
	cited := citation.Locate(citation.FromFile(doc), "the key finding")
	require.Len(t, cited.Spans, 1)

	m := NewModel(&fakeAsker{}, doc, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m.busy = true
	m, _ = update(t, m, answerMsg{answer: &rag.Answer{Text: "ok", Spans: cited.Spans}})

	assert.Equal(t, m.starts[30], m.docView.YOffset)
	assert.Contains(t, m.docView.View(), "the key finding")
}

func TestModel_Quit(t *testing.T) {
	events := NewEvents()
	m := NewModel(&fakeAsker{}, plainFile("x"), events)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())

	// Senders are released once the program is gone.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			events.Observe("q", rag.StateIdle, rag.StateEmbedding)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer blocked after quit")
	}
}
