package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/docmind/internal/rag"
)

// Message types
type (
	tokenMsg  string
	stateMsg  struct{ to rag.State }
	answerMsg struct {
		answer *rag.Answer
		err    error
	}
)

// Events carries asynchronous query updates into the program. Pass Observe
// to the rag service so that state hints reach the status line.
type Events struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// NewEvents creates an event channel.
func NewEvents() *Events {
	return &Events{
		ch:   make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
}

// Observe implements rag.Observer.
func (e *Events) Observe(_ string, _, to rag.State) {
	e.send(stateMsg{to: to})
}

// send blocks until the program reads msg or the events are closed.
func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	case <-e.done:
	}
}

// Close releases any sender still blocked.
func (e *Events) Close() {
	e.once.Do(func() { close(e.done) })
}

// listen waits for the next event.
func (e *Events) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.ch:
			return msg
		case <-e.done:
			return nil
		}
	}
}
