// Package tui is the terminal chat front end: a document pane with
// highlighted citations, a streaming answer pane and a question input.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/rag"
)

const (
	defaultWidth  = 100
	defaultHeight = 32

	// header, hint, input and footer lines plus two pane borders.
	chromeHeight = 4 + 2*2

	pageCommand = "/page"
)

// Asker runs one query. rag.Service implements it.
type Asker interface {
	Ask(ctx context.Context, q rag.Query, onToken func(string)) (*rag.Answer, error)
}

type keyMap struct {
	Quit     key.Binding
	Send     key.Binding
	Sourcing key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
	Sourcing: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sourcing")),
	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
}

// Model is the Bubble Tea chat model.
type Model struct {
	asker  Asker
	events *Events

	file *document.File
	doc  *citation.Document
	text string
	// pages holds the first source line of each page; starts maps source
	// lines to wrapped rows of the document pane.
	pages  []int
	starts []int

	docView    viewport.Model
	answerView viewport.Model
	input      textinput.Model
	spinner    spinner.Model

	sourcing bool
	busy     bool
	hint     string
	answer   string
	spans    []span
	status   string
	err      error
	cancel   context.CancelFunc

	width, height int
	quitting      bool
}

// NewModel creates a chat model over file. events must be the same Events
// whose Observe method was given to the rag service, or nil.
func NewModel(asker Asker, file *document.File, events *Events) Model {
	if events == nil {
		events = NewEvents()
	}

	in := textinput.New()
	in.Placeholder = "Ask about the document, or /page N"
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(hintStyle))

	doc := citation.FromFile(file)
	m := Model{
		asker:   asker,
		events:  events,
		file:    file,
		doc:     doc,
		text:    doc.Render(),
		pages:   pageStarts(file),
		input:   in,
		spinner: sp,
	}
	m.layout(defaultWidth, defaultHeight)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.events.listen())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			m.events.Close()
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Sourcing):
			if !m.busy {
				m.sourcing = !m.sourcing
			}
			return m, nil
		case key.Matches(msg, keys.Send):
			return m.submit()
		case key.Matches(msg, keys.PageUp), key.Matches(msg, keys.PageDown):
			var cmd tea.Cmd
			m.docView, cmd = m.docView.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tokenMsg:
		m.answer += string(msg)
		m.renderAnswer()
		m.answerView.GotoBottom()
		return m, m.events.listen()

	case stateMsg:
		m.hint = msg.to.Hint()
		return m, m.events.listen()

	case answerMsg:
		m.finish(msg)
		return m, m.events.listen()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	if strings.HasPrefix(line, pageCommand) {
		m.input.Reset()
		m.jumpToPage(strings.TrimSpace(strings.TrimPrefix(line, pageCommand)))
		return m, nil
	}
	if m.busy {
		m.status = "a question is already being answered"
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.busy = true
	m.hint = ""
	m.status = ""
	m.err = nil
	m.answer = ""
	m.spans = nil
	m.input.Reset()
	m.renderAnswer()
	m.renderDocument()

	q := rag.Query{Question: line, Document: m.file, Sourcing: m.sourcing}
	asker, events := m.asker, m.events
	ask := func() tea.Msg {
		ans, err := asker.Ask(ctx, q, func(s string) { events.send(tokenMsg(s)) })
		events.send(answerMsg{answer: ans, err: err})
		return nil
	}
	return m, tea.Batch(m.spinner.Tick, ask)
}

func (m *Model) finish(msg answerMsg) {
	m.busy = false
	m.hint = ""
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	switch {
	case errors.Is(msg.err, rag.ErrNoRelevantContext):
		m.answer = rag.NoInformation
	case msg.err != nil:
		m.err = msg.err
	case msg.answer != nil:
		m.answer = msg.answer.Text
		m.spans = displaySpans(m.doc, msg.answer.Spans)
		if m.sourcing {
			m.status = fmt.Sprintf("%d citation(s) located", len(m.spans))
		}
	}
	m.renderAnswer()
	m.renderDocument()
	if len(m.spans) > 0 {
		m.docView.SetYOffset(m.starts[lineOf(m.text, m.spans[0].from)])
	}
}

func (m *Model) jumpToPage(arg string) {
	page, err := strconv.Atoi(arg)
	if err != nil {
		m.status = "usage: /page N"
		return
	}
	if err := rag.ValidatePage(page, m.file.PageCount()); err != nil {
		m.status = err.Error()
		return
	}
	m.docView.SetYOffset(m.starts[m.pages[page-1]])
	m.status = fmt.Sprintf("page %d of %d", page, m.file.PageCount())
}

func (m *Model) layout(width, height int) {
	m.width, m.height = width, height
	inner := max(width-2, 10)
	avail := max(height-chromeHeight, 4)
	docHeight := avail * 3 / 5
	answerHeight := avail - docHeight

	m.docView = viewport.New(inner, docHeight)
	m.answerView = viewport.New(inner, answerHeight)
	m.input.Width = max(inner-4, 10)
	m.renderDocument()
	m.renderAnswer()
}

func (m *Model) renderDocument() {
	offset := m.docView.YOffset
	lines := highlight(m.text, m.spans, func(s string) string { return highlightStyle.Render(s) })
	content, starts := wrap(lines, m.docView.Width)
	m.starts = starts
	m.docView.SetContent(content)
	m.docView.SetYOffset(offset)
}

func (m *Model) renderAnswer() {
	if m.answer == "" {
		m.answerView.SetContent(dimStyle.Render("No answer yet."))
		return
	}
	m.answerView.SetContent(lipgloss.NewStyle().Width(m.answerView.Width).Render(m.answer))
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sourcing := dimStyle.Render("off")
	if m.sourcing {
		sourcing = onStyle.Render("on")
	}
	header := headerStyle.Render("docmind") + " " +
		valueStyle.Render(m.file.Name) + " " +
		dimStyle.Render(fmt.Sprintf("%s, %d page(s)", m.file.Type, m.file.PageCount())) + "   " +
		dimStyle.Render("sourcing: ") + sourcing

	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " " + hintStyle.Render(m.hint)
	case m.err != nil:
		status = errorStyle.Render("error: " + m.err.Error())
	default:
		status = dimStyle.Render(m.status)
	}

	footer := footerKeyStyle.Render("[enter]") + footerStyle.Render(" ask  ") +
		footerKeyStyle.Render("[ctrl+s]") + footerStyle.Render(" sourcing  ") +
		footerKeyStyle.Render("[pgup/pgdn]") + footerStyle.Render(" scroll  ") +
		footerKeyStyle.Render("[esc]") + footerStyle.Render(" quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		paneStyle.Render(m.docView.View()),
		paneStyle.Render(m.answerView.View()),
		status,
		m.input.View(),
		footer,
	)
}
