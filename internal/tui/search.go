// Package tui is the terminal front end: an interactive event search over
// the debounced search pipeline, and plain renderers for the
// non-interactive commands.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/search"
)

const (
	loadFailed  = "Could not load events. Keep typing or press enter to retry."
	chromeLines = 6 // title, input, status, blank, help, trailing newline
)

// changeMsg tells the model the pipeline state moved.
type changeMsg struct{}

// SearchModel is the interactive event search screen. Keystrokes feed the
// pipeline; the list re-renders whenever the pipeline reports a change.
type SearchModel struct {
	pipeline *search.Pipeline
	changes  chan struct{}
	criteria search.Criteria

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    KeyMap
	theme   Theme

	view   search.View
	cursor int
	height int
}

// NewSearchModel builds the screen over searcher. criteria are the local
// filters applied to every result set.
func NewSearchModel(searcher ports.EventSearcher, clock clockwork.Clock, window time.Duration, criteria search.Criteria, log zerolog.Logger) SearchModel {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	input := textinput.New()
	input.Placeholder = "Search events"
	input.Prompt = "› "
	input.CharLimit = 120
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return SearchModel{
		pipeline: search.NewPipeline(searcher, clock, window, log, search.WithChangeHook(notify)),
		changes:  changes,
		criteria: criteria,
		input:    input,
		spinner:  sp,
		help:     help.New(),
		keys:     DefaultKeyMap,
		theme:    DefaultTheme,
	}
}

// Init implements tea.Model. It issues the unfiltered listing fetch.
func (m SearchModel) Init() tea.Cmd {
	m.pipeline.Start()
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForChange(m.changes))
}

// waitForChange blocks until the pipeline signals, then delivers a
// changeMsg. The channel holds at most one pending signal.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// Update implements tea.Model.
func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changeMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m SearchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.pipeline.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Clear):
		if m.input.Value() == "" {
			m.pipeline.Close()
			return m, tea.Quit
		}
		m.input.SetValue("")
		m.cursor = 0
		m.pipeline.SetQuery("")
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		m.pipeline.Flush()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Results)-1 {
			m.cursor++
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.cursor = 0
		m.pipeline.SetQuery(after)
	}
	return m, cmd
}

// refresh pulls the latest pipeline view and keeps the cursor in range.
func (m *SearchModel) refresh() {
	m.view = m.pipeline.View(m.criteria)
	if m.cursor >= len(m.view.Results) {
		m.cursor = max(len(m.view.Results)-1, 0)
	}
}

// Selected returns the highlighted event.
func (m SearchModel) Selected() (domain.Event, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Results) {
		return domain.Event{}, false
	}
	return m.view.Results[m.cursor], true
}

// Close releases the pipeline. Safe to call after the program exits.
func (m SearchModel) Close() { m.pipeline.Close() }

// View implements tea.Model.
func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("Evently · events"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n\n")

	for i, e := range m.visible() {
		line := eventLine(e)
		if i+m.offset() == m.cursor {
			b.WriteString(m.theme.Selected.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Up, m.keys.Down, m.keys.Submit, m.keys.Clear, m.keys.Quit}))
	b.WriteString("\n")
	return b.String()
}

func (m SearchModel) status() string {
	switch {
	case m.view.Loading:
		return m.spinner.View() + m.theme.Muted.Render(" Searching…")
	case m.view.Err != nil:
		return m.theme.Error.Render(loadFailed)
	case len(m.view.Results) == 0:
		return m.theme.Muted.Render("No events match.")
	case len(m.view.Results) < m.view.Total:
		return m.theme.Muted.Render(fmt.Sprintf("%d of %d events", len(m.view.Results), m.view.Total))
	default:
		return m.theme.Muted.Render(fmt.Sprintf("%d events", len(m.view.Results)))
	}
}

// rows is how many list lines fit on screen. Before the first resize the
// whole list is shown.
func (m SearchModel) rows() int {
	if m.height <= chromeLines {
		return len(m.view.Results)
	}
	return m.height - chromeLines
}

// offset scrolls the list so the cursor stays visible.
func (m SearchModel) offset() int {
	if n := m.rows(); m.cursor >= n {
		return m.cursor - n + 1
	}
	return 0
}

func (m SearchModel) visible() []domain.Event {
	start := m.offset()
	end := min(start+m.rows(), len(m.view.Results))
	return m.view.Results[start:end]
}

func eventLine(e domain.Event) string {
	parts := []string{e.Title, e.Location}
	if e.Category != "" {
		parts = append(parts, e.Category)
	}
	if !e.StartDate.IsZero() {
		parts = append(parts, e.StartDate.Format("02 Jan 2006"))
	}
	parts = append(parts, FormatPrice(e))
	if e.SoldOut() {
		parts = append(parts, "sold out")
	}
	return strings.Join(parts, " · ")
}

// FormatPrice renders an event price, "Free" for zero.
func FormatPrice(e domain.Event) string {
	if e.IsFree() {
		return "Free"
	}
	return "IDR " + e.Price.StringFixed(0)
}
