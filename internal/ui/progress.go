// Package ui renders corpus replay progress as a Bubble Tea program.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"mocklib/internal/replay"
)

type progressModel struct {
	title    string
	events   <-chan replay.Event
	spinner  spinner.Model
	prog     progress.Model
	items    []entryItem
	index    map[string]int
	finished int
	width    int
	done     bool
}

type entryItem struct {
	name   string
	status replay.Status
	note   string
}

type eventMsg replay.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that lists every corpus entry
// with its replay status. The model quits when events is closed.
func NewProgressModel(title string, names []string, events <-chan replay.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]entryItem, 0, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		items = append(items, entryItem{name: name, status: replay.StatusQueued})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(replay.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d)", m.title, m.finished, len(m.items))
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 10
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		line := truncate(item.name, nameWidth)
		if item.note != "" {
			line = truncate(item.name+"  "+item.note, nameWidth)
		}
		status := styleStatus(item.status).Render(fmt.Sprintf("%10s", item.status))
		b.WriteString("  " + status + " " + line + "\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev replay.Event) tea.Cmd {
	idx, ok := m.index[ev.Entry]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.status = ev.Status
	switch ev.Status {
	case replay.StatusDone:
		m.finished++
		item.note = ev.Elapsed.String()
	case replay.StatusRejected:
		m.finished++
		if ev.Err != nil {
			item.note = ev.Err.Error()
		}
	}
	if len(m.items) == 0 {
		return nil
	}
	return m.prog.SetPercent(float64(m.finished) / float64(len(m.items)))
}

func styleStatus(status replay.Status) lipgloss.Style {
	switch status {
	case replay.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case replay.StatusRejected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case replay.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
