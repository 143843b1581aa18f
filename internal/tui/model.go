// Package tui renders batch ripping progress and the category browser.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"romforge/internal/ripper"
)

// Model shows the progress of a batch rip fed by ripper.Run updates.
type Model struct {
	updates      <-chan ripper.ProgressUpdate
	started      time.Time
	width        int
	total        int
	done         int
	ripped       int
	unrecognized int
	corrupt      int
	failed       int
	bytes        int64
	quitting     bool
}

type doneMsg struct{}

type updateMsg ripper.ProgressUpdate

func NewModel(updates <-chan ripper.ProgressUpdate) Model {
	return Model{updates: updates, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.done += msg.DoneDelta
		m.ripped += msg.SuccessDelta
		m.unrecognized += msg.UnrecognizedDelta
		m.corrupt += msg.CorruptDelta
		m.failed += msg.FailedDelta
		m.bytes += msg.BytesDelta
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1, float64(m.done)/float64(m.total))
	}
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("romforge rip"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.done, m.total)),
		successStyle.Render(fmt.Sprintf("Ripped: %d", m.ripped)) +
			dimStyle.Render(fmt.Sprintf("  unrecognized:%d", m.unrecognized)) +
			warnStyle.Render(fmt.Sprintf("  corrupt:%d", m.corrupt)) +
			errorStyle.Render(fmt.Sprintf("  failed:%d", m.failed)),
		labelStyle.Render("Written: " + humanize.IBytes(uint64(m.bytes))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(renderBar(barWidth, ratio)),
	}
	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan ripper.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
