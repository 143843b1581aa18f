package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"romforge/internal/editor"
)

const backLabel = "Back"

// Browser lists the categories of an open handle and, inside a category,
// its controls followed by Back.
type Browser struct {
	game       editor.Game
	language   editor.Language
	categories []editor.Category
	controls   map[editor.Category][]editor.Control
	category   editor.Category
	cursor     int
	chosen     *editor.Control
	quitting   bool
}

// NewBrowser snapshots the controls of ed. A start category other than
// CategoryNone opens that category directly.
func NewBrowser(ed editor.Editor, start editor.Category) Browser {
	b := Browser{
		game:     ed.Game(),
		language: ed.Language(),
		controls: make(map[editor.Category][]editor.Control),
	}
	for _, c := range editor.Categories() {
		controls := ed.Controls(c)
		if len(controls) == 0 {
			continue
		}
		editor.SortControls(controls)
		b.controls[c] = controls
		b.categories = append(b.categories, c)
	}
	if _, ok := b.controls[start]; ok {
		b.category = start
	}
	return b
}

// Chosen returns the control picked by the user, if any.
func (b Browser) Chosen() (editor.Control, bool) {
	if b.chosen == nil {
		return editor.Control{}, false
	}
	return *b.chosen, true
}

// Category returns the category being shown; CategoryNone is the top level.
func (b Browser) Category() editor.Category {
	return b.category
}

// Items returns the visible entries in display order.
func (b Browser) Items() []string {
	if b.category == editor.CategoryNone {
		items := make([]string, len(b.categories))
		for i, c := range b.categories {
			items[i] = c.String()
		}
		return items
	}
	controls := b.controls[b.category]
	items := make([]string, 0, len(controls)+1)
	for _, c := range controls {
		items = append(items, c.Label)
	}
	return append(items, backLabel)
}

func (b Browser) Init() tea.Cmd {
	return nil
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return b, nil
	}
	items := b.Items()
	switch key.String() {
	case "ctrl+c", "q":
		b.quitting = true
		return b, tea.Quit
	case "up", "k":
		if b.cursor > 0 {
			b.cursor--
		}
	case "down", "j":
		if b.cursor < len(items)-1 {
			b.cursor++
		}
	case "esc", "backspace":
		if b.category == editor.CategoryNone {
			b.quitting = true
			return b, tea.Quit
		}
		b.back()
	case "enter":
		if len(items) == 0 {
			return b, nil
		}
		if b.category == editor.CategoryNone {
			b.category = b.categories[b.cursor]
			b.cursor = 0
			return b, nil
		}
		controls := b.controls[b.category]
		if b.cursor == len(controls) {
			b.back()
			return b, nil
		}
		c := controls[b.cursor]
		b.chosen = &c
		b.quitting = true
		return b, tea.Quit
	}
	return b, nil
}

func (b *Browser) back() {
	for i, c := range b.categories {
		if c == b.category {
			b.cursor = i
		}
	}
	b.category = editor.CategoryNone
}

func (b Browser) View() string {
	if b.quitting {
		return ""
	}
	heading := b.game.String()
	if b.category != editor.CategoryNone {
		heading += " / " + b.category.String()
	}
	lines := []string{
		titleStyle.Render(heading),
		dimStyle.Render(fmt.Sprintf("Language: %s", b.language)),
		"",
	}
	items := b.Items()
	if len(items) == 0 {
		lines = append(lines, dimStyle.Render("No editors available for this dump."))
	}
	for i, item := range items {
		if i == b.cursor {
			lines = append(lines, selectedStyle.Render("> "+item))
			continue
		}
		lines = append(lines, labelStyle.Render("  "+item))
	}
	lines = append(lines, "", dimStyle.Render("enter select · esc back · q quit"))
	return strings.Join(lines, "\n")
}
