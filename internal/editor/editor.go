// Package editor defines the handle every game profile builds, plus the
// identity, locale and category vocabulary shared by dispatch and the CLI.
package editor

import (
	"fmt"
	"sort"
	"strings"
)

// Editor is a live handle over one dumped game folder.
type Editor interface {
	Game() Game
	Location() string
	Language() Language
	// SetLanguage selects the text tables later reads resolve against.
	SetLanguage(Language)
	// Initialize parses the folder. It is called exactly once.
	Initialize() error
	// Controls lists the editing capabilities for filter. CategoryNone lists
	// all of them. The order is unspecified.
	Controls(filter Category) []Control
	Save() error
	Close() error
}

// Game identifies a detected game and its layout generation.
type Game struct {
	Name       string
	Title      string
	Generation int
}

func (g Game) String() string {
	if g.Title == "" {
		return fmt.Sprintf("%s (gen %d)", g.Name, g.Generation)
	}
	return fmt.Sprintf("%s: %s (gen %d)", g.Name, g.Title, g.Generation)
}

// Control describes one editing capability of a handle.
type Control struct {
	ID       string
	Label    string
	Category Category
	Units    []string
}

// SortControls orders controls by label, then ID.
func SortControls(controls []Control) {
	sort.SliceStable(controls, func(i, j int) bool {
		li, lj := strings.ToLower(controls[i].Label), strings.ToLower(controls[j].Label)
		if li != lj {
			return li < lj
		}
		return controls[i].ID < controls[j].ID
	})
}
