package editor

import (
	"fmt"
	"strings"
)

// Category groups controls the way the editor's home screen does.
type Category int

const (
	CategoryNone Category = iota
	CategoryPokemon
	CategoryItems
	CategoryMoves
	CategoryBattle
	CategoryField
	CategoryGraphics
	CategoryText
	CategoryMisc
)

var categoryNames = [...]string{
	CategoryNone:     "None",
	CategoryPokemon:  "Pokemon",
	CategoryItems:    "Items",
	CategoryMoves:    "Moves",
	CategoryBattle:   "Battle",
	CategoryField:    "Field",
	CategoryGraphics: "Graphics",
	CategoryText:     "Text",
	CategoryMisc:     "Misc",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Categories returns the browsable categories, excluding CategoryNone.
func Categories() []Category {
	out := make([]Category, 0, len(categoryNames)-1)
	for i := 1; i < len(categoryNames); i++ {
		out = append(out, Category(i))
	}
	return out
}

// Matches reports whether a control in c passes filter.
func (c Category) Matches(filter Category) bool {
	return filter == CategoryNone || filter == c
}

// ParseCategory resolves a category name case-insensitively. "all" and the
// empty string mean CategoryNone.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return CategoryNone, nil
	}
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return CategoryNone, fmt.Errorf("unknown category %q", s)
}
