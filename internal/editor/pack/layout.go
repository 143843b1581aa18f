// Package pack is the editor handle built from a declarative layout: a list
// of container units under the dump root, the controls that edit them and
// where each language's text tables live.
package pack

import (
	"errors"
	"fmt"
	"io/fs"

	"romforge/internal/editor"
)

// UnitKind selects the codec a unit is parsed with.
type UnitKind int

const (
	UnitRaw UnitKind = iota
	UnitGARC
	UnitMini
)

func (k UnitKind) String() string {
	switch k {
	case UnitGARC:
		return "garc"
	case UnitMini:
		return "mini"
	default:
		return "raw"
	}
}

// UnitSpec names one file under the dump root.
type UnitSpec struct {
	Name     string
	Path     string
	Kind     UnitKind
	Optional bool
}

// ControlSpec is one editing capability and the units it needs. Label
// defaults to the title-cased ID.
type ControlSpec struct {
	ID       string
	Label    string
	Category editor.Category
	Units    []string
}

// TextSource says how a language's message tables are stored.
type TextSource int

const (
	TextNone TextSource = iota
	// TextGARC is one GARC per language, one table per entry.
	TextGARC
	// TextDir is one directory per language holding *.dat tables, ordered by
	// file name.
	TextDir
)

// TextSpec maps each language to its table source, relative to the root.
type TextSpec struct {
	Source TextSource
	Paths  map[editor.Language]string
}

// Layout is everything the handle needs to know about one game's dump.
type Layout struct {
	Units    []UnitSpec
	Controls []ControlSpec
	Text     TextSpec
}

// Validate checks names are unique, paths are clean and controls only
// reference declared units.
func (l Layout) Validate() error {
	var errs []error
	units := make(map[string]struct{}, len(l.Units))
	for _, u := range l.Units {
		if u.Name == "" {
			errs = append(errs, errors.New("unit name is required"))
			continue
		}
		if _, dup := units[u.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate unit %q", u.Name))
		}
		units[u.Name] = struct{}{}
		if !fs.ValidPath(u.Path) || u.Path == "." {
			errs = append(errs, fmt.Errorf("unit %q path %q is not a clean relative path", u.Name, u.Path))
		}
	}

	controls := make(map[string]struct{}, len(l.Controls))
	for _, c := range l.Controls {
		if c.ID == "" {
			errs = append(errs, errors.New("control id is required"))
			continue
		}
		if _, dup := controls[c.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate control %q", c.ID))
		}
		controls[c.ID] = struct{}{}
		for _, name := range c.Units {
			if _, ok := units[name]; !ok {
				errs = append(errs, fmt.Errorf("control %q references unknown unit %q", c.ID, name))
			}
		}
	}

	for lang, p := range l.Text.Paths {
		if !lang.Valid() {
			errs = append(errs, fmt.Errorf("text path for invalid language %d", int(lang)))
		}
		if !fs.ValidPath(p) || p == "." {
			errs = append(errs, fmt.Errorf("text path %q is not a clean relative path", p))
		}
	}
	if l.Text.Source == TextNone && len(l.Text.Paths) > 0 {
		errs = append(errs, errors.New("text paths declared without a text source"))
	}
	return errors.Join(errs...)
}
