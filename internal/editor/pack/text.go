package pack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"romforge/internal/container"
	"romforge/internal/editor"
	"romforge/internal/mmfile"
)

// textTables is one language's message tables, loaded on first use.
type textTables struct {
	garc    *container.GARC
	release func() error
	files   []string
}

func (t *textTables) count() int {
	if t.garc != nil {
		return len(t.garc.Files)
	}
	return len(t.files)
}

func (t *textTables) table(i int) ([]byte, error) {
	if t.garc != nil {
		data, ok := t.garc.Entry(i)
		if !ok {
			return nil, fmt.Errorf("text table %d out of range", i)
		}
		return data, nil
	}
	if i < 0 || i >= len(t.files) {
		return nil, fmt.Errorf("text table %d out of range", i)
	}
	return os.ReadFile(t.files[i])
}

func (t *textTables) close() error {
	if t.release == nil {
		return nil
	}
	err := t.release()
	t.release, t.garc = nil, nil
	return err
}

func (e *Editor) loadText(lang editor.Language) (*textTables, error) {
	if t, ok := e.text[lang]; ok {
		return t, nil
	}
	rel, ok := e.layout.Text.Paths[lang]
	if !ok || e.layout.Text.Source == TextNone {
		return nil, fmt.Errorf("pack: %s has no %s text: %w", e.game.Name, lang, fs.ErrNotExist)
	}
	path := e.unitPath(rel)

	t := &textTables{}
	switch e.layout.Text.Source {
	case TextGARC:
		data, release, err := mmfile.Map(path)
		if err != nil {
			return nil, fmt.Errorf("pack: map %s text: %w", lang, err)
		}
		g, err := container.ParseGARC(data)
		if err != nil {
			_ = release()
			return nil, fmt.Errorf("pack: %s text archive: %w", lang, err)
		}
		t.garc, t.release = g, release
	case TextDir:
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("pack: %s text directory: %w", lang, err)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ".dat") {
				t.files = append(t.files, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(t.files)
	}
	e.text[lang] = t
	return t, nil
}

// TextCount reports how many message tables the current language has.
func (e *Editor) TextCount() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	t, err := e.loadText(e.lang)
	if err != nil {
		return 0, err
	}
	return t.count(), nil
}

// TextLines decodes message table entry of the current language.
func (e *Editor) TextLines(entry int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	t, err := e.loadText(e.lang)
	if err != nil {
		return nil, err
	}
	data, err := t.table(entry)
	if err != nil {
		return nil, err
	}
	table, err := container.ParseText(data)
	if err != nil {
		if errors.Is(err, container.ErrSignatureMismatch) {
			return nil, fmt.Errorf("pack: %s text table %d is not a message table: %w", e.lang, entry, err)
		}
		return nil, fmt.Errorf("pack: %s text table %d: %w", e.lang, entry, err)
	}
	return table.Lines, nil
}
