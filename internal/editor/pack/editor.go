package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/text/cases"

	"romforge/internal/container"
	"romforge/internal/editor"
	"romforge/internal/fsx"
	"romforge/internal/mmfile"
)

// ErrClosed is returned by every operation on a closed handle.
var ErrClosed = errors.New("pack: editor is closed")

// Editor is the layout-driven handle. It is safe for concurrent use.
type Editor struct {
	game   editor.Game
	root   string
	layout Layout

	mu          sync.Mutex
	lang        editor.Language
	units       []*unit
	byName      map[string]*unit
	text        map[editor.Language]*textTables
	initialized bool
	closed      bool
}

type unit struct {
	spec    UnitSpec
	path    string
	perm    fs.FileMode
	missing bool
	release func() error

	data  []byte
	garc  *container.GARC
	mini  *container.Mini
	dirty bool
}

var _ editor.Editor = (*Editor)(nil)

// Factory returns a profile factory building handles for game with layout.
func Factory(game editor.Game, layout Layout) func(root string, lang editor.Language) (editor.Editor, error) {
	return func(root string, lang editor.Language) (editor.Editor, error) {
		return New(root, game, layout, lang)
	}
}

// New builds an uninitialized handle rooted at root.
func New(root string, game editor.Game, layout Layout, lang editor.Language) (*Editor, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("%s layout: %w", game.Name, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Editor{
		game:   game,
		root:   abs,
		layout: layout,
		lang:   lang,
		byName: make(map[string]*unit, len(layout.Units)),
		text:   make(map[editor.Language]*textTables),
	}, nil
}

func (e *Editor) Game() editor.Game { return e.game }

func (e *Editor) Location() string { return e.root }

func (e *Editor) Language() editor.Language {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lang
}

func (e *Editor) SetLanguage(l editor.Language) {
	e.mu.Lock()
	e.lang = l
	e.mu.Unlock()
}

func (e *Editor) unitPath(p string) string {
	return filepath.Join(e.root, filepath.FromSlash(p))
}

// Initialize maps every unit and validates its structure. A missing optional
// unit is recorded and hides the controls that need it.
func (e *Editor) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.initialized {
		return errors.New("pack: editor already initialized")
	}

	for _, spec := range e.layout.Units {
		u, err := e.loadUnit(spec)
		if err != nil {
			_ = e.releaseUnits()
			return err
		}
		e.units = append(e.units, u)
		e.byName[spec.Name] = u
	}
	e.initialized = true
	return nil
}

func (e *Editor) loadUnit(spec UnitSpec) (*unit, error) {
	u := &unit{spec: spec, path: e.unitPath(spec.Path)}

	info, err := os.Stat(u.path)
	if errors.Is(err, fs.ErrNotExist) {
		if spec.Optional {
			u.missing = true
			return u, nil
		}
		return nil, editor.NewError(editor.KindInitializationFailure, u.path,
			fmt.Sprintf("required %s unit %q is missing", spec.Kind, spec.Name), err)
	}
	if err != nil {
		return nil, editor.NewError(editor.KindIOFailure, u.path, fmt.Sprintf("stat unit %q", spec.Name), err)
	}
	if !info.Mode().IsRegular() {
		return nil, editor.NewError(editor.KindInitializationFailure, u.path,
			fmt.Sprintf("unit %q is not a regular file", spec.Name), nil)
	}
	u.perm = info.Mode().Perm()

	data, release, err := mmfile.Map(u.path)
	if err != nil {
		return nil, editor.NewError(editor.KindIOFailure, u.path, fmt.Sprintf("map unit %q", spec.Name), err)
	}
	u.data, u.release = data, release

	if err := u.parse(data); err != nil {
		_ = release()
		return nil, editor.NewError(editor.KindInitializationFailure, u.path,
			fmt.Sprintf("%s unit %q is malformed", spec.Kind, spec.Name), err)
	}
	return u, nil
}

func (u *unit) parse(data []byte) error {
	switch u.spec.Kind {
	case UnitGARC:
		g, err := container.ParseGARC(data)
		if err != nil {
			return err
		}
		u.garc = g
	case UnitMini:
		m, err := container.ParseMini(data)
		if err != nil {
			return err
		}
		u.mini = m
	}
	return nil
}

// Controls lists the capabilities whose units are all present.
func (e *Editor) Controls(filter editor.Category) []editor.Control {
	e.mu.Lock()
	defer e.mu.Unlock()

	title := cases.Title(e.lang.Tag())
	var out []editor.Control
	for _, spec := range e.layout.Controls {
		if !spec.Category.Matches(filter) || !e.available(spec.Units) {
			continue
		}
		label := spec.Label
		if label == "" {
			label = title.String(strings.NewReplacer("_", " ", "-", " ").Replace(spec.ID))
		}
		out = append(out, editor.Control{
			ID:       spec.ID,
			Label:    label,
			Category: spec.Category,
			Units:    append([]string(nil), spec.Units...),
		})
	}
	return out
}

func (e *Editor) available(names []string) bool {
	if !e.initialized || e.closed {
		return false
	}
	for _, name := range names {
		u, ok := e.byName[name]
		if !ok || u.missing {
			return false
		}
	}
	return true
}

// Units returns the names of the units present in the dump.
func (e *Editor) Units() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, u := range e.units {
		if !u.missing {
			out = append(out, u.spec.Name)
		}
	}
	return out
}

func (e *Editor) lookup(name string) (*unit, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if !e.initialized {
		return nil, errors.New("pack: editor is not initialized")
	}
	u, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("pack: unknown unit %q", name)
	}
	if u.missing {
		return nil, fmt.Errorf("pack: unit %q is not present in this dump: %w", name, fs.ErrNotExist)
	}
	return u, nil
}

// EntryCount reports how many entries a container unit holds.
func (e *Editor) EntryCount(name string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.lookup(name)
	if err != nil {
		return 0, err
	}
	switch {
	case u.garc != nil:
		return len(u.garc.Files), nil
	case u.mini != nil:
		return len(u.mini.Entries), nil
	default:
		return 0, fmt.Errorf("pack: unit %q is raw", name)
	}
}

// Entry returns a copy of entry i of a container unit.
func (e *Editor) Entry(name string, i int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	switch {
	case u.garc != nil:
		data, ok := u.garc.Entry(i)
		if !ok {
			return nil, fmt.Errorf("pack: unit %q has no entry %d", name, i)
		}
		return clone(data), nil
	case u.mini != nil:
		if i < 0 || i >= len(u.mini.Entries) {
			return nil, fmt.Errorf("pack: unit %q has no entry %d", name, i)
		}
		return clone(u.mini.Entries[i]), nil
	default:
		return nil, fmt.Errorf("pack: unit %q is raw, use Raw", name)
	}
}

// SetEntry replaces entry i of a container unit. The change is written by
// the next Save.
func (e *Editor) SetEntry(name string, i int, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.lookup(name)
	if err != nil {
		return err
	}
	switch {
	case u.garc != nil:
		if i < 0 || i >= len(u.garc.Files) || len(u.garc.Files[i].Subentries) == 0 {
			return fmt.Errorf("pack: unit %q has no entry %d", name, i)
		}
		subs := append([]container.GARCSubentry(nil), u.garc.Files[i].Subentries...)
		subs[0].Data = clone(data)
		u.garc.Files[i].Subentries = subs
	case u.mini != nil:
		if i < 0 || i >= len(u.mini.Entries) {
			return fmt.Errorf("pack: unit %q has no entry %d", name, i)
		}
		u.mini.Entries[i] = clone(data)
	default:
		return fmt.Errorf("pack: unit %q is raw, use SetRaw", name)
	}
	u.dirty = true
	return nil
}

// Raw returns a copy of the unit's current serialized bytes.
func (e *Editor) Raw(name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	if !u.dirty {
		return clone(u.data), nil
	}
	data, err := u.bytes()
	if err != nil {
		return nil, err
	}
	return clone(data), nil
}

// SetRaw replaces the whole unit. data must parse as the unit's kind.
func (e *Editor) SetRaw(name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := e.lookup(name)
	if err != nil {
		return err
	}
	owned := clone(data)
	next := &unit{spec: u.spec}
	if err := next.parse(owned); err != nil {
		return fmt.Errorf("pack: unit %q: %w", name, err)
	}
	u.data, u.garc, u.mini = owned, next.garc, next.mini
	u.dirty = true
	return nil
}

func (u *unit) bytes() ([]byte, error) {
	switch {
	case u.garc != nil:
		return u.garc.Bytes()
	case u.mini != nil:
		return u.mini.Bytes()
	default:
		return u.data, nil
	}
}

// Dirty lists units with unsaved changes.
func (e *Editor) Dirty() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, u := range e.units {
		if u.dirty {
			out = append(out, u.spec.Name)
		}
	}
	return out
}

// Save writes every modified unit back in layout order, each through its own
// temp file and rename. Units committed before a failure stay committed.
func (e *Editor) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	var pending []*unit
	for _, u := range e.units {
		if u.dirty {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	lock := flock.New(LockPath(e.root))
	locked, err := lock.TryLock()
	if err != nil {
		return editor.NewError(editor.KindIOFailure, e.root, "acquire save lock", err)
	}
	if !locked {
		return editor.NewError(editor.KindIOFailure, e.root, "another process is saving this dump", nil)
	}
	defer func() { _ = lock.Unlock() }()

	for _, u := range pending {
		data, err := u.bytes()
		if err != nil {
			return editor.NewError(editor.KindIOFailure, u.path, fmt.Sprintf("serialize unit %q", u.spec.Name), err)
		}
		if err := fsx.WriteFileAtomic(filepath.Dir(u.path), filepath.Base(u.path), data, u.perm); err != nil {
			return editor.NewError(editor.KindIOFailure, u.path, fmt.Sprintf("write unit %q", u.spec.Name), err)
		}
		u.data = data
		u.dirty = false
	}
	return nil
}

// LockPath is the advisory lock file guarding saves to root. It lives in the
// OS temp directory so the dump itself is never touched by locking.
func LockPath(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(os.TempDir(), "romforge-"+hex.EncodeToString(sum[:8])+".lock")
}

// Close unmaps every region and drops cached text. Unsaved changes are
// discarded. Calling Close again is a no-op.
func (e *Editor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.releaseUnits()
}

func (e *Editor) releaseUnits() error {
	var errs []error
	for _, u := range e.units {
		if u.release != nil {
			errs = append(errs, u.release())
			u.release = nil
		}
		u.data, u.garc, u.mini = nil, nil, nil
	}
	e.units = nil
	clear(e.byName)
	for lang, t := range e.text {
		errs = append(errs, t.close())
		delete(e.text, lang)
	}
	return errors.Join(errs...)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
