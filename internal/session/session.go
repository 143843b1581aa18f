// Package session owns the active editor handle and routes opened paths to
// the dispatcher or the ripper.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"romforge/internal/dispatch"
	"romforge/internal/editor"
	"romforge/internal/history"
	"romforge/internal/logging"
	"romforge/internal/ripper"
)

// ErrNoEditor is returned by operations that need an open handle.
var ErrNoEditor = errors.New("no game data is open")

// Options wires a Session. Dispatcher and Ripper are required.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Ripper     *ripper.Ripper
	History    *history.Store
	Logger     *slog.Logger
	Language   editor.Language
	LastPath   string
}

// State is what a session persists between runs.
type State struct {
	SessionID string
	Language  editor.Language
	LastPath  string
	Game      string
}

// Outcome reports what Open did with a path: exactly one of Editor and Rip
// is set.
type Outcome struct {
	Editor editor.Editor
	Rip    *ripper.Result
}

// Session holds at most one open handle at a time.
type Session struct {
	mu         sync.Mutex
	id         string
	dispatcher *dispatch.Dispatcher
	ripper     *ripper.Ripper
	history    *history.Store
	logger     *slog.Logger

	current  editor.Editor
	lang     editor.Language
	lastPath string
}

// New returns an empty session.
func New(opts Options) (*Session, error) {
	if opts.Dispatcher == nil || opts.Ripper == nil {
		return nil, errors.New("session needs a dispatcher and a ripper")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	lang := opts.Language
	if !lang.Valid() {
		lang = editor.LanguageDefault
	}
	id := uuid.NewString()
	return &Session{
		id:         id,
		dispatcher: opts.Dispatcher,
		ripper:     opts.Ripper,
		history:    opts.History,
		logger:     logger.With(slog.String("session", id)),
		lang:       lang,
		lastPath:   opts.LastPath,
	}, nil
}

// ID returns the session identifier recorded in history.
func (s *Session) ID() string {
	return s.id
}

// Current returns the open handle, or nil.
func (s *Session) Current() editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Open sends directories to OpenFolder and everything else to OpenFile.
func (s *Session) Open(path string) (Outcome, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		ed, err := s.OpenFolder(path)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Editor: ed}, nil
	}
	res := s.OpenFile(path)
	return Outcome{Rip: &res}, nil
}

// OpenFolder resolves path into a handle. The previous handle is saved and
// closed only once the new one is ready; on failure it stays open.
func (s *Session) OpenFolder(path string) (editor.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ed, err := s.dispatcher.Resolve(path, s.lang)
	if err != nil {
		s.record(history.Event{Kind: history.KindResolve, Path: absPath(path), Outcome: outcomeOf(err), Detail: err.Error()})
		return nil, err
	}

	if s.current != nil {
		if err := closeHandle(s.current); err != nil {
			s.logger.Warn("closing previous game data failed",
				slog.String("path", s.current.Location()),
				slog.Any("error", err),
			)
		}
	}
	s.current = ed
	s.lastPath = ed.Location()
	s.applyLanguage()

	s.record(history.Event{Kind: history.KindResolve, Path: ed.Location(), Outcome: "ok", Subject: ed.Game().Name})
	return ed, nil
}

// OpenFile rips path. The open handle, if any, is left alone.
func (s *Session) OpenFile(path string) ripper.Result {
	res := s.ripper.TryOpenFile(path)
	s.mu.Lock()
	s.record(ripEvent(res))
	s.mu.Unlock()
	return res
}

func ripEvent(res ripper.Result) history.Event {
	ev := history.Event{
		Kind:     history.KindRip,
		Path:     res.Source,
		Outcome:  res.Code.String(),
		Subject:  res.Format,
		Artifact: res.Path,
	}
	if res.Err != nil {
		ev.Detail = res.Err.Error()
	}
	return ev
}

// RipAll rips every file under root with ripper.Run and records each
// result.
func (s *Session) RipAll(ctx context.Context, root string, updates chan<- ripper.ProgressUpdate) (ripper.Summary, []ripper.Result, error) {
	summary, results, err := ripper.Run(ctx, root, s.ripper, updates)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, res := range results {
		s.record(ripEvent(res))
	}
	return summary, results, err
}

// SetLanguage selects the text language. Generations that do not ship l get
// LanguageDefault instead; the result reports whether that happened.
func (s *Session) SetLanguage(l editor.Language) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !l.Valid() {
		s.lang = editor.LanguageDefault
		s.applyLanguage()
		return true
	}
	s.lang = l
	return s.applyLanguage()
}

// applyLanguage clamps s.lang to the open handle and pushes it down.
func (s *Session) applyLanguage() bool {
	if s.current == nil {
		return false
	}
	lang, clamped := editor.ClampLanguage(s.current.Game().Generation, s.lang)
	if clamped {
		s.logger.Info("language not available for this game, using default",
			slog.String("requested", s.lang.String()),
			slog.String("game", s.current.Game().Name),
		)
	}
	s.lang = lang
	s.current.SetLanguage(lang)
	return clamped
}

// Language returns the effective language.
func (s *Session) Language() editor.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Save writes the open handle back to disk.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoEditor
	}
	return s.current.Save()
}

// Close saves and closes the open handle. Closing an empty session is a
// no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	err := closeHandle(s.current)
	s.current = nil
	return err
}

// State reports what should be persisted.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{SessionID: s.id, Language: s.lang, LastPath: s.lastPath}
	if s.current != nil {
		st.Game = s.current.Game().Name
	}
	return st
}

func closeHandle(ed editor.Editor) error {
	var errs []error
	if err := ed.Save(); err != nil {
		errs = append(errs, fmt.Errorf("save %s: %w", ed.Location(), err))
	}
	if err := ed.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", ed.Location(), err))
	}
	return errors.Join(errs...)
}

// record must be called with s.mu held.
func (s *Session) record(ev history.Event) {
	if s.history == nil {
		return
	}
	ev.SessionID = s.id
	if _, err := s.history.Record(context.Background(), ev); err != nil {
		s.logger.Warn("history not recorded", slog.String("path", ev.Path), slog.Any("error", err))
	}
}

func outcomeOf(err error) string {
	if kind, ok := editor.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
