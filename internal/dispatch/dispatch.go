// Package dispatch resolves a dump folder to an initialized editor handle.
package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"romforge/internal/editor"
	"romforge/internal/profile"
)

// InitFailureMessage is the user-facing text of every initialization failure.
const InitFailureMessage = "Failed to initialize ROM data. " + editor.InitHint

// Dispatcher matches folders against a profile registry.
type Dispatcher struct {
	registry *profile.Registry
	logger   *slog.Logger
}

// New returns a dispatcher over reg. A nil logger discards output.
func New(reg *profile.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{registry: reg, logger: logger}
}

// Registry returns the profiles the dispatcher resolves against.
func (d *Dispatcher) Registry() *profile.Registry {
	return d.registry
}

// Identify returns the ranked candidates for path without building a handle.
func (d *Dispatcher) Identify(path string) (string, []profile.Candidate, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, editor.NewError(editor.KindIOFailure, path, "resolve path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return abs, nil, editor.NewError(editor.KindIOFailure, abs, "read path", err)
	}
	if !info.IsDir() {
		return abs, nil, editor.NewError(editor.KindUnrecognizedGameData, abs, "not a game data folder", nil)
	}

	cands, err := profile.Match(os.DirFS(abs), d.registry)
	if err != nil {
		return abs, nil, editor.NewError(editor.KindIOFailure, abs, "evaluate markers", err)
	}
	for i, c := range cands {
		d.logger.Debug("profile candidate",
			slog.Int("rank", i),
			slog.String("game", c.Profile.Game.Name),
			slog.String("coverage", c.Confidence.String()),
			slog.Int("priority", c.Profile.Priority),
		)
	}
	return abs, cands, nil
}

// Resolve selects the best profile for path and returns its initialized
// handle. lang is recorded on the handle as requested. On failure no handle
// is returned and any partially built one has been closed.
func (d *Dispatcher) Resolve(path string, lang editor.Language) (editor.Editor, error) {
	abs, cands, err := d.Identify(path)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, editor.NewError(editor.KindUnrecognizedGameData, abs, "no supported game layout found", nil)
	}
	if len(cands) > 1 && profile.Tied(cands[0], cands[1]) {
		names := []string{cands[0].Profile.Game.Name}
		for _, c := range cands[1:] {
			if !profile.Tied(cands[0], c) {
				break
			}
			names = append(names, c.Profile.Game.Name)
		}
		e := editor.NewError(editor.KindAmbiguousFormat, abs, "folder matches several layouts equally", nil)
		e.Detail = strings.Join(names, ", ")
		return nil, e
	}

	winner := cands[0].Profile
	ed, err := build(winner, abs, lang)
	if err != nil {
		d.logger.Warn("initialization failed", slog.String("game", winner.Game.Name), slog.String("path", abs), slog.Any("error", err))
		return nil, initFailure(abs, err)
	}
	d.logger.Info("resolved game data",
		slog.String("game", winner.Game.Name),
		slog.Int("generation", winner.Game.Generation),
		slog.String("coverage", cands[0].Confidence.String()),
		slog.String("path", abs),
	)
	return ed, nil
}

func build(p profile.Profile, root string, lang editor.Language) (ed editor.Editor, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ed != nil {
				_ = ed.Close()
			}
			ed, err = nil, fmt.Errorf("%s handle panicked: %v", p.Game.Name, r)
		}
	}()

	ed, err = p.Factory(root, lang)
	if err != nil {
		return nil, err
	}
	if ed == nil {
		return nil, fmt.Errorf("%s factory returned no handle", p.Game.Name)
	}
	if err := ed.Initialize(); err != nil {
		_ = ed.Close()
		return nil, err
	}
	return ed, nil
}

func initFailure(root string, err error) error {
	if kind, ok := editor.KindOf(err); ok && kind == editor.KindIOFailure {
		return err
	}
	return editor.NewError(editor.KindInitializationFailure, root, InitFailureMessage, err)
}
