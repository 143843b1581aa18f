// Package profile holds the registry of supported dump layouts and matches
// folders against it.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"romforge/internal/editor"
)

// Factory builds an uninitialized handle for root.
type Factory func(root string, lang editor.Language) (editor.Editor, error)

// Profile describes one supported game/version layout.
type Profile struct {
	Game     editor.Game
	Markers  []Marker
	Priority int
	Factory  Factory
}

// Registry is an immutable set of profiles.
type Registry struct {
	profiles []Profile
}

type validator interface {
	validate() error
}

// NewRegistry validates and stores profiles. Names must be unique.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	seen := make(map[string]struct{}, len(profiles))
	stored := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		name := strings.TrimSpace(p.Game.Name)
		if name == "" {
			return nil, errors.New("profile name is required")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate profile %q", name)
		}
		if len(p.Markers) == 0 {
			return nil, fmt.Errorf("profile %q declares no markers", name)
		}
		if p.Factory == nil {
			return nil, fmt.Errorf("profile %q has no factory", name)
		}
		keys := make(map[string]struct{}, len(p.Markers))
		for _, m := range p.Markers {
			if m == nil {
				return nil, fmt.Errorf("profile %q has a nil marker", name)
			}
			if v, ok := m.(validator); ok {
				if err := v.validate(); err != nil {
					return nil, fmt.Errorf("profile %q: %w", name, err)
				}
			}
			if _, dup := keys[m.Key()]; dup {
				return nil, fmt.Errorf("profile %q repeats marker %s", name, m.Key())
			}
			keys[m.Key()] = struct{}{}
		}
		seen[name] = struct{}{}
		p.Game.Name = name
		p.Markers = append([]Marker(nil), p.Markers...)
		stored = append(stored, p)
	}
	return &Registry{profiles: stored}, nil
}

// Profiles returns the registered profiles sorted by name.
func (r *Registry) Profiles() []Profile {
	if r == nil {
		return nil
	}
	out := append([]Profile(nil), r.profiles...)
	sort.Slice(out, func(i, j int) bool { return out[i].Game.Name < out[j].Game.Name })
	return out
}

// Lookup returns the profile registered under name.
func (r *Registry) Lookup(name string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	for _, p := range r.profiles {
		if p.Game.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Len reports how many profiles are registered.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.profiles)
}
