package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"romforge/pkg/sigmatch"
)

// markerHeaderSize bounds how much of a file a signature marker reads.
const markerHeaderSize = 4096

// Marker is one piece of evidence a profile requires in a dump folder.
// Key identifies the marker across profiles; equal keys are evaluated once.
type Marker interface {
	Key() string
	Present(fsys fs.FS) (bool, error)
}

type pathMarker struct {
	pattern string
}

// Path requires at least one entry matching pattern, in fs.Glob syntax with
// forward slashes, relative to the dump root.
func Path(pattern string) Marker {
	return pathMarker{pattern: pattern}
}

func (m pathMarker) Key() string { return "path:" + m.pattern }

func (m pathMarker) String() string { return m.pattern }

func (m pathMarker) validate() error {
	if m.pattern == "" || strings.HasPrefix(m.pattern, "/") {
		return fmt.Errorf("path marker %q must be relative", m.pattern)
	}
	if _, err := path.Match(m.pattern, ""); err != nil {
		return fmt.Errorf("path marker %q: %w", m.pattern, err)
	}
	if !fs.ValidPath(strings.NewReplacer("*", "x", "?", "x", "[", "x", "]", "x").Replace(m.pattern)) {
		return fmt.Errorf("path marker %q is not a clean relative path", m.pattern)
	}
	return nil
}

func (m pathMarker) Present(fsys fs.FS) (bool, error) {
	if !strings.ContainsAny(m.pattern, `*?[\`) {
		_, err := fs.Stat(fsys, m.pattern)
		return exists(err)
	}
	matches, err := fs.Glob(fsys, m.pattern)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

type signatureMarker struct {
	name string
	sig  sigmatch.Signature
}

// Signature requires the file at name to start with sig.
func Signature(name string, sig sigmatch.Signature) Marker {
	return signatureMarker{name: name, sig: sig}
}

func (m signatureMarker) Key() string { return "sig:" + m.name + "#" + m.sig.Name }

func (m signatureMarker) String() string { return m.name + " (" + m.sig.Name + ")" }

func (m signatureMarker) validate() error {
	if !fs.ValidPath(m.name) || m.name == "." {
		return fmt.Errorf("signature marker %q is not a clean relative path", m.name)
	}
	if m.sig.Name == "" || (len(m.sig.Magic) == 0 && m.sig.Check == nil) {
		return fmt.Errorf("signature marker %q needs a named signature", m.name)
	}
	return nil
}

func (m signatureMarker) Present(fsys fs.FS) (bool, error) {
	f, err := fsys.Open(m.name)
	if err != nil {
		return exists(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	reg, err := sigmatch.NewRegistry(m.sig)
	if err != nil {
		return false, err
	}
	cands, err := sigmatch.SniffReader(f, markerHeaderSize, reg)
	if err != nil {
		return false, err
	}
	return len(cands) > 0 && cands[0].Confidence == sigmatch.ConfidenceExact, nil
}

// exists folds "not there" into a clean negative and keeps real I/O errors.
func exists(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return false, nil
	default:
		return false, err
	}
}
