package sigmatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Confidence ranks how well a blob or folder matches a signature.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceSuperset
	ConfidenceExact
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExact:
		return "exact"
	case ConfidenceSuperset:
		return "superset"
	default:
		return "none"
	}
}

// Signature describes one recognizable binary layout.
//
// Magic must appear at base+Offset, where base is the start of the resource
// inside the blob. Check, when set, validates the structure at base. A
// signature without Magic is structural only and is probed at base 0.
type Signature struct {
	Name     string
	Magic    []byte
	Offset   int
	Priority int
	Embedded bool
	Check    func(data []byte, base int) bool
}

// Candidate is one signature that matched a blob.
type Candidate struct {
	Signature  Signature
	Base       int
	Confidence Confidence
}

// Registry is an immutable set of signatures.
type Registry struct {
	sigs []Signature
}

// NewRegistry validates and stores sigs. Names must be unique and non-empty.
func NewRegistry(sigs ...Signature) (*Registry, error) {
	seen := make(map[string]struct{}, len(sigs))
	stored := make([]Signature, 0, len(sigs))
	for _, sig := range sigs {
		name := strings.TrimSpace(sig.Name)
		if name == "" {
			return nil, errors.New("signature name is required")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate signature %q", name)
		}
		if len(sig.Magic) == 0 && sig.Check == nil {
			return nil, fmt.Errorf("signature %q needs magic bytes or a structural check", name)
		}
		if len(sig.Magic) == 0 && sig.Embedded {
			return nil, fmt.Errorf("signature %q cannot be embedded without magic bytes", name)
		}
		if sig.Offset < 0 {
			return nil, fmt.Errorf("signature %q has negative offset", name)
		}
		seen[name] = struct{}{}
		sig.Name = name
		sig.Magic = append([]byte(nil), sig.Magic...)
		stored = append(stored, sig)
	}
	return &Registry{sigs: stored}, nil
}

// Signatures returns a copy of the registered signatures.
func (r *Registry) Signatures() []Signature {
	if r == nil {
		return nil
	}
	out := make([]Signature, len(r.sigs))
	copy(out, r.sigs)
	return out
}

// Lookup returns the signature registered under name.
func (r *Registry) Lookup(name string) (Signature, bool) {
	if r == nil {
		return Signature{}, false
	}
	for _, sig := range r.sigs {
		if sig.Name == name {
			return sig, true
		}
	}
	return Signature{}, false
}

// Match classifies data against every signature in reg and returns the
// candidates in rank order. No match is an empty result, never an error.
func Match(data []byte, reg *Registry) []Candidate {
	if reg == nil || len(data) == 0 {
		return nil
	}
	var out []Candidate
	for _, sig := range reg.sigs {
		if cand, ok := sig.Probe(data); ok {
			out = append(out, cand)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})
	return out
}

// Probe reports the best placement of sig inside data. A resource starting at
// byte 0 is an exact match; one found further in is a superset match.
func (s Signature) Probe(data []byte) (Candidate, bool) {
	if s.matchesAt(data, 0) {
		return Candidate{Signature: s, Base: 0, Confidence: ConfidenceExact}, true
	}
	if !s.Embedded || len(s.Magic) == 0 {
		return Candidate{}, false
	}

	from := s.Offset + 1
	for from < len(data) {
		idx := bytes.Index(data[from:], s.Magic)
		if idx < 0 {
			break
		}
		pos := from + idx
		base := pos - s.Offset
		if base > 0 && s.matchesAt(data, base) {
			return Candidate{Signature: s, Base: base, Confidence: ConfidenceSuperset}, true
		}
		from = pos + 1
	}
	return Candidate{}, false
}

func (s Signature) matchesAt(data []byte, base int) bool {
	if len(s.Magic) > 0 {
		start := base + s.Offset
		if start < 0 || !hasPrefix(data[min(start, len(data)):], s.Magic) {
			return false
		}
	}
	if s.Check != nil {
		return s.Check(data, base)
	}
	return true
}

// Less orders candidates: confidence, then priority, then earlier base, then
// name. The order is total so results never depend on registration order.
func Less(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Signature.Priority != b.Signature.Priority {
		return a.Signature.Priority > b.Signature.Priority
	}
	if a.Base != b.Base {
		return a.Base < b.Base
	}
	return a.Signature.Name < b.Signature.Name
}

// SniffReader reads at most n bytes from r and matches them against reg.
func SniffReader(r io.Reader, n int64, reg *Registry) ([]Candidate, error) {
	header, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, err
	}
	return Match(header, reg), nil
}

// HasPrefix reports whether buf starts with prefix.
func HasPrefix(buf, prefix []byte) bool {
	return hasPrefix(buf, prefix)
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
