package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"romforge/pkg/sigmatch"
)

// Candidate is a profile whose markers are all present in a folder.
type Candidate struct {
	Profile Profile
	// Confidence is Superset when another satisfied profile's markers
	// strictly contain this profile's, Exact otherwise.
	Confidence sigmatch.Confidence
	// Matched is the number of markers the folder satisfied.
	Matched int
}

// Less orders candidates by coverage, then priority, then name.
func Less(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Matched != b.Matched {
		return a.Matched > b.Matched
	}
	if a.Profile.Priority != b.Profile.Priority {
		return a.Profile.Priority > b.Profile.Priority
	}
	return a.Profile.Game.Name < b.Profile.Game.Name
}

// Tied reports whether neither candidate outranks the other on coverage and
// priority.
func Tied(a, b Candidate) bool {
	return a.Confidence == b.Confidence && a.Matched == b.Matched && a.Profile.Priority == b.Profile.Priority
}

type markerResult struct {
	key     string
	present bool
	err     error
}

// Match evaluates every distinct registered marker against fsys, one
// goroutine per marker, and returns the satisfied profiles in rank order.
// An empty folder yields no candidates and no error. Marker I/O errors other
// than "not found" are joined and returned after every marker has finished.
func Match(fsys fs.FS, reg *Registry) ([]Candidate, error) {
	if reg == nil {
		return nil, nil
	}

	markers := make(map[string]Marker)
	for _, p := range reg.profiles {
		for _, m := range p.Markers {
			if _, ok := markers[m.Key()]; !ok {
				markers[m.Key()] = m
			}
		}
	}

	results := make(chan markerResult, len(markers))
	var wg sync.WaitGroup
	for key, m := range markers {
		wg.Add(1)
		go func(key string, m Marker) {
			defer wg.Done()
			ok, err := m.Present(fsys)
			if err != nil {
				err = fmt.Errorf("marker %s: %w", key, err)
			}
			results <- markerResult{key: key, present: ok, err: err}
		}(key, m)
	}
	wg.Wait()
	close(results)

	present := make(map[string]bool, len(markers))
	var errs []error
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		present[r.key] = r.present
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, errors.Join(errs...)
	}

	var out []Candidate
	var keys []map[string]struct{}
	for _, p := range reg.profiles {
		own := make(map[string]struct{}, len(p.Markers))
		for _, m := range p.Markers {
			if !present[m.Key()] {
				own = nil
				break
			}
			own[m.Key()] = struct{}{}
		}
		if own == nil {
			continue
		}
		out = append(out, Candidate{Profile: p, Confidence: sigmatch.ConfidenceExact, Matched: len(own)})
		keys = append(keys, own)
	}
	for i := range out {
		for j := range out {
			if i != j && strictSubset(keys[i], keys[j]) {
				out[i].Confidence = sigmatch.ConfidenceSuperset
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out, nil
}

func strictSubset(a, b map[string]struct{}) bool {
	if len(a) >= len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
