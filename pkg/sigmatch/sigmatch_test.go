package sigmatch

import (
	"bytes"
	"strings"
	"testing"
)

var (
	pngSig  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig = []byte{0xff, 0xd8, 0xff}
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()

	reg, err := NewRegistry(
		Signature{Name: "png", Magic: pngSig, Priority: 10, Embedded: true},
		Signature{Name: "jpeg", Magic: jpegSig, Priority: 10, Embedded: true},
		Signature{Name: "yaz0", Magic: []byte("Yaz0"), Priority: 20},
		Signature{Name: "even", Priority: 1, Check: func(data []byte, base int) bool {
			return len(data) >= 4 && len(data)%2 == 0 && data[0] == 'E'
		}},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestMatchEmptyInput(t *testing.T) {
	reg := testRegistry(t)
	if got := Match(nil, reg); len(got) != 0 {
		t.Fatalf("expected no candidates for empty input, got %#v", got)
	}
	if got := Match([]byte{0xff, 0xff, 0xff, 0xff}, reg); len(got) != 0 {
		t.Fatalf("expected no candidates for unknown header, got %#v", got)
	}
}

func TestMatchExactBeatsEmbedded(t *testing.T) {
	reg := testRegistry(t)

	data := append([]byte("Yaz0"), make([]byte, 12)...)
	data = append(data, pngSig...)

	got := Match(data, reg)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %#v", len(got), got)
	}
	if got[0].Signature.Name != "yaz0" || got[0].Confidence != ConfidenceExact {
		t.Fatalf("expected exact yaz0 first, got %#v", got[0])
	}
	if got[1].Signature.Name != "png" || got[1].Confidence != ConfidenceSuperset || got[1].Base != 16 {
		t.Fatalf("expected embedded png at 16, got %#v", got[1])
	}
}

func TestMatchOrderIndependentOfRegistration(t *testing.T) {
	a, err := NewRegistry(
		Signature{Name: "a", Magic: []byte("AB"), Priority: 1},
		Signature{Name: "b", Magic: []byte("A"), Priority: 2},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	b, err := NewRegistry(
		Signature{Name: "b", Magic: []byte("A"), Priority: 2},
		Signature{Name: "a", Magic: []byte("AB"), Priority: 1},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	data := []byte("ABCD")
	ga, gb := Match(data, a), Match(data, b)
	if len(ga) != 2 || len(gb) != 2 {
		t.Fatalf("expected two candidates each, got %d and %d", len(ga), len(gb))
	}
	for i := range ga {
		if ga[i].Signature.Name != gb[i].Signature.Name {
			t.Fatalf("rank %d differs: %s vs %s", i, ga[i].Signature.Name, gb[i].Signature.Name)
		}
	}
	if ga[0].Signature.Name != "b" {
		t.Fatalf("expected higher priority first, got %s", ga[0].Signature.Name)
	}
}

func TestStructuralSignature(t *testing.T) {
	reg := testRegistry(t)

	if got := Match([]byte("Even"), reg); len(got) != 1 || got[0].Signature.Name != "even" {
		t.Fatalf("expected structural match, got %#v", got)
	}
	if got := Match([]byte("Odd"), reg); len(got) != 0 {
		t.Fatalf("expected no structural match, got %#v", got)
	}
}

func TestEmbeddedCheckRejectsFalsePositive(t *testing.T) {
	reg, err := NewRegistry(Signature{
		Name:     "jpeg",
		Magic:    jpegSig,
		Embedded: true,
		Check: func(data []byte, base int) bool {
			return base+3 < len(data) && data[base+3] >= 0xe0
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	data := []byte{0x00, 0xff, 0xd8, 0xff, 0x00, 0x11, 0xff, 0xd8, 0xff, 0xe1}
	got := Match(data, reg)
	if len(got) != 1 || got[0].Base != 6 {
		t.Fatalf("expected second occurrence at 6, got %#v", got)
	}
}

func TestNewRegistryRejectsBadSignatures(t *testing.T) {
	cases := []struct {
		name string
		sigs []Signature
		want string
	}{
		{"empty name", []Signature{{Magic: []byte("x")}}, "name is required"},
		{"duplicate", []Signature{{Name: "a", Magic: []byte("x")}, {Name: "a", Magic: []byte("y")}}, "duplicate"},
		{"no probe", []Signature{{Name: "a"}}, "magic bytes or a structural check"},
		{"embedded structural", []Signature{{Name: "a", Embedded: true, Check: func([]byte, int) bool { return true }}}, "cannot be embedded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.sigs...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSniffReaderLimitsHeader(t *testing.T) {
	reg := testRegistry(t)

	data := append(make([]byte, 64), pngSig...)
	got, err := SniffReader(bytes.NewReader(data), 32, reg)
	if err != nil {
		t.Fatalf("SniffReader: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected header window to hide png, got %#v", got)
	}

	got, err = SniffReader(bytes.NewReader(pngSig), 32, reg)
	if err != nil {
		t.Fatalf("SniffReader: %v", err)
	}
	if len(got) != 1 || got[0].Confidence != ConfidenceExact {
		t.Fatalf("expected exact png, got %#v", got)
	}
}
