package container

import (
	"bytes"
	"errors"
	"testing"
)

func yaz0Stream(size uint32, body ...byte) []byte {
	out := []byte{'Y', 'a', 'z', '0', byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)}
	out = append(out, make([]byte, 8)...)
	return append(out, body...)
}

func TestDecodeYaz0BackReference(t *testing.T) {
	data := yaz0Stream(6, 0xC0, 'a', 'b', 0x20, 0x01)
	got, err := DecodeYaz0(data)
	if err != nil {
		t.Fatalf("DecodeYaz0: %v", err)
	}
	if string(got) != "ababab" {
		t.Fatalf("expected ababab, got %q", got)
	}
}

func TestDecodeYaz0Truncated(t *testing.T) {
	data := yaz0Stream(10, 0xC0, 'a', 'b', 0x20, 0x01)
	if _, err := DecodeYaz0(data); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if _, err := DecodeYaz0([]byte("Yaz0")); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for short header, got %v", err)
	}
	if _, err := DecodeYaz0(bytes.Repeat([]byte{0xff}, 16)); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestDecodeYaz0RejectsImpossibleSize(t *testing.T) {
	data := yaz0Stream(0xffffffff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
	if _, err := DecodeYaz0(data); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestEncodeYaz0StoredDecodes(t *testing.T) {
	payload := []byte("stored blocks keep every byte as a literal")
	got, err := DecodeYaz0(EncodeYaz0Stored(payload))
	if err != nil {
		t.Fatalf("DecodeYaz0: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}

func TestGARCRoundTrip(t *testing.T) {
	raw, err := NewGARC([][]byte{[]byte("one"), []byte("three"), {0x01}}).Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	g, err := ParseGARC(raw)
	if err != nil {
		t.Fatalf("ParseGARC: %v", err)
	}
	if len(g.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(g.Files))
	}
	if entry, ok := g.Entry(1); !ok || string(entry) != "three" {
		t.Fatalf("expected entry 1 to be three, got %q", entry)
	}
	if _, ok := g.Entry(3); ok {
		t.Fatalf("expected entry 3 to be missing")
	}

	again, err := g.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Fatalf("expected unmodified archive to serialize identically")
	}
}

func TestParseGARCTruncated(t *testing.T) {
	raw, err := NewGARC([][]byte{[]byte("payload")}).Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if _, err := ParseGARC(raw[:len(raw)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestMiniRoundTrip(t *testing.T) {
	m := &Mini{Ident: "PK", Entries: [][]byte{[]byte("abc"), {}, []byte("defg")}}
	raw, err := m.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !IsMiniHeader(raw) {
		t.Fatalf("expected serialized pack to look like a mini header")
	}

	got, err := ParseMini(raw)
	if err != nil {
		t.Fatalf("ParseMini: %v", err)
	}
	if got.Ident != "PK" || len(got.Entries) != 3 || string(got.Entries[2]) != "defg" {
		t.Fatalf("unexpected pack %#v", got)
	}
	if _, err := ParseMini(raw[:len(raw)-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestIsMiniHeaderRejectsUnknownIdent(t *testing.T) {
	m := &Mini{Ident: "QQ", Entries: [][]byte{[]byte("x")}}
	raw, err := m.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if IsMiniHeader(raw) {
		t.Fatalf("expected unknown identifier to be rejected")
	}
}

func TestSARCRoundTrip(t *testing.T) {
	raw := NewSARCBytes([]SARCFile{
		{Name: "field/zone.bin", Data: []byte("zone")},
		{Name: "a.bin", Data: []byte("alpha")},
	})

	s, err := ParseSARC(raw)
	if err != nil {
		t.Fatalf("ParseSARC: %v", err)
	}
	if s.BigEndian {
		t.Fatalf("expected little-endian archive")
	}
	byName := make(map[string]string)
	for _, f := range s.Files {
		if f.Hash != SARCNameHash(f.Name, s.HashKey) {
			t.Fatalf("hash mismatch for %s", f.Name)
		}
		byName[f.Name] = string(f.Data)
	}
	if byName["a.bin"] != "alpha" || byName["field/zone.bin"] != "zone" {
		t.Fatalf("unexpected files %#v", byName)
	}

	if _, err := ParseSARC(raw[:len(raw)-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	table := &TextTable{Lines: []string{
		"Hello",
		`Line\nTwo`,
		"[VAR 0100(0001)]x",
		`\[bracket`,
		"ポケモン",
	}}
	raw, err := table.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !IsText(raw) {
		t.Fatalf("expected serialized table to be recognized")
	}

	got, err := ParseText(raw)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if len(got.Lines) != len(table.Lines) {
		t.Fatalf("expected %d lines, got %d", len(table.Lines), len(got.Lines))
	}
	for i := range table.Lines {
		if got.Lines[i] != table.Lines[i] {
			t.Fatalf("line %d: expected %q, got %q", i, table.Lines[i], got.Lines[i])
		}
	}
}

func TestIsTextRejectsArbitraryData(t *testing.T) {
	if IsText(bytes.Repeat([]byte{0xff}, 64)) {
		t.Fatalf("expected 0xff fill to be rejected")
	}
	if IsText(nil) {
		t.Fatalf("expected empty input to be rejected")
	}
}
