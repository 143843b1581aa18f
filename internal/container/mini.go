package container

import (
	"encoding/binary"
	"fmt"
)

// MiniIdentifiers lists the two-letter tags of mini packs shipped by the
// supported 3DS titles.
var MiniIdentifiers = []string{"AD", "BL", "EG", "EV", "LV", "MM", "PC", "PK", "WD", "ZI"}

// Mini is a small offset-table pack: a two-letter identifier, a file count,
// count+1 little-endian offsets and the concatenated payloads.
type Mini struct {
	Ident   string
	Entries [][]byte
}

func miniHeaderSize(count int) int {
	return 4 + 4*(count+1)
}

// IsMiniHeader reports whether data starts with a plausible mini pack header.
// It does not require the payload to be complete.
func IsMiniHeader(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	ident := string(data[:2])
	known := false
	for _, id := range MiniIdentifiers {
		if id == ident {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	count := int(binary.LittleEndian.Uint16(data[2:4]))
	if count == 0 {
		return false
	}
	first, ok := u32(data, 4, binary.LittleEndian)
	return ok && int(first) == miniHeaderSize(count)
}

// ParseMini decodes a mini pack. Entries alias data.
func ParseMini(data []byte) (*Mini, error) {
	le := binary.LittleEndian
	if len(data) < 8 {
		return nil, fmt.Errorf("mini header: %w", ErrTruncated)
	}
	if !IsMiniHeader(data) {
		return nil, ErrSignatureMismatch
	}

	count := int(le.Uint16(data[2:4]))
	headerSize := miniHeaderSize(count)
	if len(data) < headerSize {
		return nil, fmt.Errorf("mini offset table for %d entries: %w", count, ErrTruncated)
	}

	m := &Mini{Ident: string(data[:2]), Entries: make([][]byte, count)}
	prev := uint32(headerSize)
	for i := 0; i < count; i++ {
		end := le.Uint32(data[4+4*(i+1):])
		if end < prev {
			return nil, fmt.Errorf("mini entry %d ends at 0x%x before it starts at 0x%x: %w", i, end, prev, ErrCorrupt)
		}
		if int64(end) > int64(len(data)) {
			return nil, fmt.Errorf("mini entry %d ends at 0x%x past 0x%x: %w", i, end, len(data), ErrTruncated)
		}
		m.Entries[i] = data[prev:end]
		prev = end
	}
	return m, nil
}

// Bytes serializes m.
func (m *Mini) Bytes() ([]byte, error) {
	if len(m.Ident) != 2 {
		return nil, fmt.Errorf("mini identifier %q must be two bytes", m.Ident)
	}
	if len(m.Entries) == 0 || len(m.Entries) > 0xFFFF {
		return nil, fmt.Errorf("mini entry count %d out of range", len(m.Entries))
	}

	headerSize := miniHeaderSize(len(m.Entries))
	total := headerSize
	for _, e := range m.Entries {
		total += len(e)
	}

	out := make([]byte, headerSize, total)
	copy(out, m.Ident)
	binary.LittleEndian.PutUint16(out[2:], uint16(len(m.Entries)))
	offset := headerSize
	binary.LittleEndian.PutUint32(out[4:], uint32(offset))
	for i, e := range m.Entries {
		offset += len(e)
		binary.LittleEndian.PutUint32(out[4+4*(i+1):], uint32(offset))
	}
	for _, e := range m.Entries {
		out = append(out, e...)
	}
	return out, nil
}
