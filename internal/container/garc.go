package container

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// GARCMagic is "GARC" stored little-endian.
var GARCMagic = []byte("CRAG")

const (
	garcHeaderSizeV4 = 0x1C
	garcHeaderSizeV6 = 0x24
	garcVersion4     = 0x0400
	garcVersion6     = 0x0600
	garcBOM          = 0xFEFF
	garcSectionHead  = 0x0C
)

var (
	fatoMagic = []byte("OTAF")
	fatbMagic = []byte("BTAF")
	fimbMagic = []byte("BMIF")
)

// GARC is a decoded 3DS archive. Each file holds up to 32 subentries indexed
// by their bit in the file's vector.
type GARC struct {
	Version      uint16
	PadToNearest uint32
	Files        []GARCFile
}

// GARCFile is one FATB entry.
type GARCFile struct {
	Subentries []GARCSubentry
}

// GARCSubentry is the payload stored under one vector bit.
type GARCSubentry struct {
	Bit  int
	Data []byte
}

// Entry returns the first subentry of file i.
func (g *GARC) Entry(i int) ([]byte, bool) {
	if i < 0 || i >= len(g.Files) || len(g.Files[i].Subentries) == 0 {
		return nil, false
	}
	return g.Files[i].Subentries[0].Data, true
}

// ParseGARC decodes data. Subentry payloads alias data.
func ParseGARC(data []byte) (*GARC, error) {
	le := binary.LittleEndian
	if len(data) < garcHeaderSizeV4 {
		return nil, fmt.Errorf("garc header: %w", ErrTruncated)
	}
	if string(data[:4]) != string(GARCMagic) {
		return nil, ErrSignatureMismatch
	}

	headerSize, _ := u32(data, 0x04, le)
	bom, _ := u16(data, 0x08, le)
	version, _ := u16(data, 0x0A, le)
	dataOffset, _ := u32(data, 0x10, le)
	garcLength, _ := u32(data, 0x14, le)

	if bom != garcBOM {
		return nil, fmt.Errorf("garc byte order mark 0x%04x: %w", bom, ErrCorrupt)
	}
	switch {
	case version == garcVersion4 && headerSize == garcHeaderSizeV4:
	case version == garcVersion6 && headerSize == garcHeaderSizeV6:
	default:
		return nil, fmt.Errorf("garc version 0x%04x with header size 0x%x: %w", version, headerSize, ErrCorrupt)
	}
	if int64(garcLength) > int64(len(data)) {
		return nil, fmt.Errorf("garc declares %d bytes, have %d: %w", garcLength, len(data), ErrTruncated)
	}

	g := &GARC{Version: version, PadToNearest: 4}
	if version == garcVersion6 {
		pad, ok := u32(data, 0x20, le)
		if !ok {
			return nil, fmt.Errorf("garc v6 header: %w", ErrTruncated)
		}
		if pad != 0 {
			g.PadToNearest = pad
		}
	}

	fato := int(headerSize)
	fatoSize, err := sectionHeader(data, fato, fatoMagic)
	if err != nil {
		return nil, fmt.Errorf("fato: %w", err)
	}
	fileCount, _ := u16(data, fato+8, le)

	fatb := fato + int(fatoSize)
	fatbSize, err := sectionHeader(data, fatb, fatbMagic)
	if err != nil {
		return nil, fmt.Errorf("fatb: %w", err)
	}
	fatbCount, _ := u32(data, fatb+8, le)
	if uint32(fileCount) != fatbCount {
		return nil, fmt.Errorf("fato lists %d files, fatb %d: %w", fileCount, fatbCount, ErrCorrupt)
	}

	fimb := fatb + int(fatbSize)
	if _, err := sectionHeader(data, fimb, fimbMagic); err != nil {
		return nil, fmt.Errorf("fimb: %w", err)
	}
	dataSize, _ := u32(data, fimb+8, le)
	blob, ok := span(data, int(dataOffset), int(dataSize))
	if !ok {
		return nil, fmt.Errorf("garc data block 0x%x+0x%x: %w", dataOffset, dataSize, ErrTruncated)
	}

	entries := fatb + garcSectionHead
	g.Files = make([]GARCFile, fileCount)
	for i := 0; i < int(fileCount); i++ {
		rel, ok := u32(data, fato+garcSectionHead+4*i, le)
		if !ok {
			return nil, fmt.Errorf("fato offset %d: %w", i, ErrTruncated)
		}
		at := entries + int(rel)
		vector, ok := u32(data, at, le)
		if !ok {
			return nil, fmt.Errorf("fatb entry %d: %w", i, ErrTruncated)
		}
		if vector == 0 {
			return nil, fmt.Errorf("fatb entry %d has an empty vector: %w", i, ErrCorrupt)
		}

		file := GARCFile{Subentries: make([]GARCSubentry, 0, bits.OnesCount32(vector))}
		cursor := at + 4
		for bit := 0; bit < 32; bit++ {
			if vector&(1<<uint(bit)) == 0 {
				continue
			}
			start, ok1 := u32(data, cursor, le)
			end, ok2 := u32(data, cursor+4, le)
			length, ok3 := u32(data, cursor+8, le)
			if !ok1 || !ok2 || !ok3 {
				return nil, fmt.Errorf("fatb entry %d bit %d: %w", i, bit, ErrTruncated)
			}
			cursor += 12
			if end < start || length > end-start {
				return nil, fmt.Errorf("fatb entry %d bit %d range 0x%x-0x%x len 0x%x: %w", i, bit, start, end, length, ErrCorrupt)
			}
			payload, ok := span(blob, int(start), int(length))
			if !ok {
				return nil, fmt.Errorf("fatb entry %d bit %d payload: %w", i, bit, ErrTruncated)
			}
			file.Subentries = append(file.Subentries, GARCSubentry{Bit: bit, Data: payload})
		}
		g.Files[i] = file
	}
	return g, nil
}

func sectionHeader(data []byte, at int, magic []byte) (uint32, error) {
	head, ok := span(data, at, garcSectionHead)
	if !ok {
		return 0, ErrTruncated
	}
	if string(head[:4]) != string(magic) {
		return 0, ErrSignatureMismatch
	}
	size := binary.LittleEndian.Uint32(head[4:8])
	if size < garcSectionHead {
		return 0, fmt.Errorf("section size 0x%x: %w", size, ErrCorrupt)
	}
	return size, nil
}

// Bytes serializes g as a version 6 GARC. Payloads are padded with 0xFF to
// PadToNearest.
func (g *GARC) Bytes() ([]byte, error) {
	le := binary.LittleEndian
	pad := int(g.PadToNearest)
	if pad <= 0 {
		pad = 4
	}
	if len(g.Files) > 0xFFFF {
		return nil, fmt.Errorf("garc holds at most 65535 files, have %d", len(g.Files))
	}

	fatoSize := garcSectionHead + 4*len(g.Files)
	fatbSize := garcSectionHead
	for i, f := range g.Files {
		if len(f.Subentries) == 0 {
			return nil, fmt.Errorf("garc file %d has no subentries", i)
		}
		fatbSize += 4 + 12*len(f.Subentries)
	}
	dataOffset := garcHeaderSizeV6 + fatoSize + fatbSize + garcSectionHead

	fato := make([]byte, fatoSize)
	copy(fato, fatoMagic)
	le.PutUint32(fato[4:], uint32(fatoSize))
	le.PutUint16(fato[8:], uint16(len(g.Files)))
	le.PutUint16(fato[10:], 0xFFFF)

	fatb := make([]byte, fatbSize)
	copy(fatb, fatbMagic)
	le.PutUint32(fatb[4:], uint32(fatbSize))
	le.PutUint32(fatb[8:], uint32(len(g.Files)))

	var blob []byte
	var largestPadded, largestUnpadded int
	cursor := garcSectionHead
	for i, f := range g.Files {
		le.PutUint32(fato[garcSectionHead+4*i:], uint32(cursor-garcSectionHead))
		var vector uint32
		for _, sub := range f.Subentries {
			if sub.Bit < 0 || sub.Bit > 31 || vector&(1<<uint(sub.Bit)) != 0 {
				return nil, fmt.Errorf("garc file %d has invalid or repeated bit %d", i, sub.Bit)
			}
			vector |= 1 << uint(sub.Bit)
		}
		le.PutUint32(fatb[cursor:], vector)
		cursor += 4

		for bit := 0; bit < 32; bit++ {
			if vector&(1<<uint(bit)) == 0 {
				continue
			}
			sub := subentryForBit(f, bit)
			start := len(blob)
			blob = append(blob, sub.Data...)
			for len(blob)%pad != 0 {
				blob = append(blob, 0xFF)
			}
			le.PutUint32(fatb[cursor:], uint32(start))
			le.PutUint32(fatb[cursor+4:], uint32(len(blob)))
			le.PutUint32(fatb[cursor+8:], uint32(len(sub.Data)))
			cursor += 12

			largestUnpadded = max(largestUnpadded, len(sub.Data))
			largestPadded = max(largestPadded, len(blob)-start)
		}
	}

	fimb := make([]byte, garcSectionHead)
	copy(fimb, fimbMagic)
	le.PutUint32(fimb[4:], garcSectionHead)
	le.PutUint32(fimb[8:], uint32(len(blob)))

	header := make([]byte, garcHeaderSizeV6)
	copy(header, GARCMagic)
	le.PutUint32(header[0x04:], garcHeaderSizeV6)
	le.PutUint16(header[0x08:], garcBOM)
	le.PutUint16(header[0x0A:], garcVersion6)
	le.PutUint32(header[0x0C:], 4)
	le.PutUint32(header[0x10:], uint32(dataOffset))
	le.PutUint32(header[0x14:], uint32(dataOffset+len(blob)))
	le.PutUint32(header[0x18:], uint32(largestPadded))
	le.PutUint32(header[0x1C:], uint32(largestUnpadded))
	le.PutUint32(header[0x20:], uint32(pad))

	out := make([]byte, 0, dataOffset+len(blob))
	out = append(out, header...)
	out = append(out, fato...)
	out = append(out, fatb...)
	out = append(out, fimb...)
	out = append(out, blob...)
	return out, nil
}

func subentryForBit(f GARCFile, bit int) GARCSubentry {
	for _, sub := range f.Subentries {
		if sub.Bit == bit {
			return sub
		}
	}
	return GARCSubentry{Bit: bit}
}

// NewGARC builds an archive with one subentry per file.
func NewGARC(files [][]byte) *GARC {
	g := &GARC{Version: garcVersion6, PadToNearest: 4, Files: make([]GARCFile, len(files))}
	for i, data := range files {
		g.Files[i] = GARCFile{Subentries: []GARCSubentry{{Bit: 0, Data: data}}}
	}
	return g
}
