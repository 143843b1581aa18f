package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SARCMagic starts every SARC archive.
var SARCMagic = []byte("SARC")

const (
	sarcHeaderSize = 0x14
	sfatHeaderSize = 0x0C
	sfatNodeSize   = 0x10
	sfntHeaderSize = 0x08
	sarcHashKey    = 0x65
)

// SARC is a decoded Switch/Wii U archive.
type SARC struct {
	BigEndian bool
	HashKey   uint32
	Files     []SARCFile
}

// SARCFile is one archive member. Unnamed members carry only their hash.
type SARCFile struct {
	Name string
	Hash uint32
	Data []byte
}

// SARCNameHash is the name hash SFAT nodes are sorted by.
func SARCNameHash(name string, key uint32) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*key + uint32(int8(name[i]))
	}
	return h
}

func sarcOrder(data []byte) (binary.ByteOrder, bool, error) {
	switch {
	case data[6] == 0xFE && data[7] == 0xFF:
		return binary.BigEndian, true, nil
	case data[6] == 0xFF && data[7] == 0xFE:
		return binary.LittleEndian, false, nil
	default:
		return nil, false, fmt.Errorf("sarc byte order mark %02x%02x: %w", data[6], data[7], ErrCorrupt)
	}
}

// ParseSARC decodes data. File payloads alias data.
func ParseSARC(data []byte) (*SARC, error) {
	if len(data) < sarcHeaderSize {
		return nil, fmt.Errorf("sarc header: %w", ErrTruncated)
	}
	if !bytes.Equal(data[:4], SARCMagic) {
		return nil, ErrSignatureMismatch
	}
	order, big, err := sarcOrder(data)
	if err != nil {
		return nil, err
	}

	headerLen, _ := u16(data, 4, order)
	fileSize, _ := u32(data, 8, order)
	dataOffset, _ := u32(data, 12, order)
	if headerLen != sarcHeaderSize {
		return nil, fmt.Errorf("sarc header length 0x%x: %w", headerLen, ErrCorrupt)
	}
	if int64(fileSize) > int64(len(data)) {
		return nil, fmt.Errorf("sarc declares %d bytes, have %d: %w", fileSize, len(data), ErrTruncated)
	}
	if dataOffset > fileSize {
		return nil, fmt.Errorf("sarc data offset 0x%x past end 0x%x: %w", dataOffset, fileSize, ErrCorrupt)
	}

	sfat := sarcHeaderSize
	head, ok := span(data, sfat, sfatHeaderSize)
	if !ok {
		return nil, fmt.Errorf("sfat header: %w", ErrTruncated)
	}
	if string(head[:4]) != "SFAT" {
		return nil, fmt.Errorf("sfat: %w", ErrSignatureMismatch)
	}
	nodeCount := int(order.Uint16(head[6:8]))
	hashKey := order.Uint32(head[8:12])

	sfnt := sfat + sfatHeaderSize + nodeCount*sfatNodeSize
	names, ok := span(data, sfnt, sfntHeaderSize)
	if !ok {
		return nil, fmt.Errorf("sfnt header: %w", ErrTruncated)
	}
	if string(names[:4]) != "SFNT" {
		return nil, fmt.Errorf("sfnt: %w", ErrSignatureMismatch)
	}
	nameTable := sfnt + sfntHeaderSize
	if nameTable > int(dataOffset) {
		return nil, fmt.Errorf("sfnt overlaps data at 0x%x: %w", dataOffset, ErrCorrupt)
	}

	blob := data[dataOffset:fileSize]
	s := &SARC{BigEndian: big, HashKey: hashKey, Files: make([]SARCFile, 0, nodeCount)}
	for i := 0; i < nodeCount; i++ {
		node := data[sfat+sfatHeaderSize+i*sfatNodeSize:]
		hash := order.Uint32(node[0:4])
		attrs := order.Uint32(node[4:8])
		start := order.Uint32(node[8:12])
		end := order.Uint32(node[12:16])
		if end < start {
			return nil, fmt.Errorf("sfat node %d range 0x%x-0x%x: %w", i, start, end, ErrCorrupt)
		}
		payload, ok := span(blob, int(start), int(end-start))
		if !ok {
			return nil, fmt.Errorf("sfat node %d payload: %w", i, ErrTruncated)
		}

		file := SARCFile{Hash: hash, Data: payload}
		if attrs>>24 != 0 {
			at := nameTable + int(attrs&0xFFFF)*4
			if at >= int(dataOffset) {
				return nil, fmt.Errorf("sfat node %d name offset: %w", i, ErrCorrupt)
			}
			nul := bytes.IndexByte(data[at:dataOffset], 0)
			if nul < 0 {
				return nil, fmt.Errorf("sfat node %d name is unterminated: %w", i, ErrCorrupt)
			}
			file.Name = string(data[at : at+nul])
		}
		s.Files = append(s.Files, file)
	}
	return s, nil
}

// NewSARCBytes builds a little-endian SARC holding files in the given order,
// sorting SFAT nodes by name hash as the format requires.
func NewSARCBytes(files []SARCFile) []byte {
	le := binary.LittleEndian
	type node struct {
		hash    uint32
		nameOff int
		data    []byte
	}

	var names []byte
	nodes := make([]node, len(files))
	for i, f := range files {
		nodes[i] = node{hash: SARCNameHash(f.Name, sarcHashKey), nameOff: len(names), data: f.Data}
		names = append(names, f.Name...)
		names = append(names, 0)
		for len(names)%4 != 0 {
			names = append(names, 0)
		}
	}
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j].hash < nodes[j-1].hash; j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}

	dataOffset := align(sarcHeaderSize+sfatHeaderSize+len(nodes)*sfatNodeSize+sfntHeaderSize+len(names), 0x10)
	out := make([]byte, dataOffset)
	copy(out, SARCMagic)
	le.PutUint16(out[4:], sarcHeaderSize)
	out[6], out[7] = 0xFF, 0xFE
	le.PutUint32(out[12:], uint32(dataOffset))
	le.PutUint16(out[16:], 0x0100)

	sfat := out[sarcHeaderSize:]
	copy(sfat, "SFAT")
	le.PutUint16(sfat[4:], sfatHeaderSize)
	le.PutUint16(sfat[6:], uint16(len(nodes)))
	le.PutUint32(sfat[8:], sarcHashKey)

	var blob []byte
	for i, n := range nodes {
		at := sfat[sfatHeaderSize+i*sfatNodeSize:]
		le.PutUint32(at[0:], n.hash)
		le.PutUint32(at[4:], 0x01000000|uint32(n.nameOff/4))
		for len(blob)%4 != 0 {
			blob = append(blob, 0)
		}
		le.PutUint32(at[8:], uint32(len(blob)))
		blob = append(blob, n.data...)
		le.PutUint32(at[12:], uint32(len(blob)))
	}

	sfnt := out[sarcHeaderSize+sfatHeaderSize+len(nodes)*sfatNodeSize:]
	copy(sfnt, "SFNT")
	le.PutUint16(sfnt[4:], sfntHeaderSize)
	copy(sfnt[sfntHeaderSize:], names)

	out = append(out, blob...)
	le.PutUint32(out[8:], uint32(len(out)))
	return out
}
