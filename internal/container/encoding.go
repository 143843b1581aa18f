package container

import "encoding/binary"

// Bounds-checked little/big-endian readers. Every reader reports false instead
// of panicking when the buffer is too short.

func u16(b []byte, off int, order binary.ByteOrder) (uint16, bool) {
	if off < 0 || off+2 > len(b) {
		return 0, false
	}
	return order.Uint16(b[off : off+2]), true
}

func u32(b []byte, off int, order binary.ByteOrder) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return order.Uint32(b[off : off+4]), true
}

func span(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) || n > len(b)-off {
		return nil, false
	}
	return b[off : off+n], true
}

func align(n, to int) int {
	if to <= 1 {
		return n
	}
	if rem := n % to; rem != 0 {
		return n + to - rem
	}
	return n
}
