package container

import (
	"encoding/binary"
	"fmt"
)

// Yaz0Magic starts every Yaz0 compressed block.
var Yaz0Magic = []byte("Yaz0")

const yaz0HeaderSize = 0x10

// yaz0MaxRatio bounds how many bytes one input byte can decode to: a
// three-byte back-reference yields at most 0x111 bytes.
const yaz0MaxRatio = 0x111/3 + 1

// Yaz0Size returns the decompressed size declared by a Yaz0 header.
func Yaz0Size(data []byte) (int, error) {
	if len(data) < yaz0HeaderSize {
		return 0, fmt.Errorf("yaz0 header: %w", ErrTruncated)
	}
	if string(data[:4]) != string(Yaz0Magic) {
		return 0, ErrSignatureMismatch
	}
	size, _ := u32(data, 4, binary.BigEndian)
	return int(size), nil
}

// DecodeYaz0 decompresses a Yaz0 block. A stream that ends before the
// declared size is reached is reported as ErrTruncated; a declared size the
// stream could never expand to is ErrCorrupt.
func DecodeYaz0(data []byte) ([]byte, error) {
	size, err := Yaz0Size(data)
	if err != nil {
		return nil, err
	}
	if limit := int64(len(data)-yaz0HeaderSize) * yaz0MaxRatio; int64(size) > limit {
		return nil, fmt.Errorf("yaz0 declares %d bytes from a %d byte stream: %w", size, len(data), ErrCorrupt)
	}

	out := make([]byte, 0, min(size, 8*len(data)))
	src := yaz0HeaderSize
	for len(out) < size {
		if src >= len(data) {
			return nil, fmt.Errorf("yaz0 group header at 0x%x: %w", src, ErrTruncated)
		}
		group := data[src]
		src++

		for bit := 7; bit >= 0 && len(out) < size; bit-- {
			if group&(1<<uint(bit)) != 0 {
				if src >= len(data) {
					return nil, fmt.Errorf("yaz0 literal at 0x%x: %w", src, ErrTruncated)
				}
				out = append(out, data[src])
				src++
				continue
			}

			if src+1 >= len(data) {
				return nil, fmt.Errorf("yaz0 back-reference at 0x%x: %w", src, ErrTruncated)
			}
			b1, b2 := data[src], data[src+1]
			src += 2

			dist := (int(b1&0x0f)<<8 | int(b2)) + 1
			n := int(b1 >> 4)
			if n == 0 {
				if src >= len(data) {
					return nil, fmt.Errorf("yaz0 run length at 0x%x: %w", src, ErrTruncated)
				}
				n = int(data[src]) + 0x12
				src++
			} else {
				n += 2
			}

			if dist > len(out) {
				return nil, fmt.Errorf("yaz0 back-reference distance %d beyond %d decoded bytes: %w", dist, len(out), ErrCorrupt)
			}
			for i := 0; i < n && len(out) < size; i++ {
				out = append(out, out[len(out)-dist])
			}
		}
	}
	return out, nil
}

// EncodeYaz0Stored wraps data in a Yaz0 block made only of literals. Game
// loaders accept it and it keeps rebuilt blocks byte-exact to decode.
func EncodeYaz0Stored(data []byte) []byte {
	out := make([]byte, yaz0HeaderSize, yaz0HeaderSize+len(data)+len(data)/8+1)
	copy(out, Yaz0Magic)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(data)))
	for i := 0; i < len(data); i += 8 {
		end := min(i+8, len(data))
		out = append(out, byte(0xff<<uint(8-(end-i))))
		out = append(out, data[i:end]...)
	}
	return out
}
