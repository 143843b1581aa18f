package ripper

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"romforge/internal/container"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// maxPNGChunk bounds a single chunk; the format caps lengths at 2^31-1.
const maxPNGChunk = 1<<31 - 1

// carvePNG walks the chunk list starting at base and returns the image
// through its IEND chunk. Every chunk CRC is verified.
func carvePNG(data []byte, base int) ([]byte, map[string]string, error) {
	pos := base + len(pngSignature)
	if pos > len(data) {
		return nil, nil, fmt.Errorf("png signature: %w", container.ErrTruncated)
	}

	details := map[string]string{}
	chunks := 0
	for {
		if pos+8 > len(data) {
			return nil, nil, fmt.Errorf("png chunk header at 0x%x: %w", pos, container.ErrTruncated)
		}
		length := binary.BigEndian.Uint32(data[pos:])
		if length > maxPNGChunk {
			return nil, nil, fmt.Errorf("png chunk length 0x%x: %w", length, container.ErrCorrupt)
		}
		chunkType := data[pos+4 : pos+8]
		end := pos + 12 + int(length)
		if end > len(data) || end < pos {
			return nil, nil, fmt.Errorf("png %s chunk at 0x%x: %w", chunkType, pos, container.ErrTruncated)
		}

		body := data[pos+8 : pos+8+int(length)]
		want := binary.BigEndian.Uint32(data[pos+8+int(length):])
		crc := crc32.NewIEEE()
		_, _ = crc.Write(chunkType)
		_, _ = crc.Write(body)
		if crc.Sum32() != want {
			return nil, nil, fmt.Errorf("png %s chunk at 0x%x has bad crc: %w", chunkType, pos, container.ErrCorrupt)
		}

		name := string(chunkType)
		if chunks == 0 && name != "IHDR" {
			return nil, nil, fmt.Errorf("png starts with %s instead of IHDR: %w", name, container.ErrCorrupt)
		}
		switch name {
		case "IHDR":
			if len(body) >= 8 {
				details["dimensions"] = fmt.Sprintf("%dx%d", binary.BigEndian.Uint32(body), binary.BigEndian.Uint32(body[4:]))
			}
		case "tEXt":
			if key, _, ok := cutNUL(body); ok {
				details["text:"+key] = "present"
			}
		case "eXIf":
			for k, v := range exifDetails(body) {
				details[k] = v
			}
		}
		chunks++
		pos = end

		if name == "IEND" {
			details["chunks"] = fmt.Sprint(chunks)
			return data[base:pos], details, nil
		}
	}
}

func cutNUL(b []byte) (string, []byte, bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), b[i+1:], i > 0
		}
	}
	return "", nil, false
}

func extractPNG(data []byte, base int) (artifact, error) {
	img, details, err := carvePNG(data, base)
	if err != nil {
		return artifact{}, err
	}
	return artifact{ext: "png", data: img, details: details}, nil
}
