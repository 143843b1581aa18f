package ripper

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"romforge/internal/container"
)

var (
	jpegSOI        = []byte{0xff, 0xd8, 0xff}
	jpegExifHeader = []byte("Exif\x00\x00")
)

// jpegPlausible rejects SOI lookalikes: the byte after the first marker
// prefix must be a real segment marker.
func jpegPlausible(data []byte, base int) bool {
	i := base + len(jpegSOI)
	return i < len(data) && data[i] >= 0xc0 && data[i] != 0xff
}

// carveJPEG walks segments from base and returns the image through EOI.
func carveJPEG(data []byte, base int) ([]byte, map[string]string, error) {
	details := map[string]string{}
	pos := base + 2
	for {
		if pos+2 > len(data) {
			return nil, nil, fmt.Errorf("jpeg marker at 0x%x: %w", pos, container.ErrTruncated)
		}
		if data[pos] != 0xff {
			return nil, nil, fmt.Errorf("jpeg expected marker at 0x%x, found 0x%02x: %w", pos, data[pos], container.ErrCorrupt)
		}
		marker := data[pos+1]
		switch {
		case marker == 0xff:
			pos++
			continue
		case marker == 0xd9:
			return data[base : pos+2], details, nil
		case marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7):
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil, nil, fmt.Errorf("jpeg segment length at 0x%x: %w", pos, container.ErrTruncated)
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2:]))
		if segLen < 2 {
			return nil, nil, fmt.Errorf("jpeg segment length %d at 0x%x: %w", segLen, pos, container.ErrCorrupt)
		}
		end := pos + 2 + segLen
		if end > len(data) {
			return nil, nil, fmt.Errorf("jpeg segment 0x%02x at 0x%x: %w", marker, pos, container.ErrTruncated)
		}
		payload := data[pos+4 : end]

		switch {
		case marker == 0xe1 && bytes.HasPrefix(payload, jpegExifHeader):
			for k, v := range exifDetails(payload[len(jpegExifHeader):]) {
				details[k] = v
			}
		case marker >= 0xc0 && marker <= 0xc3 && len(payload) >= 5:
			details["dimensions"] = fmt.Sprintf("%dx%d", binary.BigEndian.Uint16(payload[3:]), binary.BigEndian.Uint16(payload[1:]))
		}

		if marker != 0xda {
			pos = end
			continue
		}

		scan, err := scanEnd(data, end)
		if err != nil {
			return nil, nil, err
		}
		pos = scan
	}
}

// scanEnd skips entropy-coded data and returns the offset of the next real
// marker. Stuffed 0xFF00 bytes and restart markers belong to the scan.
func scanEnd(data []byte, pos int) (int, error) {
	for pos+1 < len(data) {
		if data[pos] != 0xff {
			pos++
			continue
		}
		next := data[pos+1]
		if next == 0x00 || (next >= 0xd0 && next <= 0xd7) || next == 0xff {
			pos++
			continue
		}
		return pos, nil
	}
	return 0, fmt.Errorf("jpeg scan data without end marker: %w", container.ErrTruncated)
}

// exifDetails summarizes camera and timestamp tags of a TIFF-format EXIF
// block. Blocks that do not parse yield no details.
func exifDetails(tiff []byte) map[string]string {
	out := map[string]string{}
	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(bytes.NewReader(tiff), nil, true)
	if err != nil {
		return out
	}
	for _, tag := range tags {
		switch {
		case tag.TagName == "Make" || tag.TagName == "Model" || tag.TagName == "Software":
			out["exif:"+tag.TagName] = strings.TrimSpace(tag.FormattedFirst)
		case tag.TagName == "DateTime" || tag.TagName == "DateTimeOriginal":
			out["exif:"+tag.TagName] = strings.TrimSpace(tag.FormattedFirst)
		case strings.HasPrefix(tag.TagName, "GPS") || strings.Contains(tag.IfdPath, "GPS"):
			out["exif:gps"] = "present"
		}
	}
	return out
}

func extractJPEG(data []byte, base int) (artifact, error) {
	img, details, err := carveJPEG(data, base)
	if err != nil {
		return artifact{}, err
	}
	return artifact{ext: "jpg", data: img, details: details}, nil
}
