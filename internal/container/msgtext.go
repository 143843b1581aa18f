package container

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	textHeaderSize  = 0x10
	textLineKey     = 0x7C89
	textLineAdvance = 0x2983
	textVariable    = 0x0010
	textTerminator  = 0x0000
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// TextTable is a decoded message table. Lines hold display strings with
// control codes rendered as [VAR XXXX(args)] and newlines escaped.
type TextTable struct {
	Lines []string
}

type textHeader struct {
	sections      uint16
	lineCount     uint16
	totalLength   uint32
	initialKey    uint32
	sectionOffset uint32
}

func readTextHeader(data []byte) (textHeader, bool) {
	le := binary.LittleEndian
	if len(data) < textHeaderSize+4 {
		return textHeader{}, false
	}
	return textHeader{
		sections:      le.Uint16(data[0:]),
		lineCount:     le.Uint16(data[2:]),
		totalLength:   le.Uint32(data[4:]),
		initialKey:    le.Uint32(data[8:]),
		sectionOffset: le.Uint32(data[12:]),
	}, true
}

// IsText reports whether data has the shape of a message table. Tables have
// no magic, so the check leans on the fixed header fields and the section
// length agreeing with the file size.
func IsText(data []byte) bool {
	h, ok := readTextHeader(data)
	if !ok {
		return false
	}
	if h.sections != 1 || h.initialKey != 0 || h.sectionOffset != textHeaderSize || h.lineCount == 0 {
		return false
	}
	sectionLength, _ := u32(data, textHeaderSize, binary.LittleEndian)
	if sectionLength != h.totalLength {
		return false
	}
	end := int64(textHeaderSize) + int64(h.totalLength)
	return end <= int64(len(data)) && int64(len(data))-end < 0x10 &&
		int64(h.lineCount)*8+4 <= int64(h.totalLength)
}

// ParseText decrypts and decodes a message table.
func ParseText(data []byte) (*TextTable, error) {
	le := binary.LittleEndian
	h, ok := readTextHeader(data)
	if !ok {
		return nil, fmt.Errorf("text header: %w", ErrTruncated)
	}
	if !IsText(data) {
		if int64(textHeaderSize)+int64(h.totalLength) > int64(len(data)) {
			return nil, fmt.Errorf("text declares %d bytes: %w", h.totalLength, ErrTruncated)
		}
		return nil, ErrSignatureMismatch
	}

	section := data[textHeaderSize : textHeaderSize+int(h.totalLength)]
	key := uint16(textLineKey)
	t := &TextTable{Lines: make([]string, h.lineCount)}
	for i := 0; i < int(h.lineCount); i++ {
		entry := 4 + 8*i
		offset := le.Uint32(section[entry:])
		length := int(le.Uint16(section[entry+4:]))
		raw, ok := span(section, int(offset), length*2)
		if !ok {
			return nil, fmt.Errorf("text line %d at 0x%x: %w", i, offset, ErrCorrupt)
		}

		chars := make([]uint16, length)
		k := key
		for j := range chars {
			chars[j] = le.Uint16(raw[2*j:]) ^ k
			k = k<<3 | k>>13
		}
		line, err := decodeTextLine(chars)
		if err != nil {
			return nil, fmt.Errorf("text line %d: %w", i, err)
		}
		t.Lines[i] = line
		key += textLineAdvance
	}
	return t, nil
}

func decodeTextLine(chars []uint16) (string, error) {
	var b strings.Builder
	var run []byte
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		s, err := utf16le.NewDecoder().Bytes(run)
		if err != nil {
			return err
		}
		b.Write(s)
		run = run[:0]
		return nil
	}

	for i := 0; i < len(chars); i++ {
		c := chars[i]
		switch c {
		case textTerminator:
			if err := flush(); err != nil {
				return "", err
			}
			return b.String(), nil
		case textVariable:
			if err := flush(); err != nil {
				return "", err
			}
			if i+2 >= len(chars) {
				return "", fmt.Errorf("variable at %d: %w", i, ErrCorrupt)
			}
			count := int(chars[i+1])
			if count == 0 || i+1+count >= len(chars) {
				return "", fmt.Errorf("variable at %d with %d words: %w", i, count, ErrCorrupt)
			}
			fmt.Fprintf(&b, "[VAR %04X", chars[i+2])
			if count > 1 {
				args := make([]string, 0, count-1)
				for _, a := range chars[i+3 : i+2+count] {
					args = append(args, fmt.Sprintf("%04X", a))
				}
				b.WriteString("(" + strings.Join(args, ",") + ")")
			}
			b.WriteByte(']')
			i += 1 + count
		case '\n':
			run = append(run, '\\', 0, 'n', 0)
		case '\r':
			run = append(run, '\\', 0, 'r', 0)
		case '\\':
			run = append(run, '\\', 0, '\\', 0)
		case '[':
			run = append(run, '\\', 0, '[', 0)
		default:
			run = binary.LittleEndian.AppendUint16(run, c)
		}
	}
	if err := flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encodeTextLine(line string) ([]uint16, error) {
	var units []uint16
	var plain strings.Builder
	flush := func() error {
		if plain.Len() == 0 {
			return nil
		}
		raw, err := utf16le.NewEncoder().Bytes([]byte(plain.String()))
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(raw); i += 2 {
			units = append(units, binary.LittleEndian.Uint16(raw[i:]))
		}
		plain.Reset()
		return nil
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '[' && strings.HasPrefix(line[i:], "[VAR ") {
			end := strings.IndexByte(line[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated variable in %q", line)
			}
			if err := flush(); err != nil {
				return nil, err
			}
			words, err := parseTextVariable(line[i+5 : i+end])
			if err != nil {
				return nil, err
			}
			units = append(units, textVariable, uint16(len(words)))
			units = append(units, words...)
			i += end
			continue
		}
		if c == '\\' && i+1 < len(line) {
			i++
			switch line[i] {
			case 'n':
				plain.WriteByte('\n')
			case 'r':
				plain.WriteByte('\r')
			default:
				plain.WriteByte(line[i])
			}
			continue
		}
		plain.WriteByte(c)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return append(units, textTerminator), nil
}

func parseTextVariable(body string) ([]uint16, error) {
	name, args, _ := strings.Cut(body, "(")
	v, err := strconv.ParseUint(name, 16, 16)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", body, err)
	}
	words := []uint16{uint16(v)}
	args = strings.TrimSuffix(args, ")")
	if args == "" {
		return words, nil
	}
	for _, a := range strings.Split(args, ",") {
		v, err := strconv.ParseUint(a, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("variable argument %q: %w", a, err)
		}
		words = append(words, uint16(v))
	}
	return words, nil
}

// Bytes encrypts and serializes t using the same escapes ParseText emits.
func (t *TextTable) Bytes() ([]byte, error) {
	le := binary.LittleEndian
	if len(t.Lines) == 0 || len(t.Lines) > 0xFFFF {
		return nil, fmt.Errorf("text line count %d out of range", len(t.Lines))
	}

	tableSize := 4 + 8*len(t.Lines)
	section := make([]byte, tableSize)
	key := uint16(textLineKey)
	for i, line := range t.Lines {
		chars, err := encodeTextLine(line)
		if err != nil {
			return nil, fmt.Errorf("text line %d: %w", i, err)
		}
		entry := 4 + 8*i
		le.PutUint32(section[entry:], uint32(len(section)))
		le.PutUint16(section[entry+4:], uint16(len(chars)))

		k := key
		for _, c := range chars {
			section = le.AppendUint16(section, c^k)
			k = k<<3 | k>>13
		}
		for len(section)%4 != 0 {
			section = append(section, 0)
		}
		key += textLineAdvance
	}
	le.PutUint32(section[0:], uint32(len(section)))

	out := make([]byte, textHeaderSize, textHeaderSize+len(section))
	le.PutUint16(out[0:], 1)
	le.PutUint16(out[2:], uint16(len(t.Lines)))
	le.PutUint32(out[4:], uint32(len(section)))
	le.PutUint32(out[12:], textHeaderSize)
	return append(out, section...), nil
}
