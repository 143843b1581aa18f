package ripper

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"romforge/internal/container"
	"romforge/pkg/sigmatch"
)

// artifact is what an extractor produces: either one file (data, ext) or a
// set of members written into a directory.
type artifact struct {
	format  string
	ext     string
	data    []byte
	members []member
	details map[string]string
}

type member struct {
	name string
	data []byte
}

func (a artifact) multi() bool {
	return a.members != nil
}

type format struct {
	sig     sigmatch.Signature
	extract func(data []byte, base int) (artifact, error)
}

var formats = []format{
	{sigmatch.Signature{Name: "yaz0", Magic: container.Yaz0Magic, Priority: 20}, extractYaz0},
	{sigmatch.Signature{Name: "garc", Magic: container.GARCMagic, Priority: 20}, extractGARC},
	{sigmatch.Signature{Name: "sarc", Magic: container.SARCMagic, Priority: 20}, extractSARC},
	{sigmatch.Signature{Name: "png", Magic: pngSignature, Priority: 15, Embedded: true}, extractPNG},
	{sigmatch.Signature{Name: "jpeg", Magic: jpegSOI, Priority: 15, Embedded: true, Check: jpegPlausible}, extractJPEG},
	{sigmatch.Signature{Name: "mini", Priority: 10, Check: func(data []byte, base int) bool {
		return container.IsMiniHeader(data[base:])
	}}, extractMini},
	{sigmatch.Signature{Name: "text", Priority: 5, Check: func(data []byte, base int) bool {
		return container.IsText(data[base:])
	}}, extractText},
}

var (
	formatsByName   = make(map[string]format, len(formats))
	builtinRegistry *sigmatch.Registry
)

func init() {
	sigs := make([]sigmatch.Signature, 0, len(formats))
	for _, f := range formats {
		formatsByName[f.sig.Name] = f
		sigs = append(sigs, f.sig)
	}
	reg, err := sigmatch.NewRegistry(sigs...)
	if err != nil {
		panic(fmt.Sprintf("ripper: built-in signatures: %v", err))
	}
	builtinRegistry = reg
}

func extractYaz0(data []byte, base int) (artifact, error) {
	decoded, err := container.DecodeYaz0(data[base:])
	if err != nil {
		return artifact{}, err
	}
	details := map[string]string{"decompressed": fmt.Sprintf("%d bytes", len(decoded))}

	if bytes.HasPrefix(decoded, container.SARCMagic) {
		inner, err := extractSARC(decoded, 0)
		if err != nil {
			return artifact{}, fmt.Errorf("nested sarc: %w", err)
		}
		inner.format = "yaz0/sarc"
		for k, v := range details {
			inner.details[k] = v
		}
		return inner, nil
	}
	return artifact{format: "yaz0", ext: "dec", data: decoded, details: details}, nil
}

func extractGARC(data []byte, base int) (artifact, error) {
	g, err := container.ParseGARC(data[base:])
	if err != nil {
		return artifact{}, err
	}
	members := make([]member, 0, len(g.Files))
	for i, f := range g.Files {
		for _, sub := range f.Subentries {
			name := fmt.Sprintf("%03d.bin", i)
			if len(f.Subentries) > 1 {
				name = fmt.Sprintf("%03d_%d.bin", i, sub.Bit)
			}
			members = append(members, member{name: name, data: sub.Data})
		}
	}
	return artifact{
		members: members,
		details: map[string]string{
			"version": fmt.Sprintf("0x%04X", g.Version),
			"files":   fmt.Sprint(len(g.Files)),
		},
	}, nil
}

func extractSARC(data []byte, base int) (artifact, error) {
	s, err := container.ParseSARC(data[base:])
	if err != nil {
		return artifact{}, err
	}
	members := make([]member, 0, len(s.Files))
	seen := make(map[string]struct{}, len(s.Files))
	for _, f := range s.Files {
		name := sarcMemberName(f)
		if _, dup := seen[name]; dup {
			name = fmt.Sprintf("0x%08X_%s", f.Hash, path.Base(name))
		}
		seen[name] = struct{}{}
		members = append(members, member{name: name, data: f.Data})
	}
	order := "little-endian"
	if s.BigEndian {
		order = "big-endian"
	}
	return artifact{
		format:  "sarc",
		members: members,
		details: map[string]string{"files": fmt.Sprint(len(s.Files)), "byte order": order},
	}, nil
}

// sarcMemberName keeps stored names inside the output directory.
func sarcMemberName(f container.SARCFile) string {
	name := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(f.Name, `\`, "/")), "/")
	if f.Name == "" || name == "" {
		return fmt.Sprintf("0x%08X.bin", f.Hash)
	}
	return name
}

func extractMini(data []byte, base int) (artifact, error) {
	m, err := container.ParseMini(data[base:])
	if err != nil {
		return artifact{}, err
	}
	members := make([]member, len(m.Entries))
	for i, e := range m.Entries {
		members[i] = member{name: fmt.Sprintf("%03d.bin", i), data: e}
	}
	return artifact{
		members: members,
		details: map[string]string{"identifier": m.Ident, "files": fmt.Sprint(len(m.Entries))},
	}, nil
}

func extractText(data []byte, base int) (artifact, error) {
	t, err := container.ParseText(data[base:])
	if err != nil {
		return artifact{}, err
	}
	out := strings.Join(t.Lines, "\n") + "\n"
	return artifact{
		ext:     "txt",
		data:    []byte(out),
		details: map[string]string{"lines": fmt.Sprint(len(t.Lines))},
	}, nil
}
