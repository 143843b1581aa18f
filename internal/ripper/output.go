package ripper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"romforge/internal/fsx"
)

// write stores art next to source, or under subdir of the configured output
// directory, and returns the artifact path, the number of files and the
// bytes written. Artifact names keep the whole source name, extension
// included, so sources sharing a stem never share an artifact.
func (r *Ripper) write(source, subdir string, art artifact) (string, int, int64, error) {
	dir := filepath.Dir(source)
	if r.outputDir != "" {
		dir = filepath.Join(r.outputDir, filepath.FromSlash(subdir))
	}
	base := filepath.Base(source)
	tag := strings.ReplaceAll(art.format, "/", "_")

	if !art.multi() {
		name := base + "." + art.ext
		if err := fsx.WriteFileAtomic(dir, name, art.data, 0o644); err != nil {
			return "", 0, 0, fmt.Errorf("write %s: %w", name, err)
		}
		return filepath.Join(dir, name), 1, int64(len(art.data)), nil
	}

	dst := filepath.Join(dir, base+"_"+tag)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, 0, err
	}
	staging, err := os.MkdirTemp(dir, "."+base+"_"+tag+".tmp-*")
	if err != nil {
		return "", 0, 0, err
	}
	defer func() { _ = os.RemoveAll(staging) }()

	var written int64
	for _, m := range art.members {
		target := filepath.Join(staging, filepath.FromSlash(m.name))
		if err := fsx.WriteFileAtomic(filepath.Dir(target), filepath.Base(target), m.data, 0o644); err != nil {
			return "", 0, 0, fmt.Errorf("write member %s: %w", m.name, err)
		}
		written += int64(len(m.data))
	}
	if err := fsx.ReplaceDir(staging, dst); err != nil {
		return "", 0, 0, fmt.Errorf("publish %s: %w", dst, err)
	}
	return dst, len(art.members), written, nil
}
