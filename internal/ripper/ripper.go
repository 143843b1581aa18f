// Package ripper identifies sub-resources inside single files and extracts
// them next to the source.
package ripper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"romforge/internal/mmfile"
	"romforge/pkg/sigmatch"
)

// Code is the outcome of one ripping attempt.
type Code int

const (
	Success Code = iota
	UnrecognizedFormat
	Corrupt
	IOFailure
)

func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case UnrecognizedFormat:
		return "UnrecognizedFormat"
	case Corrupt:
		return "Corrupt"
	case IOFailure:
		return "IOFailure"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Result describes one ripping attempt. Path is set only on Success and
// names a file or directory that exists.
type Result struct {
	Code    Code
	Source  string
	Path    string
	Format  string
	Offset  int
	Files   int
	Bytes   int64
	Details map[string]string
	Err     error
}

// Options configures a Ripper.
type Options struct {
	// OutputDir receives artifacts. Empty means next to the source file.
	OutputDir string
	Logger    *slog.Logger
}

// Ripper extracts known sub-resources. It holds no mutable state and may be
// shared between goroutines.
type Ripper struct {
	registry  *sigmatch.Registry
	outputDir string
	logger    *slog.Logger
}

// New returns a ripper over the built-in formats.
func New(opts Options) *Ripper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	outputDir := opts.OutputDir
	if outputDir != "" {
		if abs, err := filepath.Abs(outputDir); err == nil {
			outputDir = abs
		}
	}
	return &Ripper{registry: builtinRegistry, outputDir: outputDir, logger: logger}
}

// Registry returns the sub-resource signatures the ripper recognizes.
func (r *Ripper) Registry() *sigmatch.Registry {
	return r.registry
}

// OutputDir returns the configured artifact directory, or "".
func (r *Ripper) OutputDir() string {
	return r.outputDir
}

// TryOpenFile classifies the file at path and writes the best decodable
// candidate as an artifact. Every outcome is reported through Result.
func (r *Ripper) TryOpenFile(path string) Result {
	return r.rip(path, "")
}

// rip is TryOpenFile with artifacts placed under subdir of the output
// directory, when one is configured.
func (r *Ripper) rip(path, subdir string) Result {
	res := Result{Source: path}
	if abs, err := filepath.Abs(path); err == nil {
		res.Source = abs
	}

	data, release, err := mmfile.Map(res.Source)
	if err != nil {
		res.Code, res.Err = IOFailure, err
		r.log(res)
		return res
	}
	defer func() { _ = release() }()

	cands := sigmatch.Match(data, r.registry)
	if len(cands) == 0 {
		res.Code = UnrecognizedFormat
		r.log(res)
		return res
	}

	var firstErr error
	exactFailed := false
	for _, cand := range cands {
		// A file that is itself a broken resource is corrupt, not a carrier.
		if exactFailed && cand.Confidence != sigmatch.ConfidenceExact {
			break
		}
		art, err := extract(cand, data)
		if err != nil {
			r.logger.Debug("candidate rejected",
				slog.String("source", res.Source),
				slog.String("format", cand.Signature.Name),
				slog.Int("offset", cand.Base),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
			if cand.Confidence == sigmatch.ConfidenceExact {
				exactFailed = true
			}
			continue
		}

		res.Format, res.Offset, res.Details = art.format, cand.Base, art.details
		out, files, written, err := r.write(res.Source, subdir, art)
		if err != nil {
			res.Code, res.Err = IOFailure, err
			r.log(res)
			return res
		}
		res.Code, res.Path, res.Files, res.Bytes = Success, out, files, written
		r.log(res)
		return res
	}

	res.Code = Corrupt
	res.Format, res.Offset = cands[0].Signature.Name, cands[0].Base
	res.Err = firstErr
	r.log(res)
	return res
}

func extract(cand sigmatch.Candidate, data []byte) (art artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			art, err = artifact{}, fmt.Errorf("%s decoder panicked: %v", cand.Signature.Name, p)
		}
	}()

	f, ok := formatsByName[cand.Signature.Name]
	if !ok {
		return artifact{}, errors.New("no extractor for " + cand.Signature.Name)
	}
	art, err = f.extract(data, cand.Base)
	if err != nil {
		return artifact{}, fmt.Errorf("%s at 0x%x: %w", cand.Signature.Name, cand.Base, err)
	}
	if art.format == "" {
		art.format = cand.Signature.Name
	}
	return art, nil
}

func (r *Ripper) log(res Result) {
	attrs := []any{
		slog.String("source", res.Source),
		slog.String("code", res.Code.String()),
	}
	if res.Format != "" {
		attrs = append(attrs, slog.String("format", res.Format))
	}
	switch res.Code {
	case Success:
		r.logger.Info("ripped", append(attrs, slog.String("artifact", res.Path), slog.Int("files", res.Files))...)
	case UnrecognizedFormat:
		r.logger.Debug("no known format", attrs...)
	default:
		r.logger.Warn("rip failed", append(attrs, slog.Any("error", res.Err))...)
	}
}
