package container

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("container: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes a structure declares.
	ErrTruncated = errors.New("container: truncated data")
	// ErrCorrupt indicates internally inconsistent fields.
	ErrCorrupt = errors.New("container: corrupt structure")
)
