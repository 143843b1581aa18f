//go:build !unix

// Package mmfile maps game data files into memory.
package mmfile

import "os"

// Map reads the whole file where mmap is unavailable.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
