//go:build !unix

package mmap

import "os"

// osMap on non-Unix platforms falls back to reading the whole file
// onto the heap: there is no mmap syscall wired up here, but the
// Mapping API stays the same either way, so callers never branch on
// platform.
func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, nil, err
	}
	return data, func([]byte) error { return nil }, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	return nil
}
