//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}
	var advice int
	switch pattern {
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	default:
		advice = unix.MADV_NORMAL
	}
	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		// Advice on a non-page-aligned slice; harmless to ignore since
		// madvise is a hint, not a correctness requirement.
		return nil
	}
	return err
}
