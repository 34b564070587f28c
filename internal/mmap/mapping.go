package mmap

import (
	"os"
	"sync/atomic"
)

// Mapping owns a memory-mapped (or, on platforms without mmap support,
// heap-read) view of a file. It is read-only and safe for concurrent
// use by multiple goroutines until Close is called.
type Mapping struct {
	data   []byte
	mapped bool // true when data is backed by a real mmap, not a heap read
	closed atomic.Bool
	unmap  func([]byte) error
}

// openRegular opens path and validates it names a regular file,
// returning its size. Shared by Open and ReadHeap, which differ only
// in how they turn the open file into bytes.
func openRegular(path string) (f *os.File, size int64, err error) {
	f, err = os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, 0, ErrNotFile
	}
	size = fi.Size()
	if size < 0 {
		f.Close()
		return nil, 0, ErrInvalidSize
	}
	return f, size, nil
}

// Open memory-maps path into memory read-only, the zero-copy path of
// spec.md §4.6's `mmap(path)` constructor. An empty file maps to a
// Mapping with no data rather than an error, since the reader
// itself is responsible for rejecting an empty database.
func Open(path string) (*Mapping, error) {
	f, size, err := openRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if size == 0 {
		return &Mapping{}, nil
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, mapped: true, unmap: unmap}, nil
}

// ReadHeap reads path onto the heap, bounded by maxSize, the path
// spec.md §4.6's `open(path, max_size)` constructor takes when a
// caller doesn't want (or can't use) a memory mapping. maxSize <= 0
// means unbounded.
func ReadHeap(path string, maxSize int64) (*Mapping, error) {
	f, size, err := openRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if maxSize > 0 && size > maxSize {
		return nil, ErrTooLarge
	}
	if size == 0 {
		return &Mapping{}, nil
	}

	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, err
	}
	return &Mapping{data: data, mapped: false, unmap: func([]byte) error { return nil }}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped file contents. The returned slice is valid
// only until Close is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Advise passes an access-pattern hint to the kernel. It is best-effort
// and its error, if any, is safe to ignore. It is a no-op for a
// heap-read Mapping: madvise requires a real mmap'd region, and
// calling it against an ordinary heap allocation is undefined.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil || !m.mapped {
		return nil
	}
	return osAdvise(m.data, pattern)
}
