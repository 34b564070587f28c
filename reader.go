package mmdb

import (
	"bytes"
	"errors"
	"net/netip"
	"sync/atomic"

	"github.com/bjornstad/mmdbreader/internal/mmap"
)

// Reader is a database opened for lookups. It is safe for concurrent
// use by multiple goroutines: every method only reads the mapped
// buffer, and the decoded-record cache used by Within is private to
// each WithinIterator.
type Reader struct {
	mapping  *mmap.Mapping // nil when opened via OpenBytes
	buffer   []byte        // the whole file
	Metadata *Metadata
	tree     *searchTree
	data     *decoder // scoped to the data section only
	closed   atomic.Bool
}

// Open reads the database file at path onto the heap, bounded by
// maxSize (maxSize <= 0 means unbounded), and parses its metadata and
// search tree, per spec.md §4.6's `open(path, max_size)` constructor.
// Prefer Mmap when the file may be read many times or is large enough
// that a private heap copy isn't desirable; Open suits callers that
// can't mmap (no filesystem-backed path, a restrictive sandbox) or
// want a hard ceiling on how much memory a single database can claim.
func Open(path string, maxSize int64, opts ...ReaderOption) (*Reader, error) {
	m, err := mmap.ReadHeap(path, maxSize)
	if err != nil {
		return nil, translateMapError(err)
	}
	cfg := defaultReaderConfig()
	for _, o := range opts {
		o(&cfg)
	}
	_ = m.Advise(cfg.accessPattern)

	r, err := newReader(m.Bytes())
	if err != nil {
		m.Close()
		return nil, err
	}
	r.mapping = m
	return r, nil
}

// Mmap memory-maps the database file at path read-only and parses its
// metadata and search tree, per spec.md §4.6's `mmap(path)`
// constructor: zero-copy, but the returned Reader's decoded strings
// and byte slices alias the mapping and must not outlive Close.
func Mmap(path string, opts ...ReaderOption) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, translateMapError(err)
	}
	cfg := defaultReaderConfig()
	for _, o := range opts {
		o(&cfg)
	}
	_ = m.Advise(cfg.accessPattern)

	r, err := newReader(m.Bytes())
	if err != nil {
		m.Close()
		return nil, err
	}
	r.mapping = m
	return r, nil
}

// OpenBytes parses a database already resident in memory, e.g. one
// embedded with go:embed. The caller retains ownership of data; Close
// on the returned Reader is a no-op beyond marking it closed.
func OpenBytes(data []byte, opts ...ReaderOption) (*Reader, error) {
	return newReader(data)
}

// translateMapError maps internal/mmap's own sentinels onto this
// package's exported ones, so callers never need to import the
// internal package to use errors.Is against them.
func translateMapError(err error) error {
	switch {
	case errors.Is(err, mmap.ErrNotFile):
		return ErrNotFile
	case errors.Is(err, mmap.ErrTooLarge):
		return ErrFileTooLarge
	default:
		return err
	}
}

func newReader(buffer []byte) (*Reader, error) {
	if len(buffer) == 0 {
		return nil, ErrFileEmpty
	}

	markerIdx := bytes.LastIndex(buffer, metadataMarker)
	if markerIdx < 0 {
		return nil, ErrMetadataStartNotFound
	}
	metadataStart := markerIdx + len(metadataMarker)

	meta, err := decodeMetadata(buffer[metadataStart:])
	if err != nil {
		return nil, err
	}

	dataSectionOffset := meta.searchTreeSize + dataSectionSeparatorSize
	if dataSectionOffset > uint(markerIdx) {
		return nil, newInvalidDatabaseError("data section offset %d exceeds metadata marker position %d", dataSectionOffset, markerIdx)
	}
	if uint(len(buffer)) < meta.searchTreeSize {
		return nil, newInvalidDatabaseError("file too small to hold a search tree of %d bytes", meta.searchTreeSize)
	}

	tree, err := newSearchTree(buffer[:meta.searchTreeSize], meta)
	if err != nil {
		return nil, err
	}

	return &Reader{
		buffer:   buffer,
		Metadata: meta,
		tree:     tree,
		data:     &decoder{buffer: buffer[dataSectionOffset:markerIdx]},
	}, nil
}

// Close unmaps the underlying file. It is idempotent; calling any
// other method after Close returns ErrReaderClosed.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if r.mapping != nil {
		return r.mapping.Close()
	}
	return nil
}

func (r *Reader) checkOpen() error {
	if r.closed.Load() {
		return ErrReaderClosed
	}
	return nil
}

// Lookup finds the record for ip and decodes it into dst, a non-nil
// pointer. found reports whether the tree had a record for this
// address at all (spec.md §4.6).
func (r *Reader) Lookup(ip netip.Addr, dst any, opts ...LookupOption) (found bool, err error) {
	if err := r.checkOpen(); err != nil {
		return false, err
	}
	a := addressFromNetip(ip)
	offset, _, ok, err := r.tree.findAddress(a)
	if err != nil || !ok {
		return false, err
	}

	var cfg lookupConfig
	for _, o := range opts {
		o(&cfg)
	}
	if err := r.data.unmarshal(offset, dst, cfg.fields); err != nil {
		return false, err
	}
	return true, nil
}

// LookupNetwork is Lookup plus the network the matched record actually
// covers, the way the vendored maxminddb-golang's LookupNetwork works:
// useful for callers that want to cache a lookup result keyed by its
// full covering prefix rather than by the single queried address.
func (r *Reader) LookupNetwork(ip netip.Addr, dst any, opts ...LookupOption) (network Network, found bool, err error) {
	if err := r.checkOpen(); err != nil {
		return Network{}, false, err
	}
	a := addressFromNetip(ip)
	offset, prefixLen, ok, err := r.tree.findAddress(a)
	if err != nil {
		return Network{}, false, err
	}
	network = a.network(prefixLen)
	if !ok {
		return network, false, nil
	}

	var cfg lookupConfig
	for _, o := range opts {
		o(&cfg)
	}
	if err := r.data.unmarshal(offset, dst, cfg.fields); err != nil {
		return Network{}, false, err
	}
	return network, true, nil
}

// LookupDynamic is Lookup without a caller-supplied Go type: it
// returns the record as a schema-free Dynamic value.
func (r *Reader) LookupDynamic(ip netip.Addr) (value Dynamic, found bool, err error) {
	if err := r.checkOpen(); err != nil {
		return Dynamic{}, false, err
	}
	a := addressFromNetip(ip)
	offset, _, ok, err := r.tree.findAddress(a)
	if err != nil || !ok {
		return Dynamic{}, false, err
	}
	v, _, err := r.data.decodeDynamic(offset)
	if err != nil {
		return Dynamic{}, false, err
	}
	return v, true, nil
}
