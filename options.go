package mmdb

import "github.com/bjornstad/mmdbreader/internal/mmap"

// ReaderOption configures Open and Mmap; OpenBytes accepts options but
// does not apply them. The zero value of
// every option is its default, so callers only ever pass the ones
// they want to change, matching the functional-options shape used
// throughout this ecosystem (e.g. the vendored maxminddb-golang's
// ReaderOption).
type ReaderOption func(*readerConfig)

type readerConfig struct {
	accessPattern mmap.AccessPattern
}

func defaultReaderConfig() readerConfig {
	return readerConfig{accessPattern: mmap.AccessRandom}
}

// WithAccessPattern overrides the madvise hint passed to the kernel
// after mapping the file. The default is AccessRandom, matching the
// access pattern of a search-tree descent; a caller that expects to
// run many Within iterations back to back may prefer AccessSequential.
func WithAccessPattern(p AccessPattern) ReaderOption {
	return func(c *readerConfig) { c.accessPattern = mmap.AccessPattern(p) }
}

// AccessPattern hints the kernel about how the mapped file will be
// read. It mirrors internal/mmap.AccessPattern so callers don't need
// to import an internal package to use WithAccessPattern.
type AccessPattern int

const (
	AccessDefault    AccessPattern = AccessPattern(mmap.AccessDefault)
	AccessRandom     AccessPattern = AccessPattern(mmap.AccessRandom)
	AccessSequential AccessPattern = AccessPattern(mmap.AccessSequential)
)

// LookupOption configures a single Lookup or LookupNetwork call.
type LookupOption func(*lookupConfig)

type lookupConfig struct {
	fields *FieldSet
}

// WithFields projects the decode down to the named top-level record
// fields (spec.md §4.6 "Projection"). A struct target skips the cost of
// materializing everything else; a Dynamic target keeps only the named
// top-level entries; a map or interface target is decoded in full.
func WithFields(fs *FieldSet) LookupOption {
	return func(c *lookupConfig) { c.fields = fs }
}
