package mmdb

// metadataMarker is the 14-byte sentinel that separates the data
// section from the metadata section (spec.md §6.1). The last occurrence
// in the file wins; earlier occurrences inside the data section (a
// string value happening to contain these bytes) must be ignored.
var metadataMarker = []byte("\xAB\xCD\xEF" + "MaxMind.com")

// dataSectionSeparatorSize is the 16 zero bytes between the search tree
// and the data section (spec.md §3, invariant I1).
const dataSectionSeparatorSize = 16

// pointerValueBias gives the bias added to the unpacked value for each
// pointer size class, indexed by the two-high-bits-of-s class (1..4).
// Index 0 is an unused sentinel so the table can be indexed directly by
// class, matching spec.md §4.3's 1-based description.
var pointerValueBias = [5]uint64{0, 0, 2048, 526336, 0}

// cacheSize is the fixed capacity of the within-iterator's decoded
// record ring buffer (spec.md §4.7, §9 "Cache sizing"). It is a
// build-time constant, not a runtime option, so the hot path stays
// branch-free.
const cacheSize = 16
