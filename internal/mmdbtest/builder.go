// Package mmdbtest builds small, valid .mmdb byte buffers in memory
// for use as test fixtures, the way gaissmai-bart's internal/golden
// package builds a slow reference routing table to check a fast one
// against. There is no public MaxMind test corpus available here, so
// this is the module's only source of realistic database bytes.
package mmdbtest

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"sort"
)

// Builder accumulates (network, value) insertions and serializes them
// into a complete database image: search tree, data section, and
// metadata, in that order, matching the on-disk layout described by
// the format this module reads.
type Builder struct {
	recordSize   int // 24, 28, or 32
	ipVersion    int // 4 or 6
	databaseType string
	languages    []string
	description  map[string]string
	buildEpoch   uint64

	entries []entry
}

type entry struct {
	prefix netip.Prefix
	value  any
}

// New starts a builder for a database with the given record size (24,
// 28, or 32) and IP version (4 or 6).
func New(recordSize, ipVersion int, databaseType string) *Builder {
	return &Builder{
		recordSize:   recordSize,
		ipVersion:    ipVersion,
		databaseType: databaseType,
		languages:    []string{"en"},
		description:  map[string]string{"en": "test fixture"},
		buildEpoch:   1700000000,
	}
}

// Insert records value (built from map[string]any, []any, string,
// []byte, bool, float32, float64, int32, uint16, uint32, uint64, and
// *big.Int) at prefix.
func (b *Builder) Insert(cidr string, value any) *Builder {
	p := netip.MustParsePrefix(cidr).Masked()
	b.entries = append(b.entries, entry{prefix: p, value: value})
	return b
}

// Build serializes the accumulated entries into a complete database
// image.
func (b *Builder) Build() ([]byte, error) {
	sort.Slice(b.entries, func(i, j int) bool {
		return b.entries[i].prefix.Bits() < b.entries[j].prefix.Bits()
	})

	root := &trieNode{}
	dw := &dataWriter{}
	for _, e := range b.entries {
		offset, err := dw.write(e.value)
		if err != nil {
			return nil, err
		}
		root.insert(prefixBits(e.prefix), offset)
	}

	nodes := flatten(root)
	nodeCount := uint(len(nodes))
	if nodeCount == 0 {
		nodes = []*trieNode{{}}
		nodeCount = 1
	}

	treeBytes, err := encodeTree(nodes, nodeCount, b.recordSize)
	if err != nil {
		return nil, err
	}

	var out []byte
	out = append(out, treeBytes...)
	out = append(out, make([]byte, 16)...) // data section separator
	out = append(out, dw.buf...)

	meta := metadataWriter{}
	meta.writeMap(map[string]any{
		"node_count":                  uint32(nodeCount),
		"record_size":                 uint16(b.recordSize),
		"ip_version":                  uint16(b.ipVersion),
		"database_type":               b.databaseType,
		"languages":                   anySliceFromStrings(b.languages),
		"binary_format_major_version": uint16(2),
		"binary_format_minor_version": uint16(0),
		"build_epoch":                 b.buildEpoch,
		"description":                 describeMap(b.description),
	})
	out = append(out, []byte("\xAB\xCD\xEF"+"MaxMind.com")...)
	out = append(out, meta.buf...)

	return out, nil
}

func anySliceFromStrings(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func describeMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func prefixBits(p netip.Prefix) []byte {
	addr := p.Addr()
	var raw []byte
	if addr.Is4() {
		b := addr.As4()
		raw = b[:]
	} else {
		b := addr.As16()
		raw = b[:]
	}
	bits := make([]byte, p.Bits())
	for i := range bits {
		bits[i] = (raw[i/8] >> uint(7-i%8)) & 1
	}
	return bits
}

// trieNode is an in-memory, pre-serialization search tree node: each
// child slot is either empty (no data), a data-section offset, or
// another node.
type trieNode struct {
	child   [2]*trieNode
	hasData [2]bool
	dataOff [2]uint
}

func (n *trieNode) insert(bits []byte, dataOffset uint) {
	cur := n
	for i, bit := range bits {
		last := i == len(bits)-1
		if last {
			cur.child[bit] = nil
			cur.hasData[bit] = true
			cur.dataOff[bit] = dataOffset
			return
		}
		if cur.child[bit] == nil {
			cur.child[bit] = &trieNode{}
			cur.hasData[bit] = false
		}
		cur = cur.child[bit]
	}
}

// flatten assigns each reachable node a BFS index, the root always at
// index 0, matching how the real format numbers its nodes.
func flatten(root *trieNode) []*trieNode {
	order := []*trieNode{root}
	seen := map[*trieNode]int{root: 0}
	for i := 0; i < len(order); i++ {
		n := order[i]
		for _, c := range n.child {
			if c == nil {
				continue
			}
			if _, ok := seen[c]; !ok {
				seen[c] = len(order)
				order = append(order, c)
			}
		}
	}
	return order
}

func encodeTree(nodes []*trieNode, nodeCount uint, recordSize int) ([]byte, error) {
	index := make(map[*trieNode]uint, len(nodes))
	for i, n := range nodes {
		index[n] = uint(i)
	}
	recordValue := func(n *trieNode, bit int) uint64 {
		switch {
		case n.hasData[bit]:
			return uint64(nodeCount) + 16 + uint64(n.dataOff[bit])
		case n.child[bit] != nil:
			return uint64(index[n.child[bit]])
		default:
			return uint64(nodeCount)
		}
	}

	nodeBytes := recordSize * 2 / 8
	out := make([]byte, 0, len(nodes)*nodeBytes)
	for _, n := range nodes {
		left := recordValue(n, 0)
		right := recordValue(n, 1)
		switch recordSize {
		case 24:
			out = append(out, byte(left>>16), byte(left>>8), byte(left), byte(right>>16), byte(right>>8), byte(right))
		case 28:
			out = append(out, byte(left>>16), byte(left>>8), byte(left),
				byte(left>>20)&0xF0|byte(right>>24)&0x0F,
				byte(right>>16), byte(right>>8), byte(right))
		case 32:
			var lb, rb [4]byte
			binary.BigEndian.PutUint32(lb[:], uint32(left))
			binary.BigEndian.PutUint32(rb[:], uint32(right))
			out = append(out, lb[:]...)
			out = append(out, rb[:]...)
		default:
			return nil, fmt.Errorf("mmdbtest: unsupported record size %d", recordSize)
		}
	}
	return out, nil
}
