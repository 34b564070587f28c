package mmdb

import "reflect"

// recordCache is a fixed-capacity, linear-scan cache of decoded
// records keyed by data-section offset. A Within iteration over a
// large network routinely revisits the same default/fallback record
// through many different leaves, so caching the Dynamic decode avoids
// re-walking the data section for each repeat. Spec.md §4.7 calls for
// a small fixed ring buffer rather than a general-purpose LRU: a
// handful of slots scanned linearly is cheaper, in both code and
// cycles, than a hash-indexed cache at this size.
type recordCache struct {
	offsets [cacheSize]uint
	values  [cacheSize]Dynamic
	full    [cacheSize]bool
	next    int
}

func (c *recordCache) get(offset uint) (Dynamic, bool) {
	for i := 0; i < cacheSize; i++ {
		if c.full[i] && c.offsets[i] == offset {
			return c.values[i], true
		}
	}
	return Dynamic{}, false
}

func (c *recordCache) put(offset uint, v Dynamic) {
	c.offsets[c.next] = offset
	c.values[c.next] = v
	c.full[c.next] = true
	c.next = (c.next + 1) % cacheSize
}

// withinEntry is one pending item of a Within traversal's explicit
// DFS stack: either a search-tree node still to be expanded, or a
// resolved leaf ready to be surfaced by Next.
type withinEntry struct {
	leaf       bool
	node       uint
	addr       address
	prefix     int
	dataOffset uint
}

// WithinIterator enumerates every network covered by the network
// passed to Reader.Within (the network itself, when one record covers
// all of it), in left-to-right address order
// (spec.md §4.7).
type WithinIterator struct {
	reader  *Reader
	stack   []withinEntry
	cache   recordCache
	current withinEntry
	err     error
}

// Within starts an iteration over every subnet of network that has an
// associated record.
func (r *Reader) Within(network Network) (*WithinIterator, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	a := network.addr
	if network.prefix < 0 || network.prefix > a.bitCount {
		return nil, ErrInvalidPrefixLen
	}

	node := uint(0)
	depth := 0
	if a.isV4 {
		node = r.tree.ipv4Start
		// As in findAddress: a full 96-bit descent leaves all 32 IPv4
		// bits to walk; a shorter one left ipv4Start terminal.
		if r.tree.ipv4StartDepth < 96 {
			depth = r.tree.ipv4StartDepth
		}
	}

	// Mirrors findAddress: stop as soon as node stops naming a tree
	// node, whether that's because the prefix is fully consumed or
	// because the starting point (ipv4Start, for a database with no
	// IPv4 subtree) was already terminal.
	for depth < network.prefix && node < r.tree.nodeCount {
		bit := a.bitAt(depth)
		value, err := r.tree.recordAtBit(node, bit)
		if err != nil {
			return nil, err
		}
		node = value
		depth++
	}

	it := &WithinIterator{reader: r}
	res := r.tree.resolveRecord(node)
	switch {
	case res.isNode:
		it.stack = []withinEntry{{node: node, addr: a, prefix: network.prefix}}
	case !res.isNoData:
		it.stack = []withinEntry{{leaf: true, addr: a, prefix: network.prefix, dataOffset: res.dataOffset}}
	}
	return it, nil
}

// Next advances to the next covered network and decodes its record
// into dst, a non-nil pointer. It returns false once the iteration is
// exhausted; callers must check Err after a false return.
func (it *WithinIterator) Next(dst any) (Network, bool, error) {
	if it.err != nil {
		return Network{}, false, it.err
	}
	for len(it.stack) > 0 {
		e := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		if e.leaf {
			it.current = e
			dyn, ok := it.cache.get(e.dataOffset)
			if !ok {
				v, _, err := it.reader.data.decodeDynamic(e.dataOffset)
				if err != nil {
					it.err = err
					return Network{}, false, err
				}
				dyn = v
				it.cache.put(e.dataOffset, dyn)
			}
			rv := reflect.ValueOf(dst)
			if rv.Kind() != reflect.Ptr || rv.IsNil() {
				err := newInvalidDatabaseError("decode target must be a non-nil pointer, got %T", dst)
				it.err = err
				return Network{}, false, err
			}
			if err := assignDynamic(dyn, rv.Elem(), ""); err != nil {
				it.err = err
				return Network{}, false, err
			}
			return e.addr.network(e.prefix), true, nil
		}

		// A 128-bit path that reaches ipv4Start without actually being
		// the all-zero IPv4-in-IPv6 prefix is an alias into the IPv4
		// subtree reached by coincidence of node numbering, not a real
		// IPv6 subnet; yielding it would duplicate the IPv4 records
		// under spurious IPv6 networks (spec.md §4.7 step 3).
		if e.node == it.reader.tree.ipv4Start && e.addr.bitCount == 128 && !e.addr.isV4InV6() {
			continue
		}

		left, right, err := it.reader.tree.readNode(e.node)
		if err != nil {
			it.err = err
			return Network{}, false, err
		}
		resLeft := it.reader.tree.resolveRecord(left)
		resRight := it.reader.tree.resolveRecord(right)

		// Push right before left so left pops first: a stack-based DFS
		// that still visits subnets in address order.
		if resRight.isNode {
			it.stack = append(it.stack, withinEntry{node: resRight.nextNode, addr: e.addr.setBit(e.prefix), prefix: e.prefix + 1})
		} else if !resRight.isNoData {
			it.stack = append(it.stack, withinEntry{leaf: true, addr: e.addr.setBit(e.prefix), prefix: e.prefix + 1, dataOffset: resRight.dataOffset})
		}
		if resLeft.isNode {
			it.stack = append(it.stack, withinEntry{node: resLeft.nextNode, addr: e.addr, prefix: e.prefix + 1})
		} else if !resLeft.isNoData {
			it.stack = append(it.stack, withinEntry{leaf: true, addr: e.addr, prefix: e.prefix + 1, dataOffset: resLeft.dataOffset})
		}
	}
	return Network{}, false, nil
}

// Err returns the error, if any, that stopped the iteration early.
func (it *WithinIterator) Err() error { return it.err }
