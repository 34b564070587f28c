package mmdb

import "net/netip"

// address is the internal bit-level view of an IP used by the tree
// walker and the iterator. It normalizes both families into a 16-byte
// big-endian form (IPv4 addresses are stored as their IPv4-in-IPv6
// representation) so that bitAt and mask need only one code path,
// mirroring how the vendored maxminddb-golang reader calls ip.As16()
// once and walks bits uniformly.
type address struct {
	bytes    [16]byte
	bitCount int // 32 for IPv4, 128 for IPv6
	isV4     bool
}

func addressFromNetip(ip netip.Addr) address {
	if ip.Is4() {
		a := address{bitCount: 32, isV4: true}
		v4 := ip.As4()
		copy(a.bytes[12:], v4[:])
		return a
	}
	a := address{bitCount: 128}
	a.bytes = ip.As16()
	return a
}

// bitAt returns the i-th bit (0 = MSB) of the address, counting from
// the start of its effective representation: byte 0 for IPv6, byte 12
// (skipping the IPv4-in-IPv6 prefix) for IPv4. Spec.md §4.2.
func (a address) bitAt(i int) byte {
	byteOffset := 0
	if a.isV4 {
		byteOffset = 12
	}
	idx := byteOffset + i/8
	shift := uint(7 - i%8)
	return (a.bytes[idx] >> shift) & 1
}

// isV4InV6 reports whether a 128-bit address is an IPv4 address
// embedded in IPv6 form: its first twelve bytes are all zero. Spec.md §3.
func (a address) isV4InV6() bool {
	if a.isV4 {
		return false
	}
	for i := 0; i < 12; i++ {
		if a.bytes[i] != 0 {
			return false
		}
	}
	return true
}

// mask zeroes every bit after the p-th, preserving p == bitCount as the
// identity operation. Spec.md §4.2.
func (a address) mask(p int) address {
	masked := a
	byteOffset := 0
	if a.isV4 {
		byteOffset = 12
	}
	for i := byteOffset; i < 16; i++ {
		bitIdx := (i - byteOffset) * 8
		switch {
		case bitIdx >= p:
			masked.bytes[i] = 0
		case bitIdx+8 <= p:
			// fully retained
		default:
			keep := p - bitIdx
			masked.bytes[i] &= byte(0xFF << uint(8-keep))
		}
	}
	return masked
}

// network produces the (address, prefix) pair for this address masked
// at p, collapsing an IPv4-in-IPv6 address with p >= 96 down to a plain
// IPv4 network with prefix p-96, per spec.md §3.
func (a address) network(p int) Network {
	m := a.mask(p)
	if !m.isV4 && m.isV4InV6() && p >= 96 {
		v4 := address{bitCount: 32, isV4: true}
		copy(v4.bytes[12:], m.bytes[12:])
		return Network{addr: v4, prefix: p - 96}
	}
	return Network{addr: m, prefix: p}
}

func (a address) netipAddr() netip.Addr {
	if a.isV4 {
		var v4 [4]byte
		copy(v4[:], a.bytes[12:])
		return netip.AddrFrom4(v4)
	}
	return netip.AddrFrom16(a.bytes)
}

func (a address) toBytes() []byte {
	if a.isV4 {
		b := make([]byte, 4)
		copy(b, a.bytes[12:])
		return b
	}
	b := make([]byte, 16)
	copy(b, a.bytes[:])
	return b
}

// setBit sets the bit at position i (0 = MSB of the effective
// representation) to 1, used by the within-iterator when descending
// into a right child (spec.md §4.7 step 3).
func (a address) setBit(i int) address {
	byteOffset := 0
	if a.isV4 {
		byteOffset = 12
	}
	idx := byteOffset + i/8
	shift := uint(7 - i%8)
	a.bytes[idx] |= 1 << shift
	return a
}
