package mmdb

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressFromNetipV4(t *testing.T) {
	a := addressFromNetip(netip.MustParseAddr("203.0.113.1"))
	require.True(t, a.isV4)
	require.Equal(t, 32, a.bitCount)
	require.Equal(t, byte(203), a.bytes[12])
	require.Equal(t, byte(1), a.bytes[15])
}

func TestAddressFromNetipV6(t *testing.T) {
	a := addressFromNetip(netip.MustParseAddr("2001:db8::1"))
	require.False(t, a.isV4)
	require.Equal(t, 128, a.bitCount)
	require.Equal(t, byte(0x20), a.bytes[0])
	require.Equal(t, byte(1), a.bytes[15])
}

func TestBitAt(t *testing.T) {
	a := addressFromNetip(netip.MustParseAddr("128.0.0.0"))
	require.Equal(t, byte(1), a.bitAt(0))
	require.Equal(t, byte(0), a.bitAt(1))
}

func TestMaskZeroesTrailingBits(t *testing.T) {
	a := addressFromNetip(netip.MustParseAddr("203.0.113.255"))
	m := a.mask(24)
	require.Equal(t, byte(0), m.bytes[15])
	require.Equal(t, byte(113), m.bytes[14])
}

func TestIsV4InV6(t *testing.T) {
	v4mapped := addressFromNetip(netip.MustParseAddr("::ffff:203.0.113.1"))
	require.False(t, v4mapped.isV4)
	require.False(t, v4mapped.isV4InV6(), "::ffff:x.x.x.x is not the all-zero-prefix form")

	pure := addressFromNetip(netip.MustParseAddr("::203.0.113.1"))
	require.True(t, pure.isV4InV6())
}

func TestNetworkCollapsesIPv4InIPv6(t *testing.T) {
	a := addressFromNetip(netip.MustParseAddr("::203.0.113.0"))
	n := a.network(120)
	require.True(t, n.addr.isV4)
	require.Equal(t, 24, n.prefix)
}

func TestSetBit(t *testing.T) {
	a := addressFromNetip(netip.MustParseAddr("0.0.0.0"))
	b := a.setBit(0)
	require.Equal(t, byte(0x80), b.bytes[12])
}
