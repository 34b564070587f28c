package mmdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNetworkIPv4(t *testing.T) {
	n, err := ParseNetwork("203.0.113.0/24")
	require.NoError(t, err)
	require.Equal(t, 24, n.Prefix())
	require.Equal(t, "203.0.113.0/24", n.String())
}

func TestParseNetworkIPv4DefaultsToHostPrefix(t *testing.T) {
	n, err := ParseNetwork("203.0.113.5")
	require.NoError(t, err)
	require.Equal(t, 32, n.Prefix())
}

func TestParseNetworkIPv6Formatting(t *testing.T) {
	n, err := ParseNetwork("2001:db8::/32")
	require.NoError(t, err)
	require.Equal(t, "2001:0db8:0000:0000:0000:0000:0000:0000/32", n.String())
}

func TestParseNetworkRejectsOutOfRangePrefix(t *testing.T) {
	_, err := ParseNetwork("203.0.113.0/33")
	require.Error(t, err)
}

func TestParseNetworkRejectsGarbage(t *testing.T) {
	_, err := ParseNetwork("not-an-ip/24")
	require.Error(t, err)
}
