package mmdb

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjornstad/mmdbreader/internal/mmdbtest"
)

type cityRecord struct {
	City struct {
		Names map[string]string `mmdb:"names"`
	} `mmdb:"city"`
	Country struct {
		ISOCode string `mmdb:"iso_code"`
	} `mmdb:"country"`
}

func buildFixture(t *testing.T, recordSize int) *Reader {
	t.Helper()
	b := mmdbtest.New(recordSize, 4, "GeoIP2-City-Test")
	b.Insert("203.0.113.0/24", map[string]any{
		"city": map[string]any{
			"names": map[string]any{"en": "Testville"},
		},
		"country": map[string]any{"iso_code": "US"},
	})
	b.Insert("198.51.100.0/24", map[string]any{
		"city":    map[string]any{"names": map[string]any{"en": "Example City"}},
		"country": map[string]any{"iso_code": "FR"},
	})
	buf, err := b.Build()
	require.NoError(t, err)

	r, err := newReader(buf)
	require.NoError(t, err)
	return r
}

func TestOpenBytesAndLookup(t *testing.T) {
	for _, recordSize := range []int{24, 28, 32} {
		r := buildFixture(t, recordSize)
		defer r.Close()

		var rec cityRecord
		found, err := r.Lookup(netip.MustParseAddr("203.0.113.17"), &rec)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "Testville", rec.City.Names["en"])
		require.Equal(t, "US", rec.Country.ISOCode)
	}
}

func TestLookupMiss(t *testing.T) {
	r := buildFixture(t, 24)
	defer r.Close()

	var rec cityRecord
	found, err := r.Lookup(netip.MustParseAddr("8.8.8.8"), &rec)
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupNetworkReturnsCoveringPrefix(t *testing.T) {
	r := buildFixture(t, 24)
	defer r.Close()

	var rec cityRecord
	network, found, err := r.LookupNetwork(netip.MustParseAddr("203.0.113.200"), &rec)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "203.0.113.0/24", network.String())
}

func TestLookupWithFieldProjection(t *testing.T) {
	r := buildFixture(t, 24)
	defer r.Close()

	fs, err := NewFieldSet("country")
	require.NoError(t, err)

	var rec cityRecord
	found, err := r.Lookup(netip.MustParseAddr("203.0.113.17"), &rec, WithFields(fs))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "US", rec.Country.ISOCode)
	require.Empty(t, rec.City.Names)
}

func TestLookupDynamic(t *testing.T) {
	r := buildFixture(t, 24)
	defer r.Close()

	v, found, err := r.LookupDynamic(netip.MustParseAddr("198.51.100.5"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, KindMap, v.Kind())
	country, ok := v.Map().Get("country")
	require.True(t, ok)
	isoCode, ok := country.Map().Get("iso_code")
	require.True(t, ok)
	require.Equal(t, "FR", isoCode.String())
}

func TestLookupAfterCloseFails(t *testing.T) {
	r := buildFixture(t, 24)
	require.NoError(t, r.Close())

	var rec cityRecord
	_, err := r.Lookup(netip.MustParseAddr("203.0.113.1"), &rec)
	require.ErrorIs(t, err, ErrReaderClosed)
}

func TestNewReaderRejectsEmptyFile(t *testing.T) {
	_, err := newReader(nil)
	require.ErrorIs(t, err, ErrFileEmpty)
}

func TestNewReaderRejectsMissingMarker(t *testing.T) {
	_, err := newReader([]byte("not a database"))
	require.ErrorIs(t, err, ErrMetadataStartNotFound)
}
