package mmdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjornstad/mmdbreader/internal/mmdbtest"
)

func TestDecodeMetadataRoundTrip(t *testing.T) {
	buf, err := mmdbtest.New(24, 4, "GeoIP2-City-Test").
		Insert("203.0.113.0/24", map[string]any{"name": "x"}).
		Build()
	require.NoError(t, err)

	r, err := newReader(buf)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, "GeoIP2-City-Test", r.Metadata.DatabaseType)
	require.EqualValues(t, 4, r.Metadata.IPVersion)
	require.EqualValues(t, 24, r.Metadata.RecordSize)
	require.Equal(t, []string{"en"}, r.Metadata.Languages)
	require.Equal(t, "test fixture", r.Metadata.Description["en"])
	require.Equal(t, int64(1700000000), r.Metadata.BuildTime().Unix())
}

func TestDecodeMetadataRejectsBadRecordSize(t *testing.T) {
	buf := []byte{byte(KindMap)<<5 | 3}
	buf = append(buf, byte(KindString)<<5|10)
	buf = append(buf, "node_count"...)
	buf = append(buf, byte(KindU32)<<5|4, 0, 0, 0, 1)
	buf = append(buf, byte(KindString)<<5|11)
	buf = append(buf, "record_size"...)
	buf = append(buf, byte(KindU16)<<5|2, 0, 20)
	buf = append(buf, byte(KindString)<<5|10)
	buf = append(buf, "ip_version"...)
	buf = append(buf, byte(KindU16)<<5|2, 0, 4)

	_, err := decodeMetadata(buf)
	require.Error(t, err)
}
