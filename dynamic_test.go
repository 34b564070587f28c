package mmdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapPreservesInsertionOrder(t *testing.T) {
	// map{"z": 1, "a": 2} -- encoded in this order, must decode in
	// this order too, not sorted alphabetically.
	buf := []byte{byte(KindMap)<<5 | 2}
	buf = append(buf, byte(KindString)<<5|1, 'z')
	buf = append(buf, byte(KindU16)<<5|2, 0, 1)
	buf = append(buf, byte(KindString)<<5|1, 'a')
	buf = append(buf, byte(KindU16)<<5|2, 0, 2)

	d := &decoder{buffer: buf}
	v, _, err := d.decodeDynamic(0)
	require.NoError(t, err)

	var order []string
	v.Map().Range(func(k string, _ Dynamic) bool {
		order = append(order, k)
		return true
	})
	require.Equal(t, []string{"z", "a"}, order)
}

func TestMapGetMissingKey(t *testing.T) {
	m := newMap(0)
	_, ok := m.Get("missing")
	require.False(t, ok)
}

func TestDecodeDynamicArray(t *testing.T) {
	buf := []byte{byte(0)<<5 | 2, 4} // extended array size2
	ext := byte(KindBool) - 7 // Bool is an extended kind
	buf = append(buf, 0<<5|1, ext)
	buf = append(buf, 0<<5|0, ext)

	d := &decoder{buffer: buf}
	v, _, err := d.decodeDynamic(0)
	require.NoError(t, err)
	require.Equal(t, KindArray, v.Kind())
	require.Len(t, v.Array(), 2)
	require.True(t, v.Array()[0].Bool())
	require.False(t, v.Array()[1].Bool())
}
