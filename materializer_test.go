package mmdb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalStructSkipsUnknownFields(t *testing.T) {
	// map{"known": "kept", "unknown": 42} -> struct only wants "known".
	buf := []byte{byte(KindMap)<<5 | 2}
	buf = append(buf, byte(KindString)<<5|5, 'k', 'n', 'o', 'w', 'n')
	buf = append(buf, byte(KindString)<<5|4, 'k', 'e', 'p', 't')
	buf = append(buf, byte(KindString)<<5|7, 'u', 'n', 'k', 'n', 'o', 'w', 'n')
	buf = append(buf, byte(KindU32)<<5|4, 0, 0, 0, 42)

	d := &decoder{buffer: buf}
	var dst struct {
		Known string `mmdb:"known"`
	}
	require.NoError(t, d.unmarshal(0, &dst, nil))
	require.Equal(t, "kept", dst.Known)
}

func TestUnmarshalTypeMismatchError(t *testing.T) {
	buf := []byte{byte(KindString)<<5 | 1, 'x'}
	d := &decoder{buffer: buf}
	var dst uint32
	err := d.unmarshal(0, &dst, nil)
	require.Error(t, err)
	var typeErr *UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, KindString, typeErr.Kind)
}

func TestUnmarshalStructTargetRejectsNonMapTopLevel(t *testing.T) {
	buf := []byte{byte(KindString)<<5 | 1, 'x'}
	d := &decoder{buffer: buf}
	var dst struct {
		Known string `mmdb:"known"`
	}
	err := d.unmarshal(0, &dst, nil)
	require.ErrorIs(t, err, ErrExpectedStructType)
}

func TestUnmarshalIntoDynamic(t *testing.T) {
	ext := byte(KindBool) - 7 // Bool is an extended kind
	buf := []byte{0<<5 | 1, ext}
	d := &decoder{buffer: buf}
	var dyn Dynamic
	require.NoError(t, d.unmarshal(0, &dyn, nil))
	require.Equal(t, KindBool, dyn.Kind())
	require.True(t, dyn.Bool())
}

func TestUnmarshalFieldProjectionSkipsUnselected(t *testing.T) {
	buf := []byte{byte(KindMap)<<5 | 2}
	buf = append(buf, byte(KindString)<<5|1, 'a')
	buf = append(buf, byte(KindU16)<<5|2, 0, 1)
	buf = append(buf, byte(KindString)<<5|1, 'b')
	buf = append(buf, byte(KindU16)<<5|2, 0, 2)

	d := &decoder{buffer: buf}
	fs, err := NewFieldSet("b")
	require.NoError(t, err)
	var dst struct {
		A uint16 `mmdb:"a"`
		B uint16 `mmdb:"b"`
	}
	require.NoError(t, d.unmarshal(0, &dst, fs))
	require.EqualValues(t, 0, dst.A)
	require.EqualValues(t, 2, dst.B)
}

func TestUnmarshalBigInt(t *testing.T) {
	buf := []byte{byte(0)<<5 | 2, 3, 0xCA, 0xFE} // extended kind ext=3 -> U128, size 2
	d := &decoder{buffer: buf}
	var n big.Int
	require.NoError(t, d.unmarshal(0, &n, nil))
	require.Equal(t, big.NewInt(0xCAFE), &n)
}

func TestUnmarshalSliceOfStrings(t *testing.T) {
	buf := []byte{byte(0)<<5 | 2, 4} // extended array, ext=4, size 2
	buf = append(buf, byte(KindString)<<5|1, 'x')
	buf = append(buf, byte(KindString)<<5|1, 'y')

	d := &decoder{buffer: buf}
	var dst []string
	require.NoError(t, d.unmarshal(0, &dst, nil))
	require.Equal(t, []string{"x", "y"}, dst)
}
