package mmdb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFieldSmallString(t *testing.T) {
	// control byte: kind=String(2)<<5 | size=5, then "hello"
	buf := append([]byte{byte(KindString)<<5 | 5}, "hello"...)
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.Equal(t, KindString, fh.kind)
	require.Equal(t, "hello", d.decodeString(fh))
	require.EqualValues(t, len(buf), fh.resumeAt)
}

func TestDecodeFieldSizeExtension29(t *testing.T) {
	payload := make([]byte, 30) // 29 + buf[1]
	for i := range payload {
		payload[i] = 'x'
	}
	buf := []byte{byte(KindBytes)<<5 | 29, 1} // size = 29+1 = 30
	buf = append(buf, payload...)
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.EqualValues(t, 30, fh.size)
	require.Equal(t, payload, d.decodeBytes(fh))
}

func TestDecodeFieldSizeExtension30(t *testing.T) {
	size := 285 + 300
	buf := []byte{byte(KindBytes)<<5 | 30, byte(300 >> 8), byte(300 & 0xFF)}
	buf = append(buf, make([]byte, size)...)
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.EqualValues(t, size, fh.size)
}

func TestDecodeFieldSizeExtension31(t *testing.T) {
	size := 65821 + 70000
	extra := size - 65821
	buf := []byte{byte(KindBytes)<<5 | 31, byte(extra >> 16), byte(extra >> 8), byte(extra)}
	buf = append(buf, make([]byte, size)...)
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.EqualValues(t, size, fh.size)
}

func TestDecodeFieldExtendedKind(t *testing.T) {
	// kind 0 (extended), ext byte = 2 -> real kind = U64 (9); 8-byte payload.
	buf := []byte{byte(0)<<5 | 8, 2, 0, 0, 0, 0, 0, 0, 0, 42}
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.Equal(t, KindU64, fh.kind)
	v, err := d.decodeU64(fh)
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
}

func TestDecodeBoolValues(t *testing.T) {
	// Bool is an extended kind: control byte 0<<5|size, then ext = 14-7.
	ext := byte(KindBool) - 7
	buf := []byte{0<<5 | 1, ext, 0<<5 | 0, ext}
	d := &decoder{buffer: buf}

	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.True(t, d.decodeBool(fh))

	fh2, err := d.decodeField(fh.resumeAt)
	require.NoError(t, err)
	require.False(t, d.decodeBool(fh2))
}

func TestDecodeBoolInvalidSize(t *testing.T) {
	ext := byte(KindBool) - 7
	buf := []byte{0<<5 | 3, ext}
	d := &decoder{buffer: buf}
	_, err := d.decodeField(0)
	require.Error(t, err)
	var sizeErr *InvalidSizeError
	require.ErrorAs(t, err, &sizeErr)
}

func TestDecodePointerClass1(t *testing.T) {
	// Pointer kind=1, class 1 (top two bits of s = 00), low 3 bits=0,
	// one extra byte = 5: value = 5 + bias[1](0) = target offset 5.
	buf := []byte{
		byte(KindPointer)<<5 | 0, 5, // offset 0: pointer to offset 5
		0, 0, 0, // padding to reach offset 5
		byte(KindU16)<<5 | 2, 0, 7, // offset 5: uint16(7)
	}
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.Equal(t, KindU16, fh.kind)
	require.True(t, fh.viaPointer)
	v, err := d.decodeU16(fh)
	require.NoError(t, err)
	require.EqualValues(t, 7, v)
	require.EqualValues(t, 2, fh.resumeAt) // cursor restored to right after the pointer's own bytes
}

func TestDecodePointerToPointerIsRejected(t *testing.T) {
	// Pointer at offset 0 -> points to offset 2, which is itself a pointer.
	buf := []byte{byte(KindPointer)<<5 | 0, 2, byte(KindPointer)<<5 | 0, 0}
	d := &decoder{buffer: buf}
	_, err := d.decodeField(0)
	require.Error(t, err)
}

func TestDecodeU128(t *testing.T) {
	buf := []byte{byte(0)<<5 | 4, 3, 1, 2, 3, 4} // extended kind ext=3 -> U128, size=4
	d := &decoder{buffer: buf}
	fh, err := d.decodeField(0)
	require.NoError(t, err)
	require.Equal(t, KindU128, fh.kind)
	v, err := d.decodeU128(fh)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0x01020304), v)
}

func TestSkipValueOverMap(t *testing.T) {
	// map{ "a": "bb" } followed by a trailing uint16(9).
	buf := []byte{byte(KindMap)<<5 | 1}
	buf = append(buf, byte(KindString)<<5|1, 'a')
	buf = append(buf, byte(KindString)<<5|2, 'b', 'b')
	trailerOffset := len(buf)
	buf = append(buf, byte(KindU16)<<5|2, 0, 9)

	d := &decoder{buffer: buf}
	next, err := d.skipValue(0)
	require.NoError(t, err)
	require.EqualValues(t, trailerOffset, next)
}
