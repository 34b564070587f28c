package mmdb

import (
	"encoding/binary"
	"math"
	"math/big"
	"unsafe"
)

// decoder reads self-describing values out of a database's data
// section (spec.md §4.3). All offsets it accepts and returns are
// relative to the start of that section, which is exactly what a
// resolved pointer value already is (spec.md invariant I2), so no
// translation is needed between a tree-walker pointer and a decoder
// offset.
type decoder struct {
	buffer []byte
}

// fieldHeader is the (type-tag, size-or-count) pair of spec.md §3, plus
// the bookkeeping the decoder needs to resume the enclosing stream
// after a possibly-indirected value.
type fieldHeader struct {
	kind       Kind
	size       uint // payload bytes for scalars, key-count for Map, element-count for Array
	dataStart  uint // offset of the payload, following any pointer indirection
	resumeAt   uint // where the enclosing stream continues after this value
	viaPointer bool
}

func (d *decoder) boundsCheck(offset, n uint) error {
	if n == 0 {
		return nil
	}
	if offset > uint(len(d.buffer)) || n > uint(len(d.buffer))-offset {
		return newInvalidDatabaseError("unexpected end of data section at offset %d (need %d bytes, have %d)", offset, n, len(d.buffer))
	}
	return nil
}

// decodeField reads one field at offset, transparently following a
// single pointer indirection if present (spec.md §4.3 "Pointer
// payload"). The returned header describes the real value; resumeAt is
// always where the caller's *own* stream should continue, whether or
// not a pointer was involved.
func (d *decoder) decodeField(offset uint) (fieldHeader, error) {
	return d.decodeFieldImpl(offset, true)
}

func (d *decoder) decodeFieldImpl(offset uint, allowPointer bool) (fieldHeader, error) {
	if err := d.boundsCheck(offset, 1); err != nil {
		return fieldHeader{}, err
	}
	cb := d.buffer[offset]
	kindBits := Kind(cb >> 5)
	sbits := cb & 0x1F
	cursor := offset + 1

	var kind Kind
	if kindBits == kindExtended {
		if err := d.boundsCheck(cursor, 1); err != nil {
			return fieldHeader{}, err
		}
		ext := d.buffer[cursor]
		cursor++
		if ext > maxExtByte {
			return fieldHeader{}, &UnsupportedFieldTypeError{ExtByte: ext}
		}
		kind = Kind(uint(ext) + 7)
	} else {
		kind = kindBits
	}

	if kind == KindPointer {
		if !allowPointer {
			return fieldHeader{}, newInvalidDatabaseError("pointer at offset %d resolves to another pointer", offset)
		}
		target, resumeAt, err := d.readPointerValue(sbits, cursor)
		if err != nil {
			return fieldHeader{}, err
		}
		if target >= uint(len(d.buffer)) {
			return fieldHeader{}, newInvalidDatabaseError("pointer %d escapes data section (size %d)", target, len(d.buffer))
		}
		inner, err := d.decodeFieldImpl(target, false)
		if err != nil {
			return fieldHeader{}, err
		}
		inner.resumeAt = resumeAt
		inner.viaPointer = true
		return inner, nil
	}

	if kind == KindBool {
		// Boolean payload size IS the value (0 or 1); it never goes
		// through size extension and consumes no extra bytes.
		if sbits > 1 {
			return fieldHeader{}, &InvalidSizeError{Kind: KindBool, Size: uint(sbits)}
		}
		return fieldHeader{kind: kind, size: uint(sbits), dataStart: cursor, resumeAt: cursor}, nil
	}

	size, dataStart, err := d.readSize(sbits, cursor)
	if err != nil {
		return fieldHeader{}, err
	}
	fh := fieldHeader{kind: kind, size: size, dataStart: dataStart}
	if isScalarKind(kind) {
		if err := d.boundsCheck(dataStart, size); err != nil {
			return fieldHeader{}, err
		}
		fh.resumeAt = dataStart + size
	} else if allowPointer {
		// A container's stream continues past its last child. A pointer
		// target is left alone: its caller resumes after the pointer.
		end, err := d.skipField(fh)
		if err != nil {
			return fieldHeader{}, err
		}
		fh.resumeAt = end
	}
	return fh, nil
}

func isScalarKind(k Kind) bool {
	switch k {
	case KindMap, KindArray, kindContainer, kindMarker:
		return false
	default:
		return true
	}
}

// readSize implements spec.md §4.3 "Payload size": the bottom five
// bits of the control byte, with extension for 29/30/31.
func (d *decoder) readSize(s byte, offset uint) (size uint, next uint, err error) {
	switch {
	case s <= 28:
		return uint(s), offset, nil
	case s == 29:
		if err := d.boundsCheck(offset, 1); err != nil {
			return 0, 0, err
		}
		return 29 + uint(d.buffer[offset]), offset + 1, nil
	case s == 30:
		if err := d.boundsCheck(offset, 2); err != nil {
			return 0, 0, err
		}
		return 285 + uint(binary.BigEndian.Uint16(d.buffer[offset:offset+2])), offset + 2, nil
	default: // s == 31
		if err := d.boundsCheck(offset, 3); err != nil {
			return 0, 0, err
		}
		b := d.buffer[offset : offset+3]
		v := uint(b[0])<<16 | uint(b[1])<<8 | uint(b[2])
		return 65821 + v, offset + 3, nil
	}
}

// readPointerValue implements spec.md §4.3 "Pointer payload": the two
// high bits of s select a pointer size class c in {1,2,3,4}, which
// determines how many extra bytes to read and what bias to add.
func (d *decoder) readPointerValue(s byte, offset uint) (value uint, next uint, err error) {
	class := (s >> 3) + 1 // 1..4
	low3 := uint64(s & 0x07)

	if err := d.boundsCheck(offset, uint(class)); err != nil {
		return 0, 0, err
	}
	b := d.buffer[offset : offset+uint(class)]

	var raw uint64
	switch class {
	case 1:
		raw = low3<<8 | uint64(b[0])
	case 2:
		raw = low3<<16 | uint64(b[0])<<8 | uint64(b[1])
	case 3:
		raw = low3<<24 | uint64(b[0])<<16 | uint64(b[1])<<8 | uint64(b[2])
	case 4:
		raw = uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
	}
	raw += pointerValueBias[class]
	return uint(raw), offset + uint(class), nil
}

// skipValue advances past a value without materializing it, per
// spec.md §4.3 "Skip". For a pointer-backed value this does not
// recurse into the pointer's target at all: the enclosing stream's
// continuation is already known (fieldHeader.resumeAt) without caring
// what shape the target has, matching "jump, [read header], restore".
func (d *decoder) skipValue(offset uint) (uint, error) {
	fh, err := d.decodeField(offset)
	if err != nil {
		return 0, err
	}
	return fh.resumeAt, nil
}

// skipField walks past an already-decoded field header without
// re-reading its control byte. decodeField uses it to find where a
// container ends, and the materializer to skip a value it does not
// decode.
func (d *decoder) skipField(fh fieldHeader) (uint, error) {
	if fh.viaPointer {
		return fh.resumeAt, nil
	}
	var err error
	switch fh.kind {
	case KindMap:
		cur := fh.dataStart
		for i := uint(0); i < fh.size; i++ {
			if cur, err = d.skipValue(cur); err != nil { // key
				return 0, err
			}
			if cur, err = d.skipValue(cur); err != nil { // value
				return 0, err
			}
		}
		return cur, nil
	case KindArray:
		cur := fh.dataStart
		for i := uint(0); i < fh.size; i++ {
			if cur, err = d.skipValue(cur); err != nil {
				return 0, err
			}
		}
		return cur, nil
	case kindContainer, kindMarker:
		// Reserved types; spec.md §9 open question: treated as opaque,
		// skipped by their control-byte size like any other scalar.
		return fh.dataStart + fh.size, nil
	default:
		return fh.resumeAt, nil
	}
}

// decodeString returns a string that aliases the underlying mapped
// bytes (spec.md §4.3, §9 "Pointer graphs vs. arenas"): it must not
// outlive the Reader the bytes came from.
func (d *decoder) decodeString(fh fieldHeader) string {
	b := d.buffer[fh.dataStart : fh.dataStart+fh.size]
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// decodeBytes returns a slice that aliases the underlying mapped bytes.
func (d *decoder) decodeBytes(fh fieldHeader) []byte {
	return d.buffer[fh.dataStart : fh.dataStart+fh.size]
}

func (d *decoder) decodeUint(fh fieldHeader, maxBytes int) (uint64, error) {
	if int(fh.size) > maxBytes {
		return 0, &InvalidSizeError{Kind: fh.kind, Size: fh.size}
	}
	var v uint64
	b := d.buffer[fh.dataStart : fh.dataStart+fh.size]
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v, nil
}

func (d *decoder) decodeU16(fh fieldHeader) (uint16, error) {
	v, err := d.decodeUint(fh, 2)
	return uint16(v), err
}

func (d *decoder) decodeU32(fh fieldHeader) (uint32, error) {
	v, err := d.decodeUint(fh, 4)
	return uint32(v), err
}

func (d *decoder) decodeU64(fh fieldHeader) (uint64, error) {
	return d.decodeUint(fh, 8)
}

func (d *decoder) decodeI32(fh fieldHeader) (int32, error) {
	v, err := d.decodeUint(fh, 4)
	return int32(v), err
}

// decodeU128 returns a *big.Int since 128-bit integers are rare enough
// in practice (spec.md notes GeoIP2-ASN/Enterprise-style fields never
// need it) that paying one allocation beats carrying a bespoke
// 128-bit-word type through the whole decoder.
func (d *decoder) decodeU128(fh fieldHeader) (*big.Int, error) {
	if fh.size > 16 {
		return nil, &InvalidSizeError{Kind: KindU128, Size: fh.size}
	}
	b := d.buffer[fh.dataStart : fh.dataStart+fh.size]
	return new(big.Int).SetBytes(b), nil
}

func (d *decoder) decodeBool(fh fieldHeader) bool {
	return fh.size == 1
}

func (d *decoder) decodeDouble(fh fieldHeader) (float64, error) {
	if fh.size != 8 {
		return 0, &InvalidSizeError{Kind: KindDouble, Size: fh.size}
	}
	bits := binary.BigEndian.Uint64(d.buffer[fh.dataStart : fh.dataStart+8])
	return math.Float64frombits(bits), nil
}

func (d *decoder) decodeFloat(fh fieldHeader) (float32, error) {
	if fh.size != 4 {
		return 0, &InvalidSizeError{Kind: KindFloat, Size: fh.size}
	}
	bits := binary.BigEndian.Uint32(d.buffer[fh.dataStart : fh.dataStart+4])
	return math.Float32frombits(bits), nil
}
