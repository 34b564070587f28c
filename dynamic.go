package mmdb

import "math/big"

// Dynamic is a schema-free decoded value, for callers who don't have
// (or don't want) a Go struct matching a database's record shape.
// Exactly one of its kind-tagged accessors is meaningful for any given
// value; Kind reports which. This mirrors the closed set of wire types
// in spec.md §3 rather than using `any`, so a type switch on Kind is
// exhaustive and callers don't need a type assertion per case.
type Dynamic struct {
	kind Kind

	str    string
	bytes  []byte
	u64    uint64
	i32    int32
	u128   *big.Int
	f64    float64
	f32    float32
	b      bool
	arr    []Dynamic
	object *Map
}

// Kind reports which accessor on Dynamic is valid.
func (d Dynamic) Kind() Kind { return d.kind }

// String returns the value's payload for Kind() == KindString.
func (d Dynamic) String() string { return d.str }

// Bytes returns the value's payload for Kind() == KindBytes.
func (d Dynamic) Bytes() []byte { return d.bytes }

// Uint16 returns the value's payload for Kind() == KindU16.
func (d Dynamic) Uint16() uint16 { return uint16(d.u64) }

// Uint32 returns the value's payload for Kind() == KindU32.
func (d Dynamic) Uint32() uint32 { return uint32(d.u64) }

// Uint64 returns the value's payload for Kind() == KindU64.
func (d Dynamic) Uint64() uint64 { return d.u64 }

// Int32 returns the value's payload for Kind() == KindI32.
func (d Dynamic) Int32() int32 { return d.i32 }

// Uint128 returns the value's payload for Kind() == KindU128.
func (d Dynamic) Uint128() *big.Int { return d.u128 }

// Double returns the value's payload for Kind() == KindDouble.
func (d Dynamic) Double() float64 { return d.f64 }

// Float returns the value's payload for Kind() == KindFloat.
func (d Dynamic) Float() float32 { return d.f32 }

// Bool returns the value's payload for Kind() == KindBool.
func (d Dynamic) Bool() bool { return d.b }

// Array returns the value's payload for Kind() == KindArray.
func (d Dynamic) Array() []Dynamic { return d.arr }

// Map returns the value's payload for Kind() == KindMap.
func (d Dynamic) Map() *Map { return d.object }

// Map is an insertion-ordered string-keyed map, since spec.md §3
// requires that a Map's iteration order match its on-disk encoding
// order rather than Go's randomized map order.
type Map struct {
	keys   []string
	values []Dynamic
	index  map[string]int
}

func newMap(capacity int) *Map {
	return &Map{
		keys:   make([]string, 0, capacity),
		values: make([]Dynamic, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

func (m *Map) set(key string, value Dynamic) {
	if i, ok := m.index[key]; ok {
		m.values[i] = value
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// Get returns the value stored under key and whether it was present.
func (m *Map) Get(key string) (Dynamic, bool) {
	i, ok := m.index[key]
	if !ok {
		return Dynamic{}, false
	}
	return m.values[i], true
}

// Len returns the number of entries in the map.
func (m *Map) Len() int { return len(m.keys) }

// Range calls f for each entry in on-disk order, stopping early if f
// returns false.
func (m *Map) Range(f func(key string, value Dynamic) bool) {
	for i, k := range m.keys {
		if !f(k, m.values[i]) {
			return
		}
	}
}

// decodeDynamic fully materializes the value at offset into a Dynamic,
// recursively decoding Map and Array children. Spec.md §4.4 "Dynamic
// decode".
func (d *decoder) decodeDynamic(offset uint) (Dynamic, uint, error) {
	fh, err := d.decodeField(offset)
	if err != nil {
		return Dynamic{}, 0, err
	}
	v, err := d.materializeDynamic(fh)
	if err != nil {
		return Dynamic{}, 0, err
	}
	return v, fh.resumeAt, nil
}

func (d *decoder) materializeDynamic(fh fieldHeader) (Dynamic, error) {
	switch fh.kind {
	case KindString:
		return Dynamic{kind: KindString, str: d.decodeString(fh)}, nil
	case KindBytes:
		return Dynamic{kind: KindBytes, bytes: d.decodeBytes(fh)}, nil
	case KindU16:
		v, err := d.decodeU16(fh)
		return Dynamic{kind: KindU16, u64: uint64(v)}, err
	case KindU32:
		v, err := d.decodeU32(fh)
		return Dynamic{kind: KindU32, u64: uint64(v)}, err
	case KindU64:
		v, err := d.decodeU64(fh)
		return Dynamic{kind: KindU64, u64: v}, err
	case KindI32:
		v, err := d.decodeI32(fh)
		return Dynamic{kind: KindI32, i32: v}, err
	case KindU128:
		v, err := d.decodeU128(fh)
		return Dynamic{kind: KindU128, u128: v}, err
	case KindDouble:
		v, err := d.decodeDouble(fh)
		return Dynamic{kind: KindDouble, f64: v}, err
	case KindFloat:
		v, err := d.decodeFloat(fh)
		return Dynamic{kind: KindFloat, f32: v}, err
	case KindBool:
		return Dynamic{kind: KindBool, b: d.decodeBool(fh)}, nil
	case KindArray:
		arr := make([]Dynamic, 0, fh.size)
		cur := fh.dataStart
		for i := uint(0); i < fh.size; i++ {
			elemFh, err := d.decodeField(cur)
			if err != nil {
				return Dynamic{}, err
			}
			elem, err := d.materializeDynamic(elemFh)
			if err != nil {
				return Dynamic{}, err
			}
			arr = append(arr, elem)
			cur = elemFh.resumeAt
		}
		return Dynamic{kind: KindArray, arr: arr}, nil
	case KindMap:
		m := newMap(int(fh.size))
		cur := fh.dataStart
		for i := uint(0); i < fh.size; i++ {
			keyFh, err := d.decodeField(cur)
			if err != nil {
				return Dynamic{}, err
			}
			if keyFh.kind != KindString {
				return Dynamic{}, newInvalidDatabaseError("map key at offset %d is not a string (kind %s)", cur, keyFh.kind)
			}
			key := d.decodeString(keyFh)
			cur = keyFh.resumeAt

			valFh, err := d.decodeField(cur)
			if err != nil {
				return Dynamic{}, err
			}
			val, err := d.materializeDynamic(valFh)
			if err != nil {
				return Dynamic{}, err
			}
			m.set(key, val)
			cur = valFh.resumeAt
		}
		return Dynamic{kind: KindMap, object: m}, nil
	case kindContainer, kindMarker:
		return Dynamic{}, newInvalidDatabaseError("value at data section has reserved kind %s", fh.kind)
	default:
		return Dynamic{}, &UnsupportedFieldTypeError{ExtByte: byte(fh.kind)}
	}
}
