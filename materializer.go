package mmdb

import (
	"math/big"
	"reflect"
	"strings"
	"sync"
)

var (
	dynamicType = reflect.TypeOf(Dynamic{})
	bigIntType  = reflect.TypeOf(big.Int{})
)

// structField describes one exported Go struct field as a decode
// target: its tag-derived record name and the index path reflect.Value
// needs to reach it (spec.md §4.5 "Schema materializer").
type structField struct {
	name  string
	index []int
}

var structFieldCache sync.Map // reflect.Type -> []structField

func fieldsForType(t reflect.Type) []structField {
	if cached, ok := structFieldCache.Load(t); ok {
		return cached.([]structField)
	}
	fields := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue // unexported
		}
		tag := sf.Tag.Get("mmdb")
		name, opts, _ := strings.Cut(tag, ",")
		_ = opts
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, structField{name: name, index: sf.Index})
	}
	structFieldCache.Store(t, fields)
	return fields
}

// unmarshal is the entry point used by Reader.Lookup and friends: it
// decodes the value at offset into *dst, applying fields only at the
// outermost record (spec.md §4.6 "Projection").
func (d *decoder) unmarshal(offset uint, dst any, fields *FieldSet) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return newInvalidDatabaseError("decode target must be a non-nil pointer, got %T", dst)
	}
	fh, err := d.decodeField(offset)
	if err != nil {
		return err
	}
	elem := rv.Elem()
	// spec.md §4.4: the top-level value of a record MUST be a Map.
	// Only the outermost decode carries this rule; a mismatch anywhere
	// deeper is the generic UnmarshalTypeError from unmarshalField.
	if elem.Type() != dynamicType && elem.Type() != bigIntType {
		if k := elem.Kind(); (k == reflect.Struct || k == reflect.Map) && fh.kind != KindMap {
			return ErrExpectedStructType
		}
	}
	return d.unmarshalField(fh, elem, fields, "")
}

func (d *decoder) unmarshalField(fh fieldHeader, v reflect.Value, fields *FieldSet, fieldName string) error {
	if v.Type() == dynamicType {
		dyn, err := d.materializeDynamic(fh)
		if err != nil {
			return err
		}
		if fields != nil && dyn.kind == KindMap {
			kept := newMap(fields.Len())
			dyn.object.Range(func(key string, val Dynamic) bool {
				if fields.Has(key) {
					kept.set(key, val)
				}
				return true
			})
			dyn.object = kept
		}
		v.Set(reflect.ValueOf(dyn))
		return nil
	}
	if v.Type() == bigIntType {
		if fh.kind != KindU128 {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		n, err := d.decodeU128(fh)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(*n))
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return d.unmarshalField(fh, v.Elem(), fields, fieldName)

	case reflect.Interface:
		if v.NumMethod() != 0 {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		dyn, err := d.materializeDynamic(fh)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(dynamicToAny(dyn)))
		return nil

	case reflect.Struct:
		if fh.kind != KindMap {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		return d.unmarshalStruct(fh, v, fields)

	case reflect.Map:
		if fh.kind != KindMap {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		return d.unmarshalMap(fh, v)

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if fh.kind != KindBytes {
				return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
			}
			v.SetBytes(append([]byte(nil), d.decodeBytes(fh)...))
			return nil
		}
		if fh.kind != KindArray {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		return d.unmarshalSlice(fh, v)

	case reflect.String:
		if fh.kind != KindString {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		v.SetString(d.decodeString(fh))
		return nil

	case reflect.Bool:
		if fh.kind != KindBool {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		v.SetBool(d.decodeBool(fh))
		return nil

	case reflect.Uint16:
		if fh.kind != KindU16 {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		x, err := d.decodeU16(fh)
		v.SetUint(uint64(x))
		return err

	case reflect.Uint32:
		if fh.kind != KindU32 {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		x, err := d.decodeU32(fh)
		v.SetUint(uint64(x))
		return err

	case reflect.Uint64, reflect.Uint:
		if fh.kind != KindU64 {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		x, err := d.decodeU64(fh)
		v.SetUint(x)
		return err

	case reflect.Int32, reflect.Int:
		if fh.kind != KindI32 {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		x, err := d.decodeI32(fh)
		v.SetInt(int64(x))
		return err

	case reflect.Float64:
		if fh.kind != KindDouble {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		x, err := d.decodeDouble(fh)
		v.SetFloat(x)
		return err

	case reflect.Float32:
		if fh.kind != KindFloat {
			return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
		}
		x, err := d.decodeFloat(fh)
		v.SetFloat(float64(x))
		return err

	default:
		return &UnmarshalTypeError{Kind: fh.kind, Target: v.Type(), Field: fieldName}
	}
}

func (d *decoder) unmarshalStruct(fh fieldHeader, v reflect.Value, fields *FieldSet) error {
	targets := fieldsForType(v.Type())
	byName := make(map[string]structField, len(targets))
	for _, sf := range targets {
		byName[sf.name] = sf
	}

	cur := fh.dataStart
	for i := uint(0); i < fh.size; i++ {
		keyFh, err := d.decodeField(cur)
		if err != nil {
			return err
		}
		if keyFh.kind != KindString {
			return newInvalidDatabaseError("map key at offset %d is not a string (kind %s)", cur, keyFh.kind)
		}
		key := d.decodeString(keyFh)
		cur = keyFh.resumeAt

		valFh, err := d.decodeField(cur)
		if err != nil {
			return err
		}

		if fields != nil && !fields.Has(key) {
			cur, err = d.skipField(valFh)
			if err != nil {
				return err
			}
			continue
		}

		sf, ok := byName[key]
		if !ok {
			cur, err = d.skipField(valFh)
			if err != nil {
				return err
			}
			continue
		}
		// Projection (fields) only governs the outermost record; nested
		// struct/map/array fields always decode in full.
		if err := d.unmarshalField(valFh, v.FieldByIndex(sf.index), nil, key); err != nil {
			return err
		}
		cur = valFh.resumeAt
	}
	return nil
}

func (d *decoder) unmarshalMap(fh fieldHeader, v reflect.Value) error {
	if v.IsNil() {
		v.Set(reflect.MakeMapWithSize(v.Type(), int(fh.size)))
	}
	elemType := v.Type().Elem()
	cur := fh.dataStart
	for i := uint(0); i < fh.size; i++ {
		keyFh, err := d.decodeField(cur)
		if err != nil {
			return err
		}
		if keyFh.kind != KindString {
			return newInvalidDatabaseError("map key at offset %d is not a string (kind %s)", cur, keyFh.kind)
		}
		key := d.decodeString(keyFh)
		cur = keyFh.resumeAt

		valFh, err := d.decodeField(cur)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType).Elem()
		if err := d.unmarshalField(valFh, elem, nil, key); err != nil {
			return err
		}
		v.SetMapIndex(reflect.ValueOf(key), elem)
		cur = valFh.resumeAt
	}
	return nil
}

func (d *decoder) unmarshalSlice(fh fieldHeader, v reflect.Value) error {
	out := reflect.MakeSlice(v.Type(), 0, int(fh.size))
	elemType := v.Type().Elem()
	cur := fh.dataStart
	for i := uint(0); i < fh.size; i++ {
		elemFh, err := d.decodeField(cur)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType).Elem()
		if err := d.unmarshalField(elemFh, elem, nil, ""); err != nil {
			return err
		}
		out = reflect.Append(out, elem)
		cur = elemFh.resumeAt
	}
	v.Set(out)
	return nil
}

// assignDynamic assigns an already-materialized Dynamic value (spec.md
// §4.4) into v, a reflect target. It is the Within iterator's path:
// once a record has been pulled through the decoded-record cache as a
// Dynamic, re-projecting it into a caller's Go type needs no further
// access to the mapped buffer.
func assignDynamic(dyn Dynamic, v reflect.Value, fieldName string) error {
	if v.Type() == dynamicType {
		v.Set(reflect.ValueOf(dyn))
		return nil
	}
	if v.Type() == bigIntType {
		if dyn.Kind() != KindU128 {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.Set(reflect.ValueOf(*dyn.Uint128()))
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return assignDynamic(dyn, v.Elem(), fieldName)

	case reflect.Interface:
		if v.NumMethod() != 0 {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.Set(reflect.ValueOf(dynamicToAny(dyn)))
		return nil

	case reflect.Struct:
		if dyn.Kind() != KindMap {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		targets := fieldsForType(v.Type())
		var rangeErr error
		dyn.Map().Range(func(key string, val Dynamic) bool {
			for _, sf := range targets {
				if sf.name == key {
					if err := assignDynamic(val, v.FieldByIndex(sf.index), key); err != nil {
						rangeErr = err
						return false
					}
					break
				}
			}
			return true
		})
		return rangeErr

	case reflect.Map:
		if dyn.Kind() != KindMap {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		if v.IsNil() {
			v.Set(reflect.MakeMapWithSize(v.Type(), dyn.Map().Len()))
		}
		elemType := v.Type().Elem()
		var rangeErr error
		dyn.Map().Range(func(key string, val Dynamic) bool {
			elem := reflect.New(elemType).Elem()
			if err := assignDynamic(val, elem, key); err != nil {
				rangeErr = err
				return false
			}
			v.SetMapIndex(reflect.ValueOf(key), elem)
			return true
		})
		return rangeErr

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if dyn.Kind() != KindBytes {
				return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
			}
			v.SetBytes(append([]byte(nil), dyn.Bytes()...))
			return nil
		}
		if dyn.Kind() != KindArray {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		arr := dyn.Array()
		out := reflect.MakeSlice(v.Type(), 0, len(arr))
		elemType := v.Type().Elem()
		for _, e := range arr {
			elem := reflect.New(elemType).Elem()
			if err := assignDynamic(e, elem, fieldName); err != nil {
				return err
			}
			out = reflect.Append(out, elem)
		}
		v.Set(out)
		return nil

	case reflect.String:
		if dyn.Kind() != KindString {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetString(dyn.String())
		return nil

	case reflect.Bool:
		if dyn.Kind() != KindBool {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetBool(dyn.Bool())
		return nil

	case reflect.Uint16:
		if dyn.Kind() != KindU16 {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetUint(uint64(dyn.Uint16()))
		return nil

	case reflect.Uint32:
		if dyn.Kind() != KindU32 {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetUint(uint64(dyn.Uint32()))
		return nil

	case reflect.Uint64, reflect.Uint:
		if dyn.Kind() != KindU64 {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetUint(dyn.Uint64())
		return nil

	case reflect.Int32, reflect.Int:
		if dyn.Kind() != KindI32 {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetInt(int64(dyn.Int32()))
		return nil

	case reflect.Float64:
		if dyn.Kind() != KindDouble {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetFloat(dyn.Double())
		return nil

	case reflect.Float32:
		if dyn.Kind() != KindFloat {
			return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
		}
		v.SetFloat(float64(dyn.Float()))
		return nil

	default:
		return &UnmarshalTypeError{Kind: dyn.Kind(), Target: v.Type(), Field: fieldName}
	}
}

// dynamicToAny widens a Dynamic into the nearest built-in Go type, for
// decoding into an `any`/`interface{}` target (spec.md §4.5).
func dynamicToAny(d Dynamic) any {
	switch d.Kind() {
	case KindString:
		return d.String()
	case KindBytes:
		return d.Bytes()
	case KindU16:
		return d.Uint16()
	case KindU32:
		return d.Uint32()
	case KindU64:
		return d.Uint64()
	case KindI32:
		return d.Int32()
	case KindU128:
		return d.Uint128()
	case KindDouble:
		return d.Double()
	case KindFloat:
		return d.Float()
	case KindBool:
		return d.Bool()
	case KindArray:
		arr := d.Array()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = dynamicToAny(e)
		}
		return out
	case KindMap:
		m := d.Map()
		out := make(map[string]any, m.Len())
		m.Range(func(k string, v Dynamic) bool {
			out[k] = dynamicToAny(v)
			return true
		})
		return out
	default:
		return nil
	}
}
