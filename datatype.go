package mmdb

// Kind identifies the wire type of a data field, per spec.md §3 and §4.3.
// The top three bits of a control byte name Kind 1-7 directly; Kind 0
// ("extended") defers to a second byte, ext, with the real kind being
// ext+7.
type Kind uint8

const (
	kindExtended Kind = iota
	KindPointer
	KindString
	KindDouble
	KindBytes
	KindU16
	KindU32
	KindMap
	KindI32
	// Kinds 9-15 only ever appear via the extended byte (ext = kind-7).
	KindU64
	KindU128
	KindArray
	kindContainer
	kindMarker
	KindBool
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindPointer:
		return "pointer"
	case KindString:
		return "string"
	case KindDouble:
		return "double"
	case KindBytes:
		return "bytes"
	case KindU16:
		return "uint16"
	case KindU32:
		return "uint32"
	case KindMap:
		return "map"
	case KindI32:
		return "int32"
	case KindU64:
		return "uint64"
	case KindU128:
		return "uint128"
	case KindArray:
		return "array"
	case kindContainer:
		return "container"
	case kindMarker:
		return "marker"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float32"
	default:
		return "extended"
	}
}

// maxExtByte is the largest ext byte spec.md §4.3 allows: ext+7 must not
// exceed KindFloat (15).
const maxExtByte = 8
