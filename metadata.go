package mmdb

import "time"

// Metadata describes a database's structure, decoded once at Open time
// from the self-describing map at the end of the file (spec.md §6).
type Metadata struct {
	NodeCount                uint32
	RecordSize               uint16
	IPVersion                uint16
	DatabaseType             string
	Languages                []string
	BinaryFormatMajorVersion uint16
	BinaryFormatMinorVersion uint16
	BuildEpoch               uint64
	Description              map[string]string

	// nodeByteSize and searchTreeSize are derived from RecordSize and
	// NodeCount (spec.md §4, invariant I1); they are cached here rather
	// than recomputed on every lookup.
	nodeByteSize   uint
	searchTreeSize uint
}

// BuildTime returns the database's build timestamp.
func (m *Metadata) BuildTime() time.Time {
	return time.Unix(int64(m.BuildEpoch), 0).UTC()
}

// decodeMetadata parses the metadata map, which begins immediately
// after the 14-byte marker (spec.md §6.1) and occupies the remainder
// of the file. buf must be sliced to exactly that span.
func decodeMetadata(buf []byte) (*Metadata, error) {
	d := &decoder{buffer: buf}
	v, _, err := d.decodeDynamic(0)
	if err != nil {
		return nil, newInvalidDatabaseError("decoding metadata: %v", err)
	}
	if v.Kind() != KindMap {
		return nil, newInvalidDatabaseError("metadata section is not a map (kind %s)", v.Kind())
	}
	obj := v.Map()

	m := &Metadata{}

	nodeCount, err := requireU32(obj, "node_count")
	if err != nil {
		return nil, err
	}
	m.NodeCount = nodeCount

	recordSize, err := requireU16(obj, "record_size")
	if err != nil {
		return nil, err
	}
	if recordSize != 24 && recordSize != 28 && recordSize != 32 {
		return nil, newInvalidDatabaseError("unsupported record_size %d", recordSize)
	}
	m.RecordSize = recordSize

	ipVersion, err := requireU16(obj, "ip_version")
	if err != nil {
		return nil, err
	}
	if ipVersion != 4 && ipVersion != 6 {
		return nil, newInvalidDatabaseError("unsupported ip_version %d", ipVersion)
	}
	m.IPVersion = ipVersion

	dbType, ok := obj.Get("database_type")
	if !ok || dbType.Kind() != KindString {
		return nil, newInvalidDatabaseError("metadata missing string database_type")
	}
	m.DatabaseType = dbType.String()

	langs, ok := obj.Get("languages")
	if ok {
		if langs.Kind() != KindArray {
			return nil, newInvalidDatabaseError("metadata languages is not an array")
		}
		for _, l := range langs.Array() {
			if l.Kind() != KindString {
				return nil, newInvalidDatabaseError("metadata languages entry is not a string")
			}
			m.Languages = append(m.Languages, l.String())
		}
	}

	major, err := requireU16(obj, "binary_format_major_version")
	if err != nil {
		return nil, err
	}
	m.BinaryFormatMajorVersion = major

	minor, err := requireU16(obj, "binary_format_minor_version")
	if err != nil {
		return nil, err
	}
	m.BinaryFormatMinorVersion = minor

	epoch, ok := obj.Get("build_epoch")
	if !ok || epoch.Kind() != KindU64 {
		return nil, newInvalidDatabaseError("metadata missing uint64 build_epoch")
	}
	m.BuildEpoch = epoch.Uint64()

	desc, ok := obj.Get("description")
	if ok {
		if desc.Kind() != KindMap {
			return nil, newInvalidDatabaseError("metadata description is not a map")
		}
		m.Description = make(map[string]string, desc.Map().Len())
		desc.Map().Range(func(k string, v Dynamic) bool {
			m.Description[k] = v.String()
			return true
		})
	}

	m.nodeByteSize = uint(m.RecordSize) * 2 / 8
	m.searchTreeSize = m.nodeByteSize * uint(m.NodeCount)

	return m, nil
}

func requireU32(obj *Map, key string) (uint32, error) {
	v, ok := obj.Get(key)
	if !ok || v.Kind() != KindU32 {
		return 0, newInvalidDatabaseError("metadata missing uint32 %s", key)
	}
	return v.Uint32(), nil
}

func requireU16(obj *Map, key string) (uint16, error) {
	v, ok := obj.Get(key)
	if !ok || v.Kind() != KindU16 {
		return 0, newInvalidDatabaseError("metadata missing uint16 %s", key)
	}
	return v.Uint16(), nil
}
