// Package mmdb reads MaxMind DB (.mmdb) files: a memory-mappable
// binary format pairing a packed IP search tree with a self-describing
// data section, used to look up per-address records like GeoIP2 and
// GeoLite2 databases.
//
// # Usage
//
//	r, err := mmdb.Mmap("GeoLite2-City.mmdb")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	var record struct {
//		City struct {
//			Names map[string]string `mmdb:"names"`
//		} `mmdb:"city"`
//	}
//	ip := netip.MustParseAddr("203.0.113.1")
//	found, err := r.Lookup(ip, &record)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if found {
//		fmt.Println(record.City.Names["en"])
//	}
//
// Callers that don't have a fixed Go shape for the database's records
// can decode into a Dynamic value instead, via LookupNetwork or
// Reader.Within, and read fields out by name.
//
// # Open vs. Mmap
//
// Mmap maps the file read-only and never copies its bytes; Open reads
// the file onto the heap instead, bounded by a caller-supplied maximum
// size, for callers that can't use (or don't want) a memory mapping.
// Both parse the same way and return the same Reader.
//
// # Lifetime
//
// A Reader opened with Mmap memory-maps the database file; every
// string and []byte value it decodes aliases that mapping rather than
// copying it, so none of them may outlive a call to Reader.Close. A
// Reader opened with Open holds its own heap copy instead, but the
// same rule still applies: decoded values alias that copy and must
// not be used after Close.
package mmdb
