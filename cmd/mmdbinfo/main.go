// Command mmdbinfo prints a database's metadata and, optionally, the
// record for a single address.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/netip"
	"os"

	"github.com/bjornstad/mmdbreader"
)

func main() {
	lookup := flag.String("ip", "", "look up this address in the database and print its record")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mmdbinfo [-ip address] <database.mmdb>")
		os.Exit(2)
	}

	r, err := mmdb.Mmap(flag.Arg(0))
	if err != nil {
		log.Fatalf("mmdbinfo: %v", err)
	}
	defer r.Close()

	fmt.Printf("database_type: %s\n", r.Metadata.DatabaseType)
	fmt.Printf("ip_version: %d\n", r.Metadata.IPVersion)
	fmt.Printf("record_size: %d\n", r.Metadata.RecordSize)
	fmt.Printf("node_count: %d\n", r.Metadata.NodeCount)
	fmt.Printf("build_time: %s\n", r.Metadata.BuildTime())

	if *lookup == "" {
		return
	}

	addr, err := netip.ParseAddr(*lookup)
	if err != nil {
		log.Fatalf("mmdbinfo: invalid address %q: %v", *lookup, err)
	}

	var record mmdb.Dynamic
	network, found, err := r.LookupNetwork(addr, &record)
	if err != nil {
		log.Fatalf("mmdbinfo: lookup failed: %v", err)
	}
	if !found {
		fmt.Printf("%s: no record\n", addr)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	fmt.Printf("%s covers %s\n", addr, network)
	if err := enc.Encode(dynamicToJSON(record)); err != nil {
		log.Fatalf("mmdbinfo: %v", err)
	}
}

func dynamicToJSON(d mmdb.Dynamic) any {
	switch d.Kind() {
	case mmdb.KindMap:
		out := make(map[string]any, d.Map().Len())
		d.Map().Range(func(k string, v mmdb.Dynamic) bool {
			out[k] = dynamicToJSON(v)
			return true
		})
		return out
	case mmdb.KindArray:
		arr := d.Array()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = dynamicToJSON(e)
		}
		return out
	case mmdb.KindString:
		return d.String()
	case mmdb.KindBytes:
		return d.Bytes()
	case mmdb.KindU16:
		return d.Uint16()
	case mmdb.KindU32:
		return d.Uint32()
	case mmdb.KindU64:
		return d.Uint64()
	case mmdb.KindI32:
		return d.Int32()
	case mmdb.KindU128:
		return d.Uint128().String()
	case mmdb.KindDouble:
		return d.Double()
	case mmdb.KindFloat:
		return d.Float()
	case mmdb.KindBool:
		return d.Bool()
	default:
		return nil
	}
}
