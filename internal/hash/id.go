// Package hash provides the fast, allocation-free hashing used to key
// internal lookup structures (the schema cache's entry map) by
// (endpoint, table) pairs.
package hash

import "github.com/cespare/xxhash/v2"

// Key computes the xxHash64 of the given string.
//
// It is used to derive a fixed-size cache key from a normalized
// "endpoint|catalog.table" string, the same role xxHash64 plays hashing
// metric identifiers in the codec's sibling packages.
func Key(data string) uint64 {
	return xxhash.Sum64String(data)
}
