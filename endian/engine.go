// Package endian names the byte order the RowBinary wire format uses.
//
// Every fixed-width field on the wire is little-endian, independent of
// the host. The Engine interface unifies encoding/binary's ByteOrder and
// AppendByteOrder so codec code can hold a single value for both put and
// append style writes.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// Engine combines ByteOrder and AppendByteOrder. binary.LittleEndian and
// binary.BigEndian both satisfy it.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Little returns the wire byte order. All RowBinary fields use it.
func Little() Engine {
	return binary.LittleEndian
}

// HostOrder reports the byte order of the machine this process runs on.
// The codec's output never depends on it; it exists so tests can assert
// the wire format is host-independent.
func HostOrder() binary.ByteOrder {
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}
