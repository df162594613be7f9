package types

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PutVarint appends x encoded as a LEB128 unsigned varint to buf.
func PutVarint(buf []byte, x uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	return append(buf, tmp[:n]...)
}

// ReadVarint reads a LEB128 unsigned varint from r.
func ReadVarint(r io.ByteReader) (uint64, error) {
	x, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("read varint: %w", err)
	}
	return x, nil
}
