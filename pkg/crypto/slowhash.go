package crypto

import "encoding/binary"

// SlowHash256 is the proof-of-work hash applied to the header bytes
// CryptoNote-family coins normally run through their CryptoNight-style
// slow hash. It takes Hash256 of the input as a 32-byte state, rehashes
// that state together with a little-endian round counter and the input
// for `rounds` iterations, then returns Hash256 of the final state. It
// keeps no scratchpad and is not memory-hard: its cost grows only with
// rounds.
//
// This function does NOT reproduce byte-for-bit output of the reference
// CryptoNight slow hash; see DESIGN.md for the open-question resolution.
func SlowHash256(input []byte, rounds int) [32]byte {
	scratch := Hash256(input)
	var ctr [8]byte
	for r := 0; r < rounds; r++ {
		binary.LittleEndian.PutUint64(ctr[:], uint64(r))
		scratch = Hash256(scratch[:], ctr[:], input)
	}
	return Hash256(scratch[:])
}
