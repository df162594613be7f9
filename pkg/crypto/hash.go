package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Hash256 computes the SHA3-256 digest of data. This is the domain-neutral
// hash used throughout the node wherever the spec calls for "sha3" (block
// hashing, transaction hashing, payment-id derivation).
func Hash256(data ...[]byte) [32]byte {
	h := sha3.New256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashToScalar hashes the concatenation of data with SHA3-256 and reduces
// the digest modulo the group order l.
func HashToScalar(data ...[]byte) Scalar {
	digest := Hash256(data...)
	return ScalarReduce(digest[:])
}

// HashToPoint maps arbitrary bytes onto a point in the prime-order
// subgroup. It hashes data to a field element via SHA3-256, decodes the
// result as an Ed25519 y-coordinate by trial-and-increment, then clears
// the cofactor by multiplying by 8.
func HashToPoint(data ...[]byte) Point {
	digest := Hash256(data...)
	var counter [8]byte
	for i := uint64(0); ; i++ {
		binary.LittleEndian.PutUint64(counter[:], i)
		candidate := Hash256(digest[:], counter[:])
		// Clear the two top bits to keep the value a valid field element
		// representative before attempting to decode it as a y-coordinate.
		candidate[31] &= 0x3f
		pt, err := NewPoint(candidate[:])
		if err != nil {
			continue
		}
		return pt.MulByCofactor()
	}
}

// DomainHashToScalar folds a static domain-separation label into a
// HashToScalar call, matching the CryptoNote pattern of prefixing hash
// inputs with a short ASCII tag (e.g. "amount", "commitment_mask").
func DomainHashToScalar(domain string, data ...[]byte) Scalar {
	all := make([][]byte, 0, len(data)+1)
	all = append(all, []byte(domain))
	all = append(all, data...)
	return HashToScalar(all...)
}
