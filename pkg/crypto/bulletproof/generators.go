// Package bulletproof implements Bulletproofs and Bulletproofs+ range
// proofs over Pedersen commitments, proving each committed amount lies
// in [0, 2^N) without revealing it.
package bulletproof

import (
	"sync"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// generatorDomain separates the Bulletproofs generator-vector hash
// chain from every other domain-separated hash in the module.
const generatorDomain = "bulletproof-generator"

// GeneratorCache lazily derives and caches the domain-separated
// generator vectors (G_i, H_i) that every proof in a batch shares.
// A single cache must be reused across a batch verification so the
// generators are not recomputed per proof.
type GeneratorCache struct {
	mu sync.Mutex
	g  []crypto.Point
	h  []crypto.Point
}

// NewGeneratorCache returns an empty cache. Generators are derived on
// first use and extended lazily as larger proofs request more.
func NewGeneratorCache() *GeneratorCache {
	return &GeneratorCache{}
}

// Vectors returns the first n (G_i, H_i) generator pairs, extending
// the cache if it does not yet hold enough.
func (c *GeneratorCache) Vectors(n int) ([]crypto.Point, []crypto.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.g) < n {
		i := uint64(len(c.g))
		c.g = append(c.g, deriveGenerator("G", i))
		c.h = append(c.h, deriveGenerator("H", i))
	}
	return append([]crypto.Point(nil), c.g[:n]...), append([]crypto.Point(nil), c.h[:n]...)
}

func deriveGenerator(label string, index uint64) crypto.Point {
	idx := make([]byte, 8)
	for i := 0; i < 8; i++ {
		idx[i] = byte(index >> (8 * uint(i)))
	}
	seed := crypto.BasePoint.Bytes()
	return crypto.HashToPoint([]byte(generatorDomain), []byte(label), idx, seed[:])
}

// Pow2Round rounds a commitment-batch count up to the next power of
// two; Pow2Round(0) and Pow2Round(1) both return 1.
func Pow2Round(v int) int {
	if v <= 1 {
		return 1
	}
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}
