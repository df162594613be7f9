// Package crypto implements the Ed25519 field/group primitives, the
// Fiat-Shamir transcript, and the hash functions the rest of the node's
// confidential-transaction layer is built on.
package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// ScalarSize is the width of a canonical scalar encoding.
const ScalarSize = 32

// order is the prime order of the Ed25519 base point's subgroup,
// l = 2^252 + 27742317777372353535851937790883648493.
var order, _ = new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)

// ErrInvalidScalar is returned when a byte string is not a canonical,
// fully-reduced little-endian scalar encoding.
var ErrInvalidScalar = errors.New("crypto: invalid scalar encoding")

// Scalar is an integer modulo the group order l, stored canonically as
// 32 little-endian bytes.
type Scalar [ScalarSize]byte

// ZeroScalar is the additive identity.
var ZeroScalar = Scalar{}

// OneScalar is the multiplicative identity.
var OneScalar = scalarFromBig(big.NewInt(1))

func scalarFromBig(v *big.Int) Scalar {
	v = new(big.Int).Mod(v, order)
	var s Scalar
	b := v.Bytes() // big-endian
	for i := 0; i < len(b); i++ {
		s[i] = b[len(b)-1-i]
	}
	return s
}

func (s Scalar) big() *big.Int {
	be := make([]byte, ScalarSize)
	for i := 0; i < ScalarSize; i++ {
		be[ScalarSize-1-i] = s[i]
	}
	return new(big.Int).SetBytes(be)
}

// Bytes returns the canonical little-endian encoding of s.
func (s Scalar) Bytes() []byte {
	out := make([]byte, ScalarSize)
	copy(out, s[:])
	return out
}

// IsZero reports whether s is the zero scalar.
func (s Scalar) IsZero() bool {
	return s == ZeroScalar
}

// Equal reports whether s and o encode the same residue.
func (s Scalar) Equal(o Scalar) bool {
	return s == o
}

// Add returns s + o mod l.
func (s Scalar) Add(o Scalar) Scalar {
	return scalarFromBig(new(big.Int).Add(s.big(), o.big()))
}

// Sub returns s - o mod l.
func (s Scalar) Sub(o Scalar) Scalar {
	return scalarFromBig(new(big.Int).Sub(s.big(), o.big()))
}

// Mul returns s * o mod l.
func (s Scalar) Mul(o Scalar) Scalar {
	return scalarFromBig(new(big.Int).Mul(s.big(), o.big()))
}

// Negate returns -s mod l.
func (s Scalar) Negate() Scalar {
	return scalarFromBig(new(big.Int).Neg(s.big()))
}

// Square returns s*s mod l.
func (s Scalar) Square() Scalar {
	return s.Mul(s)
}

// Invert returns the multiplicative inverse of s mod l. Panics if s is zero;
// callers must check IsZero first since a zero divisor is always a caller bug.
func (s Scalar) Invert() Scalar {
	if s.IsZero() {
		panic("crypto: inversion of zero scalar")
	}
	return scalarFromBig(new(big.Int).ModInverse(s.big(), order))
}

// Pow returns s^e mod l.
func (s Scalar) Pow(e uint64) Scalar {
	return scalarFromBig(new(big.Int).Exp(s.big(), new(big.Int).SetUint64(e), order))
}

// ToBits returns the 256 individual bits of the canonical encoding of s,
// least-significant bit first.
func (s Scalar) ToBits() [256]bool {
	var bits [256]bool
	for i := 0; i < ScalarSize; i++ {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (s[i]>>uint(j))&1 == 1
		}
	}
	return bits
}

// ScalarFromBits reconstructs a scalar from the bit vector produced by
// ToBits. Property 1 (§8): ScalarFromBits(s.ToBits()) == s for all s.
func ScalarFromBits(bits [256]bool) Scalar {
	var s Scalar
	for i := 0; i < ScalarSize; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			if bits[i*8+j] {
				b |= 1 << uint(j)
			}
		}
		s[i] = b
	}
	return scalarFromBig(s.big())
}

// CheckScalar reports whether b is a canonical, fully-reduced 32-byte
// little-endian scalar encoding (no modification, a pure predicate).
func CheckScalar(b []byte) bool {
	if len(b) != ScalarSize {
		return false
	}
	var s Scalar
	copy(s[:], b)
	return s.big().Cmp(order) < 0
}

// NewScalarCanonical parses b as a canonical scalar, rejecting any encoding
// that is not fully reduced mod l.
func NewScalarCanonical(b []byte) (Scalar, error) {
	if !CheckScalar(b) {
		return Scalar{}, ErrInvalidScalar
	}
	var s Scalar
	copy(s[:], b)
	return s, nil
}

// ScalarReduce reduces an arbitrary-length little-endian byte string
// (typically a 64-byte hash) modulo l.
func ScalarReduce(b []byte) Scalar {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return scalarFromBig(new(big.Int).SetBytes(be))
}

// RandomScalar returns a cryptographically random, uniformly distributed
// scalar mod l.
func RandomScalar() (Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Scalar{}, err
	}
	return ScalarReduce(buf[:]), nil
}
