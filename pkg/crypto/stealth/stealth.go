// Package stealth implements CryptoNote-style one-time output derivation:
// the sender/receiver key-derivation scheme that lets a spend public key
// be reused across many outputs without any two becoming linkable on-chain.
package stealth

import (
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// Derivation computes D = 8*(a*B), the shared secret between a sender
// holding the recipient's view public key B and the recipient's secret
// view key a (or symmetrically, the recipient holding the sender's
// transaction public key R and its own secret view key).
func Derivation(viewSecret crypto.Scalar, otherPublic crypto.Point) crypto.Point {
	return otherPublic.Mul(viewSecret).MulByCofactor()
}

// DerivationToScalar computes Ds = Hs(D || varint(i)) for output index i.
func DerivationToScalar(derivation crypto.Point, outputIndex uint64) crypto.Scalar {
	enc := derivation.Bytes()
	return crypto.HashToScalar(enc[:], encodeVarint(outputIndex))
}

// DerivePublicKey computes the one-time output public key
// P = Ds*G + B for recipient spend public key B.
func DerivePublicKey(ds crypto.Scalar, spendPublic crypto.Point) crypto.Point {
	return crypto.BaseMul(ds).Add(spendPublic)
}

// DeriveSecretKey computes the one-time output secret key p = Ds + b,
// usable only by the holder of the recipient's spend secret key b.
func DeriveSecretKey(ds crypto.Scalar, spendSecret crypto.Scalar) crypto.Scalar {
	return ds.Add(spendSecret)
}

// UnderivePublicKey recovers the destination spend public key
// B' = P - Ds*G from a one-time output key P, for wallet scanning.
func UnderivePublicKey(p crypto.Point, ds crypto.Scalar) crypto.Point {
	return p.Sub(crypto.BaseMul(ds))
}

// KeyImage computes the linkability tag I = p * Hp(P) for a one-time
// output's owner secret p, where P is the output's own public key.
func KeyImage(oneTimeSecret crypto.Scalar, oneTimePublic crypto.Point) crypto.Point {
	hp := crypto.HashToPoint(pointBytes(oneTimePublic))
	return hp.Mul(oneTimeSecret)
}

func pointBytes(p crypto.Point) []byte {
	b := p.Bytes()
	return b[:]
}

func encodeVarint(v uint64) []byte {
	var buf [10]byte
	n := 0
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf[n] = b | 0x80
		} else {
			buf[n] = b
		}
		n++
		if v == 0 {
			break
		}
	}
	return buf[:n]
}
