// Package multisig implements the shared-key and partial-signing
// primitives needed for M-of-N multisig wallets layered on top of
// CryptoNote-style one-time outputs.
package multisig

import (
	"bytes"
	"sort"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// PairwiseSharedSecret computes ms(A,b) = Hs(8*(b*A)) for participant
// public key A and a counterparty's secret key b.
func PairwiseSharedSecret(a crypto.Point, b crypto.Scalar) crypto.Scalar {
	shared := a.Mul(b).MulByCofactor()
	enc := shared.Bytes()
	return crypto.HashToScalar(enc[:])
}

// RoundsNeeded returns the number of key-exchange rounds an M-of-N
// multisig wallet requires: N - M + 1.
func RoundsNeeded(m, n int) int {
	return n - m + 1
}

// SharedPublicKey sums the deduplicated, sorted set of participant
// public keys into a single multisig spend public key.
func SharedPublicKey(keys []crypto.Point) crypto.Point {
	sorted := dedupSortPoints(keys)
	acc := crypto.IdentityPoint
	for _, k := range sorted {
		acc = acc.Add(k)
	}
	return acc
}

// SharedSecret sums the deduplicated, sorted set of participant secret
// keys into a single multisig spend secret (held collectively; no single
// participant computes this directly except in an N-of-N wallet).
func SharedSecret(keys []crypto.Scalar) crypto.Scalar {
	sorted := dedupSortScalars(keys)
	acc := crypto.ZeroScalar
	for _, k := range sorted {
		acc = acc.Add(k)
	}
	return acc
}

// RestoreKeyImage reconstructs the full key image
// I = Hp(P)*Ds + sum(partials) from each participant's partial key-image
// contribution, where Ds is the caller's own derivation-to-scalar term.
func RestoreKeyImage(hp crypto.Point, ds crypto.Scalar, partials []crypto.Point) crypto.Point {
	acc := hp.Mul(ds)
	for _, p := range partials {
		acc = acc.Add(p)
	}
	return acc
}

// PartialSigningScalar computes a participant's contribution to a ring
// signature's real-index response: mixingScalar * spendSecret. For single
// (Schnorr) and Borromean signatures mixingScalar is the signature's
// stored `L` challenge component (s.L); for CLSAG it is the per-round
// mixing scalar mu_P.
func PartialSigningScalar(mixingScalar, spendSecret crypto.Scalar) crypto.Scalar {
	return mixingScalar.Mul(spendSecret)
}

func dedupSortPoints(keys []crypto.Point) []crypto.Point {
	seen := make(map[[32]byte]struct{}, len(keys))
	out := make([]crypto.Point, 0, len(keys))
	for _, k := range keys {
		b := k.Bytes()
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := out[i].Bytes(), out[j].Bytes()
		return bytes.Compare(bi[:], bj[:]) < 0
	})
	return out
}

func dedupSortScalars(keys []crypto.Scalar) []crypto.Scalar {
	seen := make(map[[32]byte]struct{}, len(keys))
	out := make([]crypto.Scalar, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}
