// Package signature implements the single Schnorr-like signature used
// for coinbase authorization and other non-ring signing contexts.
package signature

import "github.com/Klingon-tech/klingnet-chain/pkg/crypto"

// domain separates single signatures from the other Fiat-Shamir
// transcripts in this package family.
const domain = "single-signature"

// Signature is a single Schnorr-like signature: L is the challenge
// component, R is the response (filled in by Complete).
type Signature struct {
	L crypto.Scalar
	R crypto.Scalar
}

// PendingSignature holds the prover's nonce alongside the in-progress
// signature so Complete can finish it once the signer's secret key is
// available (e.g. after a hardware-wallet round trip).
type PendingSignature struct {
	Sig   Signature
	Alpha crypto.Scalar
}

// Prepare begins a signature over msg for public key A, returning
// c = Hs(domain || msg || A || alpha*G) with alpha retained for Complete.
func Prepare(msg []byte, a crypto.Point) (PendingSignature, error) {
	alpha, err := crypto.RandomScalar()
	if err != nil {
		return PendingSignature{}, err
	}
	if alpha.IsZero() {
		return Prepare(msg, a) // restart on the zero-nonce edge case
	}
	aBytes := a.Bytes()
	alphaG := crypto.BaseMul(alpha)
	alphaGBytes := alphaG.Bytes()
	c := crypto.HashToScalar([]byte(domain), msg, aBytes[:], alphaGBytes[:])
	return PendingSignature{Sig: Signature{L: c}, Alpha: alpha}, nil
}

// Complete finishes a prepared signature given the secret key a,
// setting R = alpha - c*a.
func Complete(secret crypto.Scalar, pending PendingSignature) Signature {
	r := pending.Alpha.Sub(pending.Sig.L.Mul(secret))
	return Signature{L: pending.Sig.L, R: r}
}

// Verify recomputes c' = Hs(domain || msg || A || (sig.L*A + sig.R*G))
// and accepts iff c' - sig.L is zero.
func Verify(msg []byte, a crypto.Point, sig Signature) bool {
	aBytes := a.Bytes()
	rhs := a.Mul(sig.L).Add(crypto.BaseMul(sig.R))
	rhsBytes := rhs.Bytes()
	cPrime := crypto.HashToScalar([]byte(domain), msg, aBytes[:], rhsBytes[:])
	return cPrime.Sub(sig.L).IsZero()
}
