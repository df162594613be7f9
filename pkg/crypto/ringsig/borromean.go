// Package ringsig implements the two ring-signature schemes used to
// sign spends of one-time outputs: the legacy Borromean scheme and
// its CLSAG successor.
package ringsig

import (
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// borromeanDomain separates Borromean transcripts from every other
// Fiat-Shamir challenge in this module.
const borromeanDomain = "borromean-ring-signature"

// ErrRingLengthMismatch is returned when a signature's scalar vector
// does not have one entry per ring member.
var ErrRingLengthMismatch = errors.New("ringsig: signature vector length does not match ring size")

// ErrKeyImageNotSubgroupMember is returned when a key image fails the
// prime-order subgroup check.
var ErrKeyImageNotSubgroupMember = errors.New("ringsig: key image is not a subgroup member")

// BorromeanSignature is a ring signature over n public keys: a single
// challenge difference c, and one (L,R) response pair per ring member.
type BorromeanSignature struct {
	C crypto.Scalar
	L []crypto.Scalar
	R []crypto.Scalar
}

// BorromeanPending holds in-progress state for the real index, to be
// finished by CompleteBorromean once the spend secret is available.
type BorromeanPending struct {
	Sig      BorromeanSignature
	RealIdx  int
	Alpha    crypto.Scalar
	RealSumL crypto.Scalar
}

// GenerateBorromean produces a ring signature over msg for the ring of
// public keys pubs, proving knowledge of the secret at realIdx without
// revealing it, with keyImage bound into the transcript.
func GenerateBorromean(msg []byte, pubs []crypto.Point, keyImage crypto.Point, realIdx int) (BorromeanPending, error) {
	if !keyImage.IsSubgroupMember() {
		return BorromeanPending{}, ErrKeyImageNotSubgroupMember
	}
	n := len(pubs)
	l := make([]crypto.Scalar, n)
	r := make([]crypto.Scalar, n)

	alpha, err := crypto.RandomScalar()
	if err != nil {
		return BorromeanPending{}, err
	}
	if alpha.IsZero() {
		return GenerateBorromean(msg, pubs, keyImage, realIdx)
	}

	sumL := crypto.ZeroScalar
	for i := 0; i < n; i++ {
		if i == realIdx {
			continue
		}
		li, err := crypto.RandomScalar()
		if err != nil {
			return BorromeanPending{}, err
		}
		ri, err := crypto.RandomScalar()
		if err != nil {
			return BorromeanPending{}, err
		}
		l[i] = li
		r[i] = ri
		sumL = sumL.Add(li)
	}

	tr := crypto.NewTranscript(borromeanDomain)
	tr.UpdateBytes(msg)
	tr.UpdatePoint(keyImage)
	tr.UpdatePoints(pubs)
	for i := 0; i < n; i++ {
		if i == realIdx {
			lg := crypto.BaseMul(alpha)
			tr.UpdatePoint(lg)
			continue
		}
		lg := crypto.BaseMul(r[i]).Add(pubs[i].Mul(l[i]))
		tr.UpdatePoint(lg)
	}
	c := tr.Challenge()

	return BorromeanPending{
		Sig:      BorromeanSignature{C: c, L: l, R: r},
		RealIdx:  realIdx,
		Alpha:    alpha,
		RealSumL: sumL,
	}, nil
}

// CompleteBorromean fills in the real index's (L,R) pair using the
// spend secret, finishing a pending Borromean signature.
func CompleteBorromean(secret crypto.Scalar, pending BorromeanPending) BorromeanSignature {
	sig := pending.Sig
	n := len(sig.L)
	realL := sig.C.Sub(pending.RealSumL)
	sig.L = append([]crypto.Scalar(nil), sig.L...)
	sig.R = append([]crypto.Scalar(nil), sig.R...)
	sig.L[pending.RealIdx] = realL
	sig.R[pending.RealIdx] = pending.Alpha.Sub(realL.Mul(secret))
	_ = n
	return sig
}

// VerifyBorromean recomputes the ring transcript and checks it matches
// the stored challenge, and that the signature vector length matches
// the ring size.
func VerifyBorromean(msg []byte, pubs []crypto.Point, keyImage crypto.Point, sig BorromeanSignature) error {
	n := len(pubs)
	if len(sig.L) != n || len(sig.R) != n {
		return ErrRingLengthMismatch
	}
	if !keyImage.IsSubgroupMember() {
		return ErrKeyImageNotSubgroupMember
	}

	tr := crypto.NewTranscript(borromeanDomain)
	tr.UpdateBytes(msg)
	tr.UpdatePoint(keyImage)
	tr.UpdatePoints(pubs)
	sumL := crypto.ZeroScalar
	for i := 0; i < n; i++ {
		lg := crypto.BaseMul(sig.R[i]).Add(pubs[i].Mul(sig.L[i]))
		tr.UpdatePoint(lg)
		sumL = sumL.Add(sig.L[i])
	}
	c := tr.Challenge()

	if !c.Sub(sumL).IsZero() {
		return ErrVerificationFailed
	}
	return nil
}

// ErrVerificationFailed is returned by both ring-signature verifiers
// when the recomputed challenge does not match the stored one.
var ErrVerificationFailed = errors.New("ringsig: signature verification failed")
