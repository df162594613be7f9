package ringsig

import (
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// CLSAG transcript domain separators. Round transcripts use domain 1;
// the mixing scalars mu_P and mu_C are bound with domains 0 and 2
// respectively, so a commitment-aware and a plain signature over the
// same ring can never be confused for one another.
const (
	clsagDomainMuP   = "clsag-mu-p"
	clsagDomainRound = "clsag-round"
	clsagDomainMuC   = "clsag-mu-c"
)

// ErrCommitmentAwareMismatch is returned when a commitment-aware
// signature is missing its commitment key image, or carries one when
// none was requested.
var ErrCommitmentAwareMismatch = errors.New("ringsig: commitment key image presence does not match the signature's commitment-aware flag")

// CLSAGSignature is the wire-level CLSAG ring signature: one scalar
// per ring position, the chain's starting challenge, and an optional
// commitment key image for commitment-aware (balance-proving) spends.
type CLSAGSignature struct {
	S                []crypto.Scalar
	C0               crypto.Scalar
	CommitmentAware  bool
	CommitmentKeyImg crypto.Point
}

// CLSAGRing describes the public data a CLSAG signature is produced
// or verified against: the ring of one-time output public keys and,
// for commitment-aware signatures, the matching commitments and the
// fresh pseudo-output commitment they must be proven equal to.
type CLSAGRing struct {
	Pubs        []crypto.Point
	Commitments []crypto.Point // nil unless commitment-aware
	Pseudo      crypto.Point   // C_pseudo, ignored unless commitment-aware
}

func (r CLSAGRing) commitmentAware() bool {
	return r.Commitments != nil
}

// CLSAGPending holds in-progress prover state for the real index, to
// be finished by CompleteCLSAG once the spend secret (and, for
// commitment-aware signatures, the blinding difference z) is known.
type CLSAGPending struct {
	Sig     CLSAGSignature
	RealIdx int
	HReal   crypto.Scalar
	Alpha   crypto.Scalar
	MuP     crypto.Scalar
	MuC     crypto.Scalar
}

// clsagMixingScalars derives (mu_P, mu_C) bound to the full ring, the
// key image, and (if commitment-aware) the commitment key image. mu_C
// is the zero scalar for a plain (non-commitment-aware) signature.
func clsagMixingScalars(ring CLSAGRing, keyImage, commitmentKeyImg crypto.Point) (muP, muC crypto.Scalar) {
	trP := crypto.NewTranscript(clsagDomainMuP)
	trP.UpdatePoints(ring.Pubs)
	trP.UpdatePoint(keyImage)
	if ring.commitmentAware() {
		trP.UpdatePoints(ring.Commitments)
		trP.UpdatePoint(ring.Pseudo)
		trP.UpdatePoint(commitmentKeyImg)
	}
	muP = trP.Challenge()

	if !ring.commitmentAware() {
		return muP, crypto.ZeroScalar
	}

	trC := crypto.NewTranscript(clsagDomainMuC)
	trC.UpdatePoints(ring.Pubs)
	trC.UpdatePoint(keyImage)
	trC.UpdatePoints(ring.Commitments)
	trC.UpdatePoint(ring.Pseudo)
	trC.UpdatePoint(commitmentKeyImg)
	muC = trC.Challenge()
	return muP, muC
}

// clsagRoundPoints computes the (L,R) pair for ring position i given
// that round's challenge h and response scalar s.
func clsagRoundPoints(msg []byte, ring CLSAGRing, keyImage, commitmentKeyImg crypto.Point, h, s, muP, muC crypto.Scalar, i int) (crypto.Point, crypto.Point) {
	r := h.Mul(muP)
	hp := crypto.HashToPoint(pointBytesClsag(ring.Pubs[i]))

	L := ring.Pubs[i].Mul(r).Add(crypto.BaseMul(s))
	R := hp.Mul(s).Add(keyImage.Mul(r))

	if ring.commitmentAware() {
		aux := ring.Commitments[i].Sub(ring.Pseudo)
		rc := h.Mul(muC)
		L = L.Add(aux.Mul(rc))
		R = R.Add(commitmentKeyImg.Mul(rc))
	}
	return L, R
}

func pointBytesClsag(p crypto.Point) []byte {
	b := p.Bytes()
	return b[:]
}

func clsagNextChallenge(msg []byte, keyImage, commitmentKeyImg crypto.Point, L, R crypto.Point) crypto.Scalar {
	tr := crypto.NewTranscript(clsagDomainRound)
	tr.UpdateBytes(msg)
	tr.UpdatePoint(keyImage)
	tr.UpdatePoint(commitmentKeyImg)
	tr.UpdatePoint(L)
	tr.UpdatePoint(R)
	return tr.Challenge()
}

// GenerateCLSAG produces a CLSAG ring signature over msg for the ring,
// proving knowledge of the one-time secret at realIdx. If ring is
// commitment-aware, commitmentKeyImg must be the commitment key image
// D = z*Hp(P[realIdx]) for the blinding difference z the caller will
// supply to CompleteCLSAG.
func GenerateCLSAG(msg []byte, ring CLSAGRing, keyImage, commitmentKeyImg crypto.Point, realIdx int) (CLSAGPending, error) {
	if !keyImage.IsSubgroupMember() {
		return CLSAGPending{}, ErrKeyImageNotSubgroupMember
	}
	if ring.commitmentAware() && len(ring.Commitments) != len(ring.Pubs) {
		return CLSAGPending{}, ErrRingLengthMismatch
	}

	n := len(ring.Pubs)
	s := make([]crypto.Scalar, n)
	muP, muC := clsagMixingScalars(ring, keyImage, commitmentKeyImg)

	alpha, err := crypto.RandomScalar()
	if err != nil {
		return CLSAGPending{}, err
	}
	if alpha.IsZero() {
		return GenerateCLSAG(msg, ring, keyImage, commitmentKeyImg, realIdx)
	}

	for i := 0; i < n; i++ {
		if i != realIdx {
			si, err := crypto.RandomScalar()
			if err != nil {
				return CLSAGPending{}, err
			}
			s[i] = si
		}
	}

	// Seed the chain at the real index using the prover's nonce alpha,
	// then walk forward (real+1) mod n, (real+2) mod n, ... wrapping
	// back around to just before the real index.
	// The single nonce alpha seeds both key equations at once: the
	// commitment-aware auxiliary term cancels out algebraically at the
	// real index, so the seed points need no separate aux contribution.
	aG := crypto.BaseMul(alpha)
	aHp := crypto.HashToPoint(pointBytesClsag(ring.Pubs[realIdx])).Mul(alpha)
	h := clsagNextChallenge(msg, keyImage, commitmentKeyImg, aG, aHp)

	var h0 crypto.Scalar
	idx := (realIdx + 1) % n
	for idx != realIdx {
		if idx == 0 {
			h0 = h
		}
		L, R := clsagRoundPoints(msg, ring, keyImage, commitmentKeyImg, h, s[idx], muP, muC, idx)
		h = clsagNextChallenge(msg, keyImage, commitmentKeyImg, L, R)
		idx = (idx + 1) % n
	}
	hReal := h
	if realIdx == 0 {
		h0 = hReal
	}

	return CLSAGPending{
		Sig: CLSAGSignature{
			S:                s,
			C0:               h0,
			CommitmentAware:  ring.commitmentAware(),
			CommitmentKeyImg: commitmentKeyImg,
		},
		RealIdx: realIdx,
		HReal:   hReal,
		Alpha:   alpha,
		MuP:     muP,
		MuC:     muC,
	}, nil
}

// CompleteCLSAG finishes a pending CLSAG signature given the one-time
// output's spend secret p and, for commitment-aware signatures, the
// blinding difference z = input_blinding - pseudo_blinding.
func CompleteCLSAG(secret, z crypto.Scalar, pending CLSAGPending) CLSAGSignature {
	sig := pending.Sig
	sig.S = append([]crypto.Scalar(nil), sig.S...)

	term := secret.Mul(pending.MuP)
	if sig.CommitmentAware {
		term = term.Add(z.Mul(pending.MuC))
	}
	sig.S[pending.RealIdx] = pending.Alpha.Sub(pending.HReal.Mul(term))
	return sig
}

// VerifyCLSAG recomputes the CLSAG challenge chain and checks it
// closes, i.e. walking all n rounds starting from the stored
// challenge C0 returns exactly C0.
func VerifyCLSAG(msg []byte, ring CLSAGRing, keyImage crypto.Point, sig CLSAGSignature) error {
	n := len(ring.Pubs)
	if len(sig.S) != n {
		return ErrRingLengthMismatch
	}
	if ring.commitmentAware() != sig.CommitmentAware {
		return ErrCommitmentAwareMismatch
	}
	if ring.commitmentAware() && len(ring.Commitments) != n {
		return ErrRingLengthMismatch
	}
	if !keyImage.IsSubgroupMember() {
		return ErrKeyImageNotSubgroupMember
	}

	muP, muC := clsagMixingScalars(ring, keyImage, sig.CommitmentKeyImg)

	h := sig.C0
	for i := 0; i < n; i++ {
		L, R := clsagRoundPoints(msg, ring, keyImage, sig.CommitmentKeyImg, h, sig.S[i], muP, muC, i)
		h = clsagNextChallenge(msg, keyImage, sig.CommitmentKeyImg, L, R)
	}

	if !h.Sub(sig.C0).IsZero() {
		return ErrVerificationFailed
	}
	return nil
}
