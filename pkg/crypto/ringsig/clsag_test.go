package ringsig

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/stealth"
)

func TestCLSAGPlainSignVerifyRoundTrip(t *testing.T) {
	msg := []byte("prefix hash")
	pubs, secret, img := buildRing(t, 5, 3)
	ring := CLSAGRing{Pubs: pubs}

	pending, err := GenerateCLSAG(msg, ring, img, crypto.IdentityPoint, 3)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteCLSAG(secret, crypto.ZeroScalar, pending)

	if err := VerifyCLSAG(msg, ring, img, sig); err != nil {
		t.Fatalf("valid plain CLSAG signature rejected: %v", err)
	}
}

func TestCLSAGCommitmentAwareRoundTrip(t *testing.T) {
	msg := []byte("prefix hash")
	const n, real = 4, 1
	pubs := make([]crypto.Point, n)
	commitments := make([]crypto.Point, n)
	var secret, z crypto.Scalar

	pseudoBlinding, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	amount := crypto.OneScalar
	pseudoPoint := crypto.BaseMul(pseudoBlinding).Add(crypto.HPoint.Mul(amount))

	for i := 0; i < n; i++ {
		s, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		pubs[i] = crypto.BaseMul(s)

		blinding, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		commitments[i] = crypto.BaseMul(blinding).Add(crypto.HPoint.Mul(amount))

		if i == real {
			secret = s
			z = blinding.Sub(pseudoBlinding)
		}
	}

	ring := CLSAGRing{Pubs: pubs, Commitments: commitments, Pseudo: pseudoPoint}
	img := stealth.KeyImage(secret, pubs[real])
	hp := crypto.HashToPoint(pointBytesClsag(pubs[real]))
	commitmentImg := hp.Mul(z)

	pending, err := GenerateCLSAG(msg, ring, img, commitmentImg, real)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteCLSAG(secret, z, pending)

	if err := VerifyCLSAG(msg, ring, img, sig); err != nil {
		t.Fatalf("valid commitment-aware CLSAG signature rejected: %v", err)
	}
}

func TestCLSAGRejectsTamperedScalar(t *testing.T) {
	msg := []byte("prefix hash")
	pubs, secret, img := buildRing(t, 4, 0)
	ring := CLSAGRing{Pubs: pubs}

	pending, err := GenerateCLSAG(msg, ring, img, crypto.IdentityPoint, 0)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteCLSAG(secret, crypto.ZeroScalar, pending)
	sig.S[1] = sig.S[1].Add(crypto.OneScalar)

	if err := VerifyCLSAG(msg, ring, img, sig); err == nil {
		t.Fatal("tampered CLSAG signature verified")
	}
}

func TestCLSAGRejectsCommitmentAwareFlagMismatch(t *testing.T) {
	msg := []byte("prefix hash")
	pubs, secret, img := buildRing(t, 3, 0)
	ring := CLSAGRing{Pubs: pubs}

	pending, err := GenerateCLSAG(msg, ring, img, crypto.IdentityPoint, 0)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteCLSAG(secret, crypto.ZeroScalar, pending)

	commitments := make([]crypto.Point, 3)
	for i := range commitments {
		commitments[i] = crypto.IdentityPoint
	}
	awareRing := CLSAGRing{Pubs: pubs, Commitments: commitments, Pseudo: crypto.IdentityPoint}

	if err := VerifyCLSAG(msg, awareRing, img, sig); err != ErrCommitmentAwareMismatch {
		t.Fatalf("expected ErrCommitmentAwareMismatch, got %v", err)
	}
}
