package ringsig

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/stealth"
)

func buildRing(t *testing.T, n, realIdx int) ([]crypto.Point, crypto.Scalar, crypto.Point) {
	t.Helper()
	pubs := make([]crypto.Point, n)
	var secret crypto.Scalar
	for i := 0; i < n; i++ {
		s, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		pubs[i] = crypto.BaseMul(s)
		if i == realIdx {
			secret = s
		}
	}
	img := stealth.KeyImage(secret, pubs[realIdx])
	return pubs, secret, img
}

func TestBorromeanSignVerifyRoundTrip(t *testing.T) {
	msg := []byte("prefix hash")
	pubs, secret, img := buildRing(t, 5, 2)

	pending, err := GenerateBorromean(msg, pubs, img, 2)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteBorromean(secret, pending)

	if err := VerifyBorromean(msg, pubs, img, sig); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestBorromeanRejectsTamperedScalar(t *testing.T) {
	msg := []byte("prefix hash")
	pubs, secret, img := buildRing(t, 4, 1)

	pending, err := GenerateBorromean(msg, pubs, img, 1)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteBorromean(secret, pending)
	sig.R[0] = sig.R[0].Add(crypto.OneScalar)

	if err := VerifyBorromean(msg, pubs, img, sig); err == nil {
		t.Fatal("tampered signature verified")
	}
}

func TestBorromeanRejectsLengthMismatch(t *testing.T) {
	msg := []byte("prefix hash")
	pubs, secret, img := buildRing(t, 3, 0)

	pending, err := GenerateBorromean(msg, pubs, img, 0)
	if err != nil {
		t.Fatal(err)
	}
	sig := CompleteBorromean(secret, pending)
	sig.L = sig.L[:len(sig.L)-1]

	if err := VerifyBorromean(msg, pubs, img, sig); err != ErrRingLengthMismatch {
		t.Fatalf("expected ErrRingLengthMismatch, got %v", err)
	}
}
