package multisig

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func TestRoundsNeeded(t *testing.T) {
	if RoundsNeeded(2, 3) != 2 {
		t.Errorf("2-of-3 should need 2 rounds, got %d", RoundsNeeded(2, 3))
	}
	if RoundsNeeded(3, 3) != 1 {
		t.Errorf("3-of-3 should need 1 round, got %d", RoundsNeeded(3, 3))
	}
}

func TestSharedPublicKeyDedupAndOrderIndependent(t *testing.T) {
	a, _ := crypto.RandomScalar()
	b, _ := crypto.RandomScalar()
	pa, pb := crypto.BaseMul(a), crypto.BaseMul(b)

	k1 := SharedPublicKey([]crypto.Point{pa, pb, pa})
	k2 := SharedPublicKey([]crypto.Point{pb, pa})
	if !k1.Equal(k2) {
		t.Fatal("shared public key must be order-independent and deduplicated")
	}
}

func TestPairwiseSharedSecretSymmetricInput(t *testing.T) {
	a, _ := crypto.RandomScalar()
	b, _ := crypto.RandomScalar()
	A := crypto.BaseMul(a)

	s1 := PairwiseSharedSecret(A, b)
	s2 := PairwiseSharedSecret(A, b)
	if !s1.Equal(s2) {
		t.Fatal("pairwise shared secret must be deterministic")
	}
}
