package bulletproof

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func TestPow2Round(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 17: 32}
	for in, want := range cases {
		if got := Pow2Round(in); got != want {
			t.Errorf("Pow2Round(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGeneratorCacheDeterministicAndExtendable(t *testing.T) {
	cache := NewGeneratorCache()
	g1, h1 := cache.Vectors(4)
	g2, h2 := cache.Vectors(8)
	for i := 0; i < 4; i++ {
		if !g1[i].Equal(g2[i]) || !h1[i].Equal(h2[i]) {
			t.Fatalf("generator cache extension changed earlier entries at index %d", i)
		}
	}
}

func TestCheckBitWidthRejectsInvalid(t *testing.T) {
	for _, n := range []int{0, 3, 65, 127} {
		if err := checkBitWidth(n); err != ErrInvalidBitWidth {
			t.Errorf("checkBitWidth(%d) = %v, want ErrInvalidBitWidth", n, err)
		}
	}
	for _, n := range []int{1, 8, 16, 64} {
		if err := checkBitWidth(n); err != nil {
			t.Errorf("checkBitWidth(%d) = %v, want nil", n, err)
		}
	}
}

func TestBulletproofProveVerifyRoundTrip(t *testing.T) {
	cache := NewGeneratorCache()
	blinding, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	const amount = uint64(42)
	const bitWidth = 8

	proof, err := Prove(cache, amount, blinding, bitWidth)
	if err != nil {
		t.Fatal(err)
	}
	commitment := crypto.BaseMul(blinding).Add(crypto.HPoint.Mul(scalarFromU64(amount)))

	if err := Verify(cache, commitment, bitWidth, proof); err != nil {
		t.Fatalf("valid bulletproof rejected: %v", err)
	}
}

func TestBulletproofRejectsWrongCommitment(t *testing.T) {
	cache := NewGeneratorCache()
	blinding, _ := crypto.RandomScalar()
	const bitWidth = 8

	proof, err := Prove(cache, 10, blinding, bitWidth)
	if err != nil {
		t.Fatal(err)
	}
	wrongCommitment := crypto.BaseMul(blinding).Add(crypto.HPoint.Mul(scalarFromU64(11)))

	if err := Verify(cache, wrongCommitment, bitWidth, proof); err == nil {
		t.Fatal("bulletproof verified against a mismatched commitment")
	}
}

func TestBulletproofPlusProveVerifyRoundTrip(t *testing.T) {
	cache := NewGeneratorCache()
	blinding, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	const amount = uint64(7)
	const bitWidth = 8

	proof, err := ProvePlus(cache, amount, blinding, bitWidth)
	if err != nil {
		t.Fatal(err)
	}
	commitment := crypto.BaseMul(blinding).Add(crypto.HPoint.Mul(scalarFromU64(amount)))

	if err := VerifyPlus(cache, commitment, bitWidth, proof); err != nil {
		t.Fatalf("valid bulletproof+ rejected: %v", err)
	}
}
