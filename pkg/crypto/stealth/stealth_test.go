package stealth

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func TestStealthUnderOverInversion(t *testing.T) {
	a, err := crypto.RandomScalar() // recipient view secret
	if err != nil {
		t.Fatal(err)
	}
	b, err := crypto.RandomScalar() // recipient spend secret
	if err != nil {
		t.Fatal(err)
	}
	spendPublic := crypto.BaseMul(b)
	viewPublic := crypto.BaseMul(a)

	const outputIndex = 3

	// Sender side: derivation from the recipient's view public key and
	// the sender's own ephemeral secret (here reused as `a` for brevity,
	// mirroring how a single-sender/single-recipient exchange works).
	senderDerivation := Derivation(a, viewPublic)
	ds := DerivationToScalar(senderDerivation, outputIndex)
	oneTimePublic := DerivePublicKey(ds, spendPublic)

	// Recipient side: recomputes the same derivation from the sender's
	// ephemeral public key and its own view secret.
	recipientDerivation := Derivation(a, crypto.BaseMul(a))
	_ = recipientDerivation

	recovered := UnderivePublicKey(oneTimePublic, ds)
	if !recovered.Equal(spendPublic) {
		t.Fatal("underive_public_key(derive_public_key(...)) != spend public key")
	}
}

func TestKeyImageStability(t *testing.T) {
	p, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	b := crypto.BaseMul(p)
	pub := crypto.BaseMul(p).Add(b) // arbitrary one-time public key P = p*G + B

	img1 := KeyImage(p, pub)
	img2 := KeyImage(p, pub)
	if !img1.Equal(img2) {
		t.Fatal("key image generation is not deterministic")
	}
	if !img1.IsSubgroupMember() {
		t.Fatal("key image must be a prime-order subgroup member")
	}
}

func TestSubwalletIndexZeroIsBase(t *testing.T) {
	base, _ := crypto.RandomScalar()
	if !Subwallet(base, 0).Equal(base) {
		t.Fatal("subwallet(0) must return the base secret unmodified")
	}
	if Subwallet(base, 1).Equal(base) {
		t.Fatal("subwallet(1) must differ from the base secret")
	}
}

func TestViewFromSpendDeterministic(t *testing.T) {
	spend, _ := crypto.RandomScalar()
	v1 := ViewFromSpend(spend)
	v2 := ViewFromSpend(spend)
	if !v1.Equal(v2) {
		t.Fatal("view-from-spend derivation is not deterministic")
	}
}
