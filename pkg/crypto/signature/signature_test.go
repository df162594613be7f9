package signature

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func TestPrepareCompleteVerifyRoundTrip(t *testing.T) {
	secret, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	pub := crypto.BaseMul(secret)
	msg := []byte("transaction prefix hash")

	pending, err := Prepare(msg, pub)
	if err != nil {
		t.Fatal(err)
	}
	sig := Complete(secret, pending)

	if !Verify(msg, pub, sig) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	secret, _ := crypto.RandomScalar()
	other, _ := crypto.RandomScalar()
	pub := crypto.BaseMul(secret)
	otherPub := crypto.BaseMul(other)
	msg := []byte("msg")

	pending, _ := Prepare(msg, pub)
	sig := Complete(secret, pending)

	if Verify(msg, otherPub, sig) {
		t.Fatal("signature verified against the wrong public key")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	secret, _ := crypto.RandomScalar()
	pub := crypto.BaseMul(secret)

	pending, _ := Prepare([]byte("original"), pub)
	sig := Complete(secret, pending)

	if Verify([]byte("tampered"), pub, sig) {
		t.Fatal("signature verified over a tampered message")
	}
}
