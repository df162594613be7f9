package checkpoints

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/signature"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

func sampleHash(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestCheckBlockOutsideTableAlwaysPasses(t *testing.T) {
	table := New(nil)
	if !table.CheckBlock(12345, sampleHash(1)) {
		t.Fatal("heights outside the table must always pass")
	}
}

func TestCheckBlockMatchesOrRejects(t *testing.T) {
	h := sampleHash(7)
	table := New([]Entry{{Height: 100, Hash: h}})

	if !table.CheckBlock(100, h) {
		t.Fatal("matching hash at a checkpointed height should pass")
	}
	if table.CheckBlock(100, sampleHash(8)) {
		t.Fatal("mismatching hash at a checkpointed height should fail")
	}
}

func TestIsCheckpointedAndMaxHeight(t *testing.T) {
	table := New([]Entry{{Height: 10, Hash: sampleHash(1)}, {Height: 500, Hash: sampleHash(2)}})
	if !table.IsCheckpointed(10) || table.IsCheckpointed(11) {
		t.Fatal("IsCheckpointed mismatch")
	}
	if table.MaxHeight() != 500 {
		t.Fatalf("expected max height 500, got %d", table.MaxHeight())
	}
}

func TestManifestVerifyRoundTrip(t *testing.T) {
	secret, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	signer := crypto.BaseMul(secret)
	entries := []Entry{{Height: 10, Hash: sampleHash(1)}, {Height: 20, Hash: sampleHash(2)}}

	pending, err := signature.Prepare(encodeEntries(entries), signer)
	if err != nil {
		t.Fatal(err)
	}
	sig := signature.Complete(secret, pending)

	table, err := Verify(Manifest{Entries: entries, Signature: sig}, signer)
	if err != nil {
		t.Fatal(err)
	}
	if !table.CheckBlock(20, sampleHash(2)) {
		t.Fatal("verified table did not preserve its entries")
	}
}

func TestManifestVerifyRejectsTamperedEntries(t *testing.T) {
	secret, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	signer := crypto.BaseMul(secret)
	entries := []Entry{{Height: 10, Hash: sampleHash(1)}}

	pending, err := signature.Prepare(encodeEntries(entries), signer)
	if err != nil {
		t.Fatal(err)
	}
	sig := signature.Complete(secret, pending)

	tampered := []Entry{{Height: 10, Hash: sampleHash(9)}}
	if _, err := Verify(Manifest{Entries: tampered, Signature: sig}, signer); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}
