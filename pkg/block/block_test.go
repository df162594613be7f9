package block

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

func sampleBase(t *testing.T) *tx.Transaction {
	t.Helper()
	s, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	target := crypto.BaseMul(s)
	return &tx.Transaction{
		Prefix: tx.Prefix{
			Version:    1,
			UnlockTime: 100,
			Inputs:     []tx.Input{{Base: &tx.BaseInput{BlockIndex: 100}}},
			Outputs:    []tx.Output{{Amount: 5000, Target: target}},
		},
	}
}

func TestTemplateRejectsDuplicateHashes(t *testing.T) {
	base := sampleBase(t)
	h, err := types.HexToHash("ab00000000000000000000000000000000000000000000000000000000000000"[:64])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTemplate(Header{}, nil, base, []types.Hash{h, h}); err != ErrDuplicateTransactionHash {
		t.Fatalf("expected ErrDuplicateTransactionHash, got %v", err)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	base := sampleBase(t)
	tmpl, err := NewTemplate(Header{
		MajorVersion: 2,
		MinorVersion: 0,
		Timestamp:    1710000000,
		Nonce:        7,
	}, nil, base, nil)
	if err != nil {
		t.Fatal(err)
	}

	encoded := tmpl.Bytes()
	decoded, err := DecodeTemplate(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Header.MajorVersion != 2 || decoded.Header.Timestamp != 1710000000 {
		t.Fatal("header fields did not round-trip")
	}
	if decoded.Hash() != tmpl.Hash() {
		t.Fatal("template hash changed across round-trip")
	}
}

func TestTreeHashSingleTransaction(t *testing.T) {
	base := sampleBase(t)
	tmpl, err := NewTemplate(Header{}, nil, base, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.TreeHash() != base.Hash() {
		t.Fatal("single-transaction tree hash should equal that transaction's hash")
	}
}
