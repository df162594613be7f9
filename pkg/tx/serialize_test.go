package tx

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func samplePrefix(t *testing.T) Prefix {
	t.Helper()
	s, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	target := crypto.BaseMul(s)
	s2, _ := crypto.RandomScalar()
	img := crypto.BaseMul(s2)

	return Prefix{
		Version:    1,
		UnlockTime: 0,
		Inputs: []Input{
			{Key: &KeyInput{Amount: 1000, Offsets: []uint64{5, 3, 12}, KeyImage: img}},
		},
		Outputs: []Output{
			{Amount: 0, Target: target},
		},
		Extra: []byte{0x01, 0x02, 0x03},
	}
}

func TestPrefixRoundTrip(t *testing.T) {
	p := samplePrefix(t)
	encoded := p.Bytes()

	decoded, rest, err := DecodePrefix(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected trailing bytes: %d", len(rest))
	}
	if decoded.Version != p.Version || decoded.UnlockTime != p.UnlockTime {
		t.Fatal("prefix scalar fields did not round-trip")
	}
	if len(decoded.Inputs) != 1 || decoded.Inputs[0].Key == nil {
		t.Fatal("key input did not round-trip")
	}
	if decoded.Inputs[0].Key.Amount != 1000 {
		t.Fatal("key input amount did not round-trip")
	}
	if !decoded.Outputs[0].Target.Equal(p.Outputs[0].Target) {
		t.Fatal("output target did not round-trip")
	}
}

func TestTransactionRoundTripCLSAG(t *testing.T) {
	prefix := samplePrefix(t)
	c0, _ := crypto.RandomScalar()
	s0, _ := crypto.RandomScalar()

	txn := &Transaction{
		Prefix:          prefix,
		SignatureScheme: SchemeCLSAG,
		CLSAGSigs: []CLSAGSig{
			{S: []crypto.Scalar{s0}, C0: c0},
		},
		RangeProofScheme: RangeProofNone,
	}

	encoded := txn.Bytes()
	decoded, err := DecodeTransaction(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.SignatureScheme != SchemeCLSAG {
		t.Fatal("signature scheme did not round-trip")
	}
	if len(decoded.CLSAGSigs) != 1 || !decoded.CLSAGSigs[0].C0.Equal(c0) {
		t.Fatal("CLSAG signature did not round-trip")
	}
}

func TestBaseInputIdentifiesCoinbase(t *testing.T) {
	txn := &Transaction{
		Prefix: Prefix{
			Inputs: []Input{{Base: &BaseInput{BlockIndex: 42}}},
		},
	}
	if !txn.IsCoinbase() {
		t.Fatal("single base input should be identified as coinbase")
	}
}

func TestTotalOutputAmountOverflow(t *testing.T) {
	s, _ := crypto.RandomScalar()
	target := crypto.BaseMul(s)
	txn := &Transaction{
		Prefix: Prefix{
			Outputs: []Output{
				{Amount: ^uint64(0), Target: target},
				{Amount: 1, Target: target},
			},
		},
	}
	if _, err := txn.TotalOutputAmount(); err != ErrAmountOverflow {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}
