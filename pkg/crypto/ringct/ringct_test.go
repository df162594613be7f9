package ringct

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func TestToggleMaskedAmountInvolution(t *testing.T) {
	ds, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	mask := GenerateAmountMask(ds)

	const amount = uint64(123456789)
	masked := ToggleMaskedAmount(mask, amount)
	recovered := ToggleMaskedAmount(mask, masked)

	if recovered != amount {
		t.Fatalf("toggle_masked_amount is not involutive: got %d, want %d", recovered, amount)
	}
}

func TestPedersenCommitmentDeterministic(t *testing.T) {
	y, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	c1 := GeneratePedersenCommitment(y, 1000)
	c2 := GeneratePedersenCommitment(y, 1000)
	if !c1.Equal(c2) {
		t.Fatal("commitment generation is not deterministic")
	}

	c3 := GeneratePedersenCommitment(y, 1001)
	if c1.Equal(c3) {
		t.Fatal("commitments for different amounts collided")
	}
}

func TestPseudoOutputParity(t *testing.T) {
	outputBlindings := make([]crypto.Scalar, 3)
	var outputCommitments []crypto.Point
	outputAmounts := []uint64{100, 250, 150}
	sumOut := uint64(0)
	for i, a := range outputAmounts {
		y, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		outputBlindings[i] = y
		outputCommitments = append(outputCommitments, GeneratePedersenCommitment(y, a))
		sumOut += a
	}

	const fee = uint64(10)
	inputAmounts := []uint64{300, 110}
	sumIn := uint64(0)
	for _, a := range inputAmounts {
		sumIn += a
	}
	if sumIn != sumOut+fee {
		t.Fatalf("test fixture does not balance: %d != %d", sumIn, sumOut+fee)
	}

	result, err := GeneratePseudoOutputs(inputAmounts, outputBlindings)
	if err != nil {
		t.Fatal(err)
	}

	if err := CheckParity(result.Commitments, outputCommitments, fee); err != nil {
		t.Fatalf("balanced pseudo-outputs failed parity check: %v", err)
	}
}

func TestPseudoOutputParityRejectsImbalance(t *testing.T) {
	outputBlindings := make([]crypto.Scalar, 1)
	y, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	outputBlindings[0] = y
	outputCommitments := []crypto.Point{GeneratePedersenCommitment(y, 100)}

	result, err := GeneratePseudoOutputs([]uint64{100}, outputBlindings)
	if err != nil {
		t.Fatal(err)
	}

	if err := CheckParity(result.Commitments, outputCommitments, 1); err != ErrParityCheckFailed {
		t.Fatalf("expected ErrParityCheckFailed, got %v", err)
	}
}
