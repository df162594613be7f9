// Package ringct implements RingCT: Pedersen amount commitments,
// amount masking, and pseudo-output commitment balancing across a
// transaction's inputs and outputs.
package ringct

import (
	"encoding/binary"
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// amountDomain separates amount-mask derivation from every other
// domain-separated hash in the module.
const amountDomain = "ringct-amount-mask"

// ErrPseudoCommitmentCountMismatch is returned when the caller asks
// for fewer than one pseudo-output commitment.
var ErrPseudoCommitmentCountMismatch = errors.New("ringct: need at least one pseudo-output commitment")

// ErrParityCheckFailed is returned when a transaction's pseudo-output
// commitments do not balance against its declared outputs and fee.
var ErrParityCheckFailed = errors.New("ringct: commitment parity check failed")

// GeneratePedersenCommitment computes C = y*G + a*H for blinding
// factor y and amount a.
func GeneratePedersenCommitment(y crypto.Scalar, amount uint64) crypto.Point {
	return crypto.BaseMul(y).Add(crypto.HPoint.Mul(amountScalar(amount)))
}

// GenerateAmountMask derives the mask Hs(DOM_AMT || Ds) used to hide
// an output's amount, from the output's derivation scalar Ds.
func GenerateAmountMask(ds crypto.Scalar) crypto.Scalar {
	return crypto.DomainHashToScalar(amountDomain, ds.Bytes())
}

// ToggleMaskedAmount XORs the first 8 bytes of x with the first 8
// bytes of mask. Applying it twice with the same mask recovers x, so
// the same function both hides and reveals an amount.
func ToggleMaskedAmount(mask crypto.Scalar, x uint64) uint64 {
	maskBytes := mask.Bytes()
	maskLo := binary.LittleEndian.Uint64(maskBytes[:8])
	return x ^ maskLo
}

// PseudoOutputResult is the result of generating a transaction's
// pseudo-output commitments: one commitment per input, with the last
// blinding factor adjusted so the set balances against the outputs.
type PseudoOutputResult struct {
	Commitments []crypto.Point
	Blindings   []crypto.Scalar
}

// GeneratePseudoOutputs produces n pseudo-output commitments for the
// given input amounts, balancing their blinding factors against the
// sum of the output blinding factors outputBlindings so that
// Sum(pseudo commitments) == Sum(output commitments) + fee*H.
//
// Random blinding factors are drawn for every input except the last,
// whose blinding is forced to make the sums match exactly.
func GeneratePseudoOutputs(inputAmounts []uint64, outputBlindings []crypto.Scalar) (PseudoOutputResult, error) {
	n := len(inputAmounts)
	if n < 1 {
		return PseudoOutputResult{}, ErrPseudoCommitmentCountMismatch
	}

	blindings := make([]crypto.Scalar, n)
	sumOutputs := crypto.ZeroScalar
	for _, y := range outputBlindings {
		sumOutputs = sumOutputs.Add(y)
	}

	sumExceptLast := crypto.ZeroScalar
	for i := 0; i < n-1; i++ {
		y, err := crypto.RandomScalar()
		if err != nil {
			return PseudoOutputResult{}, err
		}
		blindings[i] = y
		sumExceptLast = sumExceptLast.Add(y)
	}
	blindings[n-1] = sumOutputs.Sub(sumExceptLast)

	commitments := make([]crypto.Point, n)
	for i, y := range blindings {
		commitments[i] = GeneratePedersenCommitment(y, inputAmounts[i])
	}

	return PseudoOutputResult{Commitments: commitments, Blindings: blindings}, nil
}

// CheckParity verifies Sum(pseudoCommitments) == Sum(outputCommitments) + fee*H
// (the 0*G + fee*H commitment for the implicit fee "output").
func CheckParity(pseudoCommitments, outputCommitments []crypto.Point, fee uint64) error {
	sumPseudo := crypto.IdentityPoint
	for _, c := range pseudoCommitments {
		sumPseudo = sumPseudo.Add(c)
	}
	sumOutputs := crypto.IdentityPoint
	for _, c := range outputCommitments {
		sumOutputs = sumOutputs.Add(c)
	}
	feeCommitment := crypto.HPoint.Mul(amountScalar(fee))
	rhs := sumOutputs.Add(feeCommitment)

	if !sumPseudo.Equal(rhs) {
		return ErrParityCheckFailed
	}
	return nil
}

func amountScalar(amount uint64) crypto.Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:8], amount)
	return crypto.ScalarReduce(buf[:])
}
