// Package tx defines the transaction wire types: one-time-output
// inputs and outputs, the prefix they compose into, and the ring
// signature / range proof bundle that authorizes spending.
package tx

import (
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// BaseInput is a coinbase input: it carries only the block index it
// was minted at, and appears exactly once per block, as the sole
// input of that block's base transaction.
type BaseInput struct {
	BlockIndex uint64 `json:"block_index"`
}

// KeyInput spends a one-time output via its linkable key image. The
// offsets are relative-encoded (each entry is the difference from the
// previous absolute global output index, the first being absolute) to
// keep the wire encoding compact; they must be strictly ordered and
// non-zero after the first.
type KeyInput struct {
	Amount   uint64       `json:"amount"`
	Offsets  []uint64     `json:"offsets"`
	KeyImage crypto.Point `json:"key_image"`
}

// Input is exactly one of Base or Key.
type Input struct {
	Base *BaseInput
	Key  *KeyInput
}

// IsBase reports whether this input is a coinbase input.
func (in Input) IsBase() bool {
	return in.Base != nil
}

// Output is a one-time output: its cleartext amount (always present;
// for confidential outputs this is the same value committed to in
// OutputCommitments, kept in the clear only for fee accounting and
// block-reward bookkeeping, not for recipient privacy) and the
// one-time public key recipients scan for.
type Output struct {
	Amount uint64       `json:"amount"`
	Target crypto.Point `json:"target"`
}

// Prefix is the unsigned body of a transaction: everything a
// signature is computed over.
type Prefix struct {
	Version    uint32  `json:"version"`
	UnlockTime uint64  `json:"unlock_time"`
	Inputs     []Input `json:"inputs"`
	Outputs    []Output `json:"outputs"`
	Extra      []byte  `json:"extra"`
}

// SignatureScheme selects which ring-signature family a transaction's
// KeyInputs are signed with; gated by the fork/upgrade manager.
type SignatureScheme int

const (
	// SchemeBorromean is the legacy pre-fork ring signature.
	SchemeBorromean SignatureScheme = iota
	// SchemeCLSAG is the compact, commitment-aware post-fork scheme.
	SchemeCLSAG
)

// RangeProofScheme selects which range-proof family, if any, backs a
// transaction's confidential outputs.
type RangeProofScheme int

const (
	// RangeProofNone means the transaction carries no confidential
	// outputs requiring a range proof (e.g. it is the coinbase).
	RangeProofNone RangeProofScheme = iota
	// RangeProofBulletproof is the original Bulletproofs construction.
	RangeProofBulletproof
	// RangeProofBulletproofPlus is the Bulletproofs+ construction.
	RangeProofBulletproofPlus
)

// Transaction is a full transaction: its unsigned prefix, the ring
// signatures authorizing each KeyInput, the pseudo-output commitments
// those signatures are bound to when commitment-aware, and an
// optional range-proof bundle over the real output commitments.
type Transaction struct {
	Prefix Prefix `json:"prefix"`

	SignatureScheme SignatureScheme `json:"signature_scheme"`
	BorromeanSigs   []BorromeanSig  `json:"borromean_sigs,omitempty"`
	CLSAGSigs       []CLSAGSig      `json:"clsag_sigs,omitempty"`

	PseudoOutputs []crypto.Point `json:"pseudo_outputs,omitempty"`

	RangeProofScheme RangeProofScheme `json:"range_proof_scheme"`
	RangeProofBlob   []byte           `json:"range_proof_blob,omitempty"`

	OutputCommitments []crypto.Point `json:"output_commitments,omitempty"`
}

// BorromeanSig is the wire form of a Borromean ring signature over
// one KeyInput's ring.
type BorromeanSig struct {
	C crypto.Scalar   `json:"c"`
	L []crypto.Scalar `json:"l"`
	R []crypto.Scalar `json:"r"`
}

// CLSAGSig is the wire form of a CLSAG ring signature over one
// KeyInput's ring.
type CLSAGSig struct {
	S                []crypto.Scalar `json:"s"`
	C0               crypto.Scalar   `json:"c0"`
	CommitmentAware  bool            `json:"commitment_aware"`
	CommitmentKeyImg crypto.Point    `json:"commitment_key_img"`
}

// IsCoinbase reports whether tx is a coinbase (base) transaction: it
// has exactly one input, and that input is a BaseInput.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Prefix.Inputs) == 1 && t.Prefix.Inputs[0].IsBase()
}

// Hash computes the transaction's identifying hash over its full
// serialized wire form (prefix, signatures, proofs).
func (t *Transaction) Hash() types.Hash {
	return types.Hash(crypto.Hash256(t.Bytes()))
}

// PrefixHash computes the hash of the prefix alone, the value every
// per-input ring signature is computed over. Range proofs are not
// bound to it.
func (t *Transaction) PrefixHash() types.Hash {
	return types.Hash(crypto.Hash256(t.Prefix.Bytes()))
}

// TotalOutputAmount returns the sum of all output amounts, confidential
// or not; it overflow-checks the running sum against uint64's range.
func (t *Transaction) TotalOutputAmount() (uint64, error) {
	var total uint64
	for _, out := range t.Prefix.Outputs {
		if total > math.MaxUint64-out.Amount {
			return 0, ErrAmountOverflow
		}
		total += out.Amount
	}
	return total, nil
}

// transactionJSON mirrors Transaction with hex-friendly byte fields for
// JSON encoding of the opaque range-proof blob.
type transactionJSON struct {
	Prefix            Prefix           `json:"prefix"`
	SignatureScheme   SignatureScheme  `json:"signature_scheme"`
	BorromeanSigs     []BorromeanSig   `json:"borromean_sigs,omitempty"`
	CLSAGSigs         []CLSAGSig       `json:"clsag_sigs,omitempty"`
	PseudoOutputs     []crypto.Point   `json:"pseudo_outputs,omitempty"`
	RangeProofScheme  RangeProofScheme `json:"range_proof_scheme"`
	RangeProofBlob    string           `json:"range_proof_blob,omitempty"`
	OutputCommitments []crypto.Point   `json:"output_commitments,omitempty"`
}

// MarshalJSON hex-encodes the opaque range-proof blob.
func (t Transaction) MarshalJSON() ([]byte, error) {
	j := transactionJSON{
		Prefix:            t.Prefix,
		SignatureScheme:   t.SignatureScheme,
		BorromeanSigs:     t.BorromeanSigs,
		CLSAGSigs:         t.CLSAGSigs,
		PseudoOutputs:     t.PseudoOutputs,
		RangeProofScheme:  t.RangeProofScheme,
		OutputCommitments: t.OutputCommitments,
	}
	if t.RangeProofBlob != nil {
		j.RangeProofBlob = hex.EncodeToString(t.RangeProofBlob)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes the opaque range-proof blob from hex.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	t.Prefix = j.Prefix
	t.SignatureScheme = j.SignatureScheme
	t.BorromeanSigs = j.BorromeanSigs
	t.CLSAGSigs = j.CLSAGSigs
	t.PseudoOutputs = j.PseudoOutputs
	t.RangeProofScheme = j.RangeProofScheme
	t.OutputCommitments = j.OutputCommitments
	if j.RangeProofBlob != "" {
		b, err := hex.DecodeString(j.RangeProofBlob)
		if err != nil {
			return err
		}
		t.RangeProofBlob = b
	}
	return nil
}
