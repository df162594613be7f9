// Package validator implements transaction verification against the
// consensus rules: input/output well-formedness, ring signatures,
// commitment parity, and range proofs. It has two entry points of
// different depth: Validate, used when a transaction is embedded in
// a candidate block, and Revalidate, the lighter check run against
// pool entries whenever the active tip moves.
package validator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/bulletproof"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/ringct"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/ringsig"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Reason is the closed enum of validation failure causes. Every
// rejection from Validate or Revalidate carries exactly one.
type Reason int

const (
	InputWrongCount Reason = iota
	InputUnexpectedType
	InputInvalidSignatures
	InputKeyImageAlreadySpent
	InputKeyImageInvalid
	OutputZeroAmount
	OutputInvalidKey
	OutputsAmountOverflow
	WrongTransactionUnlockTime
	CumulativeBlockSizeTooBig
	ProofVerificationFailed
	MixinTooFewOrTooMany
	BaseInputWrongBlockIndex
	BaseInvalidSignaturesCount
	DuplicateKeyImage
)

func (r Reason) String() string {
	switch r {
	case InputWrongCount:
		return "input wrong count"
	case InputUnexpectedType:
		return "input unexpected type"
	case InputInvalidSignatures:
		return "input invalid signatures"
	case InputKeyImageAlreadySpent:
		return "input key image already spent"
	case InputKeyImageInvalid:
		return "input key image invalid"
	case OutputZeroAmount:
		return "output zero amount"
	case OutputInvalidKey:
		return "output invalid key"
	case OutputsAmountOverflow:
		return "outputs amount overflow"
	case WrongTransactionUnlockTime:
		return "wrong transaction unlock time"
	case CumulativeBlockSizeTooBig:
		return "cumulative block size too big"
	case ProofVerificationFailed:
		return "proof verification failed"
	case MixinTooFewOrTooMany:
		return "mixin too few or too many"
	case BaseInputWrongBlockIndex:
		return "base input wrong block index"
	case BaseInvalidSignaturesCount:
		return "base invalid signatures count"
	case DuplicateKeyImage:
		return "duplicate key image"
	default:
		return "unknown validation reason"
	}
}

// Error wraps a Reason with the offending transaction hash and, where
// applicable, the input index the failure was localized to.
type Error struct {
	Reason     Reason
	TxHash     types.Hash
	InputIndex int // -1 when not input-specific
	Err        error
}

func (e *Error) Error() string {
	if e.InputIndex >= 0 {
		return fmt.Sprintf("validate %s: input %d: %s", e.TxHash, e.InputIndex, e.Reason)
	}
	return fmt.Sprintf("validate %s: %s", e.TxHash, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(reason Reason, txHash types.Hash, inputIndex int, err error) *Error {
	return &Error{Reason: reason, TxHash: txHash, InputIndex: inputIndex, Err: err}
}

// OutputKey is what the chain segment returns when a relative offset
// resolves to an absolute global output index: the one-time public
// key, its Pedersen commitment (zero point when the output predates
// confidential transactions), and whether it is still locked.
type OutputKey struct {
	PublicKey  crypto.Point
	Commitment crypto.Point
	Unlocked   bool
}

// ChainView is the read-only slice of chain-segment state the
// validator needs: global output expansion, spent-key-image
// membership, and the height-dependent parameters gated by the
// fork/upgrade manager. The chain manager supplies the implementation,
// one per segment and height; the transaction pool validates through
// validators the chain manager builds.
type ChainView interface {
	// OutputsByAmount resolves a KeyInput's relative offsets (already
	// expanded to absolute global indexes by the caller) to their
	// public keys and commitments, in the same order as requested.
	OutputsByAmount(amount uint64, globalIndexes []uint64) ([]OutputKey, error)

	// IsKeyImageSpent reports whether a key image is already
	// referenced by an accepted (or, for the pool's view,
	// provisionally admitted) transaction.
	IsKeyImageSpent(img crypto.Point) bool

	// MixinRange returns the inclusive [min, max] ring-size bounds in
	// effect at the given height.
	MixinRange(height uint64) (min, max int)

	// MedianBlockSize returns the median block size (in bytes) over
	// the trailing window ending just before height.
	MedianBlockSize(height uint64) uint64

	// SignatureScheme returns which ring-signature family is mandated
	// at the given height (fork-gated: Borromean pre-fork, CLSAG
	// post-fork).
	SignatureScheme(height uint64) tx.SignatureScheme

	// RangeProofRequired reports whether confidential outputs at the
	// given height must carry a range proof, and which scheme.
	RangeProofRequired(height uint64) (bool, tx.RangeProofScheme)

	// MinedMoneyUnlockWindow returns the number of blocks a coinbase
	// output stays locked for.
	MinedMoneyUnlockWindow() uint64

	// ReservedCoinbaseBlobSize returns the blob-size reservation
	// subtracted from 2*median when bounding transaction size.
	ReservedCoinbaseBlobSize() uint64
}

// Params bounds work done outside ChainView: concurrency for the
// signature-verification fan-out and the generator cache range
// proofs are checked against.
type Params struct {
	// MaxParallelVerifications caps how many KeyInput signature
	// checks run concurrently per transaction. 0 or 1 means
	// sequential.
	MaxParallelVerifications int

	// GeneratorCache backs Bulletproof/Bulletproof+ verification; nil
	// is rejected at construction since proof checks would otherwise
	// build a fresh set of generators per call.
	GeneratorCache *bulletproof.GeneratorCache
}

// Validator checks transactions against ChainView-supplied state.
type Validator struct {
	view   ChainView
	params Params
}

// New constructs a Validator. GeneratorCache must be non-nil.
func New(view ChainView, params Params) (*Validator, error) {
	if params.GeneratorCache == nil {
		return nil, errors.New("validator: generator cache is required")
	}
	return &Validator{view: view, params: params}, nil
}

// Validate runs the full policy: prefix well-formedness, per-input
// checks, size, fee balance, output well-formedness, global-output
// expansion, ring-signature verification, and (when mandated)
// range-proof and commitment-parity verification.
//
// height and timestamp describe the candidate block the transaction
// is embedded in; cumulativeBlockSize is the running size of the
// block being assembled or re-verified, including this transaction.
func (v *Validator) Validate(ctx context.Context, t *tx.Transaction, height, timestamp uint64, cumulativeBlockSize int) error {
	txHash := t.Hash()

	if err := v.validatePrefix(t, height, txHash); err != nil {
		return err
	}

	maxSize := 2*int(v.view.MedianBlockSize(height)) - int(v.view.ReservedCoinbaseBlobSize())
	if maxSize > 0 && cumulativeBlockSize > maxSize {
		return fail(CumulativeBlockSizeTooBig, txHash, -1, nil)
	}

	if t.IsCoinbase() {
		return v.validateCoinbase(t, height, txHash)
	}

	if err := v.validateOutputs(t, txHash); err != nil {
		return err
	}

	inputTotal, err := v.validateInputsAndExpand(t, height, txHash, nil)
	if err != nil {
		return err
	}
	outputTotal, err := t.TotalOutputAmount()
	if err != nil {
		return fail(OutputsAmountOverflow, txHash, -1, err)
	}
	if inputTotal < outputTotal {
		return fail(OutputsAmountOverflow, txHash, -1, errors.New("inputs do not cover outputs"))
	}

	if err := v.verifyRingSignatures(ctx, t, height, txHash); err != nil {
		return err
	}

	required, scheme := v.view.RangeProofRequired(height)
	if required {
		if err := v.verifyRangeProofAndParity(t, scheme, txHash); err != nil {
			return err
		}
	}

	return nil
}

// Revalidate re-checks a pool entry against the moved tip: mixin
// range, current size bound, and spent-key-image intersection. It
// does not redo signature or proof verification, since those are
// immutable properties of the transaction bytes themselves.
func (v *Validator) Revalidate(t *tx.Transaction, height uint64, cumulativeBlockSize int) error {
	txHash := t.Hash()

	maxSize := 2*int(v.view.MedianBlockSize(height)) - int(v.view.ReservedCoinbaseBlobSize())
	if maxSize > 0 && cumulativeBlockSize > maxSize {
		return fail(CumulativeBlockSizeTooBig, txHash, -1, nil)
	}

	min, max := v.view.MixinRange(height)
	seen := make(map[[crypto.PointSize]byte]struct{})
	for i, in := range t.Prefix.Inputs {
		if in.IsBase() {
			return fail(InputUnexpectedType, txHash, i, nil)
		}
		k := in.Key
		if len(k.Offsets) < min || len(k.Offsets) > max {
			return fail(MixinTooFewOrTooMany, txHash, i, nil)
		}
		if _, dup := seen[k.KeyImage.Bytes()]; dup {
			return fail(DuplicateKeyImage, txHash, i, nil)
		}
		seen[k.KeyImage.Bytes()] = struct{}{}
		if v.view.IsKeyImageSpent(k.KeyImage) {
			return fail(InputKeyImageAlreadySpent, txHash, i, nil)
		}
	}
	return nil
}

func (v *Validator) validatePrefix(t *tx.Transaction, height uint64, txHash types.Hash) error {
	if len(t.Prefix.Inputs) == 0 {
		return fail(InputWrongCount, txHash, -1, nil)
	}

	seen := make(map[[crypto.PointSize]byte]struct{}, len(t.Prefix.Inputs))
	baseCount := 0
	for i, in := range t.Prefix.Inputs {
		switch {
		case in.Base != nil && in.Key != nil:
			return fail(InputUnexpectedType, txHash, i, nil)
		case in.Base != nil:
			baseCount++
		case in.Key != nil:
			if _, dup := seen[in.Key.KeyImage.Bytes()]; dup {
				return fail(DuplicateKeyImage, txHash, i, nil)
			}
			seen[in.Key.KeyImage.Bytes()] = struct{}{}
		default:
			return fail(InputUnexpectedType, txHash, i, nil)
		}
	}

	isCoinbase := t.IsCoinbase()
	if baseCount > 0 && !isCoinbase {
		return fail(InputUnexpectedType, txHash, -1, nil)
	}
	if isCoinbase {
		if t.Prefix.Inputs[0].Base.BlockIndex != height {
			return fail(BaseInputWrongBlockIndex, txHash, 0, nil)
		}
		if t.Prefix.UnlockTime != height+v.view.MinedMoneyUnlockWindow() {
			return fail(WrongTransactionUnlockTime, txHash, -1, nil)
		}
	}
	return nil
}

func (v *Validator) validateCoinbase(t *tx.Transaction, height uint64, txHash types.Hash) error {
	if len(t.BorromeanSigs) != 0 || len(t.CLSAGSigs) != 0 {
		return fail(BaseInvalidSignaturesCount, txHash, -1, nil)
	}
	return v.validateOutputs(t, txHash)
}

func (v *Validator) validateOutputs(t *tx.Transaction, txHash types.Hash) error {
	for i, out := range t.Prefix.Outputs {
		if out.Amount == 0 {
			return fail(OutputZeroAmount, txHash, i, nil)
		}
		if !out.Target.IsSubgroupMember() {
			return fail(OutputInvalidKey, txHash, i, nil)
		}
	}
	for i, c := range t.OutputCommitments {
		if !c.IsSubgroupMember() {
			return fail(OutputInvalidKey, txHash, i, nil)
		}
	}
	return nil
}

// validateInputsAndExpand checks mixin bounds, offset ordering, and
// duplicate key images, then expands each KeyInput's relative offsets
// through the ChainView. It returns the summed cleartext input
// amount; a KeyInput with a zero amount is rejected.
// pendingSpent, when non-nil, is consulted in addition to
// v.view.IsKeyImageSpent for pool-projection duplicate detection.
func (v *Validator) validateInputsAndExpand(t *tx.Transaction, height uint64, txHash types.Hash, pendingSpent map[[crypto.PointSize]byte]struct{}) (uint64, error) {
	min, max := v.view.MixinRange(height)
	var total uint64
	for i, in := range t.Prefix.Inputs {
		if in.IsBase() {
			return 0, fail(InputUnexpectedType, txHash, i, nil)
		}
		k := in.Key
		if k.Amount == 0 {
			return 0, fail(OutputZeroAmount, txHash, i, nil)
		}
		if len(k.Offsets) < min || len(k.Offsets) > max {
			return 0, fail(MixinTooFewOrTooMany, txHash, i, nil)
		}
		for j, off := range k.Offsets {
			if j > 0 && off == 0 {
				return 0, fail(InputInvalidSignatures, txHash, i, errors.New("non-monotonic offset"))
			}
		}
		if !k.KeyImage.IsSubgroupMember() {
			return 0, fail(InputKeyImageInvalid, txHash, i, nil)
		}
		if v.view.IsKeyImageSpent(k.KeyImage) {
			return 0, fail(InputKeyImageAlreadySpent, txHash, i, nil)
		}
		if pendingSpent != nil {
			if _, dup := pendingSpent[k.KeyImage.Bytes()]; dup {
				return 0, fail(InputKeyImageAlreadySpent, txHash, i, nil)
			}
			pendingSpent[k.KeyImage.Bytes()] = struct{}{}
		}

		absolute := absoluteOffsets(k.Offsets)
		outputs, err := v.view.OutputsByAmount(k.Amount, absolute)
		if err != nil {
			return 0, fail(InputInvalidSignatures, txHash, i, err)
		}
		if len(outputs) != len(absolute) {
			return 0, fail(InputInvalidSignatures, txHash, i, errors.New("ring expansion short"))
		}
		for _, o := range outputs {
			if !o.Unlocked {
				return 0, fail(InputInvalidSignatures, txHash, i, errors.New("referenced output still locked"))
			}
		}

		if total > ^uint64(0)-k.Amount {
			return 0, fail(OutputsAmountOverflow, txHash, i, nil)
		}
		total += k.Amount
	}
	return total, nil
}

// absoluteOffsets converts relative-encoded offsets (first absolute,
// each subsequent one a positive delta from the previous) into
// absolute global output indexes.
func absoluteOffsets(relative []uint64) []uint64 {
	abs := make([]uint64, len(relative))
	var running uint64
	for i, r := range relative {
		running += r
		abs[i] = running
	}
	return abs
}

// verifyRingSignatures checks, for every KeyInput, the matching
// Borromean or CLSAG signature against its expanded ring. Independent
// inputs are dispatched across a worker pool when
// Params.MaxParallelVerifications > 1.
func (v *Validator) verifyRingSignatures(ctx context.Context, t *tx.Transaction, height uint64, txHash types.Hash) error {
	expected := v.view.SignatureScheme(height)
	if t.SignatureScheme != expected {
		return fail(InputInvalidSignatures, txHash, -1, errors.New("signature scheme does not match fork rules at this height"))
	}

	keyInputIdx := make([]int, 0, len(t.Prefix.Inputs))
	for i, in := range t.Prefix.Inputs {
		if !in.IsBase() {
			keyInputIdx = append(keyInputIdx, i)
		}
	}

	switch expected {
	case tx.SchemeBorromean:
		if len(t.BorromeanSigs) != len(keyInputIdx) {
			return fail(InputInvalidSignatures, txHash, -1, errors.New("borromean signature count mismatch"))
		}
	case tx.SchemeCLSAG:
		if len(t.CLSAGSigs) != len(keyInputIdx) {
			return fail(InputInvalidSignatures, txHash, -1, errors.New("clsag signature count mismatch"))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := v.params.MaxParallelVerifications
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	prefixHash := t.PrefixHash()
	for sigIdx, inputIdx := range keyInputIdx {
		sigIdx, inputIdx := sigIdx, inputIdx
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			k := t.Prefix.Inputs[inputIdx].Key
			absolute := absoluteOffsets(k.Offsets)
			outputs, err := v.view.OutputsByAmount(k.Amount, absolute)
			if err != nil {
				return fail(InputInvalidSignatures, txHash, inputIdx, err)
			}
			pubs := make([]crypto.Point, len(outputs))
			commitments := make([]crypto.Point, len(outputs))
			for i, o := range outputs {
				pubs[i] = o.PublicKey
				commitments[i] = o.Commitment
			}

			switch expected {
			case tx.SchemeBorromean:
				sig := t.BorromeanSigs[sigIdx]
				bsig := ringsig.BorromeanSignature{C: sig.C, L: sig.L, R: sig.R}
				if err := ringsig.VerifyBorromean(prefixHash[:], pubs, k.KeyImage, bsig); err != nil {
					return fail(InputInvalidSignatures, txHash, inputIdx, err)
				}
			case tx.SchemeCLSAG:
				sig := t.CLSAGSigs[sigIdx]
				var pseudo crypto.Point
				if sigIdx < len(t.PseudoOutputs) {
					pseudo = t.PseudoOutputs[sigIdx]
				}
				ring := ringsig.CLSAGRing{Pubs: pubs, Commitments: commitments, Pseudo: pseudo}
				csig := ringsig.CLSAGSignature{
					S:                sig.S,
					C0:               sig.C0,
					CommitmentAware:  sig.CommitmentAware,
					CommitmentKeyImg: sig.CommitmentKeyImg,
				}
				if err := ringsig.VerifyCLSAG(prefixHash[:], ring, k.KeyImage, csig); err != nil {
					return fail(InputInvalidSignatures, txHash, inputIdx, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// verifyRangeProofAndParity checks the aggregated Bulletproof(+) over
// the transaction's output commitments and that pseudo-output
// commitments balance against real output commitments plus the fee.
func (v *Validator) verifyRangeProofAndParity(t *tx.Transaction, scheme tx.RangeProofScheme, txHash types.Hash) error {
	if t.RangeProofScheme != scheme {
		return fail(ProofVerificationFailed, txHash, -1, errors.New("range proof scheme does not match fork rules"))
	}
	if len(t.PseudoOutputs) == 0 || len(t.OutputCommitments) == 0 {
		return fail(ProofVerificationFailed, txHash, -1, errors.New("missing commitments for confidential transaction"))
	}

	inputTotal, err := v.recoverFee(t)
	if err != nil {
		return fail(ProofVerificationFailed, txHash, -1, err)
	}
	outputTotal, err := t.TotalOutputAmount()
	if err != nil {
		return fail(OutputsAmountOverflow, txHash, -1, err)
	}
	var fee uint64
	if inputTotal >= outputTotal {
		fee = inputTotal - outputTotal
	}
	if err := ringct.CheckParity(t.PseudoOutputs, t.OutputCommitments, fee); err != nil {
		return fail(ProofVerificationFailed, txHash, -1, err)
	}

	bitWidth := 64
	switch scheme {
	case tx.RangeProofBulletproof:
		proofs, err := bulletproof.DecodeProofs(t.RangeProofBlob)
		if err != nil {
			return fail(ProofVerificationFailed, txHash, -1, err)
		}
		if err := bulletproof.VerifyBatch(v.params.GeneratorCache, t.OutputCommitments, bitWidth, proofs); err != nil {
			return fail(ProofVerificationFailed, txHash, -1, err)
		}
	case tx.RangeProofBulletproofPlus:
		proofs, err := bulletproof.DecodeProofsPlus(t.RangeProofBlob)
		if err != nil {
			return fail(ProofVerificationFailed, txHash, -1, err)
		}
		if err := bulletproof.VerifyBatchPlus(v.params.GeneratorCache, t.OutputCommitments, bitWidth, proofs); err != nil {
			return fail(ProofVerificationFailed, txHash, -1, err)
		}
	}
	return nil
}

// recoverFee sums the cleartext KeyInput amounts for fee derivation;
// base inputs contribute nothing. It returns that input total, from
// which Fee subtracts the output total.
func (v *Validator) recoverFee(t *tx.Transaction) (uint64, error) {
	var total uint64
	for _, in := range t.Prefix.Inputs {
		if in.Key == nil {
			continue
		}
		if total > ^uint64(0)-in.Key.Amount {
			return 0, errors.New("input amount sum overflows uint64")
		}
		total += in.Key.Amount
	}
	return total, nil
}

// Fee reports the miner fee a non-coinbase transaction pays: the sum
// of its cleartext input amounts minus the sum of its output amounts.
// Callers use this to total the fee pool a block's coinbase reward is
// checked against, without duplicating recoverFee's summation.
func (v *Validator) Fee(t *tx.Transaction) (uint64, error) {
	if t.IsCoinbase() {
		return 0, nil
	}
	in, err := v.recoverFee(t)
	if err != nil {
		return 0, err
	}
	out, err := t.TotalOutputAmount()
	if err != nil {
		return 0, err
	}
	if out > in {
		return 0, fmt.Errorf("transaction %s outputs exceed inputs", t.Hash())
	}
	return in - out, nil
}
