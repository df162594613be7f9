package validator

import (
	"context"
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/bulletproof"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/ringct"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/ringsig"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/stealth"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
)

// fakeView is an in-memory ChainView backing the validator tests. It
// holds a single per-amount output table keyed by absolute global
// index and a spent-key-image set.
type fakeView struct {
	outputs     map[uint64]map[uint64]OutputKey
	spent       map[[crypto.PointSize]byte]struct{}
	minMixin    int
	maxMixin    int
	median      uint64
	reserved    uint64
	scheme      tx.SignatureScheme
	proofReq    bool
	proofScheme tx.RangeProofScheme
	unlockWin   uint64
}

func newFakeView() *fakeView {
	return &fakeView{
		outputs:   make(map[uint64]map[uint64]OutputKey),
		spent:     make(map[[crypto.PointSize]byte]struct{}),
		minMixin:  1,
		maxMixin:  16,
		median:    100000,
		reserved:  600,
		scheme:    tx.SchemeCLSAG,
		unlockWin: 60,
	}
}

func (v *fakeView) put(amount, idx uint64, key OutputKey) {
	if v.outputs[amount] == nil {
		v.outputs[amount] = make(map[uint64]OutputKey)
	}
	v.outputs[amount][idx] = key
}

func (v *fakeView) OutputsByAmount(amount uint64, globalIndexes []uint64) ([]OutputKey, error) {
	out := make([]OutputKey, 0, len(globalIndexes))
	for _, idx := range globalIndexes {
		ok, found := v.outputs[amount][idx]
		if !found {
			return nil, errNotFound
		}
		out = append(out, ok)
	}
	return out, nil
}

func (v *fakeView) IsKeyImageSpent(img crypto.Point) bool {
	_, ok := v.spent[img.Bytes()]
	return ok
}

func (v *fakeView) MixinRange(height uint64) (int, int)            { return v.minMixin, v.maxMixin }
func (v *fakeView) MedianBlockSize(height uint64) uint64            { return v.median }
func (v *fakeView) SignatureScheme(height uint64) tx.SignatureScheme { return v.scheme }
func (v *fakeView) RangeProofRequired(height uint64) (bool, tx.RangeProofScheme) {
	return v.proofReq, v.proofScheme
}
func (v *fakeView) MinedMoneyUnlockWindow() uint64    { return v.unlockWin }
func (v *fakeView) ReservedCoinbaseBlobSize() uint64 { return v.reserved }

var errNotFound = errNotFoundType{}

type errNotFoundType struct{}

func (errNotFoundType) Error() string { return "fake view: output not found" }

func newValidator(t *testing.T, view ChainView) *Validator {
	t.Helper()
	val, err := New(view, Params{GeneratorCache: bulletproof.NewGeneratorCache()})
	if err != nil {
		t.Fatal(err)
	}
	return val
}

// buildCLSAGTransaction assembles a single-input, single-output
// plain (non-confidential) CLSAG transaction spending a ring of n
// outputs at amount, with the real output at realIdx registered in
// view at absolute global index realIndex.
func buildCLSAGTransaction(t *testing.T, view *fakeView, n, realIdx int, amount uint64, realIndex uint64) *tx.Transaction {
	t.Helper()
	pubs := make([]crypto.Point, n)
	var secret crypto.Scalar
	offsets := make([]uint64, n)
	var prev uint64
	for i := 0; i < n; i++ {
		s, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		pubs[i] = crypto.BaseMul(s)
		if i == realIdx {
			secret = s
		}
		idx := realIndex + uint64(i)
		if i == 0 {
			offsets[i] = idx
		} else {
			offsets[i] = idx - prev
		}
		prev = idx
		view.put(amount, idx, OutputKey{PublicKey: pubs[i], Unlocked: true})
	}
	img := stealth.KeyImage(secret, pubs[realIdx])

	outTarget, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}

	prefix := tx.Prefix{
		Version:    1,
		UnlockTime: 0,
		Inputs: []tx.Input{{Key: &tx.KeyInput{
			Amount:   amount,
			Offsets:  offsets,
			KeyImage: img,
		}}},
		Outputs: []tx.Output{{Amount: amount, Target: crypto.BaseMul(outTarget)}},
	}

	msg := types_PrefixHash(prefix)
	ring := ringsig.CLSAGRing{Pubs: pubs}
	pending, err := ringsig.GenerateCLSAG(msg, ring, img, crypto.IdentityPoint, realIdx)
	if err != nil {
		t.Fatal(err)
	}
	sig := ringsig.CompleteCLSAG(secret, crypto.ZeroScalar, pending)

	return &tx.Transaction{
		Prefix:          prefix,
		SignatureScheme: tx.SchemeCLSAG,
		CLSAGSigs: []tx.CLSAGSig{{
			S:                sig.S,
			C0:               sig.C0,
			CommitmentAware:  sig.CommitmentAware,
			CommitmentKeyImg: sig.CommitmentKeyImg,
		}},
	}
}

// types_PrefixHash mirrors (*tx.Transaction).PrefixHash for a bare
// Prefix, since the transaction's signatures aren't assembled yet
// when the message needs to be computed.
func types_PrefixHash(p tx.Prefix) []byte {
	tmp := &tx.Transaction{Prefix: p}
	h := tmp.PrefixHash()
	return h[:]
}

func TestValidateAcceptsWellFormedCLSAGTransaction(t *testing.T) {
	view := newFakeView()
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	v := newValidator(t, view)

	if err := v.Validate(context.Background(), transaction, 100, 1710000000, 500); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestValidateRejectsSpentKeyImage(t *testing.T) {
	view := newFakeView()
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	view.spent[transaction.Prefix.Inputs[0].Key.KeyImage.Bytes()] = struct{}{}
	v := newValidator(t, view)

	err := v.Validate(context.Background(), transaction, 100, 1710000000, 500)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != InputKeyImageAlreadySpent {
		t.Fatalf("expected InputKeyImageAlreadySpent, got %v", err)
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	view := newFakeView()
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	transaction.CLSAGSigs[0].S[0] = transaction.CLSAGSigs[0].S[0].Add(crypto.OneScalar)
	v := newValidator(t, view)

	err := v.Validate(context.Background(), transaction, 100, 1710000000, 500)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != InputInvalidSignatures {
		t.Fatalf("expected InputInvalidSignatures, got %v", err)
	}
}

func TestValidateRejectsMixinOutOfRange(t *testing.T) {
	view := newFakeView()
	view.maxMixin = 3
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	v := newValidator(t, view)

	err := v.Validate(context.Background(), transaction, 100, 1710000000, 500)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != MixinTooFewOrTooMany {
		t.Fatalf("expected MixinTooFewOrTooMany, got %v", err)
	}
}

func TestValidateRejectsLockedOutput(t *testing.T) {
	view := newFakeView()
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	view.outputs[1000][10] = OutputKey{PublicKey: view.outputs[1000][10].PublicKey, Unlocked: false}
	v := newValidator(t, view)

	err := v.Validate(context.Background(), transaction, 100, 1710000000, 500)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != InputInvalidSignatures {
		t.Fatalf("expected InputInvalidSignatures for locked output, got %v", err)
	}
}

func TestValidateCoinbaseWrongBlockIndex(t *testing.T) {
	view := newFakeView()
	v := newValidator(t, view)

	secret, _ := crypto.RandomScalar()
	base := &tx.Transaction{
		Prefix: tx.Prefix{
			Version:    1,
			UnlockTime: 160,
			Inputs:     []tx.Input{{Base: &tx.BaseInput{BlockIndex: 99}}},
			Outputs:    []tx.Output{{Amount: 5000, Target: crypto.BaseMul(secret)}},
		},
	}
	err := v.Validate(context.Background(), base, 100, 1710000000, 500)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != BaseInputWrongBlockIndex {
		t.Fatalf("expected BaseInputWrongBlockIndex, got %v", err)
	}
}

func TestValidateCoinbaseAccepted(t *testing.T) {
	view := newFakeView()
	v := newValidator(t, view)

	secret, _ := crypto.RandomScalar()
	base := &tx.Transaction{
		Prefix: tx.Prefix{
			Version:    1,
			UnlockTime: 160,
			Inputs:     []tx.Input{{Base: &tx.BaseInput{BlockIndex: 100}}},
			Outputs:    []tx.Output{{Amount: 5000, Target: crypto.BaseMul(secret)}},
		},
	}
	if err := v.Validate(context.Background(), base, 100, 1710000000, 500); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestRevalidateEvictsOnNewlySpentKeyImage(t *testing.T) {
	view := newFakeView()
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	v := newValidator(t, view)

	if err := v.Revalidate(transaction, 101, 500); err != nil {
		t.Fatalf("expected acceptance before the image was spent, got %v", err)
	}

	view.spent[transaction.Prefix.Inputs[0].Key.KeyImage.Bytes()] = struct{}{}
	err := v.Revalidate(transaction, 102, 500)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != InputKeyImageAlreadySpent {
		t.Fatalf("expected InputKeyImageAlreadySpent, got %v", err)
	}
}

func TestRevalidateRejectsOversizedTransaction(t *testing.T) {
	view := newFakeView()
	view.median = 10
	view.reserved = 0
	transaction := buildCLSAGTransaction(t, view, 5, 2, 1000, 10)
	v := newValidator(t, view)

	err := v.Revalidate(transaction, 101, 1000)
	verr, ok := err.(*Error)
	if !ok || verr.Reason != CumulativeBlockSizeTooBig {
		t.Fatalf("expected CumulativeBlockSizeTooBig, got %v", err)
	}
}

func TestValidateConfidentialTransactionWithBulletproofs(t *testing.T) {
	view := newFakeView()
	view.proofReq = true
	view.proofScheme = tx.RangeProofBulletproof

	const amount, outAmount, fee = uint64(1000), uint64(990), uint64(10)
	const n, real = 5, 2

	pubs := make([]crypto.Point, n)
	commitments := make([]crypto.Point, n)
	var secret, realBlinding crypto.Scalar
	for i := 0; i < n; i++ {
		s, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		pubs[i] = crypto.BaseMul(s)
		y, err := crypto.RandomScalar()
		if err != nil {
			t.Fatal(err)
		}
		if i == real {
			secret, realBlinding = s, y
		}
		commitments[i] = ringct.GeneratePedersenCommitment(y, amount)
	}
	img := stealth.KeyImage(secret, pubs[real])

	offsets := make([]uint64, n)
	var prev uint64
	for i := 0; i < n; i++ {
		idx := uint64(10 + i)
		if i == 0 {
			offsets[i] = idx
		} else {
			offsets[i] = idx - prev
		}
		prev = idx
		view.put(amount, idx, OutputKey{PublicKey: pubs[i], Commitment: commitments[i], Unlocked: true})
	}

	outBlinding, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	outCommitment := ringct.GeneratePedersenCommitment(outBlinding, outAmount)

	pseudoResult, err := ringct.GeneratePseudoOutputs([]uint64{amount}, []crypto.Scalar{outBlinding})
	if err != nil {
		t.Fatal(err)
	}
	pseudoCommitment := pseudoResult.Commitments[0]
	pseudoBlinding := pseudoResult.Blindings[0]

	outTarget, err := crypto.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}

	prefix := tx.Prefix{
		Version:    1,
		UnlockTime: 0,
		Inputs: []tx.Input{{Key: &tx.KeyInput{
			Amount:   amount,
			Offsets:  offsets,
			KeyImage: img,
		}}},
		Outputs: []tx.Output{{Amount: outAmount, Target: crypto.BaseMul(outTarget)}},
	}
	msg := types_PrefixHash(prefix)

	ring := ringsig.CLSAGRing{Pubs: pubs, Commitments: commitments, Pseudo: pseudoCommitment}
	zScalar := realBlinding.Sub(pseudoBlinding)
	commitmentImg := crypto.HashToPoint(pointBytesOf(pubs[real])).Mul(zScalar)

	pending, err := ringsig.GenerateCLSAG(msg, ring, img, commitmentImg, real)
	if err != nil {
		t.Fatal(err)
	}
	sig := ringsig.CompleteCLSAG(secret, zScalar, pending)

	cache := bulletproof.NewGeneratorCache()
	proof, err := bulletproof.Prove(cache, outAmount, outBlinding, 64)
	if err != nil {
		t.Fatal(err)
	}
	blob := bulletproof.EncodeProofs([]*bulletproof.Proof{proof})

	transaction := &tx.Transaction{
		Prefix:          prefix,
		SignatureScheme: tx.SchemeCLSAG,
		CLSAGSigs: []tx.CLSAGSig{{
			S:                sig.S,
			C0:               sig.C0,
			CommitmentAware:  sig.CommitmentAware,
			CommitmentKeyImg: sig.CommitmentKeyImg,
		}},
		PseudoOutputs:     []crypto.Point{pseudoCommitment},
		RangeProofScheme:  tx.RangeProofBulletproof,
		RangeProofBlob:    blob,
		OutputCommitments: []crypto.Point{outCommitment},
	}

	v := newValidator(t, view)
	if err := v.Validate(context.Background(), transaction, 100, 1710000000, 2000); err != nil {
		t.Fatalf("expected acceptance of confidential transaction, got %v", err)
	}
}

func pointBytesOf(p crypto.Point) []byte {
	b := p.Bytes()
	return b[:]
}
