package mempool

import (
	"context"
	"testing"

	"github.com/Klingon-tech/klingnet-chain/internal/validator"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/bulletproof"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/ringsig"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/stealth"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// fakeView is a minimal in-memory validator.ChainView for pool tests;
// it mirrors internal/validator's own fakeView, duplicated here since
// that one is unexported across package boundaries.
type fakeView struct {
	outputs map[uint64]map[uint64]validator.OutputKey
	spent   map[[crypto.PointSize]byte]struct{}
}

func newFakeView() *fakeView {
	return &fakeView{
		outputs: make(map[uint64]map[uint64]validator.OutputKey),
		spent:   make(map[[crypto.PointSize]byte]struct{}),
	}
}

func (v *fakeView) put(amount, idx uint64, key validator.OutputKey) {
	if v.outputs[amount] == nil {
		v.outputs[amount] = make(map[uint64]validator.OutputKey)
	}
	v.outputs[amount][idx] = key
}

func (v *fakeView) OutputsByAmount(amount uint64, globalIndexes []uint64) ([]validator.OutputKey, error) {
	out := make([]validator.OutputKey, 0, len(globalIndexes))
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

func (v *fakeView) MixinRange(uint64) (int, int)                         { return 1, 16 }
func (v *fakeView) MedianBlockSize(uint64) uint64                        { return 100000 }
func (v *fakeView) SignatureScheme(uint64) tx.SignatureScheme           { return tx.SchemeCLSAG }
func (v *fakeView) RangeProofRequired(uint64) (bool, tx.RangeProofScheme) { return false, tx.RangeProofNone }
func (v *fakeView) MinedMoneyUnlockWindow() uint64                       { return 60 }
func (v *fakeView) ReservedCoinbaseBlobSize() uint64                     { return 600 }

type fakeNotFound struct{}

func (fakeNotFound) Error() string { return "fake view: output not found" }

var errNotFound = fakeNotFound{}

func newTestValidator(t *testing.T, view validator.ChainView) *validator.Validator {
	t.Helper()
	v, err := validator.New(view, validator.Params{GeneratorCache: bulletproof.NewGeneratorCache()})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// buildSpendingTx assembles a single-input, single-output CLSAG
// transaction spending a ring of n outputs at inputAmount, paying
// outputAmount to a fresh one-time key (inputAmount-outputAmount is
// the fee; equal amounts produce a fusion transaction).
func buildSpendingTx(t *testing.T, view *fakeView, n, realIdx int, inputAmount, outputAmount, realIndex uint64) *tx.Transaction {
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
		view.put(inputAmount, idx, validator.OutputKey{PublicKey: pubs[i], Unlocked: true})
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
			Amount:   inputAmount,
			Offsets:  offsets,
			KeyImage: img,
		}}},
		Outputs: []tx.Output{{Amount: outputAmount, Target: crypto.BaseMul(outTarget)}},
	}

	tmp := &tx.Transaction{Prefix: prefix}
	h := tmp.PrefixHash()
	ring := ringsig.CLSAGRing{Pubs: pubs}
	pending, err := ringsig.GenerateCLSAG(h[:], ring, img, crypto.IdentityPoint, realIdx)
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

func TestAddAcceptsWellFormedTransaction(t *testing.T) {
	view := newFakeView()
	txn := buildSpendingTx(t, view, 5, 2, 1000, 900, 10)
	v := newTestValidator(t, view)

	p := New(Params{})
	fee, err := p.Add(context.Background(), txn, v, 100, 1710000000)
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
	if fee != 100 {
		t.Fatalf("expected fee 100, got %d", fee)
	}
	if !p.Has(txn.Hash()) {
		t.Fatal("expected transaction to be pooled")
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	view := newFakeView()
	txn := buildSpendingTx(t, view, 5, 2, 1000, 900, 10)
	v := newTestValidator(t, view)

	p := New(Params{})
	if _, err := p.Add(context.Background(), txn, v, 100, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(context.Background(), txn, v, 100, 0); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestAddRejectsConflictingKeyImage(t *testing.T) {
	view := newFakeView()
	a := buildSpendingTx(t, view, 5, 2, 1000, 900, 10)
	v := newTestValidator(t, view)

	p := New(Params{})
	if _, err := p.Add(context.Background(), a, v, 100, 0); err != nil {
		t.Fatal(err)
	}

	// b spends a different ring but shares a's key image by construction.
	b := buildSpendingTx(t, view, 5, 1, 1000, 850, 20)
	b.Prefix.Inputs[0].Key.KeyImage = a.Prefix.Inputs[0].Key.KeyImage

	if _, err := p.Add(context.Background(), b, v, 100, 0); err == nil {
		t.Fatal("expected key-image conflict rejection")
	}
}

func TestFusionQuota(t *testing.T) {
	view := newFakeView()
	v := newTestValidator(t, view)
	p := New(Params{MaxFusionCount: 1})

	fusionA := buildSpendingTx(t, view, 5, 0, 1000, 1000, 10)
	if _, err := p.Add(context.Background(), fusionA, v, 100, 0); err != nil {
		t.Fatal(err)
	}

	fusionB := buildSpendingTx(t, view, 5, 0, 1000, 1000, 20)
	if _, err := p.Add(context.Background(), fusionB, v, 100, 0); err != ErrFusionQuotaFull {
		t.Fatalf("expected ErrFusionQuotaFull, got %v", err)
	}
}

func TestRemoveIncludedDropsEntry(t *testing.T) {
	view := newFakeView()
	txn := buildSpendingTx(t, view, 5, 2, 1000, 900, 10)
	v := newTestValidator(t, view)

	p := New(Params{})
	if _, err := p.Add(context.Background(), txn, v, 100, 0); err != nil {
		t.Fatal(err)
	}
	p.RemoveIncluded([]types.Hash{txn.Hash()})
	if p.Has(txn.Hash()) {
		t.Fatal("expected transaction to be removed")
	}
}

func TestRevalidateEvictsOnNewlySpentKeyImage(t *testing.T) {
	view := newFakeView()
	txn := buildSpendingTx(t, view, 5, 2, 1000, 900, 10)
	v := newTestValidator(t, view)

	p := New(Params{})
	if _, err := p.Add(context.Background(), txn, v, 100, 0); err != nil {
		t.Fatal(err)
	}

	view.spent[txn.Prefix.Inputs[0].Key.KeyImage.Bytes()] = struct{}{}
	p.Revalidate(v, 101)

	if p.Has(txn.Hash()) {
		t.Fatal("expected transaction to be evicted as not-actual")
	}
}

func TestFeeSortedOrdersDescending(t *testing.T) {
	view := newFakeView()
	v := newTestValidator(t, view)
	p := New(Params{})

	low := buildSpendingTx(t, view, 5, 0, 1000, 990, 10)  // fee 10
	high := buildSpendingTx(t, view, 5, 0, 1000, 800, 20) // fee 200

	if _, err := p.Add(context.Background(), low, v, 100, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(context.Background(), high, v, 100, 0); err != nil {
		t.Fatal(err)
	}

	sorted := p.FeeSorted()
	if len(sorted) != 2 || sorted[0].Hash() != high.Hash() {
		t.Fatalf("expected higher-fee transaction first, got %v", sorted)
	}
}
