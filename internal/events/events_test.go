package events

import (
	"sync"
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

type recordingObserver struct {
	mu      sync.Mutex
	blocks  []NewBlock
	alts    []NewAlternativeBlock
	swaps   []ChainSwitch
	added   []AddTransaction
	deleted []DeleteTransaction
}

func (o *recordingObserver) OnNewBlock(e NewBlock) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.blocks = append(o.blocks, e)
}

func (o *recordingObserver) OnNewAlternativeBlock(e NewAlternativeBlock) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.alts = append(o.alts, e)
}

func (o *recordingObserver) OnChainSwitch(e ChainSwitch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.swaps = append(o.swaps, e)
}

func (o *recordingObserver) OnAddTransaction(e AddTransaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, e)
}

func (o *recordingObserver) OnDeleteTransaction(e DeleteTransaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, e)
}

type panickingObserver struct{}

func (panickingObserver) OnNewBlock(NewBlock)                         { panic("boom") }
func (panickingObserver) OnNewAlternativeBlock(NewAlternativeBlock)   { panic("boom") }
func (panickingObserver) OnChainSwitch(ChainSwitch)                   { panic("boom") }
func (panickingObserver) OnAddTransaction(AddTransaction)             { panic("boom") }
func (panickingObserver) OnDeleteTransaction(DeleteTransaction)       { panic("boom") }

func TestBusFansOutToAllObservers(t *testing.T) {
	bus := NewBus()
	a := &recordingObserver{}
	b := &recordingObserver{}
	bus.Subscribe(a)
	bus.Subscribe(b)

	hash := types.Hash{1, 2, 3}
	bus.PublishNewBlock(NewBlock{Height: 10, Hash: hash})

	for _, o := range []*recordingObserver{a, b} {
		if len(o.blocks) != 1 || o.blocks[0].Height != 10 || o.blocks[0].Hash != hash {
			t.Fatalf("observer did not receive expected event: %+v", o.blocks)
		}
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	a := &recordingObserver{}
	bus.Subscribe(a)
	bus.Unsubscribe(a)

	bus.PublishAddTransaction(AddTransaction{Hashes: []types.Hash{{1}}})
	if len(a.added) != 0 {
		t.Fatal("unsubscribed observer should not receive events")
	}
}

func TestBusToleratesPanickingObserver(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(panickingObserver{})
	good := &recordingObserver{}
	bus.Subscribe(good)

	bus.PublishDeleteTransaction(DeleteTransaction{
		Hashes: []types.Hash{{9}},
		Reason: DeleteOutdated,
	})

	if len(good.deleted) != 1 {
		t.Fatal("a panicking observer must not prevent delivery to the rest of the list")
	}
}

func TestChainSwitchCarriesNewHashes(t *testing.T) {
	bus := NewBus()
	o := &recordingObserver{}
	bus.Subscribe(o)

	hashes := []types.Hash{{1}, {2}, {3}}
	bus.PublishChainSwitch(ChainSwitch{CommonAncestorHeight: 5, NewHashes: hashes})

	if len(o.swaps) != 1 || len(o.swaps[0].NewHashes) != 3 || o.swaps[0].CommonAncestorHeight != 5 {
		t.Fatalf("unexpected chain switch event: %+v", o.swaps)
	}
}

func TestDeleteReasonString(t *testing.T) {
	if DeleteNotActual.String() != "not_actual" {
		t.Fatalf("unexpected string for DeleteNotActual: %s", DeleteNotActual.String())
	}
	if DeleteOutdated.String() != "outdated" {
		t.Fatalf("unexpected string for DeleteOutdated: %s", DeleteOutdated.String())
	}
}
