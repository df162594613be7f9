// Package events implements the internal publish/subscribe bus the
// chain manager and transaction pool use to notify external
// consumers (RPC, P2P) of chain and pool state changes. Delivery is
// best-effort: a failing observer is logged and dropped from that
// delivery, never retried.
package events

import (
	"sync"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-chain/internal/log"
)

// DeleteReason explains why a transaction left the pool without
// being included in a block.
type DeleteReason int

const (
	// DeleteNotActual means revalidation against a new tip failed.
	DeleteNotActual DeleteReason = iota
	// DeleteOutdated means the entry exceeded its live-time.
	DeleteOutdated
)

func (r DeleteReason) String() string {
	switch r {
	case DeleteNotActual:
		return "not_actual"
	case DeleteOutdated:
		return "outdated"
	default:
		return "unknown"
	}
}

// NewBlock announces a block extending the active chain.
type NewBlock struct {
	Height uint64
	Hash   types.Hash
}

// NewAlternativeBlock announces a block accepted onto a non-active
// (alternative) chain segment.
type NewAlternativeBlock struct {
	Height uint64
	Hash   types.Hash
}

// ChainSwitch announces a reorg: the active tip moved to a different
// leaf. NewHashes runs in order from the common ancestor (exclusive) to
// the new tip (inclusive).
type ChainSwitch struct {
	CommonAncestorHeight uint64
	NewHashes            []types.Hash
}

// AddTransaction announces transactions admitted to the pool.
type AddTransaction struct {
	Hashes []types.Hash
}

// DeleteTransaction announces transactions removed from the pool.
type DeleteTransaction struct {
	Hashes []types.Hash
	Reason DeleteReason
}

// Observer receives chain and pool events. Every method is called
// synchronously from the publishing goroutine under Bus's lock
// released; observers that need to do real work should hand off to
// their own goroutine and return quickly.
type Observer interface {
	OnNewBlock(NewBlock)
	OnNewAlternativeBlock(NewAlternativeBlock)
	OnChainSwitch(ChainSwitch)
	OnAddTransaction(AddTransaction)
	OnDeleteTransaction(DeleteTransaction)
}

// Bus fans events out to a list of observers.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
	log       zerolog.Logger
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{log: log.WithComponent("events")}
}

// Subscribe registers an observer. It is never unregistered
// automatically; callers that need to stop receiving events must
// track their own subscription and call Unsubscribe.
func (b *Bus) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Unsubscribe removes an observer by identity.
func (b *Bus) Unsubscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, obs := range b.observers {
		if obs == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

func (b *Bus) snapshot() []Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Observer, len(b.observers))
	copy(out, b.observers)
	return out
}

// PublishNewBlock fans out a NewBlock event.
func (b *Bus) PublishNewBlock(e NewBlock) {
	for _, o := range b.snapshot() {
		b.deliver(func() { o.OnNewBlock(e) }, "new_block")
	}
}

// PublishNewAlternativeBlock fans out a NewAlternativeBlock event.
func (b *Bus) PublishNewAlternativeBlock(e NewAlternativeBlock) {
	for _, o := range b.snapshot() {
		b.deliver(func() { o.OnNewAlternativeBlock(e) }, "new_alternative_block")
	}
}

// PublishChainSwitch fans out a ChainSwitch event.
func (b *Bus) PublishChainSwitch(e ChainSwitch) {
	for _, o := range b.snapshot() {
		b.deliver(func() { o.OnChainSwitch(e) }, "chain_switch")
	}
}

// PublishAddTransaction fans out an AddTransaction event.
func (b *Bus) PublishAddTransaction(e AddTransaction) {
	for _, o := range b.snapshot() {
		b.deliver(func() { o.OnAddTransaction(e) }, "add_transaction")
	}
}

// PublishDeleteTransaction fans out a DeleteTransaction event.
func (b *Bus) PublishDeleteTransaction(e DeleteTransaction) {
	for _, o := range b.snapshot() {
		b.deliver(func() { o.OnDeleteTransaction(e) }, "delete_transaction")
	}
}

// deliver calls fn, recovering a panicking observer so one bad
// subscriber cannot take down the publishing goroutine or block
// delivery to the rest of the list.
func (b *Bus) deliver(fn func(), event string) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("event", event).Msg("observer delivery failed")
		}
	}()
	fn()
}
