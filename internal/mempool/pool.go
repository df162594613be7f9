// Package mempool manages unconfirmed transactions waiting for block
// inclusion: admission against the current tip, key-image conflict
// tracking, a fusion-transaction quota, and reorg-driven revalidation.
package mempool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/validator"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Pool errors.
var (
	ErrAlreadyExists  = errors.New("mempool: transaction already present")
	ErrKeyImageSpent  = errors.New("mempool: key image already spent")
	ErrFusionQuotaFull = errors.New("mempool: fusion transaction quota exceeded")
	ErrValidation     = errors.New("mempool: transaction failed validation")
	ErrNotFound       = errors.New("mempool: transaction not found")
)

// DeleteReason classifies why a pool entry was removed, mirroring the
// reorg/eviction vocabulary spec.md §4.13 names.
type DeleteReason int

const (
	// InBlock means the transaction was confirmed.
	InBlock DeleteReason = iota
	// NotActual means revalidation against a new tip failed.
	NotActual
	// Outdated means the entry's live time exceeded the configured cap.
	Outdated
)

func (r DeleteReason) String() string {
	switch r {
	case InBlock:
		return "in_block"
	case NotActual:
		return "not_actual"
	case Outdated:
		return "outdated"
	default:
		return "unknown"
	}
}

// entry wraps a pooled transaction with the bookkeeping fields the
// pool's admission, eviction, and template-filling logic all need.
type entry struct {
	tx         *tx.Transaction
	txHash     types.Hash
	fee        uint64
	feeRate    float64 // fee per byte of the transaction's wire encoding.
	fusion     bool    // fee == 0; counts against the fusion quota.
	keyImages  [][crypto.PointSize]byte
	receivedAt time.Time
}

// Params bounds pool admission and eviction policy.
type Params struct {
	MaxFusionCount int           // Cap on concurrently pooled fee=0 transactions.
	MaxLiveTime    time.Duration // How long an entry may sit before Outdated eviction.
	MaxPoolBytes   int           // Soft cap on total pooled transaction size, 0 = unbounded.
}

// Pool holds unconfirmed transactions.
type Pool struct {
	mu sync.RWMutex

	txs         map[types.Hash]*entry
	spent       map[[crypto.PointSize]byte]types.Hash // key image -> owning pool entry
	fusionCount int
	totalBytes  int

	params Params
	log    zerolog.Logger
}

// New creates an empty pool governed by params.
func New(params Params) *Pool {
	if params.MaxLiveTime <= 0 {
		params.MaxLiveTime = 24 * time.Hour
	}
	return &Pool{
		txs:    make(map[types.Hash]*entry),
		spent:  make(map[[crypto.PointSize]byte]types.Hash),
		params: params,
		log:    log.WithComponent("mempool"),
	}
}

// Add runs the admission flow spec.md §4.13 describes: duplicate and
// spent-key-image rejection, fusion-quota enforcement, full C10
// validation against the supplied view, then insertion with a
// projected spent-image set.
func (p *Pool) Add(ctx context.Context, t *tx.Transaction, v *validator.Validator, height, timestamp uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txHash := t.Hash()
	if _, exists := p.txs[txHash]; exists {
		return 0, ErrAlreadyExists
	}

	images := keyImagesOf(t)
	for _, img := range images {
		if owner, exists := p.spent[img]; exists {
			return 0, fmt.Errorf("%w: conflicts with %s", ErrKeyImageSpent, owner)
		}
	}

	fee, err := v.Fee(t)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	isFusion := fee == 0
	if isFusion && p.params.MaxFusionCount > 0 && p.fusionCount >= p.params.MaxFusionCount {
		return 0, ErrFusionQuotaFull
	}

	size := len(t.Bytes())
	if err := v.Validate(ctx, t, height, timestamp, size); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	e := &entry{
		tx:         t,
		txHash:     txHash,
		fee:        fee,
		fusion:     isFusion,
		keyImages:  images,
		receivedAt: timeNow(),
	}
	if size > 0 {
		e.feeRate = float64(fee) / float64(size)
	}

	p.txs[txHash] = e
	for _, img := range images {
		p.spent[img] = txHash
	}
	if isFusion {
		p.fusionCount++
	}
	p.totalBytes += size

	return fee, nil
}

// Lookup returns a pooled transaction by hash. It satisfies
// chain.PoolHandle.
func (p *Pool) Lookup(hash types.Hash) (*tx.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.txs[hash]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// RemoveIncluded drops confirmed transactions with reason InBlock. It
// satisfies chain.PoolHandle.
func (p *Pool) RemoveIncluded(hashes []types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		p.removeLocked(h, InBlock)
	}
}

// Reinject re-admits transactions that were confirmed only on a branch
// that just lost the race to become active. Each is re-checked against
// the current pool state (plain duplicate/key-image checks only — the
// caller is expected to Revalidate against the new tip immediately
// afterward, which is where full consensus re-checking happens). It
// satisfies chain.PoolHandle.
func (p *Pool) Reinject(txs []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range txs {
		if t.IsCoinbase() {
			continue
		}
		txHash := t.Hash()
		if _, exists := p.txs[txHash]; exists {
			continue
		}
		images := keyImagesOf(t)
		conflict := false
		for _, img := range images {
			if _, exists := p.spent[img]; exists {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		size := len(t.Bytes())
		e := &entry{tx: t, txHash: txHash, keyImages: images, receivedAt: timeNow()}
		if size > 0 {
			e.feeRate = 0
		}
		p.txs[txHash] = e
		for _, img := range images {
			p.spent[img] = txHash
		}
		p.totalBytes += size
	}
}

// Revalidate re-runs the lighter C10 check against every pool entry at
// the new tip, evicting anything that no longer holds up. It
// satisfies chain.PoolHandle.
func (p *Pool) Revalidate(v *validator.Validator, height uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for hash, e := range p.txs {
		size := len(e.tx.Bytes())
		if err := v.Revalidate(e.tx, height, size); err != nil {
			p.log.Debug().Str("tx", hash.String()).Err(err).Msg("pool entry failed revalidation")
			p.removeLocked(hash, NotActual)
		}
	}
}

// removeNotActual evicts entries that failed a point-in-time
// Revalidate call (template filling) with reason NotActual.
func (p *Pool) removeNotActual(hashes []types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		p.removeLocked(h, NotActual)
	}
}

// EvictOutdated drops entries that have sat in the pool longer than
// MaxLiveTime, the cooperative cleaning pass spec.md §4.13 describes.
func (p *Pool) EvictOutdated() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := timeNow().Add(-p.params.MaxLiveTime)
	evicted := 0
	for hash, e := range p.txs {
		if e.receivedAt.Before(cutoff) {
			p.removeLocked(hash, Outdated)
			evicted++
		}
	}
	return evicted
}

func (p *Pool) removeLocked(hash types.Hash, reason DeleteReason) {
	e, exists := p.txs[hash]
	if !exists {
		return
	}
	for _, img := range e.keyImages {
		if p.spent[img] == hash {
			delete(p.spent, img)
		}
	}
	if e.fusion {
		p.fusionCount--
	}
	p.totalBytes -= len(e.tx.Bytes())
	delete(p.txs, hash)
	_ = reason // logged by callers that care which path triggered removal
}

// Has reports whether a transaction is pooled.
func (p *Pool) Has(hash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.txs[hash]
	return ok
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Hashes returns every pooled transaction's hash.
func (p *Pool) Hashes() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Hash, 0, len(p.txs))
	for h := range p.txs {
		out = append(out, h)
	}
	return out
}

// FeeSorted returns pooled non-fusion transactions ordered by fee rate
// descending, for block-template filling.
func (p *Pool) FeeSorted() []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedByFeeRate(p.txs, false)
}

// FusionSorted returns pooled fusion (fee == 0) transactions, oldest
// first — fusion transactions have no fee rate to sort by, so the
// template filler instead prefers clearing the longest-waiting ones.
func (p *Pool) FusionSorted() []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]*entry, 0)
	for _, e := range p.txs {
		if e.fusion {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].receivedAt.Before(entries[j].receivedAt)
	})
	out := make([]*tx.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

func sortedByFeeRate(txs map[types.Hash]*entry, fusionOnly bool) []*tx.Transaction {
	entries := make([]*entry, 0, len(txs))
	for _, e := range txs {
		if e.fusion != fusionOnly && !fusionOnly {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].feeRate > entries[j].feeRate
	})
	out := make([]*tx.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

func keyImagesOf(t *tx.Transaction) [][crypto.PointSize]byte {
	var out [][crypto.PointSize]byte
	for _, in := range t.Prefix.Inputs {
		if in.Key != nil {
			out = append(out, in.Key.KeyImage.Bytes())
		}
	}
	return out
}

// timeNow is split out so tests can observe deterministic ordering
// without depending on wall-clock granularity.
var timeNow = time.Now
