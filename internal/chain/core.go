package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-chain/internal/checkpoints"
	"github.com/Klingon-tech/klingnet-chain/internal/events"
	"github.com/Klingon-tech/klingnet-chain/internal/fork"
	"github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/Klingon-tech/klingnet-chain/internal/validator"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/bulletproof"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// AddResult classifies where a successfully accepted block landed.
type AddResult int

const (
	// AddedToMain extended the active tip (leaves[0]) directly.
	AddedToMain AddResult = iota
	// AddedToAlternative extended (or forked) a leaf that is not, and
	// remains not, the active chain.
	AddedToAlternative
	// AddedToAlternativeAndSwitched extended a non-active leaf whose
	// cumulative difficulty now exceeds the previous active tip's,
	// triggering a reorg.
	AddedToAlternativeAndSwitched
)

func (r AddResult) String() string {
	switch r {
	case AddedToMain:
		return "added_to_main"
	case AddedToAlternative:
		return "added_to_alternative"
	case AddedToAlternativeAndSwitched:
		return "added_to_alternative_and_switched"
	default:
		return "unknown"
	}
}

// StateErrorKind is the closed enum of reasons AddBlock/SubmitBlock
// refuse a candidate block outright, before or instead of a
// transaction-level validation failure.
type StateErrorKind int

const (
	AlreadyExists StateErrorKind = iota
	RejectedAsOrphaned
	DeserializationFailed
	WrongMajorVersion
	CumulativeSizeTooBig
	TransactionValidationFailed
	BlockRewardMismatch
	ProofOfWorkTooWeak
	CheckpointMismatch
)

func (k StateErrorKind) String() string {
	switch k {
	case AlreadyExists:
		return "already_exists"
	case RejectedAsOrphaned:
		return "rejected_as_orphaned"
	case DeserializationFailed:
		return "deserialization_failed"
	case WrongMajorVersion:
		return "wrong_major_version"
	case CumulativeSizeTooBig:
		return "cumulative_size_too_big"
	case TransactionValidationFailed:
		return "transaction_validation_failed"
	case BlockRewardMismatch:
		return "block_reward_mismatch"
	case ProofOfWorkTooWeak:
		return "proof_of_work_too_weak"
	case CheckpointMismatch:
		return "checkpoint_mismatch"
	default:
		return "unknown"
	}
}

// StateError wraps a StateErrorKind with the underlying cause, where
// one exists.
type StateError struct {
	Kind StateErrorKind
	Err  error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chain: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("chain: %s", e.Kind)
}

func (e *StateError) Unwrap() error { return e.Err }

func stateErr(kind StateErrorKind, err error) *StateError {
	return &StateError{Kind: kind, Err: err}
}

// ErrInvariantViolation marks a bug: the segment tree ended up in a
// shape addBlock's bookkeeping did not anticipate. Core never calls
// os.Exit itself; the caller decides whether this is fatal.
var ErrInvariantViolation = errors.New("chain: internal invariant violation")

// PoolHandle is the slice of the transaction pool the chain manager
// drives: sourcing bodies for a block under construction or being
// re-assembled, dropping entries a new block confirmed, and
// re-checking (or re-admitting) entries when the tip moves. Declared
// here rather than imported from internal/mempool so the two packages
// do not import each other; *mempool.Pool satisfies this interface
// structurally.
type PoolHandle interface {
	// Lookup returns a pooled transaction by hash, for materializing a
	// block template's hash-only body list.
	Lookup(hash types.Hash) (*tx.Transaction, bool)

	// RemoveIncluded drops transactions a newly accepted block
	// confirmed.
	RemoveIncluded(hashes []types.Hash)

	// Reinject re-admits transactions that were confirmed only on a
	// branch that just lost the race to become the active chain,
	// running full admission checks again (a losing branch's spends
	// may now conflict with the new active chain).
	Reinject(txs []*tx.Transaction)

	// Revalidate re-checks every remaining pool entry against v at
	// height, evicting anything that now fails with DeleteReason
	// NotActual.
	Revalidate(v *validator.Validator, height uint64)
}

// Params holds the consensus constants addBlock needs beyond what the
// fork table and checkpoint table already encode.
type Params struct {
	CoinbaseUnlockWindow uint64
	MinMixin, MaxMixin   int
	MedianWindow         int
	DifficultyWindow     int
	TargetBlockSeconds   uint64
	PowRounds            int

	CLSAGForkVersion           uint32
	BulletproofForkVersion     uint32
	BulletproofPlusForkVersion uint32
	ReservedCoinbaseBlobSize   uint64

	MaxParallelVerifications int
	GeneratorCache            *bulletproof.GeneratorCache

	MoneySupply        uint64
	EmissionSpeedFactor uint

	// LeafPruneDepth caps how many blocks a single Rewind call may
	// strip from the active tip. Losing leaves are not pruned; they
	// stay in the tree.
	LeafPruneDepth uint64
}

// Core assembles the segment tree, the tracked leaves, the pool
// handle, the fork/upgrade manager, and the checkpoint table into the
// single entry point block submission goes through: addBlock/
// submitBlock, guarded end-to-end by submitMu so exactly one writer
// ever mutates the tree (readers use the Segment getters directly,
// which take their own per-segment RWMutex).
type Core struct {
	submitMu sync.Mutex

	root   *Segment
	leaves []*Segment // leaves[0] is always the active chain's tip

	fork        *fork.Manager
	checkpoints *checkpoints.Table
	pool        PoolHandle
	bus         *events.Bus
	db          storage.DB

	params Params
	log    zerolog.Logger
}

// New constructs a Core anchored at an already-pushed genesis segment.
// Callers build the genesis Segment with NewRootSegment and PushBlock
// the genesis block onto it themselves before calling New, since
// genesis bypasses PoW/fork/reward checks entirely.
func New(root *Segment, forkMgr *fork.Manager, ckpts *checkpoints.Table, pool PoolHandle, bus *events.Bus, db storage.DB, params Params) (*Core, error) {
	if params.GeneratorCache == nil {
		return nil, errors.New("chain: generator cache is required")
	}
	if _, ok := root.Top(); !ok {
		return nil, errors.New("chain: root segment must already contain genesis")
	}
	return &Core{
		root:        root,
		leaves:      []*Segment{root},
		fork:        forkMgr,
		checkpoints: ckpts,
		pool:        pool,
		bus:         bus,
		db:          db,
		params:      params,
		log:         log.WithComponent("chain"),
	}, nil
}

// ActiveHeight returns the height of the active chain's tip.
func (c *Core) ActiveHeight() uint64 {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	h, _ := c.leaves[0].Top()
	return h
}

// ActiveSegment returns the segment currently tracked as the chain's
// tip (leaves[0]). Callers must not mutate it directly.
func (c *Core) ActiveSegment() *Segment {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	return c.leaves[0]
}

// ActiveValidator builds a validator against the active chain's tip,
// one height above its current top — the height a new pool admission
// or block template would be validated at. Callers outside this
// package (pool admission, template filling) use this instead of
// reaching into segment internals directly.
func (c *Core) ActiveValidator() *validator.Validator {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	seg := c.leaves[0]
	height, _ := seg.Top()
	return c.validatorFor(seg, height+1)
}

// AddBlock decodes and accepts a block relayed from a peer or replayed
// from an import file; transaction bodies are sourced from the pool
// first and, failing that, from the cache of the parent block's own
// branch lineage (a transaction re-announced after already confirming
// there). Transactions cached only on other branches are not found.
func (c *Core) AddBlock(raw []byte) (AddResult, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	return c.addBlockLocked(raw, false)
}

// SubmitBlock accepts a block this node just produced: its body
// transactions must already be sitting in the pool, since nothing else
// could have minted them. It shares submitMu with AddBlock so only one
// writer ever touches the tree at a time.
func (c *Core) SubmitBlock(raw []byte) (AddResult, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	return c.addBlockLocked(raw, true)
}

func (c *Core) addBlockLocked(raw []byte, strictPoolSourcing bool) (AddResult, error) {
	tmpl, err := block.DecodeTemplate(raw)
	if err != nil {
		return 0, stateErr(DeserializationFailed, err)
	}
	hash := tmpl.Hash()

	for _, leaf := range c.leaves {
		if _, err := leaf.GetBlockIndex(hash); err == nil {
			return 0, stateErr(AlreadyExists, nil)
		}
	}

	parentHash := tmpl.Header.PrevHash
	var parentHeight uint64
	var found bool
	for _, leaf := range c.leaves {
		if h, err := leaf.GetBlockIndex(parentHash); err == nil {
			parentHeight = h
			found = true
			break
		}
	}
	if !found {
		return 0, stateErr(RejectedAsOrphaned, nil)
	}

	owningSeg, isTop, err := c.leaves[0].SegmentContaining(parentHeight)
	if err != nil {
		// The parent hash resolved against some leaf, so it must
		// resolve from at least one of them; try every leaf before
		// giving up.
		owningSeg, isTop, err = c.resolveOwner(parentHeight)
		if err != nil {
			return 0, stateErr(RejectedAsOrphaned, err)
		}
	}
	// Confirm the hash we located actually matches the block at
	// parentHeight in owningSeg's lineage, not a same-height block on a
	// sibling branch.
	if gotHash, err := owningSeg.GetBlockHash(parentHeight); err != nil || gotHash != parentHash {
		owningSeg, isTop, err = c.resolveOwnerByHash(parentHash, parentHeight)
		if err != nil {
			return 0, stateErr(RejectedAsOrphaned, err)
		}
	}

	height := parentHeight + 1
	body, err := c.materializeTransactions(owningSeg, tmpl.TxHashes, strictPoolSourcing)
	if err != nil {
		return 0, stateErr(DeserializationFailed, err)
	}

	maxMajor := c.fork.BlockMajorFor(height)
	if tmpl.Header.MajorVersion == 0 || tmpl.Header.MajorVersion > maxMajor {
		return 0, stateErr(WrongMajorVersion, nil)
	}

	rawSize := len(raw)
	ctx := context.Background()
	all := make([]*tx.Transaction, 0, len(body)+1)
	all = append(all, tmpl.BaseTransaction)
	all = append(all, body...)

	v := c.validatorFor(owningSeg, height)
	cumSize := 0
	var totalFees uint64
	for i, t := range all {
		cumSize += len(t.Bytes())
		if err := v.Validate(ctx, t, height, tmpl.Header.Timestamp, cumSize); err != nil {
			if i > 0 {
				c.pool.RemoveIncluded([]types.Hash{t.Hash()})
			}
			return 0, stateErr(TransactionValidationFailed, err)
		}
		if i > 0 {
			fee, err := v.Fee(t)
			if err != nil {
				return 0, stateErr(TransactionValidationFailed, err)
			}
			totalFees += fee
		}
	}

	alreadyGenerated, err := owningSeg.GetAlreadyGeneratedCoins(parentHeight)
	if err != nil {
		alreadyGenerated = 0
	}
	medianSize := medianInts(owningSeg.GetLastBlocksSizes(c.params.MedianWindow))
	reward, _ := blockReward(alreadyGenerated, c.params.MoneySupply, c.params.EmissionSpeedFactor, medianSize, rawSize)
	coinbaseOut, err := tmpl.BaseTransaction.TotalOutputAmount()
	if err != nil || coinbaseOut != reward+totalFees {
		return 0, stateErr(BlockRewardMismatch, err)
	}

	if height <= c.checkpoints.MaxHeight() {
		if !c.checkpoints.CheckBlock(height, hash) {
			return 0, stateErr(CheckpointMismatch, nil)
		}
	} else {
		difficulty := owningSeg.GetDifficultyForNextBlock(c.params.DifficultyWindow, c.params.TargetBlockSeconds)
		powHash := crypto.SlowHash256(tmpl.HashingBlob(), c.params.PowRounds)
		if !hashMeetsTarget(powHash, difficulty) {
			return 0, stateErr(ProofOfWorkTooWeak, nil)
		}
	}

	difficulty := owningSeg.GetDifficultyForNextBlock(c.params.DifficultyWindow, c.params.TargetBlockSeconds)
	generatedCoins := alreadyGenerated + reward

	result, targetSeg, err := c.place(owningSeg, isTop, height, tmpl, body, rawSize, difficulty, generatedCoins)
	if err != nil {
		return 0, err
	}

	txHashes := make([]types.Hash, 0, len(all))
	for _, t := range all {
		txHashes = append(txHashes, t.Hash())
	}
	c.pool.RemoveIncluded(txHashes)
	c.persistBlock(height, raw, result == AddedToMain)

	switch result {
	case AddedToMain:
		c.bus.PublishNewBlock(events.NewBlock{Height: height, Hash: hash})
		v := c.validatorFor(targetSeg, height)
		c.pool.Revalidate(v, height)
	case AddedToAlternative:
		c.bus.PublishNewAlternativeBlock(events.NewAlternativeBlock{Height: height, Hash: hash})
	case AddedToAlternativeAndSwitched:
		c.bus.PublishNewAlternativeBlock(events.NewAlternativeBlock{Height: height, Hash: hash})
	}

	return result, nil
}

// resolveOwner is a fallback for SegmentContaining when leaves[0]'s
// lineage does not cover parentHeight (the parent lives on a
// different branch); it tries every tracked leaf.
func (c *Core) resolveOwner(parentHeight uint64) (*Segment, bool, error) {
	for _, leaf := range c.leaves {
		if seg, isTop, err := leaf.SegmentContaining(parentHeight); err == nil {
			return seg, isTop, nil
		}
	}
	return nil, false, ErrHeightNotFound
}

func (c *Core) resolveOwnerByHash(hash types.Hash, height uint64) (*Segment, bool, error) {
	for _, leaf := range c.leaves {
		if h, err := leaf.GetBlockIndex(hash); err == nil && h == height {
			return leaf.SegmentContaining(height)
		}
	}
	return nil, false, ErrHeightNotFound
}

// materializeTransactions resolves a block's hash-only body list to
// full transactions, preferring the pool (the ordinary case: these
// are unconfirmed transactions someone just mined) and falling back to
// whatever owningSeg's own lineage already has cached, unless
// strictPoolSourcing requires every body to come from the pool (the
// case for a block this node itself just produced).
func (c *Core) materializeTransactions(owningSeg *Segment, hashes []types.Hash, strictPoolSourcing bool) ([]*tx.Transaction, error) {
	out := make([]*tx.Transaction, len(hashes))
	for i, h := range hashes {
		if t, ok := c.pool.Lookup(h); ok {
			out[i] = t
			continue
		}
		if !strictPoolSourcing && owningSeg.HasTransaction(h) {
			txs, err := owningSeg.GetRawTransactions([]types.Hash{h})
			if err == nil && len(txs) == 1 && txs[0] != nil {
				out[i] = txs[0]
				continue
			}
		}
		return nil, fmt.Errorf("chain: transaction %s unavailable", h)
	}
	return out, nil
}

// place carries out addBlock's step 9: decide whether the new block
// extends the active tip in place, extends (or forks) a non-active
// leaf that may now overtake the active tip, or forks an interior
// block of whichever segment owns it.
func (c *Core) place(owningSeg *Segment, isTop bool, height uint64, tmpl *block.Template, body []*tx.Transaction, rawSize int, difficulty, generatedCoins uint64) (AddResult, *Segment, error) {
	var target *Segment
	var leafIdx int

	if isTop {
		target = owningSeg
		leafIdx = -1
		for i, l := range c.leaves {
			if l == target {
				leafIdx = i
				break
			}
		}
		if leafIdx < 0 {
			return 0, nil, stateErr(RejectedAsOrphaned, ErrInvariantViolation)
		}
	} else {
		if _, err := owningSeg.Split(height); err != nil {
			return 0, nil, stateErr(RejectedAsOrphaned, err)
		}
		target = owningSeg.NewChildSegment(height)
		c.leaves = append(c.leaves, target)
		leafIdx = len(c.leaves) - 1
	}

	parentCumDiff := uint64(0)
	if _, ok := target.Top(); ok {
		parentCumDiff = target.TopCumulativeDifficulty()
	} else if target.parent != nil {
		parentCumDiff = target.parent.TopCumulativeDifficulty()
	}
	cumDiff := parentCumDiff + difficulty

	if err := target.PushBlock(tmpl, body, rawSize, cumDiff, generatedCoins); err != nil {
		if !isTop {
			// Undo the leaf we just registered; the split itself is
			// harmless to leave in place (it only separates bookkeeping).
			c.leaves = c.leaves[:len(c.leaves)-1]
		}
		return 0, nil, stateErr(RejectedAsOrphaned, err)
	}

	if leafIdx == 0 {
		return AddedToMain, target, nil
	}

	activeCumDiff := c.leaves[0].TopCumulativeDifficulty()
	if cumDiff <= activeCumDiff {
		return AddedToAlternative, target, nil
	}

	oldActive := c.leaves[0]
	c.switchActive(leafIdx, oldActive, target, height)
	return AddedToAlternativeAndSwitched, target, nil
}

// switchActive promotes c.leaves[leafIdx] to leaves[0], publishes a
// ChainSwitch event spanning from the common ancestor to the new tip,
// and reinjects into the pool any transaction that was confirmed only
// on the branch that just lost the race.
func (c *Core) switchActive(leafIdx int, oldActive, newActive *Segment, newHeight uint64) {
	c.leaves[0], c.leaves[leafIdx] = c.leaves[leafIdx], c.leaves[0]

	ancestor := commonAncestor(oldActive, newActive)
	ancestorHeight, _ := ancestor.Top()

	newTop, _ := newActive.Top()
	newHashes, err := newActive.GetBlocksByHeight(ancestorHeight+1, newTop)
	if err != nil {
		newHashes = nil
	}
	c.bus.PublishChainSwitch(events.ChainSwitch{CommonAncestorHeight: ancestorHeight, NewHashes: newHashes})

	oldTop, ok := oldActive.Top()
	if ok && oldTop > ancestorHeight {
		var orphaned []*tx.Transaction
		for h := ancestorHeight + 1; h <= oldTop; h++ {
			_, txs, err := oldActive.GetBlockByIndex(h)
			if err != nil {
				continue
			}
			for _, t := range txs {
				if !t.IsCoinbase() {
					orphaned = append(orphaned, t)
				}
			}
		}
		if len(orphaned) > 0 {
			c.pool.Reinject(orphaned)
		}
	}

	v := c.validatorFor(newActive, newHeight)
	c.pool.Revalidate(v, newHeight)
}

// commonAncestor walks both segments' parent chains to find the
// shared ancestor segment every branch in the tree descends from.
func commonAncestor(a, b *Segment) *Segment {
	seen := make(map[*Segment]bool)
	for s := a; s != nil; s = s.parent {
		seen[s] = true
	}
	for s := b; s != nil; s = s.parent {
		if seen[s] {
			return s
		}
	}
	return nil
}

// Rewind strips blocks above targetHeight from the active chain,
// newest first, up to LeafPruneDepth blocks deep. It is used to back
// out of a locally-detected invalid tip without waiting for a
// competing branch to overtake it.
func (c *Core) Rewind(targetHeight uint64) error {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	top, ok := c.leaves[0].Top()
	if !ok || targetHeight >= top {
		return nil
	}
	if top-targetHeight > c.params.LeafPruneDepth {
		return fmt.Errorf("chain: rewind depth %d exceeds limit %d", top-targetHeight, c.params.LeafPruneDepth)
	}

	active := c.leaves[0]
	for h := top; h > targetHeight; h-- {
		seg, _, err := active.SegmentContaining(h)
		if err != nil {
			return err
		}
		if _, _, err := seg.PopBlock(); err != nil {
			return err
		}
	}
	return nil
}

// ExportBlocks writes every block from the active chain in [start,
// end] to w in the flat "height size raw " record format.
func (c *Core) ExportBlocks(w interface{ Write([]byte) (int, error) }, start, end uint64) error {
	c.submitMu.Lock()
	active := c.leaves[0]
	c.submitMu.Unlock()

	for h := start; h <= end; h++ {
		tmpl, _, err := active.GetBlockByIndex(h)
		if err != nil {
			return err
		}
		raw := tmpl.Bytes()
		if _, err := fmt.Fprintf(w, "%d %d ", h, len(raw)); err != nil {
			return err
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
		if _, err := w.Write([]byte(" ")); err != nil {
			return err
		}
	}
	return nil
}

// ImportBlock replays one exported raw block through AddBlock. When
// performExpensiveValidation is false it goes through importFastPath
// instead (the blocks are trusted, e.g. a bundled snapshot), which
// skips every consensus check and only places and records the block.
func (c *Core) ImportBlock(raw []byte, performExpensiveValidation bool) (AddResult, error) {
	if performExpensiveValidation {
		return c.AddBlock(raw)
	}
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	return c.importFastPath(raw)
}

// importFastPath is addBlockLocked's decode, duplicate, parent-lookup,
// body-sourcing and placement logic, used only for trusted bulk
// import. It skips the major-version check, all transaction
// validation (ring signatures included), the coinbase reward check and
// the checkpoint and proof-of-work gate; it also removes nothing from
// the pool and publishes no events.
func (c *Core) importFastPath(raw []byte) (AddResult, error) {
	tmpl, err := block.DecodeTemplate(raw)
	if err != nil {
		return 0, stateErr(DeserializationFailed, err)
	}
	hash := tmpl.Hash()
	for _, leaf := range c.leaves {
		if _, err := leaf.GetBlockIndex(hash); err == nil {
			return 0, stateErr(AlreadyExists, nil)
		}
	}
	parentHeight, found := uint64(0), false
	for _, leaf := range c.leaves {
		if h, err := leaf.GetBlockIndex(tmpl.Header.PrevHash); err == nil {
			parentHeight, found = h, true
			break
		}
	}
	if !found {
		return 0, stateErr(RejectedAsOrphaned, nil)
	}
	owningSeg, isTop, err := c.resolveOwner(parentHeight)
	if err != nil {
		return 0, stateErr(RejectedAsOrphaned, err)
	}
	height := parentHeight + 1
	body, err := c.materializeTransactions(owningSeg, tmpl.TxHashes, false)
	if err != nil {
		return 0, stateErr(DeserializationFailed, err)
	}
	alreadyGenerated, _ := owningSeg.GetAlreadyGeneratedCoins(parentHeight)
	medianSize := medianInts(owningSeg.GetLastBlocksSizes(c.params.MedianWindow))
	reward, _ := blockReward(alreadyGenerated, c.params.MoneySupply, c.params.EmissionSpeedFactor, medianSize, len(raw))
	difficulty := owningSeg.GetDifficultyForNextBlock(c.params.DifficultyWindow, c.params.TargetBlockSeconds)
	generatedCoins := alreadyGenerated + reward

	result, _, err := c.place(owningSeg, isTop, height, tmpl, body, len(raw), difficulty, generatedCoins)
	if err != nil {
		return 0, err
	}
	c.persistBlock(height, raw, result == AddedToMain)
	return result, nil
}

// persistBlock stages the accepted block's raw bytes for durability.
// Only main-chain blocks are persisted by height; alternative-branch
// blocks live purely in memory until (if ever) they become active,
// since crash recovery only needs to replay the winning chain.
func (c *Core) persistBlock(height uint64, raw []byte, isMain bool) {
	if c.db == nil || !isMain {
		return
	}
	batch := storage.NewWriteBatch()
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], height)
	batch.InsertBlock(key[:], raw)
	if err := batch.Commit(c.db); err != nil {
		c.log.Error().Err(err).Uint64("height", height).Msg("persist block failed")
	}
}

// validatorFor builds a Validator whose ChainView resolves against
// seg's own lineage at height. Construction is cheap (no expensive
// setup beyond storing fields), so a fresh one is built per call
// rather than trying to keep a single Validator in sync with whichever
// branch is currently being checked.
func (c *Core) validatorFor(seg *Segment, height uint64) *validator.Validator {
	v, err := validator.New(&segmentView{core: c, seg: seg, height: height}, validator.Params{
		MaxParallelVerifications: c.params.MaxParallelVerifications,
		GeneratorCache:           c.params.GeneratorCache,
	})
	if err != nil {
		// Only returned when GeneratorCache is nil, which New already
		// rejected at construction.
		panic(err)
	}
	return v
}

// segmentView adapts one Segment, at one height, to
// validator.ChainView.
type segmentView struct {
	core   *Core
	seg    *Segment
	height uint64
}

func (v *segmentView) OutputsByAmount(amount uint64, globalIndexes []uint64) ([]validator.OutputKey, error) {
	infos, err := v.seg.ExtractKeyOutputKeys(amount, v.height, globalIndexes)
	if err != nil {
		return nil, err
	}
	out := make([]validator.OutputKey, len(infos))
	for i, o := range infos {
		out[i] = validator.OutputKey{PublicKey: o.Key, Commitment: o.Commitment, Unlocked: o.Unlocked}
	}
	return out, nil
}

func (v *segmentView) IsKeyImageSpent(img crypto.Point) bool {
	return v.seg.IsKeyImageSpent(img)
}

func (v *segmentView) MixinRange(uint64) (int, int) {
	return v.core.params.MinMixin, v.core.params.MaxMixin
}

func (v *segmentView) MedianBlockSize(uint64) uint64 {
	return uint64(medianInts(v.seg.GetLastBlocksSizes(v.core.params.MedianWindow)))
}

func (v *segmentView) SignatureScheme(height uint64) tx.SignatureScheme {
	if v.core.fork.BlockMajorFor(height) >= v.core.params.CLSAGForkVersion {
		return tx.SchemeCLSAG
	}
	return tx.SchemeBorromean
}

func (v *segmentView) RangeProofRequired(height uint64) (bool, tx.RangeProofScheme) {
	major := v.core.fork.BlockMajorFor(height)
	switch {
	case major >= v.core.params.BulletproofPlusForkVersion:
		return true, tx.RangeProofBulletproofPlus
	case major >= v.core.params.BulletproofForkVersion:
		return true, tx.RangeProofBulletproof
	default:
		return false, tx.RangeProofNone
	}
}

func (v *segmentView) MinedMoneyUnlockWindow() uint64 {
	return v.core.params.CoinbaseUnlockWindow
}

func (v *segmentView) ReservedCoinbaseBlobSize() uint64 {
	return v.core.params.ReservedCoinbaseBlobSize
}

// medianInts returns the median of a slice of block sizes, 0 for an
// empty window.
func medianInts(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}
	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// blockReward computes the base coinbase emission for the next block
// following the standard CryptoNote curve — (moneySupply minus coins
// already generated) shifted right by the emission speed factor — then
// applies the usual quadratic size penalty once blockSize exceeds the
// trailing median, reaching zero at 2x the median.
func blockReward(alreadyGenerated, moneySupply uint64, emissionSpeedFactor uint, medianSize, blockSize int) (uint64, bool) {
	if alreadyGenerated >= moneySupply {
		return 0, false
	}
	base := (moneySupply - alreadyGenerated) >> emissionSpeedFactor
	if medianSize <= 0 || blockSize <= medianSize {
		return base, false
	}
	if blockSize > 2*medianSize {
		return 0, true
	}
	excess := uint64(blockSize - medianSize)
	median := uint64(medianSize)
	penalty := base * excess * excess / (median * median)
	if penalty >= base {
		return 0, true
	}
	return base - penalty, true
}

// hashMeetsTarget reports whether h, read as a little-endian 256-bit
// integer, satisfies the standard CryptoNote proof-of-work check:
// hash * difficulty < 2^256.
func hashMeetsTarget(h [32]byte, difficulty uint64) bool {
	if difficulty == 0 {
		difficulty = 1
	}
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = h[31-i]
	}
	hv := new(big.Int).SetBytes(be)
	hv.Mul(hv, new(big.Int).SetUint64(difficulty))
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return hv.Cmp(max) < 0
}
