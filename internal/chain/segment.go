package chain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// ErrKeyImageAlreadySpent is returned by PushBlock when a transaction
// spends a key image already spent anywhere in the segment's
// ancestor lineage.
var ErrKeyImageAlreadySpent = errors.New("chain: key image already spent")

// ErrDuplicateBlockHash is returned by PushBlock when the block's
// hash already exists somewhere in the segment's lineage.
var ErrDuplicateBlockHash = errors.New("chain: duplicate block hash")

// ErrHeightNotFound is returned by getters when a requested height or
// hash is outside everything this segment (and its ancestors) knows
// about.
var ErrHeightNotFound = errors.New("chain: height not found in segment")

// outputEntry is one key output registered against its amount.
type outputEntry struct {
	GlobalIndex  uint64
	TxHash       types.Hash
	LocalIndex   uint32
	Key          crypto.Point
	Commitment   crypto.Point
	UnlockHeight uint64
}

// cachedBlock is one block materialized and indexed inside a segment.
type cachedBlock struct {
	Hash                 types.Hash
	Height               uint64
	Timestamp            uint64
	Size                 int
	CumulativeDifficulty uint64
	GeneratedCoins       uint64
	Raw                  []byte
	Transactions         []*tx.Transaction // base transaction first, then body in order
	TxHashes             []types.Hash
}

// Segment is a contiguous run of blocks sharing a parent segment,
// together with the indexes (per-amount output table, spent key
// images, payment-id and timestamp reverse maps) that the validator
// and RPC layer query against. A chain is a tree of segments: the
// active chain is the path from genesis through the segment whose
// cumulative difficulty is highest among all leaves.
type Segment struct {
	mu sync.RWMutex

	parent   *Segment
	children []*Segment

	startHeight uint64
	blocks      []*cachedBlock

	hashToHeight map[types.Hash]uint64
	txIndex      map[types.Hash]uint64 // tx hash -> height containing it
	outputsByAmt map[uint64][]outputEntry
	spentImages  map[[crypto.PointSize]byte]uint64 // key image -> height it was spent at
	paymentIndex map[types.Hash][]types.Hash        // payment id -> tx hashes

	// coinbaseUnlockWindow is the number of blocks a coinbase output
	// stays locked for; threaded in at construction since it is a
	// network-wide consensus constant, not per-segment state.
	coinbaseUnlockWindow uint64
}

// NewRootSegment creates the segment anchored at genesis (startHeight
// 0, no parent).
func NewRootSegment(coinbaseUnlockWindow uint64) *Segment {
	return newSegment(nil, 0, coinbaseUnlockWindow)
}

func newSegment(parent *Segment, startHeight uint64, coinbaseUnlockWindow uint64) *Segment {
	return &Segment{
		parent:               parent,
		startHeight:          startHeight,
		hashToHeight:         make(map[types.Hash]uint64),
		txIndex:              make(map[types.Hash]uint64),
		outputsByAmt:         make(map[uint64][]outputEntry),
		spentImages:          make(map[[crypto.PointSize]byte]uint64),
		paymentIndex:         make(map[types.Hash][]types.Hash),
		coinbaseUnlockWindow: coinbaseUnlockWindow,
	}
}

// Top returns the height of the most recently pushed block in this
// segment. It returns 0 and false if the segment holds no blocks of
// its own.
func (s *Segment) Top() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return 0, false
	}
	return s.blocks[len(s.blocks)-1].Height, true
}

// StartHeight returns the height of this segment's first block.
func (s *Segment) StartHeight() uint64 {
	return s.startHeight
}

// PushBlock appends a block to the top of this segment, indexing its
// transactions. The caller (C12 core) is responsible for having
// already run consensus and C10 validation; PushBlock only maintains
// cache invariants and refuses a duplicate hash or an already-spent
// key image.
func (s *Segment) PushBlock(tmpl *block.Template, body []*tx.Transaction, rawSize int, cumulativeDifficulty, generatedCoins uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := tmpl.Hash()
	if _, ok := s.resolveHashLocked(hash); ok {
		return ErrDuplicateBlockHash
	}

	height := s.startHeight + uint64(len(s.blocks))
	all := make([]*tx.Transaction, 0, len(body)+1)
	all = append(all, tmpl.BaseTransaction)
	all = append(all, body...)

	// Pre-flight: no key image anywhere in this block may already be
	// spent in the lineage, and none may repeat within the block.
	seen := make(map[[crypto.PointSize]byte]struct{})
	for _, t := range all {
		for _, in := range t.Prefix.Inputs {
			if in.Key == nil {
				continue
			}
			b := in.Key.KeyImage.Bytes()
			if _, dup := seen[b]; dup {
				return fmt.Errorf("%w: duplicate within block", ErrKeyImageAlreadySpent)
			}
			if s.isKeyImageSpentLocked(in.Key.KeyImage) {
				return ErrKeyImageAlreadySpent
			}
			seen[b] = struct{}{}
		}
	}

	txHashes := make([]types.Hash, 0, len(all))
	for _, t := range all {
		txHash := t.Hash()
		txHashes = append(txHashes, txHash)
		s.txIndex[txHash] = height

		for _, in := range t.Prefix.Inputs {
			if in.Key != nil {
				s.spentImages[in.Key.KeyImage.Bytes()] = height
			}
		}

		unlockHeight := height
		if t.IsCoinbase() {
			unlockHeight = height + s.coinbaseUnlockWindow
		} else if t.Prefix.UnlockTime > height {
			unlockHeight = t.Prefix.UnlockTime
		}

		var commitments []crypto.Point
		if len(t.OutputCommitments) == len(t.Prefix.Outputs) {
			commitments = t.OutputCommitments
		}
		for idx, out := range t.Prefix.Outputs {
			entry := outputEntry{
				GlobalIndex:  s.totalOutputCountLocked(out.Amount),
				TxHash:       txHash,
				LocalIndex:   uint32(idx),
				Key:          out.Target,
				UnlockHeight: unlockHeight,
			}
			if commitments != nil {
				entry.Commitment = commitments[idx]
			}
			s.outputsByAmt[out.Amount] = append(s.outputsByAmt[out.Amount], entry)
		}

		if pid, ok := extractPaymentID(t.Prefix.Extra); ok {
			s.paymentIndex[pid] = append(s.paymentIndex[pid], txHash)
		}
	}

	raw := tmpl.Bytes()
	cb := &cachedBlock{
		Hash:                 hash,
		Height:               height,
		Timestamp:            tmpl.Header.Timestamp,
		Size:                 rawSize,
		CumulativeDifficulty: cumulativeDifficulty,
		GeneratedCoins:       generatedCoins,
		Raw:                  raw,
		Transactions:         all,
		TxHashes:             txHashes,
	}
	s.blocks = append(s.blocks, cb)
	s.hashToHeight[hash] = height
	return nil
}

// Split removes blocks [atHeight, top] from s, returning them as a
// new child segment whose parent is s. Indexes that span the split
// point are rebuilt for the upper part only; s's own history below
// atHeight is untouched.
func (s *Segment) Split(atHeight uint64) (*Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if atHeight < s.startHeight || atHeight >= s.startHeight+uint64(len(s.blocks)) {
		return nil, ErrHeightNotFound
	}
	cut := int(atHeight - s.startHeight)

	child := newSegment(s, atHeight, s.coinbaseUnlockWindow)
	child.blocks = append(child.blocks, s.blocks[cut:]...)
	s.blocks = s.blocks[:cut]

	for _, cb := range child.blocks {
		child.hashToHeight[cb.Hash] = cb.Height
		delete(s.hashToHeight, cb.Hash)
		for _, t := range cb.Transactions {
			txHash := t.Hash()
			child.txIndex[txHash] = cb.Height
			delete(s.txIndex, txHash)
			for _, in := range t.Prefix.Inputs {
				if in.Key != nil {
					b := in.Key.KeyImage.Bytes()
					child.spentImages[b] = cb.Height
					delete(s.spentImages, b)
				}
			}
			if pid, ok := extractPaymentID(t.Prefix.Extra); ok {
				child.paymentIndex[pid] = append(child.paymentIndex[pid], txHash)
				list := s.paymentIndex[pid]
				for i, h := range list {
					if h == txHash {
						s.paymentIndex[pid] = append(list[:i], list[i+1:]...)
						break
					}
				}
			}
		}
	}

	// Per-amount output entries are rebuilt by checking which moved
	// transaction produced each entry: global indexes are assigned
	// monotonically, so the first entry whose tx hash now lives in
	// child is the split boundary for that amount.
	moved := make(map[uint64]struct{})
	for _, cb := range child.blocks {
		for _, t := range cb.Transactions {
			for _, out := range t.Prefix.Outputs {
				moved[out.Amount] = struct{}{}
			}
		}
	}
	for amount := range moved {
		entries := s.outputsByAmt[amount]
		splitAt := len(entries)
		for i, e := range entries {
			if _, isChildTx := child.txIndex[e.TxHash]; isChildTx {
				splitAt = i
				break
			}
		}
		child.outputsByAmt[amount] = append(child.outputsByAmt[amount], entries[splitAt:]...)
		s.outputsByAmt[amount] = entries[:splitAt]
	}

	s.children = append(s.children, child)
	return child, nil
}

// SegmentContaining locates the segment (s or an ancestor) whose own
// block range covers height h, and reports whether h is currently
// that segment's own top block — i.e. nothing has been pushed past it
// there yet, so PushBlock may extend it directly rather than forking
// via Split.
func (s *Segment) SegmentContaining(h uint64) (*Segment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, idx, ok := s.resolveHeightLocked(h)
	if !ok {
		return nil, false, ErrHeightNotFound
	}
	return seg, idx == len(seg.blocks)-1, nil
}

// TopCumulativeDifficulty returns the cumulative difficulty recorded
// for this segment's own most recently pushed block, or 0 if empty.
func (s *Segment) TopCumulativeDifficulty() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return 0
	}
	return s.blocks[len(s.blocks)-1].CumulativeDifficulty
}

// NewChildSegment creates an empty child of s starting at atHeight, for
// a block that forks from a point s has not itself been split at yet
// (the caller is responsible for having already moved any existing
// continuation out via Split first).
func (s *Segment) NewChildSegment(atHeight uint64) *Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	child := newSegment(s, atHeight, s.coinbaseUnlockWindow)
	s.children = append(s.children, child)
	return child
}

// PopBlock removes the most recently pushed block from this segment,
// rolling back every index PushBlock built for it. It only pops within
// this segment's own blocks; walking back into a parent segment once
// this one is empty is the caller's responsibility.
func (s *Segment) PopBlock() (*block.Template, []*tx.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.blocks) == 0 {
		return nil, nil, ErrHeightNotFound
	}
	cb := s.blocks[len(s.blocks)-1]
	s.blocks = s.blocks[:len(s.blocks)-1]
	delete(s.hashToHeight, cb.Hash)

	for ti := len(cb.Transactions) - 1; ti >= 0; ti-- {
		t := cb.Transactions[ti]
		txHash := t.Hash()

		for oi := len(t.Prefix.Outputs) - 1; oi >= 0; oi-- {
			amount := t.Prefix.Outputs[oi].Amount
			entries := s.outputsByAmt[amount]
			if n := len(entries); n > 0 {
				s.outputsByAmt[amount] = entries[:n-1]
			}
		}

		delete(s.txIndex, txHash)
		for _, in := range t.Prefix.Inputs {
			if in.Key != nil {
				delete(s.spentImages, in.Key.KeyImage.Bytes())
			}
		}
		if pid, ok := extractPaymentID(t.Prefix.Extra); ok {
			list := s.paymentIndex[pid]
			for i, h := range list {
				if h == txHash {
					s.paymentIndex[pid] = append(list[:i], list[i+1:]...)
					break
				}
			}
		}
	}

	tmpl, err := block.DecodeTemplate(cb.Raw)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, cb.Transactions, nil
}

// DeleteChild detaches child from s's child list, for pruning a
// losing alternative branch once it falls far enough behind.
func (s *Segment) DeleteChild(child *Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

func (s *Segment) resolveHashLocked(hash types.Hash) (uint64, bool) {
	if h, ok := s.hashToHeight[hash]; ok {
		return h, true
	}
	if s.parent != nil {
		return s.parent.resolveHashLocked(hash)
	}
	return 0, false
}

func (s *Segment) isKeyImageSpentLocked(img crypto.Point) bool {
	if _, ok := s.spentImages[img.Bytes()]; ok {
		return true
	}
	if s.parent != nil {
		return s.parent.isKeyImageSpentLocked(img)
	}
	return false
}

// IsKeyImageSpent reports whether img has been spent anywhere in this
// segment's lineage.
func (s *Segment) IsKeyImageSpent(img crypto.Point) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isKeyImageSpentLocked(img)
}

func (s *Segment) totalOutputCountLocked(amount uint64) uint64 {
	count := uint64(len(s.outputsByAmt[amount]))
	if s.parent != nil {
		count += s.parent.totalOutputCountLocked(amount)
	}
	return count
}

// resolveHeightLocked walks the lineage to find the segment and
// local block index covering height h.
func (s *Segment) resolveHeightLocked(h uint64) (*Segment, int, bool) {
	if h >= s.startHeight && h < s.startHeight+uint64(len(s.blocks)) {
		return s, int(h - s.startHeight), true
	}
	if s.parent != nil {
		return s.parent.resolveHeightLocked(h)
	}
	return nil, 0, false
}

// GetBlockByIndex returns the cached block at height h.
func (s *Segment) GetBlockByIndex(h uint64) (*block.Template, []*tx.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, idx, ok := s.resolveHeightLocked(h)
	if !ok {
		return nil, nil, ErrHeightNotFound
	}
	cb := seg.blocks[idx]
	tmpl, err := block.DecodeTemplate(cb.Raw)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, cb.Transactions, nil
}

// GetBlockHash returns the block hash at height h.
func (s *Segment) GetBlockHash(h uint64) (types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, idx, ok := s.resolveHeightLocked(h)
	if !ok {
		return types.Hash{}, ErrHeightNotFound
	}
	return seg.blocks[idx].Hash, nil
}

// GetBlockIndex returns the height of the block with the given hash.
func (s *Segment) GetBlockIndex(hash types.Hash) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveHashLocked(hash)
	if !ok {
		return 0, ErrHeightNotFound
	}
	return h, nil
}

// HasTransaction reports whether txHash is cached anywhere in this
// segment's lineage.
func (s *Segment) HasTransaction(txHash types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasTransactionLocked(txHash)
}

func (s *Segment) hasTransactionLocked(txHash types.Hash) bool {
	if _, ok := s.txIndex[txHash]; ok {
		return true
	}
	if s.parent != nil {
		return s.parent.hasTransactionLocked(txHash)
	}
	return false
}

// GetRawTransactions returns the cached transactions for the given
// hashes, in the same order. It returns an error if any hash is not
// cached in this segment's lineage.
func (s *Segment) GetRawTransactions(hashes []types.Hash) ([]*tx.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*tx.Transaction, len(hashes))
	for i, h := range hashes {
		t, err := s.findTransactionLocked(h)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (s *Segment) findTransactionLocked(txHash types.Hash) (*tx.Transaction, error) {
	height, ok := s.txIndex[txHash]
	if !ok {
		if s.parent != nil {
			return s.parent.findTransactionLocked(txHash)
		}
		return nil, fmt.Errorf("chain: transaction %x not cached", txHash)
	}
	seg, idx, ok := s.resolveHeightLocked(height)
	if !ok {
		return nil, ErrHeightNotFound
	}
	for _, t := range seg.blocks[idx].Transactions {
		if t.Hash() == txHash {
			return t, nil
		}
	}
	return nil, fmt.Errorf("chain: transaction %x missing from its own block", txHash)
}

// GetTransactionGlobalIndexes returns the global output index
// assigned to each output of txHash, across all amounts the
// transaction touches.
func (s *Segment) GetTransactionGlobalIndexes(txHash types.Hash) ([]uint64, error) {
	t, err := func() (*tx.Transaction, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.findTransactionLocked(txHash)
	}()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, 0, len(t.Prefix.Outputs))
	for i, o := range t.Prefix.Outputs {
		idx, ok := s.findOutputGlobalIndexLocked(o.Amount, txHash, uint32(i))
		if !ok {
			return nil, fmt.Errorf("chain: output index not found for tx %x amount %d", txHash, o.Amount)
		}
		out = append(out, idx)
	}
	return out, nil
}

func (s *Segment) findOutputGlobalIndexLocked(amount uint64, txHash types.Hash, local uint32) (uint64, bool) {
	for _, e := range s.outputsByAmt[amount] {
		if e.TxHash == txHash && e.LocalIndex == local {
			return e.GlobalIndex, true
		}
	}
	if s.parent != nil {
		return s.parent.findOutputGlobalIndexLocked(amount, txHash, local)
	}
	return 0, false
}

// OutputInfo is one key output resolved by global index, enriched
// with whether it is spendable at the context height the query was
// made for.
type OutputInfo struct {
	Key        crypto.Point
	Commitment crypto.Point
	Unlocked   bool
}

// ExtractKeyOutputKeys resolves indexes (global output indexes for
// amount) to their public keys and, where present, Pedersen
// commitments, marking each Unlocked relative to contextHeight.
func (s *Segment) ExtractKeyOutputKeys(amount uint64, contextHeight uint64, indexes []uint64) ([]OutputInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byIndex := make(map[uint64]outputEntry)
	s.collectByGlobalIndexLocked(amount, byIndex)

	out := make([]OutputInfo, 0, len(indexes))
	for _, idx := range indexes {
		e, ok := byIndex[idx]
		if !ok {
			return nil, fmt.Errorf("chain: global output index %d not found for amount %d", idx, amount)
		}
		out = append(out, OutputInfo{
			Key:        e.Key,
			Commitment: e.Commitment,
			Unlocked:   e.UnlockHeight <= contextHeight,
		})
	}
	return out, nil
}

func (s *Segment) collectByGlobalIndexLocked(amount uint64, into map[uint64]outputEntry) {
	if s.parent != nil {
		s.parent.collectByGlobalIndexLocked(amount, into)
	}
	for _, e := range s.outputsByAmt[amount] {
		into[e.GlobalIndex] = e
	}
}

// GetRandomOutsByAmount picks up to count distinct global output
// indexes for amount, bounded by upperBound (exclusive), for use as
// ring decoys. Selection is not a security-sensitive secret in
// CryptoNote's threat model (decoys are public once the ring is
// published) so math/rand/v2 is sufficient.
func (s *Segment) GetRandomOutsByAmount(amount uint64, count int, upperBound uint64) ([]uint64, error) {
	s.mu.RLock()
	total := s.totalOutputCountLocked(amount)
	s.mu.RUnlock()

	bound := total
	if upperBound < bound {
		bound = upperBound
	}
	if bound == 0 {
		return nil, fmt.Errorf("chain: no outputs available for amount %d", amount)
	}
	if uint64(count) > bound {
		count = int(bound)
	}

	picked := make(map[uint64]struct{}, count)
	out := make([]uint64, 0, count)
	for len(out) < count {
		idx := rand.N(bound)
		if _, dup := picked[idx]; dup {
			continue
		}
		picked[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// GetLastTimestamps returns up to n timestamps, most recent last, for
// the blocks at the top of this segment's lineage.
func (s *Segment) GetLastTimestamps(n int) []uint64 {
	return s.windowUint64(n, func(cb *cachedBlock) uint64 { return cb.Timestamp })
}

// GetLastBlocksSizes returns up to n block sizes, most recent last.
func (s *Segment) GetLastBlocksSizes(n int) []int {
	vals := s.windowUint64(n, func(cb *cachedBlock) uint64 { return uint64(cb.Size) })
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out
}

// GetLastCumulativeDifficulties returns up to n cumulative
// difficulties, most recent last.
func (s *Segment) GetLastCumulativeDifficulties(n int) []uint64 {
	return s.windowUint64(n, func(cb *cachedBlock) uint64 { return cb.CumulativeDifficulty })
}

func (s *Segment) windowUint64(n int, pick func(*cachedBlock) uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top, ok := s.topLocked()
	if !ok || n <= 0 {
		return nil
	}
	out := make([]uint64, 0, n)
	for h := top; len(out) < n; {
		seg, idx, ok := s.resolveHeightLocked(h)
		if !ok {
			break
		}
		out = append(out, pick(seg.blocks[idx]))
		if h == 0 {
			break
		}
		h--
	}
	// out was built newest-first; reverse so the most recent value is last.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (s *Segment) topLocked() (uint64, bool) {
	if len(s.blocks) == 0 {
		if s.parent != nil {
			return s.parent.topLocked()
		}
		return 0, false
	}
	return s.blocks[len(s.blocks)-1].Height, true
}

// GetAlreadyGeneratedCoins returns the total coins minted up to and
// including height h.
func (s *Segment) GetAlreadyGeneratedCoins(h uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, idx, ok := s.resolveHeightLocked(h)
	if !ok {
		return 0, ErrHeightNotFound
	}
	return seg.blocks[idx].GeneratedCoins, nil
}

// GetDifficultyForNextBlock estimates the PoW target for the block
// that would extend this segment's top, from the last window
// timestamps and cumulative difficulties: total work over the window
// divided by actual elapsed time, scaled to the target block time.
func (s *Segment) GetDifficultyForNextBlock(window int, targetSeconds uint64) uint64 {
	timestamps := s.GetLastTimestamps(window + 1)
	cumDiffs := s.GetLastCumulativeDifficulties(window + 1)
	if len(timestamps) < 2 || len(cumDiffs) < 2 {
		return 1
	}

	totalWork := cumDiffs[len(cumDiffs)-1] - cumDiffs[0]
	elapsed := timestamps[len(timestamps)-1] - timestamps[0]
	if elapsed == 0 {
		elapsed = 1
	}
	next := totalWork * targetSeconds / elapsed
	if next == 0 {
		next = 1
	}
	return next
}

// GetBlockHeightForTimestamp returns the height of the last block
// whose timestamp is ≤ ts, by scanning from the top of the lineage.
func (s *Segment) GetBlockHeightForTimestamp(ts uint64) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top, ok := s.topLocked()
	if !ok {
		return 0, false
	}
	for h := top; ; h-- {
		seg, idx, ok := s.resolveHeightLocked(h)
		if !ok {
			return 0, false
		}
		if seg.blocks[idx].Timestamp <= ts {
			return h, true
		}
		if h == 0 {
			return 0, false
		}
	}
}

// GetNonEmptyBlocks returns up to count heights, starting at start,
// whose block carries at least one non-coinbase transaction.
func (s *Segment) GetNonEmptyBlocks(start uint64, count int) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top, ok := s.topLocked()
	if !ok {
		return nil
	}
	var out []uint64
	for h := start; h <= top && len(out) < count; h++ {
		seg, idx, ok := s.resolveHeightLocked(h)
		if !ok {
			continue
		}
		if len(seg.blocks[idx].Transactions) > 1 {
			out = append(out, h)
		}
	}
	return out
}

// GetBlocksByHeight returns the block hashes for heights [start, end].
func (s *Segment) GetBlocksByHeight(start, end uint64) ([]types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if end < start {
		return nil, nil
	}
	out := make([]types.Hash, 0, end-start+1)
	for h := start; h <= end; h++ {
		seg, idx, ok := s.resolveHeightLocked(h)
		if !ok {
			return nil, ErrHeightNotFound
		}
		out = append(out, seg.blocks[idx].Hash)
	}
	return out, nil
}

// GetBlockHashesByTimestamps returns the hashes of blocks whose
// timestamp falls in [ts, ts+secs].
func (s *Segment) GetBlockHashesByTimestamps(ts, secs uint64) []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top, ok := s.topLocked()
	if !ok {
		return nil
	}
	var out []types.Hash
	for h := uint64(0); h <= top; h++ {
		seg, idx, ok := s.resolveHeightLocked(h)
		if !ok {
			continue
		}
		t := seg.blocks[idx].Timestamp
		if t >= ts && t <= ts+secs {
			out = append(out, seg.blocks[idx].Hash)
		}
	}
	return out
}

// GetTransactionHashesByPaymentId returns every cached transaction
// hash tagged with the given payment id.
func (s *Segment) GetTransactionHashesByPaymentId(pid types.Hash) []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Hash
	if s.parent != nil {
		out = append(out, s.parent.GetTransactionHashesByPaymentId(pid)...)
	}
	out = append(out, s.paymentIndex[pid]...)
	return out
}

// extractPaymentID looks for a CryptoNote-style extra-nonce payment
// id tag (0x02 nonce tag, inner 0x00 payment-id sub-tag, 32 raw
// bytes) inside a transaction's opaque extra blob.
func extractPaymentID(extra []byte) (types.Hash, bool) {
	const nonceTag, paymentIDSubTag = 0x02, 0x00
	for i := 0; i < len(extra); {
		tag := extra[i]
		i++
		switch tag {
		case nonceTag:
			if i >= len(extra) {
				return types.Hash{}, false
			}
			length := int(extra[i])
			i++
			if i+length > len(extra) {
				return types.Hash{}, false
			}
			nonce := extra[i : i+length]
			i += length
			if length == 1+types.HashSize && nonce[0] == paymentIDSubTag {
				var h types.Hash
				copy(h[:], nonce[1:])
				return h, true
			}
		default:
			// Unknown tag: no declared length convention for other
			// tags in this simplified extra format, so stop scanning
			// rather than risk misreading the remaining bytes.
			return types.Hash{}, false
		}
	}
	return types.Hash{}, false
}
