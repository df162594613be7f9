package mempool

import "sort"

// EvictOverCapacity removes the lowest fee-rate non-fusion entries
// until total pooled bytes is at or below MaxPoolBytes. Fusion
// transactions (no fee to rank by) are only evicted by EvictOutdated,
// since they exist to consolidate dust rather than compete for space
// by fee.
func (p *Pool) EvictOverCapacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.params.MaxPoolBytes <= 0 || p.totalBytes <= p.params.MaxPoolBytes {
		return 0
	}

	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		if !e.fusion {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].feeRate < entries[j].feeRate
	})

	evicted := 0
	for _, e := range entries {
		if p.totalBytes <= p.params.MaxPoolBytes {
			break
		}
		p.removeLocked(e.txHash, Outdated)
		evicted++
	}
	return evicted
}
