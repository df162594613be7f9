package mempool

import (
	"github.com/Klingon-tech/klingnet-chain/internal/validator"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// FillTemplate greedily assembles a block body from the pool: the
// fee-sorted list first, then the fusion-sorted list, skipping any
// candidate that would push the body past the 125%-of-median size cap
// (or maxCumulative, when that is smaller) and trying the next one.
// Candidates are skipped (and evicted) if they fail C10 Revalidate at
// the template-build height, or if they'd spend a key image another
// already-selected candidate in this same template spends.
func (p *Pool) FillTemplate(v *validator.Validator, height uint64, medianSize int, maxCumulative int) []*tx.Transaction {
	sizeCap := medianSize + medianSize/4 // 125% of median
	if maxCumulative > 0 && maxCumulative < sizeCap {
		sizeCap = maxCumulative
	}

	selected := make([]*tx.Transaction, 0)
	used := make(map[[crypto.PointSize]byte]bool)
	cumSize := 0
	var evicted []types.Hash

	candidates := append(p.FeeSorted(), p.FusionSorted()...)
	for _, t := range candidates {
		size := len(t.Bytes())
		if sizeCap > 0 && cumSize+size > sizeCap {
			continue
		}

		conflict := false
		for _, img := range keyImagesOf(t) {
			if used[img] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		if err := v.Revalidate(t, height, cumSize+size); err != nil {
			evicted = append(evicted, t.Hash())
			continue
		}

		for _, img := range keyImagesOf(t) {
			used[img] = true
		}
		selected = append(selected, t)
		cumSize += size
	}

	if len(evicted) > 0 {
		p.removeNotActual(evicted)
	}
	return selected
}
