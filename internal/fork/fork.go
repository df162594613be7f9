// Package fork maps block height to the consensus-rule major version
// in effect at that height, gating every height-dependent behavior
// elsewhere in the node (ring-signature scheme, range-proof scheme,
// coinbase signature-count rule).
package fork

import (
	"errors"
	"sort"
)

// ErrEmptyTable is returned when a Manager is built with no entries.
var ErrEmptyTable = errors.New("fork: table must have at least one entry")

// ErrNotSorted is returned when table entries are not strictly
// increasing in both version and height.
var ErrNotSorted = errors.New("fork: table entries must be strictly increasing in version and height")

// entry pairs a major version with the height it activates at.
type entry struct {
	version uint32
	height  uint64
}

// Manager holds a sorted (major_version, height) activation table.
type Manager struct {
	table []entry
}

// New builds a Manager from version/height pairs. versions and
// heights must be the same length, strictly increasing, and include
// an entry for height 0 (genesis's version).
func New(versions []uint32, heights []uint64) (*Manager, error) {
	if len(versions) == 0 || len(versions) != len(heights) {
		return nil, ErrEmptyTable
	}
	table := make([]entry, len(versions))
	for i := range versions {
		table[i] = entry{version: versions[i], height: heights[i]}
	}
	if !sort.SliceIsSorted(table, func(i, j int) bool { return table[i].height < table[j].height }) {
		return nil, ErrNotSorted
	}
	for i := 1; i < len(table); i++ {
		if table[i].version <= table[i-1].version || table[i].height <= table[i-1].height {
			return nil, ErrNotSorted
		}
	}
	return &Manager{table: table}, nil
}

// BlockMajorFor returns the highest version whose activation height
// is <= h.
func (m *Manager) BlockMajorFor(h uint64) uint32 {
	idx := sort.Search(len(m.table), func(i int) bool { return m.table[i].height > h })
	if idx == 0 {
		return m.table[0].version
	}
	return m.table[idx-1].version
}

// VotingHeightFor returns the activation height of the given major
// version, and whether that version exists in the table.
func (m *Manager) VotingHeightFor(version uint32) (uint64, bool) {
	for _, e := range m.table {
		if e.version == version {
			return e.height, true
		}
	}
	return 0, false
}
