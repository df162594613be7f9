// Package checkpoints implements a fixed-height hash gate: blocks at
// a checkpointed height must match the recorded hash exactly, and
// checkpointed ranges bypass proof-of-work but never shape
// validation.
package checkpoints

import (
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto/signature"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// ErrSignatureInvalid is returned when a checkpoint manifest's
// signature does not verify against the configured signing key.
var ErrSignatureInvalid = errors.New("checkpoints: manifest signature invalid")

// Entry is one height/hash pair in a checkpoint manifest.
type Entry struct {
	Height uint64     `json:"height"`
	Hash   types.Hash `json:"hash"`
}

// Table is an immutable height -> hash map loaded at startup.
type Table struct {
	byHeight map[uint64]types.Hash
	maxHeight uint64
}

// New builds a Table from a list of entries.
func New(entries []Entry) *Table {
	t := &Table{byHeight: make(map[uint64]types.Hash, len(entries))}
	for _, e := range entries {
		t.byHeight[e.Height] = e.Hash
		if e.Height > t.maxHeight {
			t.maxHeight = e.Height
		}
	}
	return t
}

// CheckBlock reports whether h is outside the table or the stored
// hash at h matches. It never rejects a height the table has no
// opinion about.
func (t *Table) CheckBlock(height uint64, hash types.Hash) bool {
	want, ok := t.byHeight[height]
	if !ok {
		return true
	}
	return want == hash
}

// IsCheckpointed reports whether the table pins a hash at exactly
// height. The chain manager's proof-of-work bypass covers every
// height up to MaxHeight, pinned or not.
func (t *Table) IsCheckpointed(height uint64) bool {
	_, ok := t.byHeight[height]
	return ok
}

// MaxHeight returns the highest checkpointed height, or 0 for an
// empty table.
func (t *Table) MaxHeight() uint64 {
	return t.maxHeight
}

// Manifest is a signed checkpoint list as distributed out of band
// (bundled with a release, fetched from a well-known URL): the entry
// list plus a single-key signature over its canonical encoding, so a
// node can refresh its checkpoint table without trusting the
// transport it arrived over.
type Manifest struct {
	Entries   []Entry             `json:"entries"`
	Signature signature.Signature `json:"signature"`
}

// Verify checks the manifest's signature against signer and, on
// success, returns the Table it describes.
func Verify(m Manifest, signer crypto.Point) (*Table, error) {
	msg := encodeEntries(m.Entries)
	if !signature.Verify(msg, signer, m.Signature) {
		return nil, ErrSignatureInvalid
	}
	return New(m.Entries), nil
}

// encodeEntries serializes entries into the byte string the manifest
// signature is computed over: each entry as an 8-byte big-endian
// height followed by its 32-byte hash, in table order.
func encodeEntries(entries []Entry) []byte {
	buf := make([]byte, 0, len(entries)*(8+types.HashSize))
	for _, e := range entries {
		var h [8]byte
		for i := 0; i < 8; i++ {
			h[7-i] = byte(e.Height >> (8 * i))
		}
		buf = append(buf, h[:]...)
		buf = append(buf, e.Hash[:]...)
	}
	return buf
}
