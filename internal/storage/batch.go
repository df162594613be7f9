package storage

// WriteBatch accumulates a set of key/value writes and deletes so a
// segment push or pop can be staged together and applied with one
// Commit call. Commit issues one Put or Delete per key and is not
// atomic. Methods return the batch itself so calls chain.
type WriteBatch struct {
	puts    map[string][]byte
	deletes map[string]struct{}
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{
		puts:    make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (b *WriteBatch) put(key, value []byte) {
	k := string(key)
	delete(b.deletes, k)
	b.puts[k] = value
}

func (b *WriteBatch) remove(key []byte) {
	k := string(key)
	delete(b.puts, k)
	b.deletes[k] = struct{}{}
}

// InsertKeyImage stages a spent key image.
func (b *WriteBatch) InsertKeyImage(key, value []byte) *WriteBatch {
	b.put(key, value)
	return b
}

// RemoveKeyImage unstages a spent key image (used when a block is
// rewound).
func (b *WriteBatch) RemoveKeyImage(key []byte) *WriteBatch {
	b.remove(key)
	return b
}

// InsertCachedTransaction stages a decoded transaction keyed by hash.
func (b *WriteBatch) InsertCachedTransaction(key, value []byte) *WriteBatch {
	b.put(key, value)
	return b
}

// RemoveCachedTransaction unstages a cached transaction.
func (b *WriteBatch) RemoveCachedTransaction(key []byte) *WriteBatch {
	b.remove(key)
	return b
}

// InsertPaymentID stages a payment-id to transaction-hash reverse
// mapping entry.
func (b *WriteBatch) InsertPaymentID(key, value []byte) *WriteBatch {
	b.put(key, value)
	return b
}

// RemovePaymentID unstages a payment-id reverse mapping entry.
func (b *WriteBatch) RemovePaymentID(key []byte) *WriteBatch {
	b.remove(key)
	return b
}

// InsertBlock stages a raw block keyed by height or hash.
func (b *WriteBatch) InsertBlock(key, value []byte) *WriteBatch {
	b.put(key, value)
	return b
}

// RemoveBlock unstages a raw block entry.
func (b *WriteBatch) RemoveBlock(key []byte) *WriteBatch {
	b.remove(key)
	return b
}

// InsertGlobalIndex stages a per-amount global output index entry.
func (b *WriteBatch) InsertGlobalIndex(key, value []byte) *WriteBatch {
	b.put(key, value)
	return b
}

// RemoveGlobalIndex unstages a per-amount global output index entry.
func (b *WriteBatch) RemoveGlobalIndex(key []byte) *WriteBatch {
	b.remove(key)
	return b
}

// InsertTimestamp stages a timestamp-to-block-hashes reverse mapping
// entry.
func (b *WriteBatch) InsertTimestamp(key, value []byte) *WriteBatch {
	b.put(key, value)
	return b
}

// RemoveTimestamp unstages a timestamp reverse mapping entry.
func (b *WriteBatch) RemoveTimestamp(key []byte) *WriteBatch {
	b.remove(key)
	return b
}

// Commit applies every staged put and delete to db. Staging a put
// drops any delete staged for the same key and vice versa, so each key
// receives only its most recently staged operation. Commit stops at
// the first error, leaving earlier writes applied.
func (b *WriteBatch) Commit(db DB) error {
	for k, v := range b.puts {
		if err := db.Put([]byte(k), v); err != nil {
			return err
		}
	}
	for k := range b.deletes {
		if err := db.Delete([]byte(k)); err != nil {
			return err
		}
	}
	return nil
}
