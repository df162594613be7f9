// Package block defines the block template wire type: a header, an
// optional merge-mining parent-block blob, a base (coinbase)
// transaction, and the ordered list of body transaction hashes.
package block

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// ErrDuplicateTransactionHash is returned when a template's body
// transaction-hash list contains the same hash twice.
var ErrDuplicateTransactionHash = errors.New("block: duplicate transaction hash in template")

// ErrTruncated is returned when a wire-format buffer ends before a
// field it promised to carry.
var ErrTruncated = errors.New("block: truncated block encoding")

// Template is a candidate or accepted block: its header, an optional
// merge-mining parent-block blob (opaque to this package beyond what
// affects hashing), the base transaction, and the ordered list of
// body transaction hashes.
type Template struct {
	Header          Header
	ParentBlob      []byte
	BaseTransaction *tx.Transaction
	TxHashes        []types.Hash
}

// NewTemplate constructs a Template, validating that the transaction
// hash list has no duplicates.
func NewTemplate(header Header, parentBlob []byte, base *tx.Transaction, txHashes []types.Hash) (*Template, error) {
	seen := make(map[types.Hash]struct{}, len(txHashes))
	for _, h := range txHashes {
		if _, ok := seen[h]; ok {
			return nil, ErrDuplicateTransactionHash
		}
		seen[h] = struct{}{}
	}
	return &Template{Header: header, ParentBlob: parentBlob, BaseTransaction: base, TxHashes: txHashes}, nil
}

// TreeHash returns the tree hash over the base transaction hash
// followed by the body transaction hashes, in order.
func (t *Template) TreeHash() types.Hash {
	all := make([]types.Hash, 0, len(t.TxHashes)+1)
	all = append(all, t.BaseTransaction.Hash())
	all = append(all, t.TxHashes...)
	return ComputeTreeHash(all)
}

// HashingBlob returns the bytes the proof-of-work hash is computed
// over: the header fields, the parent-block blob if present, and the
// tree hash of the transaction set.
func (t *Template) HashingBlob() []byte {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, t.Header.MajorVersion)
	buf = binary.LittleEndian.AppendUint32(buf, t.Header.MinorVersion)
	buf = binary.LittleEndian.AppendUint64(buf, t.Header.Timestamp)
	buf = append(buf, t.Header.PrevHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, t.Header.Nonce)
	if len(t.ParentBlob) > 0 {
		buf = append(buf, t.ParentBlob...)
	}
	treeHash := t.TreeHash()
	buf = append(buf, treeHash[:]...)
	return buf
}

// Hash computes the block's identifying hash: SHA3-256 over its
// hashing blob.
func (t *Template) Hash() types.Hash {
	return types.Hash(crypto.Hash256(t.HashingBlob()))
}

// Bytes serializes the template: header, varint-prefixed parent
// blob, varint-prefixed base transaction, and a varint-prefixed list
// of transaction hashes.
func (t *Template) Bytes() []byte {
	var buf []byte
	buf = types.PutVarint(buf, uint64(t.Header.MajorVersion))
	buf = types.PutVarint(buf, uint64(t.Header.MinorVersion))
	buf = types.PutVarint(buf, t.Header.Timestamp)
	buf = append(buf, t.Header.PrevHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, t.Header.Nonce)

	buf = types.PutVarint(buf, uint64(len(t.ParentBlob)))
	buf = append(buf, t.ParentBlob...)

	baseBytes := t.BaseTransaction.Bytes()
	buf = types.PutVarint(buf, uint64(len(baseBytes)))
	buf = append(buf, baseBytes...)

	buf = types.PutVarint(buf, uint64(len(t.TxHashes)))
	for _, h := range t.TxHashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// DecodeTemplate parses a Template from its canonical encoding.
func DecodeTemplate(b []byte) (*Template, error) {
	r := bytes.NewReader(b)

	major, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	minor, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	ts, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	var prevHash types.Hash
	if _, err := readFull(r, prevHash[:]); err != nil {
		return nil, ErrTruncated
	}
	var nonceBuf [4]byte
	if _, err := readFull(r, nonceBuf[:]); err != nil {
		return nil, ErrTruncated
	}
	nonce := binary.LittleEndian.Uint32(nonceBuf[:])

	parentBlobLen, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	parentBlob := make([]byte, parentBlobLen)
	if _, err := readFull(r, parentBlob); err != nil {
		return nil, ErrTruncated
	}

	baseLen, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	baseBytes := make([]byte, baseLen)
	if _, err := readFull(r, baseBytes); err != nil {
		return nil, ErrTruncated
	}
	base, err := tx.DecodeTransaction(baseBytes)
	if err != nil {
		return nil, err
	}

	hashCount, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	txHashes := make([]types.Hash, hashCount)
	for i := range txHashes {
		if _, err := readFull(r, txHashes[i][:]); err != nil {
			return nil, ErrTruncated
		}
	}

	return NewTemplate(Header{
		MajorVersion: uint32(major),
		MinorVersion: uint32(minor),
		Timestamp:    ts,
		PrevHash:     prevHash,
		Nonce:        nonce,
	}, parentBlob, base, txHashes)
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, ErrTruncated
		}
	}
	return n, nil
}
