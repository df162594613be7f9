package block

import (
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Header is a block's fixed-size metadata: the fork-gated major/minor
// version pair, timestamp, the hash of the previous block, and the
// PoW nonce.
type Header struct {
	MajorVersion uint32     `json:"major_version"`
	MinorVersion uint32     `json:"minor_version"`
	Timestamp    uint64     `json:"timestamp"`
	PrevHash     types.Hash `json:"prev_hash"`
	Nonce        uint32     `json:"nonce"`
}
