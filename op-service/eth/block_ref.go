package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// BlockID uniquely identifies a block by number and hash, without reference
// to its parent. Useful for simple reorg-detection comparisons.
type BlockID struct {
	Hash   common.Hash `json:"hash"`
	Number uint64      `json:"number"`
}

func (id BlockID) String() string {
	return fmt.Sprintf("%s:%d", id.Hash, id.Number)
}

// BlockInfo is the consensus core's view of an L1 block: just enough to
// walk the chain and detect reorgs. This is the spec's `BlockInfo`.
type BlockInfo struct {
	Hash       common.Hash `json:"hash"`
	Number     uint64      `json:"number"`
	ParentHash common.Hash `json:"parentHash"`
	Time       uint64      `json:"timestamp"`
}

// L1BlockRef is an alias kept for call sites that read more naturally when
// talking about L1 specifically; same type as BlockInfo.
type L1BlockRef = BlockInfo

func (id BlockInfo) ID() BlockID {
	return BlockID{Hash: id.Hash, Number: id.Number}
}

func (id BlockInfo) ParentID() BlockID {
	if id.Number == 0 {
		return BlockID{}
	}
	return BlockID{Hash: id.ParentHash, Number: id.Number - 1}
}

func (id BlockInfo) String() string {
	return fmt.Sprintf("%s:%d", id.Hash, id.Number)
}
