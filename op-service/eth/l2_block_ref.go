package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// L2BlockRef is the consensus core's view of an L2 block: a BlockInfo plus
// its L1 origin and sequence number within that origin's epoch. This is the
// spec's `L2BlockInfo`.
type L2BlockRef struct {
	Hash           common.Hash `json:"hash"`
	Number         uint64      `json:"number"`
	ParentHash     common.Hash `json:"parentHash"`
	Time           uint64      `json:"timestamp"`
	L1Origin       BlockID     `json:"l1origin"`
	SequenceNumber uint64      `json:"sequenceNumber"`
}

func (r L2BlockRef) ID() BlockID {
	return BlockID{Hash: r.Hash, Number: r.Number}
}

func (r L2BlockRef) ParentID() BlockID {
	if r.Number == 0 {
		return BlockID{}
	}
	return BlockID{Hash: r.ParentHash, Number: r.Number - 1}
}

func (r L2BlockRef) String() string {
	return fmt.Sprintf("%s:%d", r.Hash, r.Number)
}

// BlockRef is a chain-agnostic alias of BlockInfo, for call sites that
// don't care whether the block is L1 or L2.
type BlockRef = BlockInfo
