package derive

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/latticefold/op-derive-node/op-service/eth"
)

// BatchKind discriminates the two wire-level batch encodings. Matches the
// RawBatch.BatchType leading byte read off a channel's RLP stream.
type BatchKind byte

const (
	SingularBatchType BatchKind = 0
	SpanBatchType     BatchKind = 1
)

// Batch is the common surface BatchStream/BatchProvider validate against,
// implemented by both SingularBatch and SpanBatch.
type Batch interface {
	GetBatchType() BatchKind
	GetTimestamp() uint64
	GetStartEpochNum() uint64
}

// SingularBatch carries exactly one L2 block's worth of transactions.
// RLP-encoded as [parentHash, epochNum, epochHash, timestamp, transactions].
type SingularBatch struct {
	ParentHash   common.Hash
	EpochNum     uint64
	EpochHash    common.Hash
	Timestamp    uint64
	Transactions [][]byte

	// IsLastInSpan marks the final block unpacked from a SpanBatch (or is
	// always true for a batch that was singular on the wire). Bookkeeping
	// only; never part of the RLP encoding.
	IsLastInSpan bool
}

var _ Batch = (*SingularBatch)(nil)

func (b *SingularBatch) GetBatchType() BatchKind    { return SingularBatchType }
func (b *SingularBatch) GetTimestamp() uint64       { return b.Timestamp }
func (b *SingularBatch) GetStartEpochNum() uint64   { return b.EpochNum }

// Epoch returns the L1 origin this batch claims, as a BlockID for
// comparison against the canonical chain.
func (b *SingularBatch) Epoch() eth.BlockID {
	return eth.BlockID{Hash: b.EpochHash, Number: b.EpochNum}
}
