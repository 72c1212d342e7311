package derive

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// SpanBatchElement is one block's worth of data within a decoded SpanBatch,
// with absolute timestamp/epoch (the wire encoding carries them absolute as
// well; see spanBatchRLP and decodeSpanBatch).
type SpanBatchElement struct {
	Timestamp    uint64
	EpochNum     uint64
	Transactions [][]byte
}

// SpanBatch is a compressed multi-block batch. The wire encoding RLP-codes
// a [parentCheck, l1OriginCheck, []element] tuple, where parentCheck /
// l1OriginCheck are the first 20 bytes of the batch's expected parent block
// hash and final L1 origin hash — enough to detect a mismatched parent
// chain without carrying the full 32-byte hash for every batch, mirroring
// the real protocol's truncated-hash check fields.
type SpanBatch struct {
	ParentCheck   [20]byte
	L1OriginCheck [20]byte
	Elements      []*SpanBatchElement
}

var _ Batch = (*SpanBatch)(nil)

func (b *SpanBatch) GetBatchType() BatchKind  { return SpanBatchType }
func (b *SpanBatch) GetTimestamp() uint64     { return b.Elements[0].Timestamp }
func (b *SpanBatch) GetStartEpochNum() uint64 { return b.Elements[0].EpochNum }

func (b *SpanBatch) GetBlockCount() int                    { return len(b.Elements) }
func (b *SpanBatch) GetBlockTimestamp(i int) uint64         { return b.Elements[i].Timestamp }
func (b *SpanBatch) GetBlockEpochNum(i int) uint64          { return b.Elements[i].EpochNum }
func (b *SpanBatch) GetBlockTransactions(i int) [][]byte    { return b.Elements[i].Transactions }

func (b *SpanBatch) CheckParentHash(hash common.Hash) bool {
	return bytesEqualPrefix20(b.ParentCheck, hash)
}

func (b *SpanBatch) CheckOriginHash(hash common.Hash) bool {
	return bytesEqualPrefix20(b.L1OriginCheck, hash)
}

func bytesEqualPrefix20(check [20]byte, hash common.Hash) bool {
	for i := 0; i < 20; i++ {
		if check[i] != hash[i] {
			return false
		}
	}
	return true
}

// spanBatchRLP is the on-wire RLP shape for a SpanBatch: absolute parent
// and origin check prefixes, followed by per-block elements already
// carrying absolute timestamp/epoch (kept simple relative to the real
// mainnet delta+bitfield encoding; see DESIGN.md's span-batch entry for the
// rationale).
type spanBatchRLP struct {
	ParentCheck   []byte
	L1OriginCheck []byte
	Elements      []spanBatchElementRLP
}

type spanBatchElementRLP struct {
	Timestamp    uint64
	EpochNum     uint64
	Transactions [][]byte
}

func decodeSpanBatch(payload []byte) (*SpanBatch, error) {
	var raw spanBatchRLP
	if err := rlp.DecodeBytes(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid span batch RLP: %w", err)
	}
	if len(raw.ParentCheck) != 20 || len(raw.L1OriginCheck) != 20 {
		return nil, fmt.Errorf("invalid span batch check-prefix length")
	}
	if len(raw.Elements) == 0 {
		return nil, fmt.Errorf("span batch has no blocks")
	}
	out := &SpanBatch{Elements: make([]*SpanBatchElement, len(raw.Elements))}
	copy(out.ParentCheck[:], raw.ParentCheck)
	copy(out.L1OriginCheck[:], raw.L1OriginCheck)
	for i, e := range raw.Elements {
		out.Elements[i] = &SpanBatchElement{
			Timestamp:    e.Timestamp,
			EpochNum:     e.EpochNum,
			Transactions: e.Transactions,
		}
	}
	return out, nil
}

func encodeSpanBatch(b *SpanBatch) ([]byte, error) {
	raw := spanBatchRLP{
		ParentCheck:   b.ParentCheck[:],
		L1OriginCheck: b.L1OriginCheck[:],
		Elements:      make([]spanBatchElementRLP, len(b.Elements)),
	}
	for i, e := range b.Elements {
		raw.Elements[i] = spanBatchElementRLP{
			Timestamp:    e.Timestamp,
			EpochNum:     e.EpochNum,
			Transactions: e.Transactions,
		}
	}
	return rlp.EncodeToBytes(&raw)
}
