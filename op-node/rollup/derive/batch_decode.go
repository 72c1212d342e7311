package derive

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// singularBatchRLP mirrors SingularBatch's field order for RLP purposes.
type singularBatchRLP struct {
	ParentHash   [32]byte
	EpochNum     uint64
	EpochHash    [32]byte
	Timestamp    uint64
	Transactions [][]byte
}

func decodeSingularBatch(payload []byte) (*SingularBatch, error) {
	var raw singularBatchRLP
	if err := rlp.DecodeBytes(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid singular batch RLP: %w", err)
	}
	return &SingularBatch{
		ParentHash:   raw.ParentHash,
		EpochNum:     raw.EpochNum,
		EpochHash:    raw.EpochHash,
		Timestamp:    raw.Timestamp,
		Transactions: raw.Transactions,
	}, nil
}

func encodeSingularBatch(b *SingularBatch) ([]byte, error) {
	raw := singularBatchRLP{
		ParentHash:   b.ParentHash,
		EpochNum:     b.EpochNum,
		EpochHash:    b.EpochHash,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
	}
	return rlp.EncodeToBytes(&raw)
}

// DecodeBatch dispatches on RawBatch.BatchType to produce a typed Batch.
func DecodeBatch(raw RawBatch) (Batch, error) {
	switch BatchKind(raw.BatchType) {
	case SingularBatchType:
		return decodeSingularBatch(raw.Payload)
	case SpanBatchType:
		return decodeSpanBatch(raw.Payload)
	default:
		return nil, fmt.Errorf("unrecognized batch type byte: %d", raw.BatchType)
	}
}
