package derive

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSpanBatchEncodeDecodeRoundTrip(t *testing.T) {
	parent := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111")
	origin := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222")

	b := &SpanBatch{
		Elements: []*SpanBatchElement{
			{Timestamp: 100, EpochNum: 5, Transactions: [][]byte{{0x01, 0x02}}},
			{Timestamp: 102, EpochNum: 5, Transactions: nil},
			{Timestamp: 104, EpochNum: 6, Transactions: [][]byte{{0xff}}},
		},
	}
	copy(b.ParentCheck[:], parent[:20])
	copy(b.L1OriginCheck[:], origin[:20])

	encoded, err := encodeSpanBatch(b)
	require.NoError(t, err)

	decoded, err := decodeSpanBatch(encoded)
	require.NoError(t, err)

	require.Equal(t, b.ParentCheck, decoded.ParentCheck)
	require.Equal(t, b.L1OriginCheck, decoded.L1OriginCheck)
	require.Equal(t, b.GetBlockCount(), decoded.GetBlockCount())
	for i := range b.Elements {
		require.Equal(t, b.Elements[i].Timestamp, decoded.Elements[i].Timestamp)
		require.Equal(t, b.Elements[i].EpochNum, decoded.Elements[i].EpochNum)
		require.Equal(t, b.Elements[i].Transactions, decoded.Elements[i].Transactions)
	}

	require.True(t, decoded.CheckParentHash(parent))
	require.False(t, decoded.CheckParentHash(origin))
	require.True(t, decoded.CheckOriginHash(origin))
	require.Equal(t, uint64(100), decoded.GetTimestamp())
	require.Equal(t, uint64(5), decoded.GetStartEpochNum())
}

func TestDecodeSpanBatchRejectsEmpty(t *testing.T) {
	empty := &SpanBatch{}
	encoded, err := encodeSpanBatch(empty)
	require.NoError(t, err) // encoding an empty span batch is allowed...

	_, err = decodeSpanBatch(encoded)
	require.Error(t, err) // ...but decoding it back must be rejected

	nonEmpty := &SpanBatch{Elements: []*SpanBatchElement{{Timestamp: 1}}}
	encoded, err = encodeSpanBatch(nonEmpty)
	require.NoError(t, err)
	_, err = decodeSpanBatch(encoded)
	require.NoError(t, err)
}

func TestDecodeBatchDispatchesOnType(t *testing.T) {
	single := &SingularBatch{ParentHash: common.HexToHash("0xaa"), Timestamp: 42}
	payload, err := encodeSingularBatch(single)
	require.NoError(t, err)

	batch, err := DecodeBatch(RawBatch{BatchType: byte(SingularBatchType), Payload: payload})
	require.NoError(t, err)
	got, ok := batch.(*SingularBatch)
	require.True(t, ok)
	require.Equal(t, uint64(42), got.Timestamp)

	_, err = DecodeBatch(RawBatch{BatchType: 0xff, Payload: payload})
	require.Error(t, err)
}
