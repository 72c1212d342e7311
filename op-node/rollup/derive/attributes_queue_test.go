package derive

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

type fakeAttributesBuilder struct {
	attrs *eth.PayloadAttributes
	err   error
	calls int
}

func (f *fakeAttributesBuilder) PreparePayloadAttributes(ctx context.Context, parent eth.L2BlockRef, epoch eth.BlockID) (*eth.PayloadAttributes, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.attrs
	return &cp, nil
}

func TestAttributesQueueNextAttributesWithoutSafeHeadStalls(t *testing.T) {
	aq := &AttributesQueue{log: log.Root(), cfg: testConfig()}
	_, err := aq.NextAttributes(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, rollup.ErrMissingOrigin)
}

func TestAttributesQueueRejectsParentMismatch(t *testing.T) {
	safeHead := eth.L2BlockRef{Hash: common.HexToHash("0xhead")}
	aq := &AttributesQueue{
		log:      log.Root(),
		cfg:      testConfig(),
		safeHead: &safeHead,
		buffered: &SingularBatch{ParentHash: common.HexToHash("0xbad")},
		builder:  &fakeAttributesBuilder{},
	}
	_, err := aq.NextAttributes(context.Background())
	require.Error(t, err)
	pe, ok := rollup.AsPipelineError(err)
	require.True(t, ok)
	require.Equal(t, rollup.KindCritical, pe.Kind())
}

func TestAttributesQueueProducesAttributesAndPrependsDeposits(t *testing.T) {
	safeHead := eth.L2BlockRef{Hash: common.HexToHash("0xhead")}
	builder := &fakeAttributesBuilder{attrs: &eth.PayloadAttributes{
		Timestamp:    1002,
		Transactions: [][]byte{{0x7E, 0x01}}, // deposit tx
	}}
	aq := &AttributesQueue{
		log:      log.Root(),
		cfg:      testConfig(),
		safeHead: &safeHead,
		buffered: &SingularBatch{
			ParentHash:   safeHead.Hash,
			Timestamp:    1002,
			Transactions: [][]byte{{0x02}},
			IsLastInSpan: true,
		},
		builder: builder,
	}

	got, err := aq.NextAttributes(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, builder.calls)
	require.True(t, got.IsLastInSpan)
	require.Equal(t, safeHead, got.Parent)
	require.True(t, got.Attributes.NoTxPool)
	require.Len(t, got.Attributes.Transactions, 2)
	require.Equal(t, byte(0x7E), got.Attributes.Transactions[0][0], "deposit must stay first")
	require.Nil(t, aq.buffered, "buffered batch must be cleared on success")
}

func TestAttributesQueueRebuffersOnBuilderFailure(t *testing.T) {
	safeHead := eth.L2BlockRef{Hash: common.HexToHash("0xhead")}
	batch := &SingularBatch{ParentHash: safeHead.Hash, Timestamp: 1002}
	aq := &AttributesQueue{
		log:      log.Root(),
		cfg:      testConfig(),
		safeHead: &safeHead,
		buffered: batch,
		builder:  &fakeAttributesBuilder{err: errors.New("engine unavailable")},
	}

	_, err := aq.NextAttributes(context.Background())
	require.Error(t, err)
	pe, ok := rollup.AsPipelineError(err)
	require.True(t, ok)
	require.Equal(t, rollup.KindTemporary, pe.Kind())
	require.Same(t, batch, aq.buffered, "batch must be retried, not dropped, on a transient builder failure")
}
