package derive

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

func TestBatchProviderNextBatchWithoutSafeHeadStalls(t *testing.T) {
	bp := &BatchProvider{log: log.Root(), cfg: testConfig()}
	_, err := bp.NextBatch(context.Background())
	require.Error(t, err)
	pe, ok := rollup.AsPipelineError(err)
	require.True(t, ok)
	require.Equal(t, rollup.KindTemporary, pe.Kind())
	require.ErrorIs(t, err, rollup.ErrMissingOrigin)
}

func TestBatchProviderMaybeSynthesizeWaitsForWindowToClose(t *testing.T) {
	safeHead := eth.L2BlockRef{Hash: common.HexToHash("0xhead"), Time: 1000}
	bp := &BatchProvider{
		cfg:      testConfig(),
		safeHead: &safeHead,
		l1Blocks: []eth.BlockInfo{{Number: 50, Time: 990}, {Number: 52, Time: 994}},
		log:      log.Root(),
	}
	require.Nil(t, bp.maybeSynthesize(), "window hasn't closed yet")
}

func TestBatchProviderMaybeSynthesizeProducesEmptyBatch(t *testing.T) {
	safeHead := eth.L2BlockRef{Hash: common.HexToHash("0xhead"), Time: 1000}
	cfg := testConfig()
	epoch := eth.BlockInfo{Number: 50, Hash: common.HexToHash("0xaa"), Time: 990}
	latest := eth.BlockInfo{Number: 50 + cfg.SeqWindowSize, Hash: common.HexToHash("0xbb"), Time: 1200}
	bp := &BatchProvider{
		cfg:      cfg,
		safeHead: &safeHead,
		l1Blocks: []eth.BlockInfo{epoch, latest},
		log:      log.Root(),
	}

	got := bp.maybeSynthesize()
	require.NotNil(t, got)
	require.Equal(t, safeHead.Hash, got.ParentHash)
	require.Equal(t, safeHead.Time+cfg.BlockTime, got.Timestamp)
	require.Equal(t, epoch.Number, got.EpochNum)
	require.True(t, got.IsLastInSpan)
	require.Empty(t, got.Transactions)
}

func TestBatchProviderMaybeSynthesizeAdvancesEpochPastDrift(t *testing.T) {
	safeHead := eth.L2BlockRef{Hash: common.HexToHash("0xhead"), Time: 100000}
	cfg := testConfig()
	epoch := eth.BlockInfo{Number: 50, Hash: common.HexToHash("0xaa"), Time: 990}
	nextEpoch := eth.BlockInfo{Number: 51, Hash: common.HexToHash("0xcc"), Time: 99998}
	latest := eth.BlockInfo{Number: 50 + cfg.SeqWindowSize, Hash: common.HexToHash("0xdd"), Time: 100100}
	bp := &BatchProvider{
		cfg:      cfg,
		safeHead: &safeHead,
		l1Blocks: []eth.BlockInfo{epoch, nextEpoch, latest},
		log:      log.Root(),
	}

	got := bp.maybeSynthesize()
	require.NotNil(t, got)
	require.Equal(t, nextEpoch.Number, got.EpochNum, "must roll forward once the old epoch drifts too far behind")
}

func TestBatchProviderObserveOriginDedupsAndBounds(t *testing.T) {
	bp := &BatchProvider{cfg: &rollup.Config{SeqWindowSize: 1}}
	bp.observeOrigin(eth.BlockInfo{Number: 1})
	bp.observeOrigin(eth.BlockInfo{Number: 1})
	require.Len(t, bp.l1Blocks, 1)
	bp.observeOrigin(eth.BlockInfo{Number: 2})
	bp.observeOrigin(eth.BlockInfo{Number: 3})
	require.LessOrEqual(t, len(bp.l1Blocks), 3)
}
