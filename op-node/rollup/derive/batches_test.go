package derive

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

func testConfig() *rollup.Config {
	return &rollup.Config{
		BlockTime:         2,
		MaxSequencerDrift: 600,
		SeqWindowSize:     10,
	}
}

func mkEpoch(number uint64, hash common.Hash, time uint64) eth.BlockInfo {
	return eth.BlockInfo{Number: number, Hash: hash, Time: time}
}

func TestCheckSingularBatchAccepts(t *testing.T) {
	cfg := testConfig()
	epochHash := common.HexToHash("0xaa")
	safeHeadHash := common.HexToHash("0xbb")
	l2SafeHead := eth.L2BlockRef{Hash: safeHeadHash, Number: 100, Time: 1000}
	epoch := mkEpoch(50, epochHash, 990)

	batch := &SingularBatch{
		ParentHash: safeHeadHash,
		EpochNum:   50,
		EpochHash:  epochHash,
		Timestamp:  1002,
	}
	inclusion := eth.BlockInfo{Number: 55}

	got := checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch}, l2SafeHead, batch, inclusion)
	require.Equal(t, BatchAccept, got)
}

func TestCheckSingularBatchDropsWrongParent(t *testing.T) {
	cfg := testConfig()
	epoch := mkEpoch(50, common.HexToHash("0xaa"), 990)
	l2SafeHead := eth.L2BlockRef{Hash: common.HexToHash("0xbb"), Number: 100, Time: 1000}

	batch := &SingularBatch{
		ParentHash: common.HexToHash("0xdead"),
		EpochNum:   50,
		EpochHash:  common.HexToHash("0xaa"),
		Timestamp:  1002,
	}
	got := checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch}, l2SafeHead, batch, eth.BlockInfo{Number: 55})
	require.Equal(t, BatchDrop, got)
}

func TestCheckSingularBatchFutureTimestamp(t *testing.T) {
	cfg := testConfig()
	epoch := mkEpoch(50, common.HexToHash("0xaa"), 990)
	l2SafeHead := eth.L2BlockRef{Hash: common.HexToHash("0xbb"), Number: 100, Time: 1000}

	batch := &SingularBatch{
		ParentHash: l2SafeHead.Hash,
		EpochNum:   50,
		EpochHash:  common.HexToHash("0xaa"),
		Timestamp:  9999,
	}
	got := checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch}, l2SafeHead, batch, eth.BlockInfo{Number: 55})
	require.Equal(t, BatchFuture, got)
}

func TestCheckSingularBatchDropsExpiredSequencingWindow(t *testing.T) {
	cfg := testConfig()
	epoch := mkEpoch(50, common.HexToHash("0xaa"), 990)
	l2SafeHead := eth.L2BlockRef{Hash: common.HexToHash("0xbb"), Number: 100, Time: 1000}

	batch := &SingularBatch{
		ParentHash: l2SafeHead.Hash,
		EpochNum:   50,
		EpochHash:  common.HexToHash("0xaa"),
		Timestamp:  1002,
	}
	// Inclusion block far beyond epoch + SeqWindowSize.
	got := checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch}, l2SafeHead, batch, eth.BlockInfo{Number: 200})
	require.Equal(t, BatchDrop, got)
}

func TestCheckSingularBatchUndecidedWithoutL1Blocks(t *testing.T) {
	cfg := testConfig()
	l2SafeHead := eth.L2BlockRef{Hash: common.HexToHash("0xbb"), Number: 100, Time: 1000}
	batch := &SingularBatch{ParentHash: l2SafeHead.Hash, Timestamp: 1002}
	got := checkSingularBatch(cfg, log.Root(), nil, l2SafeHead, batch, eth.BlockInfo{})
	require.Equal(t, BatchUndecided, got)
}

func TestCheckSingularBatchRejectsDepositTransaction(t *testing.T) {
	cfg := testConfig()
	epoch := mkEpoch(50, common.HexToHash("0xaa"), 990)
	l2SafeHead := eth.L2BlockRef{Hash: common.HexToHash("0xbb"), Number: 100, Time: 1000}

	depositTx := []byte{0x7E} // types.DepositTxType
	batch := &SingularBatch{
		ParentHash:   l2SafeHead.Hash,
		EpochNum:     50,
		EpochHash:    common.HexToHash("0xaa"),
		Timestamp:    1002,
		Transactions: [][]byte{depositTx},
	}
	got := checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch}, l2SafeHead, batch, eth.BlockInfo{Number: 55})
	require.Equal(t, BatchDrop, got)
}

func TestCheckSingularBatchEpochAdvanceNeedsNextL1Block(t *testing.T) {
	cfg := testConfig()
	epoch := mkEpoch(50, common.HexToHash("0xaa"), 990)
	l2SafeHead := eth.L2BlockRef{Hash: common.HexToHash("0xbb"), Number: 100, Time: 1000}

	batch := &SingularBatch{
		ParentHash: l2SafeHead.Hash,
		EpochNum:   51,
		EpochHash:  common.HexToHash("0xcc"),
		Timestamp:  1002,
	}
	got := checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch}, l2SafeHead, batch, eth.BlockInfo{Number: 55})
	require.Equal(t, BatchUndecided, got)

	nextEpoch := mkEpoch(51, common.HexToHash("0xcc"), 992)
	got = checkSingularBatch(cfg, log.Root(), []eth.BlockInfo{epoch, nextEpoch}, l2SafeHead, batch, eth.BlockInfo{Number: 55})
	require.Equal(t, BatchAccept, got)
}
