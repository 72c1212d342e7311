package eth

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func configUpdateLog(updateType SystemConfigUpdateType, data []byte) *types.Log {
	var typeTopic common.Hash
	typeTopic[31] = byte(updateType)
	return &types.Log{
		Topics: []common.Hash{ConfigUpdateEventABIHash, {}, typeTopic},
		Data:   data,
	}
}

func TestUpdateWithLogIgnoresUnrelatedLogs(t *testing.T) {
	sc := &SystemConfig{}
	err := sc.UpdateWithLog(&types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	require.NoError(t, err)
	require.Equal(t, SystemConfig{}, *sc)
}

func TestUpdateWithLogBatcherAddr(t *testing.T) {
	sc := &SystemConfig{}
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	data := make([]byte, 32)
	copy(data[12:32], addr[:])

	require.NoError(t, sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateBatcher, data)))
	require.Equal(t, addr, sc.BatcherAddr)
}

func TestUpdateWithLogBatcherAddrRejectsShortData(t *testing.T) {
	sc := &SystemConfig{}
	err := sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateBatcher, make([]byte, 10)))
	require.Error(t, err)
}

func TestUpdateWithLogGasLimit(t *testing.T) {
	sc := &SystemConfig{}
	data := make([]byte, 32)
	data[31] = 42
	require.NoError(t, sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateGasLimit, data)))
	require.Equal(t, uint64(42), sc.GasLimit)
}

func TestUpdateWithLogGasConfigLegacyScalar(t *testing.T) {
	sc := &SystemConfig{}
	data := make([]byte, 64)
	// Overhead left zero; scalar version byte 0 (legacy).
	require.NoError(t, sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateGasConfig, data)))
	require.Nil(t, sc.BaseFeeScalar)
	require.Nil(t, sc.BlobBaseFeeScalar)
}

func TestUpdateWithLogGasConfigSplitScalar(t *testing.T) {
	sc := &SystemConfig{}
	data := make([]byte, 64)
	data[32] = 1 // scalar version byte: split encoding
	// base fee scalar at bytes 24-28 of the scalar field (data[32+24:32+28])
	data[32+24], data[32+25], data[32+26], data[32+27] = 0, 0, 0, 7
	// blob base fee scalar at bytes 28-32
	data[32+28], data[32+29], data[32+30], data[32+31] = 0, 0, 0, 9

	require.NoError(t, sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateGasConfig, data)))
	require.NotNil(t, sc.BaseFeeScalar)
	require.NotNil(t, sc.BlobBaseFeeScalar)
	require.Equal(t, uint32(7), *sc.BaseFeeScalar)
	require.Equal(t, uint32(9), *sc.BlobBaseFeeScalar)
}

func TestUpdateWithLogGasConfigRejectsUnknownScalarVersion(t *testing.T) {
	sc := &SystemConfig{}
	data := make([]byte, 64)
	data[32] = 0xff
	err := sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateGasConfig, data))
	require.Error(t, err)
}

func TestUpdateWithLogUnsafeBlockSignerIsIgnored(t *testing.T) {
	sc := &SystemConfig{GasLimit: 123}
	require.NoError(t, sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateUnsafeBlockSigner, nil)))
	require.Equal(t, uint64(123), sc.GasLimit, "unrelated fields must be untouched")
}

func TestUpdateWithLogRejectsUnrecognizedUpdateType(t *testing.T) {
	sc := &SystemConfig{}
	err := sc.UpdateWithLog(configUpdateLog(SystemConfigUpdateType(99), nil))
	require.Error(t, err)
}
