package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// SystemConfig is the per-block protocol parameter set used to interpret
// batches: fee scalars, the batcher address allowed to publish channel
// frames, the L2 gas limit, and (post-Ecotone) split base-fee/blob-fee
// scalars and operator-fee parameters.
type SystemConfig struct {
	BatcherAddr common.Address `json:"batcherAddr"`
	Overhead    Bytes32        `json:"overhead"`
	Scalar      Bytes32        `json:"scalar"`
	GasLimit    uint64         `json:"gasLimit"`

	// Ecotone+ split scalars, nil pre-Ecotone.
	BaseFeeScalar     *uint32 `json:"baseFeeScalar,omitempty"`
	BlobBaseFeeScalar *uint32 `json:"blobBaseFeeScalar,omitempty"`

	// Holocene+ EIP-1559 parameters, nil pre-Holocene.
	EIP1559Denominator *uint64 `json:"eip1559Denominator,omitempty"`
	EIP1559Elasticity  *uint64 `json:"eip1559Elasticity,omitempty"`

	// Isthmus+ operator fee parameters, nil pre-Isthmus.
	OperatorFeeScalar   *uint32 `json:"operatorFeeScalar,omitempty"`
	OperatorFeeConstant *uint64 `json:"operatorFeeConstant,omitempty"`
}

// SystemConfigUpdateType identifies the kind of update packed into a
// ConfigUpdate log emitted by the system config contract.
type SystemConfigUpdateType uint8

const (
	SystemConfigUpdateBatcher       SystemConfigUpdateType = 0
	SystemConfigUpdateGasConfig     SystemConfigUpdateType = 1
	SystemConfigUpdateGasLimit      SystemConfigUpdateType = 2
	SystemConfigUpdateUnsafeBlockSigner SystemConfigUpdateType = 3
)

// ConfigUpdateEventABIHash is the topic0 of the `ConfigUpdate(uint256,uint8,bytes)`
// event emitted by the SystemConfig predeploy/contract whenever a deposit
// transaction changes a parameter read by the derivation pipeline.
var ConfigUpdateEventABIHash = common.HexToHash("0x1d2b0bda21d56b8bd12d4f94ebacffdfb35f5e226f84b461103bb8beab6353be")

// UpdateWithLog mutates the system config in place based on a single
// ConfigUpdate log, mirroring the protocol's "replay deposit/config events"
// step in L1Traversal.advance(). Logs that aren't recognized ConfigUpdate
// events are ignored, matching the protocol rule that decoding failures
// here are non-fatal (the log either matches the expected shape or it's
// not a config-update log at all).
func (sc *SystemConfig) UpdateWithLog(log *types.Log) error {
	if len(log.Topics) < 3 || log.Topics[0] != ConfigUpdateEventABIHash {
		return nil
	}
	updateType := SystemConfigUpdateType(log.Topics[2].Bytes()[31])
	data := log.Data
	switch updateType {
	case SystemConfigUpdateBatcher:
		if len(data) < 32 {
			return fmt.Errorf("invalid batcher update log data len %d", len(data))
		}
		sc.BatcherAddr = common.BytesToAddress(data[12:32])
	case SystemConfigUpdateGasConfig:
		if len(data) < 64 {
			return fmt.Errorf("invalid gas-config update log data len %d", len(data))
		}
		copy(sc.Overhead[:], data[0:32])
		copy(sc.Scalar[:], data[32:64])
		if err := sc.decodeScalar(); err != nil {
			return fmt.Errorf("invalid scalar encoding: %w", err)
		}
	case SystemConfigUpdateGasLimit:
		if len(data) < 32 {
			return fmt.Errorf("invalid gas-limit update log data len %d", len(data))
		}
		sc.GasLimit = new(uint256.Int).SetBytes32(data[0:32]).Uint64()
	case SystemConfigUpdateUnsafeBlockSigner:
		// Unsafe-block-signer rotation does not affect derivation; ignored here.
	default:
		return fmt.Errorf("unrecognized system config update type: %d", updateType)
	}
	return nil
}

// decodeScalar unpacks the post-Ecotone versioned scalar encoding: byte 0 of
// the 32-byte scalar field is a version byte; version 1 splits the scalar
// into a base-fee scalar (bytes 24-28) and blob-base-fee scalar (bytes
// 28-32), big-endian. Version 0 (legacy) leaves both nil.
func (sc *SystemConfig) decodeScalar() error {
	switch sc.Scalar[0] {
	case 0:
		sc.BaseFeeScalar = nil
		sc.BlobBaseFeeScalar = nil
		return nil
	case 1:
		base := uint32FromBytes(sc.Scalar[24:28])
		blob := uint32FromBytes(sc.Scalar[28:32])
		sc.BaseFeeScalar = &base
		sc.BlobBaseFeeScalar = &blob
		return nil
	default:
		return fmt.Errorf("unrecognized scalar version byte: %d", sc.Scalar[0])
	}
}

func uint32FromBytes(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}
