package eth

import (
	"encoding/hex"
	"fmt"
)

// Bytes32 is a 32-byte fixed array, used for the packed overhead and
// fee-scalar system-config fields and for 32-byte payload-attribute fields
// that don't have a more specific type.
type Bytes32 [32]byte

func (b Bytes32) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

func (b Bytes32) TerminalString() string {
	return "0x" + hex.EncodeToString(b[:4]) + ".." + hex.EncodeToString(b[28:])
}

// Uint64Quantity wraps a uint64 for JSON/RLP call sites that want a
// quantity-style encoding rather than a bare Go integer; the derivation core
// only uses the bare uint64 form internally, so this is a thin marker type
// kept for interface parity with payload-attributes callers.
type Uint64Quantity uint64

func (q Uint64Quantity) String() string {
	return fmt.Sprintf("%d", uint64(q))
}
