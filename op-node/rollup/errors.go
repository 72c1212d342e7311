package rollup

import (
	"errors"
	"fmt"

	"github.com/latticefold/op-derive-node/op-service/eth"
)

// ErrKind classifies a pipeline error by how the actor must react to it:
// absorbed in-band (Temporary), triggering a pipeline reset (Reset), or
// fatal to the derivation task (Critical). Matches spec.md §7.
type ErrKind uint8

const (
	KindTemporary ErrKind = iota
	KindReset
	KindCritical
)

func (k ErrKind) String() string {
	switch k {
	case KindTemporary:
		return "temporary"
	case KindReset:
		return "reset"
	case KindCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// PipelineError wraps an underlying cause with the ErrKind that determines
// how the caller must propagate it. Stages return these directly; the actor
// and pipeline driver switch on Kind() rather than on sentinel identity.
type PipelineError struct {
	kind  ErrKind
	cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.cause)
}

func (e *PipelineError) Unwrap() error { return e.cause }

func (e *PipelineError) Kind() ErrKind { return e.kind }

func NewTemporaryError(cause error) *PipelineError {
	return &PipelineError{kind: KindTemporary, cause: cause}
}

func NewResetError(cause error) *PipelineError {
	return &PipelineError{kind: KindReset, cause: cause}
}

func NewCriticalError(cause error) *PipelineError {
	return &PipelineError{kind: KindCritical, cause: cause}
}

// AsPipelineError unwraps err into a *PipelineError if it (or something it
// wraps) is one; ok is false for plain errors, which callers should treat
// as Critical since a stage that returns a bare error has not opted into
// the in-band recovery protocol.
func AsPipelineError(err error) (pe *PipelineError, ok bool) {
	if err == nil {
		return nil, false
	}
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Sentinel causes used with errors.Is for common Temporary/Reset conditions.
var (
	// ErrNotEnoughData signals the stage needs more input before it can
	// produce a result; the pipeline driver should pull more data from the
	// stage below rather than treat this as "no data available right now".
	ErrNotEnoughData = errors.New("not enough data")

	// ErrEof signals the current data source (an L1 block's DA payloads,
	// or the L1 chain past the current origin) is exhausted.
	ErrEof = errors.New("eof")

	// ErrMissingOrigin indicates a stage was asked for data before an
	// origin was established. The builder sets no origin or safe head; a
	// built pipeline returns this until a Reset or Activation signal has
	// supplied them.
	ErrMissingOrigin = errors.New("missing current origin")

	// ErrSignalChannelClosed is fatal to the derivation actor: unlike the L1
	// head update stream (whose closure just means clean shutdown, since
	// nothing else would ever drive the pipeline again), the signal channel
	// closing means the engine/supervisor side of the process is gone while
	// the actor is still expected to run, which can only be a bug.
	ErrSignalChannelClosed = errors.New("derivation signal channel closed unexpectedly")
)

// ReorgDetectedError is a Reset-kind cause: L1Traversal observed a new
// candidate block whose parent hash doesn't match the cached origin.
type ReorgDetectedError struct {
	Expected eth.BlockID
	New      eth.BlockID
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("L1 reorg detected: expected parent %s, got new block %s", e.Expected, e.New)
}

// HoloceneActivationError is a Reset-kind cause for the Holocene fork
// activation; the actor reacts to it with an Activation signal instead of a
// plain Reset signal. No stage in this module returns it.
type HoloceneActivationError struct{}

func (e *HoloceneActivationError) Error() string { return "Holocene fork activation" }
