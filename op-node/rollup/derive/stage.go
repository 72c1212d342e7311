package derive

import (
	"context"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// Stage is the capability every pipeline stage must implement so the
// pipeline driver can fan out signals and track origins uniformly, without
// the nested-generic stage chain the Rust source uses (spec.md §9 flags
// this as the idiomatic Go substitute for trait-object form).
//
// The data each stage actually produces (frames, batches, attributes) is
// exposed through stage-specific methods (e.g. NextFrame, NextBatch); Stage
// itself only covers the cross-cutting lifecycle operations.
type Stage interface {
	// Signal delivers a control message to this stage. Stages that don't
	// care about a given signal variant return nil without side effects.
	Signal(ctx context.Context, signal rollup.Signal) error

	// Origin reports the L1 block this stage is currently positioned at.
	// Propagates from the upstream (L1Traversal) end of the pipeline.
	Origin() eth.BlockInfo
}

// StepResult is the outcome of one Pipeline.Step call, matching spec.md
// §4.9's {PreparedAttributes, AdvancedOrigin, OriginAdvanceErr, StepFailed}.
type StepResult uint8

const (
	StepPreparedAttributes StepResult = iota
	StepAdvancedOrigin
	StepOriginAdvanceErr
	StepFailed
)

func (r StepResult) String() string {
	switch r {
	case StepPreparedAttributes:
		return "prepared-attributes"
	case StepAdvancedOrigin:
		return "advanced-origin"
	case StepOriginAdvanceErr:
		return "origin-advance-error"
	case StepFailed:
		return "step-failed"
	default:
		return "unknown"
	}
}
