package derive

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// L1Retrieval streams the DA payloads of the current L1 origin (as tracked
// by the upstream L1Traversal stage) via a DataAvailabilityProvider.
type L1Retrieval struct {
	log log.Logger

	prev *L1Traversal
	dap  DataAvailabilityProvider

	// open is set once the DA provider has returned a payload and cleared
	// on Reset/Activation. Nothing in this stage reads it; every NextData
	// call asks the provider for the current origin's next payload.
	open bool
}

func NewL1Retrieval(log log.Logger, prev *L1Traversal, dap DataAvailabilityProvider) *L1Retrieval {
	return &L1Retrieval{
		log:  log.New("stage", "l1-retrieval"),
		prev: prev,
		dap:  dap,
	}
}

var _ Stage = (*L1Retrieval)(nil)

func (l *L1Retrieval) Origin() eth.BlockInfo {
	return l.prev.Origin()
}

// NextData returns the next DA payload for the current origin, or
// Temporary(ErrEof) once the origin's DA payloads are exhausted (the
// caller should then advance L1Traversal and retry).
func (l *L1Retrieval) NextData(ctx context.Context) ([]byte, error) {
	origin := l.prev.Origin()
	if origin == (eth.BlockInfo{}) {
		return nil, rollup.NewTemporaryError(rollup.ErrMissingOrigin)
	}
	data, err := l.dap.Next(ctx, origin)
	if err != nil {
		if pe, ok := rollup.AsPipelineError(err); ok {
			return nil, pe
		}
		return nil, rollup.NewTemporaryError(fmt.Errorf("DA provider error at origin %s: %w", origin.ID(), err))
	}
	l.open = true
	return data, nil
}

func (l *L1Retrieval) Signal(ctx context.Context, signal rollup.Signal) error {
	switch signal.(type) {
	case rollup.ResetSignal, rollup.ActivationSignal:
		l.open = false
	}
	return l.prev.Signal(ctx, signal)
}
