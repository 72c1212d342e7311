// Package actor drives the derivation pipeline as a standalone,
// channel-driven loop, in the style of op-node's event-loop actors
// (op-node/rollup/driver.Driver) but scoped to exactly the inputs and
// outputs spec.md §5 describes for DerivationActor.
package actor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-node/rollup/derive"
	"github.com/latticefold/op-derive-node/op-service/eth"
	"github.com/latticefold/op-derive-node/op-service/metrics"
)

// errYield means the pipeline has no more attributes to give right now and
// the actor should go back to waiting on its inbound channels; it never
// escapes produceNextSafePayload.
var errYield = errors.New("waiting for more derivable data")

// EngineSafeHead reports the execution engine's idea of the current L2
// safe head. DerivationActor only advances once this has moved past its
// own bookkeeping, mirroring the tokio watch channel the original actor
// polls on every inbound event.
type EngineSafeHead interface {
	L2SafeHead() eth.L2BlockRef
}

// DerivationActor steps a DerivationPipeline forward in response to new L1
// data or engine progress, and forwards the resulting payload attributes
// downstream for execution.
type DerivationActor struct {
	log     log.Logger
	metrics metrics.DerivationMetricer

	pipeline *derive.DerivationPipeline
	engine   EngineSafeHead

	l2SafeHead eth.L2BlockRef

	syncComplete  <-chan struct{}
	signalIn      <-chan rollup.Signal
	l1HeadUpdates <-chan eth.BlockInfo
	attributesOut chan<- *derive.AttributesWithParent

	engineReady bool
}

func NewDerivationActor(
	logger log.Logger,
	pipeline *derive.DerivationPipeline,
	engine EngineSafeHead,
	initialSafeHead eth.L2BlockRef,
	syncComplete <-chan struct{},
	signalIn <-chan rollup.Signal,
	l1HeadUpdates <-chan eth.BlockInfo,
	attributesOut chan<- *derive.AttributesWithParent,
) *DerivationActor {
	return &DerivationActor{
		log:           logger.New("component", "derivation-actor"),
		metrics:       metrics.NoopMetrics{},
		pipeline:      pipeline,
		engine:        engine,
		l2SafeHead:    initialSafeHead,
		syncComplete:  syncComplete,
		signalIn:      signalIn,
		l1HeadUpdates: l1HeadUpdates,
		attributesOut: attributesOut,
	}
}

// WithMetrics swaps in a non-noop DerivationMetricer; returns a for
// chaining at construction time.
func (a *DerivationActor) WithMetrics(m metrics.DerivationMetricer) *DerivationActor {
	a.metrics = m
	return a
}

// Run blocks, driving the pipeline until ctx is canceled or a fatal
// condition (a closed signal channel, or a Critical pipeline error) occurs.
// A closed l1HeadUpdates channel without cancellation is treated as a clean
// shutdown request, since nothing else could ever wake the actor again.
func (a *DerivationActor) Run(ctx context.Context) error {
	a.log.Info("derivation actor started")
	for {
		select {
		case <-ctx.Done():
			a.log.Info("received shutdown signal, exiting derivation actor")
			return nil

		case _, ok := <-a.syncComplete:
			if !ok {
				a.syncComplete = nil
				continue
			}
			if a.engineReady {
				continue
			}
			a.log.Info("engine finished syncing, starting derivation")
			a.engineReady = true
			if err := a.process(ctx); err != nil {
				return err
			}

		case origin, ok := <-a.l1HeadUpdates:
			if !ok {
				a.log.Info("L1 head update stream closed without cancellation, exiting derivation actor")
				return nil
			}
			a.log.Debug("received L1 head update", "origin", origin.ID())
			if err := a.process(ctx); err != nil {
				return err
			}

		case signal, ok := <-a.signalIn:
			if !ok {
				a.log.Error("derivation signal channel closed unexpectedly")
				return rollup.ErrSignalChannelClosed
			}
			a.handleSignal(ctx, signal)
		}
	}
}

func (a *DerivationActor) handleSignal(ctx context.Context, signal rollup.Signal) {
	if err := a.pipeline.Signal(ctx, signal); err != nil {
		a.log.Error("failed to signal derivation pipeline", "signal", signal, "err", err)
		return
	}
	a.log.Info("executed signal successfully", "signal", signal)
}

// process advances the pipeline once the engine's safe head has moved past
// what this actor already reported, then forwards any resulting attributes.
func (a *DerivationActor) process(ctx context.Context) error {
	if !a.engineReady {
		a.log.Trace("engine not ready, skipping derivation")
		return nil
	}

	engineSafeHead := a.engine.L2SafeHead()
	if engineSafeHead.Number <= a.l2SafeHead.Number {
		a.log.Debug("L2 safe head unchanged", "engine_safe_head", engineSafeHead.Number, "l2_safe_head", a.l2SafeHead.Number)
		return nil
	}

	attrs, err := a.produceNextSafePayload(ctx)
	if err != nil {
		if errors.Is(err, errYield) {
			return nil
		}
		return err
	}

	select {
	case a.attributesOut <- attrs:
	case <-ctx.Done():
		return ctx.Err()
	}
	a.metrics.RecordAttributesProduced()
	a.l2SafeHead = engineSafeHead
	a.metrics.RecordL2SafeHead(a.l2SafeHead.Number)
	a.metrics.RecordL1Origin(a.pipeline.Origin().Number)
	return nil
}

// produceNextSafePayload steps the pipeline until it either produces
// attributes, needs a pipeline reset (which it performs itself before
// retrying), or genuinely has nothing left to do until new data arrives.
func (a *DerivationActor) produceNextSafePayload(ctx context.Context) (*derive.AttributesWithParent, error) {
	for {
		result, err := a.pipeline.Step(ctx, a.l2SafeHead)
		switch result {
		case derive.StepPreparedAttributes:
			// continue below; attributes are picked up via pipeline.Next().

		case derive.StepAdvancedOrigin:
			a.log.Info("advanced L1 origin", "origin", a.pipeline.Origin().ID())

		case derive.StepOriginAdvanceErr, derive.StepFailed:
			if err := a.handleStepError(ctx, err); err != nil {
				if errors.Is(err, errYield) {
					return nil, errYield
				}
				return nil, err
			}
		}

		if attrs := a.pipeline.Next(); attrs != nil {
			return attrs, nil
		}
	}
}

// handleStepError classifies a failed Step's error and either resets the
// pipeline and returns nil (so the caller retries), returns errYield to
// pause until more data shows up, or returns the error verbatim if it's
// fatal.
func (a *DerivationActor) handleStepError(ctx context.Context, err error) error {
	pe, ok := rollup.AsPipelineError(err)
	if !ok {
		return fmt.Errorf("unclassified pipeline error: %w", err)
	}

	switch pe.Kind() {
	case rollup.KindTemporary:
		if errors.Is(pe.Unwrap(), rollup.ErrNotEnoughData) {
			// Not enough data is transient and doesn't mean the source is
			// exhausted; keep stepping.
			return nil
		}
		a.log.Debug("exhausted data source for now, yielding until the chain extends")
		return errYield

	case rollup.KindReset:
		return a.handleReset(ctx, pe)

	case rollup.KindCritical:
		a.log.Error("critical derivation error", "err", pe.Unwrap())
		return pe

	default:
		return pe
	}
}

func (a *DerivationActor) handleReset(ctx context.Context, pe *rollup.PipelineError) error {
	sysCfg, err := a.pipeline.SystemConfigByNumber(ctx, a.l2SafeHead.Number)
	if err != nil {
		return fmt.Errorf("failed to look up system config for reset: %w", err)
	}

	l1Origin := a.pipeline.Origin()
	if l1Origin == (eth.BlockInfo{}) {
		return rollup.NewCriticalError(rollup.ErrMissingOrigin)
	}

	var holoceneActivation bool
	var haErr *rollup.HoloceneActivationError
	if errors.As(pe.Unwrap(), &haErr) {
		holoceneActivation = true
	} else {
		var reorgErr *rollup.ReorgDetectedError
		if errors.As(pe.Unwrap(), &reorgErr) {
			a.log.Warn("L1 reorg detected", "expected", reorgErr.Expected, "new", reorgErr.New)
		}
	}

	var signal rollup.Signal
	if holoceneActivation {
		a.metrics.RecordPipelineReset("holocene-activation")
		signal = rollup.ActivationSignal{L2SafeHead: a.l2SafeHead, L1Origin: l1Origin, SystemConfig: sysCfg}
	} else {
		a.log.Warn("derivation pipeline is being reset", "err", pe.Unwrap())
		a.metrics.RecordPipelineReset("reset")
		signal = rollup.ResetSignal{L2SafeHead: a.l2SafeHead, L1Origin: l1Origin, SystemConfig: sysCfg}
	}

	if err := a.pipeline.Signal(ctx, signal); err != nil {
		return fmt.Errorf("failed to apply reset signal: %w", err)
	}
	return nil
}
