package derive

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
	"github.com/latticefold/op-derive-node/op-service/metrics"
)

// DerivationPipeline wires the eight stages into one L1Traversal-to-
// AttributesQueue chain and drives it one Step at a time. Mirrors the
// structure of kona's derivation pipeline (originalSource's
// crates/protocol/derive/src/pipeline) without its generic stage-type
// parameterization — see Stage's doc comment.
type DerivationPipeline struct {
	log log.Logger
	cfg *rollup.Config

	traversal *L1Traversal
	attrs     *AttributesQueue

	l2 L2ChainProvider

	prepared *AttributesWithParent
}

// PipelineBuilder assembles a DerivationPipeline from its collaborators,
// in the same spirit as the Rust source's PipelineBuilder: each With*
// method supplies one dependency, Build constructs the stage chain.
type PipelineBuilder struct {
	log     log.Logger
	cfg     *rollup.Config
	chain   ChainProvider
	l2chain L2ChainProvider
	dap     DataAvailabilityProvider
	attrsFn AttributesBuilder
	metrics metrics.DerivationMetricer
}

func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{}
}

func (b *PipelineBuilder) WithLogger(l log.Logger) *PipelineBuilder {
	b.log = l
	return b
}

func (b *PipelineBuilder) WithRollupConfig(cfg *rollup.Config) *PipelineBuilder {
	b.cfg = cfg
	return b
}

func (b *PipelineBuilder) WithChainProvider(c ChainProvider) *PipelineBuilder {
	b.chain = c
	return b
}

func (b *PipelineBuilder) WithL2ChainProvider(c L2ChainProvider) *PipelineBuilder {
	b.l2chain = c
	return b
}

func (b *PipelineBuilder) WithDataAvailabilityProvider(d DataAvailabilityProvider) *PipelineBuilder {
	b.dap = d
	return b
}

func (b *PipelineBuilder) WithAttributesBuilder(a AttributesBuilder) *PipelineBuilder {
	b.attrsFn = a
	return b
}

func (b *PipelineBuilder) WithMetrics(m metrics.DerivationMetricer) *PipelineBuilder {
	b.metrics = m
	return b
}

func (b *PipelineBuilder) Build() (*DerivationPipeline, error) {
	if b.log == nil {
		b.log = log.Root()
	}
	if b.cfg == nil {
		return nil, errors.New("pipeline builder: rollup config is required")
	}
	if b.chain == nil || b.l2chain == nil || b.dap == nil || b.attrsFn == nil {
		return nil, errors.New("pipeline builder: chain, L2 chain, DA, and attributes-builder providers are all required")
	}
	if b.metrics == nil {
		b.metrics = metrics.NoopMetrics{}
	}

	traversal := NewL1Traversal(b.log, b.cfg, b.chain)
	retrieval := NewL1Retrieval(b.log, traversal, b.dap)
	frameQueue := NewFrameQueue(b.log, b.cfg, retrieval).WithMetrics(b.metrics)
	channelProvider := NewChannelProvider(b.log, b.cfg, frameQueue).WithMetrics(b.metrics)
	channelReader := NewChannelReader(b.log, b.cfg, channelProvider)
	batchStream := NewBatchStream(b.log, b.cfg, channelReader)
	batchProvider := NewBatchProvider(b.log, b.cfg, batchStream).WithMetrics(b.metrics)
	attrsQueue := NewAttributesQueue(b.log, b.cfg, batchProvider, b.attrsFn)

	return &DerivationPipeline{
		log:       b.log.New("component", "derivation-pipeline"),
		cfg:       b.cfg,
		traversal: traversal,
		attrs:     attrsQueue,
		l2:        b.l2chain,
	}, nil
}

// Origin reports the L1 block the pipeline's upstream end (L1Traversal) is
// currently positioned at.
func (p *DerivationPipeline) Origin() eth.BlockInfo {
	return p.traversal.Origin()
}

// Next returns and clears the attributes prepared by the most recent
// StepPreparedAttributes step, or nil if none are pending.
func (p *DerivationPipeline) Next() *AttributesWithParent {
	out := p.prepared
	p.prepared = nil
	return out
}

// Step drives the pipeline once: it first pushes the caller's current L2
// safe head into every stage via ProvideBlockSignal, so AttributesQueue,
// BatchProvider, and BatchStream all validate the next candidate against
// the block the engine actually has, not a stale one cached from the last
// Reset/Activation (matches the Rust source's self.pipeline.step(self.
// l2_safe_head) at originalSource's actors/derivation.rs). It then asks the
// outermost stage (AttributesQueue) for the next attributes, and when the
// chain reports it has run out of derivable data for the current L1
// origin, advances L1Traversal to pull in the next block instead. The
// returned error is always nil on StepPreparedAttributes/StepAdvancedOrigin,
// and always a *rollup.PipelineError otherwise, so callers can switch on
// its Kind().
func (p *DerivationPipeline) Step(ctx context.Context, safeHead eth.L2BlockRef) (StepResult, error) {
	if err := p.attrs.Signal(ctx, rollup.ProvideBlockSignal{Block: safeHead}); err != nil {
		return StepFailed, rollup.NewCriticalError(err)
	}
	p.prepared = nil

	attrs, err := p.attrs.NextAttributes(ctx)
	if err == nil {
		p.prepared = attrs
		return StepPreparedAttributes, nil
	}

	pe, ok := rollup.AsPipelineError(err)
	if !ok {
		return StepFailed, rollup.NewCriticalError(err)
	}

	if pe.Kind() != rollup.KindTemporary {
		return StepFailed, pe
	}

	if advErr := p.traversal.Advance(ctx); advErr != nil {
		if advPe, ok := rollup.AsPipelineError(advErr); ok {
			return StepOriginAdvanceErr, advPe
		}
		return StepOriginAdvanceErr, rollup.NewCriticalError(advErr)
	}
	return StepAdvancedOrigin, nil
}

// Signal fans a control signal out across every stage, outermost first;
// each stage forwards it to its upstream neighbor after handling its own
// state, so a single call here reaches all eight stages in order.
func (p *DerivationPipeline) Signal(ctx context.Context, signal rollup.Signal) error {
	p.prepared = nil
	return p.attrs.Signal(ctx, signal)
}

// SystemConfigByNumber answers the actor's system-config lookups (needed
// when resetting to a safe head produced before this process started) by
// delegating to the L2 chain provider.
func (p *DerivationPipeline) SystemConfigByNumber(ctx context.Context, number uint64) (eth.SystemConfig, error) {
	return p.l2.SystemConfigByNumber(ctx, number)
}
