package generation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
	"dreamlab/internal/metrics"
	"dreamlab/internal/providers/image"
)

// Options wires the orchestrator. Every model in the domain table must find
// an adapter for its provider and family.
type Options struct {
	Sync   []image.SyncAdapter
	Async  []image.AsyncAdapter
	Policy Policy
	Sleep  SleepFunc
	Now    func() time.Time
	Logger *infra.Logger
}

type binding struct {
	spec  domain.ModelSpec
	sync  image.SyncAdapter
	async image.AsyncAdapter
}

// Orchestrator is the single entry point for image generation.
type Orchestrator struct {
	bindings map[domain.Model]binding
	status   image.AsyncAdapter
	poller   *Poller
	now      func() time.Time
	logger   *infra.Logger
}

// New binds every model to its adapter.
func New(opts Options) (*Orchestrator, error) {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	syncByProvider := make(map[domain.Provider]image.SyncAdapter, len(opts.Sync))
	for _, a := range opts.Sync {
		if a != nil {
			syncByProvider[a.Provider()] = a
		}
	}
	asyncByProvider := make(map[domain.Provider]image.AsyncAdapter, len(opts.Async))
	for _, a := range opts.Async {
		if a != nil {
			asyncByProvider[a.Provider()] = a
		}
	}

	o := &Orchestrator{
		bindings: make(map[domain.Model]binding),
		now:      now,
		logger:   logger,
	}
	for _, spec := range domain.Models() {
		b := binding{spec: spec}
		switch spec.Family {
		case domain.FamilySync:
			b.sync = syncByProvider[spec.Provider]
			if b.sync == nil {
				return nil, fmt.Errorf("generation: no sync adapter for provider %q (model %s)", spec.Provider, spec.ID)
			}
		case domain.FamilyAsync:
			b.async = asyncByProvider[spec.Provider]
			if b.async == nil {
				return nil, fmt.Errorf("generation: no async adapter for provider %q (model %s)", spec.Provider, spec.ID)
			}
			if o.status == nil {
				o.status = b.async
			}
		default:
			return nil, fmt.Errorf("generation: model %s has unknown family %v", spec.ID, spec.Family)
		}
		o.bindings[spec.ID] = b
	}
	o.poller = NewPoller(opts.Policy, opts.Sleep, logger)
	o.poller.observe = func(attempts int) { metrics.PollAttempts.Observe(float64(attempts)) }
	return o, nil
}

// Policy exposes the polling policy in effect.
func (o *Orchestrator) Policy() Policy {
	return o.poller.Policy()
}

// Generate dispatches req and, for asynchronous providers, polls until a
// terminal state. It never returns a pending or dreaming result.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	start := o.now()
	b, req, err := o.resolve(req)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	res, err := o.dispatch(ctx, b, req)
	if err == nil && b.spec.Family == domain.FamilyAsync {
		switch res.State {
		case domain.StateCompleted:
		case domain.StateFailed:
			err = FailureError(res)
		default:
			res, err = o.poller.Wait(ctx, res.ID, b.async.Status)
		}
	}
	o.record(b.spec, start, res, err)
	if err != nil {
		return res, err
	}
	return res, nil
}

// Dispatch performs only the creating call. Synchronous models come back
// completed; asynchronous ones come back as the provider reported them.
func (o *Orchestrator) Dispatch(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	b, req, err := o.resolve(req)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	res, err := o.dispatch(ctx, b, req)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(string(b.spec.ID), outcome(err)).Inc()
		return domain.GenerationResult{}, err
	}
	if res.State.Terminal() {
		metrics.GenerationsTotal.WithLabelValues(string(b.spec.ID), string(res.State)).Inc()
	}
	return res, nil
}

// GetStatus reads the current state of an asynchronous generation without
// re-dispatching it. Synchronous ids are rejected without a network call.
func (o *Orchestrator) GetStatus(ctx context.Context, id string) (domain.GenerationResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.GenerationResult{}, fmt.Errorf("%w: generation id is required", domain.ErrInvalidRequest)
	}
	if strings.HasPrefix(id, image.SyncIDPrefix) {
		return domain.GenerationResult{}, fmt.Errorf("%w: %s", domain.ErrSynchronousID, id)
	}
	if o.status == nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: no asynchronous provider configured", domain.ErrInvalidRequest)
	}
	return o.status.Status(ctx, id)
}

func (o *Orchestrator) resolve(req domain.GenerationRequest) (binding, domain.GenerationRequest, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return binding{}, req, err
	}
	b, ok := o.bindings[req.Model]
	if !ok {
		return binding{}, req, fmt.Errorf("%w: unsupported model %q", domain.ErrInvalidRequest, req.Model)
	}
	return b, req, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, b binding, req domain.GenerationRequest) (domain.GenerationResult, error) {
	o.logger.Info().
		Str("model", string(b.spec.ID)).
		Str("provider", string(b.spec.Provider)).
		Str("family", b.spec.Family.String()).
		Str("aspect_ratio", req.AspectRatio).
		Msg("generation: dispatch")
	if b.spec.Family == domain.FamilySync {
		return b.sync.Generate(ctx, req, b.spec)
	}
	return b.async.Submit(ctx, req, b.spec)
}

func (o *Orchestrator) record(spec domain.ModelSpec, start time.Time, res domain.GenerationResult, err error) {
	label := string(res.State)
	if err != nil {
		label = outcome(err)
	}
	metrics.GenerationsTotal.WithLabelValues(string(spec.ID), label).Inc()
	if res.State.Terminal() {
		metrics.GenerationDuration.WithLabelValues(string(spec.ID)).Observe(o.now().Sub(start).Seconds())
	}
	event := o.logger.Info()
	if err != nil {
		event = o.logger.Warn().Err(err)
	}
	event.
		Str("model", string(spec.ID)).
		Str("generation_id", res.ID).
		Str("state", string(res.State)).
		Str("outcome", label).
		Msg("generation: finished")
}

func outcome(err error) string {
	if kind := domain.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}
