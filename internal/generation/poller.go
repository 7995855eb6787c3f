package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// Policy bounds the status polling loop.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPolicy checks every 5 seconds for at most 60 attempts.
func DefaultPolicy() Policy {
	return Policy{Interval: DefaultPollInterval, MaxAttempts: DefaultMaxAttempts}
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// Bound is the total wall-clock budget implied by the policy.
func (p Policy) Bound() time.Duration {
	p = p.withDefaults()
	return p.Interval * time.Duration(p.MaxAttempts)
}

// StatusFunc performs one idempotent status read.
type StatusFunc func(ctx context.Context, id string) (domain.GenerationResult, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller drives a generation from pending to a terminal state.
type Poller struct {
	policy  Policy
	sleep   SleepFunc
	logger  *infra.Logger
	observe func(attempts int)
}

// NewPoller builds a poller; nil sleep uses SleepContext and nil logger discards.
func NewPoller(policy Policy, sleep SleepFunc, logger *infra.Logger) *Poller {
	if sleep == nil {
		sleep = SleepContext
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Poller{policy: policy.withDefaults(), sleep: sleep, logger: logger}
}

// Policy returns the effective policy.
func (p *Poller) Policy() Policy {
	return p.policy
}

// Wait reads status until the generation completes or fails. A status error
// is tolerated on every attempt but the last, where it is returned. Reaching
// the attempt cap yields an ErrTimeout error.
func (p *Poller) Wait(ctx context.Context, id string, status StatusFunc) (domain.GenerationResult, error) {
	var last domain.GenerationResult
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		res, err := status(ctx, id)
		switch {
		case err != nil:
			if errors.Is(err, domain.ErrConfiguration) {
				p.done(attempt)
				return last, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.done(attempt)
				return last, ctxErr
			}
			if attempt == p.policy.MaxAttempts {
				p.done(attempt)
				return last, asPollError(err)
			}
			p.logger.Warn().Err(err).
				Str("generation_id", id).
				Int("attempt", attempt).
				Msg("generation: status check failed, retrying")
		case res.State == domain.StateCompleted:
			p.done(attempt)
			return res, nil
		case res.State == domain.StateFailed:
			p.done(attempt)
			return res, FailureError(res)
		default:
			last = res
		}

		if attempt < p.policy.MaxAttempts {
			if err := p.sleep(ctx, p.policy.Interval); err != nil {
				p.done(attempt)
				return last, err
			}
		}
	}
	p.done(p.policy.MaxAttempts)
	return last, &domain.GenerationError{
		Kind:    domain.KindTimeout,
		Message: fmt.Sprintf("generation %s timed out after %s (%d status checks)", id, humanDuration(p.policy.Bound()), p.policy.MaxAttempts),
	}
}

func (p *Poller) done(attempts int) {
	if p.observe != nil {
		p.observe(attempts)
	}
}

// FailureError converts a provider-reported failure into ErrGenerationFailed,
// keeping failure_reason verbatim.
func FailureError(res domain.GenerationResult) error {
	msg := res.FailureReason
	if msg == "" {
		msg = "generation failed"
	}
	return &domain.GenerationError{Kind: domain.KindGenerationFailed, Message: msg}
}

func asPollError(err error) error {
	if domain.KindOf(err) != 0 {
		return err
	}
	return &domain.GenerationError{Kind: domain.KindProviderPoll, Message: err.Error(), Err: err}
}

func humanDuration(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d >= time.Second && d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
	return d.String()
}
