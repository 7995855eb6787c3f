package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dreamlab/internal/domain"
	"dreamlab/internal/providers/image"
)

type fakeSync struct {
	calls int
	got   domain.GenerationRequest
	spec  domain.ModelSpec
	res   domain.GenerationResult
	err   error
}

func (f *fakeSync) Provider() domain.Provider { return domain.ProviderOpenAI }

func (f *fakeSync) Generate(_ context.Context, req domain.GenerationRequest, spec domain.ModelSpec) (domain.GenerationResult, error) {
	f.calls++
	f.got = req
	f.spec = spec
	return f.res, f.err
}

type statusStep struct {
	state  domain.State
	reason string
	err    error
}

type fakeAsync struct {
	submitted   int
	submitRes   domain.GenerationResult
	submitErr   error
	steps       []statusStep
	statusCalls int
}

func (f *fakeAsync) Provider() domain.Provider { return domain.ProviderLuma }

func (f *fakeAsync) Submit(_ context.Context, req domain.GenerationRequest, spec domain.ModelSpec) (domain.GenerationResult, error) {
	f.submitted++
	if f.submitErr != nil {
		return domain.GenerationResult{}, f.submitErr
	}
	res := f.submitRes
	if res.ID == "" {
		res = domain.GenerationResult{ID: "gen-1", State: domain.StatePending, Model: spec.ID}
	}
	return res, nil
}

func (f *fakeAsync) Status(_ context.Context, id string) (domain.GenerationResult, error) {
	idx := f.statusCalls
	f.statusCalls++
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	step := f.steps[idx]
	if step.err != nil {
		return domain.GenerationResult{}, step.err
	}
	res := domain.GenerationResult{ID: id, State: step.state, FailureReason: step.reason}
	if step.state == domain.StateCompleted {
		res.URL = "https://cdn.luma/" + id + ".jpg"
		res.Assets = &domain.Assets{Image: res.URL}
	}
	return res, nil
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return nil
}

func newTestOrchestrator(t *testing.T, sync *fakeSync, async *fakeAsync, rec *sleepRecorder) *Orchestrator {
	t.Helper()
	o, err := New(Options{
		Sync:   []image.SyncAdapter{sync},
		Async:  []image.AsyncAdapter{async},
		Policy: DefaultPolicy(),
		Sleep:  rec.sleep,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestGenerateSyncReturnsCompletedWithoutPolling(t *testing.T) {
	sync := &fakeSync{res: domain.GenerationResult{
		ID:     "openai-abc",
		State:  domain.StateCompleted,
		URL:    "https://cdn.example.com/fox.png",
		Assets: &domain.Assets{Image: "https://cdn.example.com/fox.png"},
	}}
	async := &fakeAsync{}
	rec := &sleepRecorder{}
	o := newTestOrchestrator(t, sync, async, rec)

	res, err := o.Generate(context.Background(), domain.GenerationRequest{
		Prompt: "a red fox", AspectRatio: "16:9", Model: domain.ModelDallE3, Quality: domain.QualityHD,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.State != domain.StateCompleted || res.URL == "" || res.Assets.Image != res.URL {
		t.Fatalf("unexpected result: %#v", res)
	}
	if sync.calls != 1 || sync.spec.ID != domain.ModelDallE3 {
		t.Fatalf("sync adapter not dispatched: calls=%d spec=%v", sync.calls, sync.spec.ID)
	}
	if async.submitted != 0 || async.statusCalls != 0 || len(rec.sleeps) != 0 {
		t.Fatalf("sync generation must not poll")
	}
}

func TestGenerateAsyncPollsUntilCompleted(t *testing.T) {
	async := &fakeAsync{steps: []statusStep{
		{state: domain.StateDreaming},
		{state: domain.StateDreaming},
		{state: domain.StateDreaming},
		{state: domain.StateCompleted},
	}}
	rec := &sleepRecorder{}
	o := newTestOrchestrator(t, &fakeSync{}, async, rec)

	res, err := o.Generate(context.Background(), domain.GenerationRequest{Prompt: "a lighthouse", Model: domain.ModelPhoton})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.State != domain.StateCompleted || res.URL != "https://cdn.luma/gen-1.jpg" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if async.statusCalls != 4 {
		t.Fatalf("status calls = %d, want 4", async.statusCalls)
	}
	if len(rec.sleeps) != 3 {
		t.Fatalf("sleeps = %d, want 3", len(rec.sleeps))
	}
	for _, d := range rec.sleeps {
		if d != 5*time.Second {
			t.Fatalf("sleep = %s, want 5s", d)
		}
	}
}

func TestGenerateAsyncFailureKeepsReason(t *testing.T) {
	async := &fakeAsync{steps: []statusStep{
		{state: domain.StateDreaming},
		{state: domain.StateFailed, reason: "nsfw content"},
	}}
	o := newTestOrchestrator(t, &fakeSync{}, async, &sleepRecorder{})

	_, err := o.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Model: domain.ModelPhotonFlash})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failed, got %v", err)
	}
	if err.Error() != "nsfw content" {
		t.Fatalf("message = %q, want verbatim reason", err.Error())
	}
	if async.statusCalls != 2 {
		t.Fatalf("failed must stop polling, status calls = %d", async.statusCalls)
	}
}

func TestGenerateAsyncTimesOutAfterCap(t *testing.T) {
	async := &fakeAsync{steps: []statusStep{{state: domain.StateDreaming}}}
	rec := &sleepRecorder{}
	o := newTestOrchestrator(t, &fakeSync{}, async, rec)

	_, err := o.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Model: domain.ModelPhoton})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "5 minutes") {
		t.Fatalf("timeout message should state the bound: %q", err.Error())
	}
	if async.statusCalls != DefaultMaxAttempts {
		t.Fatalf("status calls = %d, want %d", async.statusCalls, DefaultMaxAttempts)
	}
	if len(rec.sleeps) != DefaultMaxAttempts-1 {
		t.Fatalf("sleeps = %d, want %d", len(rec.sleeps), DefaultMaxAttempts-1)
	}
}

func TestGenerateAsyncToleratesTransientPollErrors(t *testing.T) {
	transient := &domain.GenerationError{Kind: domain.KindProviderPoll, Message: "luma: status 503: busy"}
	async := &fakeAsync{steps: []statusStep{
		{err: transient},
		{state: domain.StateDreaming},
		{err: transient},
		{state: domain.StateCompleted},
	}}
	o := newTestOrchestrator(t, &fakeSync{}, async, &sleepRecorder{})

	res, err := o.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Model: domain.ModelPhoton})
	if err != nil {
		t.Fatalf("transient errors should be retried: %v", err)
	}
	if res.State != domain.StateCompleted {
		t.Fatalf("state = %s", res.State)
	}
}

func TestGenerateAsyncPropagatesErrorOnFinalAttempt(t *testing.T) {
	steps := make([]statusStep, 0, 3)
	steps = append(steps, statusStep{state: domain.StateDreaming}, statusStep{state: domain.StateDreaming})
	steps = append(steps, statusStep{err: errors.New("connection reset")})
	async := &fakeAsync{steps: steps}
	o, err := New(Options{
		Sync:   []image.SyncAdapter{&fakeSync{}},
		Async:  []image.AsyncAdapter{async},
		Policy: Policy{Interval: time.Second, MaxAttempts: 3},
		Sleep:  (&sleepRecorder{}).sleep,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = o.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Model: domain.ModelPhoton})
	if !errors.Is(err, domain.ErrProviderPoll) {
		t.Fatalf("expected poll error on final attempt, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("final attempt error must not be reported as timeout")
	}
}

func TestGenerateSubmitErrorIsNotPolled(t *testing.T) {
	async := &fakeAsync{submitErr: &domain.GenerationError{Kind: domain.KindProviderRequest, Message: "luma: status 400: bad"}}
	o := newTestOrchestrator(t, &fakeSync{}, async, &sleepRecorder{})

	_, err := o.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Model: domain.ModelPhoton})
	if !errors.Is(err, domain.ErrProviderRequest) {
		t.Fatalf("expected provider request error, got %v", err)
	}
	if async.statusCalls != 0 {
		t.Fatalf("no status call expected after a failed submit")
	}
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSync{}, &fakeAsync{}, &sleepRecorder{})
	cases := []domain.GenerationRequest{
		{Prompt: "   ", Model: domain.ModelDallE3},
		{Prompt: "x", Model: "midjourney"},
		{Prompt: "x", Model: domain.ModelDallE3, AspectRatio: "5:4"},
	}
	for _, req := range cases {
		if _, err := o.Generate(context.Background(), req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("Generate(%#v) err = %v, want invalid request", req, err)
		}
	}
}

func TestDispatchDoesNotPoll(t *testing.T) {
	async := &fakeAsync{steps: []statusStep{{state: domain.StateCompleted}}}
	o := newTestOrchestrator(t, &fakeSync{}, async, &sleepRecorder{})

	res, err := o.Dispatch(context.Background(), domain.GenerationRequest{Prompt: "x", Model: domain.ModelPhoton})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.State != domain.StatePending || res.ID != "gen-1" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if async.statusCalls != 0 {
		t.Fatalf("Dispatch must not poll")
	}
}

func TestGetStatusRejectsSynchronousIDs(t *testing.T) {
	async := &fakeAsync{steps: []statusStep{{state: domain.StateDreaming}}}
	o := newTestOrchestrator(t, &fakeSync{}, async, &sleepRecorder{})

	if _, err := o.GetStatus(context.Background(), "openai-1234"); !errors.Is(err, domain.ErrSynchronousID) {
		t.Fatalf("expected synchronous id error, got %v", err)
	}
	if async.statusCalls != 0 {
		t.Fatalf("no status call expected for synchronous ids")
	}

	res, err := o.GetStatus(context.Background(), "gen-9")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if res.ID != "gen-9" || res.State != domain.StateDreaming {
		t.Fatalf("unexpected status: %#v", res)
	}
}

func TestNewRequiresAdapterForEveryModel(t *testing.T) {
	if _, err := New(Options{Sync: []image.SyncAdapter{&fakeSync{}}}); err == nil {
		t.Fatalf("expected error when async provider is unbound")
	}
	if _, err := New(Options{Async: []image.AsyncAdapter{&fakeAsync{}}}); err == nil {
		t.Fatalf("expected error when sync provider is unbound")
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := NewPoller(Policy{Interval: time.Hour, MaxAttempts: 10}, nil, nil)
	cancel()
	_, err := p.Wait(ctx, "g", func(context.Context, string) (domain.GenerationResult, error) {
		calls++
		return domain.GenerationResult{State: domain.StateDreaming}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestHumanDuration(t *testing.T) {
	cases := map[time.Duration]string{
		5 * time.Minute:         "5 minutes",
		time.Minute:             "1 minute",
		90 * time.Second:        "90 seconds",
		1500 * time.Millisecond: "1.5s",
	}
	for d, want := range cases {
		if got := humanDuration(d); got != want {
			t.Fatalf("humanDuration(%s) = %q, want %q", d, got, want)
		}
	}
}
