package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akeren/go-waitlist/pkg/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name string
	err  error

	mu    sync.Mutex
	calls []Subscriber
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, s Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	return f.err
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type panickingNotifier struct{}

func (panickingNotifier) Name() string { return "panicky" }
func (panickingNotifier) Notify(context.Context, Subscriber) error {
	panic("boom")
}

func TestDispatcher_FailureDoesNotStopOtherNotifiers(t *testing.T) {
	failing := &fakeNotifier{name: "failing", err: errors.New("service unavailable")}
	healthy := &fakeNotifier{name: "healthy"}

	d := NewDispatcher(DispatcherConfig{Registerer: prometheus.NewRegistry()}, failing, healthy)
	d.Dispatch(context.Background(), Subscriber{Email: "a@example.com"})

	assert.Equal(t, 1, failing.callCount())
	assert.Equal(t, 1, healthy.callCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(d.total.WithLabelValues("failing", outcomeFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(d.total.WithLabelValues("healthy", outcomeSuccess)))
}

func TestDispatcher_OpenCircuitSkipsNotifier(t *testing.T) {
	failing := &fakeNotifier{name: "failing", err: errors.New("connection refused")}

	d := NewDispatcher(DispatcherConfig{
		Breaker: &circuitbreaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, SuccessThreshold: 1},
	}, failing)

	d.Dispatch(context.Background(), Subscriber{Email: "a@example.com"})
	d.Dispatch(context.Background(), Subscriber{Email: "b@example.com"})

	assert.Equal(t, 1, failing.callCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(d.total.WithLabelValues("failing", outcomeSkipped)))
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	healthy := &fakeNotifier{name: "healthy"}
	d := NewDispatcher(DispatcherConfig{}, panickingNotifier{}, healthy)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), Subscriber{Email: "a@example.com"})
	})
	assert.Equal(t, 1, healthy.callCount())
}

func TestDispatcher_AsyncSurvivesCancelledRequest(t *testing.T) {
	healthy := &fakeNotifier{name: "healthy"}
	d := NewDispatcher(DispatcherConfig{Async: true}, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Subscriber{Email: "a@example.com"})
	cancel()

	require.NoError(t, d.Drain(context.Background()))
	assert.Equal(t, 1, healthy.callCount())
}

// ctxCheckingNotifier fails when its context is already done.
type ctxCheckingNotifier struct{ deadline bool }

func (*ctxCheckingNotifier) Name() string { return "ctx-checking" }

func (n *ctxCheckingNotifier) Notify(ctx context.Context, _ Subscriber) error {
	_, n.deadline = ctx.Deadline()
	return ctx.Err()
}

func TestDispatcher_SyncIgnoresCallerCancellation(t *testing.T) {
	reg := prometheus.NewRegistry()
	notifier := &ctxCheckingNotifier{}
	d := NewDispatcher(DispatcherConfig{Timeout: time.Second, Registerer: reg}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, Subscriber{Email: "a@example.com"})

	assert.True(t, notifier.deadline)
	assert.Equal(t, float64(1), testutil.ToFloat64(d.total.WithLabelValues("ctx-checking", outcomeSuccess)))
}

type blockingNotifier struct{ release chan struct{} }

func (blockingNotifier) Name() string { return "blocking" }

func (b blockingNotifier) Notify(context.Context, Subscriber) error {
	<-b.release
	return nil
}

func TestDispatcher_DrainHonoursDeadline(t *testing.T) {
	blocker := blockingNotifier{release: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{Async: true, Timeout: time.Minute}, blocker)
	d.Dispatch(context.Background(), Subscriber{Email: "slow@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Drain(ctx), context.DeadlineExceeded)

	close(blocker.release)
	assert.NoError(t, d.Drain(context.Background()))
}

func TestDispatcher_NilAndEmpty(t *testing.T) {
	var d *Dispatcher
	assert.Equal(t, 0, d.Len())
	assert.NotPanics(t, func() { d.Dispatch(context.Background(), Subscriber{}) })
	assert.NoError(t, d.Drain(context.Background()))

	empty := NewDispatcher(DispatcherConfig{}, nil)
	assert.Equal(t, 0, empty.Len())
}

func TestDispatcher_SharesCounterAcrossRegistrations(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewDispatcher(DispatcherConfig{Registerer: reg}, &fakeNotifier{name: "n"})
	second := NewDispatcher(DispatcherConfig{Registerer: reg}, &fakeNotifier{name: "n"})

	first.Dispatch(context.Background(), Subscriber{Email: "a@example.com"})
	second.Dispatch(context.Background(), Subscriber{Email: "b@example.com"})

	assert.Equal(t, float64(2), testutil.ToFloat64(second.total.WithLabelValues("n", outcomeSuccess)))
}
