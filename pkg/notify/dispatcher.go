package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akeren/go-waitlist/pkg/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultTimeout = 5 * time.Second

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "circuit_open"
)

type DispatcherConfig struct {
	// Timeout bounds each provider call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Async dispatches in a background goroutine detached from the caller's
	// cancellation.
	Async      bool
	Breaker    *circuitbreaker.Config
	Registerer prometheus.Registerer
	Logger     Logger
}

type guardedNotifier struct {
	notifier Notifier
	breaker  circuitbreaker.CircuitBreaker
}

// Dispatcher fans a subscriber out to every registered notifier. It never
// returns provider errors to its caller.
type Dispatcher struct {
	notifiers []guardedNotifier
	timeout   time.Duration
	async     bool
	logger    Logger
	total     *prometheus.CounterVec
	inflight  sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, notifiers ...Notifier) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := &Dispatcher{
		timeout: timeout,
		async:   cfg.Async,
		logger:  cfg.Logger,
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_notifications_total",
				Help: "Signup notifications by provider and outcome.",
			},
			[]string{"notifier", "outcome"},
		),
	}

	if cfg.Registerer != nil {
		if err := cfg.Registerer.Register(d.total); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					d.total = existing
				}
			}
		}
	}

	for _, n := range notifiers {
		if n == nil {
			continue
		}
		d.notifiers = append(d.notifiers, guardedNotifier{
			notifier: n,
			breaker:  circuitbreaker.NewCircuitBreaker(d.breakerConfig(cfg.Breaker, n.Name())),
		})
	}

	return d
}

// breakerConfig gives each notifier its own copy of base with transition logging.
func (d *Dispatcher) breakerConfig(base *circuitbreaker.Config, name string) *circuitbreaker.Config {
	cfg := *circuitbreaker.DefaultConfig()
	if base != nil {
		cfg = *base
	}
	cfg.OnStateChange = func(from, to circuitbreaker.CircuitState) {
		d.logWarn("Notifier circuit changed state", "notifier", name, "from", from.String(), "to", to.String())
	}
	return &cfg
}

// Len reports how many notifiers are registered.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.notifiers)
}

// Dispatch notifies every provider about a new subscriber. Provider calls
// keep the caller's values but not its cancellation; each is bounded by the
// dispatcher timeout instead, so a client hanging up does not abort them.
func (d *Dispatcher) Dispatch(ctx context.Context, subscriber Subscriber) {
	if d.Len() == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	if d.async {
		d.inflight.Go(func() { d.dispatch(detached, subscriber) })
		return
	}

	d.dispatch(detached, subscriber)
}

// Drain waits for background dispatches started in async mode. It returns
// ctx.Err() if they are still running when ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if d == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, subscriber Subscriber) {
	for _, g := range d.notifiers {
		d.notifyOne(ctx, g, subscriber)
	}
}

func (d *Dispatcher) notifyOne(ctx context.Context, g guardedNotifier, subscriber Subscriber) {
	name := g.notifier.Name()

	// Recover so a misbehaving provider cannot take the request down with it.
	defer func() {
		if r := recover(); r != nil {
			d.total.WithLabelValues(name, outcomeFailure).Inc()
			d.logError("Notifier panicked", "notifier", name, "panic", r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := g.breaker.Call(func() error {
		return g.notifier.Notify(callCtx, subscriber)
	})

	switch {
	case err == nil:
		d.total.WithLabelValues(name, outcomeSuccess).Inc()
		d.logInfo("Subscriber notified", "notifier", name, "email", subscriber.Email)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		d.total.WithLabelValues(name, outcomeSkipped).Inc()
		d.logWarn("Notifier skipped, circuit open", "notifier", name, "email", subscriber.Email)
	default:
		d.total.WithLabelValues(name, outcomeFailure).Inc()
		d.logError("Failed to notify subscriber", "notifier", name, "email", subscriber.Email, "error", err)
	}
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Dispatcher) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Dispatcher) logError(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Error(msg, args...)
	}
}
