// Package fetch runs the long-lived telemetry fetchers. Each fetcher owns
// one subscription to one telemetry category and writes its fields into the
// shared store; a broken subscription is recorded, waited out, and reopened
// without disturbing any other fetcher.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/looplab/fsm"

	"github.com/uavlog/groundstation/internal/drone"
	"github.com/uavlog/groundstation/internal/errlog"
)

// DefaultRetryDelay is how long a fetcher waits after a subscription failure
// before resubscribing.
const DefaultRetryDelay = time.Second

// Fetcher lifecycle states.
const (
	StateSubscribing = "subscribing"
	StateConsuming   = "consuming"
	StateFaulted     = "faulted"
)

const (
	eventSubscribed = "subscribed"
	eventFault      = "fault"
	eventRetry      = "retry"
)

// Runner is one telemetry category fetcher, ready to run for the life of a
// session.
type Runner interface {
	// Run consumes the category's updates until ctx is done. It never
	// returns on a subscription failure; those are contained and retried.
	Run(ctx context.Context) error

	// Category names the telemetry category, e.g. "position".
	Category() string

	// State reports the current lifecycle state.
	State() string
}

// Option configures a Fetcher.
type Option[T any] func(*Fetcher[T])

// WithLogger sets the logger for the fetcher.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(f *Fetcher[T]) {
		f.logger = logger.With(slog.String("fetcher", f.category))
	}
}

// WithRetryDelay sets the delay between a subscription failure and the next
// subscription attempt.
func WithRetryDelay[T any](delay time.Duration) Option[T] {
	return func(f *Fetcher[T]) {
		f.retryDelay = delay
	}
}

// Fetcher consumes one category's update stream and applies every item to
// the shared store. Its lifecycle is the three-state loop
// subscribing -> consuming -> faulted -> subscribing, driven forever until
// the session context is cancelled.
type Fetcher[T any] struct {
	category string
	title    string

	subscribe func(ctx context.Context) (drone.Stream[T], error)
	apply     func(item T)

	errors     *errlog.Log
	logger     *slog.Logger
	retryDelay time.Duration

	machine *fsm.FSM
}

// New creates a fetcher for one category. The title is used in error log
// entries ("<title> fetch error: ..."); apply is called for every received
// item.
func New[T any](category, title string, subscribe func(ctx context.Context) (drone.Stream[T], error), apply func(item T), errors *errlog.Log, options ...Option[T]) *Fetcher[T] {
	f := Fetcher[T]{
		category:   category,
		title:      title,
		subscribe:  subscribe,
		apply:      apply,
		errors:     errors,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		retryDelay: DefaultRetryDelay,
	}

	f.machine = fsm.NewFSM(
		StateSubscribing,
		fsm.Events{
			{Name: eventSubscribed, Src: []string{StateSubscribing}, Dst: StateConsuming},
			{Name: eventFault, Src: []string{StateSubscribing, StateConsuming}, Dst: StateFaulted},
			{Name: eventRetry, Src: []string{StateFaulted}, Dst: StateSubscribing},
		},
		fsm.Callbacks{},
	)

	for _, option := range options {
		option(&f)
	}

	return &f
}

// Category implements Runner.
func (f *Fetcher[T]) Category() string {
	return f.category
}

// State implements Runner.
func (f *Fetcher[T]) State() string {
	return f.machine.Current()
}

// Run implements Runner. It returns only once ctx is done.
func (f *Fetcher[T]) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stream, err := f.subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err = f.fault(ctx, err); err != nil {
				return err
			}
			continue
		}

		_ = f.machine.Event(ctx, eventSubscribed)
		f.logger.Debug("subscribed")

		if err = f.consume(ctx, stream); err != nil {
			return err
		}
	}
}

// consume drains one stream until it fails, then transitions through the
// faulted state. A non-nil return means the session context is done.
func (f *Fetcher[T]) consume(ctx context.Context, stream drone.Stream[T]) error {
	defer stream.Close()

	for {
		item, err := stream.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return f.fault(ctx, err)
		}

		f.apply(item)
	}
}

// fault records the failure, waits out the retry delay and re-enters the
// subscribing state.
func (f *Fetcher[T]) fault(ctx context.Context, cause error) error {
	_ = f.machine.Event(ctx, eventFault)

	f.errors.Recordf("%s fetch error: %s", f.title, cause.Error())
	f.logger.Warn("subscription failed, retrying", slog.String("error", cause.Error()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.retryDelay):
	}

	_ = f.machine.Event(ctx, eventRetry)
	return nil
}
