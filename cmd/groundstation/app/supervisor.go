package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/uavlog/groundstation/internal/display"
	"github.com/uavlog/groundstation/internal/drone"
	"github.com/uavlog/groundstation/internal/drone/sim"
	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/fetch"
	"github.com/uavlog/groundstation/internal/flightlog"
	"github.com/uavlog/groundstation/internal/storage"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// ErrLinkLost is returned by a session when the vehicle stops reporting a
// connected link. The supervisor restarts the whole session on it.
var ErrLinkLost = errors.New("vehicle link lost")

// Dialer opens a telemetry provider for a link address.
type Dialer func(ctx context.Context, address string) (drone.Provider, error)

// Dial is the default Dialer. The address scheme selects the provider;
// sim:// is served by the built-in simulator.
func Dial(ctx context.Context, address string) (drone.Provider, error) {
	scheme, _, ok := strings.Cut(address, "://")
	if !ok {
		return nil, fmt.Errorf("invalid link address %q", address)
	}

	switch scheme {
	case "sim":
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("unsupported link scheme %q", scheme)
	}
}

// WithDialer overrides how the supervisor opens the vehicle link.
func WithDialer(dial Dialer) func(*Supervisor) {
	return func(s *Supervisor) {
		s.dial = dial
	}
}

// WithArchive attaches a SQLite archive; every session records itself and
// its snapshots there.
func WithArchive(db storage.Store) func(*Supervisor) {
	return func(s *Supervisor) {
		s.archive = db
	}
}

// WithDisplayOutput redirects the live display.
func WithDisplayOutput(w io.Writer) func(*Supervisor) {
	return func(s *Supervisor) {
		s.displayOut = w
	}
}

// Supervisor owns the session lifecycle: connect the link, wait for the
// vehicle, run the eight fetchers and the consumers, and on any session
// failure tear everything down and start over after a delay. Only a link or
// connection level failure has that blast radius; fetcher and consumer
// failures are contained inside their own loops.
type Supervisor struct {
	config *Config
	dial   Dialer
	logger *slog.Logger

	archive    storage.Store
	displayOut io.Writer

	// newState builds the session's shared store and error log. A session
	// never inherits state from the one before it.
	newState func() (*telemetry.Store, *errlog.Log)
}

// NewSupervisor creates a supervisor for the configured link.
func NewSupervisor(config *Config, logger *slog.Logger, options ...func(*Supervisor)) *Supervisor {
	s := Supervisor{
		config: config,
		dial:   Dial,
		logger: logger,
		newState: func() (*telemetry.Store, *errlog.Log) {
			return telemetry.NewStore(), errlog.New(errlog.DefaultCapacity)
		},
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Run keeps sessions alive until ctx is done: each failed session is logged
// and retried after the reconnect delay, with no attempt limit.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Error(fmt.Sprintf("session failed: %s", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(seconds(s.config.Link.ReconnectDelay)):
		}
	}
}

// session runs one full cycle: dial, wait for the vehicle, launch fetchers
// and consumers, and block until one of them reports a session-fatal error
// or ctx is cancelled. The shared store and error log are created fresh here
// and die with the session.
func (s *Supervisor) session(ctx context.Context) error {
	store, errLog := s.newState()
	start := time.Now()

	provider, err := s.dial(ctx, s.config.Link.Address)
	if err != nil {
		errLog.Recordf("Main connection error: %s", err.Error())
		return err
	}
	defer provider.Close()

	if err = provider.Connect(ctx); err != nil {
		errLog.Recordf("Main connection error: %s", err.Error())
		return err
	}

	s.logger.Info("connecting to vehicle...", slog.String("address", s.config.Link.Address))

	if err = s.awaitConnected(ctx, provider); err != nil {
		if ctx.Err() == nil {
			errLog.Recordf("Main connection error: %s", err.Error())
		}
		return err
	}

	sessionUUID := uuid.NewString()
	s.logger.Info("vehicle connected", slog.String("session", sessionUUID))

	g, gctx := errgroup.WithContext(ctx)

	for _, fetcher := range fetch.All(provider, store, errLog, fetch.Options{
		Logger:     s.logger,
		RetryDelay: seconds(s.config.Link.RetryDelay),
	}) {
		fetcher := fetcher
		g.Go(func() error { return fetcher.Run(gctx) })
	}

	displayOptions := []display.Option{
		display.WithInterval(seconds(s.config.Display.Interval)),
		display.WithLogger(s.logger),
	}
	if s.displayOut != nil {
		displayOptions = append(displayOptions, display.WithOutput(s.displayOut))
	}
	view := display.New(store, errLog, displayOptions...)
	g.Go(func() error { return view.Run(gctx) })

	logWriter := flightlog.New(s.config.FlightLog.Directory, start, store, errLog,
		flightlog.WithInterval(seconds(s.config.FlightLog.Interval)),
		flightlog.WithLogger(s.logger))
	g.Go(func() error { return logWriter.Run(gctx) })

	if s.archive != nil {
		sessionID, err := s.archive.CreateSession(gctx, sessionUUID, s.config.Link.Address, s.config.Link)
		if err != nil {
			// The archive is best effort; a session without one still flies.
			errLog.Recordf("Archive error: %s", err.Error())
			s.logger.Warn("archive session not recorded", slog.String("error", err.Error()))
		} else {
			archiver := storage.NewArchiver(s.archive, sessionID, store, errLog,
				storage.WithArchiveInterval(seconds(s.config.Archive.Interval)),
				storage.WithArchiverLogger(s.logger))
			g.Go(func() error { return archiver.Run(gctx) })
		}
	}

	g.Go(func() error { return s.watchLink(gctx, provider, errLog) })

	return g.Wait()
}

// awaitConnected blocks until the vehicle reports a connected link. There is
// no timeout: the link may come up whenever the vehicle powers on.
func (s *Supervisor) awaitConnected(ctx context.Context, provider drone.Provider) (err error) {
	states, err := provider.ConnectionState(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to connection state: %w", err)
	}
	defer closeWithError(states, &err)

	for {
		state, err := states.Recv(ctx)
		if err != nil {
			return fmt.Errorf("waiting for vehicle: %w", err)
		}
		if state.IsConnected {
			return nil
		}
	}
}

// watchLink keeps observing the connection state for the life of the
// session and fails the session when the vehicle drops off the link.
func (s *Supervisor) watchLink(ctx context.Context, provider drone.Provider, errLog *errlog.Log) (err error) {
	states, err := provider.ConnectionState(ctx)
	if err != nil {
		errLog.Recordf("Main connection error: %s", err.Error())
		return fmt.Errorf("subscribing to connection state: %w", err)
	}
	defer closeWithError(states, &err)

	for {
		state, err := states.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errLog.Recordf("Main connection error: %s", err.Error())
			return fmt.Errorf("connection state: %w", err)
		}
		if !state.IsConnected {
			errLog.Recordf("Main connection error: %s", ErrLinkLost.Error())
			return ErrLinkLost
		}
	}
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
