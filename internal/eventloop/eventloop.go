// Package eventloop serialises panel state transitions onto one goroutine.
//
// Every mutation of the catalog and the editor runs as an event on the loop,
// one at a time and in order. Work that suspends (reading an image, rendering
// a PDF) runs on a bounded worker pool; when it finishes its result is posted
// back to the loop as a single follow-up event.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned when events are posted after the loop shut down.
	ErrClosed = errors.New("event loop is closed")
	// ErrBusy is returned by Submit when every worker is occupied. Submit
	// never waits for a free worker, since it runs on the loop itself.
	ErrBusy = errors.New("event loop workers are busy")
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 8
)

// Config contains event loop configuration.
type Config struct {
	// QueueSize is the number of events that may wait for the loop.
	QueueSize int
	// Workers bounds the number of concurrent background tasks.
	Workers int
}

// Loop applies events sequentially and runs background work on a pool.
type Loop struct {
	events    chan func()
	pool      *ants.Pool
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// mu guards closed so no task is added to inflight once Shutdown waits.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	logger zerolog.Logger
}

// New creates a loop. Run must be called to start applying events.
func New(cfg Config, logger zerolog.Logger) (*Loop, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	l := &Loop{
		events:  make(chan func(), cfg.QueueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger.With().Str("component", "eventloop").Logger(),
	}

	pool, err := ants.NewPool(cfg.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			l.logger.Error().Interface("panic", p).Msg("background task panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	l.pool = pool

	return l, nil
}

// Run applies events until ctx is cancelled or Shutdown is called.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	l.logger.Debug().Int("queue", cap(l.events)).Int("workers", l.pool.Cap()).Msg("event loop started")

	for {
		select {
		case <-ctx.Done():
			l.stop()
			return ctx.Err()
		case <-l.closing:
			return nil
		case fn := <-l.events:
			l.apply(fn)
		}
	}
}

func (l *Loop) apply(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("event panicked")
		}
	}()
	fn()
}

// Post queues fn to run on the loop without waiting for it.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.closing:
		return ErrClosed
	default:
	}

	select {
	case l.events <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closing:
		return ErrClosed
	}
}

// Call runs fn on the loop and waits for its result.
// It must not be called from an event already running on the loop.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)

	err := l.Post(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("event panicked: %v", r)
			}
		}()
		result <- fn()
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// The loop may have applied fn just before stopping.
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Submit runs work on the worker pool and posts apply back to the loop with
// its result. apply always runs on the loop, so it may touch panel state.
// If the loop shuts down first, the result is dropped.
func (l *Loop) Submit(ctx context.Context, work func(ctx context.Context) (any, error), apply func(any, error)) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.inflight.Add(1)
	l.mu.Unlock()

	err := l.pool.Submit(func() {
		defer l.inflight.Done()

		val, err := work(ctx)
		if perr := l.Post(context.Background(), func() { apply(val, err) }); perr != nil {
			l.logger.Debug().Err(perr).Msg("dropping task result after shutdown")
		}
	})
	if err != nil {
		l.inflight.Done()
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrClosed
		}
		if errors.Is(err, ants.ErrPoolOverload) {
			l.logger.Warn().Int("running", l.pool.Running()).Msg("rejecting task, worker pool is full")
			return ErrBusy
		}
		return fmt.Errorf("failed to schedule task: %w", err)
	}
	return nil
}

// Running returns the number of background tasks currently executing.
func (l *Loop) Running() int {
	return l.pool.Running()
}

func (l *Loop) stop() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.closing)
	})
}

// Shutdown stops accepting events and waits for background tasks to finish
// or ctx to expire, whichever comes first.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.stop()

	finished := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(finished)
	}()

	defer l.pool.Release()

	select {
	case <-finished:
		l.logger.Debug().Msg("event loop stopped")
		return nil
	case <-ctx.Done():
		l.logger.Warn().Int("running", l.pool.Running()).Msg("event loop stopped with tasks still running")
		return ctx.Err()
	}
}
