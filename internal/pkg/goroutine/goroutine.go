package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// ErrLimitReached is returned by TryGo when every slot is taken.
var ErrLimitReached = errors.New("goroutine: maximum goroutine limit reached")

// ErrClosed is returned by TryGo after Wait has been called.
var ErrClosed = errors.New("goroutine: manager is closed")

// Manager runs background functions (message consumers, the reaper
// scheduler) with a concurrency cap, and lets shutdown wait for them.
//
// It collects errors returned by tasks and can be waited on using Wait.
type Manager struct {
	mu     sync.Mutex
	errs   []error
	wg     sync.WaitGroup
	sema   chan struct{}
	closed bool
}

// NewManager creates a new Manager with the provided maximum concurrency.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go schedules f and logs when it cannot be started.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) {
	if err := g.TryGo(ctx, name, f); err != nil {
		slog.WarnContext(ctx, "failed to start goroutine", "name", name, "error", err)
	}
}

// TryGo schedules f if the manager is open and has a free slot.
// A panic inside f is recovered, logged and recorded as an error.
func (g *Manager) TryGo(ctx context.Context, name string, f func(ctx context.Context) error) error {
	if g == nil {
		return ErrClosed
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}

	select {
	case g.sema <- struct{}{}:
	default:
		return ErrLimitReached
	}

	g.wg.Go(func() {
		defer func() { <-g.sema }()

		if err := g.run(ctx, name, f); err != nil && !errors.Is(err, context.Canceled) {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	})

	return nil
}

func (g *Manager) run(ctx context.Context, name string, f func(ctx context.Context) error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "name", name, "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "name", name, "because", rvr, "stack", string(stack))
			}
			err = errors.New("goroutine: panic in " + name)
		}
	}()

	if ctx.Err() != nil {
		slog.WarnContext(ctx, "goroutine canceled before start", "name", name, "because", ctx.Err())
		return nil
	}

	return f(ctx)
}

// Wait closes the manager, blocks until every scheduled goroutine finishes and
// returns the collected errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
