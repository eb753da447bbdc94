package types

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var (
	ErrLoopStopped = errors.New("tick loop stopped")
)

type loopCommand struct {
	fn   func(*EpisodeRunner)
	done chan struct{}
}

// TickLoop drives an EpisodeRunner from a time.Ticker.
// Commands submitted with Do run on the loop goroutine between ticks,
// so the runner is never invoked concurrently.
type TickLoop struct {
	runner   *EpisodeRunner
	interval time.Duration
	logger   log.Logger

	commands chan loopCommand
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewTickLoop(runner *EpisodeRunner, tickRateHz float64, logger log.Logger) *TickLoop {
	if tickRateHz <= 0 {
		tickRateHz = DefaultRunnerConfig().TickRateHz
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TickLoop{
		runner:   runner,
		interval: time.Duration(float64(time.Second) / tickRateHz),
		logger:   logger,
		commands: make(chan loopCommand),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks until the context is cancelled or Stop is called.
// The current runner is shut down on exit.
func (l *TickLoop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	level.Info(l.logger).Log("msg", "tick loop started", "interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case <-l.stop:
			l.shutdown()
			return nil
		case cmd := <-l.commands:
			cmd.fn(l.runner)
			close(cmd.done)
		case <-ticker.C:
			l.runner.Tick()
			if l.runner.State() == Stopped {
				level.Info(l.logger).Log("msg", "runner stopped, exiting tick loop")
				return nil
			}
		}
	}
}

func (l *TickLoop) shutdown() {
	if err := l.runner.Shutdown(); err != nil {
		level.Warn(l.logger).Log("msg", "runner shutdown", "err", err)
	}
}

// Do runs fn on the loop goroutine and waits for it to complete
func (l *TickLoop) Do(ctx context.Context, fn func(*EpisodeRunner)) error {
	cmd := loopCommand{fn: fn, done: make(chan struct{})}
	select {
	case l.commands <- cmd:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Replace runs fn on the loop goroutine and drives the runner it returns from
// the next tick on. An error or a nil runner keeps the current one.
func (l *TickLoop) Replace(ctx context.Context, fn func(*EpisodeRunner) (*EpisodeRunner, error)) error {
	var fnErr error
	err := l.Do(ctx, func(r *EpisodeRunner) {
		next, err := fn(r)
		if err != nil {
			fnErr = err
			return
		}
		if next != nil {
			l.runner = next
		}
	})
	if err != nil {
		return err
	}
	return fnErr
}

// Swap replaces the driven runner and returns the previous one.
// The previous runner is not shut down.
func (l *TickLoop) Swap(ctx context.Context, next *EpisodeRunner) (*EpisodeRunner, error) {
	var prev *EpisodeRunner
	err := l.Replace(ctx, func(r *EpisodeRunner) (*EpisodeRunner, error) {
		prev = r
		return next, nil
	})
	return prev, err
}

// Snapshot of the current runner statistics
func (l *TickLoop) Snapshot(ctx context.Context) (EpisodeStats, error) {
	var s EpisodeStats
	err := l.Do(ctx, func(r *EpisodeRunner) {
		s = r.Snapshot()
	})
	return s, err
}

// Stop makes Run return, safe to call more than once
func (l *TickLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Done is closed once Run has returned
func (l *TickLoop) Done() <-chan struct{} {
	return l.done
}
