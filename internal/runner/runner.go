// Package runner drives passes over all sites: once, on a fixed interval,
// or on a cron schedule. State is loaded once and saved after every pass.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mattmezza/ticketwatch/internal/checker"
	"github.com/mattmezza/ticketwatch/internal/state"
)

// PassChecker runs one sequential pass over the sites.
type PassChecker interface {
	CheckAll(ctx context.Context, sites []checker.Site, st state.State) checker.PassSummary
}

type Runner struct {
	checker PassChecker
	store   state.Store
	sites   []checker.Site
	log     zerolog.Logger

	// mu serializes passes; the cron scheduler calls Pass from its own goroutine.
	mu     sync.Mutex
	state  state.State
	loaded bool
}

func New(c PassChecker, store state.Store, sites []checker.Site, log zerolog.Logger) *Runner {
	return &Runner{
		checker: c,
		store:   store,
		sites:   sites,
		log:     log,
	}
}

// State returns a copy of the in-memory state.
func (r *Runner) State() state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func (r *Runner) loadLocked(ctx context.Context) {
	if r.loaded {
		return
	}
	st, err := r.store.Load(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("could not load state, starting empty")
	}
	if st == nil {
		st = state.State{}
	}
	r.state = st
	r.loaded = true
	r.log.Debug().Int("entries", len(st)).Msg("state loaded")
}

// Pass checks every site once and saves the state. Save failures are
// logged; the in-memory state is kept for the next pass.
func (r *Runner) Pass(ctx context.Context) checker.PassSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loadLocked(ctx)

	start := time.Now()
	r.log.Info().Int("sites", len(r.sites)).Msg("checking sites")
	summary := r.checker.CheckAll(ctx, r.sites, r.state)

	// Save even when ctx is done so a pass cut short keeps what it learned.
	if err := r.store.Save(context.WithoutCancel(ctx), r.state); err != nil {
		r.log.Error().Err(err).Msg("could not save state")
	}

	r.log.Info().
		Int("fired", summary.Count(checker.ResultFired)).
		Int("active", summary.Count(checker.ResultActive)).
		Int("resolved", summary.Count(checker.ResultResolved)).
		Int("clear", summary.Count(checker.ResultClear)).
		Int("skipped", summary.Count(checker.ResultSkipped)).
		Dur("took", time.Since(start)).
		Msg("pass complete")
	return summary
}

// RunOnce performs a single pass, for use under an external scheduler.
func (r *Runner) RunOnce(ctx context.Context) checker.PassSummary {
	return r.Pass(ctx)
}

// RunLoop performs a pass, waits interval, and repeats until ctx is done.
func (r *Runner) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	for {
		r.Pass(ctx)
		if ctx.Err() != nil {
			return nil
		}

		r.log.Info().
			Dur("interval", interval).
			Time("next_run", time.Now().Add(interval)).
			Msg("waiting for next pass")

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunSchedule performs a pass immediately, then one per activation of the
// cron expression (standard five-field syntax or descriptors such as
// "@hourly"), until ctx is done. Activations that arrive while a pass is
// still running are skipped.
func (r *Runner) RunSchedule(ctx context.Context, expr string) error {
	logger := cronLogger{log: r.log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(expr, func() { r.Pass(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	r.Pass(ctx)
	if ctx.Err() != nil {
		return nil
	}

	c.Start()
	r.log.Info().Str("schedule", expr).Time("next_run", c.Entry(id).Next).Msg("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
