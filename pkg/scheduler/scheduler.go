// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package scheduler drives cooperative work one step per tick.
//
// A Scheduler owns three things: tasks that are stepped once per tick,
// timers that fire delayed callbacks, and an inbox of functions posted from
// other goroutines. Everything except Post, Call and the clock runs on the
// goroutine that calls Tick (directly, or through Run), so the objects driven
// by a scheduler need no locking of their own.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/tickjob/pkg/singleton"
)

// DefaultTickInterval is the real-time loop period (60 ticks per second).
const DefaultTickInterval = time.Second / 60

// Task is stepped once per tick. Returning false removes it.
type Task interface {
	Step(now time.Time) bool
}

// TaskFunc adapts a function to Task.
type TaskFunc func(now time.Time) bool

// Step calls f.
func (f TaskFunc) Step(now time.Time) bool { return f(now) }

// Scheduler is a single cooperative tick driver.
type Scheduler struct {
	clock    Clock
	interval time.Duration
	logger   zerolog.Logger

	tasks  []Task
	timers timerHeap
	seq    uint64
	ticks  uint64

	mu    sync.Mutex
	inbox []func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTickInterval sets the period used by Run.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger handed to everything driven by the scheduler.
// Jobs and queues add their own ids to it; the component field stays the
// caller's.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    RealClock(),
		interval: DefaultTickInterval,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the scheduler clock's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() zerolog.Logger { return s.logger }

// TickInterval returns the period used by Run.
func (s *Scheduler) TickInterval() time.Duration { return s.interval }

// Ticks returns how many ticks have run.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// Schedule adds a task. A task added during a tick is first stepped on the next tick.
func (s *Scheduler) Schedule(t Task) {
	s.tasks = append(s.tasks, t)
}

// After runs fn on the first tick at or after d from now.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	s.seq++
	t := &Timer{at: s.clock.Now().Add(d), seq: s.seq, fn: fn}
	heap.Push(&s.timers, t)
	return t
}

// Post queues fn to run at the start of the next tick. Safe to call from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.inbox = append(s.inbox, fn)
	s.mu.Unlock()
}

// Call posts fn and waits until it has run on the scheduling goroutine.
// It must not be called from the scheduling goroutine itself.
func (s *Scheduler) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle reports whether there is nothing left to step, fire or run.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	posted := len(s.inbox)
	s.mu.Unlock()
	return posted == 0 && len(s.tasks) == 0 && s.pendingTimers() == 0
}

// Pending returns the number of live tasks and timers.
func (s *Scheduler) Pending() int {
	return len(s.tasks) + s.pendingTimers()
}

func (s *Scheduler) pendingTimers() int {
	n := 0
	for _, t := range s.timers {
		if t.Pending() {
			n++
		}
	}
	return n
}

// Tick runs one scheduling iteration: posted functions, due timers, then one
// step of every task that existed when the iteration began.
func (s *Scheduler) Tick() {
	s.ticks++
	now := s.clock.Now()

	s.mu.Lock()
	posted := s.inbox
	s.inbox = nil
	s.mu.Unlock()
	for _, fn := range posted {
		fn()
	}

	for s.timers.Len() > 0 {
		next := s.timers[0]
		if next.at.After(now) {
			break
		}
		heap.Pop(&s.timers)
		if next.stopped {
			continue
		}
		next.fired = true
		next.fn()
	}

	current := s.tasks
	s.tasks = nil
	kept := current[:0]
	for _, t := range current {
		if t.Step(now) {
			kept = append(kept, t)
		}
	}
	// tasks scheduled while stepping go after the survivors
	s.tasks = append(kept, s.tasks...)
}

// Run ticks every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	return s.RunUntil(ctx, nil)
}

// RunUntil ticks every interval until ctx is cancelled or done reports true
// after a tick. A nil done never stops the loop.
func (s *Scheduler) RunUntil(ctx context.Context, done func() bool) error {
	s.logger.Info().Dur("tick_interval", s.interval).Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Uint64("ticks", s.ticks).Msg("scheduler stopping (context cancelled)")
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
			if done != nil && done() {
				s.logger.Info().Uint64("ticks", s.ticks).Msg("scheduler finished")
				return nil
			}
		}
	}
}

var defaultScheduler = singleton.New(func() *Scheduler { return New() }, nil)

// Default returns the process-wide scheduler, creating it on first use.
func Default() *Scheduler { return defaultScheduler.Get() }

// ResetDefault drops the process-wide scheduler; the next Default call builds a new one.
func ResetDefault() { defaultScheduler.Reset() }
