// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package work defines the step interface that client work implements so the
// scheduler, not the work itself, controls timing.
//
// A Work value is a template. Every execution cycle of a job calls NewRoutine
// to obtain a fresh Routine, which is then advanced one step per tick until it
// reports Done. Between steps the routine is suspended either until the next
// tick (KindNext) or until a duration has elapsed on the scheduler clock (KindSleep).
//
// Work that never yields starves the scheduler. Nothing in this package or in
// the scheduler can detect that; keeping steps short is the caller's job.
package work

import (
	"iter"
	"time"
)

// Kind tells the scheduler what a routine wants after a step.
type Kind int

const (
	// KindNext resumes the routine on the following tick.
	KindNext Kind = iota
	// KindSleep resumes the routine on the first tick at or after Delay has elapsed.
	KindSleep
	// KindDone ends the current cycle.
	KindDone
)

// String returns the string representation of the Kind value.
func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindSleep:
		return "sleep"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Yield is the result of a single step.
type Yield struct {
	Kind  Kind
	Delay time.Duration
}

// NextTick suspends until the next tick.
func NextTick() Yield { return Yield{Kind: KindNext} }

// Wait suspends for d. A non-positive d behaves like NextTick.
func Wait(d time.Duration) Yield {
	if d <= 0 {
		return Yield{Kind: KindNext}
	}
	return Yield{Kind: KindSleep, Delay: d}
}

// Finished reports the end of the cycle.
func Finished() Yield { return Yield{Kind: KindDone} }

// Routine is one in-flight execution of a Work.
type Routine interface {
	// Step advances the routine to its next suspension point.
	Step() Yield
	// Stop releases the routine. It is called when a job is killed mid-cycle
	// and is safe to call after the routine reported Done.
	Stop()
}

// Work is a re-invokable template of a routine.
type Work interface {
	NewRoutine() Routine
}

// Func adapts a plain Go function to Work. The function receives a yield
// callback; each call to yield is a suspension point and returning from the
// function ends the cycle. When yield returns false the routine was stopped
// and the function must return.
//
//	w := work.Func(func(yield func(work.Yield) bool) {
//	    for i := 0; i < 3; i++ {
//	        fmt.Println("tick", i)
//	        if !yield(work.Wait(500 * time.Millisecond)) {
//	            return
//	        }
//	    }
//	})
type Func func(yield func(Yield) bool)

// NewRoutine starts a fresh pull iterator over f.
func (f Func) NewRoutine() Routine {
	next, stop := iter.Pull(iter.Seq[Yield](f))
	return &pullRoutine{next: next, stop: stop}
}

type pullRoutine struct {
	next    func() (Yield, bool)
	stop    func()
	done    bool
	running bool
	stopReq bool // Stop was called from inside the routine's own step
}

func (r *pullRoutine) Step() Yield {
	if r.done {
		return Finished()
	}
	r.running = true
	y, ok := r.next()
	r.running = false
	if !ok || y.Kind == KindDone || r.stopReq {
		r.done = true
		r.stop()
		return Finished()
	}
	return y
}

func (r *pullRoutine) Stop() {
	if r.running {
		r.stopReq = true
		return
	}
	r.done = true
	r.stop()
}

// Drain runs w to completion inside another Func, forwarding every
// suspension to yield. It returns false if the outer routine was stopped.
func Drain(w Work, yield func(Yield) bool) bool {
	r := w.NewRoutine()
	defer r.Stop()
	for {
		y := r.Step()
		if y.Kind == KindDone {
			return true
		}
		if !yield(y) {
			return false
		}
	}
}
