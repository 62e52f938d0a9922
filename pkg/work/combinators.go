// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package work

import "time"

// Do runs fn on the first step and finishes.
func Do(fn func()) Work {
	return Func(func(yield func(Yield) bool) {
		fn()
	})
}

// Sleep suspends for d and then finishes.
func Sleep(d time.Duration) Work {
	return Func(func(yield func(Yield) bool) {
		yield(Wait(d))
	})
}

// Ticks yields n times, one tick each.
func Ticks(n int) Work {
	return Func(func(yield func(Yield) bool) {
		for i := 0; i < n; i++ {
			if !yield(NextTick()) {
				return
			}
		}
	})
}

// Sequence runs each work in order within a single cycle. A finished element
// hands over to the next one in the same step.
func Sequence(ws ...Work) Work {
	return Func(func(yield func(Yield) bool) {
		for _, w := range ws {
			if !Drain(w, yield) {
				return
			}
		}
	})
}

// Times runs w n times back to back. Each pass yields one tick first so a
// pass that never suspends cannot monopolise the step.
func Times(n int, w Work) Work {
	return Func(func(yield func(Yield) bool) {
		for i := 0; i < n; i++ {
			if i > 0 && !yield(NextTick()) {
				return
			}
			if !Drain(w, yield) {
				return
			}
		}
	})
}

// Forever repeats w until the routine is stopped.
func Forever(w Work) Work {
	return Func(func(yield func(Yield) bool) {
		for {
			if !Drain(w, yield) {
				return
			}
			if !yield(NextTick()) {
				return
			}
		}
	})
}

// Every runs fn, waits interval, and repeats until stopped.
func Every(interval time.Duration, fn func()) Work {
	return Func(func(yield func(Yield) bool) {
		for {
			fn()
			if !yield(Wait(interval)) {
				return
			}
		}
	})
}
