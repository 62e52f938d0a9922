// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

// State is the lifecycle state of a Job or Queue.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateKilled
)

// String returns the string representation of the State value.
func (s State) String() string {
	if s < StateIdle || s > StateKilled {
		return "Unknown"
	}
	return [...]string{"Idle", "Running", "Paused", "Completed", "Killed"}[s]
}

// IsTerminal reports whether no further transition is possible from s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateKilled
}

type repeatMode int

const (
	repeatNone repeatMode = iota
	repeatFinite
	repeatForever
)

// repeatPolicy decides whether another cycle follows a natural completion.
// count is the total number of cycles for repeatFinite.
type repeatPolicy struct {
	mode  repeatMode
	count int
}

func finiteRepeat(n int) repeatPolicy {
	if n <= 1 {
		return repeatPolicy{}
	}
	return repeatPolicy{mode: repeatFinite, count: n}
}

func (p repeatPolicy) active() bool { return p.mode != repeatNone }

func (p repeatPolicy) allows(executed int) bool {
	switch p.mode {
	case repeatFinite:
		return executed < p.count
	case repeatForever:
		return true
	default:
		return false
	}
}
