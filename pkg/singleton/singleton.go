// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package singleton provides lazily constructed process-wide values with an
// explicit teardown hook, replacing framework-bound singletons.
package singleton

import "sync"

// Lazy holds a value built on first access. Reset tears it down so the next
// Get builds a fresh one.
type Lazy[T any] struct {
	mu       sync.Mutex
	value    T
	built    bool
	build    func() T
	teardown func(T)
}

// New creates a Lazy that uses build to construct the value. teardown may be
// nil; when set it runs on Reset for a value that had been built.
func New[T any](build func() T, teardown func(T)) *Lazy[T] {
	return &Lazy[T]{build: build, teardown: teardown}
}

// Get returns the value, building it if needed.
func (l *Lazy[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.built {
		l.value = l.build()
		l.built = true
	}
	return l.value
}

// Built reports whether a value currently exists.
func (l *Lazy[T]) Built() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.built
}

// Reset discards the current value.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	value, built := l.value, l.built
	var zero T
	l.value, l.built = zero, false
	l.mu.Unlock()

	if built && l.teardown != nil {
		l.teardown(value)
	}
}
