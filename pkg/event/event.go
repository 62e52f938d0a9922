// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package event provides ordered, synchronous handler lists.
//
// Handlers run inline with Emit, in registration order, on the caller's
// goroutine. A list is not safe for concurrent use; its owner serialises
// access (in this module, the scheduler goroutine does).
package event

// Handler is a function that handles an event payload.
type Handler[T any] func(T)

type entry[T any] struct {
	id      uint64
	handler Handler[T]
}

// List is an ordered set of handlers for one event kind.
type List[T any] struct {
	entries []entry[T]
	nextID  uint64
}

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	remove func() bool
}

// Unsubscribe removes the handler. It reports whether the handler was still registered.
func (s Subscription) Unsubscribe() bool {
	if s.remove == nil {
		return false
	}
	return s.remove()
}

// Subscribe appends h. Handlers may be registered more than once.
func (l *List[T]) Subscribe(h Handler[T]) Subscription {
	if h == nil {
		return Subscription{}
	}
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, entry[T]{id: id, handler: h})
	return Subscription{remove: func() bool { return l.remove(id) }}
}

func (l *List[T]) remove(id uint64) bool {
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every handler with payload. Handlers added or removed during
// Emit take effect from the next Emit.
func (l *List[T]) Emit(payload T) {
	if len(l.entries) == 0 {
		return
	}
	handlers := append([]entry[T]{}, l.entries...) // copy to tolerate re-entrant subscribe
	for _, e := range handlers {
		e.handler(payload)
	}
}

// Len returns the number of registered handlers.
func (l *List[T]) Len() int { return len(l.entries) }

// Clone returns an independent list holding the same handler references.
// Subscriptions taken on the original do not affect the clone.
func (l *List[T]) Clone() List[T] {
	return List[T]{
		entries: append([]entry[T](nil), l.entries...),
		nextID:  l.nextID,
	}
}
