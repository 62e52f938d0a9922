// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package plan

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/vulntor/tickjob/pkg/work"
)

// Params holds the untyped parameters of a plan job.
type Params map[string]any

// String returns params[key] as a string, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok && v != nil {
		return cast.ToString(v)
	}
	return def
}

// Int returns params[key] as an int, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok && v != nil {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return def
}

// Duration returns params[key] as a duration. Strings use time.ParseDuration
// syntax and bare numbers are nanoseconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("param %q: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("param %q: negative duration %s", key, d)
	}
	return d, nil
}

// Env is what a kind factory gets besides its params.
type Env struct {
	JobID  string
	Logger zerolog.Logger
}

// Factory builds the work for one plan job.
type Factory func(params Params, env Env) (work.Work, error)

// Registry maps kind names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the work for kind.
func (r *Registry) New(kind string, params Params, env Env) (work.Work, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, unknownKind(kind)
	}
	w, err := f(params, env)
	if err != nil {
		return nil, invalidPlan("job %q (%s): %v", env.JobID, kind, err)
	}
	return w, nil
}

// KindDescriptions documents the built-in kinds for `tickjob kinds`.
var KindDescriptions = map[string]string{
	"log":   "wait `delay`, then log `message`",
	"wait":  "sleep for `duration`",
	"tick":  "log `message` every `interval`, `count` times (0 = until killed)",
	"ticks": "yield `count` scheduler ticks",
}

// DefaultRegistry returns a registry holding the built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("log", logKind)
	r.Register("wait", waitKind)
	r.Register("tick", tickKind)
	r.Register("ticks", ticksKind)
	return r
}

func logKind(params Params, env Env) (work.Work, error) {
	delay, err := params.Duration("delay", 0)
	if err != nil {
		return nil, err
	}
	message := params.String("message", env.JobID)
	logger := env.Logger
	return work.Func(func(yield func(work.Yield) bool) {
		if delay > 0 && !yield(work.Wait(delay)) {
			return
		}
		logger.Info().Str("job_id", env.JobID).Msg(message)
	}), nil
}

func waitKind(params Params, _ Env) (work.Work, error) {
	d, err := params.Duration("duration", time.Second)
	if err != nil {
		return nil, err
	}
	return work.Sleep(d), nil
}

func tickKind(params Params, env Env) (work.Work, error) {
	interval, err := params.Duration("interval", time.Second)
	if err != nil {
		return nil, err
	}
	if interval == 0 {
		return nil, fmt.Errorf("param %q must be positive", "interval")
	}
	count := params.Int("count", 0)
	message := params.String("message", "tick")
	logger := env.Logger

	return work.Func(func(yield func(work.Yield) bool) {
		for i := 1; count <= 0 || i <= count; i++ {
			logger.Info().Str("job_id", env.JobID).Int("n", i).Msg(message)
			if count > 0 && i == count {
				return
			}
			if !yield(work.Wait(interval)) {
				return
			}
		}
	}), nil
}

func ticksKind(params Params, _ Env) (work.Work, error) {
	count := params.Int("count", 1)
	if count < 0 {
		return nil, fmt.Errorf("param %q must not be negative", "count")
	}
	return work.Ticks(count), nil
}
