// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package plan

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulntor/tickjob/pkg/job"
	"github.com/vulntor/tickjob/pkg/logging"
	"github.com/vulntor/tickjob/pkg/scheduler"
)

// Event is one lifecycle event observed while a plan runs.
type Event struct {
	Time   time.Time
	Source string // "job" or "queue"
	ID     string
	Kind   string
	// TimesExecuted is the cycle count carried by the event.
	TimesExecuted int
	Killed        bool
	Final         bool
}

// Runtime is a plan turned into live queues and jobs on one scheduler.
type Runtime struct {
	Manager *job.Manager
	Queues  []*job.Queue

	plan   *Plan
	sched  *scheduler.Scheduler
	logger zerolog.Logger
	sink   func(Event)
}

// BuildOption configures Build.
type BuildOption func(*Runtime)

// WithEventSink receives every job and queue event. It runs on the scheduler goroutine.
func WithEventSink(fn func(Event)) BuildOption {
	return func(r *Runtime) {
		r.sink = fn
	}
}

// Build validates p and creates its queues and jobs on s. Nothing starts
// until Runtime.Start.
func Build(p *Plan, reg *Registry, s *scheduler.Scheduler, opts ...BuildOption) (*Runtime, error) {
	if err := p.Validate(reg); err != nil {
		return nil, err
	}

	rt := &Runtime{
		plan:   p,
		sched:  s,
		logger: s.Logger().With().Str("plan_version", p.Version).Logger(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.Manager = job.NewManager(job.WithID("plan"), job.WithScheduler(s))

	for _, qs := range p.Queues {
		q, err := rt.buildQueue(qs, reg)
		if err != nil {
			return nil, err
		}
		rt.Queues = append(rt.Queues, q)
	}
	for _, js := range p.Jobs {
		j, err := rt.buildJob(js, js.ID, reg)
		if err != nil {
			return nil, err
		}
		if err := rt.Manager.AddJob(j); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) buildQueue(qs QueueSpec, reg *Registry) (*job.Queue, error) {
	opts := []job.Option{job.WithID(qs.ID), job.WithScheduler(rt.sched)}
	if qs.Continuous {
		opts = append(opts, job.Continuous())
	}
	q := job.NewQueue(opts...)
	applyRepeat(qs.Repeat, q.Repeat, q.RepeatForever)

	for i, js := range qs.Jobs {
		id := js.ID
		if id == "" {
			id = fmt.Sprintf("%s/%d", qs.ID, i+1)
		}
		j, err := rt.buildJob(js, id, reg)
		if err != nil {
			return nil, err
		}
		q.EnqueueJobs(j)
	}
	rt.observeQueue(q)
	return q, nil
}

func (rt *Runtime) buildJob(js JobSpec, id string, reg *Registry) (*job.Job, error) {
	w, err := reg.New(js.Kind, js.Params, Env{JobID: id, Logger: rt.logger})
	if err != nil {
		return nil, err
	}
	j := job.New(w, job.WithID(id), job.WithScheduler(rt.sched))
	applyRepeat(js.Repeat, j.Repeat, j.RepeatForever)

	for i, cs := range js.Children {
		cid := cs.ID
		if cid == "" {
			cid = fmt.Sprintf("%s/child-%d", id, i+1)
		}
		child, err := rt.buildJob(cs, cid, reg)
		if err != nil {
			return nil, err
		}
		j.AddChildJob(child)
	}

	if js.StopRepeatAfter > 0 {
		d := js.StopRepeatAfter
		onEachRun(j, func(r *job.Job) { r.StopRepeatAfter(d) })
	}
	if js.KillAfter > 0 {
		d := js.KillAfter
		onEachRun(j, func(r *job.Job) { r.KillAfter(d) })
	}
	rt.observeJob(j)
	return j, nil
}

// onEachRun calls fn once each time j (or a queue clone of it, or j again
// after its parent reset it) leaves Idle. Timers armed by fn therefore count
// from the run's own start.
func onEachRun(j *job.Job, fn func(*job.Job)) {
	armed := make(map[*job.Job]bool)
	j.NotifyOnJobStarted(func(e job.JobEvent) {
		if !armed[e.Job] {
			armed[e.Job] = true
			fn(e.Job)
		}
	})
	j.NotifyOnJobComplete(func(e job.JobEvent) {
		if e.Final {
			delete(armed, e.Job)
		}
	})
}

func applyRepeat[T any](n int, finite func(int) T, forever func() T) {
	switch {
	case n == RepeatForever:
		forever()
	case n > 1:
		finite(n)
	}
}

// Start starts every queue and every manager job, honouring start_after.
func (rt *Runtime) Start() {
	for i, q := range rt.Queues {
		qs := rt.plan.Queues[i]
		q.StartAfter(qs.StartAfter)
		if qs.StopRepeatAfter > 0 {
			q.StopRepeatAfter(qs.StartAfter + qs.StopRepeatAfter)
		}
		if qs.KillAfter > 0 {
			q.KillAllAfter(qs.StartAfter + qs.KillAfter)
		}
	}
	for i, j := range rt.Manager.Jobs() {
		j.StartAfter(rt.plan.Jobs[i].StartAfter)
	}
	rt.logger.Info().Int("queues", len(rt.Queues)).Int("jobs", rt.Manager.Len()).Msg("plan started")
}

// Done reports whether every queue has completed and every manager job has
// reached a terminal state. A continuous queue is never done.
func (rt *Runtime) Done() bool {
	for _, q := range rt.Queues {
		if q.State() != job.StateCompleted {
			return false
		}
	}
	for _, j := range rt.Manager.Jobs() {
		if !j.State().IsTerminal() {
			return false
		}
	}
	return true
}

// Stop kills every queue and manager job.
func (rt *Runtime) Stop() {
	for _, q := range rt.Queues {
		q.KillAll()
	}
	rt.Manager.KillAll()
}

func (rt *Runtime) emit(e Event) {
	if rt.sink != nil {
		e.Time = rt.sched.Now()
		rt.sink(e)
	}
}

func (rt *Runtime) observeJob(j *job.Job) {
	logger := logging.WithInvoker(rt.logger, j)
	jobEvent := func(kind string) func(job.JobEvent) {
		return func(e job.JobEvent) {
			logger.Debug().Str("event", kind).Int("times_executed", e.TimesExecuted).Bool("killed", e.Killed).Msg("job event")
			rt.emit(Event{Source: "job", ID: e.ID, Kind: kind, TimesExecuted: e.TimesExecuted, Killed: e.Killed, Final: e.Final})
		}
	}
	j.NotifyOnJobStarted(jobEvent("started")).
		NotifyOnJobPaused(jobEvent("paused")).
		NotifyOnJobResumed(jobEvent("resumed")).
		NotifyOnJobComplete(jobEvent("complete"))
}

func (rt *Runtime) observeQueue(q *job.Queue) {
	logger := logging.WithInvoker(rt.logger, q)
	queueEvent := func(kind string) func(job.QueueEvent) {
		return func(e job.QueueEvent) {
			logger.Debug().Str("event", kind).Int("processed", len(e.CompletedJobs)).Int("queued", len(e.QueuedJobs)).Msg("queue event")
			rt.emit(Event{Source: "queue", ID: e.ID, Kind: kind, TimesExecuted: e.TimesExecuted, Killed: e.Killed, Final: e.Queue.State() == job.StateCompleted})
		}
	}
	q.NotifyOnQueueStarted(queueEvent("started")).
		NotifyOnJobProcessed(queueEvent("processed")).
		NotifyOnQueueComplete(queueEvent("complete"))
}
