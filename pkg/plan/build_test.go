// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package plan

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/tickjob/pkg/job"
	"github.com/vulntor/tickjob/pkg/scheduler"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type runner struct {
	sched  *scheduler.Scheduler
	clock  *scheduler.ManualClock
	events []Event
}

func newRunner() *runner {
	clk := scheduler.NewManualClock(epoch)
	return &runner{
		sched: scheduler.New(scheduler.WithClock(clk), scheduler.WithLogger(zerolog.Nop())),
		clock: clk,
	}
}

func (r *runner) build(t *testing.T, src string) *Runtime {
	t.Helper()
	p, err := Parse([]byte(src))
	require.NoError(t, err)
	rt, err := Build(p, DefaultRegistry(), r.sched, WithEventSink(func(e Event) {
		r.events = append(r.events, e)
	}))
	require.NoError(t, err)
	return rt
}

// runUntilDone ticks in 100ms steps until rt is done or limit ticks have run.
func (r *runner) runUntilDone(rt *Runtime, limit int) {
	for i := 0; i < limit && !rt.Done(); i++ {
		r.clock.Advance(100 * time.Millisecond)
		r.sched.Tick()
	}
}

func (r *runner) find(source, id, kind string) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Source == source && e.ID == id && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestBuild_RunsPlanToCompletion(t *testing.T) {
	r := newRunner()
	rt := r.build(t, `
version: "1.0"
queues:
  - id: q
    repeat: 2
    jobs:
      - {id: a, kind: ticks, params: {count: 1}}
      - {id: b, kind: ticks, params: {count: 1}}
jobs:
  - {id: m, kind: wait, params: {duration: 1s}}
`)
	require.Len(t, rt.Queues, 1)
	require.Equal(t, 1, rt.Manager.Len())
	require.False(t, rt.Done())

	rt.Start()
	r.runUntilDone(rt, 200)
	require.True(t, rt.Done())

	completes := r.find("queue", "q", "complete")
	require.Len(t, completes, 2)
	require.False(t, completes[0].Final)
	require.True(t, completes[1].Final)
	require.Equal(t, 2, completes[1].TimesExecuted)

	require.Len(t, r.find("queue", "q", "processed"), 4)
	require.Len(t, r.find("job", "a", "complete"), 2, "queue clones share the template's handlers")

	m := r.find("job", "m", "complete")
	require.Len(t, m, 1)
	require.False(t, m[0].Killed)
	require.False(t, m[0].Time.Before(epoch.Add(time.Second)))
}

func TestBuild_StartAfterAndKillAfterCountFromStart(t *testing.T) {
	r := newRunner()
	rt := r.build(t, `
version: "1.0"
jobs:
  - id: hb
    kind: tick
    start_after: 1s
    kill_after: 2s
    params: {interval: 500ms}
`)
	rt.Start()
	r.runUntilDone(rt, 100)
	require.True(t, rt.Done())

	started := r.find("job", "hb", "started")
	require.Len(t, started, 1)
	require.Equal(t, epoch.Add(time.Second), started[0].Time)

	done := r.find("job", "hb", "complete")
	require.Len(t, done, 1)
	require.True(t, done[0].Killed)
	require.Equal(t, epoch.Add(3*time.Second), done[0].Time)
}

func TestBuild_QueueKillAfterForceCompletes(t *testing.T) {
	r := newRunner()
	rt := r.build(t, `
version: "1.0"
queues:
  - id: slow
    kill_after: 1s
    jobs:
      - {kind: wait, params: {duration: 10s}}
      - {kind: wait, params: {duration: 10s}}
`)
	rt.Start()
	r.runUntilDone(rt, 100)
	require.True(t, rt.Done())

	q := rt.Queues[0]
	require.True(t, q.Killed())
	require.Equal(t, job.StateCompleted, q.State())

	completes := r.find("queue", "slow", "complete")
	require.Len(t, completes, 1)
	require.True(t, completes[0].Killed)
	require.Equal(t, epoch.Add(time.Second), completes[0].Time)
}

func TestBuild_NestedJobKillAfterArmsPerRun(t *testing.T) {
	r := newRunner()
	rt := r.build(t, `
version: "1.0"
queues:
  - id: q
    repeat: 2
    jobs:
      - {id: capped, kind: wait, kill_after: 500ms, params: {duration: 1m}}
`)
	rt.Start()
	r.runUntilDone(rt, 100)
	require.True(t, rt.Done())

	done := r.find("job", "capped", "complete")
	require.Len(t, done, 2)
	for _, e := range done {
		require.True(t, e.Killed)
	}
	require.Equal(t, epoch.Add(500*time.Millisecond), done[0].Time)
	require.True(t, done[1].Time.After(done[0].Time))
}

func TestBuild_DefaultIDs(t *testing.T) {
	r := newRunner()
	rt := r.build(t, `
version: "1.0"
queues:
  - id: q
    jobs:
      - kind: wait
        children:
          - {kind: ticks}
`)
	entries := rt.Queues[0].QueuedJobs()
	require.Len(t, entries, 1)
	require.Equal(t, "q/1", entries[0].ID())

	parent, ok := entries[0].(*job.Job)
	require.True(t, ok)
	require.Len(t, parent.Children(), 1)
	require.Equal(t, "q/1/child-1", parent.Children()[0].ID())
}

func TestBuild_RejectsInvalidPlans(t *testing.T) {
	sched := scheduler.New(scheduler.WithLogger(zerolog.Nop()))

	p, err := Parse([]byte("version: \"1.0\"\njobs: [{id: a, kind: nope}]"))
	require.NoError(t, err)
	_, err = Build(p, DefaultRegistry(), sched)
	require.ErrorIs(t, err, ErrUnknownKind)

	p, err = Parse([]byte("version: \"1.0\"\njobs: [{id: a, kind: tick, params: {interval: 0s}}]"))
	require.NoError(t, err)
	_, err = Build(p, DefaultRegistry(), sched)
	require.ErrorIs(t, err, ErrInvalidPlan)
}

func TestRuntime_Stop(t *testing.T) {
	r := newRunner()
	rt := r.build(t, `
version: "1.0"
queues:
  - {id: q, jobs: [{kind: wait, params: {duration: 1m}}]}
jobs:
  - {id: m, kind: wait, params: {duration: 1m}}
`)
	rt.Start()
	r.runUntilDone(rt, 3)
	require.False(t, rt.Done())

	m, ok := rt.Manager.Job("m")
	require.True(t, ok)

	rt.Stop()
	require.True(t, rt.Done())
	require.True(t, rt.Queues[0].Killed())
	require.Equal(t, job.StateKilled, m.State())
	require.Zero(t, rt.Manager.Len())
}
