// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package job turns suspendable work into controllable jobs, sequences jobs in
// queues and groups them under managers.
//
// Nothing in this package locks. Every method must be called on the goroutine
// that ticks the job's scheduler: from inside work, from an event handler, or
// through scheduler.Post / scheduler.Call.
package job

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulntor/tickjob/pkg/event"
	"github.com/vulntor/tickjob/pkg/scheduler"
	"github.com/vulntor/tickjob/pkg/work"
)

// Job wraps one work template in a state machine.
type Job struct {
	id     string
	work   work.Work
	sched  *scheduler.Scheduler
	logger zerolog.Logger

	state      State
	routine    work.Routine
	resumeAt   time.Time
	pausedAt   time.Time
	workDone   bool // the routine finished this cycle; children may still run
	restarting bool // Completed is transient because another cycle follows
	scheduled  bool

	repeat        repeatPolicy
	timesExecuted int
	killed        bool
	clones        int

	children []*Job
	parent   *Job
	pending  []*scheduler.Timer

	onStarted       event.List[JobEvent]
	onPaused        event.List[JobEvent]
	onResumed       event.List[JobEvent]
	onComplete      event.List[JobEvent]
	onChildStarted  event.List[JobEvent]
	onChildComplete event.List[JobEvent]

	onTerminal []func()
}

// New creates an idle job around w.
func New(w work.Work, opts ...Option) *Job {
	o := buildOptions(opts)
	return newJob(w, o.id, o.sched)
}

func newJob(w work.Work, id string, sched *scheduler.Scheduler) *Job {
	if w == nil {
		w = work.Func(func(func(work.Yield) bool) {})
	}
	return &Job{
		id:     id,
		work:   w,
		sched:  sched,
		logger: sched.Logger().With().Str("job_id", id).Logger(),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// String identifies the job in logs.
func (j *Job) String() string { return "job:" + j.id }

// State returns the current lifecycle state.
func (j *Job) State() State { return j.state }

// Killed reports whether the job ended by Kill rather than by completing.
func (j *Job) Killed() bool { return j.killed }

// TimesExecuted returns how many cycles finished naturally.
func (j *Job) TimesExecuted() int { return j.timesExecuted }

// Repeating reports whether a repeat policy is set.
func (j *Job) Repeating() bool { return j.repeat.active() }

// Parent returns the owning job, or nil.
func (j *Job) Parent() *Job { return j.parent }

// Children returns a copy of the owned child list.
func (j *Job) Children() []*Job {
	if len(j.children) == 0 {
		return nil
	}
	return append([]*Job(nil), j.children...)
}

// Scheduler returns the scheduler the job runs on.
func (j *Job) Scheduler() *scheduler.Scheduler { return j.sched }

func (j *Job) terminal() bool {
	return j.state == StateKilled || (j.state == StateCompleted && !j.restarting)
}

// Start runs the job now. See StartAfter.
func (j *Job) Start() *Job { return j.StartAfter(0) }

// StartAfter moves an Idle or Paused job to Running once d has elapsed and
// fires Started. Owned children start right after the parent.
func (j *Job) StartAfter(d time.Duration) *Job {
	j.later(d, j.start)
	return j
}

// Pause suspends the job now. See PauseAfter.
func (j *Job) Pause() *Job { return j.PauseAfter(0) }

// PauseAfter suspends a Running job once d has elapsed and fires Paused.
func (j *Job) PauseAfter(d time.Duration) *Job {
	j.later(d, j.pause)
	return j
}

// Resume continues a paused job now. See ResumeAfter.
func (j *Job) Resume() *Job { return j.ResumeAfter(0) }

// ResumeAfter continues a Paused job once d has elapsed and fires Resumed.
func (j *Job) ResumeAfter(d time.Duration) *Job {
	j.later(d, j.resume)
	return j
}

// Kill ends the job now. See KillAfter.
func (j *Job) Kill() *Job { return j.KillAfter(0) }

// KillAfter moves any non-terminal job to Killed once d has elapsed. Children
// are killed first, then Complete fires with Killed set.
func (j *Job) KillAfter(d time.Duration) *Job {
	j.later(d, j.kill)
	return j
}

// Repeat runs the work n times in total. n <= 1 clears the policy.
func (j *Job) Repeat(n int) *Job {
	if !j.terminal() {
		j.repeat = finiteRepeat(n)
	}
	return j
}

// RepeatForever restarts the work after every natural completion until
// StopRepeat or Kill.
func (j *Job) RepeatForever() *Job {
	if !j.terminal() {
		j.repeat = repeatPolicy{mode: repeatForever}
	}
	return j
}

// StopRepeat clears the repeat policy now. See StopRepeatAfter.
func (j *Job) StopRepeat() *Job { return j.StopRepeatAfter(0) }

// StopRepeatAfter clears the repeat policy once d has elapsed. The current
// cycle still finishes; no further cycle starts.
func (j *Job) StopRepeatAfter(d time.Duration) *Job {
	j.later(d, func() {
		j.repeat = repeatPolicy{}
	})
	return j
}

// AddChild appends an owned child built from w.
func (j *Job) AddChild(w work.Work) *Job {
	id := fmt.Sprintf("%s/child-%d", j.id, len(j.children)+1)
	return j.AddChildJob(newJob(w, id, j.sched))
}

// AddChildJob appends c as an owned child. A job that already has a parent is
// ignored. A child added mid-cycle joins the cycle at once, paused when the
// parent is paused, and the parent waits for it before completing.
func (j *Job) AddChildJob(c *Job) *Job {
	if c == nil || c == j || c.parent != nil || j.terminal() {
		return j
	}
	c.parent = j
	j.children = append(j.children, c)
	switch j.state {
	case StateRunning:
		j.startChild(c)
	case StatePaused:
		j.startChild(c)
		c.pause()
	}
	return j
}

// Clone returns an idle copy sharing the work template, repeat policy and
// handler references. Children are cloned deeply. The copy gets its own id,
// "<id>.clone-<n>", so clones can be registered side by side.
func (j *Job) Clone() *Job {
	j.clones++
	return j.cloneAs(fmt.Sprintf("%s.clone-%d", j.id, j.clones))
}

// cloneAs copies j under id. Children keep their ids.
func (j *Job) cloneAs(id string) *Job {
	c := newJob(j.work, id, j.sched)
	c.repeat = j.repeat
	c.onStarted = j.onStarted.Clone()
	c.onPaused = j.onPaused.Clone()
	c.onResumed = j.onResumed.Clone()
	c.onComplete = j.onComplete.Clone()
	c.onChildStarted = j.onChildStarted.Clone()
	c.onChildComplete = j.onChildComplete.Clone()
	for _, child := range j.children {
		cc := child.cloneAs(child.id)
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

// CloneN returns n independent clones.
func (j *Job) CloneN(n int) []*Job {
	clones := make([]*Job, 0, n)
	for i := 0; i < n; i++ {
		clones = append(clones, j.Clone())
	}
	return clones
}

// later runs fn now when d <= 0, otherwise after d. Pending calls are
// dropped when the job reaches a terminal state.
func (j *Job) later(d time.Duration, fn func()) {
	if j.terminal() {
		return
	}
	if d <= 0 {
		fn()
		return
	}
	var t *scheduler.Timer
	t = j.sched.After(d, func() {
		j.dropPending(t)
		fn()
	})
	j.pending = append(j.pending, t)
}

func (j *Job) dropPending(t *scheduler.Timer) {
	for i, p := range j.pending {
		if p == t {
			j.pending = append(j.pending[:i], j.pending[i+1:]...)
			return
		}
	}
}

func (j *Job) cancelPending() {
	for _, t := range j.pending {
		t.Stop()
	}
	j.pending = nil
}

func (j *Job) start() {
	switch j.state {
	case StateIdle:
		j.state = StateRunning
		j.startCycle()
		j.logger.Debug().Msg("job started")
		j.onStarted.Emit(j.event())
		if j.terminal() {
			return
		}
		j.startChildren()
	case StatePaused:
		j.state = StateRunning
		j.unfreeze()
		j.resumeChildren()
		j.logger.Debug().Msg("job restarted from pause")
		j.onStarted.Emit(j.event())
		j.tryFinishCycle()
	default:
		j.logger.Debug().Stringer("state", j.state).Msg("start ignored")
	}
}

func (j *Job) pause() {
	if j.state != StateRunning {
		j.logger.Debug().Stringer("state", j.state).Msg("pause ignored")
		return
	}
	j.state = StatePaused
	j.pausedAt = j.sched.Now()
	for _, c := range j.children {
		if c.state == StateRunning {
			c.pause()
		}
	}
	j.logger.Debug().Msg("job paused")
	j.onPaused.Emit(j.event())
}

func (j *Job) resume() {
	if j.state != StatePaused {
		j.logger.Debug().Stringer("state", j.state).Msg("resume ignored")
		return
	}
	j.state = StateRunning
	j.unfreeze()
	j.resumeChildren()
	j.logger.Debug().Msg("job resumed")
	j.onResumed.Emit(j.event())
	j.tryFinishCycle()
}

// unfreeze shifts a pending wake-up by the time spent paused.
func (j *Job) unfreeze() {
	if !j.resumeAt.IsZero() && !j.pausedAt.IsZero() {
		j.resumeAt = j.resumeAt.Add(j.sched.Now().Sub(j.pausedAt))
	}
	j.pausedAt = time.Time{}
	j.ensureScheduled()
}

func (j *Job) resumeChildren() {
	for _, c := range j.children {
		if c.state == StatePaused {
			c.resume()
		}
	}
}

func (j *Job) kill() {
	if j.terminal() {
		return
	}
	j.state = StateKilled
	j.killed = true
	j.restarting = false
	j.cancelPending()
	j.stopRoutine()
	for _, c := range j.children {
		c.kill()
	}
	j.logger.Debug().Int("times_executed", j.timesExecuted).Msg("job killed")
	j.onComplete.Emit(j.event())
	j.terminated()
}

func (j *Job) startCycle() {
	j.routine = j.work.NewRoutine()
	j.workDone = false
	j.resumeAt = time.Time{}
	j.ensureScheduled()
}

func (j *Job) startChildren() {
	for _, c := range j.children {
		j.startChild(c)
	}
}

func (j *Job) startChild(c *Job) {
	if c.state != StateIdle {
		c.reset()
	}
	c.start()
	j.onChildStarted.Emit(j.childEvent(c))
}

// reset returns an owned child to Idle so the parent's next cycle can run it again.
func (j *Job) reset() {
	j.cancelPending()
	j.stopRoutine()
	j.state = StateIdle
	j.killed = false
	j.workDone = false
	j.restarting = false
	j.timesExecuted = 0
	j.resumeAt = time.Time{}
	j.pausedAt = time.Time{}
	j.onTerminal = nil
	for _, c := range j.children {
		c.reset()
	}
}

func (j *Job) stopRoutine() {
	if j.routine != nil {
		j.routine.Stop()
		j.routine = nil
	}
}

func (j *Job) ensureScheduled() {
	if j.scheduled {
		return
	}
	j.scheduled = true
	j.sched.Schedule(scheduler.TaskFunc(j.step))
}

// step advances the routine by one suspension point.
func (j *Job) step(now time.Time) bool {
	if j.state != StateRunning || j.workDone || j.routine == nil {
		j.scheduled = false
		return false
	}
	if now.Before(j.resumeAt) {
		return true
	}

	r := j.routine
	y := r.Step()
	if j.routine != r {
		// killed or restarted while stepping; a restart owns a new routine
		if j.state == StateRunning && j.routine != nil {
			return true
		}
		j.scheduled = false
		return false
	}
	switch y.Kind {
	case work.KindDone:
		j.routine = nil
		j.workDone = true
		j.tryFinishCycle()
		if j.state == StateRunning && !j.workDone {
			// the next cycle already started
			return true
		}
		j.scheduled = false
		return false
	case work.KindSleep:
		j.resumeAt = now.Add(y.Delay)
	default:
		j.resumeAt = time.Time{}
	}
	return true
}

// tryFinishCycle ends the cycle once the routine is done and every child is terminal.
func (j *Job) tryFinishCycle() {
	if j.state != StateRunning || !j.workDone {
		return
	}
	for _, c := range j.children {
		if !c.terminal() {
			return
		}
	}

	j.timesExecuted++
	if !j.repeat.allows(j.timesExecuted) {
		j.state = StateCompleted
		j.cancelPending()
		j.logger.Debug().Int("times_executed", j.timesExecuted).Msg("job complete")
		j.onComplete.Emit(j.event())
		j.terminated()
		return
	}

	j.state = StateCompleted
	j.restarting = true
	j.logger.Debug().Int("times_executed", j.timesExecuted).Msg("job cycle complete, repeating")
	j.onComplete.Emit(j.event())
	if j.state != StateCompleted || !j.restarting {
		// a handler killed the job
		return
	}
	j.restarting = false
	j.state = StateRunning
	j.startCycle()
	j.startChildren()
}

func (j *Job) terminated() {
	hooks := j.onTerminal
	j.onTerminal = nil
	for _, h := range hooks {
		h()
	}
	if j.parent != nil {
		j.parent.childFinished(j)
	}
}

func (j *Job) childFinished(c *Job) {
	j.onChildComplete.Emit(j.childEvent(c))
	j.tryFinishCycle()
}

func (j *Job) event() JobEvent {
	return JobEvent{
		Job:           j,
		ID:            j.id,
		Killed:        j.killed,
		TimesExecuted: j.timesExecuted,
		Final:         j.terminal(),
		ChildJobs:     j.Children(),
	}
}

func (j *Job) childEvent(c *Job) JobEvent {
	e := j.event()
	e.Child = c
	return e
}

// NotifyOnJobStarted registers h for Started.
func (j *Job) NotifyOnJobStarted(h func(JobEvent)) *Job {
	j.onStarted.Subscribe(h)
	return j
}

// NotifyOnJobPaused registers h for Paused.
func (j *Job) NotifyOnJobPaused(h func(JobEvent)) *Job {
	j.onPaused.Subscribe(h)
	return j
}

// NotifyOnJobResumed registers h for Resumed.
func (j *Job) NotifyOnJobResumed(h func(JobEvent)) *Job {
	j.onResumed.Subscribe(h)
	return j
}

// NotifyOnJobComplete registers h for Complete. It fires at the end of every
// cycle; JobEvent.Final tells the last one apart.
func (j *Job) NotifyOnJobComplete(h func(JobEvent)) *Job {
	j.onComplete.Subscribe(h)
	return j
}

// NotifyOnChildJobStarted registers h for ChildStarted.
func (j *Job) NotifyOnChildJobStarted(h func(JobEvent)) *Job {
	j.onChildStarted.Subscribe(h)
	return j
}

// NotifyOnChildJobComplete registers h for ChildComplete.
func (j *Job) NotifyOnChildJobComplete(h func(JobEvent)) *Job {
	j.onChildComplete.Subscribe(h)
	return j
}

// OnStarted registers h for Started and returns a handle for removal.
func (j *Job) OnStarted(h func(JobEvent)) event.Subscription { return j.onStarted.Subscribe(h) }

// OnPaused registers h for Paused and returns a handle for removal.
func (j *Job) OnPaused(h func(JobEvent)) event.Subscription { return j.onPaused.Subscribe(h) }

// OnResumed registers h for Resumed and returns a handle for removal.
func (j *Job) OnResumed(h func(JobEvent)) event.Subscription { return j.onResumed.Subscribe(h) }

// OnComplete registers h for Complete and returns a handle for removal.
func (j *Job) OnComplete(h func(JobEvent)) event.Subscription { return j.onComplete.Subscribe(h) }

// OnChildStarted registers h for ChildStarted and returns a handle for removal.
func (j *Job) OnChildStarted(h func(JobEvent)) event.Subscription {
	return j.onChildStarted.Subscribe(h)
}

// OnChildComplete registers h for ChildComplete and returns a handle for removal.
func (j *Job) OnChildComplete(h func(JobEvent)) event.Subscription {
	return j.onChildComplete.Subscribe(h)
}

// queue entry plumbing

func (j *Job) run()                   { j.start() }
func (j *Job) pauseNow()              { j.pause() }
func (j *Job) resumeNow()             { j.resume() }
func (j *Job) abort()                 { j.kill() }
func (j *Job) isTerminal() bool       { return j.terminal() }
func (j *Job) cloneEntry() Entry      { return j.cloneAs(j.id) }
func (j *Job) whenTerminal(fn func()) { j.onTerminal = append(j.onTerminal, fn) }
