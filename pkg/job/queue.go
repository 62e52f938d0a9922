// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/vulntor/tickjob/pkg/event"
	"github.com/vulntor/tickjob/pkg/scheduler"
	"github.com/vulntor/tickjob/pkg/work"
)

// Entry is anything a Queue can run: a *Job or a nested *Queue.
type Entry interface {
	ID() string
	Killed() bool

	run()
	pauseNow()
	resumeNow()
	abort()
	isTerminal() bool
	cloneEntry() Entry
	whenTerminal(fn func())
}

var (
	_ Entry = (*Job)(nil)
	_ Entry = (*Queue)(nil)
)

// Queue runs entries one at a time in enqueue order.
//
// The first cycle runs the enqueued entries themselves. Repeat cycles run
// fresh clones so a template is never permanently consumed.
type Queue struct {
	id         string
	sched      *scheduler.Scheduler
	logger     zerolog.Logger
	continuous bool

	state   State
	entries []Entry
	cursor  int
	current Entry
	history []Record

	cycle         int
	timesExecuted int
	repeat        repeatPolicy

	forced     bool // force-completed by KillAll
	killingAll bool
	waiting    bool // continuous queue drained, waiting for entries
	advancing  bool
	pending    []*scheduler.Timer

	onStarted      event.List[QueueEvent]
	onJobProcessed event.List[QueueEvent]
	onComplete     event.List[QueueEvent]

	onTerminal []func()
}

// NewQueue creates an empty idle queue.
func NewQueue(opts ...Option) *Queue {
	o := buildOptions(opts)
	return newQueue(o.id, o.sched, o.continuous)
}

func newQueue(id string, sched *scheduler.Scheduler, continuous bool) *Queue {
	return &Queue{
		id:         id,
		sched:      sched,
		continuous: continuous,
		logger:     sched.Logger().With().Str("queue_id", id).Logger(),
	}
}

// ID returns the queue identifier.
func (q *Queue) ID() string { return q.id }

// String identifies the queue in logs.
func (q *Queue) String() string { return "queue:" + q.id }

// State returns the current lifecycle state.
func (q *Queue) State() State { return q.state }

// Killed reports whether the queue was force-completed by KillAll.
func (q *Queue) Killed() bool { return q.forced }

// TimesExecuted returns how many cycles ran to exhaustion.
func (q *Queue) TimesExecuted() int { return q.timesExecuted }

// Repeating reports whether a repeat policy is set.
func (q *Queue) Repeating() bool { return q.repeat.active() }

// IsContinuous reports whether the queue waits for new entries instead of completing.
func (q *Queue) IsContinuous() bool { return q.continuous }

// Len returns the number of entries in the sequence, processed or not.
func (q *Queue) Len() int { return len(q.entries) }

// Current returns the in-flight entry, or nil.
func (q *Queue) Current() Entry { return q.current }

// CompletedJobs returns the records of the current cycle.
func (q *Queue) CompletedJobs() []Record {
	return append([]Record(nil), q.history...)
}

// QueuedJobs returns the entries not yet reached in the current cycle.
func (q *Queue) QueuedJobs() []Entry {
	from := q.cursor
	if q.current != nil {
		from++
	}
	if from >= len(q.entries) {
		return nil
	}
	return append([]Entry(nil), q.entries[from:]...)
}

// Enqueue appends entries. Entries appended after Start run when the cursor
// reaches them. A completed queue ignores new entries.
func (q *Queue) Enqueue(entries ...Entry) *Queue {
	if q.state == StateCompleted {
		q.logger.Debug().Int("entries", len(entries)).Msg("enqueue ignored on completed queue")
		return q
	}
	for _, e := range entries {
		if e == nil || e == Entry(q) {
			continue
		}
		q.entries = append(q.entries, e)
	}
	if q.waiting && q.state == StateRunning && q.cursor < len(q.entries) {
		q.openBatch()
	}
	return q
}

// EnqueueJobs appends jobs.
func (q *Queue) EnqueueJobs(jobs ...*Job) *Queue {
	entries := make([]Entry, 0, len(jobs))
	for _, j := range jobs {
		if j != nil {
			entries = append(entries, j)
		}
	}
	return q.Enqueue(entries...)
}

// EnqueueWork wraps each work in a new job on the queue's scheduler and appends it.
func (q *Queue) EnqueueWork(ws ...work.Work) *Queue {
	entries := make([]Entry, 0, len(ws))
	for _, w := range ws {
		entries = append(entries, New(w, WithScheduler(q.sched)))
	}
	return q.Enqueue(entries...)
}

// Start runs the queue now. See StartAfter.
func (q *Queue) Start() *Queue { return q.StartAfter(0) }

// StartAfter begins processing once d has elapsed. Starting a paused queue resumes it.
func (q *Queue) StartAfter(d time.Duration) *Queue {
	q.later(d, q.start)
	return q
}

// Pause pauses the in-flight entry now. See PauseAfter.
func (q *Queue) Pause() *Queue { return q.PauseAfter(0) }

// PauseAfter pauses the queue and its in-flight entry once d has elapsed.
// Entries not yet reached are unaffected.
func (q *Queue) PauseAfter(d time.Duration) *Queue {
	q.later(d, q.pause)
	return q
}

// Resume resumes the queue now. See ResumeAfter.
func (q *Queue) Resume() *Queue { return q.ResumeAfter(0) }

// ResumeAfter resumes the queue and its in-flight entry once d has elapsed.
func (q *Queue) ResumeAfter(d time.Duration) *Queue {
	q.later(d, q.resume)
	return q
}

// KillCurrent kills the in-flight entry now. See KillCurrentAfter.
func (q *Queue) KillCurrent() *Queue { return q.KillCurrentAfter(0) }

// KillCurrentAfter kills whichever entry is in flight once d has elapsed. The
// kill is recorded and the queue moves on to the next entry.
func (q *Queue) KillCurrentAfter(d time.Duration) *Queue {
	q.later(d, q.killCurrent)
	return q
}

// KillAll force-completes the queue now. See KillAllAfter.
func (q *Queue) KillAll() *Queue { return q.KillAllAfter(0) }

// KillAllAfter kills the in-flight entry, discards every entry that has not
// started and completes the queue once d has elapsed. Only the in-flight
// entry is recorded.
func (q *Queue) KillAllAfter(d time.Duration) *Queue {
	q.later(d, q.killAll)
	return q
}

// Repeat runs the whole sequence n times in total. n <= 1 clears the policy.
func (q *Queue) Repeat(n int) *Queue {
	if q.state != StateCompleted {
		q.repeat = finiteRepeat(n)
	}
	return q
}

// RepeatForever restarts the sequence after every exhaustion until StopRepeat or KillAll.
func (q *Queue) RepeatForever() *Queue {
	if q.state != StateCompleted {
		q.repeat = repeatPolicy{mode: repeatForever}
	}
	return q
}

// StopRepeat clears the repeat policy now. See StopRepeatAfter.
func (q *Queue) StopRepeat() *Queue { return q.StopRepeatAfter(0) }

// StopRepeatAfter clears the repeat policy once d has elapsed; the current cycle still finishes.
func (q *Queue) StopRepeatAfter(d time.Duration) *Queue {
	q.later(d, func() {
		q.repeat = repeatPolicy{}
	})
	return q
}

// Clone returns an idle copy with cloned entries, the same repeat policy and
// the same handler references.
func (q *Queue) Clone() *Queue {
	c := newQueue(q.id, q.sched, q.continuous)
	c.repeat = q.repeat
	c.onStarted = q.onStarted.Clone()
	c.onJobProcessed = q.onJobProcessed.Clone()
	c.onComplete = q.onComplete.Clone()
	c.entries = make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		c.entries = append(c.entries, e.cloneEntry())
	}
	return c
}

// CloneN returns n independent clones.
func (q *Queue) CloneN(n int) []*Queue {
	clones := make([]*Queue, 0, n)
	for i := 0; i < n; i++ {
		clones = append(clones, q.Clone())
	}
	return clones
}

func (q *Queue) later(d time.Duration, fn func()) {
	if q.state == StateCompleted {
		return
	}
	if d <= 0 {
		fn()
		return
	}
	var t *scheduler.Timer
	t = q.sched.After(d, func() {
		for i, p := range q.pending {
			if p == t {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				break
			}
		}
		fn()
	})
	q.pending = append(q.pending, t)
}

func (q *Queue) start() {
	switch q.state {
	case StateIdle:
		q.state = StateRunning
		q.beginCycle()
	case StatePaused:
		q.resume()
	default:
		q.logger.Debug().Stringer("state", q.state).Msg("start ignored")
	}
}

func (q *Queue) beginCycle() {
	q.cursor = 0
	q.history = nil
	if q.continuous && len(q.entries) == 0 {
		q.waiting = true
		return
	}
	q.logger.Debug().Int("cycle", q.cycle).Int("entries", len(q.entries)).Msg("queue started")
	q.onStarted.Emit(q.event())
	q.advance()
}

// openBatch starts a new batch on a drained continuous queue.
func (q *Queue) openBatch() {
	q.waiting = false
	q.cycle = 0
	q.history = nil
	q.logger.Debug().Int("entries", len(q.entries)-q.cursor).Msg("queue batch started")
	q.onStarted.Emit(q.event())
	q.advance()
}

// advance starts entries until one is in flight or the sequence is exhausted.
func (q *Queue) advance() {
	if q.advancing {
		return
	}
	q.advancing = true
	defer func() { q.advancing = false }()

	for q.state == StateRunning && q.current == nil && !q.waiting {
		if q.cursor >= len(q.entries) {
			q.exhausted()
			continue
		}
		e := q.entries[q.cursor]
		if q.cycle > 0 {
			e = e.cloneEntry()
		}
		if e.isTerminal() {
			// ended before its turn; history only holds entries that ran
			q.cursor++
			q.logger.Debug().Str("entry_id", e.ID()).Msg("queue entry skipped")
			continue
		}
		q.current = e
		e.whenTerminal(func() { q.entryFinished(e) })
		e.run()
	}
}

func (q *Queue) entryFinished(e Entry) {
	if q.current != e {
		return
	}
	q.current = nil
	q.cursor++
	q.history = append(q.history, Record{ID: e.ID(), Killed: e.Killed()})
	q.logger.Debug().Str("entry_id", e.ID()).Bool("killed", e.Killed()).Msg("queue entry processed")
	q.onJobProcessed.Emit(q.event())
	if q.killingAll {
		return
	}
	q.advance()
}

func (q *Queue) exhausted() {
	q.timesExecuted++
	switch {
	case q.repeat.allows(q.timesExecuted) && len(q.entries) > 0:
		q.logger.Debug().Int("times_executed", q.timesExecuted).Msg("queue cycle complete, repeating")
		q.onComplete.Emit(q.event())
		if q.state == StateCompleted {
			return
		}
		q.cycle++
		q.beginCycle()
	case q.continuous:
		q.entries = nil
		q.cursor = 0
		q.waiting = true
		q.logger.Debug().Int("times_executed", q.timesExecuted).Msg("queue drained, waiting for entries")
		q.onComplete.Emit(q.event())
	default:
		q.finish()
	}
}

func (q *Queue) finish() {
	q.state = StateCompleted
	q.waiting = false
	for _, t := range q.pending {
		t.Stop()
	}
	q.pending = nil
	q.logger.Debug().Int("times_executed", q.timesExecuted).Bool("killed", q.forced).Msg("queue complete")
	q.onComplete.Emit(q.event())

	hooks := q.onTerminal
	q.onTerminal = nil
	for _, h := range hooks {
		h()
	}
}

func (q *Queue) pause() {
	if q.state != StateRunning {
		q.logger.Debug().Stringer("state", q.state).Msg("pause ignored")
		return
	}
	q.state = StatePaused
	if q.current != nil {
		q.current.pauseNow()
	}
	q.logger.Debug().Msg("queue paused")
}

func (q *Queue) resume() {
	if q.state != StatePaused {
		q.logger.Debug().Stringer("state", q.state).Msg("resume ignored")
		return
	}
	q.state = StateRunning
	q.logger.Debug().Msg("queue resumed")
	switch {
	case q.current != nil:
		q.current.resumeNow()
	case q.waiting:
		if q.cursor < len(q.entries) {
			q.openBatch()
		}
	default:
		q.advance()
	}
}

func (q *Queue) killCurrent() {
	if q.current == nil {
		q.logger.Debug().Msg("kill current ignored, nothing in flight")
		return
	}
	q.current.abort()
}

func (q *Queue) killAll() {
	if q.state == StateCompleted {
		return
	}
	q.killingAll = true
	if q.current != nil {
		q.current.abort()
	}
	q.current = nil
	discarded := len(q.entries) - q.cursor
	q.entries = q.entries[:q.cursor]
	q.forced = true
	q.logger.Debug().Int("discarded", discarded).Msg("queue killed")
	q.finish()
}

func (q *Queue) event() QueueEvent {
	return QueueEvent{
		Queue:         q,
		ID:            q.id,
		CompletedJobs: q.CompletedJobs(),
		QueuedJobs:    q.QueuedJobs(),
		TimesExecuted: q.timesExecuted,
		Repeating:     q.repeat.active(),
		Killed:        q.forced,
	}
}

// NotifyOnQueueStarted registers h for Started, fired at the start of every cycle.
func (q *Queue) NotifyOnQueueStarted(h func(QueueEvent)) *Queue {
	q.onStarted.Subscribe(h)
	return q
}

// NotifyOnJobProcessed registers h for JobProcessed, fired once per finished entry.
func (q *Queue) NotifyOnJobProcessed(h func(QueueEvent)) *Queue {
	q.onJobProcessed.Subscribe(h)
	return q
}

// NotifyOnQueueComplete registers h for Complete, fired once per cycle.
func (q *Queue) NotifyOnQueueComplete(h func(QueueEvent)) *Queue {
	q.onComplete.Subscribe(h)
	return q
}

// OnStarted registers h for Started and returns a handle for removal.
func (q *Queue) OnStarted(h func(QueueEvent)) event.Subscription { return q.onStarted.Subscribe(h) }

// OnJobProcessed registers h for JobProcessed and returns a handle for removal.
func (q *Queue) OnJobProcessed(h func(QueueEvent)) event.Subscription {
	return q.onJobProcessed.Subscribe(h)
}

// OnComplete registers h for Complete and returns a handle for removal.
func (q *Queue) OnComplete(h func(QueueEvent)) event.Subscription { return q.onComplete.Subscribe(h) }

func (q *Queue) run()                   { q.start() }
func (q *Queue) pauseNow()              { q.pause() }
func (q *Queue) resumeNow()             { q.resume() }
func (q *Queue) abort()                 { q.killAll() }
func (q *Queue) isTerminal() bool       { return q.state == StateCompleted }
func (q *Queue) cloneEntry() Entry      { return q.Clone() }
func (q *Queue) whenTerminal(fn func()) { q.onTerminal = append(q.onTerminal, fn) }
