// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

// JobEvent is delivered to Job handlers.
type JobEvent struct {
	// Job is the job the handler was registered on. For child events it is
	// the parent.
	Job *Job
	ID  string

	// Killed is true when the job reached Killed rather than Completed.
	Killed        bool
	TimesExecuted int

	// Final is true when no further cycle follows this event.
	Final bool

	// Child is the child that triggered a ChildStarted/ChildComplete event.
	Child     *Job
	ChildJobs []*Job
}

// HasChildJobs reports whether the job owns children.
func (e JobEvent) HasChildJobs() bool { return len(e.ChildJobs) > 0 }

// Record is one processed queue entry.
type Record struct {
	ID     string `json:"id"`
	Killed bool   `json:"killed"`
}

// QueueEvent is delivered to Queue handlers.
type QueueEvent struct {
	Queue *Queue
	ID    string

	// CompletedJobs holds the entries processed so far in the current cycle.
	CompletedJobs []Record
	// QueuedJobs holds the entries not yet reached in the current cycle.
	QueuedJobs []Entry

	TimesExecuted int
	Repeating     bool
	// Killed is true when the queue was force-completed by KillAll.
	Killed bool
}

// HasCompletedJobs reports whether any entry has been processed this cycle.
func (e QueueEvent) HasCompletedJobs() bool { return len(e.CompletedJobs) > 0 }

// HasJobsInQueue reports whether entries are still waiting to run.
func (e QueueEvent) HasJobsInQueue() bool { return len(e.QueuedJobs) > 0 }

// KilledCount returns how many processed entries were killed.
func (e QueueEvent) KilledCount() int {
	n := 0
	for _, r := range e.CompletedJobs {
		if r.Killed {
			n++
		}
	}
	return n
}

// JobEditedEvent is delivered when a manager adds or removes a job.
type JobEditedEvent struct {
	Manager *Manager
	Job     *Job
	ID      string
}

// ManagerEvent is delivered after a registry-wide operation.
type ManagerEvent struct {
	Manager *Manager
	// Jobs are the jobs the operation applied to.
	Jobs []*Job
}
