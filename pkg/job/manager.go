// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/vulntor/tickjob/pkg/event"
	"github.com/vulntor/tickjob/pkg/scheduler"
)

// Manager is a named registry of independently owned jobs.
//
// Bulk operations visit jobs in registration order.
type Manager struct {
	id     string
	sched  *scheduler.Scheduler
	logger zerolog.Logger

	jobs  map[string]*Job
	order []string

	onAdded      event.List[JobEditedEvent]
	onRemoved    event.List[JobEditedEvent]
	onAllKilled  event.List[ManagerEvent]
	onAllPaused  event.List[ManagerEvent]
	onAllResumed event.List[ManagerEvent]
	onAllCleared event.List[ManagerEvent]
}

// NewManager creates an empty registry.
func NewManager(opts ...Option) *Manager {
	o := buildOptions(opts)
	return &Manager{
		id:     o.id,
		sched:  o.sched,
		jobs:   make(map[string]*Job),
		logger: o.sched.Logger().With().Str("manager_id", o.id).Logger(),
	}
}

// ID returns the manager identifier.
func (m *Manager) ID() string { return m.id }

// Scheduler returns the scheduler the manager was created on.
func (m *Manager) Scheduler() *scheduler.Scheduler { return m.sched }

// Len returns the number of registered jobs.
func (m *Manager) Len() int { return len(m.order) }

// Job returns the job registered under id.
func (m *Manager) Job(id string) (*Job, bool) {
	j, ok := m.jobs[id]
	return j, ok
}

// Jobs returns the registered jobs in registration order.
func (m *Manager) Jobs() []*Job {
	out := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id])
	}
	return out
}

// AddJob registers j under its id and fires Added. An id that is already
// registered is rejected with ErrDuplicateID.
func (m *Manager) AddJob(j *Job) error {
	if j == nil {
		return WithErrorCode(ErrNilJob, errorCodeNilJob)
	}
	if _, exists := m.jobs[j.ID()]; exists {
		m.logger.Warn().Str("job_id", j.ID()).Msg("duplicate job id rejected")
		return duplicateIDError(m.id, j.ID())
	}
	m.jobs[j.ID()] = j
	m.order = append(m.order, j.ID())
	m.logger.Debug().Str("job_id", j.ID()).Msg("job added")
	m.onAdded.Emit(JobEditedEvent{Manager: m, Job: j, ID: j.ID()})
	return nil
}

// RemoveJob deregisters and kills the job registered under id, then fires Removed.
func (m *Manager) RemoveJob(id string) error {
	j, err := m.lookup(id, "remove")
	if err != nil {
		return err
	}
	m.detach(id)
	j.Kill()
	m.logger.Debug().Str("job_id", id).Msg("job removed")
	m.onRemoved.Emit(JobEditedEvent{Manager: m, Job: j, ID: id})
	return nil
}

// StopCoroutine is RemoveJob.
func (m *Manager) StopCoroutine(id string) error { return m.RemoveJob(id) }

// StartCoroutine starts the job registered under id.
func (m *Manager) StartCoroutine(id string) error {
	j, err := m.lookup(id, "start")
	if err != nil {
		return err
	}
	j.Start()
	return nil
}

// PauseCoroutine pauses the job registered under id.
func (m *Manager) PauseCoroutine(id string) error {
	j, err := m.lookup(id, "pause")
	if err != nil {
		return err
	}
	j.Pause()
	return nil
}

// ResumeCoroutine resumes the job registered under id.
func (m *Manager) ResumeCoroutine(id string) error {
	j, err := m.lookup(id, "resume")
	if err != nil {
		return err
	}
	j.Resume()
	return nil
}

// StartAll starts every registered job now. See StartAllAfter.
func (m *Manager) StartAll() *Manager { return m.StartAllAfter(0) }

// StartAllAfter starts every registered job once d has elapsed.
func (m *Manager) StartAllAfter(d time.Duration) *Manager {
	for _, j := range m.Jobs() {
		j.StartAfter(d)
	}
	return m
}

// PauseAll pauses every registered job now. See PauseAllAfter.
func (m *Manager) PauseAll() *Manager { return m.PauseAllAfter(0) }

// PauseAllAfter pauses every registered job once d has elapsed and fires AllPaused.
func (m *Manager) PauseAllAfter(d time.Duration) *Manager {
	jobs := m.Jobs()
	for _, j := range jobs {
		j.PauseAfter(d)
	}
	m.onAllPaused.Emit(ManagerEvent{Manager: m, Jobs: jobs})
	return m
}

// ResumeAll resumes every registered job now. See ResumeAllAfter.
func (m *Manager) ResumeAll() *Manager { return m.ResumeAllAfter(0) }

// ResumeAllAfter resumes every registered job once d has elapsed and fires AllResumed.
func (m *Manager) ResumeAllAfter(d time.Duration) *Manager {
	jobs := m.Jobs()
	for _, j := range jobs {
		j.ResumeAfter(d)
	}
	m.onAllResumed.Emit(ManagerEvent{Manager: m, Jobs: jobs})
	return m
}

// KillAll kills and deregisters every job now. See KillAllAfter.
func (m *Manager) KillAll() *Manager { return m.KillAllAfter(0) }

// KillAllAfter schedules a kill for every registered job, empties the
// registry and fires AllKilled once. With d > 0 the kills land later.
func (m *Manager) KillAllAfter(d time.Duration) *Manager {
	jobs := m.Jobs()
	m.reset()
	for _, j := range jobs {
		j.KillAfter(d)
	}
	m.logger.Debug().Int("jobs", len(jobs)).Dur("delay", d).Msg("all jobs killed")
	m.onAllKilled.Emit(ManagerEvent{Manager: m, Jobs: jobs})
	return m
}

// ClearJobList deregisters every job without killing it and fires AllCleared.
func (m *Manager) ClearJobList() *Manager {
	jobs := m.Jobs()
	m.reset()
	m.logger.Debug().Int("jobs", len(jobs)).Msg("job list cleared")
	m.onAllCleared.Emit(ManagerEvent{Manager: m, Jobs: jobs})
	return m
}

func (m *Manager) lookup(id, op string) (*Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		m.logger.Warn().Str("job_id", id).Str("op", op).Msg("job not found")
		return nil, notFoundError(m.id, id)
	}
	return j, nil
}

func (m *Manager) detach(id string) {
	delete(m.jobs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Manager) reset() {
	m.jobs = make(map[string]*Job)
	m.order = nil
}

// NotifyOnJobAdded registers h for Added.
func (m *Manager) NotifyOnJobAdded(h func(JobEditedEvent)) *Manager {
	m.onAdded.Subscribe(h)
	return m
}

// NotifyOnJobRemoved registers h for Removed.
func (m *Manager) NotifyOnJobRemoved(h func(JobEditedEvent)) *Manager {
	m.onRemoved.Subscribe(h)
	return m
}

// NotifyOnAllJobsKilled registers h for AllKilled.
func (m *Manager) NotifyOnAllJobsKilled(h func(ManagerEvent)) *Manager {
	m.onAllKilled.Subscribe(h)
	return m
}

// NotifyOnAllJobsPaused registers h for AllPaused.
func (m *Manager) NotifyOnAllJobsPaused(h func(ManagerEvent)) *Manager {
	m.onAllPaused.Subscribe(h)
	return m
}

// NotifyOnAllJobsResumed registers h for AllResumed.
func (m *Manager) NotifyOnAllJobsResumed(h func(ManagerEvent)) *Manager {
	m.onAllResumed.Subscribe(h)
	return m
}

// NotifyOnAllJobsCleared registers h for AllCleared.
func (m *Manager) NotifyOnAllJobsCleared(h func(ManagerEvent)) *Manager {
	m.onAllCleared.Subscribe(h)
	return m
}
