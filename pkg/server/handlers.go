// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vulntor/tickjob/pkg/job"
)

// JobView is the JSON form of a job.
type JobView struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	TimesExecuted int       `json:"times_executed"`
	Killed        bool      `json:"killed"`
	Repeating     bool      `json:"repeating"`
	Children      []JobView `json:"children,omitempty"`
}

// QueueView is the JSON form of a queue.
type QueueView struct {
	ID            string       `json:"id"`
	State         string       `json:"state"`
	TimesExecuted int          `json:"times_executed"`
	Killed        bool         `json:"killed"`
	Repeating     bool         `json:"repeating"`
	Continuous    bool         `json:"continuous"`
	Current       string       `json:"current,omitempty"`
	Completed     []job.Record `json:"completed"`
	Queued        []string     `json:"queued"`
}

// Snapshot is the whole controllable state at one instant.
type Snapshot struct {
	Time   time.Time   `json:"time"`
	Ticks  uint64      `json:"ticks"`
	Jobs   []JobView   `json:"jobs"`
	Queues []QueueView `json:"queues"`
}

func viewJob(j *job.Job) JobView {
	v := JobView{
		ID:            j.ID(),
		State:         j.State().String(),
		TimesExecuted: j.TimesExecuted(),
		Killed:        j.Killed(),
		Repeating:     j.Repeating(),
	}
	for _, c := range j.Children() {
		v.Children = append(v.Children, viewJob(c))
	}
	return v
}

func viewQueue(q *job.Queue) QueueView {
	v := QueueView{
		ID:            q.ID(),
		State:         q.State().String(),
		TimesExecuted: q.TimesExecuted(),
		Killed:        q.Killed(),
		Repeating:     q.Repeating(),
		Continuous:    q.IsContinuous(),
		Completed:     q.CompletedJobs(),
		Queued:        []string{},
	}
	if v.Completed == nil {
		v.Completed = []job.Record{}
	}
	if cur := q.Current(); cur != nil {
		v.Current = cur.ID()
	}
	for _, e := range q.QueuedJobs() {
		v.Queued = append(v.Queued, e.ID())
	}
	return v
}

func viewJobs(jobs []*job.Job) []JobView {
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, viewJob(j))
	}
	return out
}

// Snapshot captures every job and queue on the scheduler goroutine.
func (s *Server) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.call(ctx, func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

func (s *Server) snapshot() Snapshot {
	snap := Snapshot{
		Time:   s.sched.Now(),
		Ticks:  s.sched.Ticks(),
		Jobs:   viewJobs(s.source.Manager().Jobs()),
		Queues: []QueueView{},
	}
	for _, q := range s.source.Queues() {
		snap.Queues = append(snap.Queues, viewQueue(q))
	}
	return snap
}

func (s *Server) findQueue(id string) (*job.Queue, error) {
	for _, q := range s.source.Queues() {
		if q.ID() == id {
			return q, nil
		}
	}
	return nil, fmt.Errorf("%w: queue %q", job.ErrNotFound, id)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("Not Ready"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, snap)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var views []JobView
	err := s.call(r.Context(), func() error {
		views = viewJobs(s.source.Manager().Jobs())
		return nil
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, views)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var view JobView
	err := s.call(r.Context(), func() error {
		m := s.source.Manager()
		j, ok := m.Job(id)
		if !ok {
			return fmt.Errorf("%w: %q in manager %q", job.ErrNotFound, id, m.ID())
		}
		view = viewJob(j)
		return nil
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, view)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")

	var view JobView
	err := s.call(r.Context(), func() error {
		m := s.source.Manager()
		j, ok := m.Job(id)
		if !ok {
			return fmt.Errorf("%w: %q in manager %q", job.ErrNotFound, id, m.ID())
		}

		var err error
		switch action {
		case "start":
			err = m.StartCoroutine(id)
		case "pause":
			err = m.PauseCoroutine(id)
		case "resume":
			err = m.ResumeCoroutine(id)
		case "stop":
			err = m.StopCoroutine(id)
		default:
			return newUnknownActionError("job", action)
		}
		view = viewJob(j)
		return err
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, view)
}

func (s *Server) handleManagerAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	var views []JobView
	err := s.call(r.Context(), func() error {
		m := s.source.Manager()
		switch action {
		case "start-all":
			m.StartAll()
		case "pause-all":
			m.PauseAll()
		case "resume-all":
			m.ResumeAll()
		case "kill-all":
			m.KillAll()
		case "clear":
			m.ClearJobList()
		default:
			return newUnknownActionError("manager", action)
		}
		views = viewJobs(m.Jobs())
		return nil
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, views)
}

func (s *Server) handleListQueues(w http.ResponseWriter, r *http.Request) {
	views := []QueueView{}
	err := s.call(r.Context(), func() error {
		for _, q := range s.source.Queues() {
			views = append(views, viewQueue(q))
		}
		return nil
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, views)
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var view QueueView
	err := s.call(r.Context(), func() error {
		q, err := s.findQueue(id)
		if err != nil {
			return err
		}
		view = viewQueue(q)
		return nil
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, view)
}

func (s *Server) handleQueueAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")

	var view QueueView
	err := s.call(r.Context(), func() error {
		q, err := s.findQueue(id)
		if err != nil {
			return err
		}
		switch action {
		case "start":
			q.Start()
		case "pause":
			q.Pause()
		case "resume":
			q.Resume()
		case "kill-current":
			q.KillCurrent()
		case "kill-all":
			q.KillAll()
		case "stop-repeat":
			q.StopRepeat()
		default:
			return newUnknownActionError("queue", action)
		}
		view = viewQueue(q)
		return nil
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, view)
}
