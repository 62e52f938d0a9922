// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/job"
	"github.com/vulntor/tickjob/pkg/scheduler"
	"github.com/vulntor/tickjob/pkg/work"
)

type staticSource struct {
	manager *job.Manager
	queues  []*job.Queue
}

func (s staticSource) Manager() *job.Manager { return s.manager }
func (s staticSource) Queues() []*job.Queue  { return s.queues }

type fixture struct {
	srv   *Server
	sched *scheduler.Scheduler
}

// newFixture registers jobs a and b plus queue q, then runs the scheduler
// until the test ends.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	sched := scheduler.New(scheduler.WithTickInterval(time.Millisecond), scheduler.WithLogger(zerolog.Nop()))

	m := job.NewManager(job.WithID("test"), job.WithScheduler(sched))
	for _, id := range []string{"a", "b"} {
		require.NoError(t, m.AddJob(job.New(work.Sleep(time.Minute), job.WithID(id), job.WithScheduler(sched))))
	}
	q := job.NewQueue(job.WithID("q"), job.WithScheduler(sched)).
		EnqueueWork(work.Sleep(time.Minute), work.Sleep(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sched.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cfg := config.DefaultConfig().Server
	return &fixture{
		srv:   New(cfg, sched, staticSource{manager: m, queues: []*job.Queue{q}}, zerolog.Nop()),
		sched: sched,
	}
}

func (f *fixture) do(t *testing.T, method, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func (f *fixture) errorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListAndGetJobs(t *testing.T) {
	f := newFixture(t)

	var jobs []JobView
	rec := f.do(t, http.MethodGet, "/v1/jobs", &jobs)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, jobs, 2)
	require.Equal(t, "a", jobs[0].ID)
	require.Equal(t, "Idle", jobs[0].State)

	var one JobView
	rec = f.do(t, http.MethodGet, "/v1/jobs/b", &one)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "b", one.ID)

	rec = f.do(t, http.MethodGet, "/v1/jobs/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "JOB_NOT_FOUND", f.errorBody(t, rec).Code)
}

func TestJobActions(t *testing.T) {
	f := newFixture(t)

	var view JobView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/jobs/a/start", &view).Code)
	require.Equal(t, "Running", view.State)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/jobs/a/pause", &view).Code)
	require.Equal(t, "Paused", view.State)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/jobs/a/resume", &view).Code)
	require.Equal(t, "Running", view.State)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/jobs/a/stop", &view).Code)
	require.Equal(t, "Killed", view.State)
	require.True(t, view.Killed)

	rec := f.do(t, http.MethodPost, "/v1/jobs/a/start", nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "stop removes the job")

	rec = f.do(t, http.MethodPost, "/v1/jobs/b/explode", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, errorCodeUnknownAction, f.errorBody(t, rec).Code)
}

func TestManagerActions(t *testing.T) {
	f := newFixture(t)

	var jobs []JobView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/manager/start-all", &jobs).Code)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		require.Equal(t, "Running", j.State)
	}

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/manager/pause-all", &jobs).Code)
	require.Equal(t, "Paused", jobs[1].State)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/manager/resume-all", &jobs).Code)
	require.Equal(t, "Running", jobs[1].State)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/manager/kill-all", &jobs).Code)
	require.Empty(t, jobs)

	rec := f.do(t, http.MethodPost, "/v1/manager/self-destruct", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueActions(t *testing.T) {
	f := newFixture(t)

	var queues []QueueView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/queues", &queues).Code)
	require.Len(t, queues, 1)
	require.Equal(t, "Idle", queues[0].State)

	var view QueueView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/queues/q/start", &view).Code)
	require.Equal(t, "Running", view.State)
	require.NotEmpty(t, view.Current)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/queues/q/kill-all", &view).Code)
	require.Equal(t, "Completed", view.State)
	require.True(t, view.Killed)

	rec := f.do(t, http.MethodGet, "/v1/queues/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusSnapshot(t *testing.T) {
	f := newFixture(t)

	var snap Snapshot
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/status", &snap).Code)
	require.Len(t, snap.Jobs, 2)
	require.Len(t, snap.Queues, 1)
	require.False(t, snap.Time.IsZero())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.srv.Serve(ctx, ln) }()

	require.Eventually(t, f.srv.Ready, time.Second, 5*time.Millisecond)
	resp, err := http.Get("http://" + ln.Addr().String() + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	require.False(t, f.srv.Ready())
}

func TestErrorMapping(t *testing.T) {
	locked := NewAlreadyRunningError("/tmp/tickjob.lock")
	require.ErrorIs(t, locked, ErrAlreadyRunning)
	require.Equal(t, errorCodeAlreadyRunning, ErrorCode(locked))
	require.Equal(t, 7, ExitCode(locked))
	require.NotEmpty(t, Suggestions(locked))

	invalid := WrapInvalidConfig(context.DeadlineExceeded)
	require.Equal(t, 2, ExitCode(invalid))
	require.Nil(t, WrapInvalidConfig(nil))
	require.Nil(t, WrapRuntime(nil))

	require.Equal(t, "", ErrorCode(nil))
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, errorCodeRuntimeFailed, ErrorCode(context.Canceled))

	require.Equal(t, http.StatusOK, HTTPStatus(nil))
	require.Equal(t, http.StatusNotFound, HTTPStatus(job.ErrNotFound))
	require.Equal(t, http.StatusConflict, HTTPStatus(job.ErrDuplicateID))
	require.Equal(t, http.StatusServiceUnavailable, HTTPStatus(context.Canceled))
	require.Equal(t, http.StatusBadRequest, HTTPStatus(newUnknownActionError("job", "x")))
}
