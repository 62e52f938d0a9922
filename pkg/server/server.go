// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package server exposes a running plan over a small HTTP control API.
//
// Jobs and queues are not safe for concurrent use, so every handler hands its
// work to the scheduler goroutine with Scheduler.Call and only renders the
// result on the request goroutine.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/job"
	"github.com/vulntor/tickjob/pkg/scheduler"
)

const shutdownTimeout = 5 * time.Second

// Source supplies the jobs and queues the API controls. It is only called on
// the scheduler goroutine, so a plan reload may swap what it returns.
type Source interface {
	Manager() *job.Manager
	Queues() []*job.Queue
}

// Server serves the control API.
type Server struct {
	cfg    config.ServerConfig
	sched  *scheduler.Scheduler
	source Source
	logger zerolog.Logger
	router chi.Router
	ready  atomic.Bool
}

// New builds the router. Nothing listens until ListenAndServe.
func New(cfg config.ServerConfig, sched *scheduler.Scheduler, src Source, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		sched:  sched,
		source: src,
		logger: logger,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Post("/{id}/{action}", s.handleJobAction)
		})

		r.Post("/manager/{action}", s.handleManagerAction)

		r.Route("/queues", func(r chi.Router) {
			r.Get("/", s.handleListQueues)
			r.Get("/{id}", s.handleGetQueue)
			r.Post("/{id}/{action}", s.handleQueueAction)
		})
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Ready reports whether the listener is up.
func (s *Server) Ready() bool { return s.ready.Load() }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return WrapRuntime(err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.ready.Store(true)
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Control API listening")

	select {
	case <-ctx.Done():
		s.ready.Store(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapRuntime(err)
		}
		s.logger.Info().Msg("Control API stopped")
		return nil
	case err := <-errCh:
		s.ready.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapRuntime(err)
	}
}

// call runs fn on the scheduler goroutine.
func (s *Server) call(ctx context.Context, fn func() error) error {
	var fnErr error
	if err := s.sched.Call(ctx, func() { fnErr = fn() }); err != nil {
		return err
	}
	return fnErr
}

func (s *Server) logStatus(ctx context.Context) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Status snapshot failed")
		return
	}
	for _, j := range snap.Jobs {
		s.logger.Info().Str("job_id", j.ID).Str("state", j.State).Int("times_executed", j.TimesExecuted).Msg("job status")
	}
	for _, q := range snap.Queues {
		s.logger.Info().Str("queue_id", q.ID).Str("state", q.State).Str("current", q.Current).Int("queued", len(q.Queued)).Msg("queue status")
	}
}
