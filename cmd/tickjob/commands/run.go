// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vulntor/tickjob/cmd/tickjob/internal/format"
	"github.com/vulntor/tickjob/pkg/appctx"
	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/job"
	"github.com/vulntor/tickjob/pkg/logging"
	"github.com/vulntor/tickjob/pkg/plan"
	"github.com/vulntor/tickjob/pkg/scheduler"
	"github.com/vulntor/tickjob/pkg/server"
)

func newRunCommand() *cobra.Command {
	var events bool

	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Run a plan until it finishes",
		Long: `Run a plan on a real-time scheduler.

The command returns once every queue has completed and every standalone job
has finished or was killed. With --plan.watch the plan is reloaded whenever
the file changes and the command runs until interrupted.

Send SIGUSR1 while --server.enabled is set to log the state of every job.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			cfgMgr, ok := appctx.Config(cmd.Context())
			if !ok {
				return fail(formatter, "run", server.WrapInvalidConfig(errors.New("configuration not loaded")))
			}
			opts := runOptions{
				path:     args[0],
				cfg:      cfgMgr.Get(),
				registry: appctx.Registry(cmd.Context()),
			}
			if events {
				opts.sink = func(e plan.Event) { _ = formatter.PrintEvent(e) }
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			host, err := runPlan(ctx, opts)
			if err != nil {
				return fail(formatter, "run", err)
			}
			err = printRunSummary(formatter, host)
			finished := host.done()
			host.rt.Stop()
			if err != nil {
				return err
			}
			if !finished {
				return formatter.PrintSummary(fmt.Sprintf("Stopped %s before it finished", opts.path))
			}
			return formatter.PrintSuccessSummary("run", opts.path)
		},
	}

	cmd.Flags().BoolVar(&events, "events", false, "Print every job and queue event")
	config.BindRunFlags(cmd.Flags())

	return cmd
}

type runOptions struct {
	path     string
	cfg      config.Config
	registry *plan.Registry
	sink     func(plan.Event)
}

// planHost owns the live runtime. While the scheduler runs it is only touched
// on the scheduler goroutine.
type planHost struct {
	opts   runOptions
	sched  *scheduler.Scheduler
	rt     *plan.Runtime
	logger zerolog.Logger
}

func (h *planHost) Manager() *job.Manager { return h.rt.Manager }
func (h *planHost) Queues() []*job.Queue  { return h.rt.Queues }

func (h *planHost) done() bool { return h.rt.Done() }

func (h *planHost) build(p *plan.Plan) (*plan.Runtime, error) {
	var buildOpts []plan.BuildOption
	if h.opts.sink != nil {
		buildOpts = append(buildOpts, plan.WithEventSink(h.opts.sink))
	}
	return plan.Build(p, h.opts.registry, h.sched, buildOpts...)
}

// replace swaps in a freshly built plan. The running one is killed first.
func (h *planHost) replace(p *plan.Plan) {
	next, err := h.build(p)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Ignoring plan change")
		return
	}
	h.rt.Stop()
	h.rt = next
	h.rt.Start()
	h.logger.Info().Str("plan", h.opts.path).Msg("Plan reloaded")
}

// runPlan blocks until the plan is done, max_ticks is reached or ctx is
// cancelled. The returned host is safe to inspect once it returns.
func runPlan(ctx context.Context, opts runOptions) (*planHost, error) {
	p, err := plan.LoadFile(opts.path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(opts.registry); err != nil {
		return nil, err
	}

	if lockFile := opts.cfg.Scheduler.LockFile; lockFile != "" {
		unlock, err := acquireLock(lockFile)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}
	defer job.Teardown()

	host := &planHost{
		opts: opts,
		sched: scheduler.New(
			scheduler.WithTickInterval(opts.cfg.Scheduler.TickInterval),
			scheduler.WithLogger(logging.Component("scheduler")),
		),
		logger: logging.Component("run"),
	}
	if host.rt, err = host.build(p); err != nil {
		return nil, err
	}
	host.rt.Start()

	maxTicks := opts.cfg.Scheduler.MaxTicks
	watch := opts.cfg.Plan.Watch
	finished := func() bool {
		if maxTicks > 0 && host.sched.Ticks() >= maxTicks {
			return true
		}
		return !watch && host.rt.Done()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return ignoreCanceled(host.sched.RunUntil(gctx, finished))
	})

	if opts.cfg.Server.Enabled {
		srv := server.New(opts.cfg.Server, host.sched, host, logging.Component("server"))
		g.Go(func() error { return srv.ListenAndServe(gctx) })
		g.Go(func() error { return srv.WatchStatusSignal(gctx) })
	}

	if watch {
		w, err := plan.NewWatcher(opts.path, opts.registry, opts.cfg.Plan.Debounce, func(next *plan.Plan) {
			host.sched.Post(func() { host.replace(next) })
		}, logging.Component("watcher"))
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, server.WrapRuntime(err)
		}
		g.Go(func() error { return ignoreCanceled(w.Start(gctx)) })
	}

	if err := g.Wait(); err != nil {
		return host, err
	}
	return host, nil
}

func acquireLock(path string) (func(), error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, server.WrapRuntime(fmt.Errorf("lock %s: %w", path, err))
	}
	if !locked {
		return nil, server.NewAlreadyRunningError(path)
	}
	return func() { _ = fl.Unlock() }, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printRunSummary(f format.Formatter, h *planHost) error {
	jobs := h.rt.Manager.Jobs()
	rows := make([]format.StatusRow, 0, len(h.rt.Queues)+len(jobs))
	for _, q := range h.rt.Queues {
		rows = append(rows, format.QueueStatus(q))
	}
	for _, j := range jobs {
		rows = append(rows, format.JobStatus(j))
	}
	return f.PrintStatus(rows)
}
