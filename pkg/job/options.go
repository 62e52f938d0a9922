// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

import (
	"github.com/google/uuid"

	"github.com/vulntor/tickjob/pkg/scheduler"
)

// Option configures a Job, Queue or Manager.
type Option func(*options)

type options struct {
	id         string
	sched      *scheduler.Scheduler
	continuous bool
}

// WithID sets the identifier. Jobs and queues without one get a generated UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithScheduler binds the object to s instead of scheduler.Default().
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(o *options) {
		o.sched = s
	}
}

// Continuous keeps a Queue running after it drains. It waits for new entries
// instead of completing. Ignored by Job and Manager.
func Continuous() Option {
	return func(o *options) {
		o.continuous = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.sched == nil {
		o.sched = scheduler.Default()
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return o
}
