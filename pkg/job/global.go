// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

import (
	"github.com/vulntor/tickjob/pkg/scheduler"
	"github.com/vulntor/tickjob/pkg/singleton"
)

// GlobalID is the id of the process-wide manager and queue.
const GlobalID = "global"

var (
	globalManager = singleton.New(
		func() *Manager { return NewManager(WithID(GlobalID)) },
		func(m *Manager) { m.KillAll() },
	)
	globalQueue = singleton.New(
		func() *Queue { return NewQueue(WithID(GlobalID), Continuous()) },
		func(q *Queue) { q.KillAll() },
	)
)

// GlobalManager returns the process-wide manager, creating it on first use.
func GlobalManager() *Manager { return globalManager.Get() }

// GlobalQueue returns the process-wide queue, creating it Idle on first use.
// It is continuous: once started, entries enqueued later run as soon as the default
// scheduler ticks.
func GlobalQueue() *Queue { return globalQueue.Get() }

// Teardown kills everything owned by the global manager and queue and drops
// them together with the default scheduler. Call it when the host shuts down.
func Teardown() {
	globalManager.Reset()
	globalQueue.Reset()
	scheduler.ResetDefault()
}
