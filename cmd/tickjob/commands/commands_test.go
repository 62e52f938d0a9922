// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/plan"
	"github.com/vulntor/tickjob/pkg/server"
	"github.com/vulntor/tickjob/pkg/version"
)

const quickPlan = `
version: "1.0"
queues:
  - id: warmup
    repeat: 2
    jobs:
      - kind: ticks
        params: {count: 2}
      - kind: ticks
        params: {count: 1}
jobs:
  - id: solo
    kind: ticks
    params: {count: 3}
`

func writePlan(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TICKJOB_LOG_LEVEL", "disabled")

	cmd := NewCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	require.Equal(t, version.Version+"\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "tickjob "+version.Version)
	require.Contains(t, out, "Go Version:")

	out, err = execute(t, "version", "--output", "json")
	require.NoError(t, err)
	var info version.Struct
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, version.Version, info.Version)
}

func TestRootRejectsUnknownOutputMode(t *testing.T) {
	_, err := execute(t, "version", "--output", "yaml")
	require.Error(t, err)
}

func TestKindsCommand(t *testing.T) {
	out, err := execute(t, "kinds")
	require.NoError(t, err)
	for kind, desc := range plan.KindDescriptions {
		require.Contains(t, out, kind)
		require.Contains(t, out, desc)
	}
}

func TestValidateCommand(t *testing.T) {
	good := writePlan(t, "good.yaml", quickPlan)

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	require.Contains(t, out, "✓ Validate")
	require.Contains(t, out, "(1 queues, 3 jobs)")

	bad := writePlan(t, "bad.yaml", "version: \"1.0\"\njobs:\n  - id: x\n    kind: nope\n")
	out, err = execute(t, "validate", good, bad)
	require.Error(t, err)
	require.True(t, Reported(err))
	require.Equal(t, 2, ExitCode(err))
	require.Contains(t, out, "✗ Failed to validate")
	require.Contains(t, out, "tickjob kinds")
}

func TestRunCommand_RunsPlanToCompletion(t *testing.T) {
	path := writePlan(t, "quick.yaml", quickPlan)

	out, err := execute(t, "run", path, "--scheduler.tick_interval", "1ms", "--no-color")
	require.NoError(t, err)
	require.Contains(t, out, "warmup")
	require.Contains(t, out, "Completed")
	require.Contains(t, out, "solo")
	require.Contains(t, out, "✓ Run")
}

func TestRunCommand_PrintsEvents(t *testing.T) {
	path := writePlan(t, "quick.yaml", quickPlan)

	out, err := execute(t, "run", path, "--scheduler.tick_interval", "1ms", "--events")
	require.NoError(t, err)
	require.Contains(t, out, "queue warmup  started")
	require.Contains(t, out, "job   solo  complete  cycles=1 final")
}

func TestRunCommand_MaxTicksStopsEarly(t *testing.T) {
	path := writePlan(t, "forever.yaml", `
version: "1.0"
jobs:
  - id: loop
    kind: ticks
    repeat: -1
    params: {count: 1}
`)

	out, err := execute(t, "run", path, "--scheduler.tick_interval", "1ms", "--scheduler.max_ticks", "5")
	require.NoError(t, err)
	require.Contains(t, out, "Stopped")
	require.Contains(t, out, "loop")
}

func TestRunCommand_FailsOnInvalidPlan(t *testing.T) {
	path := writePlan(t, "bad.yaml", "version: \"3.0\"\n")

	out, err := execute(t, "run", path)
	require.Error(t, err)
	require.Equal(t, 2, ExitCode(err))
	require.Contains(t, out, "✗ Failed to run")
}

func TestRunPlan_RefusesHeldLock(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "tickjob.lock")
	held := flock.New(lockFile)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = held.Unlock() }()

	cfg := config.DefaultConfig()
	cfg.Scheduler.LockFile = lockFile
	_, err = runPlan(context.Background(), runOptions{
		path:     writePlan(t, "quick.yaml", quickPlan),
		cfg:      cfg,
		registry: plan.DefaultRegistry(),
	})
	require.ErrorIs(t, err, server.ErrAlreadyRunning)
	require.Equal(t, 7, ExitCode(err))
}

func TestRunPlan_StopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scheduler.TickInterval = time.Millisecond
	cfg.Plan.Watch = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(300*time.Millisecond, cancel)

	host, err := runPlan(ctx, runOptions{
		path:     writePlan(t, "quick.yaml", quickPlan),
		cfg:      cfg,
		registry: plan.DefaultRegistry(),
	})
	require.NoError(t, err)
	require.True(t, host.done(), "watch keeps running after the plan finishes")
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("boom")))
	require.False(t, Reported(errors.New("boom")))
}
