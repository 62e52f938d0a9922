// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package plan

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/tickjob/pkg/work"
)

func TestParams(t *testing.T) {
	p := Params{"s": 42, "n": "7", "bad": "x", "d": "1500ms", "raw": 2000, "neg": "-1s"}

	require.Equal(t, "42", p.String("s", "def"))
	require.Equal(t, "def", p.String("missing", "def"))
	require.Equal(t, 7, p.Int("n", 0))
	require.Equal(t, 3, p.Int("bad", 3))

	d, err := p.Duration("d", 0)
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, d)

	d, err = p.Duration("raw", 0)
	require.NoError(t, err)
	require.Equal(t, 2000*time.Nanosecond, d)

	d, err = p.Duration("missing", time.Minute)
	require.NoError(t, err)
	require.Equal(t, time.Minute, d)

	_, err = p.Duration("neg", 0)
	require.Error(t, err)
	_, err = p.Duration("bad", 0)
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.False(t, reg.Has("noop"))
	require.Empty(t, reg.Kinds())

	reg.Register("noop", func(Params, Env) (work.Work, error) { return work.Do(func() {}), nil })
	reg.Register("broken", func(Params, Env) (work.Work, error) { return nil, errors.New("boom") })
	require.True(t, reg.Has("noop"))
	require.Equal(t, []string{"broken", "noop"}, reg.Kinds())

	w, err := reg.New("noop", nil, Env{JobID: "a"})
	require.NoError(t, err)
	require.NotNil(t, w)

	_, err = reg.New("broken", nil, Env{JobID: "a"})
	require.ErrorIs(t, err, ErrInvalidPlan)
	require.Contains(t, err.Error(), "boom")

	_, err = reg.New("missing", nil, Env{})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestDefaultRegistry_DescribesEveryKind(t *testing.T) {
	for _, kind := range DefaultRegistry().Kinds() {
		require.Contains(t, KindDescriptions, kind)
	}
}

func TestBuiltinKinds_RejectBadParams(t *testing.T) {
	reg := DefaultRegistry()
	for kind, params := range map[string]Params{
		"log":   {"delay": "soon"},
		"wait":  {"duration": "-1s"},
		"tick":  {"interval": "0s"},
		"ticks": {"count": -1},
	} {
		_, err := reg.New(kind, params, Env{JobID: kind})
		require.ErrorIs(t, err, ErrInvalidPlan, kind)
	}
}

func TestLogKind_WaitsThenLogs(t *testing.T) {
	var buf bytes.Buffer
	w, err := DefaultRegistry().New("log", Params{"delay": "2s", "message": "hello"}, Env{JobID: "greeter", Logger: zerolog.New(&buf)})
	require.NoError(t, err)

	r := w.NewRoutine()
	y := r.Step()
	require.Equal(t, work.KindSleep, y.Kind)
	require.Equal(t, 2*time.Second, y.Delay)
	require.Empty(t, buf.String())

	require.Equal(t, work.KindDone, r.Step().Kind)
	require.Contains(t, buf.String(), `"message":"hello"`)
	require.Contains(t, buf.String(), `"job_id":"greeter"`)
}

func TestTickKind_LogsCountTimes(t *testing.T) {
	var buf bytes.Buffer
	w, err := DefaultRegistry().New("tick", Params{"interval": "1s", "count": 3}, Env{JobID: "hb", Logger: zerolog.New(&buf)})
	require.NoError(t, err)

	r := w.NewRoutine()
	steps := 0
	for r.Step().Kind != work.KindDone {
		steps++
	}
	require.Equal(t, 2, steps, "no wait after the last tick")
	require.Equal(t, 3, strings.Count(buf.String(), `"message":"tick"`))
}

func TestTicksKind(t *testing.T) {
	w, err := DefaultRegistry().New("ticks", Params{"count": 2}, Env{})
	require.NoError(t, err)

	r := w.NewRoutine()
	require.Equal(t, work.KindNext, r.Step().Kind)
	require.Equal(t, work.KindNext, r.Step().Kind)
	require.Equal(t, work.KindDone, r.Step().Kind)
}
