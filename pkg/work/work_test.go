// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// steps advances a routine until Done and returns every yield, including the final one.
func steps(t *testing.T, w Work, limit int) []Yield {
	t.Helper()
	r := w.NewRoutine()
	defer r.Stop()

	var out []Yield
	for i := 0; i < limit; i++ {
		y := r.Step()
		out = append(out, y)
		if y.Kind == KindDone {
			return out
		}
	}
	t.Fatalf("routine did not finish within %d steps", limit)
	return nil
}

func TestFunc_StepsThroughYields(t *testing.T) {
	var seen []int
	w := Func(func(yield func(Yield) bool) {
		for i := 0; i < 3; i++ {
			seen = append(seen, i)
			if !yield(Wait(time.Second)) {
				return
			}
		}
	})

	out := steps(t, w, 10)
	require.Len(t, out, 4)
	require.Equal(t, KindSleep, out[0].Kind)
	require.Equal(t, time.Second, out[0].Delay)
	require.Equal(t, KindDone, out[3].Kind)
	require.Equal(t, []int{0, 1, 2}, seen)
}

func TestFunc_IsReinvokable(t *testing.T) {
	count := 0
	w := Do(func() { count++ })

	steps(t, w, 2)
	steps(t, w, 2)
	require.Equal(t, 2, count)
}

func TestFunc_StopEndsRoutine(t *testing.T) {
	cleaned := false
	w := Func(func(yield func(Yield) bool) {
		defer func() { cleaned = true }()
		for yield(NextTick()) {
		}
	})

	r := w.NewRoutine()
	require.Equal(t, KindNext, r.Step().Kind)
	r.Stop()
	require.True(t, cleaned)
	require.Equal(t, KindDone, r.Step().Kind)
}

func TestFunc_StopFromInsideStepIsDeferred(t *testing.T) {
	var r Routine
	after := false
	w := Func(func(yield func(Yield) bool) {
		r.Stop()
		if !yield(NextTick()) {
			return
		}
		after = true
	})

	r = w.NewRoutine()
	require.Equal(t, KindDone, r.Step().Kind)
	require.False(t, after)
}

func TestWait_NonPositiveIsNextTick(t *testing.T) {
	require.Equal(t, NextTick(), Wait(0))
	require.Equal(t, NextTick(), Wait(-time.Second))
}

func TestSequence_RunsInOrder(t *testing.T) {
	var order []string
	w := Sequence(
		Do(func() { order = append(order, "a") }),
		Sleep(time.Second),
		Do(func() { order = append(order, "b") }),
	)

	out := steps(t, w, 10)
	// a runs and the sleep suspends in the first step, b finishes in the second
	require.Len(t, out, 2)
	require.Equal(t, KindSleep, out[0].Kind)
	require.Equal(t, []string{"a", "b"}, order)
}

func TestTimes_YieldsBetweenPasses(t *testing.T) {
	count := 0
	out := steps(t, Times(3, Do(func() { count++ })), 10)

	require.Equal(t, 3, count)
	require.Len(t, out, 3)
}

func TestTicks(t *testing.T) {
	out := steps(t, Ticks(4), 10)
	require.Len(t, out, 5)
	for _, y := range out[:4] {
		require.Equal(t, KindNext, y.Kind)
	}
}

func TestForever_RunsUntilStopped(t *testing.T) {
	count := 0
	r := Forever(Do(func() { count++ })).NewRoutine()
	for i := 0; i < 5; i++ {
		require.NotEqual(t, KindDone, r.Step().Kind)
	}
	r.Stop()
	require.Equal(t, 5, count)
}

func TestEvery(t *testing.T) {
	count := 0
	r := Every(250*time.Millisecond, func() { count++ }).NewRoutine()
	defer r.Stop()

	y := r.Step()
	require.Equal(t, KindSleep, y.Kind)
	require.Equal(t, 250*time.Millisecond, y.Delay)
	r.Step()
	require.Equal(t, 2, count)
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "next", KindNext.String())
	require.Equal(t, "sleep", KindSleep.String())
	require.Equal(t, "done", KindDone.String())
	require.Equal(t, "unknown", Kind(42).String())
}
