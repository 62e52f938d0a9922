// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestList_EmitsInRegistrationOrder(t *testing.T) {
	var l List[int]
	var got []string

	l.Subscribe(func(v int) { got = append(got, "first") })
	l.Subscribe(func(v int) { got = append(got, "second") })
	l.Subscribe(func(v int) { got = append(got, "third") })

	l.Emit(1)
	require.Equal(t, []string{"first", "second", "third"}, got)
	require.Equal(t, 3, l.Len())
}

func TestList_Unsubscribe(t *testing.T) {
	var l List[string]
	calls := 0

	sub := l.Subscribe(func(string) { calls++ })
	l.Subscribe(func(string) { calls += 10 })

	require.True(t, sub.Unsubscribe())
	require.False(t, sub.Unsubscribe())

	l.Emit("x")
	require.Equal(t, 10, calls)
}

func TestList_NilHandlerIgnored(t *testing.T) {
	var l List[int]
	sub := l.Subscribe(nil)

	require.Equal(t, 0, l.Len())
	require.False(t, sub.Unsubscribe())
}

func TestList_SubscribeDuringEmitTakesEffectNextTime(t *testing.T) {
	var l List[int]
	calls := 0

	l.Subscribe(func(int) {
		l.Subscribe(func(int) { calls++ })
	})

	l.Emit(0)
	require.Equal(t, 0, calls)
	l.Emit(0)
	require.Equal(t, 1, calls)
}

func TestList_CloneSharesHandlersButNotMembership(t *testing.T) {
	var l List[int]
	var got []int

	sub := l.Subscribe(func(v int) { got = append(got, v) })
	clone := l.Clone()

	require.True(t, sub.Unsubscribe())

	l.Emit(1)
	clone.Emit(2)
	require.Equal(t, []int{2}, got)

	clone.Subscribe(func(v int) { got = append(got, -v) })
	require.Equal(t, 0, l.Len())
	require.Equal(t, 2, clone.Len())
}
