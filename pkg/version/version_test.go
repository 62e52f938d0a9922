// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package version

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInfo_ReturnsFormattedString(t *testing.T) {
	info := Info()

	require.Contains(t, info, "tickjob")
	require.Contains(t, info, Version)
	require.Contains(t, info, Commit)
	require.Contains(t, info, BuildDate)
}

func TestGet_ReturnsCorrectStruct(t *testing.T) {
	v := Get()

	require.Equal(t, Version, v.Version)
	require.Equal(t, Commit, v.Commit)
	require.Equal(t, BuildDate, v.BuildDate)
	require.Equal(t, runtime.Version(), v.GoVersion)
}

func TestStartDate_IsInitialized(t *testing.T) {
	require.Less(t, time.Since(StartDate), time.Minute)
	require.Positive(t, Uptime())
}
