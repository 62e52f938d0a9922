// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/plan"
)

func TestWithConfig(t *testing.T) {
	t.Run("stores config manager in context", func(t *testing.T) {
		manager := config.NewManager()
		retrieved, ok := Config(WithConfig(context.Background(), manager))
		require.True(t, ok)
		require.Same(t, manager, retrieved)
	})

	t.Run("handles nil context", func(t *testing.T) {
		manager := config.NewManager()
		//nolint:staticcheck
		retrieved, ok := Config(WithConfig(nil, manager))
		require.True(t, ok)
		require.Same(t, manager, retrieved)
	})
}

func TestConfig(t *testing.T) {
	t.Run("missing manager", func(t *testing.T) {
		_, ok := Config(context.Background())
		require.False(t, ok)
	})

	t.Run("nil manager", func(t *testing.T) {
		_, ok := Config(WithConfig(context.Background(), nil))
		require.False(t, ok)
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck
		_, ok := Config(nil)
		require.False(t, ok)
	})
}

func TestRegistry(t *testing.T) {
	require.ElementsMatch(t, plan.DefaultRegistry().Kinds(), Registry(context.Background()).Kinds())

	custom := plan.NewRegistry()
	require.Same(t, custom, Registry(WithRegistry(context.Background(), custom)))
}
