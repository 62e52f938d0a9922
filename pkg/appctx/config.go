// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package appctx carries process-wide collaborators on a context.
package appctx

import (
	"context"

	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/plan"
)

type key string

const (
	configKey   key = "tickjob.config.manager"
	registryKey key = "tickjob.plan.registry"
)

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(configKey).(*config.Manager)
	return mgr, ok && mgr != nil
}

// WithRegistry stores the job kind registry on context.
func WithRegistry(ctx context.Context, reg *plan.Registry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, registryKey, reg)
}

// Registry returns the registry on ctx, or the built-in kinds when none was set.
func Registry(ctx context.Context) *plan.Registry {
	if ctx != nil {
		if reg, ok := ctx.Value(registryKey).(*plan.Registry); ok && reg != nil {
			return reg
		}
	}
	return plan.DefaultRegistry()
}
