// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import "time"

// Config is the root configuration structure for tickjob.
type Config struct {
	Log       LogConfig       `description:"Logging configuration" koanf:"log"`
	Scheduler SchedulerConfig `description:"Scheduler configuration" koanf:"scheduler"`
	Server    ServerConfig    `description:"HTTP control surface" koanf:"server"`
	Plan      PlanConfig      `description:"Plan loading" koanf:"plan"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level" koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: console | json" koanf:"format" validate:"oneof=console json"`
}

// SchedulerConfig controls the real-time tick loop.
type SchedulerConfig struct {
	TickInterval time.Duration `description:"Period between ticks" koanf:"tick_interval" validate:"gt=0"`
	// MaxTicks stops the loop after that many ticks. 0 runs until the plan finishes.
	MaxTicks uint64 `description:"Stop after this many ticks (0 = no limit)" koanf:"max_ticks"`
	// LockFile, when set, is held for the lifetime of the runner.
	LockFile string `description:"Exclusive lock file for single-instance runs" koanf:"lock_file"`
}

// ServerConfig holds configuration for the HTTP control surface.
type ServerConfig struct {
	Enabled      bool          `description:"Serve the control API" koanf:"enabled"`
	Addr         string        `description:"Listen address" koanf:"addr" validate:"required,hostname_port"`
	ReadTimeout  time.Duration `description:"HTTP read timeout" koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `description:"HTTP write timeout" koanf:"write_timeout" validate:"gte=0"`
}

// PlanConfig controls how plan files are loaded.
type PlanConfig struct {
	Watch    bool          `description:"Reload the plan when the file changes" koanf:"watch"`
	Debounce time.Duration `description:"Delay before reloading a changed plan" koanf:"debounce" validate:"gte=0"`
}
