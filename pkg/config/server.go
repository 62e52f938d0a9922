// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import "github.com/spf13/pflag"

// BindRunFlags binds the flags of 'tickjob run'. Flags are namespaced by
// their config section, e.g. --scheduler.tick_interval, --server.addr.
func BindRunFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.Duration("scheduler.tick_interval", defaults.Scheduler.TickInterval, "Period between scheduler ticks")
	flags.Uint64("scheduler.max_ticks", defaults.Scheduler.MaxTicks, "Stop after this many ticks (0 = until the plan finishes)")
	flags.String("scheduler.lock_file", defaults.Scheduler.LockFile, "Hold an exclusive lock on this file while running")

	flags.Bool("server.enabled", defaults.Server.Enabled, "Serve the HTTP control API")
	flags.String("server.addr", defaults.Server.Addr, "HTTP control API listen address")
	flags.Duration("server.read_timeout", defaults.Server.ReadTimeout, "HTTP read timeout")
	flags.Duration("server.write_timeout", defaults.Server.WriteTimeout, "HTTP write timeout")

	flags.Bool("plan.watch", defaults.Plan.Watch, "Reload the plan when the file changes")
	flags.Duration("plan.debounce", defaults.Plan.Debounce, "Delay before reloading a changed plan")
}
