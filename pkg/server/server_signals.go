// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

//go:build !windows

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WatchStatusSignal logs a snapshot of every job and queue each time the
// process receives SIGUSR1. It blocks until ctx is cancelled.
func (s *Server) WatchStatusSignal(ctx context.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-signals:
			s.logStatus(ctx)
		}
	}
}
