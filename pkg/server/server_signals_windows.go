// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

//go:build windows

package server

import "context"

// WatchStatusSignal is a no-op on Windows, which has no SIGUSR1.
func (s *Server) WatchStatusSignal(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
