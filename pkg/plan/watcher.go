// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package plan

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a plan file when it changes on disk.
//
// A successfully parsed and validated plan is handed to onChange. Plans that
// fail to load are logged and dropped, so a half-written file never replaces
// a running plan.
type Watcher struct {
	path     string
	registry *Registry
	onChange func(*Plan)

	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	// mu protects timer
	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the plan at path. A debounce of zero uses
// DefaultDebounce.
func NewWatcher(path string, reg *Registry, debounce time.Duration, onChange func(*Plan), logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		registry: reg,
		onChange: onChange,
		watcher:  fw,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Start watches until ctx is cancelled. It blocks; run it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	// fsnotify loses the file across rename-on-save, so watch its directory
	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)

	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error().Err(err).Str("dir", dir).Msg("Failed to watch plan directory")
		return err
	}
	w.logger.Info().Str("file", w.path).Dur("debounce", w.debounce).Msg("Started watching plan file")

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching plan file")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug().Str("op", event.Op.String()).Str("file", event.Name).Msg("Detected plan file change")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	p, err := LoadFile(w.path)
	if err == nil {
		err = p.Validate(w.registry)
	}
	if err != nil {
		w.logger.Error().Err(err).Str("code", ErrorCode(err)).Msg("Ignoring plan change")
		return
	}
	w.logger.Info().Int("jobs", p.JobCount()).Msg("Plan reloaded")
	w.onChange(p)
}

// Close releases the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
