// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Load priorities of the built-in sources. A custom source slots in between
// by picking a value in one of the gaps.
const (
	PriorityDefaults = 10
	PriorityFile     = 20
	PriorityEnv      = 30
	PriorityFlags    = 40
)

// ConfigSource is one configuration layer. Manager loads sources by ascending
// Priority, so later layers override earlier ones key by key.
type ConfigSource interface {
	// Name identifies the source in errors.
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// DefaultSource loads DefaultConfig.
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return PriorityDefaults }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil)
}

// FileSource loads a YAML (or JSON) config file. An empty Path is skipped; a
// path that was given but cannot be read is an error.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return PriorityFile }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}
	// yaml.v3 decodes JSON as well
	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("read %s: %w", s.Path, err)
	}
	return nil
}

// EnvPrefix is the prefix of environment variables read by EnvSource.
const EnvPrefix = "TICKJOB_"

// EnvSource loads prefixed environment variables. The first underscore after
// the prefix splits section from key, so TICKJOB_SCHEDULER_TICK_INTERVAL sets
// scheduler.tick_interval.
type EnvSource struct {
	// Prefix defaults to EnvPrefix.
	Prefix string
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return PriorityEnv }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}
	return k.Load(env.Provider(prefix, ".", func(name string) string {
		return envKey(strings.TrimPrefix(name, prefix))
	}), nil)
}

func envKey(name string) string {
	section, key, found := strings.Cut(strings.ToLower(name), "_")
	if !found {
		return section
	}
	return section + "." + key
}

// FlagSource loads command-line flags. Only flags the user changed override
// lower layers; defaults of unset flags fill keys nothing else provided.
type FlagSource struct {
	Flags *pflag.FlagSet
	// Debug forces log.level to debug.
	Debug bool
}

func (s *FlagSource) Name() string  { return "flags" }
func (s *FlagSource) Priority() int { return PriorityFlags }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags != nil {
		if err := k.Load(posflag.Provider(s.Flags, ".", k), nil); err != nil {
			return err
		}
	}
	if s.Debug {
		return k.Set("log.level", "debug")
	}
	return nil
}

// DefaultSources is the layering Manager.Load uses: defaults, then the config
// file, then TICKJOB_ variables, then flags.
func DefaultSources(configPath string, flags *pflag.FlagSet, debug bool) []ConfigSource {
	return []ConfigSource{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&EnvSource{Prefix: EnvPrefix},
		&FlagSource{Flags: flags, Debug: debug},
	}
}
