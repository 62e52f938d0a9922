// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package plan loads YAML plan files and turns them into queues and jobs.
//
// A plan names work by kind; the kind registry supplies the actual work:
//
//	version: "1.0"
//	queues:
//	  - id: intro
//	    repeat: 2
//	    jobs:
//	      - id: hello
//	        kind: log
//	        params: {message: hi, delay: 500ms}
//	jobs:
//	  - id: heartbeat
//	    kind: tick
//	    params: {message: beat, interval: 1s, count: 5}
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the constraint a plan's version must satisfy.
const SupportedVersions = ">= 1.0, < 2.0"

// Repeat values with special meaning.
const (
	RepeatNone    = 0
	RepeatForever = -1
)

// Plan is the root of a plan file.
type Plan struct {
	Version string      `yaml:"version" validate:"required"`
	Queues  []QueueSpec `yaml:"queues" validate:"dive"`
	// Jobs are registered with the manager and started on their own.
	Jobs []JobSpec `yaml:"jobs" validate:"dive"`
}

// QueueSpec describes one queue.
type QueueSpec struct {
	ID              string        `yaml:"id" validate:"required"`
	Repeat          int           `yaml:"repeat" validate:"gte=-1"`
	StopRepeatAfter time.Duration `yaml:"stop_repeat_after" validate:"gte=0"`
	StartAfter      time.Duration `yaml:"start_after" validate:"gte=0"`
	KillAfter       time.Duration `yaml:"kill_after" validate:"gte=0"`
	Continuous      bool          `yaml:"continuous"`
	Jobs            []JobSpec     `yaml:"jobs" validate:"dive"`
}

// JobSpec describes one job and its children.
type JobSpec struct {
	ID              string        `yaml:"id"`
	Kind            string        `yaml:"kind" validate:"required"`
	Params          Params        `yaml:"params"`
	Repeat          int           `yaml:"repeat" validate:"gte=-1"`
	StopRepeatAfter time.Duration `yaml:"stop_repeat_after" validate:"gte=0"`
	StartAfter      time.Duration `yaml:"start_after" validate:"gte=0"`
	KillAfter       time.Duration `yaml:"kill_after" validate:"gte=0"`
	Children        []JobSpec     `yaml:"children" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadFile reads a plan from a .yaml, .yml or .json file.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	// JSON is a subset of YAML, so one decoder serves both.
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		return Parse(data)
	default:
		return nil, invalidPlan("unsupported file format %q (use .yaml, .yml or .json)", ext)
	}
}

// Parse decodes YAML (or JSON) plan bytes.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, invalidPlan("parse YAML: %v", err)
	}
	return &p, nil
}

// Validate checks structure, version and job kinds against reg. All
// problems are joined into one error.
func (p *Plan) Validate(reg *Registry) error {
	var errs []error

	if err := validate.Struct(p); err != nil {
		errs = append(errs, invalidPlan("%v", err))
	}

	if p.Version != "" {
		if err := checkVersion(p.Version); err != nil {
			errs = append(errs, err)
		}
	}

	if len(p.Queues) == 0 && len(p.Jobs) == 0 {
		errs = append(errs, invalidPlan("no queues or jobs"))
	}

	queueIDs := make(map[string]bool)
	for _, q := range p.Queues {
		if queueIDs[q.ID] {
			errs = append(errs, invalidPlan("duplicate queue id %q", q.ID))
		}
		queueIDs[q.ID] = true
		for _, j := range q.Jobs {
			errs = append(errs, checkNested(j, reg)...)
		}
	}

	jobIDs := make(map[string]bool)
	for _, j := range p.Jobs {
		if j.ID == "" {
			errs = append(errs, invalidPlan("manager job of kind %q needs an id", j.Kind))
		} else if jobIDs[j.ID] {
			errs = append(errs, invalidPlan("duplicate job id %q", j.ID))
		}
		jobIDs[j.ID] = true
		if j.Kind != "" && reg != nil && !reg.Has(j.Kind) {
			errs = append(errs, unknownKind(j.Kind))
		}
		for _, c := range j.Children {
			errs = append(errs, checkNested(c, reg)...)
		}
	}

	return errors.Join(errs...)
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return invalidPlan("version %q: %v", version, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return unsupportedVersion(version, SupportedVersions)
	}
	return nil
}

// checkNested validates a job started by its queue or parent rather than by
// the plan itself, so start_after has no meaning there.
func checkNested(j JobSpec, reg *Registry) []error {
	var errs []error
	if j.Kind != "" && reg != nil && !reg.Has(j.Kind) {
		errs = append(errs, unknownKind(j.Kind))
	}
	if j.StartAfter > 0 {
		errs = append(errs, invalidPlan("job %q: start_after is only valid on queues and top-level jobs", j.ID))
	}
	for _, c := range j.Children {
		errs = append(errs, checkNested(c, reg)...)
	}
	return errs
}

// JobCount returns the number of job specs in the plan, children included.
func (p *Plan) JobCount() int {
	n := 0
	var count func([]JobSpec)
	count = func(js []JobSpec) {
		for _, j := range js {
			n++
			count(j.Children)
		}
	}
	for _, q := range p.Queues {
		count(q.Jobs)
	}
	count(p.Jobs)
	return n
}
