// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vulntor/tickjob/pkg/job"
)

const (
	errorCodeInvalidConfig  = "SERVER_INVALID_CONFIG"
	errorCodeAlreadyRunning = "SERVER_ALREADY_RUNNING"
	errorCodeUnknownAction  = "SERVER_UNKNOWN_ACTION"
	errorCodeRuntimeFailed  = "SERVER_RUNTIME_FAILED"
)

var (
	// ErrAlreadyRunning indicates another runner holds the instance lock.
	ErrAlreadyRunning = errors.New("another tickjob instance is running")
	// ErrUnknownAction indicates a control route with an unsupported verb.
	ErrUnknownAction = errors.New("unknown action")
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with a server error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// NewAlreadyRunningError reports a lock file held by another process.
func NewAlreadyRunningError(lockFile string) error {
	return WithErrorCode(fmt.Errorf("%w: lock %s is held", ErrAlreadyRunning, lockFile), errorCodeAlreadyRunning)
}

func newUnknownActionError(target, action string) error {
	return WithErrorCode(fmt.Errorf("%w: %s %q", ErrUnknownAction, target, action), errorCodeUnknownAction)
}

// WrapInvalidConfig annotates server config validation errors.
func WrapInvalidConfig(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("invalid server configuration: %w", err), errorCodeInvalidConfig)
}

// WrapRuntime annotates server runtime failures.
func WrapRuntime(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeRuntimeFailed)
}

// ErrorCode resolves a server error to its error code. Job errors keep the
// job package's codes.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}
	if code := job.ErrorCode(err); code != "" {
		return code
	}

	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return errorCodeAlreadyRunning
	case errors.Is(err, ErrUnknownAction):
		return errorCodeUnknownAction
	default:
		return errorCodeRuntimeFailed
	}
}

// ExitCode maps server errors to CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ErrorCode(err) {
	case errorCodeInvalidConfig:
		return 2
	case errorCodeAlreadyRunning:
		return 7
	default:
		return 1
	}
}

// HTTPStatus maps control API errors to HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return job.HTTPStatus(err)
	}
}

// Suggestions provides CLI hints for server errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeInvalidConfig:
		return []string{
			"Check the server section of the config file",
			"Example:                 tickjob run plan.yaml --server.addr 127.0.0.1:8089",
		}
	case errorCodeAlreadyRunning:
		return []string{
			"Stop the other runner or point scheduler.lock_file elsewhere",
		}
	case errorCodeRuntimeFailed:
		return []string{
			"Check server logs for runtime errors",
			"Ensure no other process is using the selected address",
		}
	default:
		return nil
	}
}
