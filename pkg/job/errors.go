// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package job

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	errorCodeNotFound    = "JOB_NOT_FOUND"
	errorCodeDuplicateID = "JOB_DUPLICATE_ID"
	errorCodeNilJob      = "JOB_NIL"
)

var (
	// ErrNotFound indicates no job is registered under the requested id.
	ErrNotFound = errors.New("job not found")

	// ErrDuplicateID indicates a manager already holds a job with the same id.
	ErrDuplicateID = errors.New("duplicate job id")

	// ErrNilJob indicates a nil job was passed to a manager.
	ErrNilJob = errors.New("nil job")
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

// WithErrorCode annotates err with a job error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

func notFoundError(managerID, id string) error {
	return WithErrorCode(fmt.Errorf("%w: %q in manager %q", ErrNotFound, id, managerID), errorCodeNotFound)
}

func duplicateIDError(managerID, id string) error {
	return WithErrorCode(fmt.Errorf("%w: %q already registered in manager %q", ErrDuplicateID, id, managerID), errorCodeDuplicateID)
}

// ErrorCode resolves an error to its job error code, or "" when it has none.
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

	switch {
	case errors.Is(err, ErrNotFound):
		return errorCodeNotFound
	case errors.Is(err, ErrDuplicateID):
		return errorCodeDuplicateID
	case errors.Is(err, ErrNilJob):
		return errorCodeNilJob
	default:
		return ""
	}
}

// HTTPStatus maps errors to HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, ErrNilJob):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
