// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package plan

import (
	"errors"
	"fmt"
)

const (
	errorCodeInvalidPlan        = "PLAN_INVALID"
	errorCodeUnknownKind        = "PLAN_UNKNOWN_KIND"
	errorCodeUnsupportedVersion = "PLAN_UNSUPPORTED_VERSION"
)

var (
	// ErrInvalidPlan indicates a plan that failed to parse or validate.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrUnknownKind indicates a job kind with no registered factory.
	ErrUnknownKind = errors.New("unknown job kind")

	// ErrUnsupportedVersion indicates a plan version outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported plan version")
)

type codedError struct {
	error
	code string
}

func (e *codedError) Code() string  { return e.code }
func (e *codedError) Unwrap() error { return e.error }

func invalidPlan(format string, args ...any) error {
	return &codedError{
		error: fmt.Errorf("%w: %s", ErrInvalidPlan, fmt.Sprintf(format, args...)),
		code:  errorCodeInvalidPlan,
	}
}

func unknownKind(kind string) error {
	return &codedError{
		error: fmt.Errorf("%w: %q", ErrUnknownKind, kind),
		code:  errorCodeUnknownKind,
	}
}

func unsupportedVersion(version, constraint string) error {
	return &codedError{
		error: fmt.Errorf("%w: %q does not satisfy %q", ErrUnsupportedVersion, version, constraint),
		code:  errorCodeUnsupportedVersion,
	}
}

// ErrorCode resolves an error to its plan error code, or "" when it has none.
func ErrorCode(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return ""
}
