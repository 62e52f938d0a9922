// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body of every failed control request.
//
//	{
//	  "error": "Not Found",
//	  "code": "JOB_NOT_FOUND",
//	  "message": "job not found: \"a\" in manager \"plan\""
//	}
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeError picks the status from err and logs the failure.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status := HTTPStatus(err)

	evt := logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("code", ErrorCode(err)).
		Err(err).
		Msg("Request failed")

	writeJSON(w, logger, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    ErrorCode(err),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
