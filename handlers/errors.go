// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/middleware"
)

// statusFor maps an error class to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err in the result envelope. Anything that is not a
// classified user error is logged and reported as "Internal error".
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "op", op, "error", err)
	}
	middleware.ErrorResponse(w, status, apperr.Message(err))
}

// decode parses and validates a JSON request body, writing the 400 itself
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.ParseJSONBody(r, v); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	if err := middleware.ValidateStruct(v); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, apperr.Message(err))
		return false
	}
	return true
}
