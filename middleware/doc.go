// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).
Websocket upgrades pass through.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

Allows GET, POST and OPTIONS with headers Content-Type, Authorization and
X-Admin-Key. Credentials are allowed so the session cookie travels.

# Responses

Every API response uses the result envelope:

	middleware.DataResponse(w, http.StatusOK, poll)          // {"data": {...}, "error": null}
	middleware.ErrorResponse(w, http.StatusNotFound, "...")  // {"data": null, "error": "..."}

# Request Bodies

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, apperr.Message(err))
		return
	}

ValidateStruct runs the validator/v10 struct tags and reports the first
failing field by its JSON path, e.g. "questions[0].options is required".
*/
package middleware
