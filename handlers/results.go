// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/voting"
)

type ResultsHandler struct {
	polls *voting.Service
	cfg   cliparse.Config
}

func NewResultsHandler(polls *voting.Service, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{polls: polls, cfg: cfg}
}

// GetResults handles GET /polls/{id}/results.
//
// When a poll hides its results they stay hidden until it closes, except
// for callers holding the admin key.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	poll, err := h.polls.GetPoll(r.Context(), pollID)
	if err != nil {
		writeError(w, "get poll", err)
		return
	}

	if poll.Poll.IsActive && !poll.Poll.Settings.ShowResults {
		adminKey := r.Header.Get("X-Admin-Key")
		if auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt) != nil {
			middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until the poll closes")
			return
		}
	}

	results, err := h.polls.GetResults(r.Context(), pollID)
	if err != nil {
		writeError(w, "get results", err)
		return
	}
	middleware.DataResponse(w, http.StatusOK, results)
}
