// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/session"
	"github.com/danielhkuo/livepoll/voting"
)

type SessionHandler struct {
	polls    *voting.Service
	sessions *session.Resolver
}

func NewSessionHandler(polls *voting.Service, sessions *session.Resolver) *SessionHandler {
	return &SessionHandler{polls: polls, sessions: sessions}
}

// GetMyPolls handles GET /sessions/me/polls
func (h *SessionHandler) GetMyPolls(w http.ResponseWriter, r *http.Request) {
	token, _ := h.sessions.PeekSessionToken(r)

	polls, err := h.polls.ListSessionPolls(r.Context(), token)
	if err != nil {
		writeError(w, "list session polls", err)
		return
	}

	middleware.DataResponse(w, http.StatusOK, models.SessionPollsResponse{Polls: polls})
}
