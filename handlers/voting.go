// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/session"
	"github.com/danielhkuo/livepoll/voting"
)

type VotingHandler struct {
	polls    *voting.Service
	sessions *session.Resolver
	notifier realtime.Notifier
}

func NewVotingHandler(polls *voting.Service, sessions *session.Resolver, notifier realtime.Notifier) *VotingHandler {
	return &VotingHandler{polls: polls, sessions: sessions, notifier: notifier}
}

// SubmitVote handles POST /polls/{id}/votes
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	var req models.SubmitVoteRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.sessions.GetOrCreateSessionToken(w, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
		return
	}

	votes, err := h.polls.SubmitVote(r.Context(), pollID, req.QuestionID, token, req.OptionIDs)
	if err != nil {
		writeError(w, "submit vote", err)
		return
	}

	h.notifier.Publish(realtime.Event{
		Type:      models.EventVotesChanged,
		Channel:   realtime.PollChannel(pollID),
		Timestamp: time.Now().UTC(),
	})

	middleware.DataResponse(w, http.StatusCreated, votes)
}

// GetMyVotes handles GET /polls/{id}/my-votes. A caller without a session
// gets an empty map; no cookie is issued.
func (h *VotingHandler) GetMyVotes(w http.ResponseWriter, r *http.Request) {
	token, _ := h.sessions.PeekSessionToken(r)

	votes, err := h.polls.GetUserVotes(r.Context(), r.PathValue("id"), token)
	if err != nil {
		writeError(w, "get my votes", err)
		return
	}
	middleware.DataResponse(w, http.StatusOK, votes)
}
