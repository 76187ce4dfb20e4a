// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/voting"
)

type PollHandler struct {
	polls    *voting.Service
	cfg      cliparse.Config
	notifier realtime.Notifier
}

func NewPollHandler(polls *voting.Service, cfg cliparse.Config, notifier realtime.Notifier) *PollHandler {
	return &PollHandler{polls: polls, cfg: cfg, notifier: notifier}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if !decode(w, r, &req) {
		return
	}

	created, err := h.polls.CreatePoll(r.Context(), req)
	if err != nil {
		writeError(w, "create poll", err)
		return
	}

	middleware.DataResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:   created.Poll.ID,
		Code:     created.Poll.Code,
		AdminKey: auth.GenerateAdminKey(created.Poll.ID, h.cfg.AdminKeySalt),
	})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.polls.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "get poll", err)
		return
	}
	middleware.DataResponse(w, http.StatusOK, poll)
}

// GetPollByCode handles GET /codes/{code}
func (h *PollHandler) GetPollByCode(w http.ResponseWriter, r *http.Request) {
	poll, err := h.polls.GetPollByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, "get poll by code", err)
		return
	}
	middleware.DataResponse(w, http.StatusOK, poll)
}

// ClosePoll handles POST /polls/{id}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	closed, err := h.polls.ClosePoll(r.Context(), pollID)
	if err != nil {
		writeError(w, "close poll", err)
		return
	}

	h.notifier.Publish(realtime.Event{
		Type:      models.EventPollClosed,
		Channel:   realtime.PollChannel(pollID),
		Timestamp: time.Now().UTC(),
	})

	middleware.DataResponse(w, http.StatusOK, closed)
}
