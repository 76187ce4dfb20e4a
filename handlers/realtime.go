// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/survey"
	"github.com/danielhkuo/livepoll/voting"
)

type RealtimeHandler struct {
	hub     *realtime.Hub
	polls   *voting.Service
	surveys *survey.Service
}

func NewRealtimeHandler(hub *realtime.Hub, polls *voting.Service, surveys *survey.Service) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, polls: polls, surveys: surveys}
}

// Subscribe handles GET /realtime/{kind}/{id}, where kind is poll or survey.
// The resource must exist before the connection is upgraded.
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var channel string
	switch r.PathValue("kind") {
	case "poll":
		if _, err := h.polls.GetPoll(r.Context(), id); err != nil {
			writeError(w, "subscribe poll", err)
			return
		}
		channel = realtime.PollChannel(id)
	case "survey":
		if _, err := h.surveys.GetSurvey(r.Context(), id); err != nil {
			writeError(w, "subscribe survey", err)
			return
		}
		channel = realtime.SurveyChannel(id)
	default:
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown channel kind")
		return
	}

	// Upgrade writes its own error response
	if err := h.hub.ServeWS(w, r, channel); err != nil {
		slog.Debug("websocket upgrade failed", "channel", channel, "error", err)
	}
}
