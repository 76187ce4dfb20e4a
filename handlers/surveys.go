// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/session"
	"github.com/danielhkuo/livepoll/survey"
)

type SurveyHandler struct {
	surveys  *survey.Service
	sessions *session.Resolver
	cfg      cliparse.Config
	notifier realtime.Notifier
}

func NewSurveyHandler(surveys *survey.Service, sessions *session.Resolver, cfg cliparse.Config, notifier realtime.Notifier) *SurveyHandler {
	return &SurveyHandler{surveys: surveys, sessions: sessions, cfg: cfg, notifier: notifier}
}

func (h *SurveyHandler) requireAdmin(w http.ResponseWriter, r *http.Request, surveyID string) bool {
	if err := auth.ValidateAdminKey(surveyID, r.Header.Get("X-Admin-Key"), h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// CreateSurvey handles POST /surveys
func (h *SurveyHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSurveyRequest
	if !decode(w, r, &req) {
		return
	}

	created, err := h.surveys.CreateSurvey(r.Context(), req)
	if err != nil {
		writeError(w, "create survey", err)
		return
	}

	middleware.DataResponse(w, http.StatusCreated, models.CreateSurveyResponse{
		SurveyID: created.Survey.ID,
		Slug:     created.Survey.Slug,
		AdminKey: auth.GenerateAdminKey(created.Survey.ID, h.cfg.AdminKeySalt),
	})
}

// GetSurvey handles GET /surveys/{id}
func (h *SurveyHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := h.surveys.GetSurvey(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "get survey", err)
		return
	}
	middleware.DataResponse(w, http.StatusOK, sv)
}

// SubmitResponse handles POST /surveys/{id}/responses
func (h *SurveyHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")

	var req models.SubmitSurveyResponseRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.sessions.GetOrCreateSessionToken(w, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
		return
	}

	resp, err := h.surveys.SubmitResponse(r.Context(), surveyID, token, req.Answers)
	if err != nil {
		writeError(w, "submit survey response", err)
		return
	}

	h.notifier.Publish(realtime.Event{
		Type:      models.EventResponsesChanged,
		Channel:   realtime.SurveyChannel(surveyID),
		Timestamp: time.Now().UTC(),
	})

	middleware.DataResponse(w, http.StatusCreated, resp)
}

// GetResults handles GET /surveys/{id}/results. Survey results are for the
// owner only.
func (h *SurveyHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if !h.requireAdmin(w, r, surveyID) {
		return
	}

	results, err := h.surveys.GetResults(r.Context(), surveyID)
	if err != nil {
		writeError(w, "get survey results", err)
		return
	}
	middleware.DataResponse(w, http.StatusOK, results)
}

// CloseSurvey handles POST /surveys/{id}/close
func (h *SurveyHandler) CloseSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	if !h.requireAdmin(w, r, surveyID) {
		return
	}

	closed, err := h.surveys.CloseSurvey(r.Context(), surveyID)
	if err != nil {
		writeError(w, "close survey", err)
		return
	}

	h.notifier.Publish(realtime.Event{
		Type:      models.EventSurveyClosed,
		Channel:   realtime.SurveyChannel(surveyID),
		Timestamp: time.Now().UTC(),
	})

	middleware.DataResponse(w, http.StatusOK, closed)
}
