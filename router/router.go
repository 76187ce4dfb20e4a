// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/session"
	"github.com/danielhkuo/livepoll/survey"
	"github.com/danielhkuo/livepoll/voting"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, hub *realtime.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Services
	pollService := voting.NewService(db, cfg.DatabaseType)
	surveyService := survey.NewService(db, cfg.DatabaseType, cfg.AdminKeySalt)
	resolver := session.NewResolver(cfg.SecureCookies(), cfg.JWTSecret)

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(pollService, cfg, hub)
	votingHandler := handlers.NewVotingHandler(pollService, resolver, hub)
	resultsHandler := handlers.NewResultsHandler(pollService, cfg)
	sessionHandler := handlers.NewSessionHandler(pollService, resolver)
	surveyHandler := handlers.NewSurveyHandler(surveyService, resolver, cfg, hub)
	realtimeHandler := handlers.NewRealtimeHandler(hub, pollService, surveyService)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll lifecycle
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("GET /codes/{code}", middleware.WithLogging(pollHandler.GetPollByCode))
	mux.HandleFunc("POST /polls/{id}/close", middleware.WithLogging(pollHandler.ClosePoll))

	// Voting (public, session identified by cookie or bearer token)
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(votingHandler.SubmitVote))
	mux.HandleFunc("GET /polls/{id}/my-votes", middleware.WithLogging(votingHandler.GetMyVotes))
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /sessions/me/polls", middleware.WithLogging(sessionHandler.GetMyPolls))

	// Surveys
	mux.HandleFunc("POST /surveys", middleware.WithLogging(surveyHandler.CreateSurvey))
	mux.HandleFunc("GET /surveys/{id}", middleware.WithLogging(surveyHandler.GetSurvey))
	mux.HandleFunc("POST /surveys/{id}/responses", middleware.WithLogging(surveyHandler.SubmitResponse))
	mux.HandleFunc("GET /surveys/{id}/results", middleware.WithLogging(surveyHandler.GetResults))
	mux.HandleFunc("POST /surveys/{id}/close", middleware.WithLogging(surveyHandler.CloseSurvey))

	// Live updates
	mux.HandleFunc("GET /realtime/{kind}/{id}", middleware.WithLogging(realtimeHandler.Subscribe))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return mux
}
