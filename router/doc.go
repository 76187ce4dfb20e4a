// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter builds the services and handlers and registers every endpoint on
an http.ServeMux. The hub receives change events and serves websocket
subscriptions, so it must be running:

	hub := realtime.NewHub(cfg.AllowedOrigins)
	go hub.Run(ctx)
	mux := router.NewRouter(db, cfg, hub)

# Endpoints

Health:

	GET /health

Polls:

	POST /polls                - Create poll, returns the admin key
	GET  /polls/{id}           - Poll with questions and options
	GET  /codes/{code}         - Same, looked up by join code
	POST /polls/{id}/close     - Close and snapshot results (X-Admin-Key)

Voting (session from cookie or bearer token):

	POST /polls/{id}/votes     - Submit or replace a selection
	GET  /polls/{id}/my-votes  - This session's selections
	GET  /polls/{id}/results   - Live tallies, subject to show_results
	GET  /sessions/me/polls    - Polls this session voted on

Surveys:

	POST /surveys                 - Create survey, returns the admin key
	GET  /surveys/{id}            - Survey with sections and questions
	POST /surveys/{id}/responses  - Submit or replace a response
	GET  /surveys/{id}/results    - Aggregates (X-Admin-Key)
	POST /surveys/{id}/close      - Stop accepting responses (X-Admin-Key)

Live updates:

	GET /realtime/{kind}/{id}  - Websocket for poll or survey events

Every route except health, root and the websocket upgrade responds with the
{"data": ..., "error": ...} envelope.
*/
package router
