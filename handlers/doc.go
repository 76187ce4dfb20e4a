// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the livepoll API.

# Handler Types

Each handler is a struct over the transport-free services:

  - PollHandler: create, fetch and close polls
  - VotingHandler: vote submission and the caller's own votes
  - ResultsHandler: aggregated poll results
  - SessionHandler: the caller's poll history
  - SurveyHandler: surveys, responses and survey results
  - RealtimeHandler: websocket subscriptions

	polls := voting.NewService(conn, cfg.DatabaseType)
	pollHandler := handlers.NewPollHandler(polls, cfg, hub)

# Responses

Every response body is the result envelope {"data": ..., "error": ...}.
Service errors map to status codes by class:

	validation            400
	bad admin key         401
	hidden results        403
	not found / inactive  404
	already closed, taken 409
	anything else         500 ("Internal error", details only in the log)

# Identity

Voters are identified by the session resolver: a bearer JWT when one is
configured and valid, otherwise the lp_session cookie, issued on the first
vote. Reads never issue cookies. Admin operations require the X-Admin-Key
header returned at creation.

# Notifications

Successful writes publish a realtime event after the service call returns.
Publishing never blocks and never affects the response.
*/
package handlers
