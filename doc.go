// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll runs live polls and surveys for audiences without accounts. A
voter is identified by a session cookie (or a bearer token when the host
app has its own login), votes are replaced or accumulated per poll
settings, and every change is pushed to websocket subscribers.

# Starting the Server

The server requires a database URL and an admin key salt:

	DATABASE_URL=file:livepoll.db ADMIN_KEY_SALT=... go run .

Or against PostgreSQL with flags:

	go run . -t postgres -d "postgres://..." --admin-salt ...

A .env file in the working directory is loaded before flags are parsed.

# Configuration

Required settings:

  - DATABASE_URL (-d): Connection string or SQLite file
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - APP_ENV (--env): development or production (production sets Secure cookies)
  - JWT_SECRET (--jwt-secret): Enables bearer token identities
  - ALLOWED_ORIGINS (--origins): Comma separated CORS and websocket origins
  - LOG_LEVEL (--log-level): debug, info, warn or error

# Architecture

  - handlers: HTTP request handlers (polls, voting, results, sessions, surveys, realtime)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON envelope, request validation
  - voting: Poll lifecycle, vote writer and aggregator
  - survey: Survey lifecycle, responses and aggregates
  - realtime: Websocket hub and change notifications
  - session: Session identity resolution
  - models: Request/response types
  - auth: Token generation and validation
  - apperr: Error classes shared by services and handlers
  - db: Connection and schema for both dialects
  - cliparse: Configuration parsing

The server stops gracefully on SIGINT or SIGTERM: in-flight requests finish
and websocket clients are disconnected.
*/
package main
