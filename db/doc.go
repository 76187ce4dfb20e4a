// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connections

Open selects the driver by dialect and pings the database:

	conn, err := db.Open(ctx, db.Postgres, "postgres://...")
	conn, err := db.Open(ctx, db.SQLite, "file:livepoll.db")

PostgreSQL uses lib/pq; SQLite uses the pure-Go modernc.org/sqlite driver and
is pinned to one connection with foreign keys enabled.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn, db.Postgres); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

Polls:

  - poll: code, settings and lifecycle state
  - question: ordered prompts, single or multiple choice
  - option: ordered choices per question
  - poll_session: one row per (poll, session token)
  - vote: one row per selected option, unique per (session, question, option)
  - result_snapshot: final results written at close

Surveys:

  - survey, survey_section, survey_question, survey_option
  - survey_response: one per (survey, session token)
  - survey_answer: one per (response, question)
  - survey_answer_option: selected options of choice answers

# Relationships

	poll 1──* question 1──* option
	poll 1──* poll_session 1──* vote *──1 option
	survey 1──* survey_section 1──* survey_question 1──* survey_option
	survey 1──* survey_response 1──* survey_answer 1──* survey_answer_option

All foreign keys use ON DELETE CASCADE.
*/
package db
