// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, dialect string) error {
	_, err := db.ExecContext(ctx, Schema(dialect))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Schema returns the DDL for the given dialect
func Schema(dialect string) string {
	r := strings.NewReplacer(
		"{{now}}", "NOW()",
		"{{json}}", "JSONB",
	)
	if dialect == SQLite {
		r = strings.NewReplacer(
			"{{now}}", "CURRENT_TIMESTAMP",
			"{{json}}", "TEXT",
		)
	}
	return r.Replace(schema)
}

const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    allow_multiple BOOLEAN NOT NULL DEFAULT FALSE,
    show_results BOOLEAN NOT NULL DEFAULT TRUE,
    results_delay INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT {{now}},
    closed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_poll_is_active ON poll(is_active);

-- Questions
CREATE TABLE IF NOT EXISTS question (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    prompt TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'single' CHECK (type IN ('single', 'multiple')),
    max_selections INTEGER CHECK (max_selections IS NULL OR max_selections > 0)
);

CREATE INDEX IF NOT EXISTS idx_question_poll_id ON question(poll_id);

-- Options
CREATE TABLE IF NOT EXISTS option (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES question(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    label TEXT NOT NULL,
    value TEXT NOT NULL,
    color TEXT,
    emoji TEXT
);

CREATE INDEX IF NOT EXISTS idx_option_question_id ON option(question_id);

-- Sessions anchor an anonymous (or signed-in) voter to a poll
CREATE TABLE IF NOT EXISTS poll_session (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    session_token TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT {{now}},
    last_voted_at TIMESTAMP NOT NULL DEFAULT {{now}},
    UNIQUE (poll_id, session_token)
);

CREATE INDEX IF NOT EXISTS idx_poll_session_token ON poll_session(session_token);

-- Votes: one row per selected option
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES poll_session(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES question(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES option(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT {{now}},
    UNIQUE (session_id, question_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_question_id ON vote(question_id);
CREATE INDEX IF NOT EXISTS idx_vote_option_id ON vote(option_id);

-- Result Snapshots, written once when a poll closes
CREATE TABLE IF NOT EXISTS result_snapshot (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    computed_at TIMESTAMP NOT NULL DEFAULT {{now}},
    payload {{json}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_snapshot_poll_id ON result_snapshot(poll_id);

-- Surveys
CREATE TABLE IF NOT EXISTS survey (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT {{now}},
    closed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS survey_section (
    id TEXT PRIMARY KEY,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_survey_section_survey_id ON survey_section(survey_id);

CREATE TABLE IF NOT EXISTS survey_question (
    id TEXT PRIMARY KEY,
    section_id TEXT NOT NULL REFERENCES survey_section(id) ON DELETE CASCADE,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    prompt TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('text', 'single', 'checkbox', 'rating')),
    required BOOLEAN NOT NULL DEFAULT FALSE,
    max_selections INTEGER CHECK (max_selections IS NULL OR max_selections > 0)
);

CREATE INDEX IF NOT EXISTS idx_survey_question_survey_id ON survey_question(survey_id);

CREATE TABLE IF NOT EXISTS survey_option (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES survey_question(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    label TEXT NOT NULL,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_survey_option_question_id ON survey_option(question_id);

CREATE TABLE IF NOT EXISTS survey_response (
    id TEXT PRIMARY KEY,
    survey_id TEXT NOT NULL REFERENCES survey(id) ON DELETE CASCADE,
    session_token TEXT NOT NULL,
    submitted_at TIMESTAMP NOT NULL DEFAULT {{now}},
    UNIQUE (survey_id, session_token)
);

CREATE TABLE IF NOT EXISTS survey_answer (
    id TEXT PRIMARY KEY,
    response_id TEXT NOT NULL REFERENCES survey_response(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES survey_question(id) ON DELETE CASCADE,
    text_value TEXT,
    rating_value INTEGER,
    UNIQUE (response_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_survey_answer_question_id ON survey_answer(question_id);

CREATE TABLE IF NOT EXISTS survey_answer_option (
    answer_id TEXT NOT NULL REFERENCES survey_answer(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES survey_option(id) ON DELETE CASCADE,
    PRIMARY KEY (answer_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_survey_answer_option_option_id ON survey_answer_option(option_id);
`
