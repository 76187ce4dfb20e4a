// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/db"
)

// Poll errors, in the order SubmitVote checks them
var (
	ErrPollInactiveOrNotFound = apperr.NotFound("Poll not found or inactive")
	ErrQuestionNotFound       = apperr.NotFound("Question not found")
	ErrTooManyOptions         = apperr.Validation("Single-choice questions take exactly one option")
	ErrMaxSelectionsExceeded  = apperr.Validation("Too many options selected")
	ErrNoOptions              = apperr.Validation("Select at least one option")
	ErrOptionNotFound         = apperr.NotFound("Option not found")

	ErrPollNotFound      = apperr.NotFound("Poll not found")
	ErrPollAlreadyClosed = apperr.Conflict("Poll is already closed")
	ErrCodeTaken         = apperr.Conflict("Poll code already in use")
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Service owns polls, votes and their aggregation. It knows nothing about
// HTTP; the caller passes the resolved session token explicitly.
//
// On postgres, votes share-lock the poll row and closing takes it
// exclusively, so no vote commits after its poll closed.
type Service struct {
	db        *sql.DB
	forShare  string
	forUpdate string
	now       func() time.Time
}

func NewService(conn *sql.DB, dialect string) *Service {
	return &Service{
		db:        conn,
		forShare:  db.ForShare(dialect),
		forUpdate: db.ForUpdate(dialect),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}
