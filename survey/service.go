// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/db"
)

// MaxTextLength caps free-text answers, counted in runes
const MaxTextLength = 2000

var (
	ErrSurveyInactiveOrNotFound = apperr.NotFound("Survey not found or inactive")
	ErrSurveyNotFound           = apperr.NotFound("Survey not found")
	ErrSurveyAlreadyClosed      = apperr.Conflict("Survey is already closed")
	ErrSlugTaken                = apperr.Conflict("Survey slug already in use")
	ErrQuestionNotFound         = apperr.NotFound("Question not found")
	ErrOptionNotFound           = apperr.NotFound("Option not found")
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Service owns surveys, their responses and aggregation.
// slugSalt keys the generated share slugs.
// Responses share-lock the survey row on postgres and closing takes it
// exclusively.
type Service struct {
	db        *sql.DB
	slugSalt  string
	forShare  string
	forUpdate string
	now       func() time.Time
}

func NewService(conn *sql.DB, dialect, slugSalt string) *Service {
	return &Service{
		db:        conn,
		slugSalt:  slugSalt,
		forShare:  db.ForShare(dialect),
		forUpdate: db.ForUpdate(dialect),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}
