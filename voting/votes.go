// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
)

// SubmitVote records sessionToken's selection for one question and returns
// the rows it inserted.
//
// Checks run in order and the first failure wins: poll active, question in
// poll, single-choice takes exactly one option, max_selections, then option
// membership. When the poll does not allow multiple votes, earlier votes of
// this session on the question are deleted first. Re-sending a selection
// that is already stored inserts nothing.
//
// Everything happens in one transaction. The session row is upserted before
// the delete, which row-locks it, so two submissions from the same session
// cannot interleave their delete and insert.
func (s *Service) SubmitVote(ctx context.Context, pollID, questionID, sessionToken string, optionIDs []string) ([]models.Vote, error) {
	if sessionToken == "" {
		return nil, apperr.Validation("Session token required")
	}
	optionIDs = dedupe(optionIDs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	var isActive, allowMultiple bool
	err = tx.QueryRowContext(ctx, `
		SELECT is_active, allow_multiple FROM poll WHERE id = $1`+s.forShare,
		pollID).Scan(&isActive, &allowMultiple)
	if err == sql.ErrNoRows || (err == nil && !isActive) {
		return nil, ErrPollInactiveOrNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("query poll", err)
	}

	var questionType string
	var maxSelections sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT type, max_selections FROM question WHERE id = $1 AND poll_id = $2
	`, questionID, pollID).Scan(&questionType, &maxSelections)
	if err == sql.ErrNoRows {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("query question", err)
	}

	if err := checkSelection(questionType, maxSelections, optionIDs); err != nil {
		return nil, err
	}

	valid, err := questionOptionIDs(ctx, tx, questionID)
	if err != nil {
		return nil, err
	}
	for _, id := range optionIDs {
		if !valid[id] {
			return nil, ErrOptionNotFound
		}
	}

	now := s.now()

	// Find-or-create the session anchor; the DO UPDATE also locks the row
	var sessionID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO poll_session (id, poll_id, session_token, created_at, last_voted_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (poll_id, session_token)
		DO UPDATE SET last_voted_at = excluded.last_voted_at
		RETURNING id
	`, auth.NewID(), pollID, sessionToken, now).Scan(&sessionID)
	if err != nil {
		return nil, apperr.Persistence("upsert session", err)
	}

	replaced := int64(0)
	if !allowMultiple {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM vote WHERE session_id = $1 AND question_id = $2
		`, sessionID, questionID)
		if err != nil {
			return nil, apperr.Persistence("delete previous votes", err)
		}
		replaced, _ = res.RowsAffected()
	}

	inserted := []models.Vote{}
	for _, optionID := range optionIDs {
		v := models.Vote{
			ID:         auth.NewID(),
			SessionID:  sessionID,
			QuestionID: questionID,
			OptionID:   optionID,
			CreatedAt:  now,
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO vote (id, session_id, question_id, option_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id, question_id, option_id) DO NOTHING
		`, v.ID, v.SessionID, v.QuestionID, v.OptionID, v.CreatedAt)
		if err != nil {
			return nil, apperr.Persistence("insert vote", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted = append(inserted, v)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("commit vote", err)
	}

	slog.Info("vote submitted",
		"poll_id", pollID,
		"question_id", questionID,
		"session_id", sessionID,
		"inserted", len(inserted),
		"replaced", replaced,
	)

	return inserted, nil
}

func checkSelection(questionType string, maxSelections sql.NullInt64, optionIDs []string) error {
	if questionType == models.QuestionSingle && len(optionIDs) != 1 {
		return ErrTooManyOptions
	}
	if maxSelections.Valid && int64(len(optionIDs)) > maxSelections.Int64 {
		return ErrMaxSelectionsExceeded
	}
	if len(optionIDs) == 0 {
		return ErrNoOptions
	}
	return nil
}

func questionOptionIDs(ctx context.Context, q querier, questionID string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM option WHERE question_id = $1`, questionID)
	if err != nil {
		return nil, apperr.Persistence("query options", err)
	}
	defer rows.Close()

	valid := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Persistence("scan option", err)
		}
		valid[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate options", err)
	}
	return valid, nil
}

// dedupe drops repeated ids, keeping first-seen order
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// GetUserVotes returns what sessionToken selected on each question of the
// poll. A session that never voted gets an empty map, not an error.
func (s *Service) GetUserVotes(ctx context.Context, pollID, sessionToken string) (models.UserVotes, error) {
	votes := models.UserVotes{}
	if sessionToken == "" {
		return votes, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.question_id, v.option_id
		FROM vote v
		JOIN poll_session ps ON ps.id = v.session_id
		JOIN option o ON o.id = v.option_id
		WHERE ps.poll_id = $1 AND ps.session_token = $2
		ORDER BY v.question_id, o.position
	`, pollID, sessionToken)
	if err != nil {
		return nil, apperr.Persistence("query user votes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var questionID, optionID string
		if err := rows.Scan(&questionID, &optionID); err != nil {
			return nil, apperr.Persistence("scan user vote", err)
		}
		votes[questionID] = append(votes[questionID], optionID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate user votes", err)
	}

	return votes, nil
}

// ListSessionPolls returns the polls sessionToken has voted on, most recent first
func (s *Service) ListSessionPolls(ctx context.Context, sessionToken string) ([]models.SessionPollSummary, error) {
	polls := []models.SessionPollSummary{}
	if sessionToken == "" {
		return polls, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id,
			p.code,
			p.title,
			p.is_active,
			ps.last_voted_at,
			(SELECT COUNT(*) FROM vote v WHERE v.session_id = ps.id) AS vote_count
		FROM poll_session ps
		JOIN poll p ON p.id = ps.poll_id
		WHERE ps.session_token = $1
		ORDER BY ps.last_voted_at DESC
	`, sessionToken)
	if err != nil {
		return nil, apperr.Persistence("query session polls", err)
	}
	defer rows.Close()

	for rows.Next() {
		var summary models.SessionPollSummary
		if err := rows.Scan(
			&summary.PollID,
			&summary.Code,
			&summary.Title,
			&summary.IsActive,
			&summary.LastVotedAt,
			&summary.VoteCount,
		); err != nil {
			return nil, apperr.Persistence("scan session poll", err)
		}
		summary.LastVotedHuman = humanize.Time(summary.LastVotedAt)
		polls = append(polls, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate session polls", err)
	}

	return polls, nil
}
