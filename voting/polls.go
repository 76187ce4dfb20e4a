// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
)

const pollCodeLength = 6

const pollColumns = `id, code, title, description, is_active, allow_multiple,
	show_results, results_delay, created_at, closed_at`

func scanPoll(row interface{ Scan(...any) error }) (models.Poll, error) {
	var p models.Poll
	var closedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.Code, &p.Title, &p.Description, &p.IsActive,
		&p.Settings.AllowMultiple, &p.Settings.ShowResults, &p.Settings.ResultsDelay,
		&p.CreatedAt, &closedAt,
	)
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}
	return p, err
}

// CreatePoll stores a new, active poll with its questions and options
func (s *Service) CreatePoll(ctx context.Context, req models.CreatePollRequest) (models.PollWithQuestions, error) {
	if err := checkQuestions(req.Questions); err != nil {
		return models.PollWithQuestions{}, err
	}

	settings := models.PollSettings{ShowResults: true}
	if req.Settings != nil {
		settings = *req.Settings
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PollWithQuestions{}, apperr.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	code, err := s.pickCode(ctx, tx, req.Code)
	if err != nil {
		return models.PollWithQuestions{}, err
	}

	now := s.now()
	poll := models.Poll{
		ID:          auth.NewID(),
		Code:        code,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    true,
		Settings:    settings,
		CreatedAt:   now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, code, title, description, is_active, allow_multiple,
			show_results, results_delay, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, poll.ID, poll.Code, poll.Title, poll.Description, poll.IsActive,
		settings.AllowMultiple, settings.ShowResults, settings.ResultsDelay, now)
	if err != nil {
		return models.PollWithQuestions{}, apperr.Persistence("insert poll", err)
	}

	questions := make([]models.Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		q := models.Question{
			ID:            auth.NewID(),
			PollID:        poll.ID,
			Position:      i,
			Prompt:        qr.Prompt,
			Type:          qr.Type,
			MaxSelections: qr.MaxSelections,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question (id, poll_id, position, prompt, type, max_selections)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, q.ID, q.PollID, q.Position, q.Prompt, q.Type, q.MaxSelections)
		if err != nil {
			return models.PollWithQuestions{}, apperr.Persistence("insert question", err)
		}

		for j, opt := range qr.Options {
			o := models.Option{
				ID:         auth.NewID(),
				QuestionID: q.ID,
				Position:   j,
				Label:      opt.Label,
				Value:      optionValue(opt.Value, opt.Label, j),
				Color:      opt.Color,
				Emoji:      opt.Emoji,
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO option (id, question_id, position, label, value, color, emoji)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, o.ID, o.QuestionID, o.Position, o.Label, o.Value, o.Color, o.Emoji)
			if err != nil {
				return models.PollWithQuestions{}, apperr.Persistence("insert option", err)
			}
			q.Options = append(q.Options, o)
		}
		questions = append(questions, q)
	}

	if err := tx.Commit(); err != nil {
		return models.PollWithQuestions{}, apperr.Persistence("commit poll", err)
	}

	slog.Info("poll created", "poll_id", poll.ID, "code", poll.Code, "questions", len(questions))

	return models.PollWithQuestions{Poll: poll, Questions: questions}, nil
}

// checkQuestions enforces the rules struct tags cannot express
func checkQuestions(questions []models.CreateQuestionRequest) error {
	if len(questions) == 0 {
		return apperr.Validation("A poll needs at least one question")
	}
	for i, q := range questions {
		if q.Type != models.QuestionSingle && q.Type != models.QuestionMultiple {
			return apperr.Validationf("question %d: type must be single or multiple", i+1)
		}
		if len(q.Options) < 2 {
			return apperr.Validationf("question %d: at least two options required", i+1)
		}
		if q.MaxSelections != nil {
			if *q.MaxSelections < 1 {
				return apperr.Validationf("question %d: max_selections must be positive", i+1)
			}
			if q.Type == models.QuestionSingle && *q.MaxSelections != 1 {
				return apperr.Validationf("question %d: single-choice questions allow one selection", i+1)
			}
		}

		seen := make(map[string]bool, len(q.Options))
		for j, o := range q.Options {
			v := optionValue(o.Value, o.Label, j)
			if seen[v] {
				return apperr.Validationf("question %d: duplicate option value %q", i+1, v)
			}
			seen[v] = true
		}
	}
	return nil
}

func optionValue(value, label string, position int) string {
	if value != "" {
		return value
	}
	if v := auth.Slugify(label); v != "" {
		return v
	}
	return fmt.Sprintf("option-%d", position+1)
}

// pickCode validates a requested code or generates a free one
func (s *Service) pickCode(ctx context.Context, q querier, requested string) (string, error) {
	if requested != "" {
		code := strings.ToUpper(requested)
		taken, err := codeExists(ctx, q, code)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrCodeTaken
		}
		return code, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := auth.GeneratePollCode(pollCodeLength)
		if err != nil {
			return "", apperr.Persistence("generate code", err)
		}
		taken, err := codeExists(ctx, q, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", apperr.Persistence("generate code", errors.New("no free code after 5 attempts"))
}

func codeExists(ctx context.Context, q querier, code string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM poll WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("check code", err)
	}
	return exists, nil
}

// GetPoll returns a poll with its ordered questions and options
func (s *Service) GetPoll(ctx context.Context, pollID string) (models.PollWithQuestions, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM poll WHERE id = $1`, pollID)
	return s.pollWithQuestions(ctx, row)
}

// GetPollByCode looks a poll up by its share code, case-insensitively
func (s *Service) GetPollByCode(ctx context.Context, code string) (models.PollWithQuestions, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM poll WHERE code = $1`, strings.ToUpper(code))
	return s.pollWithQuestions(ctx, row)
}

func (s *Service) pollWithQuestions(ctx context.Context, row *sql.Row) (models.PollWithQuestions, error) {
	poll, err := scanPoll(row)
	if err == sql.ErrNoRows {
		return models.PollWithQuestions{}, ErrPollNotFound
	}
	if err != nil {
		return models.PollWithQuestions{}, apperr.Persistence("query poll", err)
	}

	questions, err := loadQuestions(ctx, s.db, poll.ID)
	if err != nil {
		return models.PollWithQuestions{}, err
	}

	return models.PollWithQuestions{Poll: poll, Questions: questions}, nil
}

// loadQuestions returns the poll's questions by position, each with its
// options by position. Rows are drained before the next query so this is
// safe on a single-connection pool.
func loadQuestions(ctx context.Context, q querier, pollID string) ([]models.Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, poll_id, position, prompt, type, max_selections
		FROM question
		WHERE poll_id = $1
		ORDER BY position
	`, pollID)
	if err != nil {
		return nil, apperr.Persistence("query questions", err)
	}

	questions := []models.Question{}
	index := make(map[string]int)
	for rows.Next() {
		var qu models.Question
		var maxSel sql.NullInt64
		if err := rows.Scan(&qu.ID, &qu.PollID, &qu.Position, &qu.Prompt, &qu.Type, &maxSel); err != nil {
			rows.Close()
			return nil, apperr.Persistence("scan question", err)
		}
		if maxSel.Valid {
			m := int(maxSel.Int64)
			qu.MaxSelections = &m
		}
		qu.Options = []models.Option{}
		index[qu.ID] = len(questions)
		questions = append(questions, qu)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate questions", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.position, o.label, o.value, o.color, o.emoji
		FROM option o
		JOIN question q ON q.id = o.question_id
		WHERE q.poll_id = $1
		ORDER BY q.position, o.position
	`, pollID)
	if err != nil {
		return nil, apperr.Persistence("query options", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Option
		var color, emoji sql.NullString
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Position, &o.Label, &o.Value, &color, &emoji); err != nil {
			return nil, apperr.Persistence("scan option", err)
		}
		if color.Valid {
			o.Color = &color.String
		}
		if emoji.Valid {
			o.Emoji = &emoji.String
		}
		if i, ok := index[o.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate options", err)
	}

	return questions, nil
}

// ClosePoll deactivates a poll for good and freezes its results in a snapshot.
// There is no way back to active.
func (s *Service) ClosePoll(ctx context.Context, pollID string) (models.ClosePollResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ClosePollResponse{}, apperr.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	poll, err := scanPoll(tx.QueryRowContext(ctx,
		`SELECT `+pollColumns+` FROM poll WHERE id = $1`+s.forUpdate, pollID))
	if err == sql.ErrNoRows {
		return models.ClosePollResponse{}, ErrPollNotFound
	}
	if err != nil {
		return models.ClosePollResponse{}, apperr.Persistence("query poll", err)
	}
	if !poll.IsActive {
		return models.ClosePollResponse{}, ErrPollAlreadyClosed
	}

	closedAt := s.now()
	res, err := tx.ExecContext(ctx, `
		UPDATE poll
		SET is_active = $1, closed_at = $2
		WHERE id = $3 AND is_active = $4
	`, false, closedAt, pollID, true)
	if err != nil {
		return models.ClosePollResponse{}, apperr.Persistence("close poll", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ClosePollResponse{}, ErrPollAlreadyClosed
	}
	poll.IsActive = false
	poll.ClosedAt = &closedAt

	results, err := computeResults(ctx, tx, poll.ID, false)
	if err != nil {
		return models.ClosePollResponse{}, err
	}

	snapshot := models.ResultSnapshot{
		ID:         auth.NewID(),
		PollID:     poll.ID,
		ComputedAt: closedAt,
		Results:    results,
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return models.ClosePollResponse{}, apperr.Persistence("encode snapshot", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO result_snapshot (id, poll_id, computed_at, payload)
		VALUES ($1, $2, $3, $4)
	`, snapshot.ID, snapshot.PollID, snapshot.ComputedAt, string(payload))
	if err != nil {
		return models.ClosePollResponse{}, apperr.Persistence("insert snapshot", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ClosePollResponse{}, apperr.Persistence("commit close", err)
	}

	slog.Info("poll closed",
		"poll_id", poll.ID,
		"snapshot_id", snapshot.ID,
		"total_votes", results.TotalVotes,
		"open_for", strings.TrimSpace(humanize.RelTime(poll.CreatedAt, closedAt, "", "")),
	)

	return models.ClosePollResponse{Poll: poll, Snapshot: snapshot}, nil
}
