// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"math"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/models"
)

// voteKey identifies one (question, option) bucket
type voteKey struct {
	questionID string
	optionID   string
}

// GetResults aggregates the poll's votes. Nothing is cached or counted
// incrementally: every call rescans the vote rows.
func (s *Service) GetResults(ctx context.Context, pollID string) (models.PollResults, error) {
	var isActive bool
	err := s.db.QueryRowContext(ctx, `SELECT is_active FROM poll WHERE id = $1`, pollID).Scan(&isActive)
	if err == sql.ErrNoRows {
		return models.PollResults{}, ErrPollNotFound
	}
	if err != nil {
		return models.PollResults{}, apperr.Persistence("query poll", err)
	}

	return computeResults(ctx, s.db, pollID, isActive)
}

func computeResults(ctx context.Context, q querier, pollID string, isActive bool) (models.PollResults, error) {
	questions, err := loadQuestions(ctx, q, pollID)
	if err != nil {
		return models.PollResults{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT v.question_id, v.option_id, COUNT(*)
		FROM vote v
		JOIN question q ON q.id = v.question_id
		WHERE q.poll_id = $1
		GROUP BY v.question_id, v.option_id
	`, pollID)
	if err != nil {
		return models.PollResults{}, apperr.Persistence("count votes", err)
	}
	defer rows.Close()

	counts := make(map[voteKey]int)
	for rows.Next() {
		var k voteKey
		var n int
		if err := rows.Scan(&k.questionID, &k.optionID, &n); err != nil {
			return models.PollResults{}, apperr.Persistence("scan vote count", err)
		}
		counts[k] = n
	}
	if err := rows.Err(); err != nil {
		return models.PollResults{}, apperr.Persistence("iterate vote counts", err)
	}

	results := tally(questions, counts)
	results.PollID = pollID
	results.IsActive = isActive
	return results, nil
}

// tally turns per-option counts into results, keeping question and option
// order. TotalVotes is a count of vote rows across all questions.
func tally(questions []models.Question, counts map[voteKey]int) models.PollResults {
	perQuestion := make(map[string]int)
	total := 0
	for k, n := range counts {
		perQuestion[k.questionID] += n
		total += n
	}

	results := models.PollResults{
		TotalVotes: total,
		Questions:  make([]models.QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		qr := models.QuestionResult{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Type:       q.Type,
			TotalVotes: perQuestion[q.ID],
			Options:    make([]models.OptionResult, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			n := counts[voteKey{questionID: q.ID, optionID: o.ID}]
			qr.Options = append(qr.Options, models.OptionResult{
				OptionID:   o.ID,
				Label:      o.Label,
				Value:      o.Value,
				Color:      o.Color,
				Emoji:      o.Emoji,
				VoteCount:  n,
				Percentage: Percentage(n, qr.TotalVotes),
			})
		}
		results.Questions = append(results.Questions, qr)
	}

	return results
}

// Percentage is round(count/total*100), or 0 when total is 0
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
