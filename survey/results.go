// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"context"
	"database/sql"
	"math"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/voting"
)

// answerStats holds the raw counts GetResults reads, keyed by question or option ID
type answerStats struct {
	answered map[string]int
	options  map[string]int
	ratings  map[string]map[int]int
	texts    map[string][]string
}

func newAnswerStats() answerStats {
	return answerStats{
		answered: make(map[string]int),
		options:  make(map[string]int),
		ratings:  make(map[string]map[int]int),
		texts:    make(map[string][]string),
	}
}

// GetResults aggregates all stored responses of a survey
func (s *Service) GetResults(ctx context.Context, surveyID string) (models.SurveyResults, error) {
	var isActive bool
	err := s.db.QueryRowContext(ctx, `SELECT is_active FROM survey WHERE id = $1`, surveyID).Scan(&isActive)
	if err == sql.ErrNoRows {
		return models.SurveyResults{}, ErrSurveyNotFound
	}
	if err != nil {
		return models.SurveyResults{}, apperr.Persistence("query survey", err)
	}

	sections, err := loadSections(ctx, s.db, surveyID)
	if err != nil {
		return models.SurveyResults{}, err
	}

	var total int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_response WHERE survey_id = $1`, surveyID).Scan(&total)
	if err != nil {
		return models.SurveyResults{}, apperr.Persistence("count responses", err)
	}

	stats, err := loadStats(ctx, s.db, surveyID)
	if err != nil {
		return models.SurveyResults{}, err
	}

	results := aggregate(sections, stats)
	results.SurveyID = surveyID
	results.IsActive = isActive
	results.TotalResponses = total
	return results, nil
}

func loadStats(ctx context.Context, q querier, surveyID string) (answerStats, error) {
	stats := newAnswerStats()

	err := eachRow(ctx, q, `
		SELECT a.question_id, COUNT(*)
		FROM survey_answer a
		JOIN survey_response r ON r.id = a.response_id
		WHERE r.survey_id = $1
		GROUP BY a.question_id
	`, surveyID, func(rows *sql.Rows) error {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		stats.answered[id] = n
		return nil
	})
	if err != nil {
		return stats, apperr.Persistence("count answers", err)
	}

	err = eachRow(ctx, q, `
		SELECT ao.option_id, COUNT(*)
		FROM survey_answer_option ao
		JOIN survey_answer a ON a.id = ao.answer_id
		JOIN survey_response r ON r.id = a.response_id
		WHERE r.survey_id = $1
		GROUP BY ao.option_id
	`, surveyID, func(rows *sql.Rows) error {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		stats.options[id] = n
		return nil
	})
	if err != nil {
		return stats, apperr.Persistence("count options", err)
	}

	err = eachRow(ctx, q, `
		SELECT a.question_id, a.rating_value, COUNT(*)
		FROM survey_answer a
		JOIN survey_response r ON r.id = a.response_id
		WHERE r.survey_id = $1 AND a.rating_value IS NOT NULL
		GROUP BY a.question_id, a.rating_value
	`, surveyID, func(rows *sql.Rows) error {
		var id string
		var rating, n int
		if err := rows.Scan(&id, &rating, &n); err != nil {
			return err
		}
		if stats.ratings[id] == nil {
			stats.ratings[id] = make(map[int]int)
		}
		stats.ratings[id][rating] = n
		return nil
	})
	if err != nil {
		return stats, apperr.Persistence("count ratings", err)
	}

	err = eachRow(ctx, q, `
		SELECT a.question_id, a.text_value
		FROM survey_answer a
		JOIN survey_response r ON r.id = a.response_id
		WHERE r.survey_id = $1 AND a.text_value IS NOT NULL
		ORDER BY r.submitted_at DESC, a.id
	`, surveyID, func(rows *sql.Rows) error {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return err
		}
		stats.texts[id] = append(stats.texts[id], text)
		return nil
	})
	if err != nil {
		return stats, apperr.Persistence("list text answers", err)
	}

	return stats, nil
}

func eachRow(ctx context.Context, q querier, query string, arg any, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// aggregate shapes raw counts into per-question results in survey order.
// Choice percentages are relative to the number of people who answered the
// question, so checkbox percentages can add up to more than 100.
func aggregate(sections []models.SurveySection, stats answerStats) models.SurveyResults {
	results := models.SurveyResults{Questions: []models.SurveyQuestionResult{}}

	for _, sec := range sections {
		for _, q := range sec.Questions {
			n := stats.answered[q.ID]
			qr := models.SurveyQuestionResult{
				QuestionID:    q.ID,
				Prompt:        q.Prompt,
				Type:          q.Type,
				ResponseCount: n,
			}

			switch q.Type {
			case models.SurveySingle, models.SurveyCheckbox:
				qr.Options = make([]models.OptionResult, 0, len(q.Options))
				for _, o := range q.Options {
					count := stats.options[o.ID]
					qr.Options = append(qr.Options, models.OptionResult{
						OptionID:   o.ID,
						Label:      o.Label,
						Value:      o.Value,
						VoteCount:  count,
						Percentage: voting.Percentage(count, n),
					})
				}

			case models.SurveyRating:
				qr.Distribution = make(map[int]int, models.RatingMax)
				sum, count := 0, 0
				for r := models.RatingMin; r <= models.RatingMax; r++ {
					c := stats.ratings[q.ID][r]
					qr.Distribution[r] = c
					sum += r * c
					count += c
				}
				if count > 0 {
					avg := math.Round(float64(sum)/float64(count)*100) / 100
					qr.AverageRating = &avg
				}

			case models.SurveyText:
				qr.TextAnswers = stats.texts[q.ID]
				if qr.TextAnswers == nil {
					qr.TextAnswers = []string{}
				}
			}

			results.Questions = append(results.Questions, qr)
		}
	}

	return results
}
