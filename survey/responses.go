// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
)

// answer is a validated answer ready to be written
type answer struct {
	questionID string
	text       *string
	rating     *int
	optionIDs  []string
}

// SubmitResponse stores sessionToken's answers to the survey. A session has
// at most one response per survey; submitting again replaces every earlier
// answer, all or nothing.
func (s *Service) SubmitResponse(ctx context.Context, surveyID, sessionToken string, answers []models.SurveyAnswerRequest) (models.SubmitSurveyResponseResponse, error) {
	if sessionToken == "" {
		return models.SubmitSurveyResponseResponse{}, apperr.Validation("Session token required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.SubmitSurveyResponseResponse{}, apperr.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM survey WHERE id = $1`+s.forShare, surveyID).Scan(&isActive)
	if err == sql.ErrNoRows || (err == nil && !isActive) {
		return models.SubmitSurveyResponseResponse{}, ErrSurveyInactiveOrNotFound
	}
	if err != nil {
		return models.SubmitSurveyResponseResponse{}, apperr.Persistence("query survey", err)
	}

	sections, err := loadSections(ctx, tx, surveyID)
	if err != nil {
		return models.SubmitSurveyResponseResponse{}, err
	}

	valid, err := checkAnswers(sections, answers)
	if err != nil {
		return models.SubmitSurveyResponseResponse{}, err
	}

	now := s.now()
	newID := auth.NewID()
	var responseID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO survey_response (id, survey_id, session_token, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (survey_id, session_token)
		DO UPDATE SET submitted_at = excluded.submitted_at
		RETURNING id
	`, newID, surveyID, sessionToken, now).Scan(&responseID)
	if err != nil {
		return models.SubmitSurveyResponseResponse{}, apperr.Persistence("upsert response", err)
	}
	replaced := responseID != newID

	if replaced {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM survey_answer_option
			WHERE answer_id IN (SELECT id FROM survey_answer WHERE response_id = $1)
		`, responseID)
		if err != nil {
			return models.SubmitSurveyResponseResponse{}, apperr.Persistence("delete answer options", err)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM survey_answer WHERE response_id = $1`, responseID)
		if err != nil {
			return models.SubmitSurveyResponseResponse{}, apperr.Persistence("delete answers", err)
		}
	}

	for _, a := range valid {
		answerID := auth.NewID()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO survey_answer (id, response_id, question_id, text_value, rating_value)
			VALUES ($1, $2, $3, $4, $5)
		`, answerID, responseID, a.questionID, a.text, a.rating)
		if err != nil {
			return models.SubmitSurveyResponseResponse{}, apperr.Persistence("insert answer", err)
		}
		for _, optionID := range a.optionIDs {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO survey_answer_option (answer_id, option_id) VALUES ($1, $2)
			`, answerID, optionID)
			if err != nil {
				return models.SubmitSurveyResponseResponse{}, apperr.Persistence("insert answer option", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.SubmitSurveyResponseResponse{}, apperr.Persistence("commit response", err)
	}

	slog.Info("survey response submitted",
		"survey_id", surveyID,
		"response_id", responseID,
		"answers", len(valid),
		"replaced", replaced,
	)

	return models.SubmitSurveyResponseResponse{ResponseID: responseID, Replaced: replaced}, nil
}

// checkAnswers validates answers against the survey's questions and returns
// the ones that carry a value. Blank answers to optional questions are dropped.
func checkAnswers(sections []models.SurveySection, answers []models.SurveyAnswerRequest) ([]answer, error) {
	questions := make(map[string]models.SurveyQuestion)
	var order []string
	for _, sec := range sections {
		for _, q := range sec.Questions {
			questions[q.ID] = q
			order = append(order, q.ID)
		}
	}

	given := make(map[string]answer, len(answers))
	seen := make(map[string]bool, len(answers))
	for _, req := range answers {
		q, ok := questions[req.QuestionID]
		if !ok {
			return nil, ErrQuestionNotFound
		}
		if seen[q.ID] {
			return nil, apperr.Validationf("Question %q answered more than once", q.Prompt)
		}
		seen[q.ID] = true

		a, err := checkAnswer(q, req)
		if err != nil {
			return nil, err
		}
		if a != nil {
			given[q.ID] = *a
		}
	}

	out := make([]answer, 0, len(given))
	for _, id := range order {
		a, ok := given[id]
		if !ok {
			if questions[id].Required {
				return nil, apperr.Validationf("Question %q is required", questions[id].Prompt)
			}
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// checkAnswer returns nil, nil for an empty answer
func checkAnswer(q models.SurveyQuestion, req models.SurveyAnswerRequest) (*answer, error) {
	a := &answer{questionID: q.ID}

	switch q.Type {
	case models.SurveyText:
		if req.Text == nil {
			return nil, nil
		}
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return nil, nil
		}
		if utf8.RuneCountInString(text) > MaxTextLength {
			return nil, apperr.Validationf("Answer to %q is longer than %d characters", q.Prompt, MaxTextLength)
		}
		a.text = &text

	case models.SurveyRating:
		if req.Rating == nil {
			return nil, nil
		}
		r := *req.Rating
		if r < models.RatingMin || r > models.RatingMax {
			return nil, apperr.Validationf("Rating for %q must be between %d and %d", q.Prompt, models.RatingMin, models.RatingMax)
		}
		a.rating = &r

	case models.SurveySingle, models.SurveyCheckbox:
		ids := dedupe(req.OptionIDs)
		if len(ids) == 0 {
			return nil, nil
		}
		if q.Type == models.SurveySingle && len(ids) != 1 {
			return nil, apperr.Validationf("Question %q takes exactly one option", q.Prompt)
		}
		if q.MaxSelections != nil && len(ids) > *q.MaxSelections {
			return nil, apperr.Validationf("Question %q allows at most %d options", q.Prompt, *q.MaxSelections)
		}
		for _, id := range ids {
			if !hasOption(q, id) {
				return nil, ErrOptionNotFound
			}
		}
		a.optionIDs = ids
	}

	return a, nil
}

func hasOption(q models.SurveyQuestion, optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

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
