// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
)

const surveyColumns = `id, slug, title, description, is_active, created_at, closed_at`

func scanSurvey(row interface{ Scan(...any) error }) (models.Survey, error) {
	var s models.Survey
	var closedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Slug, &s.Title, &s.Description, &s.IsActive, &s.CreatedAt, &closedAt)
	if closedAt.Valid {
		t := closedAt.Time
		s.ClosedAt = &t
	}
	return s, err
}

// CreateSurvey stores an active survey with its sections, questions and options
func (s *Service) CreateSurvey(ctx context.Context, req models.CreateSurveyRequest) (models.SurveyWithSections, error) {
	if len(req.Sections) == 0 {
		return models.SurveyWithSections{}, apperr.Validation("A survey needs at least one section")
	}
	for i, sec := range req.Sections {
		if len(sec.Questions) == 0 {
			return models.SurveyWithSections{}, apperr.Validationf("section %d: at least one question required", i+1)
		}
		for j, q := range sec.Questions {
			if err := checkQuestion(q); err != nil {
				return models.SurveyWithSections{}, apperr.Validationf("section %d question %d: %s", i+1, j+1, apperr.Message(err))
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.SurveyWithSections{}, apperr.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	now := s.now()
	sv := models.Survey{
		ID:          auth.NewID(),
		Title:       req.Title,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
	}

	sv.Slug, err = s.pickSlug(ctx, tx, sv.ID, req.Slug)
	if err != nil {
		return models.SurveyWithSections{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO survey (id, slug, title, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sv.ID, sv.Slug, sv.Title, sv.Description, sv.IsActive, now)
	if err != nil {
		return models.SurveyWithSections{}, apperr.Persistence("insert survey", err)
	}

	sections := make([]models.SurveySection, 0, len(req.Sections))
	for i, secReq := range req.Sections {
		sec := models.SurveySection{ID: auth.NewID(), Position: i, Title: secReq.Title}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO survey_section (id, survey_id, position, title)
			VALUES ($1, $2, $3, $4)
		`, sec.ID, sv.ID, sec.Position, sec.Title)
		if err != nil {
			return models.SurveyWithSections{}, apperr.Persistence("insert section", err)
		}

		for j, qReq := range secReq.Questions {
			q := models.SurveyQuestion{
				ID:            auth.NewID(),
				SectionID:     sec.ID,
				Position:      j,
				Prompt:        qReq.Prompt,
				Type:          qReq.Type,
				Required:      qReq.Required,
				MaxSelections: qReq.MaxSelections,
				Options:       []models.SurveyOption{},
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO survey_question (id, section_id, survey_id, position, prompt, type, required, max_selections)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, q.ID, q.SectionID, sv.ID, q.Position, q.Prompt, q.Type, q.Required, q.MaxSelections)
			if err != nil {
				return models.SurveyWithSections{}, apperr.Persistence("insert question", err)
			}

			for k, oReq := range qReq.Options {
				o := models.SurveyOption{
					ID:       auth.NewID(),
					Position: k,
					Label:    oReq.Label,
					Value:    optionValue(oReq.Value, oReq.Label, k),
				}
				_, err = tx.ExecContext(ctx, `
					INSERT INTO survey_option (id, question_id, position, label, value)
					VALUES ($1, $2, $3, $4, $5)
				`, o.ID, q.ID, o.Position, o.Label, o.Value)
				if err != nil {
					return models.SurveyWithSections{}, apperr.Persistence("insert option", err)
				}
				q.Options = append(q.Options, o)
			}
			sec.Questions = append(sec.Questions, q)
		}
		sections = append(sections, sec)
	}

	if err := tx.Commit(); err != nil {
		return models.SurveyWithSections{}, apperr.Persistence("commit survey", err)
	}

	slog.Info("survey created", "survey_id", sv.ID, "slug", sv.Slug, "sections", len(sections))

	return models.SurveyWithSections{Survey: sv, Sections: sections}, nil
}

func checkQuestion(q models.CreateSurveyQuestionRequest) error {
	switch q.Type {
	case models.SurveyText, models.SurveyRating:
		if len(q.Options) > 0 {
			return apperr.Validationf("%s questions take no options", q.Type)
		}
		if q.MaxSelections != nil {
			return apperr.Validationf("%s questions take no max_selections", q.Type)
		}
		return nil
	case models.SurveySingle, models.SurveyCheckbox:
	default:
		return apperr.Validation("type must be text, single, checkbox or rating")
	}

	if len(q.Options) < 2 {
		return apperr.Validation("at least two options required")
	}
	if q.MaxSelections != nil {
		if *q.MaxSelections < 1 {
			return apperr.Validation("max_selections must be positive")
		}
		if q.Type == models.SurveySingle && *q.MaxSelections != 1 {
			return apperr.Validation("single-choice questions allow one selection")
		}
	}

	seen := make(map[string]bool, len(q.Options))
	for i, o := range q.Options {
		v := optionValue(o.Value, o.Label, i)
		if seen[v] {
			return apperr.Validationf("duplicate option value %q", v)
		}
		seen[v] = true
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

// pickSlug normalizes a requested slug or derives one from the survey ID
func (s *Service) pickSlug(ctx context.Context, q querier, surveyID, requested string) (string, error) {
	slug := auth.GenerateShareSlug(surveyID, s.slugSalt)
	if requested != "" {
		slug = auth.Slugify(requested)
		if slug == "" {
			return "", apperr.Validation("Slug must contain letters or digits")
		}
	}

	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM survey WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return "", apperr.Persistence("check slug", err)
	}
	if exists {
		return "", ErrSlugTaken
	}
	return slug, nil
}

// GetSurvey returns a survey with its ordered sections, questions and options
func (s *Service) GetSurvey(ctx context.Context, surveyID string) (models.SurveyWithSections, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx, `SELECT `+surveyColumns+` FROM survey WHERE id = $1`, surveyID))
	if err == sql.ErrNoRows {
		return models.SurveyWithSections{}, ErrSurveyNotFound
	}
	if err != nil {
		return models.SurveyWithSections{}, apperr.Persistence("query survey", err)
	}

	sections, err := loadSections(ctx, s.db, sv.ID)
	if err != nil {
		return models.SurveyWithSections{}, err
	}

	return models.SurveyWithSections{Survey: sv, Sections: sections}, nil
}

// loadSections reads the survey tree in three passes, draining each result
// set before starting the next.
func loadSections(ctx context.Context, q querier, surveyID string) ([]models.SurveySection, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, position, title FROM survey_section
		WHERE survey_id = $1
		ORDER BY position
	`, surveyID)
	if err != nil {
		return nil, apperr.Persistence("query sections", err)
	}
	sections := []models.SurveySection{}
	secIndex := make(map[string]int)
	for rows.Next() {
		var sec models.SurveySection
		if err := rows.Scan(&sec.ID, &sec.Position, &sec.Title); err != nil {
			rows.Close()
			return nil, apperr.Persistence("scan section", err)
		}
		sec.Questions = []models.SurveyQuestion{}
		secIndex[sec.ID] = len(sections)
		sections = append(sections, sec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate sections", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT id, section_id, position, prompt, type, required, max_selections
		FROM survey_question
		WHERE survey_id = $1
		ORDER BY position
	`, surveyID)
	if err != nil {
		return nil, apperr.Persistence("query questions", err)
	}
	type qPos struct{ section, question int }
	qIndex := make(map[string]qPos)
	for rows.Next() {
		var qu models.SurveyQuestion
		var maxSel sql.NullInt64
		if err := rows.Scan(&qu.ID, &qu.SectionID, &qu.Position, &qu.Prompt, &qu.Type, &qu.Required, &maxSel); err != nil {
			rows.Close()
			return nil, apperr.Persistence("scan question", err)
		}
		if maxSel.Valid {
			m := int(maxSel.Int64)
			qu.MaxSelections = &m
		}
		qu.Options = []models.SurveyOption{}
		si, ok := secIndex[qu.SectionID]
		if !ok {
			continue
		}
		qIndex[qu.ID] = qPos{si, len(sections[si].Questions)}
		sections[si].Questions = append(sections[si].Questions, qu)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate questions", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.position, o.label, o.value
		FROM survey_option o
		JOIN survey_question q ON q.id = o.question_id
		WHERE q.survey_id = $1
		ORDER BY o.position
	`, surveyID)
	if err != nil {
		return nil, apperr.Persistence("query options", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o models.SurveyOption
		var questionID string
		if err := rows.Scan(&o.ID, &questionID, &o.Position, &o.Label, &o.Value); err != nil {
			return nil, apperr.Persistence("scan option", err)
		}
		if p, ok := qIndex[questionID]; ok {
			qu := &sections[p.section].Questions[p.question]
			qu.Options = append(qu.Options, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate options", err)
	}

	return sections, nil
}

// CloseSurvey stops a survey from taking responses. It cannot be reopened.
func (s *Service) CloseSurvey(ctx context.Context, surveyID string) (models.Survey, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Survey{}, apperr.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	sv, err := scanSurvey(tx.QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM survey WHERE id = $1`+s.forUpdate, surveyID))
	if err == sql.ErrNoRows {
		return models.Survey{}, ErrSurveyNotFound
	}
	if err != nil {
		return models.Survey{}, apperr.Persistence("query survey", err)
	}
	if !sv.IsActive {
		return models.Survey{}, ErrSurveyAlreadyClosed
	}

	closedAt := s.now()
	res, err := tx.ExecContext(ctx, `
		UPDATE survey SET is_active = $1, closed_at = $2
		WHERE id = $3 AND is_active = $4
	`, false, closedAt, surveyID, true)
	if err != nil {
		return models.Survey{}, apperr.Persistence("close survey", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Survey{}, ErrSurveyAlreadyClosed
	}

	if err := tx.Commit(); err != nil {
		return models.Survey{}, apperr.Persistence("commit close", err)
	}

	sv.IsActive = false
	sv.ClosedAt = &closedAt

	slog.Info("survey closed",
		"survey_id", sv.ID,
		"open_for", strings.TrimSpace(humanize.RelTime(sv.CreatedAt, closedAt, "", "")),
	)

	return sv, nil
}
