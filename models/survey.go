// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Request types

type CreateSurveyOptionRequest struct {
	Label string `json:"label" validate:"required,max=200"`
	Value string `json:"value" validate:"omitempty,max=100"`
}

type CreateSurveyQuestionRequest struct {
	Prompt        string                      `json:"prompt" validate:"required,max=500"`
	Type          string                      `json:"type" validate:"required,oneof=text single checkbox rating"`
	Required      bool                        `json:"required"`
	MaxSelections *int                        `json:"max_selections,omitempty" validate:"omitempty,gte=1"`
	Options       []CreateSurveyOptionRequest `json:"options" validate:"max=50,dive"`
}

type CreateSurveySectionRequest struct {
	Title     string                        `json:"title" validate:"max=200"`
	Questions []CreateSurveyQuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

type CreateSurveyRequest struct {
	Title       string                       `json:"title" validate:"required,max=200"`
	Description string                       `json:"description" validate:"max=2000"`
	Slug        string                       `json:"slug,omitempty" validate:"omitempty,max=64"`
	Sections    []CreateSurveySectionRequest `json:"sections" validate:"required,min=1,max=20,dive"`
}

// SurveyAnswerRequest carries one answer; which field is used depends on the question type
type SurveyAnswerRequest struct {
	QuestionID string   `json:"question_id" validate:"required"`
	Text       *string  `json:"text,omitempty"`
	Rating     *int     `json:"rating,omitempty"`
	OptionIDs  []string `json:"option_ids,omitempty" validate:"omitempty,dive,required"`
}

type SubmitSurveyResponseRequest struct {
	Answers []SurveyAnswerRequest `json:"answers" validate:"required,dive"`
}

// Response types

type CreateSurveyResponse struct {
	SurveyID string `json:"survey_id"`
	Slug     string `json:"slug"`
	AdminKey string `json:"admin_key"`
}

type SubmitSurveyResponseResponse struct {
	ResponseID string `json:"response_id"`
	Replaced   bool   `json:"replaced"`
}

// Domain types

type Survey struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

type SurveySection struct {
	ID        string           `json:"id"`
	Position  int              `json:"position"`
	Title     string           `json:"title"`
	Questions []SurveyQuestion `json:"questions"`
}

type SurveyQuestion struct {
	ID            string         `json:"id"`
	SectionID     string         `json:"section_id"`
	Position      int            `json:"position"`
	Prompt        string         `json:"prompt"`
	Type          string         `json:"type"`
	Required      bool           `json:"required"`
	MaxSelections *int           `json:"max_selections,omitempty"`
	Options       []SurveyOption `json:"options"`
}

type SurveyOption struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Label    string `json:"label"`
	Value    string `json:"value"`
}

type SurveyWithSections struct {
	Survey   Survey          `json:"survey"`
	Sections []SurveySection `json:"sections"`
}

// Aggregation types

type SurveyQuestionResult struct {
	QuestionID    string         `json:"question_id"`
	Prompt        string         `json:"prompt"`
	Type          string         `json:"type"`
	ResponseCount int            `json:"response_count"`
	Options       []OptionResult `json:"options,omitempty"`
	AverageRating *float64       `json:"average_rating,omitempty"`
	Distribution  map[int]int    `json:"distribution,omitempty"`
	TextAnswers   []string       `json:"text_answers,omitempty"`
}

type SurveyResults struct {
	SurveyID       string                 `json:"survey_id"`
	IsActive       bool                   `json:"is_active"`
	TotalResponses int                    `json:"total_responses"`
	Questions      []SurveyQuestionResult `json:"questions"`
}
