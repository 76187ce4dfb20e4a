// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Question type constants
const (
	QuestionSingle   = "single"
	QuestionMultiple = "multiple"
)

// Survey question type constants
const (
	SurveyText     = "text"
	SurveySingle   = "single"
	SurveyCheckbox = "checkbox"
	SurveyRating   = "rating"
)

// Rating bounds for survey rating questions
const (
	RatingMin = 1
	RatingMax = 5
)

// Realtime event types
const (
	EventVotesChanged     = "votes.changed"
	EventPollClosed       = "poll.closed"
	EventResponsesChanged = "responses.changed"
	EventSurveyClosed     = "survey.closed"
)

// Result is the envelope every API response uses.
// Exactly one of Data or Error is set.
type Result struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

// Request types

type PollSettings struct {
	AllowMultiple bool `json:"allow_multiple"`
	ShowResults   bool `json:"show_results"`
	ResultsDelay  int  `json:"results_delay" validate:"gte=0,lte=86400"`
}

type CreateOptionRequest struct {
	Label string  `json:"label" validate:"required,max=200"`
	Value string  `json:"value" validate:"omitempty,max=100"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Emoji *string `json:"emoji,omitempty" validate:"omitempty,max=16"`
}

type CreateQuestionRequest struct {
	Prompt        string                `json:"prompt" validate:"required,max=500"`
	Type          string                `json:"type" validate:"required,oneof=single multiple"`
	MaxSelections *int                  `json:"max_selections,omitempty" validate:"omitempty,gte=1"`
	Options       []CreateOptionRequest `json:"options" validate:"required,min=2,max=50,dive"`
}

type CreatePollRequest struct {
	Title       string                  `json:"title" validate:"required,max=200"`
	Description string                  `json:"description" validate:"max=2000"`
	Code        string                  `json:"code,omitempty" validate:"omitempty,alphanum,min=4,max=12"`
	Settings    *PollSettings           `json:"settings,omitempty"`
	Questions   []CreateQuestionRequest `json:"questions" validate:"required,min=1,max=50,dive"`
}

// OptionIDs accepts either a single string or an array of strings
type OptionIDs []string

func (o *OptionIDs) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*o = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*o = OptionIDs{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("option_ids must be a string or an array of strings")
	}
	*o = many
	return nil
}

// SubmitVoteRequest leaves selection rules to the vote writer so its
// ordered checks decide which error a bad submission gets.
type SubmitVoteRequest struct {
	QuestionID string    `json:"question_id"`
	OptionIDs  OptionIDs `json:"option_ids" validate:"max=100"`
}

// Response types

type CreatePollResponse struct {
	PollID   string `json:"poll_id"`
	Code     string `json:"code"`
	AdminKey string `json:"admin_key"`
}

type ClosePollResponse struct {
	Poll     Poll           `json:"poll"`
	Snapshot ResultSnapshot `json:"snapshot"`
}

// Domain types

type Poll struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	IsActive    bool         `json:"is_active"`
	Settings    PollSettings `json:"settings"`
	CreatedAt   time.Time    `json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
}

type Question struct {
	ID            string   `json:"id"`
	PollID        string   `json:"poll_id"`
	Position      int      `json:"position"`
	Prompt        string   `json:"prompt"`
	Type          string   `json:"type"`
	MaxSelections *int     `json:"max_selections,omitempty"`
	Options       []Option `json:"options"`
}

type Option struct {
	ID         string  `json:"id"`
	QuestionID string  `json:"question_id"`
	Position   int     `json:"position"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Color      *string `json:"color,omitempty"`
	Emoji      *string `json:"emoji,omitempty"`
}

type PollWithQuestions struct {
	Poll      Poll       `json:"poll"`
	Questions []Question `json:"questions"`
}

type Vote struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id"`
	OptionID   string    `json:"option_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Aggregation types

type OptionResult struct {
	OptionID   string  `json:"option_id"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Color      *string `json:"color,omitempty"`
	Emoji      *string `json:"emoji,omitempty"`
	VoteCount  int     `json:"vote_count"`
	Percentage int     `json:"percentage"`
}

type QuestionResult struct {
	QuestionID string         `json:"question_id"`
	Prompt     string         `json:"prompt"`
	Type       string         `json:"type"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
}

// PollResults counts vote rows, not voters: a voter picking three options
// of a multiple-choice question adds three to TotalVotes.
type PollResults struct {
	PollID     string           `json:"poll_id"`
	IsActive   bool             `json:"is_active"`
	TotalVotes int              `json:"total_votes"`
	Questions  []QuestionResult `json:"questions"`
}

// UserVotes maps question_id to the option_ids this session selected
type UserVotes map[string][]string

type ResultSnapshot struct {
	ID         string      `json:"id"`
	PollID     string      `json:"poll_id"`
	ComputedAt time.Time   `json:"computed_at"`
	Results    PollResults `json:"results"`
}

// SessionPollSummary is one entry of a session's voting history
type SessionPollSummary struct {
	PollID         string    `json:"poll_id"`
	Code           string    `json:"code"`
	Title          string    `json:"title"`
	IsActive       bool      `json:"is_active"`
	VoteCount      int       `json:"vote_count"`
	LastVotedAt    time.Time `json:"last_voted_at"`
	LastVotedHuman string    `json:"last_voted_human"`
}

type SessionPollsResponse struct {
	Polls []SessionPollSummary `json:"polls"`
}
