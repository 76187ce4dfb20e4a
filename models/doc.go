// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Envelope

Every JSON response except /health is wrapped in Result:

	{"data": {...}, "error": null}
	{"data": null, "error": "Poll not found or inactive"}

# Request Types

Types for parsing incoming JSON, validated with go-playground/validator tags:

  - CreatePollRequest: title, description, optional code, settings, questions
  - SubmitVoteRequest: question_id, option_ids (string or array)
  - CreateSurveyRequest: title, description, optional slug, sections
  - SubmitSurveyResponseRequest: answers

# Domain Types

  - Poll, Question, Option: the ballot definition
  - Vote: one selected option of one session
  - PollResults, QuestionResult, OptionResult: on-read aggregation
  - UserVotes: question_id -> option_ids for the current session
  - ResultSnapshot: results frozen when a poll closes
  - Survey, SurveySection, SurveyQuestion, SurveyOption, SurveyResults

# Constants

Question types:

	QuestionSingle   = "single"
	QuestionMultiple = "multiple"

Survey question types:

	SurveyText     = "text"
	SurveySingle   = "single"
	SurveyCheckbox = "checkbox"
	SurveyRating   = "rating"

Realtime events:

	EventVotesChanged     = "votes.changed"
	EventPollClosed       = "poll.closed"
	EventResponsesChanged = "responses.changed"
	EventSurveyClosed     = "survey.closed"
*/
package models
