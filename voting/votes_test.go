// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestSubmitVote_Preconditions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, cfg, testutil.PollOptions{})
	single := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	s1 := testutil.AddTestOption(t, db, single, "Yes", 0)
	s2 := testutil.AddTestOption(t, db, single, "No", 1)

	multi := testutil.AddTestQuestion(t, db, pollID, models.QuestionMultiple, 1, 2)
	m1 := testutil.AddTestOption(t, db, multi, "A", 0)
	m2 := testutil.AddTestOption(t, db, multi, "B", 1)
	m3 := testutil.AddTestOption(t, db, multi, "C", 2)

	closedID, _ := testutil.CreateTestPoll(t, db, cfg, testutil.PollOptions{Closed: true})
	closedQ := testutil.AddTestQuestion(t, db, closedID, models.QuestionSingle, 0, 0)
	closedOpt := testutil.AddTestOption(t, db, closedQ, "Late", 0)

	otherPoll, _ := testutil.CreateTestPoll(t, db, cfg, testutil.PollOptions{})
	foreignQ := testutil.AddTestQuestion(t, db, otherPoll, models.QuestionSingle, 0, 0)
	foreignOpt := testutil.AddTestOption(t, db, foreignQ, "Elsewhere", 0)

	tests := []struct {
		name       string
		pollID     string
		questionID string
		optionIDs  []string
		wantErr    error
		wantClass  error
	}{
		{"unknown poll", "missing", single, []string{s1}, ErrPollInactiveOrNotFound, apperr.ErrNotFound},
		{"closed poll", closedID, closedQ, []string{closedOpt}, ErrPollInactiveOrNotFound, apperr.ErrNotFound},
		{"question from another poll", pollID, foreignQ, []string{foreignOpt}, ErrQuestionNotFound, apperr.ErrNotFound},
		{"single with two options", pollID, single, []string{s1, s2}, ErrTooManyOptions, apperr.ErrValidation},
		{"single with none", pollID, single, []string{}, ErrTooManyOptions, apperr.ErrValidation},
		{"multi over cap", pollID, multi, []string{m1, m2, m3}, ErrMaxSelectionsExceeded, apperr.ErrValidation},
		{"multi empty", pollID, multi, nil, ErrNoOptions, apperr.ErrValidation},
		{"option from another question", pollID, single, []string{m1}, ErrOptionNotFound, apperr.ErrNotFound},
		// inactive wins over every later check
		{"closed poll with bad selection", closedID, "missing", []string{"x", "y"}, ErrPollInactiveOrNotFound, apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := svc.SubmitVote(ctx, tt.pollID, tt.questionID, "session-1", tt.optionIDs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SubmitVote() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, tt.wantClass) {
				t.Errorf("SubmitVote() error class mismatch: %v", err)
			}
			if rows != nil {
				t.Errorf("Expected no rows on failure, got %d", len(rows))
			}
		})
	}

	// Nothing may have been written by the failures above
	var sessions, votes int
	db.QueryRow(`SELECT COUNT(*) FROM poll_session`).Scan(&sessions)
	db.QueryRow(`SELECT COUNT(*) FROM vote`).Scan(&votes)
	if sessions != 0 || votes != 0 {
		t.Errorf("Failed submissions wrote %d sessions and %d votes", sessions, votes)
	}
}

func TestSubmitVote_MaxSelectionCap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{})
	q := testutil.AddTestQuestion(t, db, pollID, models.QuestionMultiple, 0, 2)
	a := testutil.AddTestOption(t, db, q, "A", 0)
	b := testutil.AddTestOption(t, db, q, "B", 1)
	c := testutil.AddTestOption(t, db, q, "C", 2)

	if _, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a, b, c}); !errors.Is(err, ErrMaxSelectionsExceeded) {
		t.Fatalf("Expected ErrMaxSelectionsExceeded, got %v", err)
	}
	if n := testutil.CountVotes(t, db, q, ""); n != 0 {
		t.Fatalf("Expected no votes after rejected submission, got %d", n)
	}

	rows, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a, b})
	if err != nil {
		t.Fatalf("SubmitVote() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 inserted rows, got %d", len(rows))
	}
	if n := testutil.CountVotes(t, db, q, ""); n != 2 {
		t.Errorf("Expected 2 votes, got %d", n)
	}
}

func TestSubmitVote_DuplicateIDsCollapse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{})
	q := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	a := testutil.AddTestOption(t, db, q, "A", 0)
	testutil.AddTestOption(t, db, q, "B", 1)

	rows, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a, a})
	if err != nil {
		t.Fatalf("SubmitVote() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(rows))
	}
}

func TestSubmitVote_IdempotentResubmission(t *testing.T) {
	for _, allowMultiple := range []bool{false, true} {
		name := "replace"
		if allowMultiple {
			name = "accumulate"
		}
		t.Run(name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			svc := NewService(db, testutil.Dialect)
			ctx := context.Background()

			pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{AllowMultiple: allowMultiple})
			q := testutil.AddTestQuestion(t, db, pollID, models.QuestionMultiple, 0, 0)
			a := testutil.AddTestOption(t, db, q, "A", 0)
			b := testutil.AddTestOption(t, db, q, "B", 1)

			for i := 0; i < 2; i++ {
				if _, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a, b}); err != nil {
					t.Fatalf("submission %d: %v", i+1, err)
				}
			}

			if n := testutil.CountVotes(t, db, q, ""); n != 2 {
				t.Errorf("Expected 2 vote rows after resubmission, got %d", n)
			}
			if n := testutil.CountVotes(t, db, q, a); n != 1 {
				t.Errorf("Expected 1 row for A, got %d", n)
			}

			var sessions int
			db.QueryRow(`SELECT COUNT(*) FROM poll_session WHERE poll_id = $1`, pollID).Scan(&sessions)
			if sessions != 1 {
				t.Errorf("Expected 1 session row, got %d", sessions)
			}
		})
	}
}

func TestSubmitVote_ResubmitSameChoiceWithAllowMultipleIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{AllowMultiple: true})
	q := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	a := testutil.AddTestOption(t, db, q, "A", 0)

	if _, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a}); err != nil {
		t.Fatal(err)
	}
	rows, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a})
	if err != nil {
		t.Fatalf("Resubmission should not error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no inserted rows on identical resubmission, got %d", len(rows))
	}
}

func TestSubmitVote_ReplacementSemantics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{})
	q := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	a := testutil.AddTestOption(t, db, q, "A", 0)
	b := testutil.AddTestOption(t, db, q, "B", 1)

	if _, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{a}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{b}); err != nil {
		t.Fatal(err)
	}

	if n := testutil.CountVotes(t, db, q, ""); n != 1 {
		t.Errorf("Expected exactly 1 vote row, got %d", n)
	}
	if n := testutil.CountVotes(t, db, q, a); n != 0 {
		t.Errorf("Expected 0 votes for A, got %d", n)
	}
	if n := testutil.CountVotes(t, db, q, b); n != 1 {
		t.Errorf("Expected 1 vote for B, got %d", n)
	}
}

func TestSubmitVote_AllowMultipleKeepsEarlierVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{AllowMultiple: true})
	q := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	a := testutil.AddTestOption(t, db, q, "A", 0)
	b := testutil.AddTestOption(t, db, q, "B", 1)

	svc.SubmitVote(ctx, pollID, q, "s1", []string{a})
	if _, err := svc.SubmitVote(ctx, pollID, q, "s1", []string{b}); err != nil {
		t.Fatal(err)
	}

	// allow_multiple governs replacement, not per-submission selection count
	if n := testutil.CountVotes(t, db, q, ""); n != 2 {
		t.Errorf("Expected both votes to persist, got %d rows", n)
	}
}

func TestSubmitVote_ConcurrentSameSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{})
	q := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	opts := []string{
		testutil.AddTestOption(t, db, q, "A", 0),
		testutil.AddTestOption(t, db, q, "B", 1),
		testutil.AddTestOption(t, db, q, "C", 2),
	}

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SubmitVote(ctx, pollID, q, "same-session", []string{opts[i%3]})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent submission failed: %v", err)
		}
	}

	if n := testutil.CountVotes(t, db, q, ""); n != 1 {
		t.Errorf("Expected exactly one surviving vote, got %d", n)
	}
}

func TestGetUserVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()

	pollID, _ := testutil.CreateTestPoll(t, db, testutil.GetTestConfig(), testutil.PollOptions{})
	q1 := testutil.AddTestQuestion(t, db, pollID, models.QuestionSingle, 0, 0)
	a := testutil.AddTestOption(t, db, q1, "A", 0)
	testutil.AddTestOption(t, db, q1, "B", 1)
	q2 := testutil.AddTestQuestion(t, db, pollID, models.QuestionMultiple, 1, 0)
	x := testutil.AddTestOption(t, db, q2, "X", 0)
	y := testutil.AddTestOption(t, db, q2, "Y", 1)

	if _, err := svc.SubmitVote(ctx, pollID, q1, "voter", []string{a}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitVote(ctx, pollID, q2, "voter", []string{y, x}); err != nil {
		t.Fatal(err)
	}

	votes, err := svc.GetUserVotes(ctx, pollID, "voter")
	if err != nil {
		t.Fatalf("GetUserVotes() error = %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(votes))
	}
	if got := votes[q1]; len(got) != 1 || got[0] != a {
		t.Errorf("Unexpected votes for q1: %v", got)
	}
	// option order follows display order
	if got := votes[q2]; len(got) != 2 || got[0] != x || got[1] != y {
		t.Errorf("Unexpected votes for q2: %v", got)
	}

	t.Run("never voted", func(t *testing.T) {
		votes, err := svc.GetUserVotes(ctx, pollID, "stranger")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if votes == nil || len(votes) != 0 {
			t.Errorf("Expected empty map, got %v", votes)
		}
	})

	t.Run("no token", func(t *testing.T) {
		votes, err := svc.GetUserVotes(ctx, pollID, "")
		if err != nil || len(votes) != 0 {
			t.Errorf("Expected empty map, got %v (err %v)", votes, err)
		}
	})
}

func TestListSessionPolls(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, testutil.Dialect)
	ctx := context.Background()
	cfg := testutil.GetTestConfig()

	p1, _ := testutil.CreateTestPoll(t, db, cfg, testutil.PollOptions{Code: "AAAAAA"})
	q1 := testutil.AddTestQuestion(t, db, p1, models.QuestionMultiple, 0, 0)
	o1 := testutil.AddTestOption(t, db, q1, "A", 0)
	o2 := testutil.AddTestOption(t, db, q1, "B", 1)

	p2, _ := testutil.CreateTestPoll(t, db, cfg, testutil.PollOptions{Code: "BBBBBB"})
	q2 := testutil.AddTestQuestion(t, db, p2, models.QuestionSingle, 0, 0)
	o3 := testutil.AddTestOption(t, db, q2, "C", 0)

	if _, err := svc.SubmitVote(ctx, p1, q1, "me", []string{o1, o2}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitVote(ctx, p2, q2, "me", []string{o3}); err != nil {
		t.Fatal(err)
	}

	polls, err := svc.ListSessionPolls(ctx, "me")
	if err != nil {
		t.Fatalf("ListSessionPolls() error = %v", err)
	}
	if len(polls) != 2 {
		t.Fatalf("Expected 2 polls, got %d", len(polls))
	}

	byID := map[string]models.SessionPollSummary{}
	for _, p := range polls {
		byID[p.PollID] = p
		if p.LastVotedHuman == "" {
			t.Errorf("Expected humanized last_voted for %s", p.PollID)
		}
	}
	if byID[p1].VoteCount != 2 || byID[p1].Code != "AAAAAA" {
		t.Errorf("Unexpected summary for p1: %+v", byID[p1])
	}
	if byID[p2].VoteCount != 1 {
		t.Errorf("Unexpected summary for p2: %+v", byID[p2])
	}

	empty, err := svc.ListSessionPolls(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty history, got %v (err %v)", empty, err)
	}
}
