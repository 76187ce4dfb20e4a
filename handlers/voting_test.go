// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/session"
	"github.com/danielhkuo/livepoll/testutil"
)

type votePoll struct {
	id                string
	single, multi     string
	yes, no           string
	red, green, blue  string
	closedID, closedQ string
	closedOpt         string
}

func setupVotePoll(t *testing.T, env *testEnv) votePoll {
	t.Helper()
	var p votePoll
	p.id, _ = testutil.CreateTestPoll(t, env.db, env.cfg, testutil.PollOptions{ShowResults: true})
	p.single = testutil.AddTestQuestion(t, env.db, p.id, models.QuestionSingle, 0, 0)
	p.yes = testutil.AddTestOption(t, env.db, p.single, "Yes", 0)
	p.no = testutil.AddTestOption(t, env.db, p.single, "No", 1)
	p.multi = testutil.AddTestQuestion(t, env.db, p.id, models.QuestionMultiple, 1, 2)
	p.red = testutil.AddTestOption(t, env.db, p.multi, "Red", 0)
	p.green = testutil.AddTestOption(t, env.db, p.multi, "Green", 1)
	p.blue = testutil.AddTestOption(t, env.db, p.multi, "Blue", 2)

	p.closedID, _ = testutil.CreateTestPoll(t, env.db, env.cfg, testutil.PollOptions{Closed: true})
	p.closedQ = testutil.AddTestQuestion(t, env.db, p.closedID, models.QuestionSingle, 0, 0)
	p.closedOpt = testutil.AddTestOption(t, env.db, p.closedQ, "Late", 0)
	return p
}

func voteRequest(pollID string, body interface{}) *http.Request {
	return testutil.MakeRequest("POST", "/polls/"+pollID+"/votes", body, nil)
}

func TestSubmitVote(t *testing.T) {
	env := newTestEnv(t)
	p := setupVotePoll(t, env)

	// option_ids as a bare string
	body := map[string]interface{}{"question_id": p.single, "option_ids": p.yes}
	w := serve(env.voting.SubmitVote, voteRequest(p.id, body), "id", p.id)
	testutil.AssertStatus(t, w, http.StatusCreated)

	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("First vote should issue a session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("Session cookie should be HttpOnly")
	}

	var votes []models.Vote
	testutil.DecodeData(t, w, &votes)
	if len(votes) != 1 || votes[0].OptionID != p.yes {
		t.Errorf("Unexpected votes: %+v", votes)
	}

	events := env.notifier.Events()
	if len(events) != 1 || events[0].Type != models.EventVotesChanged || events[0].Channel != "poll:"+p.id {
		t.Errorf("Unexpected events: %+v", events)
	}

	// Same cookie, different choice: replaced, no new cookie
	body = map[string]interface{}{"question_id": p.single, "option_ids": []string{p.no}}
	w = serve(env.voting.SubmitVote, withCookie(voteRequest(p.id, body), cookie), "id", p.id)
	testutil.AssertStatus(t, w, http.StatusCreated)
	if sessionCookie(w) != nil {
		t.Error("Known session should not get a new cookie")
	}

	if n := testutil.CountVotes(t, env.db, p.single, ""); n != 1 {
		t.Errorf("Expected 1 vote after replacement, got %d", n)
	}
	if n := testutil.CountVotes(t, env.db, p.single, p.no); n != 1 {
		t.Errorf("Expected the vote to move to No, got %d", n)
	}
}

func TestSubmitVote_Errors(t *testing.T) {
	env := newTestEnv(t)
	p := setupVotePoll(t, env)

	testCases := []struct {
		name       string
		pollID     string
		questionID string
		optionIDs  []string
		wantStatus int
		wantMsg    string
	}{
		{"closed poll", p.closedID, p.closedQ, []string{p.closedOpt}, http.StatusNotFound, "Poll not found or inactive"},
		{"unknown poll", "missing", p.single, []string{p.yes}, http.StatusNotFound, "Poll not found or inactive"},
		{"unknown question", p.id, "missing", []string{p.yes}, http.StatusNotFound, "Question not found"},
		{"single with two", p.id, p.single, []string{p.yes, p.no}, http.StatusBadRequest, "Single-choice questions take exactly one option"},
		{"over max selections", p.id, p.multi, []string{p.red, p.green, p.blue}, http.StatusBadRequest, "Too many options selected"},
		{"empty multi", p.id, p.multi, []string{}, http.StatusBadRequest, "Select at least one option"},
		{"option of other question", p.id, p.single, []string{p.red}, http.StatusNotFound, "Option not found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body := models.SubmitVoteRequest{QuestionID: tc.questionID, OptionIDs: tc.optionIDs}
			w := serve(env.voting.SubmitVote, voteRequest(tc.pollID, body), "id", tc.pollID)
			testutil.AssertStatus(t, w, tc.wantStatus)
			if msg := testutil.DecodeError(t, w); msg != tc.wantMsg {
				t.Errorf("Expected %q, got %q", tc.wantMsg, msg)
			}
		})
	}

	t.Run("null option_ids", func(t *testing.T) {
		nullCases := []struct {
			questionID string
			wantMsg    string
		}{
			{p.single, "Single-choice questions take exactly one option"},
			{p.multi, "Select at least one option"},
		}
		for _, tc := range nullCases {
			body := strings.NewReader(`{"question_id":"` + tc.questionID + `","option_ids":null}`)
			req := httptest.NewRequest("POST", "/polls/"+p.id+"/votes", body)
			w := serve(env.voting.SubmitVote, req, "id", p.id)
			testutil.AssertStatus(t, w, http.StatusBadRequest)
			if msg := testutil.DecodeError(t, w); msg != tc.wantMsg {
				t.Errorf("Expected %q, got %q", tc.wantMsg, msg)
			}
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/polls/"+p.id+"/votes", strings.NewReader(`{"option_ids": 5}`))
		w := serve(env.voting.SubmitVote, req, "id", p.id)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	if len(env.notifier.Events()) != 0 {
		t.Errorf("Failed votes should not publish events: %+v", env.notifier.Events())
	}
	var votes int
	env.db.QueryRow(`SELECT COUNT(*) FROM vote`).Scan(&votes)
	if votes != 0 {
		t.Errorf("Failed votes wrote %d rows", votes)
	}
}

func TestSubmitVote_BearerIdentity(t *testing.T) {
	env := newTestEnv(t)
	p := setupVotePoll(t, env)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatal(err)
	}
	headers := map[string]string{"Authorization": "Bearer " + signed}

	// Two requests without cookies, same user: the second replaces the first
	for _, opt := range []string{p.yes, p.no} {
		body := models.SubmitVoteRequest{QuestionID: p.single, OptionIDs: []string{opt}}
		req := testutil.MakeRequest("POST", "/polls/"+p.id+"/votes", body, headers)
		w := serve(env.voting.SubmitVote, req, "id", p.id)
		testutil.AssertStatus(t, w, http.StatusCreated)
		if sessionCookie(w) != nil {
			t.Error("Authenticated voters should not get a session cookie")
		}
	}

	if n := testutil.CountVotes(t, env.db, p.single, ""); n != 1 {
		t.Errorf("Expected one vote for the user, got %d", n)
	}

	req := testutil.MakeRequest("GET", "/polls/"+p.id+"/my-votes", nil, headers)
	w := serve(env.voting.GetMyVotes, req, "id", p.id)
	var mine models.UserVotes
	testutil.DecodeData(t, w, &mine)
	if got := mine[p.single]; len(got) != 1 || got[0] != p.no {
		t.Errorf("Expected my vote to be No, got %v", mine)
	}
}

func TestSubmitVote_ForgedUserCookie(t *testing.T) {
	env := newTestEnv(t)
	p := setupVotePoll(t, env)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatal(err)
	}
	aliceHeaders := map[string]string{"Authorization": "Bearer " + signed}

	body := models.SubmitVoteRequest{QuestionID: p.single, OptionIDs: []string{p.yes}}
	req := testutil.MakeRequest("POST", "/polls/"+p.id+"/votes", body, aliceHeaders)
	w := serve(env.voting.SubmitVote, req, "id", p.id)
	testutil.AssertStatus(t, w, http.StatusCreated)

	forged := &http.Cookie{Name: session.CookieName, Value: "user:alice"}

	// Reading with the forged cookie sees nothing of alice's
	w = serve(env.voting.GetMyVotes, withCookie(httptest.NewRequest("GET", "/polls/"+p.id+"/my-votes", nil), forged), "id", p.id)
	testutil.AssertStatus(t, w, http.StatusOK)
	var seen models.UserVotes
	testutil.DecodeData(t, w, &seen)
	if len(seen) != 0 {
		t.Errorf("Forged cookie read alice's votes: %v", seen)
	}

	// Voting with it creates a separate anonymous session
	body.OptionIDs = []string{p.no}
	w = serve(env.voting.SubmitVote, withCookie(voteRequest(p.id, body), forged), "id", p.id)
	testutil.AssertStatus(t, w, http.StatusCreated)
	if c := sessionCookie(w); c == nil || c.Value == forged.Value {
		t.Errorf("Expected a fresh session cookie, got %v", c)
	}

	if n := testutil.CountVotes(t, env.db, p.single, p.yes); n != 1 {
		t.Errorf("alice's Yes vote = %d, want 1", n)
	}
	if n := testutil.CountVotes(t, env.db, p.single, p.no); n != 1 {
		t.Errorf("No votes = %d, want 1", n)
	}
	var sessions int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM poll_session WHERE poll_id = $1`, p.id).Scan(&sessions); err != nil {
		t.Fatal(err)
	}
	if sessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", sessions)
	}
}

func TestGetMyVotes(t *testing.T) {
	env := newTestEnv(t)
	p := setupVotePoll(t, env)

	t.Run("new visitor", func(t *testing.T) {
		w := serve(env.voting.GetMyVotes, httptest.NewRequest("GET", "/polls/"+p.id+"/my-votes", nil), "id", p.id)
		testutil.AssertStatus(t, w, http.StatusOK)
		if sessionCookie(w) != nil {
			t.Error("Reading votes should not issue a cookie")
		}
		if body := strings.TrimSpace(w.Body.String()); body != `{"data":{},"error":null}` {
			t.Errorf("Expected empty map, got %s", body)
		}
	})

	t.Run("after voting", func(t *testing.T) {
		body := models.SubmitVoteRequest{QuestionID: p.multi, OptionIDs: []string{p.blue, p.red}}
		w := serve(env.voting.SubmitVote, voteRequest(p.id, body), "id", p.id)
		testutil.AssertStatus(t, w, http.StatusCreated)
		cookie := sessionCookie(w)

		req := withCookie(httptest.NewRequest("GET", "/polls/"+p.id+"/my-votes", nil), cookie)
		w = serve(env.voting.GetMyVotes, req, "id", p.id)
		testutil.AssertStatus(t, w, http.StatusOK)

		var mine models.UserVotes
		testutil.DecodeData(t, w, &mine)
		if got := mine[p.multi]; len(got) != 2 || got[0] != p.red || got[1] != p.blue {
			t.Errorf("Unexpected votes: %v", mine)
		}
		if _, ok := mine[p.single]; ok {
			t.Error("Unanswered question should be absent")
		}
	})
}
