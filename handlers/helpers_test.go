// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/realtime"
	"github.com/danielhkuo/livepoll/session"
	"github.com/danielhkuo/livepoll/survey"
	"github.com/danielhkuo/livepoll/testutil"
	"github.com/danielhkuo/livepoll/voting"
)

const testJWTSecret = "test-jwt-secret"

// recordingNotifier keeps every published event
type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) Publish(e realtime.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Events() []realtime.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]realtime.Event(nil), n.events...)
}

type testEnv struct {
	db       *sql.DB
	cfg      cliparse.Config
	notifier *recordingNotifier

	polls    *PollHandler
	voting   *VotingHandler
	results  *ResultsHandler
	sessions *SessionHandler
	surveys  *SurveyHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.JWTSecret = testJWTSecret

	notifier := &recordingNotifier{}
	pollSvc := voting.NewService(db, testutil.Dialect)
	surveySvc := survey.NewService(db, testutil.Dialect, cfg.AdminKeySalt)
	resolver := session.NewResolver(cfg.SecureCookies(), cfg.JWTSecret)

	return &testEnv{
		db:       db,
		cfg:      cfg,
		notifier: notifier,
		polls:    NewPollHandler(pollSvc, cfg, notifier),
		voting:   NewVotingHandler(pollSvc, resolver, notifier),
		results:  NewResultsHandler(pollSvc, cfg),
		sessions: NewSessionHandler(pollSvc, resolver),
		surveys:  NewSurveyHandler(surveySvc, resolver, cfg, notifier),
	}
}

// serve runs h on req with the given path values, as the mux would
func serve(h http.HandlerFunc, req *http.Request, pathValues ...string) *httptest.ResponseRecorder {
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// sessionCookie returns the session cookie set by a response, or nil
func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func withCookie(req *http.Request, c *http.Cookie) *http.Request {
	if c != nil {
		req.AddCookie(c)
	}
	return req
}
