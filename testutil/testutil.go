// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

// Dialect is the database type SetupTestDB opens
const Dialect = db.SQLite

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// It is closed automatically when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Open(ctx, db.SQLite, "file:"+auth.NewID()+"?mode=memory")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "file::memory:",
		DatabaseType: cliparse.DatabaseSQLite,
		AdminKeySalt: "test-admin-salt",
		Env:          cliparse.EnvDevelopment,
	}
}

// PollOptions configures CreateTestPoll
type PollOptions struct {
	Code          string
	AllowMultiple bool
	ShowResults   bool
	Closed        bool
}

// CreateTestPoll inserts a poll and returns its ID and admin key
func CreateTestPoll(t *testing.T, conn *sql.DB, cfg cliparse.Config, opts PollOptions) (pollID, adminKey string) {
	t.Helper()

	pollID = auth.NewID()
	adminKey = auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	code := opts.Code
	if code == "" {
		code, _ = auth.GeneratePollCode(6)
	}

	var closedAt *time.Time
	if opts.Closed {
		now := time.Now().UTC()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO poll (id, code, title, description, is_active, allow_multiple,
			show_results, results_delay, created_at, closed_at)
		VALUES ($1, $2, 'Test Poll', 'A test poll', $3, $4, $5, 0, $6, $7)
	`, pollID, code, !opts.Closed, opts.AllowMultiple, opts.ShowResults, time.Now().UTC(), closedAt)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID, adminKey
}

// AddTestQuestion adds a question to a poll and returns its ID.
// maxSelections of 0 means no cap.
func AddTestQuestion(t *testing.T, conn *sql.DB, pollID, questionType string, position, maxSelections int) string {
	t.Helper()

	var maxSel *int
	if maxSelections > 0 {
		maxSel = &maxSelections
	}

	questionID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO question (id, poll_id, position, prompt, type, max_selections)
		VALUES ($1, $2, $3, 'Test question?', $4, $5)
	`, questionID, pollID, position, questionType, maxSel)
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	return questionID
}

// AddTestOption adds an option to a question and returns its ID
func AddTestOption(t *testing.T, conn *sql.DB, questionID, label string, position int) string {
	t.Helper()

	optionID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO option (id, question_id, position, label, value)
		VALUES ($1, $2, $3, $4, $5)
	`, optionID, questionID, position, label, auth.Slugify(label))
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// CastTestVote writes vote rows directly, bypassing validation
func CastTestVote(t *testing.T, conn *sql.DB, pollID, questionID, sessionToken string, optionIDs ...string) {
	t.Helper()

	now := time.Now().UTC()
	var sessionID string
	err := conn.QueryRow(`
		INSERT INTO poll_session (id, poll_id, session_token, created_at, last_voted_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (poll_id, session_token)
		DO UPDATE SET last_voted_at = excluded.last_voted_at
		RETURNING id
	`, auth.NewID(), pollID, sessionToken, now).Scan(&sessionID)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	for _, optionID := range optionIDs {
		_, err := conn.Exec(`
			INSERT INTO vote (id, session_id, question_id, option_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, auth.NewID(), sessionID, questionID, optionID, now)
		if err != nil {
			t.Fatalf("Failed to create test vote: %v", err)
		}
	}
}

// CountVotes returns the number of vote rows for a question, optionally
// restricted to one option
func CountVotes(t *testing.T, conn *sql.DB, questionID, optionID string) int {
	t.Helper()

	var n int
	var err error
	if optionID == "" {
		err = conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE question_id = $1`, questionID).Scan(&n)
	} else {
		err = conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE question_id = $1 AND option_id = $2`, questionID, optionID).Scan(&n)
	}
	if err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeData unwraps the result envelope into v and fails if it carries an error
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *string         `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if env.Error != nil {
		t.Fatalf("Unexpected error in response: %s", *env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

// DecodeError returns the error message of an envelope and fails if data is set
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var env models.Result
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if env.Data != nil {
		t.Errorf("Expected null data alongside error, got %v", env.Data)
	}
	if env.Error == nil {
		t.Fatal("Expected error in response")
	}
	return *env.Error
}
