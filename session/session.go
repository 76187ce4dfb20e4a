// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/livepoll/auth"
)

// CookieName is the cookie holding the anonymous session token
const CookieName = "lp_session"

// MaxAge is how long a session cookie lives
const MaxAge = 30 * 24 * time.Hour

// userPrefix keeps signed-in identities from colliding with cookie tokens
const userPrefix = "user:"

type Resolver struct {
	secure    bool
	jwtSecret string
}

func NewResolver(secure bool, jwtSecret string) *Resolver {
	return &Resolver{secure: secure, jwtSecret: jwtSecret}
}

// GetOrCreateSessionToken returns the caller's voter identity.
//
// A valid bearer token wins and yields "user:<subject>". Otherwise the
// session cookie is reused, or a new random token is issued and set on w.
// A malformed cookie is replaced.
func (res *Resolver) GetOrCreateSessionToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if token, ok := res.userIdentity(r); ok {
		return token, nil
	}

	if token, ok := cookieToken(r); ok {
		return token, nil
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(MaxAge.Seconds()),
		Expires:  time.Now().Add(MaxAge),
		HttpOnly: true,
		Secure:   res.secure,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Debug("session token issued")

	return token, nil
}

// PeekSessionToken returns the caller's identity without issuing a cookie.
// ok is false for a first-time visitor.
func (res *Resolver) PeekSessionToken(r *http.Request) (token string, ok bool) {
	if token, ok := res.userIdentity(r); ok {
		return token, true
	}
	return cookieToken(r)
}

func (res *Resolver) userIdentity(r *http.Request) (string, bool) {
	if res.jwtSecret == "" {
		return "", false
	}
	header := r.Header.Get("Authorization")
	bearer, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	userID, err := auth.ParseUserToken(strings.TrimSpace(bearer), res.jwtSecret)
	if err != nil {
		slog.Debug("ignoring invalid bearer token", "error", err)
		return "", false
	}
	return userPrefix + userID, true
}

// cookieToken only accepts values this package could have issued, so a
// cookie can never name a signed-in user.
func cookieToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || !auth.IsSessionToken(c.Value) {
		return "", false
	}
	return c.Value, true
}
