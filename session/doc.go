// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session resolves a stable voter identity for each request.

Anonymous visitors get a random token in an HttpOnly, SameSite=Lax cookie
that lives 30 days (Secure in production). Signed-in visitors presenting a
valid bearer JWT are identified as "user:<subject>" instead.

	res := session.NewResolver(cfg.SecureCookies(), cfg.JWTSecret)
	token, err := res.GetOrCreateSessionToken(w, r)

The token is then passed explicitly to the voting and survey services.
Clearing cookies or switching devices yields a new identity; that is an
accepted limitation.
*/
package session
