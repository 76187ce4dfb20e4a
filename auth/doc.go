// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(pollID, salt)
	err := auth.ValidateAdminKey(pollID, adminKey, salt)

The same function guards polls and surveys. Since the key is derived from the
resource ID, nothing is stored in the database.

# Session Tokens

Session tokens are random 24-byte (192-bit) secrets stored in a cookie:

	token, err := auth.GenerateSessionToken()

# Poll Codes and Slugs

Poll codes are short uppercase codes people can type ("K7QX2M"):

	code, err := auth.GeneratePollCode(6)

Survey slugs are deterministic base62 strings:

	slug := auth.GenerateShareSlug(surveyID, salt)

Slugify turns option labels into machine values:

	auth.Slugify("Dark Blue") // "dark-blue"

# Signed-in Users

ParseUserToken verifies an HS256 JWT and returns its subject:

	userID, err := auth.ParseUserToken(bearer, secret)

# ID Generation

Row IDs are random UUIDs:

	id := auth.NewID()
*/
package auth
