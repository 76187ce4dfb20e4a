// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags, environment
variables and an optional .env file.

# Priority

Configuration is resolved in order (first wins):

 1. CLI flags
 2. Process environment
 3. .env file in the working directory (loaded with godotenv)
 4. Defaults

# Flags and Variables

	-p            PORT             Server port (default 3318)
	-d            DATABASE_URL     Database URL (required)
	-t            DATABASE_TYPE    sqlite or postgres (default sqlite)
	-env          APP_ENV          development or production
	-admin-salt   ADMIN_KEY_SALT   Secret for admin key HMAC (required)
	-jwt-secret   JWT_SECRET       HS256 secret for signed-in voters
	-log-level    LOG_LEVEL        debug, info, warn, error
	-origins      ALLOWED_ORIGINS  Comma-separated CORS allow list

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

In production (APP_ENV=production) session cookies are marked Secure.
*/
package cliparse
