// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

// ForShare returns the row-lock suffix that blocks writers of the selected
// rows until the transaction ends. SQLite has no row locks; its single
// connection already serializes transactions.
func ForShare(dialect string) string {
	if dialect == Postgres {
		return " FOR SHARE"
	}
	return ""
}

// ForUpdate returns the exclusive row-lock suffix for dialect
func ForUpdate(dialect string) string {
	if dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}
