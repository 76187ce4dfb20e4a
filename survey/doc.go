// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package survey stores multi-section surveys and their responses.
//
// A survey is made of sections, each holding ordered questions of four
// kinds: free text, single choice, checkbox (several options, optionally
// capped) and a 1 to 5 rating. Every session gets at most one response per
// survey; submitting again replaces the earlier answers in one transaction.
//
// Results are computed from the stored answers on every read, using the
// same percentage rounding as poll results.
package survey
