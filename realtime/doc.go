// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package realtime pushes change notifications to websocket subscribers.
//
// Services publish an Event after a write commits. Events only say that
// something changed on a channel ("poll:<id>" or "survey:<id>"); clients
// refetch results over HTTP. Delivery is best effort: Publish never blocks,
// full queues drop events and slow clients are disconnected. Nothing
// depends on an event arriving.
package realtime
