// Package api serves the local control surface over HTTP.
//
// It translates workspace state into transport-friendly DTOs and exposes the
// queue, run controls, settings, exports and session over JSON routes on an
// echo router. Browser clients keep in sync through a websocket stream of
// queue snapshots; the same snapshot is available as msgpack for compact
// polling clients.
//
// # Key Types
//
// Server: the echo router bound to one workspace. It implements http.Handler.
//
// QueueItem: transport representation of a queue entry with its result
// envelope and preview URL.
//
// Snapshot: queue items in display order plus counters and workspace state,
// tagged with the queue version it was built from.
//
// APIError: the JSON error body every failing route returns.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Domain sentinel errors map to stable error codes in FromError, so handlers
// return plain errors and never pick status codes themselves.
package api
