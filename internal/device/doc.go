// Package device maintains the authoritative view of every device in the
// house: identity, metadata, free-form status attributes, and liveness.
//
// The Store serves reads from an in-memory cache and writes through to
// SQLite. Status updates merge top-level key-by-key via Status.Merge, so
// partial reports never erase attributes they do not mention; the merged
// snapshot is persisted before the cache is touched, so the cache and the
// row never disagree. Optimistic updates reflect commands the backend has
// sent; confirmed updates reflect what the device itself reports, and
// always win.
//
// Liveness is heartbeat-driven: devices report on a beacon topic, and a
// periodic sweep marks anything silent past the configured timeout as
// offline.
package device
