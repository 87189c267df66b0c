// Package store provides SQLite-backed durable storage for entcache.
//
// One database holds two tables:
//   - entities: the records of every entity type, one row per
//     (entity_name, entity_id), read through the effects.DataService
//     implementation returned by Entities
//   - actions: the append-only action log written by the engine through
//     AppendAction and read back for replay
//
// # Ordering
//
//   - Records are returned in insertion order: ORDER BY pos ASC, entity_id
//     ASC COLLATE BINARY
//   - Logged actions are ordered by seq, the engine's logical clock, NEVER
//     by timestamps, so replay is deterministic
//
// # Integrity
//
// Records and action payloads are stored as RFC 8785 canonical JSON
// together with a domain-separated SHA-256 digest (see internal/ir/hash.go).
// Reads recompute the digest of each logged action and fail on mismatch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
