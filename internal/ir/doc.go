// Package ir provides the foundational types for entcache: the record value
// model, the action model and entity metadata.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types in records - numbers are int64 so canonical JSON and
//     action digests are deterministic
//   - Actions are values: once built they are never mutated by the library
//   - Entity ids are keyed by their string form (ints render as decimal)
//   - All JSON tags use snake_case
package ir
