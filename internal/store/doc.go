// Package store persists agent records and generic JSON documents.
//
// # Architecture
//
// DocumentStore is the single interface the tool server depends on. Three
// backends implement it:
//
//   - SQLiteStore: a single-file database through modernc.org/sqlite
//     (driver "sqlite") or mattn/go-sqlite3 (driver "sqlite3")
//   - RedisStore: a networked backend through go-redis
//   - MockStore: an in-memory store used by tests and the "memory" driver
//
// Open selects a backend from Options and verifies connectivity before
// returning it.
//
// # Documents
//
// A Document is a decoded JSON object. Put assigns a fresh UUID, strips any
// caller supplied "_id" and "_deleted", and stamps "created" with the
// current time in milliseconds. Documents returned by Get, ListAll and
// QueryBySortedField carry their "_id".
//
// # Soft Delete
//
// Delete never removes data. It flags the record with "_deleted": true.
// Get and QueryBySortedField skip flagged records, ListAll returns them so
// callers can filter.
//
// # Ordering
//
// QueryBySortedField orders by a top-level field with one collation shared by
// every backend:
//
//	missing or null < numbers and booleans < strings < objects and arrays
//
// Objects and arrays compare by their JSON text. Ties are broken by "_id"
// ascending regardless of direction, so records without the field come first
// in ascending order and last in descending order.
//
// # Errors
//
// ErrNotFound marks an absent or deleted record. ErrUnavailable wraps any
// backend failure (unreachable server, I/O error). Both are matchable with
// errors.Is.
package store
