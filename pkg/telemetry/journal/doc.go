// Package journal keeps a local, queryable record of rejected requests.
//
// Every reported rejection is appended as a Record. Two stores exist: an
// in-memory store for tests and short-lived processes, and a SQLite store
// that can run on either the pure-Go driver ("sqlite", modernc.org/sqlite)
// or the cgo driver ("sqlite3", github.com/mattn/go-sqlite3). Old records
// are removed with Prune, usually from a scheduled job.
package journal
