// Package health implements the liveness and readiness probes.
//
// Liveness answers as long as the process can serve HTTP. Readiness runs
// every registered check concurrently, each under its own timeout, and
// reports 503 when any of them fails. KeyCacheCheck and JournalCheck cover
// the components keygate depends on.
package health
