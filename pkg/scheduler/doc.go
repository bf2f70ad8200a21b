// Package scheduler runs keygate's background jobs on cron schedules.
//
// Two jobs exist: a periodic key refresh, so new keys are usually known
// before the first request that carries them, and journal pruning, which
// drops rejection records past their retention. A job with an empty
// schedule is disabled. Runs of the same job never overlap.
package scheduler
