// Package db is the sqlite recording database.
//
// One database holds imported landmark recordings and, per recording,
// the most recent analysis: the run totals, every per-frame summary and
// the rep transition history. Re-analysing a recording replaces its
// previous analysis. The schema is managed by golang-migrate from
// migrations embedded in the binary.
package db
