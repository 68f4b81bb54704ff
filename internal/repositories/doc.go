// Package repositories provides the persistence layer for run history.
//
// [RunRepository] records each completed discovery run's summary and its
// non-fatal failures in SQLite, giving `freshwax runs` something to report
// on. Nothing else from a run is persisted: credentials and listening
// history never touch the database.
package repositories
