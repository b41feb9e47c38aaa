// Package stores persists heuristic estimates in SQLite.
//
// SQLiteStore implements estimator.Cache, so repeated queries for the same
// problem digest, state, heuristic and graph options are answered without
// building a planning graph. The same table doubles as a query history that
// the CLI lists with "plangraph history". Planning graphs themselves are
// never stored.
//
// The schema is managed with golang-migrate from migrations embedded in the
// binary.
package stores
