// Package store persists evaluation run history.
//
// The store package records one row per (implementation, test) execution in
// a SQLite database, so past runs remain queryable after their output trees
// have been inspected or discarded. The database is optional: when no path
// is configured, recording is skipped entirely.
//
// Usage:
//
//	st, err := store.Open(logger, "/logs/history.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//	err = st.RecordReport(report)
package store
