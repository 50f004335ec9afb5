// Package reconcile decides which trading rows are new and appends them.
//
// For one issuer the Engine walks yearly date windows backward from the
// current year, fetches each window, normalizes the rows and appends only
// those whose (issuer, date) key is not already in the store. New rows are
// appended window by window so a crash loses at most the window in flight.
//
// NeedsFetch is the catch-up check run before the walk: an issuer whose
// most recently appended row is dated today needs nothing.
package reconcile
