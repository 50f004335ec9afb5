// Package store persists trading history as an append-only log.
//
// Store is the only view the reconciliation code has of persistence: a
// full Scan in append order and an Append of new rows. CSVStore keeps the
// historical flat-file format (header "Issuer Code,Date,Price,Volume,Change"
// followed by one row per record). SQLiteStore keeps the same rows in a
// single table ordered by insertion. MemoryStore backs tests.
//
// The issuer-codes list is a separate one column CSV file handled by
// ReadIssuerCodes and WriteIssuerCodes.
package store
