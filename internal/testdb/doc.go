// Package testdb provides utilities for database integration tests.
//
// Tests that need PostgreSQL call GetTestDBWithT, which skips the test
// when DATABASE_URL is not set, applies the embedded migrations once per
// process and closes the connection when the test finishes.
//
// Two isolation styles are supported:
//
//  1. WithTx runs the test body in a transaction that is always rolled
//     back, so tests can run in parallel against the same tables.
//  2. TruncateAll empties every application table. Tests that must commit
//     (for example concurrent toggles through a Transactor) use it and do
//     not run in parallel with each other.
//
// Basic usage:
//
//	func TestAccountStore(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        accounts := postgres.NewAccountStore(tx, nil)
//	        // ...
//	    })
//	}
package testdb
