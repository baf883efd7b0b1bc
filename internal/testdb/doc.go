// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests locate the database through one of the environment variables in
// URLEnvVars and are skipped when none is set, unless they run in CI where a
// missing database is a configuration error. Each test works inside a
// transaction that is rolled back afterwards, so tests can run in parallel
// against a shared schema:
//
//	func TestSomething(t *testing.T) {
//		db := testdb.Open(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			cards := postgres.NewPostgresCardStore(tx, nil)
//			// ...
//		})
//	}
package testdb
