package testdb

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-uams/internal/config"
	"github.com/phrazzld/scry-uams/internal/platform/postgres"
)

const setupTimeout = 30 * time.Second

// Open connects to the test database, applies all migrations and closes the
// connection when the test ends. Without a configured database the test is
// skipped, or failed when running in CI.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		if isCIEnvironment() {
			t.Fatalf("no test database configured in CI; set one of %s", strings.Join(URLEnvVars, ", "))
		}
		t.Skipf("no test database configured; set one of %s", strings.Join(URLEnvVars, ", "))
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, config.DatabaseConfig{URL: dbURL, MaxConns: 4}, nil)
	if err != nil {
		t.Fatalf("failed to open test database %s: %v", postgres.MaskURL(dbURL), err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, nil); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
