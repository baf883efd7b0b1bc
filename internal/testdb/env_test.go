package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseURLPrecedence(t *testing.T) {
	for _, name := range URLEnvVars {
		t.Setenv(name, "")
	}
	assert.Empty(t, DatabaseURL())
	assert.False(t, IsIntegrationEnvironment())

	t.Setenv("SCRY_DATABASE_URL", "postgres://c@localhost/c")
	assert.Equal(t, "postgres://c@localhost/c", DatabaseURL())

	t.Setenv("DATABASE_URL", "  postgres://b@localhost/b ")
	assert.Equal(t, "postgres://b@localhost/b", DatabaseURL())

	t.Setenv("SCRY_TEST_DB_URL", "postgres://a@localhost/a")
	assert.Equal(t, "postgres://a@localhost/a", DatabaseURL())
	assert.True(t, IsIntegrationEnvironment())
}

func TestIsCIEnvironment(t *testing.T) {
	for _, name := range ciEnvVars {
		t.Setenv(name, "")
	}
	assert.False(t, isCIEnvironment())

	t.Setenv("GITHUB_ACTIONS", "true")
	assert.True(t, isCIEnvironment())
}
