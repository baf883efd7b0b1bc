package testdb

import (
	"os"
	"strings"
)

// URLEnvVars are the environment variables searched, in order, for the test
// database URL.
var URLEnvVars = []string{"SCRY_TEST_DB_URL", "DATABASE_URL", "SCRY_DATABASE_URL"}

// ciEnvVars mark a continuous integration environment.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// DatabaseURL returns the first non-empty URL from URLEnvVars, or "".
func DatabaseURL() string {
	for _, name := range URLEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// IsIntegrationEnvironment reports whether a test database is configured.
func IsIntegrationEnvironment() bool {
	return DatabaseURL() != ""
}

// isCIEnvironment reports whether the tests run under a CI system.
func isCIEnvironment() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
