// Package redact scrubs credentials, personal data and query contents from
// error messages before they reach logs. Client responses never carry raw
// errors at all; redaction protects the log stream.
package redact

import (
	"log/slog"
	"regexp"
)

// Placeholders substituted for redacted content.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	StackTracePlaceholder = "[STACK_TRACE_REDACTED]"
	SQLValuesPlaceholder  = "[SQL_VALUES_REDACTED]"
	SQLWherePlaceholder   = "[SQL_WHERE_REDACTED]"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// rules run in order; later rules see the output of earlier ones.
var rules = []rule{
	// A stack trace runs to the end of the message.
	{regexp.MustCompile(`(?s)(?:goroutine \d+ \[|panic: ).*`), StackTracePlaceholder},

	// user:password in connection URLs; the scheme and host stay readable.
	{
		regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|redis|amqp|mongodb)://[^\s:@/]+:[^\s@/]+@`),
		"$1://" + CredentialPlaceholder + "@",
	},

	// key=value secrets, as found in libpq DSNs and config dumps.
	{
		regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|api[_-]?key|token)\s*[=:]\s*('[^']*'|"[^"]*"|\S+)`),
		"$1=" + CredentialPlaceholder,
	},

	// Literal values and predicates of SQL statements.
	{regexp.MustCompile(`\bVALUES\s*\(.*?\)`), "VALUES (" + SQLValuesPlaceholder + ")"},
	{regexp.MustCompile(`\bWHERE\s[^;]*`), "WHERE " + SQLWherePlaceholder},

	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), EmailPlaceholder},

	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), PathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\s\\]+(?:\\[^\s\\]+)+`), PathPlaceholder},
}

// String redacts sensitive information from s.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// Error redacts the message of err. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Attr returns a log attribute holding the redacted message of err.
func Attr(key string, err error) slog.Attr {
	return slog.String(key, Error(err))
}
