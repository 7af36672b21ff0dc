package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx up to the next delimiter.
	// Covers libpq key/value strings, URL query strings and JDBC ;key=value lists.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches the password member of canonical connection parameters.
	jsonPasswordPattern = regexp.MustCompile(`"password"\s*:\s*"(?:[^"\\]|\\.)*"`)

	// Matches user:pass@host credentials in URLs.
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Matches Vault service, batch and recovery tokens.
	vaultTokenPattern = regexp.MustCompile(`\bhv[sbr]\.[A-Za-z0-9_-]{20,}`)
)

// SanitizeConnectionString removes credentials from a connection string.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// SanitizeConnectionParams redacts the password in canonical connection parameters.
func SanitizeConnectionParams(params string) string {
	if params == "" {
		return ""
	}
	return jsonPasswordPattern.ReplaceAllString(params, `"password":"`+RedactedText+`"`)
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error from a driver, probe or secret codec.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = jsonPasswordPattern.ReplaceAllString(sanitized, `"password":"`+RedactedText+`"`)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = vaultTokenPattern.ReplaceAllString(sanitized, RedactedText)
	return sanitized
}
