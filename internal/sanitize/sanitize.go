// Package sanitize scrubs error text before it is stored on a task or
// returned to an HTTP client.
package sanitize

import (
	"regexp"
	"strings"
)

// Placeholders substituted for redacted content.
const (
	Redacted      = "[REDACTED]"
	PathRedacted  = "[PATH]"
	QueryRedacted = "[QUERY]"
)

// maxLen bounds the length of a sanitized message in runes.
const maxLen = 500

var (
	// Keys may carry a prefix (db_password) or a separated suffix
	// (password_hash). "Authorization" is left to bearerRe.
	secretRe = regexp.MustCompile(`(?i)\b([\w-]*(?:password|passwd|pwd|secret|token|api[_-]?key|access[_-]?key|auth)(?:[_-][\w-]*)?)\s*[=:]\s*("[^"]*"|'[^']*'|[^\s&,;]+)`)
	bearerRe = regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._\-+/=]+`)
	dsnRe    = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.\-]*://)[^\s:/@]+:[^\s@]+@`)
	keyRe    = regexp.MustCompile(`\b(sk-[A-Za-z0-9_\-]{8,}|AIza[0-9A-Za-z_\-]{20,})`)
	sqlRe    = regexp.MustCompile(`(?is)\b(SELECT\s+.+?\s+FROM|INSERT\s+INTO|UPDATE\s+\S+\s+SET|DELETE\s+FROM|CREATE\s+TABLE|DROP\s+TABLE|ALTER\s+TABLE)\b[^\n]*`)
	pathRe   = regexp.MustCompile(`(^|[\s"'(=])((?:[A-Za-z]:\\|/)(?:[\w.\-]+[/\\])+[\w.\-]+)`)
)

// Message redacts credentials, bearer tokens, connection strings, SQL
// statements and filesystem paths from msg.
func Message(msg string) string {
	out := dsnRe.ReplaceAllString(msg, "${1}"+Redacted+"@")
	out = secretRe.ReplaceAllString(out, "${1}="+Redacted)
	out = bearerRe.ReplaceAllString(out, "Bearer "+Redacted)
	out = keyRe.ReplaceAllString(out, Redacted)
	out = sqlRe.ReplaceAllString(out, QueryRedacted)
	out = pathRe.ReplaceAllString(out, "${1}"+PathRedacted)
	out = strings.TrimSpace(out)

	if r := []rune(out); len(r) > maxLen {
		out = string(r[:maxLen]) + "..."
	}
	return out
}
