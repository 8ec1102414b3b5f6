// File: internal/fingerprint/fingerprint.go
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/smartdevs17/error-tracker/internal/models"
)

// maxPatternBytes caps the normalized message stored as a group's pattern.
const maxPatternBytes = 500

// Normalization regexes compiled once at package init. Order matters:
// UUIDs and hex tokens must be collapsed before bare numbers.
var (
	reUUID   = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	reHex    = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	reQuoted = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	reNumber = regexp.MustCompile(`\b\d+\b`)
	reSpace  = regexp.MustCompile(`\s+`)
)

// Compute derives the stable fingerprint and the normalized message pattern
// for an error event. The fingerprint depends only on the error's shape:
// type, source, endpoint, method and the normalized message. Severity,
// user identity, addresses and timestamps never participate, so the same
// logical error always lands in the same group.
func Compute(ev *models.ErrorEvent) (fingerprint, messagePattern string) {
	messagePattern = NormalizeMessage(ev.Message)

	canonical := strings.Join([]string{
		string(ev.ErrorType),
		ev.Source,
		normalizePath(ev.Endpoint),
		ev.Method,
		messagePattern,
	}, "|")

	hash := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", hash), messagePattern
}

// NormalizeMessage collapses dynamic tokens in a message to placeholders so
// that trivially varying occurrences of the same error normalize to one
// pattern. "User 42 not found" and "User 917 not found" both become
// "User {id} not found".
func NormalizeMessage(msg string) string {
	msg = reUUID.ReplaceAllString(msg, "{uuid}")
	msg = reHex.ReplaceAllString(msg, "{hex}")
	msg = reQuoted.ReplaceAllString(msg, "{value}")
	msg = reNumber.ReplaceAllString(msg, "{id}")
	msg = reSpace.ReplaceAllString(msg, " ")
	msg = strings.TrimSpace(msg)
	return truncate(msg, maxPatternBytes)
}

// normalizePath collapses embedded identifiers in an endpoint path so that
// "/api/users/42" and "/api/users/917" group together.
func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	path = reUUID.ReplaceAllString(path, "{uuid}")
	path = reHex.ReplaceAllString(path, "{hex}")
	path = reNumber.ReplaceAllString(path, "{id}")
	return path
}

// truncate shortens s to at most maxBytes without splitting UTF-8 runes.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
