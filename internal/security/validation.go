// Package security provides input validation for externally supplied
// identifiers. The HTTP API and the CLI both accept free-form strings for
// user IDs, symbols and record IDs; everything is validated here before it
// reaches a query or a log line.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation patterns
var (
	// Symbol pattern: uppercase letters, numbers, and limited special chars
	symbolPattern = regexp.MustCompile(`^[A-Z0-9&-]{1,20}$`)

	// User ID pattern: alphanumeric with limited special chars
	userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,64}$`)

	// Record ID pattern: UUIDs and other alphanumeric identifiers
	recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// ValidateSymbol validates a trading symbol.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", sanitizeForError(symbol))
	}
	return nil
}

// ValidateUserID validates an externally supplied user identifier.
func ValidateUserID(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if !userIDPattern.MatchString(userID) {
		return fmt.Errorf("invalid user ID format: %s", sanitizeForError(userID))
	}
	return nil
}

// ValidateRecordID validates a session or approval identifier.
func ValidateRecordID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if !recordIDPattern.MatchString(id) {
		return fmt.Errorf("invalid ID format: %s", sanitizeForError(id))
	}
	return nil
}

// NormalizeSymbol uppercases and trims a symbol before validation.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// sanitizeForError strips control and non-printable characters so a rejected
// input cannot corrupt log output.
func sanitizeForError(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) && r < 128 {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	const maxLen = 32
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen] + "..."
	}
	return out
}
