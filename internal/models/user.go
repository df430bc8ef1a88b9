package models

import "regexp"

// externalIDPattern matches the fixed-length numeric login identifier.
var externalIDPattern = regexp.MustCompile(`^[0-9]{9}$`)

// User represents a registered recycler account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// ExternalID is the user-chosen 9-digit login identifier.
	// Unique and immutable once the account exists.
	ExternalID string

	// Name is the display name of the user.
	Name string

	// Points is the current balance. The store keeps it equal to the sum of
	// the user's transaction deltas; it never goes negative.
	Points int64

	// CreatedAt is the Unix timestamp in nanoseconds when the account was
	// created. Older accounts win ranking ties.
	CreatedAt int64
}

// ValidExternalID reports whether id is exactly nine decimal digits.
func ValidExternalID(id string) bool {
	return externalIDPattern.MatchString(id)
}
