package util

import "github.com/google/uuid"

// NewID returns a random identifier for request correlation and audit rows.
func NewID() string {
	return uuid.NewString()
}
