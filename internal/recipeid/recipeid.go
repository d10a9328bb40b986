// Package recipeid canonicalizes recipe identifiers.
//
// The backend assigns plain UUIDs, but legacy admin code appended extra
// dash-separated segments to link targets. The backend never understood
// those suffixes, so every lookup must strip them first.
package recipeid

import (
	"strings"

	"github.com/google/uuid"
)

// canonical UUIDs have exactly five dash-separated segments.
const canonicalSegments = 5

// Normalize returns the canonical form of a recipe ID: the first five
// dash-separated segments. Inputs with five or fewer segments are returned
// unchanged, so Normalize(Normalize(id)) == Normalize(id) for every input.
func Normalize(id string) string {
	if id == "" {
		return id
	}
	parts := strings.Split(id, "-")
	if len(parts) <= canonicalSegments {
		return id
	}
	return strings.Join(parts[:canonicalSegments], "-")
}

// IsCanonical reports whether id parses as a plain UUID.
func IsCanonical(id string) bool {
	if id == "" {
		return false
	}
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	return len(strings.Split(id, "-")) == canonicalSegments
}
