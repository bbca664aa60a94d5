// Package visitor assigns opaque identifiers to anonymous visitors.
// Transporting the id (cookies) is left to the HTTP layer.
package visitor

import "github.com/google/uuid"

// Identify returns existingToken when it is non-empty, otherwise a fresh
// random (v4) UUID. Tokens are trusted as-is.
func Identify(existingToken string) string {
	if existingToken != "" {
		return existingToken
	}
	return uuid.NewString()
}
