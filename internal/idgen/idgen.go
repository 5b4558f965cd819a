// Package idgen generates identifiers: UUIDs for variables and short,
// URL-safe nanoid strings for requests and real-time connections.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for short IDs.
const (
	RequestPrefix    = "req-"
	SubscriberPrefix = "sub-"
)

// Alphabet defines the character set used for the random portion of short IDs.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// NewVariableID returns a new random (version 4) UUID string.
func NewVariableID() string {
	return uuid.NewString()
}

// IsVariableID reports whether s parses as a UUID.
func IsVariableID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Generate returns a new short ID with the given prefix.
func Generate(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// MustGenerate is like Generate but panics on failure. The nanoid generator
// only fails when the system random source does.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return id
}
