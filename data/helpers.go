package data

import "github.com/google/uuid"

// NewID returns a time ordered unique identifier for handles and streams.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
