package model

import (
	"github.com/google/uuid"
)

type APIKeyID string

// NewAPIKeyID generates a new unique APIKeyID
func NewAPIKeyID() APIKeyID {
	return APIKeyID(uuid.New().String())
}

// APIKey is one backend credential. Multiple keys spread generation load
// across assistants in round-robin.
type APIKey struct {
	ID     APIKeyID
	Name   string
	Secret string
}
