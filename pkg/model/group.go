package model

import (
	"time"

	"github.com/google/uuid"
)

type GroupID string

// NewGroupID generates a new unique GroupID
func NewGroupID() GroupID {
	return GroupID(uuid.New().String())
}

// Group is one shared channel. Message history and assistant memory banks
// are scoped to the group, not global to an assistant.
type Group struct {
	ID          GroupID
	Name        string
	Icon        string
	Description string
	CreatedAt   time.Time
}
