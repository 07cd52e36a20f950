package repository

import (
	"context"

	"github.com/m-mizutani/banter/pkg/model"
)

// Repository is the persistence collaborator of the orchestration core.
// It is an opaque async store; the only write guarantee the core relies
// on is single-document read-modify-write (the roster document).
type Repository interface {
	// PutGroup creates or overwrites a group
	PutGroup(ctx context.Context, group *model.Group) error

	// GetGroup retrieves a group by ID
	GetGroup(ctx context.Context, id model.GroupID) (*model.Group, error)

	// ListGroups retrieves all groups ordered by creation time
	ListGroups(ctx context.Context) ([]*model.Group, error)

	// DeleteGroup removes a group and its subordinate state
	DeleteGroup(ctx context.Context, id model.GroupID) error

	// AddMessage appends a message to the group log, assigning an ID and
	// timestamp when absent, and returns the stored message
	AddMessage(ctx context.Context, groupID model.GroupID, msg *model.Message) (*model.Message, error)

	// ListMessages retrieves up to limit most recent messages in
	// chronological order. limit <= 0 means no limit.
	ListMessages(ctx context.Context, groupID model.GroupID, limit int) ([]*model.Message, error)

	// GetRoster retrieves the participant list of a group. A group
	// without a stored roster yields an empty roster, not an error.
	GetRoster(ctx context.Context, groupID model.GroupID) (*model.Roster, error)

	// PutRoster overwrites the participant document of a group,
	// including assistant memory banks
	PutRoster(ctx context.Context, groupID model.GroupID, roster *model.Roster) error

	// PutAPIKey stores a backend credential
	PutAPIKey(ctx context.Context, key *model.APIKey) error

	// ListAPIKeys retrieves all stored backend credentials
	ListAPIKeys(ctx context.Context) ([]*model.APIKey, error)

	// DeleteAPIKey removes a backend credential
	DeleteAPIKey(ctx context.Context, id model.APIKeyID) error
}
