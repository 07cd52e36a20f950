package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is an in-process Repository used by tests and local runs. All
// returned values are deep copies so callers never share mutable state
// with the store.
type Memory struct {
	mu       sync.RWMutex
	groups   map[model.GroupID]*model.Group
	messages map[model.GroupID][]*model.Message
	rosters  map[model.GroupID]*model.Roster
	apiKeys  map[model.APIKeyID]*model.APIKey
}

func NewMemory() *Memory {
	return &Memory{
		groups:   make(map[model.GroupID]*model.Group),
		messages: make(map[model.GroupID][]*model.Message),
		rosters:  make(map[model.GroupID]*model.Roster),
		apiKeys:  make(map[model.APIKeyID]*model.APIKey),
	}
}

func (r *Memory) PutGroup(ctx context.Context, group *model.Group) error {
	if group.ID == "" {
		return goerr.New("group id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	g := *group
	r.groups[group.ID] = &g
	return nil
}

func (r *Memory) GetGroup(ctx context.Context, id model.GroupID) (*model.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[id]
	if !ok {
		return nil, goerr.New("group not found", goerr.V("id", id))
	}
	g := *group
	return &g, nil
}

func (r *Memory) ListGroups(ctx context.Context) ([]*model.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]*model.Group, 0, len(r.groups))
	for _, group := range r.groups {
		g := *group
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})
	return groups, nil
}

func (r *Memory) DeleteGroup(ctx context.Context, id model.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.groups, id)
	delete(r.messages, id)
	delete(r.rosters, id)
	return nil
}

func (r *Memory) AddMessage(ctx context.Context, groupID model.GroupID, msg *model.Message) (*model.Message, error) {
	saved := msg.Clone()
	if saved.ID == "" {
		saved.ID = model.NewMessageID()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	if err := saved.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[groupID] = append(r.messages[groupID], saved.Clone())
	return saved, nil
}

func (r *Memory) ListMessages(ctx context.Context, groupID model.GroupID, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[groupID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out, nil
}

func (r *Memory) GetRoster(ctx context.Context, groupID model.GroupID) (*model.Roster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster, ok := r.rosters[groupID]
	if !ok {
		return model.NewRoster(), nil
	}
	return roster.Clone(), nil
}

func (r *Memory) PutRoster(ctx context.Context, groupID model.GroupID, roster *model.Roster) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rosters[groupID] = roster.Clone()
	return nil
}

func (r *Memory) PutAPIKey(ctx context.Context, key *model.APIKey) error {
	if key.ID == "" {
		return goerr.New("api key id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	k := *key
	r.apiKeys[key.ID] = &k
	return nil
}

func (r *Memory) ListAPIKeys(ctx context.Context) ([]*model.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]*model.APIKey, 0, len(r.apiKeys))
	for _, key := range r.apiKeys {
		k := *key
		keys = append(keys, &k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name < keys[j].Name
	})
	return keys, nil
}

func (r *Memory) DeleteAPIKey(ctx context.Context, id model.APIKeyID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.apiKeys, id)
	return nil
}
