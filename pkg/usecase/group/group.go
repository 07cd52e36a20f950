package group

import (
	"context"
	_ "embed"
	"time"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed assistants.yaml
var assistantCatalogRaw []byte

var (
	ErrAssistantLimit = goerr.New("assistant limit reached")
)

// UseCase manages groups and their participant rosters. Roster mutations
// go through here; the turn orchestrator only reads snapshots.
type UseCase struct {
	repo  repository.Repository
	user  *model.User
	limit int
}

type Option func(*UseCase)

// WithAssistantLimit overrides the per-group assistant cap
func WithAssistantLimit(n int) Option {
	return func(uc *UseCase) {
		uc.limit = n
	}
}

// WithUser overrides the human participant identity
func WithUser(u *model.User) Option {
	return func(uc *UseCase) {
		uc.user = u
	}
}

func New(repo repository.Repository, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:  repo,
		user:  model.DefaultUser(),
		limit: model.AssistantLimit,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Create makes a new group whose roster starts with the human user
func (uc *UseCase) Create(ctx context.Context, name, icon string) (*model.Group, error) {
	if name == "" {
		return nil, goerr.New("group name is required")
	}

	group := &model.Group{
		ID:        model.NewGroupID(),
		Name:      name,
		Icon:      icon,
		CreatedAt: time.Now(),
	}
	if err := uc.repo.PutGroup(ctx, group); err != nil {
		return nil, goerr.Wrap(err, "failed to create group")
	}

	roster := model.NewRoster()
	if err := roster.Add(uc.user); err != nil {
		return nil, err
	}
	if err := uc.repo.PutRoster(ctx, group.ID, roster); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize roster")
	}

	return group, nil
}

func (uc *UseCase) List(ctx context.Context) ([]*model.Group, error) {
	return uc.repo.ListGroups(ctx)
}

// Update applies partial changes to group metadata
func (uc *UseCase) Update(ctx context.Context, id model.GroupID, name, icon, description string) error {
	group, err := uc.repo.GetGroup(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get group")
	}

	if name != "" {
		group.Name = name
	}
	if icon != "" {
		group.Icon = icon
	}
	if description != "" {
		group.Description = description
	}

	if err := uc.repo.PutGroup(ctx, group); err != nil {
		return goerr.Wrap(err, "failed to update group")
	}
	return nil
}

func (uc *UseCase) Delete(ctx context.Context, id model.GroupID) error {
	if err := uc.repo.DeleteGroup(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete group")
	}
	return nil
}

// AddAssistant puts an assistant into the group's roster with a fresh,
// empty memory bank. The per-group assistant limit and duplicates are
// rejected.
func (uc *UseCase) AddAssistant(ctx context.Context, groupID model.GroupID, assistant *model.Assistant) error {
	roster, err := uc.repo.GetRoster(ctx, groupID)
	if err != nil {
		return goerr.Wrap(err, "failed to get roster")
	}

	if len(roster.Assistants()) >= uc.limit {
		return goerr.Wrap(ErrAssistantLimit, "cannot add assistant", goerr.V("limit", uc.limit))
	}

	joined := assistant.Clone()
	joined.MemoryBank = nil
	if err := roster.Add(joined); err != nil {
		return err
	}

	if err := uc.repo.PutRoster(ctx, groupID, roster); err != nil {
		return goerr.Wrap(err, "failed to save roster")
	}
	return nil
}

// RemoveAssistant drops an assistant, and its group-scoped memory bank,
// from the roster
func (uc *UseCase) RemoveAssistant(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID) error {
	roster, err := uc.repo.GetRoster(ctx, groupID)
	if err != nil {
		return goerr.Wrap(err, "failed to get roster")
	}

	roster.Remove(assistantID)

	if err := uc.repo.PutRoster(ctx, groupID, roster); err != nil {
		return goerr.Wrap(err, "failed to save roster")
	}
	return nil
}

// UpdatePersona rewrites an assistant's persona and optionally its name
func (uc *UseCase) UpdatePersona(ctx context.Context, groupID model.GroupID, assistantID model.ParticipantID, persona model.Persona, name string) error {
	roster, err := uc.repo.GetRoster(ctx, groupID)
	if err != nil {
		return goerr.Wrap(err, "failed to get roster")
	}

	assistant := roster.Assistant(assistantID)
	if assistant == nil {
		return goerr.New("assistant not found", goerr.V("assistant", assistantID))
	}

	assistant.Persona = persona
	if name != "" {
		assistant.Name = name
	}

	if err := uc.repo.PutRoster(ctx, groupID, roster); err != nil {
		return goerr.Wrap(err, "failed to save roster")
	}
	return nil
}

type catalogEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Persona     struct {
		Tone                   string `yaml:"tone"`
		Expertise              string `yaml:"expertise"`
		AdditionalInstructions string `yaml:"additionalInstructions"`
	} `yaml:"persona"`
}

type catalog struct {
	Assistants []catalogEntry `yaml:"assistants"`
}

// DefaultAssistants returns the built-in assistant catalog
func DefaultAssistants() ([]*model.Assistant, error) {
	var c catalog
	if err := yaml.Unmarshal(assistantCatalogRaw, &c); err != nil {
		return nil, goerr.Wrap(err, "failed to parse assistant catalog")
	}

	assistants := make([]*model.Assistant, 0, len(c.Assistants))
	for _, e := range c.Assistants {
		assistants = append(assistants, &model.Assistant{
			ID:          model.ParticipantID(e.ID),
			Name:        e.Name,
			Description: e.Description,
			Persona: model.Persona{
				Tone:                   e.Persona.Tone,
				Expertise:              e.Persona.Expertise,
				AdditionalInstructions: e.Persona.AdditionalInstructions,
			},
		})
	}
	return assistants, nil
}
