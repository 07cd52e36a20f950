package group_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/repository"
	"github.com/m-mizutani/banter/pkg/usecase/group"
	"github.com/m-mizutani/gt"
)

func TestCreateSeedsHumanUser(t *testing.T) {
	repo := repository.NewMemory()
	uc := group.New(repo)

	g, err := uc.Create(context.Background(), "Lounge", "💬")
	gt.NoError(t, err)
	gt.V(t, g.Name).Equal("Lounge")

	roster, err := repo.GetRoster(context.Background(), g.ID)
	gt.NoError(t, err)
	gt.A(t, roster.Participants()).Length(1)
	gt.V(t, roster.Find("human-user").DisplayName()).Equal("You")
}

func TestCreateRequiresName(t *testing.T) {
	uc := group.New(repository.NewMemory())

	_, err := uc.Create(context.Background(), "", "💬")
	gt.Error(t, err)
}

func TestAddAssistant(t *testing.T) {
	repo := repository.NewMemory()
	uc := group.New(repo)

	g, err := uc.Create(context.Background(), "Lounge", "")
	gt.NoError(t, err)

	tina := &model.Assistant{
		ID:         "ai-2",
		Name:       "Techie Tina",
		MemoryBank: []*model.Memory{model.NewMemory("stale memory from another group")},
	}
	gt.NoError(t, uc.AddAssistant(context.Background(), g.ID, tina))

	roster, err := repo.GetRoster(context.Background(), g.ID)
	gt.NoError(t, err)

	// The joined assistant starts with a fresh bank
	joined := roster.Assistant("ai-2")
	gt.NotNil(t, joined)
	gt.A(t, joined.MemoryBank).Length(0)

	// Duplicates are rejected
	gt.Error(t, uc.AddAssistant(context.Background(), g.ID, tina))
}

func TestAddAssistantLimit(t *testing.T) {
	repo := repository.NewMemory()
	uc := group.New(repo, group.WithAssistantLimit(2))

	g, err := uc.Create(context.Background(), "Lounge", "")
	gt.NoError(t, err)

	gt.NoError(t, uc.AddAssistant(context.Background(), g.ID, &model.Assistant{ID: "ai-1", Name: "Mike"}))
	gt.NoError(t, uc.AddAssistant(context.Background(), g.ID, &model.Assistant{ID: "ai-2", Name: "Tina"}))

	err = uc.AddAssistant(context.Background(), g.ID, &model.Assistant{ID: "ai-3", Name: "Clara"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, group.ErrAssistantLimit))
}

func TestRemoveAssistant(t *testing.T) {
	repo := repository.NewMemory()
	uc := group.New(repo)

	g, err := uc.Create(context.Background(), "Lounge", "")
	gt.NoError(t, err)
	gt.NoError(t, uc.AddAssistant(context.Background(), g.ID, &model.Assistant{ID: "ai-1", Name: "Mike"}))

	gt.NoError(t, uc.RemoveAssistant(context.Background(), g.ID, "ai-1"))

	roster, err := repo.GetRoster(context.Background(), g.ID)
	gt.NoError(t, err)
	gt.A(t, roster.Assistants()).Length(0)
}

func TestUpdatePersona(t *testing.T) {
	repo := repository.NewMemory()
	uc := group.New(repo)

	g, err := uc.Create(context.Background(), "Lounge", "")
	gt.NoError(t, err)
	gt.NoError(t, uc.AddAssistant(context.Background(), g.ID, &model.Assistant{ID: "ai-1", Name: "Mike"}))

	persona := model.Persona{Tone: "formal", Expertise: "finance"}
	gt.NoError(t, uc.UpdatePersona(context.Background(), g.ID, "ai-1", persona, "Money Mike"))

	roster, err := repo.GetRoster(context.Background(), g.ID)
	gt.NoError(t, err)
	updated := roster.Assistant("ai-1")
	gt.V(t, updated.Name).Equal("Money Mike")
	gt.V(t, updated.Persona.Tone).Equal("formal")

	gt.Error(t, uc.UpdatePersona(context.Background(), g.ID, "ai-missing", persona, ""))
}

func TestUpdateGroupMetadata(t *testing.T) {
	repo := repository.NewMemory()
	uc := group.New(repo)

	g, err := uc.Create(context.Background(), "Lounge", "💬")
	gt.NoError(t, err)

	gt.NoError(t, uc.Update(context.Background(), g.ID, "War Room", "", "planning"))

	got, err := repo.GetGroup(context.Background(), g.ID)
	gt.NoError(t, err)
	gt.V(t, got.Name).Equal("War Room")
	gt.V(t, got.Icon).Equal("💬")
	gt.V(t, got.Description).Equal("planning")
}

func TestDefaultAssistants(t *testing.T) {
	assistants, err := group.DefaultAssistants()
	gt.NoError(t, err)
	gt.A(t, assistants).Length(4)

	ids := make(map[model.ParticipantID]bool)
	for _, a := range assistants {
		ids[a.ID] = true
		gt.V(t, a.Name != "").Equal(true)
		gt.V(t, a.Persona.Tone != "").Equal(true)
		gt.V(t, a.Persona.Expertise != "").Equal(true)
	}
	gt.True(t, ids["ai-1"])
	gt.True(t, ids["ai-2"])
	gt.True(t, ids["ai-3"])
	gt.True(t, ids["ai-4"])
}
