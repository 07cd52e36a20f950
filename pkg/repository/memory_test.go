package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestGroupCRUD(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	group := &model.Group{ID: model.NewGroupID(), Name: "Lounge", CreatedAt: time.Now()}
	gt.NoError(t, repo.PutGroup(ctx, group))

	got, err := repo.GetGroup(ctx, group.ID)
	gt.NoError(t, err)
	gt.V(t, got.Name).Equal("Lounge")

	groups, err := repo.ListGroups(ctx)
	gt.NoError(t, err)
	gt.A(t, groups).Length(1)

	gt.NoError(t, repo.DeleteGroup(ctx, group.ID))
	_, err = repo.GetGroup(ctx, group.ID)
	gt.Error(t, err)
}

func TestGetGroupNotFound(t *testing.T) {
	repo := repository.NewMemory()

	_, err := repo.GetGroup(context.Background(), "missing")
	gt.Error(t, err)
}

func TestAddMessageAssignsIdentity(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	msg := &model.Message{
		Type:   model.MessageTypeUser,
		Text:   "hello",
		Author: model.AuthorOf(model.DefaultUser()),
	}

	saved, err := repo.AddMessage(ctx, "g1", msg)
	gt.NoError(t, err)
	gt.V(t, string(saved.ID) != "").Equal(true)
	gt.V(t, saved.CreatedAt.IsZero()).Equal(false)

	// The input message stays untouched
	gt.V(t, string(msg.ID)).Equal("")
}

func TestAddMessageRejectsInvalid(t *testing.T) {
	repo := repository.NewMemory()

	// A user message without an author is not storable
	_, err := repo.AddMessage(context.Background(), "g1", &model.Message{
		Type: model.MessageTypeUser,
		Text: "anonymous",
	})
	gt.Error(t, err)
}

func TestListMessagesWindow(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		_, err := repo.AddMessage(ctx, "g1", &model.Message{
			Type:   model.MessageTypeUser,
			Text:   text,
			Author: model.AuthorOf(model.DefaultUser()),
		})
		gt.NoError(t, err)
	}

	// The window keeps the newest messages in chronological order
	msgs, err := repo.ListMessages(ctx, "g1", 3)
	gt.NoError(t, err)
	gt.A(t, msgs).Length(3)
	gt.V(t, msgs[0].Text).Equal("three")
	gt.V(t, msgs[2].Text).Equal("five")

	all, err := repo.ListMessages(ctx, "g1", 0)
	gt.NoError(t, err)
	gt.A(t, all).Length(5)
}

func TestRosterMissingIsEmpty(t *testing.T) {
	repo := repository.NewMemory()

	roster, err := repo.GetRoster(context.Background(), "g1")
	gt.NoError(t, err)
	gt.A(t, roster.Participants()).Length(0)
}

func TestRosterIsolation(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	roster := model.NewRoster()
	gt.NoError(t, roster.Add(&model.Assistant{
		ID:         "ai-1",
		Name:       "Marketing Mike",
		MemoryBank: []*model.Memory{model.NewMemory("original")},
	}))
	gt.NoError(t, repo.PutRoster(ctx, "g1", roster))

	// Mutating a returned roster must not leak into the store
	loaded, err := repo.GetRoster(ctx, "g1")
	gt.NoError(t, err)
	loaded.Assistant("ai-1").MemoryBank[0].Content = "tampered"
	loaded.Assistant("ai-1").Name = "Impostor"

	fresh, err := repo.GetRoster(ctx, "g1")
	gt.NoError(t, err)
	gt.V(t, fresh.Assistant("ai-1").Name).Equal("Marketing Mike")
	gt.V(t, fresh.Assistant("ai-1").MemoryBank[0].Content).Equal("original")
}

func TestAPIKeyCRUD(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	key := &model.APIKey{ID: model.NewAPIKeyID(), Name: "alpha", Secret: "s1"}
	gt.NoError(t, repo.PutAPIKey(ctx, key))
	gt.NoError(t, repo.PutAPIKey(ctx, &model.APIKey{ID: model.NewAPIKeyID(), Name: "beta", Secret: "s2"}))

	keys, err := repo.ListAPIKeys(ctx)
	gt.NoError(t, err)
	gt.A(t, keys).Length(2)
	gt.V(t, keys[0].Name).Equal("alpha")

	gt.NoError(t, repo.DeleteAPIKey(ctx, key.ID))
	keys, err = repo.ListAPIKeys(ctx)
	gt.NoError(t, err)
	gt.A(t, keys).Length(1)
	gt.V(t, keys[0].Name).Equal("beta")
}

func TestDeleteGroupDropsMessagesAndRoster(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	gt.NoError(t, repo.PutGroup(ctx, &model.Group{ID: "g1", Name: "Lounge"}))
	_, err := repo.AddMessage(ctx, "g1", &model.Message{
		Type:   model.MessageTypeUser,
		Text:   "hello",
		Author: model.AuthorOf(model.DefaultUser()),
	})
	gt.NoError(t, err)

	gt.NoError(t, repo.DeleteGroup(ctx, "g1"))

	msgs, err := repo.ListMessages(ctx, "g1", 0)
	gt.NoError(t, err)
	gt.A(t, msgs).Length(0)
}
