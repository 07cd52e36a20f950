package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const (
	groupCollection  = "chatGroups"
	msgCollection    = "messages"
	stateCollection  = "state"
	rosterDocID      = "participants"
	apiKeyCollection = "geminiApiKeys"
)

// Firestore implements Repository on Cloud Firestore. Layout:
//
//	chatGroups/{groupID}
//	chatGroups/{groupID}/messages/{messageID}
//	chatGroups/{groupID}/state/participants   (single roster document)
//	geminiApiKeys/{keyID}
type Firestore struct {
	client *firestore.Client
}

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

type groupDoc struct {
	Name        string    `firestore:"name"`
	Icon        string    `firestore:"icon"`
	Description string    `firestore:"description"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type authorDoc struct {
	ID          string `firestore:"id"`
	Name        string `firestore:"name"`
	IsAssistant bool   `firestore:"isAssistant"`
}

type messageDoc struct {
	Text      string     `firestore:"text"`
	Type      string     `firestore:"type"`
	Author    *authorDoc `firestore:"author,omitempty"`
	ReplyTo   string     `firestore:"replyToId,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

type memoryDoc struct {
	ID        string    `firestore:"id"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type participantDoc struct {
	Kind        string      `firestore:"kind"` // "user" or "assistant"
	ID          string      `firestore:"id"`
	Name        string      `firestore:"name"`
	Description string      `firestore:"description,omitempty"`
	Tone        string      `firestore:"tone,omitempty"`
	Expertise   string      `firestore:"expertise,omitempty"`
	Instruction string      `firestore:"instruction,omitempty"`
	MemoryBank  []memoryDoc `firestore:"memoryBank,omitempty"`
}

type rosterDoc struct {
	Participants []participantDoc `firestore:"participants"`
}

type apiKeyDoc struct {
	Name   string `firestore:"name"`
	Secret string `firestore:"key"`
}

func (r *Firestore) groupRef(id model.GroupID) *firestore.DocumentRef {
	return r.client.Collection(groupCollection).Doc(string(id))
}

func (r *Firestore) PutGroup(ctx context.Context, group *model.Group) error {
	if group.ID == "" {
		return goerr.New("group id is empty")
	}

	doc := groupDoc{
		Name:        group.Name,
		Icon:        group.Icon,
		Description: group.Description,
		CreatedAt:   group.CreatedAt,
	}
	if _, err := r.groupRef(group.ID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put group", goerr.V("id", group.ID))
	}
	return nil
}

func (r *Firestore) GetGroup(ctx context.Context, id model.GroupID) (*model.Group, error) {
	snap, err := r.groupRef(id).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get group", goerr.V("id", id))
	}

	var doc groupDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode group document")
	}

	return &model.Group{
		ID:          id,
		Name:        doc.Name,
		Icon:        doc.Icon,
		Description: doc.Description,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func (r *Firestore) ListGroups(ctx context.Context) ([]*model.Group, error) {
	iter := r.client.Collection(groupCollection).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var groups []*model.Group
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate groups")
		}

		var doc groupDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode group document")
		}
		groups = append(groups, &model.Group{
			ID:          model.GroupID(snap.Ref.ID),
			Name:        doc.Name,
			Icon:        doc.Icon,
			Description: doc.Description,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return groups, nil
}

func (r *Firestore) DeleteGroup(ctx context.Context, id model.GroupID) error {
	// Delete subordinate documents first, then the group itself
	bw := r.client.BulkWriter(ctx)

	for _, col := range []*firestore.CollectionRef{
		r.groupRef(id).Collection(msgCollection),
		r.groupRef(id).Collection(stateCollection),
	} {
		iter := col.Documents(ctx)
		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to iterate documents for deletion")
			}
			if _, err := bw.Delete(snap.Ref); err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to schedule document deletion")
			}
		}
		iter.Stop()
	}

	if _, err := bw.Delete(r.groupRef(id)); err != nil {
		return goerr.Wrap(err, "failed to schedule group deletion")
	}
	bw.End()
	return nil
}

func (r *Firestore) AddMessage(ctx context.Context, groupID model.GroupID, msg *model.Message) (*model.Message, error) {
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

	doc := messageDoc{
		Text:      saved.Text,
		Type:      string(saved.Type),
		ReplyTo:   string(saved.ReplyTo),
		CreatedAt: saved.CreatedAt,
	}
	if saved.Author != nil {
		doc.Author = &authorDoc{
			ID:          string(saved.Author.ID),
			Name:        saved.Author.Name,
			IsAssistant: saved.Author.IsAssistant,
		}
	}

	ref := r.groupRef(groupID).Collection(msgCollection).Doc(string(saved.ID))
	if _, err := ref.Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to add message", goerr.V("group", groupID))
	}
	return saved, nil
}

func (r *Firestore) ListMessages(ctx context.Context, groupID model.GroupID, limit int) ([]*model.Message, error) {
	q := r.groupRef(groupID).Collection(msgCollection).Query.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var msgs []*model.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages")
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode message document")
		}

		msg := &model.Message{
			ID:        model.MessageID(snap.Ref.ID),
			Text:      doc.Text,
			Type:      model.MessageType(doc.Type),
			ReplyTo:   model.MessageID(doc.ReplyTo),
			CreatedAt: doc.CreatedAt,
		}
		if doc.Author != nil {
			msg.Author = &model.AuthorRef{
				ID:          model.ParticipantID(doc.Author.ID),
				Name:        doc.Author.Name,
				IsAssistant: doc.Author.IsAssistant,
			}
		}
		msgs = append(msgs, msg)
	}

	// Query is newest-first for the limit; callers expect chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *Firestore) rosterRef(groupID model.GroupID) *firestore.DocumentRef {
	return r.groupRef(groupID).Collection(stateCollection).Doc(rosterDocID)
}

func (r *Firestore) GetRoster(ctx context.Context, groupID model.GroupID) (*model.Roster, error) {
	snap, err := r.rosterRef(groupID).Get(ctx)
	if err != nil {
		// A group without a stored roster is not an error
		if snap != nil && !snap.Exists() {
			return model.NewRoster(), nil
		}
		return nil, goerr.Wrap(err, "failed to get roster", goerr.V("group", groupID))
	}

	var doc rosterDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode roster document")
	}

	roster := model.NewRoster()
	for _, p := range doc.Participants {
		participant, err := participantFromDoc(p)
		if err != nil {
			return nil, err
		}
		if err := roster.Add(participant); err != nil {
			return nil, goerr.Wrap(err, "duplicate participant in roster document")
		}
	}
	return roster, nil
}

func (r *Firestore) PutRoster(ctx context.Context, groupID model.GroupID, roster *model.Roster) error {
	doc := rosterDoc{}
	for _, p := range roster.Participants() {
		doc.Participants = append(doc.Participants, participantToDoc(p))
	}

	if _, err := r.rosterRef(groupID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put roster", goerr.V("group", groupID))
	}
	return nil
}

func participantToDoc(p model.Participant) participantDoc {
	switch v := p.(type) {
	case *model.Assistant:
		doc := participantDoc{
			Kind:        "assistant",
			ID:          string(v.ID),
			Name:        v.Name,
			Description: v.Description,
			Tone:        v.Persona.Tone,
			Expertise:   v.Persona.Expertise,
			Instruction: v.Persona.AdditionalInstructions,
		}
		for _, m := range v.MemoryBank {
			doc.MemoryBank = append(doc.MemoryBank, memoryDoc{
				ID:        string(m.ID),
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
			})
		}
		return doc
	default:
		return participantDoc{
			Kind: "user",
			ID:   string(p.ParticipantID()),
			Name: p.DisplayName(),
		}
	}
}

func participantFromDoc(doc participantDoc) (model.Participant, error) {
	switch doc.Kind {
	case "user":
		return &model.User{
			ID:   model.ParticipantID(doc.ID),
			Name: doc.Name,
		}, nil

	case "assistant":
		a := &model.Assistant{
			ID:          model.ParticipantID(doc.ID),
			Name:        doc.Name,
			Description: doc.Description,
			Persona: model.Persona{
				Tone:                   doc.Tone,
				Expertise:              doc.Expertise,
				AdditionalInstructions: doc.Instruction,
			},
		}
		for _, m := range doc.MemoryBank {
			a.MemoryBank = append(a.MemoryBank, &model.Memory{
				ID:        model.MemoryID(m.ID),
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
			})
		}
		return a, nil

	default:
		return nil, goerr.New("unknown participant kind", goerr.V("kind", doc.Kind))
	}
}

func (r *Firestore) PutAPIKey(ctx context.Context, key *model.APIKey) error {
	if key.ID == "" {
		return goerr.New("api key id is empty")
	}

	doc := apiKeyDoc{Name: key.Name, Secret: key.Secret}
	if _, err := r.client.Collection(apiKeyCollection).Doc(string(key.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put api key", goerr.V("name", key.Name))
	}
	return nil
}

func (r *Firestore) ListAPIKeys(ctx context.Context) ([]*model.APIKey, error) {
	iter := r.client.Collection(apiKeyCollection).Documents(ctx)
	defer iter.Stop()

	var keys []*model.APIKey
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate api keys")
		}

		var doc apiKeyDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode api key document")
		}
		keys = append(keys, &model.APIKey{
			ID:     model.APIKeyID(snap.Ref.ID),
			Name:   doc.Name,
			Secret: doc.Secret,
		})
	}
	return keys, nil
}

func (r *Firestore) DeleteAPIKey(ctx context.Context, id model.APIKeyID) error {
	if _, err := r.client.Collection(apiKeyCollection).Doc(string(id)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete api key", goerr.V("id", id))
	}
	return nil
}
