package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeAI     MessageType = "ai"
	MessageTypeSystem MessageType = "system"
)

// AuthorRef is a snapshot of the author at posting time. A message keeps
// resolving to a readable name even after the participant left the group.
type AuthorRef struct {
	ID          ParticipantID
	Name        string
	IsAssistant bool
}

// AuthorOf builds an author snapshot from a participant
func AuthorOf(p Participant) *AuthorRef {
	return &AuthorRef{
		ID:          p.ParticipantID(),
		Name:        p.DisplayName(),
		IsAssistant: p.IsAssistant(),
	}
}

// Message is one entry of a group's ordered log. ReplyTo is empty unless
// the message is a direct reply to a specific prior message.
type Message struct {
	ID        MessageID
	Text      string
	Type      MessageType
	Author    *AuthorRef
	ReplyTo   MessageID
	CreatedAt time.Time
}

// Validate checks the author/type invariants
func (m *Message) Validate() error {
	switch m.Type {
	case MessageTypeUser, MessageTypeAI:
		if m.Author == nil {
			return goerr.New("message requires an author", goerr.V("type", m.Type))
		}
	case MessageTypeSystem:
		if m.Author != nil {
			return goerr.New("system message must not have an author")
		}
		if m.ReplyTo != "" {
			return goerr.New("system message must not reply to a message")
		}
	default:
		return goerr.New("invalid message type", goerr.V("type", m.Type))
	}
	return nil
}

// Clone returns a shallow copy with a copied author snapshot
func (m *Message) Clone() *Message {
	c := *m
	if m.Author != nil {
		a := *m.Author
		c.Author = &a
	}
	return &c
}
