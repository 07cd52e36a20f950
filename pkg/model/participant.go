package model

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type ParticipantID string

// NewParticipantID generates a new unique ParticipantID
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.New().String())
}

// Participant is either a human user or an AI assistant in a group.
// The two variants carry different data: only assistants have a persona
// and a memory bank.
type Participant interface {
	ParticipantID() ParticipantID
	DisplayName() string
	IsAssistant() bool
}

// User represents the human participant
type User struct {
	ID   ParticipantID
	Name string
}

func (u *User) ParticipantID() ParticipantID { return u.ID }
func (u *User) DisplayName() string          { return u.Name }
func (u *User) IsAssistant() bool            { return false }

// DefaultUser returns the built-in human participant
func DefaultUser() *User {
	return &User{ID: "human-user", Name: "You"}
}

// Assistant represents an AI participant with its persona and memory bank.
// The memory bank is ordered oldest first and is group-scoped: the same
// assistant added to two groups has two independent banks.
type Assistant struct {
	ID          ParticipantID
	Name        string
	Description string
	Persona     Persona
	MemoryBank  []*Memory
}

func (a *Assistant) ParticipantID() ParticipantID { return a.ID }
func (a *Assistant) DisplayName() string          { return a.Name }
func (a *Assistant) IsAssistant() bool            { return true }

// Clone returns a deep copy including the memory bank
func (a *Assistant) Clone() *Assistant {
	c := *a
	c.MemoryBank = make([]*Memory, len(a.MemoryBank))
	for i, m := range a.MemoryBank {
		cm := *m
		c.MemoryBank[i] = &cm
	}
	return &c
}

// Roster is the participant list of a group. The orchestrator reads a
// snapshot at turn start; mutations go through the group usecase and are
// persisted as one document overwrite.
type Roster struct {
	participants []Participant
}

func NewRoster(participants ...Participant) *Roster {
	return &Roster{participants: participants}
}

func (r *Roster) Participants() []Participant {
	return r.participants
}

// Assistants returns the AI participants in roster order
func (r *Roster) Assistants() []*Assistant {
	var assistants []*Assistant
	for _, p := range r.participants {
		if a, ok := p.(*Assistant); ok {
			assistants = append(assistants, a)
		}
	}
	return assistants
}

// Find returns the participant with the given ID, or nil
func (r *Roster) Find(id ParticipantID) Participant {
	for _, p := range r.participants {
		if p.ParticipantID() == id {
			return p
		}
	}
	return nil
}

// Assistant returns the assistant with the given ID, or nil
func (r *Roster) Assistant(id ParticipantID) *Assistant {
	if a, ok := r.Find(id).(*Assistant); ok {
		return a
	}
	return nil
}

// Add appends a participant. Duplicate IDs are rejected.
func (r *Roster) Add(p Participant) error {
	if r.Find(p.ParticipantID()) != nil {
		return goerr.New("participant already in roster", goerr.V("id", p.ParticipantID()))
	}
	r.participants = append(r.participants, p)
	return nil
}

// Remove deletes the participant with the given ID. Removing an unknown
// ID is a no-op.
func (r *Roster) Remove(id ParticipantID) {
	kept := r.participants[:0]
	for _, p := range r.participants {
		if p.ParticipantID() != id {
			kept = append(kept, p)
		}
	}
	r.participants = kept
}

// Clone returns a deep copy of the roster
func (r *Roster) Clone() *Roster {
	c := &Roster{participants: make([]Participant, len(r.participants))}
	for i, p := range r.participants {
		switch v := p.(type) {
		case *Assistant:
			c.participants[i] = v.Clone()
		case *User:
			u := *v
			c.participants[i] = &u
		default:
			c.participants[i] = p
		}
	}
	return c
}
