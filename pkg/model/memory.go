package model

import (
	"time"

	"github.com/google/uuid"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// Memory is one remembered fact of an assistant: a dense 1-2 sentence
// summary extracted from past conversation turns, or a manual entry.
type Memory struct {
	ID        MemoryID
	Content   string
	CreatedAt time.Time
}

func NewMemory(content string) *Memory {
	return &Memory{
		ID:        NewMemoryID(),
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// MemoryContents extracts the content strings of a bank in order
func MemoryContents(bank []*Memory) []string {
	contents := make([]string, len(bank))
	for i, m := range bank {
		contents[i] = m.Content
	}
	return contents
}
