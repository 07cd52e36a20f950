package memorybank

import (
	"sync"

	"github.com/m-mizutani/banter/pkg/model"
)

// bankLocks serializes roster read-modify-write cycles per group. The
// roster is stored as one document holding every assistant's bank, so
// concurrent edits to different assistants in the same group would
// overwrite each other. Groups are fully independent.
type bankLocks struct {
	mu    sync.Mutex
	locks map[model.GroupID]*sync.Mutex
}

func newBankLocks() *bankLocks {
	return &bankLocks{locks: make(map[model.GroupID]*sync.Mutex)}
}

func (l *bankLocks) lock(groupID model.GroupID) func() {
	l.mu.Lock()
	m, ok := l.locks[groupID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[groupID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
