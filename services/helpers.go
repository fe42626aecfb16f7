package services

import (
	"errors"
	"sync"

	"github.com/Dosada05/worldcup-predictor/brackets"
)

// --- Общие хелперы ---

// Broadcaster pushes messages to websocket rooms. *brackets.Hub implements it.
type Broadcaster interface {
	BroadcastToRoom(room, msgType string, payload any)
}

// keyedMutex serialises work per user. Entries are removed once nobody holds
// or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key int) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// outcomeLabel classifies an operation error for metrics.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, brackets.ErrSubmissionLocked):
		return "locked"
	case errors.Is(err, brackets.ErrInvalidPermutation):
		return "invalid_permutation"
	case errors.Is(err, brackets.ErrSelectionFull):
		return "selection_full"
	case errors.Is(err, brackets.ErrNotYetResolvable):
		return "not_resolvable"
	case errors.Is(err, brackets.ErrIncompleteSelection):
		return "incomplete_selection"
	case errors.Is(err, brackets.ErrInvalidPick), errors.Is(err, brackets.ErrUnknownMatch), errors.Is(err, brackets.ErrUnknownTeam):
		return "invalid_pick"
	default:
		return "error"
	}
}

func countInvalidated(events []brackets.Event) int {
	n := 0
	for _, e := range events {
		if e.Type == brackets.EvtPickInvalidated {
			n++
		}
	}
	return n
}
