// Package bot implements the conversational front-end of the relay: the
// per-chat registration state machine, the Telegram transport, and the
// delivery gateway used by the alert pipeline.
//
// This file holds the ephemeral per-chat conversation state. The state is
// process-local and intentionally not persisted: a pending flow that is lost
// on restart simply requires the operator to re-issue the command.
package bot

import (
	"sync"
)

// StateKind enumerates the multi-step flows a chat can be in.
type StateKind int

const (
	// StateIdle means no flow is pending. Absent map entries are Idle.
	StateIdle StateKind = iota
	// StateAwaitingRegistration: /start was issued, waiting for identifier.
	StateAwaitingRegistration
	// StateAwaitingChange: /change was issued, waiting for new identifier.
	StateAwaitingChange
	// StateAwaitingDeleteConfirmation: /stop was issued, waiting for y/yes.
	StateAwaitingDeleteConfirmation
)

// State is a chat's pending flow. Address and ENS carry the existing
// registration captured when a change or delete flow started, so the
// follow-up message can act on it without a second lookup.
type State struct {
	Kind    StateKind
	Address string
	ENS     *string
}

// StateStore maps chatID to pending conversation state. It is an explicit,
// injectable object (not a package global) so the dispatcher can be unit
// tested in isolation and the store could later move to a shared cache
// without touching call sites.
//
// Keyed access is atomic per chat: two near-simultaneous messages from the
// same chat cannot interleave a read-modify-write on that chat's entry.
// This type is safe for concurrent use.
type StateStore struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewStateStore constructs an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[int64]State)}
}

// Get returns the pending state for chatID, or an Idle state when none is
// recorded.
func (s *StateStore) Get(chatID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[chatID]; ok {
		return st
	}
	return State{Kind: StateIdle}
}

// Set records st as the pending state for chatID, overwriting any previous
// entry ("last command wins").
func (s *StateStore) Set(chatID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = st
}

// Clear removes chatID's pending state, returning it to Idle.
func (s *StateStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}
