// Package entities tracks the last known state of external entities (sun,
// weather, thermostat) and dispatches on/off commands to targets. The real
// implementation rides on MQTT; fakes back the tests.
package entities

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"climate_guard/internal/models"
)

// Entities reporting this state are treated as unavailable.
const StateUnavailable = "unavailable"

// ChangeHandler is invoked on every state change of a watched entity.
// oldState/newState are nil when the entity was, or became, unavailable.
type ChangeHandler func(entityID string, oldState, newState *models.EntityState)

// Watcher delivers entity change notifications.
type Watcher interface {
	// Watch registers handler for the given entity ids and returns an
	// unsubscribe function.
	Watch(ids []string, handler ChangeHandler) (unsubscribe func())
}

type subscription struct {
	ids     map[string]struct{}
	handler ChangeHandler
}

// Store keeps the last reported state per entity and fans out changes to
// watchers. It satisfies the controller's StateReader and Watcher needs.
type Store struct {
	mu      sync.RWMutex
	states  map[string]models.EntityState
	subs    map[int]*subscription
	nextSub int
}

func NewStore() *Store {
	return &Store{
		states: make(map[string]models.EntityState),
		subs:   make(map[int]*subscription),
	}
}

// State returns the current state of an entity, or ok=false when the entity
// has never reported or is unavailable.
func (s *Store) State(entityID string) (models.EntityState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[entityID]
	return st, ok
}

// Watch registers handler for changes of the given entities.
func (s *Store) Watch(ids []string, handler ChangeHandler) func() {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscription{ids: set, handler: handler}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Set records a new entity state and notifies watchers synchronously.
func (s *Store) Set(st models.EntityState) {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	var oldState *models.EntityState
	if prev, ok := s.states[st.EntityID]; ok {
		p := prev
		oldState = &p
	}
	s.states[st.EntityID] = st
	handlers := s.handlersForLocked(st.EntityID)
	s.mu.Unlock()

	newCopy := st
	for _, h := range handlers {
		h(st.EntityID, oldState, &newCopy)
	}
}

// Clear marks an entity unavailable and notifies watchers.
func (s *Store) Clear(entityID string) {
	s.mu.Lock()
	prev, ok := s.states[entityID]
	if ok {
		delete(s.states, entityID)
	}
	handlers := s.handlersForLocked(entityID)
	s.mu.Unlock()

	var oldState *models.EntityState
	if ok {
		oldState = &prev
	}
	for _, h := range handlers {
		h(entityID, oldState, nil)
	}
}

func (s *Store) handlersForLocked(entityID string) []ChangeHandler {
	var out []ChangeHandler
	for _, sub := range s.subs {
		if _, ok := sub.ids[entityID]; ok {
			out = append(out, sub.handler)
		}
	}
	return out
}

// statePayload is the wire format of entity state messages:
// {"state": "sunny", "attributes": {"temperature": 21.5}}.
type statePayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// parseStatePayload decodes a state message for entityID. A payload whose
// state is empty or "unavailable" yields ok=false.
func parseStatePayload(entityID string, data []byte) (models.EntityState, bool, error) {
	var p statePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.EntityState{}, false, fmt.Errorf("decode state for %q: %w", entityID, err)
	}
	if p.State == "" || p.State == StateUnavailable {
		return models.EntityState{}, false, nil
	}
	return models.EntityState{
		EntityID:   entityID,
		State:      p.State,
		Attributes: p.Attributes,
		UpdatedAt:  time.Now().UTC(),
	}, true, nil
}
