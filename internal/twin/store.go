package twin

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Calendar is one connected calendar held by the fake booking server.
type Calendar struct {
	Integration string `json:"integration"`
	ExternalID  string `json:"externalId"`
	Name        string `json:"name,omitempty"`
	Selected    bool   `json:"selected"`
	Destination bool   `json:"destination,omitempty"`
}

func (c Calendar) key() string {
	return c.Integration + ":" + c.ExternalID
}

// RequestEntry records a call to the calendar endpoint.
type RequestEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Method      string    `json:"method"`
	Integration string    `json:"integration,omitempty"`
	ExternalID  string    `json:"externalId,omitempty"`
	Status      int       `json:"status"`
}

// MemoryStore holds all twin state.
type MemoryStore struct {
	mu        sync.RWMutex
	seed      []Calendar
	calendars map[string]Calendar
	requests  []RequestEntry
}

// NewMemoryStore creates a store preloaded with seed.
func NewMemoryStore(seed []Calendar) *MemoryStore {
	s := &MemoryStore{seed: append([]Calendar(nil), seed...)}
	s.Reset()
	return s
}

// List returns all calendars sorted by key.
func (s *MemoryStore) List() []Calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Calendar, 0, len(s.calendars))
	for _, c := range s.calendars {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// Get returns a single calendar.
func (s *MemoryStore) Get(integration, externalID string) (Calendar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendars[Calendar{Integration: integration, ExternalID: externalID}.key()]
	return c, ok
}

// Select sets the selected flag. Selecting an unknown calendar adds it;
// deselecting one reports false.
func (s *MemoryStore) Select(integration, externalID string, selected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := Calendar{Integration: integration, ExternalID: externalID}.key()
	c, ok := s.calendars[key]
	if !ok {
		if !selected {
			return false
		}
		c = Calendar{Integration: integration, ExternalID: externalID}
	}
	c.Selected = selected
	s.calendars[key] = c
	return true
}

// Record appends a request entry.
func (s *MemoryStore) Record(entry RequestEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.requests = append(s.requests, entry)
}

// Requests returns a copy of the request log.
func (s *MemoryStore) Requests() []RequestEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RequestEntry(nil), s.requests...)
}

// Reset restores the seed and clears the request log.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars = make(map[string]Calendar, len(s.seed))
	for _, c := range s.seed {
		c.Integration = strings.ToLower(strings.TrimSpace(c.Integration))
		s.calendars[c.key()] = c
	}
	s.requests = nil
}

type stateSnapshot struct {
	Calendars []Calendar     `json:"calendars"`
	Requests  []RequestEntry `json:"requests"`
}

// Snapshot returns the state served by /admin/state.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{Calendars: s.List(), Requests: s.Requests()}
}
