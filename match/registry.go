package match

import "sync"

// Registry holds the live match table, scoped to just that concern — the
// rest of the shared state (pseudo registry, queues, stashed codes) lives
// in the server package, one level up, under its own lock.
type Registry struct {
	mu      sync.Mutex
	matches map[int64]*Match
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{matches: make(map[int64]*Match)}
}

// Add registers m under its ID.
func (r *Registry) Add(m *Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.ID] = m
}

// Get returns the match with the given ID, if live.
func (r *Registry) Get(id int64) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	return m, ok
}

// Remove evicts a finished match from the registry.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, id)
}

// FindByParticipant returns the live match pseudo is currently a side of,
// if any. Matches are not expected to number in the thousands per server
// instance, so a linear scan is adequate (ground: same trade-off the
// teacher accepts for matchmaking.Matchmaker.userIDToGame-less lookups).
func (r *Registry) FindByParticipant(pseudo string) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.HasParticipant(pseudo) {
			return m, true
		}
	}
	return nil, false
}
