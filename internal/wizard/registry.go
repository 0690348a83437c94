package wizard

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/oklog/ulid/v2"
)

// Registry holds the live sessions of a multi-client front end (HTTP API, MCP).
// Each session is still owned by exactly one client; the registry only maps ids.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	recommender Recommender
	language    i18n.Language
	observers   []Observer
	entropy     *ulid.MonotonicEntropy
}

// NewRegistry creates a registry whose sessions use rec and start in lang.
// Every observer is subscribed to every session created afterwards.
func NewRegistry(rec Recommender, lang i18n.Language, observers ...Observer) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		recommender: rec,
		language:    lang,
		observers:   observers,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Create starts a new session with a fresh ULID. opts are applied after the
// registry defaults, so WithLanguage overrides the registry language.
func (r *Registry) Create(opts ...Option) *Session {
	r.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
	opts = append([]Option{WithID(id), WithLanguage(r.language)}, opts...)
	s := NewSession(r.recommender, opts...)
	r.sessions[id] = s
	count := len(r.sessions)
	r.mu.Unlock()

	for _, obs := range r.observers {
		s.Subscribe(obs)
	}
	logger.Debug("registry: created session %s (%d live)", id, count)
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and removes the session with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	logger.Debug("registry: deleted session %s", id)
	return nil
}

// IDs returns the ids of all live sessions in creation order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	// ULIDs sort lexically by creation time
	sort.Strings(ids)
	return ids
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
