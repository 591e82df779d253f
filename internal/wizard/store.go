package wizard

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"caricagen/internal/domain"
)

// DefaultSessionTTL is the idle lifetime of a session.
const DefaultSessionTTL = 2 * time.Hour

// Store keeps sessions in memory and drops them after ttl without use.
type Store struct {
	engine   *Engine
	sessions *cache.Cache
}

// NewStore returns a store that creates sessions with engine.
func NewStore(engine *Engine, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{engine: engine, sessions: cache.New(ttl, ttl/2)}
}

// Create registers a new session.
func (s *Store) Create() *Session {
	sess := s.engine.NewSession()
	s.sessions.SetDefault(sess.ID(), sess)
	return sess
}

// Get returns the session and extends its lifetime. The renewal is a Replace,
// so a concurrent Delete is never undone.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	sess := v.(*Session)
	if err := s.sessions.Replace(id, sess, cache.DefaultExpiration); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

// Delete drops the session if present.
func (s *Store) Delete(id string) {
	s.sessions.Delete(id)
}

// Len reports how many live sessions the store holds.
func (s *Store) Len() int {
	return s.sessions.ItemCount()
}
