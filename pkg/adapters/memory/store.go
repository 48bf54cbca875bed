package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/aretw0/conserje/pkg/domain"
)

// Store keeps guest sessions in process memory. Sessions are copied on the way
// in and out, so callers never share history slices with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	snap := sess.Snapshot()
	s.mu.Lock()
	s.sessions[sess.ID] = snap
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// List returns session ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	all := make([]*domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *domain.Session) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	ids := make([]string, len(all))
	for i, sess := range all {
		ids[i] = sess.ID
	}
	return ids, nil
}
