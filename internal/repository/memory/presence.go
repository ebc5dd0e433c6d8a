package memory

import (
	"context"
	"sync"

	"music_stream/internal/domain"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
)

// PresenceStore is the process-local presence registry. State is lost on restart.
type PresenceStore struct {
	mu      sync.Mutex
	records map[string]*domain.PresenceRecord
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{records: make(map[string]*domain.PresenceRecord)}
}

func (s *PresenceStore) Update(_ context.Context, userID string, fn repository.PresenceMutator) (*domain.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.records[userID].Clone())
	if next == nil {
		return nil, nil
	}
	next.UserID = userID
	s.records[userID] = next.Clone()
	return next, nil
}

func (s *PresenceStore) Get(_ context.Context, userID string) (*domain.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, apperrors.ErrStatusNotFound
	}
	return record.Clone(), nil
}

func (s *PresenceStore) List(_ context.Context) ([]*domain.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.PresenceRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Clone())
	}
	return out, nil
}

// Touch is a no-op; memory records never expire.
func (s *PresenceStore) Touch(context.Context, ...string) error {
	return nil
}
