package registry

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a plain map. It backs tests and carries
// no durability: every code is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]MediaRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]MediaRecord)}
}

func (s *MemoryStore) Insert(_ context.Context, rec *MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Code]; exists {
		return ErrCodeTaken
	}
	s.records[rec.Code] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (*MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}
