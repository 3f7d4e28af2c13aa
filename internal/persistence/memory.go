package persistence

import (
	"context"
	"encoding/json"
	"sync"

	"coachmedia/internal/domain/upload"
)

// MemoryStore is an in-process Store used in tests and when the service
// runs without Redis. It round-trips through JSON so its behavior matches
// RedisStore field-for-field.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, records []upload.FileRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) ([]upload.FileRecord, error) {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data == nil {
		return nil, nil
	}
	var records []upload.FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
