package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Documents are kept as their JSON
// encoding, so models must carry json tags matching their firestore tags.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	order       map[string][]string // insertion order per collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string][]byte),
		order:       make(map[string][]string),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, dst any) error {
	s.mu.RLock()
	raw, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, src any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[collection] = docs
	}
	if _, exists := docs[id]; !exists {
		s.order[collection] = append(s.order[collection], id)
	}
	docs[id] = raw
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, src any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, src); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(collection, id)
	return nil
}

func (s *MemoryStore) deleteLocked(collection, id string) {
	docs, ok := s.collections[collection]
	if !ok {
		return
	}
	if _, exists := docs[id]; !exists {
		return
	}
	delete(docs, id)

	ids := s.order[collection]
	for i, v := range ids {
		if v == id {
			s.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

func (s *MemoryStore) QueryLess(ctx context.Context, collection, field string, value int64, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, id := range s.order[collection] {
		if limit > 0 && len(docs) >= limit {
			break
		}
		raw := s.collections[collection][id]

		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		n, ok := fields[field].(float64)
		if !ok || n >= float64(value) {
			continue
		}

		body := raw
		docs = append(docs, Document{
			ID:     id,
			decode: func(dst any) error { return json.Unmarshal(body, dst) },
		})
	}
	return docs, nil
}

func (s *MemoryStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	if len(ids) > MaxBatchSize {
		return ErrBatchTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.deleteLocked(collection, id)
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

// Count returns the number of documents in a collection
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}
