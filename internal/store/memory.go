package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"server/internal/domain"
)

// MemoryStore implements Store in process memory. It backs local
// development when no Redis address is configured, and the package tests.
// Expiry is checked lazily on read, which matches the contract: callers
// only ever observe "not found".
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	lists   map[string][][]byte
}

type memoryEntry struct {
	data        []byte
	contentType string
	expiresAt   time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		lists:   make(map[string][][]byte),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.PutWithContentType(ctx, key, value, "", ttl)
}

func (s *MemoryStore) PutWithContentType(ctx context.Context, key string, value []byte, contentType string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = memoryEntry{
		data:        append([]byte(nil), value...),
		contentType: contentType,
		expiresAt:   expiresAt,
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, _, err := s.GetWithContentType(ctx, key)
	return val, err
}

func (s *MemoryStore) GetWithContentType(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return append([]byte(nil), entry.data...), entry.contentType, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	if entry, ok := s.live(key); ok {
		count, _ = strconv.ParseInt(string(entry.data), 10, 64)
	}
	count++
	entry := s.entries[key]
	entry.data = []byte(strconv.FormatInt(count, 10))
	s.entries[key] = entry
	return count, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok {
		return nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], append([]byte(nil), value...))
	return nil
}

func (s *MemoryStore) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if list := s.lists[key]; len(list) > 0 {
			head := list[0]
			s.lists[key] = list[1:]
			s.mu.Unlock()
			return head, nil
		}
		s.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, domain.ErrNotFound
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// live returns the entry for key if present and unexpired; callers hold mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}
