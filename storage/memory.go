package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/richinex/basetag/llm"
)

// InMemoryStorage implements ConversationStorage using an in-memory map.
// Data is lost when the process terminates.
type InMemoryStorage struct {
	mu      sync.RWMutex
	threads map[string][]llm.ChatMessage
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		threads: make(map[string][]llm.ChatMessage),
	}
}

// Save saves the history of a thread.
func (s *InMemoryStorage) Save(ctx context.Context, threadID string, history []llm.ChatMessage) error {
	copied := llm.CloneMessages(history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = copied
	return nil
}

// Load loads the history of a thread.
func (s *InMemoryStorage) Load(ctx context.Context, threadID string) ([]llm.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return llm.CloneMessages(s.threads[threadID]), nil
}

// Delete deletes the history of a thread.
func (s *InMemoryStorage) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, threadID)
	return nil
}

// ListSessions lists thread ids in sorted order.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]string, 0, len(s.threads))
	for id := range s.threads {
		threads = append(threads, id)
	}
	sort.Strings(threads)
	return threads, nil
}

// Exists checks if a thread exists.
func (s *InMemoryStorage) Exists(ctx context.Context, threadID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.threads[threadID]
	return ok, nil
}

var _ ConversationStorage = (*InMemoryStorage)(nil)
