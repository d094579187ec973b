package store

import (
	"context"
	"strings"
	"sync"

	"attestor/internal/commitment/models"
	"attestor/pkg/platform/sentinel"
)

// InMemoryStore keeps commitments in a map for tests and development.
// Commitment keys are compared case-insensitively so hex casing cannot
// smuggle in a second binding for the same value.
type InMemoryStore struct {
	mu          sync.RWMutex
	commitments map[string]models.AuthCommitment
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		commitments: make(map[string]models.AuthCommitment),
	}
}

func normalize(commitment string) string {
	return strings.ToLower(commitment)
}

func (s *InMemoryStore) Create(_ context.Context, commitment models.AuthCommitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(commitment.Commitment)
	if _, exists := s.commitments[key]; exists {
		return sentinel.ErrConflict
	}
	s.commitments[key] = commitment
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, commitment string) (models.AuthCommitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.commitments[normalize(commitment)]
	if !exists {
		return models.AuthCommitment{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commitments), nil
}
