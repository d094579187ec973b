package store

import (
	"context"
	"sync"

	"attestor/internal/upgrade/models"
	"attestor/pkg/domain"
)

// InMemoryStore keeps versions and history in maps for tests and
// development.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[models.Component]domain.SchemaVersion
	history  map[models.Component][]models.UpgradeHistoryEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		versions: make(map[models.Component]domain.SchemaVersion),
		history:  make(map[models.Component][]models.UpgradeHistoryEntry),
	}
}

func (s *InMemoryStore) CurrentVersion(_ context.Context, component models.Component) (domain.SchemaVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version, ok := s.versions[component]; ok {
		return version, nil
	}
	return models.InitialVersion, nil
}

func (s *InMemoryStore) AppendHistory(_ context.Context, component models.Component, entry models.UpgradeHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions[component] = entry.Version
	s.history[component] = append(s.history[component], entry)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, component models.Component) ([]models.UpgradeHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[component]
	out := make([]models.UpgradeHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}
