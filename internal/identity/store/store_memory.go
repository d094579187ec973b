package store

import (
	"context"
	"strings"
	"sync"

	"attestor/internal/identity/models"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemoryStore keeps directory records behind a single RWMutex so every
// read observes a consistent snapshot of institutions, employers, and the
// email domain index.
type InMemoryStore struct {
	mu           sync.RWMutex
	institutions map[domain.Address]models.Institution
	employers    map[domain.Address]models.Employer
	emailDomains map[string]domain.Address
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		institutions: make(map[domain.Address]models.Institution),
		employers:    make(map[domain.Address]models.Employer),
		emailDomains: make(map[string]domain.Address),
	}
}

func (s *InMemoryStore) CreateInstitution(_ context.Context, institution models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.institutions[institution.Wallet]; exists {
		return sentinel.ErrConflict
	}
	key := normalizeDomain(institution.EmailDomain)
	if _, taken := s.emailDomains[key]; taken {
		return sentinel.ErrConflict
	}
	s.institutions[institution.Wallet] = institution
	s.emailDomains[key] = institution.Wallet
	return nil
}

func (s *InMemoryStore) GetInstitution(_ context.Context, wallet domain.Address) (models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if institution, ok := s.institutions[wallet]; ok {
		return institution, nil
	}
	return models.Institution{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateInstitution(_ context.Context, institution models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.institutions[institution.Wallet]; !ok {
		return sentinel.ErrNotFound
	}
	s.institutions[institution.Wallet] = institution
	return nil
}

func (s *InMemoryStore) EmailDomainTaken(_ context.Context, emailDomain string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.emailDomains[normalizeDomain(emailDomain)]
	return taken, nil
}

func (s *InMemoryStore) IncrementIssuedCount(_ context.Context, wallet domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	institution, ok := s.institutions[wallet]
	if !ok {
		return sentinel.ErrNotFound
	}
	institution.TotalCertificatesIssued++
	s.institutions[wallet] = institution
	return nil
}

func (s *InMemoryStore) CountInstitutions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.institutions), nil
}

func (s *InMemoryStore) CreateEmployer(_ context.Context, employer models.Employer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.employers[employer.Wallet]; exists {
		return sentinel.ErrConflict
	}
	s.employers[employer.Wallet] = employer
	return nil
}

func (s *InMemoryStore) GetEmployer(_ context.Context, wallet domain.Address) (models.Employer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if employer, ok := s.employers[wallet]; ok {
		return employer, nil
	}
	return models.Employer{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateEmployer(_ context.Context, employer models.Employer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employers[employer.Wallet]; !ok {
		return sentinel.ErrNotFound
	}
	s.employers[employer.Wallet] = employer
	return nil
}

func (s *InMemoryStore) CountEmployers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.employers), nil
}

func normalizeDomain(emailDomain string) string {
	return strings.ToLower(strings.TrimSpace(emailDomain))
}
