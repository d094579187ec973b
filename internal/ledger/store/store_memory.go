package store

import (
	"context"
	"sync"
	"time"

	"attestor/internal/ledger/models"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemoryStore keeps all certificate tables and indices behind one RWMutex,
// so a batch insert is atomic and every read observes a consistent snapshot.
type InMemoryStore struct {
	mu            sync.RWMutex
	nextID        domain.CertificateID
	certificates  map[domain.CertificateID]models.Certificate
	byHash        map[domain.DocumentHash]domain.CertificateID
	byInstitution map[domain.Address][]domain.CertificateID
	byStudent     map[domain.Address][]domain.CertificateID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		nextID:        1,
		certificates:  make(map[domain.CertificateID]models.Certificate),
		byHash:        make(map[domain.DocumentHash]domain.CertificateID),
		byInstitution: make(map[domain.Address][]domain.CertificateID),
		byStudent:     make(map[domain.Address][]domain.CertificateID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, certificate models.Certificate) (domain.CertificateID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHash[certificate.DocumentHash]; exists {
		return domain.CertificateIDNone, sentinel.ErrConflict
	}
	return s.apply(certificate), nil
}

func (s *InMemoryStore) InsertBatch(_ context.Context, certificates []models.Certificate) ([]domain.CertificateID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch against the ledger and against itself before
	// touching any state.
	seen := make(map[domain.DocumentHash]struct{}, len(certificates))
	for i, certificate := range certificates {
		if _, exists := s.byHash[certificate.DocumentHash]; exists {
			return nil, &DuplicateHashError{Index: i}
		}
		if _, dup := seen[certificate.DocumentHash]; dup {
			return nil, &DuplicateHashError{Index: i}
		}
		seen[certificate.DocumentHash] = struct{}{}
	}

	ids := make([]domain.CertificateID, len(certificates))
	for i, certificate := range certificates {
		ids[i] = s.apply(certificate)
	}
	return ids, nil
}

// apply assigns the next id and updates all indices. Callers hold the write
// lock.
func (s *InMemoryStore) apply(certificate models.Certificate) domain.CertificateID {
	id := s.nextID
	s.nextID++
	certificate.ID = id
	s.certificates[id] = certificate
	s.byHash[certificate.DocumentHash] = id
	s.byInstitution[certificate.IssuingInstitution] = append(s.byInstitution[certificate.IssuingInstitution], id)
	s.byStudent[certificate.StudentWallet] = append(s.byStudent[certificate.StudentWallet], id)
	return id
}

func (s *InMemoryStore) Get(_ context.Context, id domain.CertificateID) (models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if certificate, ok := s.certificates[id]; ok {
		return certificate, nil
	}
	return models.Certificate{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByHash(_ context.Context, hash domain.DocumentHash) (models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byHash[hash]; ok {
		return s.certificates[id], nil
	}
	return models.Certificate{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Revoke(_ context.Context, id domain.CertificateID, revokedAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	certificate, ok := s.certificates[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if certificate.Revoked {
		return sentinel.ErrInvalidState
	}
	certificate.Revoked = true
	certificate.RevokedAt = revokedAt
	certificate.RevocationReason = reason
	s.certificates[id] = certificate
	return nil
}

func (s *InMemoryStore) ListByStudent(_ context.Context, student domain.Address) ([]models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byStudent[student]
	out := make([]models.Certificate, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.certificates[id])
	}
	return out, nil
}

func (s *InMemoryStore) ListByInstitution(_ context.Context, institution domain.Address, offset, limit int) ([]models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byInstitution[institution]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []models.Certificate{}, nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]models.Certificate, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, s.certificates[id])
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certificates), nil
}
