//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/ledger/models"
	"attestor/internal/ledger/store"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "certificates")
	s.Require().NoError(err)
}

func testAddress(fill byte) domain.Address {
	var addr domain.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func testHash(fill byte) domain.DocumentHash {
	var hash domain.DocumentHash
	for i := range hash {
		hash[i] = fill
	}
	return hash
}

func certificate(hash domain.DocumentHash) models.Certificate {
	return models.Certificate{
		DocumentHash:       hash,
		StudentWallet:      testAddress(0x05),
		IssuingInstitution: testAddress(0x01),
		GraduationYear:     2024,
		IssueDate:          time.Now().UTC(),
	}
}

func (s *PostgresLedgerSuite) TestInsertRoundTrip() {
	ctx := context.Background()

	id, err := s.store.Insert(ctx, certificate(testHash(0xA1)))
	s.Require().NoError(err)
	s.Equal(domain.CertificateID(1), id)

	got, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(testHash(0xA1), got.DocumentHash)
	s.Equal(2024, got.GraduationYear)
	s.False(got.Revoked)

	byHash, err := s.store.GetByHash(ctx, testHash(0xA1))
	s.Require().NoError(err)
	s.Equal(got.ID, byHash.ID)
}

func (s *PostgresLedgerSuite) TestDuplicateHashConflicts() {
	ctx := context.Background()

	_, err := s.store.Insert(ctx, certificate(testHash(0xA1)))
	s.Require().NoError(err)

	_, err = s.store.Insert(ctx, certificate(testHash(0xA1)))
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestConcurrentSameHash verifies the unique index under a write race:
// exactly one insert of the same hash wins.
func (s *PostgresLedgerSuite) TestConcurrentSameHash() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Insert(ctx, certificate(testHash(0xEE)))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one insert should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresLedgerSuite) TestBatchAtomicity() {
	ctx := context.Background()

	_, err := s.store.Insert(ctx, certificate(testHash(0x01)))
	s.Require().NoError(err)

	s.Run("colliding entry rolls back the whole batch", func() {
		batch := []models.Certificate{
			certificate(testHash(0x10)),
			certificate(testHash(0x01)), // already on the ledger
			certificate(testHash(0x11)),
		}
		_, err := s.store.InsertBatch(ctx, batch)
		var dup *store.DuplicateHashError
		s.Require().ErrorAs(err, &dup)
		s.Equal(1, dup.Index)
		s.ErrorIs(err, sentinel.ErrConflict)

		count, err := s.store.Count(ctx)
		s.Require().NoError(err)
		s.Equal(1, count, "no batch entry should persist")
	})

	s.Run("clean batch allocates sequential ids", func() {
		batch := []models.Certificate{
			certificate(testHash(0x20)),
			certificate(testHash(0x21)),
			certificate(testHash(0x22)),
		}
		ids, err := s.store.InsertBatch(ctx, batch)
		s.Require().NoError(err)
		s.Require().Len(ids, 3)
		for i := 1; i < len(ids); i++ {
			s.Equal(ids[i-1]+1, ids[i])
		}
	})
}

func (s *PostgresLedgerSuite) TestRevocation() {
	ctx := context.Background()
	id, err := s.store.Insert(ctx, certificate(testHash(0xA1)))
	s.Require().NoError(err)

	s.Run("unknown id", func() {
		err := s.store.Revoke(ctx, domain.CertificateID(9999), time.Now(), "x")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("first revocation persists the reason", func() {
		revokedAt := time.Now().UTC().Truncate(time.Microsecond)
		err := s.store.Revoke(ctx, id, revokedAt, "records error")
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, id)
		s.Require().NoError(err)
		s.True(got.Revoked)
		s.Equal("records error", got.RevocationReason)
		s.WithinDuration(revokedAt, got.RevokedAt, time.Second)
	})

	s.Run("second revocation is invalid state", func() {
		err := s.store.Revoke(ctx, id, time.Now(), "again")
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PostgresLedgerSuite) TestListings() {
	ctx := context.Background()
	issuer := testAddress(0x01)

	for i := 0; i < 5; i++ {
		cert := certificate(testHash(byte(0x30 + i)))
		_, err := s.store.Insert(ctx, cert)
		s.Require().NoError(err)
	}

	s.Run("student listing is ordered by id", func() {
		certs, err := s.store.ListByStudent(ctx, testAddress(0x05))
		s.Require().NoError(err)
		s.Require().Len(certs, 5)
		for i := 1; i < len(certs); i++ {
			s.Less(certs[i-1].ID, certs[i].ID)
		}
	})

	s.Run("institution pagination", func() {
		page, err := s.store.ListByInstitution(ctx, issuer, 1, 2)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.Equal(domain.CertificateID(2), page[0].ID)
		s.Equal(domain.CertificateID(3), page[1].ID)
	})

	s.Run("offset past the end is empty", func() {
		page, err := s.store.ListByInstitution(ctx, issuer, 50, 10)
		s.Require().NoError(err)
		s.Empty(page)
	})
}

// TestIDsSurviveRollback verifies ids are never reused even when the
// allocating transaction rolls back; gaps are acceptable.
func (s *PostgresLedgerSuite) TestIDsSurviveRollback() {
	ctx := context.Background()

	first, err := s.store.Insert(ctx, certificate(testHash(0x40)))
	s.Require().NoError(err)

	_, err = s.store.InsertBatch(ctx, []models.Certificate{
		certificate(testHash(0x41)),
		certificate(testHash(0x40)), // forces rollback
	})
	s.Require().Error(err)

	next, err := s.store.Insert(ctx, certificate(testHash(0x42)))
	s.Require().NoError(err)
	s.Greater(next, first, "ids keep increasing")

	for i := first; i < next; i++ {
		if i == first {
			continue
		}
		_, err := s.store.Get(ctx, i)
		s.ErrorIs(err, sentinel.ErrNotFound, fmt.Sprintf("id %d should be a gap", i))
	}
}
