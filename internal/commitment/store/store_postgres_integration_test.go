//go:build integration

package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/commitment/models"
	"attestor/internal/commitment/store"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/testutil/containers"
)

const testCommitment = "0x2AF9c5e3a1b04d76f1e8b9c0d3a2518e6f4b7a9c0d1e2f3a4b5c6d7e8f9a0b1c"

type PostgresCommitmentSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresCommitmentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCommitmentSuite))
}

func (s *PostgresCommitmentSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresCommitmentSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "commitments")
	s.Require().NoError(err)
}

func (s *PostgresCommitmentSuite) TestRoundTrip() {
	ctx := context.Background()

	err := s.store.Create(ctx, models.AuthCommitment{
		Commitment:   testCommitment,
		Role:         domain.RoleStudent,
		ProofRef:     "digest-1",
		RegisteredAt: time.Now().UTC(),
	})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, testCommitment)
	s.Require().NoError(err)
	s.Equal(domain.RoleStudent, got.Role)
	s.Equal("digest-1", got.ProofRef)

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

// TestCaseInsensitiveKey verifies hex casing never splits or hides a
// registration: the key is normalized on both write and read.
func (s *PostgresCommitmentSuite) TestCaseInsensitiveKey() {
	ctx := context.Background()

	err := s.store.Create(ctx, models.AuthCommitment{
		Commitment:   testCommitment,
		Role:         domain.RoleEmployer,
		RegisteredAt: time.Now().UTC(),
	})
	s.Require().NoError(err)

	s.Run("different casing conflicts on create", func() {
		err := s.store.Create(ctx, models.AuthCommitment{
			Commitment:   strings.ToUpper(testCommitment[2:]),
			Role:         domain.RoleStudent,
			RegisteredAt: time.Now().UTC(),
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("different casing resolves on read", func() {
		got, err := s.store.Get(ctx, strings.ToLower(testCommitment))
		s.Require().NoError(err)
		s.Equal(domain.RoleEmployer, got.Role)
	})
}

func (s *PostgresCommitmentSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), "0xdeadbeef")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
