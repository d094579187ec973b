package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"attestor/internal/audit"
	identityservice "attestor/internal/identity/service"
	identitystore "attestor/internal/identity/store"
	"attestor/internal/ledger/models"
	"attestor/internal/ledger/store"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// =============================================================================
// Credential Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: the ledger carries the registry's defining
// correctness properties (hash uniqueness for the lifetime of the system,
// authorization gating at call time, batch atomicity, one-shot revocation).
// These are exercised here against the real directory service so suspension
// takes effect mid-suite exactly as it would in production.

type LedgerServiceSuite struct {
	suite.Suite
	ledgerStore *store.InMemoryStore
	directory   *identityservice.Service
	auditLog    *audit.InMemoryStore
	service     *Service

	admin   domain.Actor
	issuer  domain.Address
	student domain.Address
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.ledgerStore = store.NewInMemory()
	s.auditLog = audit.NewInMemoryStore()

	var err error
	s.directory, err = identityservice.New(identitystore.NewInMemory())
	s.Require().NoError(err)

	s.service, err = New(s.ledgerStore, s.directory,
		WithAuditPublisher(audit.NewPublisher(s.auditLog, nil)),
	)
	s.Require().NoError(err)

	s.admin = domain.NewAdminActor(testAddress(0xAA))
	s.issuer = testAddress(0x01)
	s.student = testAddress(0x51)

	// Register and approve the default issuer.
	ctx := context.Background()
	_, err = s.directory.RegisterInstitution(ctx, s.issuer, "MIT", "mit.edu")
	s.Require().NoError(err)
	s.Require().NoError(s.directory.ApproveInstitution(ctx, s.admin, s.issuer))
}

func testAddress(last byte) domain.Address {
	var addr domain.Address
	addr[0] = 0x22
	addr[domain.AddressLength-1] = last
	return addr
}

func testHash(last byte) domain.DocumentHash {
	var hash domain.DocumentHash
	hash[0] = 0x33
	hash[domain.DocumentHashLength-1] = last
	return hash
}

func (s *LedgerServiceSuite) issue(hash domain.DocumentHash) models.Certificate {
	certificate, err := s.service.IssueCertificate(context.Background(), s.issuer, models.IssueRequest{
		DocumentHash:   hash,
		StudentWallet:  s.student,
		GraduationYear: 2024,
	})
	s.Require().NoError(err)
	return certificate
}

func (s *LedgerServiceSuite) total() int {
	count, err := s.service.TotalCertificates(context.Background())
	s.Require().NoError(err)
	return count
}

// =============================================================================
// Issuance Tests
// =============================================================================

func (s *LedgerServiceSuite) TestIssueCertificate() {
	ctx := context.Background()

	s.Run("assigns ids from 1 and records the issuer", func() {
		first := s.issue(testHash(0x01))
		second := s.issue(testHash(0x02))
		s.Equal(domain.CertificateID(1), first.ID)
		s.Equal(domain.CertificateID(2), second.ID)
		s.Equal(s.issuer, first.IssuingInstitution)
		s.False(first.Revoked)
	})

	s.Run("increments the institution counter", func() {
		institution, err := s.directory.Institution(ctx, s.issuer)
		s.Require().NoError(err)
		s.Equal(uint64(2), institution.TotalCertificatesIssued)
	})

	s.Run("rejects validation failures", func() {
		_, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   domain.DocumentHash{},
			StudentWallet:  s.student,
			GraduationYear: 2024,
		})
		s.ErrorIs(err, models.ErrInvalidDocumentHash)

		_, err = s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   testHash(0x03),
			StudentWallet:  domain.Address{},
			GraduationYear: 2024,
		})
		s.ErrorIs(err, models.ErrInvalidStudentAddress)

		for _, year := range []int{1899, 2101, 0, -5} {
			_, err = s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
				DocumentHash:   testHash(0x03),
				StudentWallet:  s.student,
				GraduationYear: year,
			})
			s.ErrorIs(err, models.ErrInvalidGraduationYear, "year %d", year)
		}

		// Boundary years are accepted.
		for i, year := range []int{1900, 2100} {
			_, err = s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
				DocumentHash:   testHash(byte(0x10 + i)),
				StudentWallet:  s.student,
				GraduationYear: year,
			})
			s.NoError(err, "year %d", year)
		}
	})

	s.Run("empty metadata URI is allowed", func() {
		_, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   testHash(0x20),
			StudentWallet:  s.student,
			MetadataURI:    "",
			GraduationYear: 2024,
		})
		s.NoError(err)
	})
}

// Uniqueness: no two ids ever share a documentHash, regardless of student,
// institution, or prior revocation.
func (s *LedgerServiceSuite) TestDocumentHashUniqueness() {
	ctx := context.Background()
	hash := testHash(0x01)
	certificate := s.issue(hash)

	s.Run("same issuer cannot reissue", func() {
		_, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   hash,
			StudentWallet:  s.student,
			GraduationYear: 2025,
		})
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyExists)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("another issuer cannot reissue either", func() {
		other := testAddress(0x02)
		_, err := s.directory.RegisterInstitutionByAdmin(ctx, s.admin, other, "ETH", "ethz.ch")
		s.Require().NoError(err)

		_, err = s.service.IssueCertificate(ctx, other, models.IssueRequest{
			DocumentHash:   hash,
			StudentWallet:  testAddress(0x52),
			GraduationYear: 2024,
		})
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyExists)
	})

	s.Run("revocation does not release the hash", func() {
		s.Require().NoError(s.service.RevokeCertificate(ctx, s.admin, certificate.ID, "policy"))
		_, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   hash,
			StudentWallet:  s.student,
			GraduationYear: 2024,
		})
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyExists)
	})
}

// Authorization gating: issuance succeeds iff CanIssue holds at call time.
func (s *LedgerServiceSuite) TestAuthorizationGating() {
	ctx := context.Background()

	s.Run("unregistered caller is rejected", func() {
		_, err := s.service.IssueCertificate(ctx, testAddress(0x77), models.IssueRequest{
			DocumentHash:   testHash(0x01),
			StudentWallet:  s.student,
			GraduationYear: 2024,
		})
		s.Require().ErrorIs(err, models.ErrUnauthorizedIssuer)
	})

	s.Run("unapproved institution is rejected", func() {
		pending := testAddress(0x03)
		_, err := s.directory.RegisterInstitution(ctx, pending, "Pending U", "pending.edu")
		s.Require().NoError(err)

		_, err = s.service.IssueCertificate(ctx, pending, models.IssueRequest{
			DocumentHash:   testHash(0x02),
			StudentWallet:  s.student,
			GraduationYear: 2024,
		})
		s.Require().ErrorIs(err, models.ErrUnauthorizedIssuer)
	})

	s.Run("suspension blocks the very next issuance", func() {
		s.issue(testHash(0x04))
		s.Require().NoError(s.directory.SuspendInstitution(ctx, s.admin, s.issuer))

		_, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   testHash(0x05),
			StudentWallet:  s.student,
			GraduationYear: 2024,
		})
		s.Require().ErrorIs(err, models.ErrUnauthorizedIssuer)
	})

	s.Run("reactivation restores issuance for the same request", func() {
		s.Require().NoError(s.directory.ReactivateInstitution(ctx, s.admin, s.issuer))
		_, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
			DocumentHash:   testHash(0x05),
			StudentWallet:  s.student,
			GraduationYear: 2024,
		})
		s.NoError(err)
	})
}

// =============================================================================
// Batch Issuance Tests
// =============================================================================

func (s *LedgerServiceSuite) batchArgs(n int, start byte) ([]domain.DocumentHash, []domain.Address, []string, []int) {
	hashes := make([]domain.DocumentHash, n)
	students := make([]domain.Address, n)
	uris := make([]string, n)
	years := make([]int, n)
	for i := range hashes {
		hashes[i] = testHash(start + byte(i))
		students[i] = s.student
		years[i] = 2024
	}
	return hashes, students, uris, years
}

func (s *LedgerServiceSuite) TestBatchIssuance() {
	ctx := context.Background()

	s.Run("applies all entries in order", func() {
		hashes, students, uris, years := s.batchArgs(5, 0x01)
		certificates, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students, uris, years)
		s.Require().NoError(err)
		s.Require().Len(certificates, 5)
		for i, certificate := range certificates {
			s.Equal(domain.CertificateID(i+1), certificate.ID)
			s.Equal(hashes[i], certificate.DocumentHash)
		}
		s.Equal(5, s.total())

		institution, err := s.directory.Institution(ctx, s.issuer)
		s.Require().NoError(err)
		s.Equal(uint64(5), institution.TotalCertificatesIssued)
	})

	s.Run("batch of exactly 100 is accepted", func() {
		hashes, students, uris, years := s.batchArgs(100, 0x10)
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students, uris, years)
		s.Require().NoError(err)
		s.Equal(105, s.total())
	})
}

func (s *LedgerServiceSuite) TestBatchAtomicity() {
	ctx := context.Background()

	s.Run("empty batch fails with no side effects", func() {
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, nil, nil, nil, nil)
		s.Require().ErrorIs(err, models.ErrInvalidBatchSize)
		s.Equal(0, s.total())
	})

	s.Run("batch of 101 fails with no side effects", func() {
		hashes, students, uris, years := s.batchArgs(101, 0x01)
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students, uris, years)
		s.Require().ErrorIs(err, models.ErrInvalidBatchSize)
		s.Equal(0, s.total())
	})

	s.Run("length mismatch fails with the document hash identity", func() {
		hashes, students, uris, years := s.batchArgs(3, 0x01)
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students[:2], uris, years)
		s.Require().ErrorIs(err, models.ErrInvalidDocumentHash)
		s.Equal(0, s.total())
	})

	s.Run("invalid year mid-batch aborts everything", func() {
		hashes, students, uris, years := s.batchArgs(5, 0x01)
		years[2] = 1899
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students, uris, years)
		s.Require().ErrorIs(err, models.ErrInvalidGraduationYear)
		s.Contains(err.Error(), "batch entry 2")
		s.Equal(0, s.total())
	})

	s.Run("duplicate against the ledger aborts everything", func() {
		existing := s.issue(testHash(0x01))
		s.Equal(1, s.total())

		hashes, students, uris, years := s.batchArgs(4, 0x01)
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students, uris, years)
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyExists)
		s.Contains(err.Error(), "batch entry 0")
		s.Equal(1, s.total())

		// The surviving certificate is untouched.
		got, err := s.service.GetCertificate(ctx, existing.ID)
		s.Require().NoError(err)
		s.Equal(existing.DocumentHash, got.DocumentHash)
	})

	s.Run("duplicate within the batch aborts everything", func() {
		hashes, students, uris, years := s.batchArgs(4, 0x30)
		hashes[3] = hashes[1]
		_, err := s.service.IssueCertificatesBatch(ctx, s.issuer, hashes, students, uris, years)
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyExists)
		s.Contains(err.Error(), "batch entry 3")
		s.Equal(1, s.total())
	})

	s.Run("unauthorized caller leaves the ledger untouched", func() {
		hashes, students, uris, years := s.batchArgs(3, 0x40)
		_, err := s.service.IssueCertificatesBatch(ctx, testAddress(0x78), hashes, students, uris, years)
		s.Require().ErrorIs(err, models.ErrUnauthorizedIssuer)
		s.Equal(1, s.total())
	})
}

// =============================================================================
// Revocation Tests
// =============================================================================

func (s *LedgerServiceSuite) TestRevokeCertificate() {
	ctx := context.Background()
	certificate := s.issue(testHash(0x01))
	issuerActor := domain.NewActor(s.issuer)

	s.Run("unknown id fails", func() {
		err := s.service.RevokeCertificate(ctx, issuerActor, domain.CertificateID(999), "x")
		s.Require().ErrorIs(err, models.ErrCertificateNotFound)
	})

	s.Run("stranger cannot revoke", func() {
		err := s.service.RevokeCertificate(ctx, domain.NewActor(testAddress(0x79)), certificate.ID, "x")
		s.Require().ErrorIs(err, models.ErrNotCertificateIssuer)
	})

	s.Run("issuer revokes with a reason", func() {
		s.Require().NoError(s.service.RevokeCertificate(ctx, issuerActor, certificate.ID, "policy violation"))
		got, err := s.service.GetCertificate(ctx, certificate.ID)
		s.Require().NoError(err)
		s.True(got.Revoked)
		s.False(got.RevokedAt.IsZero())
		s.Equal("policy violation", got.RevocationReason)
	})

	s.Run("second revocation always fails", func() {
		err := s.service.RevokeCertificate(ctx, issuerActor, certificate.ID, "again")
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyRevoked)
		err = s.service.RevokeCertificate(ctx, s.admin, certificate.ID, "admin again")
		s.Require().ErrorIs(err, models.ErrCertificateAlreadyRevoked)
	})

	s.Run("admin override revokes someone else's certificate", func() {
		other := s.issue(testHash(0x02))
		s.Require().NoError(s.service.RevokeCertificate(ctx, s.admin, other.ID, ""))
		got, err := s.service.GetCertificate(ctx, other.ID)
		s.Require().NoError(err)
		s.True(got.Revoked)
		s.Empty(got.RevocationReason)
	})
}

// =============================================================================
// Query Tests
// =============================================================================

func (s *LedgerServiceSuite) TestValidityRoundTrip() {
	ctx := context.Background()
	hash := testHash(0x01)

	s.Run("unknown hash yields the zero validity", func() {
		validity, err := s.service.IsValidCertificate(ctx, hash)
		s.Require().NoError(err)
		s.Equal(models.Validity{Valid: false, ID: domain.CertificateIDNone, Revoked: false}, validity)
	})

	s.Run("issued hash is valid", func() {
		certificate := s.issue(hash)
		validity, err := s.service.IsValidCertificate(ctx, hash)
		s.Require().NoError(err)
		s.Equal(models.Validity{Valid: true, ID: certificate.ID, Revoked: false}, validity)
	})

	s.Run("revoked hash keeps its id but loses validity", func() {
		s.Require().NoError(s.service.RevokeCertificate(ctx, s.admin, domain.CertificateID(1), "policy"))
		validity, err := s.service.IsValidCertificate(ctx, hash)
		s.Require().NoError(err)
		s.Equal(models.Validity{Valid: false, ID: domain.CertificateID(1), Revoked: true}, validity)
	})
}

func (s *LedgerServiceSuite) TestQueries() {
	ctx := context.Background()

	s.Run("lookups for unknown records fail with not found", func() {
		_, err := s.service.GetCertificate(ctx, domain.CertificateID(5))
		s.Require().ErrorIs(err, models.ErrCertificateNotFound)
		_, err = s.service.GetCertificateByHash(ctx, testHash(0x09))
		s.Require().ErrorIs(err, models.ErrCertificateNotFound)
	})

	s.Run("empty listings are not errors", func() {
		byStudent, err := s.service.CertificatesByStudent(ctx, testAddress(0x60))
		s.Require().NoError(err)
		s.Empty(byStudent)

		byInstitution, err := s.service.CertificatesByInstitution(ctx, testAddress(0x61), 0, 10)
		s.Require().NoError(err)
		s.Empty(byInstitution)
	})

	s.Run("institution listing pages in issuance order", func() {
		for i := byte(0); i < 5; i++ {
			s.issue(testHash(0x01 + i))
		}
		page, err := s.service.CertificatesByInstitution(ctx, s.issuer, 1, 2)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.Equal(domain.CertificateID(2), page[0].ID)
		s.Equal(domain.CertificateID(3), page[1].ID)

		tail, err := s.service.CertificatesByInstitution(ctx, s.issuer, 4, 10)
		s.Require().NoError(err)
		s.Require().Len(tail, 1)
		s.Equal(domain.CertificateID(5), tail[0].ID)

		past, err := s.service.CertificatesByInstitution(ctx, s.issuer, 50, 10)
		s.Require().NoError(err)
		s.Empty(past)
	})

	s.Run("student listing returns every certificate for the wallet", func() {
		byStudent, err := s.service.CertificatesByStudent(ctx, s.student)
		s.Require().NoError(err)
		s.Len(byStudent, 5)
	})
}

// End-to-end scenario: register, approve, issue, validate, revoke.
func (s *LedgerServiceSuite) TestRegistryScenario() {
	ctx := context.Background()
	hash := testHash(0xE0)

	certificate, err := s.service.IssueCertificate(ctx, s.issuer, models.IssueRequest{
		DocumentHash:   hash,
		StudentWallet:  s.student,
		GraduationYear: 2024,
	})
	s.Require().NoError(err)
	s.Equal(domain.CertificateID(1), certificate.ID)
	s.Equal(1, s.total())

	validity, err := s.service.IsValidCertificate(ctx, hash)
	s.Require().NoError(err)
	s.Equal(models.Validity{Valid: true, ID: 1, Revoked: false}, validity)

	s.Require().NoError(s.service.RevokeCertificate(ctx, domain.NewActor(s.issuer), certificate.ID, "policy"))

	validity, err = s.service.IsValidCertificate(ctx, hash)
	s.Require().NoError(err)
	s.Equal(models.Validity{Valid: false, ID: 1, Revoked: true}, validity)
}

func (s *LedgerServiceSuite) TestAuditTrail() {
	ctx := context.Background()
	certificate := s.issue(testHash(0x01))
	s.Require().NoError(s.service.RevokeCertificate(ctx, s.admin, certificate.ID, "policy"))

	events := s.auditLog.All()
	s.Require().Len(events, 2)
	s.Equal(audit.ActionCertificateIssued, events[0].Action)
	s.Equal(audit.ActionCertificateRevoked, events[1].Action)
	s.Equal("policy", events[1].Reason)
}
