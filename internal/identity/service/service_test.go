package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"attestor/internal/audit"
	"attestor/internal/identity/models"
	"attestor/internal/identity/store"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// =============================================================================
// Identity Directory Service Test Suite
// =============================================================================
// Justification for unit tests: institution lifecycle transitions carry the
// authorization invariants the ledger depends on (CanIssue gating, domain
// uniqueness across suspended records, approval idempotence), and exercising
// suspension races through HTTP tests would be indirect and flaky.

type IdentityServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	auditLog *audit.InMemoryStore
	service  *Service

	admin  domain.Actor
	issuer domain.Address
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditLog = audit.NewInMemoryStore()

	var err error
	s.service, err = New(s.store,
		WithAuditPublisher(audit.NewPublisher(s.auditLog, nil)),
	)
	s.Require().NoError(err)

	s.admin = domain.NewAdminActor(testAddress(0xAA))
	s.issuer = testAddress(0x01)
}

func testAddress(last byte) domain.Address {
	var addr domain.Address
	addr[0] = 0x11
	addr[domain.AddressLength-1] = last
	return addr
}

// =============================================================================
// Registration Tests
// =============================================================================

func (s *IdentityServiceSuite) TestRegisterInstitution() {
	ctx := context.Background()

	s.Run("creates a pending record", func() {
		institution, err := s.service.RegisterInstitution(ctx, s.issuer, "MIT", "mit.edu")
		s.Require().NoError(err)
		s.False(institution.Verified)
		s.True(institution.Active)
		s.False(institution.CanIssue())
		s.Equal(uint64(0), institution.TotalCertificatesIssued)
	})

	s.Run("rejects a second record for the same wallet", func() {
		_, err := s.service.RegisterInstitution(ctx, s.issuer, "MIT Again", "mit-again.edu")
		s.Require().ErrorIs(err, models.ErrAlreadyRegistered)
	})

	s.Run("rejects a taken email domain even from another wallet", func() {
		_, err := s.service.RegisterInstitution(ctx, testAddress(0x02), "Fake MIT", "mit.edu")
		s.Require().ErrorIs(err, models.ErrDomainAlreadyRegistered)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects invalid input", func() {
		_, err := s.service.RegisterInstitution(ctx, testAddress(0x03), "", "empty-name.edu")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.RegisterInstitution(ctx, testAddress(0x03), "No Domain", "not a domain")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.RegisterInstitution(ctx, domain.Address{}, "Zero", "zero.edu")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *IdentityServiceSuite) TestRegisterInstitutionByAdmin() {
	ctx := context.Background()

	s.Run("requires the admin capability", func() {
		notAdmin := domain.NewActor(testAddress(0xBB))
		_, err := s.service.RegisterInstitutionByAdmin(ctx, notAdmin, s.issuer, "ETH", "ethz.ch")
		s.Require().ErrorIs(err, models.ErrAdminRequired)
	})

	s.Run("creates an auto-approved record", func() {
		institution, err := s.service.RegisterInstitutionByAdmin(ctx, s.admin, s.issuer, "ETH", "ethz.ch")
		s.Require().NoError(err)
		s.True(institution.Verified)
		s.True(institution.CanIssue())
	})

	s.Run("forbids registering the admin's own wallet", func() {
		_, err := s.service.RegisterInstitutionByAdmin(ctx, s.admin, s.admin.Address, "Self", "self.edu")
		s.Require().ErrorIs(err, models.ErrSelfRegistrationForbidden)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("email domain uniqueness applies to admin registration too", func() {
		_, err := s.service.RegisterInstitutionByAdmin(ctx, s.admin, testAddress(0x04), "ETH Clone", "ethz.ch")
		s.Require().ErrorIs(err, models.ErrDomainAlreadyRegistered)
	})
}

// =============================================================================
// Lifecycle Transition Tests
// =============================================================================

func (s *IdentityServiceSuite) TestApproveSuspendReactivate() {
	ctx := context.Background()
	_, err := s.service.RegisterInstitution(ctx, s.issuer, "MIT", "mit.edu")
	s.Require().NoError(err)

	s.Run("admin-only", func() {
		notAdmin := domain.NewActor(testAddress(0xBB))
		s.ErrorIs(s.service.ApproveInstitution(ctx, notAdmin, s.issuer), models.ErrAdminRequired)
		s.ErrorIs(s.service.SuspendInstitution(ctx, notAdmin, s.issuer), models.ErrAdminRequired)
		s.ErrorIs(s.service.ReactivateInstitution(ctx, notAdmin, s.issuer), models.ErrAdminRequired)
	})

	s.Run("unknown wallet fails with not found", func() {
		err := s.service.ApproveInstitution(ctx, s.admin, testAddress(0x77))
		s.Require().ErrorIs(err, models.ErrInstitutionNotFound)
	})

	s.Run("approve grants issuance", func() {
		s.Require().NoError(s.service.ApproveInstitution(ctx, s.admin, s.issuer))
		can, err := s.service.CanIssue(ctx, s.issuer)
		s.Require().NoError(err)
		s.True(can)
	})

	s.Run("approving twice is a no-op", func() {
		s.Require().NoError(s.service.ApproveInstitution(ctx, s.admin, s.issuer))
		can, err := s.service.CanIssue(ctx, s.issuer)
		s.Require().NoError(err)
		s.True(can)
	})

	s.Run("suspend blocks issuance immediately", func() {
		s.Require().NoError(s.service.SuspendInstitution(ctx, s.admin, s.issuer))
		can, err := s.service.CanIssue(ctx, s.issuer)
		s.Require().NoError(err)
		s.False(can)
	})

	s.Run("reactivate restores issuance", func() {
		s.Require().NoError(s.service.ReactivateInstitution(ctx, s.admin, s.issuer))
		can, err := s.service.CanIssue(ctx, s.issuer)
		s.Require().NoError(err)
		s.True(can)
	})
}

func (s *IdentityServiceSuite) TestCanIssue() {
	ctx := context.Background()

	s.Run("unknown wallet cannot issue and is not an error", func() {
		can, err := s.service.CanIssue(ctx, testAddress(0x55))
		s.Require().NoError(err)
		s.False(can)
	})

	s.Run("registered but unapproved wallet cannot issue", func() {
		_, err := s.service.RegisterInstitution(ctx, s.issuer, "MIT", "mit.edu")
		s.Require().NoError(err)
		can, err := s.service.CanIssue(ctx, s.issuer)
		s.Require().NoError(err)
		s.False(can)
	})
}

func (s *IdentityServiceSuite) TestIncrementIssuedCount() {
	ctx := context.Background()
	_, err := s.service.RegisterInstitution(ctx, s.issuer, "MIT", "mit.edu")
	s.Require().NoError(err)

	s.Require().NoError(s.service.IncrementIssuedCount(ctx, s.issuer))
	s.Require().NoError(s.service.IncrementIssuedCount(ctx, s.issuer))

	institution, err := s.service.Institution(ctx, s.issuer)
	s.Require().NoError(err)
	s.Equal(uint64(2), institution.TotalCertificatesIssued)

	s.ErrorIs(s.service.IncrementIssuedCount(ctx, testAddress(0x66)), models.ErrInstitutionNotFound)
}

// =============================================================================
// Employer Tests
// =============================================================================

func (s *IdentityServiceSuite) TestEmployerLifecycle() {
	ctx := context.Background()
	wallet := testAddress(0x21)

	s.Run("register", func() {
		employer, err := s.service.RegisterEmployer(ctx, wallet, "Acme GmbH", "DE123456789")
		s.Require().NoError(err)
		s.True(employer.Active)
	})

	s.Run("double registration conflicts", func() {
		_, err := s.service.RegisterEmployer(ctx, wallet, "Acme Again", "DE000")
		s.Require().ErrorIs(err, models.ErrEmployerAlreadyRegistered)
	})

	s.Run("update replaces mutable fields", func() {
		employer, err := s.service.UpdateEmployer(ctx, wallet, "Acme AG", "CHE-999")
		s.Require().NoError(err)
		s.Equal("Acme AG", employer.CompanyName)
		s.Equal("CHE-999", employer.VATNumber)
	})

	s.Run("update of unknown employer fails", func() {
		_, err := s.service.UpdateEmployer(ctx, testAddress(0x22), "Ghost Inc", "")
		s.Require().ErrorIs(err, models.ErrEmployerNotFound)
	})
}

// =============================================================================
// Audit Emission Tests
// =============================================================================

func (s *IdentityServiceSuite) TestAuditTrail() {
	ctx := context.Background()
	_, err := s.service.RegisterInstitution(ctx, s.issuer, "MIT", "mit.edu")
	s.Require().NoError(err)
	s.Require().NoError(s.service.ApproveInstitution(ctx, s.admin, s.issuer))
	s.Require().NoError(s.service.SuspendInstitution(ctx, s.admin, s.issuer))

	events := s.auditLog.All()
	s.Require().Len(events, 3)
	s.Equal(audit.ActionInstitutionRegistered, events[0].Action)
	s.Equal(audit.ActionInstitutionApproved, events[1].Action)
	s.Equal(audit.ActionInstitutionSuspended, events[2].Action)
	s.Equal(s.issuer.String(), events[2].Subject)
	s.Equal(s.admin.Address.String(), events[2].Actor)
}
