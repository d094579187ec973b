package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	identityservice "attestor/internal/identity/service"
	identitystore "attestor/internal/identity/store"
	ledgerservice "attestor/internal/ledger/service"
	"attestor/internal/ledger/store"
	"attestor/pkg/domain"
	"attestor/pkg/testutil"
)

const testAdminToken = "test-admin-token"

const (
	walletIssuer  = "0x1111111111111111111111111111111111111111"
	walletStudent = "0x5555555555555555555555555555555555555555"
	walletAdmin   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	hashDiploma = "0x0101010101010101010101010101010101010101010101010101010101010101"
	hashThesis  = "0x0202020202020202020202020202020202020202020202020202020202020202"
)

// =============================================================================
// Ledger Handler Test Suite
// =============================================================================

type LedgerHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestLedgerHandlerSuite(t *testing.T) {
	suite.Run(t, new(LedgerHandlerSuite))
}

func (s *LedgerHandlerSuite) SetupTest() {
	directory, err := identityservice.New(identitystore.NewInMemory())
	s.Require().NoError(err)

	ledger, err := ledgerservice.New(store.NewInMemory(), directory)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(ledger, logger, testAdminToken).Register(s.router)

	// Approved issuer for the suite.
	ctx := context.Background()
	issuer, err := domain.ParseAddress(walletIssuer)
	s.Require().NoError(err)
	admin, err := domain.ParseAddress(walletAdmin)
	s.Require().NoError(err)
	_, err = directory.RegisterInstitution(ctx, issuer, "MIT", "mit.edu")
	s.Require().NoError(err)
	s.Require().NoError(directory.ApproveInstitution(ctx, domain.NewAdminActor(admin), issuer))
}

func (s *LedgerHandlerSuite) issue(hash string) map[string]any {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates", map[string]any{
		"institution_wallet": walletIssuer,
		"document_hash":      hash,
		"student_wallet":     walletStudent,
		"graduation_year":    2024,
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var body map[string]any
	testutil.DecodeJSON(s.T(), rr, &body)
	return body
}

func (s *LedgerHandlerSuite) TestIssuanceAndQueries() {
	s.Run("issuance returns the certificate with id 1", func() {
		body := s.issue(hashDiploma)
		s.Equal(float64(1), body["id"])
		s.Equal(hashDiploma, body["document_hash"])
		s.Equal(false, body["revoked"])
	})

	s.Run("duplicate hash conflicts", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates", map[string]any{
			"institution_wallet": walletIssuer,
			"document_hash":      hashDiploma,
			"student_wallet":     walletStudent,
			"graduation_year":    2025,
		})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusConflict, rr.Code)
	})

	s.Run("lookup by id and by hash agree", func() {
		byID := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates/1"))
		s.Equal(http.StatusOK, byID.Code)

		byHash := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates/hash/"+hashDiploma))
		s.Equal(http.StatusOK, byHash.Code)
		s.JSONEq(byID.Body.String(), byHash.Body.String())
	})

	s.Run("validity endpoint", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates/hash/"+hashDiploma+"/valid"))
		s.Equal(http.StatusOK, rr.Code)
		var body map[string]any
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal(true, body["valid"])
		s.Equal(float64(1), body["id"])
		s.Equal(false, body["revoked"])
	})

	s.Run("unknown hash reads as invalid with id zero", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates/hash/"+hashThesis+"/valid"))
		s.Equal(http.StatusOK, rr.Code)
		var body map[string]any
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal(false, body["valid"])
		s.Equal(float64(0), body["id"])
	})

	s.Run("student listing", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/students/"+walletStudent+"/certificates"))
		s.Equal(http.StatusOK, rr.Code)
		var body map[string][]map[string]any
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Len(body["certificates"], 1)
	})

	s.Run("total", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates"))
		s.Equal(http.StatusOK, rr.Code)
		var body map[string]int
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Equal(1, body["total"])
	})
}

func (s *LedgerHandlerSuite) TestBatchIssuance() {
	s.Run("valid batch is created atomically", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/batch", map[string]any{
			"institution_wallet": walletIssuer,
			"document_hashes":    []string{hashDiploma, hashThesis},
			"student_wallets":    []string{walletStudent, walletStudent},
			"metadata_uris":      []string{"", ""},
			"graduation_years":   []int{2023, 2024},
		})
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
		var body map[string][]map[string]any
		testutil.DecodeJSON(s.T(), rr, &body)
		s.Len(body["certificates"], 2)
	})

	s.Run("bad entry aborts the whole batch", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/batch", map[string]any{
			"institution_wallet": walletIssuer,
			"document_hashes": []string{
				"0x0303030303030303030303030303030303030303030303030303030303030303",
				"0x0404040404040404040404040404040404040404040404040404040404040404",
			},
			"student_wallets":  []string{walletStudent, walletStudent},
			"metadata_uris":    []string{"", ""},
			"graduation_years": []int{2024, 1850},
		})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)

		total := testutil.DoRequest(s.router,
			testutil.NewRequest(s.T(), http.MethodGet, "/certificates"))
		var body map[string]int
		testutil.DecodeJSON(s.T(), total, &body)
		s.Equal(2, body["total"])
	})
}

func (s *LedgerHandlerSuite) TestRevocation() {
	s.issue(hashDiploma)

	s.Run("non-issuer cannot revoke", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/1/revoke", map[string]string{
			"caller_wallet": walletStudent,
			"reason":        "nope",
		})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("issuer revokes", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/1/revoke", map[string]string{
			"caller_wallet": walletIssuer,
			"reason":        "records error",
		})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusNoContent, rr.Code)
	})

	s.Run("second revocation conflicts even for the admin surface", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/certificates/1/revoke", map[string]string{
			"caller_wallet": walletAdmin,
			"reason":        "again",
		})
		testutil.WithAdminToken(req, testAdminToken)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusConflict, rr.Code)
	})

	s.Run("admin surface requires the token", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/certificates/1/revoke", map[string]string{
			"caller_wallet": walletAdmin,
		})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}
