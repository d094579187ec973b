// Package handler exposes the credential ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"attestor/internal/ledger/models"
	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	IssueCertificate(ctx context.Context, caller domain.Address, req models.IssueRequest) (models.Certificate, error)
	IssueCertificatesBatch(ctx context.Context, caller domain.Address, hashes []domain.DocumentHash, students []domain.Address, metadataURIs []string, graduationYears []int) ([]models.Certificate, error)
	RevokeCertificate(ctx context.Context, caller domain.Actor, id domain.CertificateID, reason string) error
	GetCertificate(ctx context.Context, id domain.CertificateID) (models.Certificate, error)
	GetCertificateByHash(ctx context.Context, hash domain.DocumentHash) (models.Certificate, error)
	IsValidCertificate(ctx context.Context, hash domain.DocumentHash) (models.Validity, error)
	CertificatesByStudent(ctx context.Context, student domain.Address) ([]models.Certificate, error)
	CertificatesByInstitution(ctx context.Context, institution domain.Address, offset, limit int) ([]models.Certificate, error)
	TotalCertificates(ctx context.Context) (int, error)
}

type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{
		service:    service,
		logger:     logger,
		adminToken: adminToken,
	}
}

// Register mounts the ledger routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.handleIssue)
	r.Post("/certificates/batch", h.handleIssueBatch)
	r.Post("/certificates/{id}/revoke", h.handleRevoke)
	r.Get("/certificates", h.handleTotal)
	r.Get("/certificates/{id}", h.handleGetByID)
	r.Get("/certificates/hash/{hash}", h.handleGetByHash)
	r.Get("/certificates/hash/{hash}/valid", h.handleValidity)
	r.Get("/students/{wallet}/certificates", h.handleByStudent)
	r.Get("/institutions/{wallet}/certificates", h.handleByInstitution)

	r.Route("/admin/certificates", func(admin chi.Router) {
		admin.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		admin.Post("/{id}/revoke", h.handleAdminRevoke)
	})
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	issuer, err := domain.ParseAddress(req.InstitutionWallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid institution wallet"))
		return
	}
	issue, err := req.toModel()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	certificate, err := h.service.IssueCertificate(r.Context(), issuer, issue)
	if err != nil {
		h.logger.WarnContext(r.Context(), "issuance rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toCertificateResponse(certificate))
}

func (h *Handler) handleIssueBatch(w http.ResponseWriter, r *http.Request) {
	var req batchIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	issuer, err := domain.ParseAddress(req.InstitutionWallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid institution wallet"))
		return
	}
	hashes, students, err := req.parseEntries()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	certificates, err := h.service.IssueCertificatesBatch(r.Context(), issuer,
		hashes, students, req.MetadataURIs, req.GraduationYears)
	if err != nil {
		h.logger.WarnContext(r.Context(), "batch issuance rejected",
			"error", err.Error(),
			"size", len(req.DocumentHashes),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}

	responses := make([]certificateResponse, len(certificates))
	for i, certificate := range certificates {
		responses[i] = toCertificateResponse(certificate)
	}
	shared.WriteJSON(w, http.StatusCreated, batchIssueResponse{Certificates: responses})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.revoke(w, r, false)
}

func (h *Handler) handleAdminRevoke(w http.ResponseWriter, r *http.Request) {
	h.revoke(w, r, true)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request, admin bool) {
	id, err := parseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	wallet, err := domain.ParseAddress(req.CallerWallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid caller wallet"))
		return
	}
	caller := domain.NewActor(wallet)
	if admin {
		caller = domain.NewAdminActor(wallet)
	}

	if err := h.service.RevokeCertificate(r.Context(), caller, id, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalCertificates(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	certificate, err := h.service.GetCertificate(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCertificateResponse(certificate))
}

func (h *Handler) handleGetByHash(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseDocumentHash(chi.URLParam(r, "hash"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid document hash"))
		return
	}
	certificate, err := h.service.GetCertificateByHash(r.Context(), hash)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCertificateResponse(certificate))
}

func (h *Handler) handleValidity(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseDocumentHash(chi.URLParam(r, "hash"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid document hash"))
		return
	}
	validity, err := h.service.IsValidCertificate(r.Context(), hash)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, validityResponse{
		Valid:   validity.Valid,
		ID:      uint64(validity.ID),
		Revoked: validity.Revoked,
	})
}

func (h *Handler) handleByStudent(w http.ResponseWriter, r *http.Request) {
	student, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	certificates, err := h.service.CertificatesByStudent(r.Context(), student)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCertificateListResponse(certificates))
}

func (h *Handler) handleByInstitution(w http.ResponseWriter, r *http.Request) {
	institution, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	certificates, err := h.service.CertificatesByInstitution(r.Context(), institution, offset, limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCertificateListResponse(certificates))
}

func parseCertificateID(raw string) (domain.CertificateID, error) {
	id, err := domain.ParseCertificateID(raw)
	if err != nil {
		return domain.CertificateIDNone, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid certificate id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
