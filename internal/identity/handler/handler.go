// Package handler exposes the institution and employer directory over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attestor/internal/identity/models"
	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Service defines the directory operations the handler needs.
type Service interface {
	RegisterInstitution(ctx context.Context, caller domain.Address, name, emailDomain string) (models.Institution, error)
	RegisterInstitutionByAdmin(ctx context.Context, admin domain.Actor, wallet domain.Address, name, emailDomain string) (models.Institution, error)
	ApproveInstitution(ctx context.Context, admin domain.Actor, wallet domain.Address) error
	SuspendInstitution(ctx context.Context, admin domain.Actor, wallet domain.Address) error
	ReactivateInstitution(ctx context.Context, admin domain.Actor, wallet domain.Address) error
	CanIssue(ctx context.Context, wallet domain.Address) (bool, error)
	Institution(ctx context.Context, wallet domain.Address) (models.Institution, error)
	RegisterEmployer(ctx context.Context, caller domain.Address, companyName, vatNumber string) (models.Employer, error)
	UpdateEmployer(ctx context.Context, caller domain.Address, companyName, vatNumber string) (models.Employer, error)
	Employer(ctx context.Context, wallet domain.Address) (models.Employer, error)
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

// Register mounts the directory routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/institutions", h.handleRegisterInstitution)
	r.Get("/institutions/{wallet}", h.handleGetInstitution)
	r.Get("/institutions/{wallet}/can-issue", h.handleCanIssue)

	r.Post("/employers", h.handleRegisterEmployer)
	r.Put("/employers/{wallet}", h.handleUpdateEmployer)
	r.Get("/employers/{wallet}", h.handleGetEmployer)

	r.Route("/admin/institutions", func(admin chi.Router) {
		admin.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		admin.Post("/", h.handleAdminRegisterInstitution)
		admin.Post("/{wallet}/approve", h.transition(h.service.ApproveInstitution))
		admin.Post("/{wallet}/suspend", h.transition(h.service.SuspendInstitution))
		admin.Post("/{wallet}/reactivate", h.transition(h.service.ReactivateInstitution))
	})
}

func (h *Handler) handleRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	var req registerInstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	wallet, err := domain.ParseAddress(req.Wallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}

	institution, err := h.service.RegisterInstitution(r.Context(), wallet, req.Name, req.EmailDomain)
	if err != nil {
		h.logger.WarnContext(r.Context(), "institution registration rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toInstitutionResponse(institution))
}

func (h *Handler) handleAdminRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	var req adminRegisterInstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	admin, err := adminActor(req.AdminWallet)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	wallet, err := domain.ParseAddress(req.Wallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}

	institution, err := h.service.RegisterInstitutionByAdmin(r.Context(), admin, wallet, req.Name, req.EmailDomain)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toInstitutionResponse(institution))
}

// transition adapts the three admin lifecycle operations to one handler
// shape.
func (h *Handler) transition(apply func(context.Context, domain.Actor, domain.Address) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
			return
		}
		var req adminActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		admin, err := adminActor(req.AdminWallet)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		if err := apply(r.Context(), admin, wallet); err != nil {
			shared.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleGetInstitution(w http.ResponseWriter, r *http.Request) {
	wallet, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	institution, err := h.service.Institution(r.Context(), wallet)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInstitutionResponse(institution))
}

func (h *Handler) handleCanIssue(w http.ResponseWriter, r *http.Request) {
	wallet, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	canIssue, err := h.service.CanIssue(r.Context(), wallet)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, canIssueResponse{CanIssue: canIssue})
}

func (h *Handler) handleRegisterEmployer(w http.ResponseWriter, r *http.Request) {
	var req employerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	wallet, err := domain.ParseAddress(req.Wallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	employer, err := h.service.RegisterEmployer(r.Context(), wallet, req.CompanyName, req.VATNumber)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toEmployerResponse(employer))
}

func (h *Handler) handleUpdateEmployer(w http.ResponseWriter, r *http.Request) {
	wallet, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	var req employerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	employer, err := h.service.UpdateEmployer(r.Context(), wallet, req.CompanyName, req.VATNumber)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEmployerResponse(employer))
}

func (h *Handler) handleGetEmployer(w http.ResponseWriter, r *http.Request) {
	wallet, err := domain.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet"))
		return
	}
	employer, err := h.service.Employer(r.Context(), wallet)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEmployerResponse(employer))
}

func adminActor(raw string) (domain.Actor, error) {
	wallet, err := domain.ParseAddress(raw)
	if err != nil {
		return domain.Actor{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid admin wallet")
	}
	return domain.NewAdminActor(wallet), nil
}
