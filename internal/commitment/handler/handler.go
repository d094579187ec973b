// Package handler exposes commitment registration and login over HTTP.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attestor/internal/commitment/models"
	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Service defines the commitment registry operations the handler needs.
type Service interface {
	RegisterCommitment(ctx context.Context, commitment string, role domain.Role, proof []byte) (models.AuthCommitment, error)
	IsRegistered(ctx context.Context, commitment string) (bool, error)
	GetRole(ctx context.Context, commitment string) (domain.Role, error)
	Authenticate(ctx context.Context, commitment string, proof []byte) (string, error)
	Logout(ctx context.Context, sessionID string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
	auth    func(http.Handler) http.Handler
}

// New builds the handler. auth guards the session surface; pass the
// middleware built from the same token service that signs login tokens.
func New(service Service, logger *slog.Logger, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		auth:    auth,
	}
}

// Register mounts the authentication routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/commitments", h.handleRegister)
	r.Get("/auth/commitments/{commitment}", h.handleLookup)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/auth/session", h.handleSession)
		r.Post("/auth/logout", h.handleLogout)
	})
}

type registerRequest struct {
	Commitment string `json:"commitment"`
	Role       string `json:"role"`
	Proof      string `json:"proof"`
}

type registerResponse struct {
	Commitment   string    `json:"commitment"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, models.ErrInvalidRole)
		return
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.service.RegisterCommitment(r.Context(), req.Commitment, role, proof)
	if err != nil {
		h.logger.WarnContext(r.Context(), "commitment registration rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, registerResponse{
		Commitment:   record.Commitment,
		Role:         record.Role.String(),
		RegisteredAt: record.RegisteredAt,
	})
}

type lookupResponse struct {
	Registered bool   `json:"registered"`
	Role       string `json:"role"`
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	commitment := chi.URLParam(r, "commitment")

	registered, err := h.service.IsRegistered(r.Context(), commitment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), commitment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, lookupResponse{
		Registered: registered,
		Role:       role.String(),
	})
}

type loginRequest struct {
	Commitment string `json:"commitment"`
	Proof      string `json:"proof"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	token, err := h.service.Authenticate(r.Context(), req.Commitment, proof)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}

type sessionResponse struct {
	Commitment string `json:"commitment"`
	Role       string `json:"role"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, sessionResponse{
		Commitment: middleware.GetCommitment(r.Context()),
		Role:       middleware.GetRole(r.Context()),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeProof(raw string) ([]byte, error) {
	if raw == "" {
		return nil, models.ErrEmptyProof
	}
	proof, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "proof must be base64")
	}
	return proof, nil
}
