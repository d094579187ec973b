// Package handler exposes the upgrade controller over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	"attestor/internal/upgrade/models"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Service defines the upgrade operations the handler needs.
type Service interface {
	Upgrade(ctx context.Context, admin domain.Actor, component models.Component, implementationRef, notes string) (models.UpgradeHistoryEntry, error)
	Version(ctx context.Context, component models.Component) (domain.SchemaVersion, error)
	History(ctx context.Context, component models.Component) ([]models.UpgradeHistoryEntry, error)
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

// Register mounts the upgrade routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/components/{component}/version", h.handleVersion)
	r.Get("/components/{component}/history", h.handleHistory)

	r.Route("/admin/components", func(admin chi.Router) {
		admin.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		admin.Post("/{component}/upgrade", h.handleUpgrade)
	})
}

type upgradeRequest struct {
	AdminWallet       string `json:"admin_wallet"`
	ImplementationRef string `json:"implementation_ref"`
	Notes             string `json:"notes"`
}

type historyEntryResponse struct {
	Version           string    `json:"version"`
	Timestamp         time.Time `json:"timestamp"`
	Upgrader          string    `json:"upgrader"`
	ImplementationRef string    `json:"implementation_ref"`
	Notes             string    `json:"notes,omitempty"`
}

func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	component := models.Component(chi.URLParam(r, "component"))

	var req upgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	wallet, err := domain.ParseAddress(req.AdminWallet)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid admin wallet"))
		return
	}

	entry, err := h.service.Upgrade(r.Context(), domain.NewAdminActor(wallet), component, req.ImplementationRef, req.Notes)
	if err != nil {
		h.logger.WarnContext(r.Context(), "upgrade rejected",
			"component", string(component),
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toHistoryEntryResponse(entry))
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	component := models.Component(chi.URLParam(r, "component"))
	version, err := h.service.Version(r.Context(), component)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"version": version.String()})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	component := models.Component(chi.URLParam(r, "component"))
	entries, err := h.service.History(r.Context(), component)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	responses := make([]historyEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = toHistoryEntryResponse(entry)
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]historyEntryResponse{"history": responses})
}

func toHistoryEntryResponse(entry models.UpgradeHistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		Version:           entry.Version.String(),
		Timestamp:         entry.Timestamp,
		Upgrader:          entry.Upgrader.ChecksumString(),
		ImplementationRef: entry.ImplementationRef,
		Notes:             entry.Notes,
	}
}
