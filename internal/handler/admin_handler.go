package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"qrmenu/internal/model"
	"qrmenu/internal/service"
)

// AdminHandler handles tenant management and profile requests.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin").Logger(),
	}
}

// List handles GET /api/admins requests.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err, "failed to retrieve admins", h.logger)
		return
	}
	if admins == nil {
		admins = []model.Admin{}
	}
	writeJSON(w, http.StatusOK, admins)
}

// Create handles POST /api/admins requests.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAdminRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	admin, err := h.service.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err, "failed to create admin", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

// GetByID handles GET /api/admins/{id} requests.
func (h *AdminHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	admin, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err, "failed to retrieve admin", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// Update handles PATCH /api/admins/{id} requests made with the operator key.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}
	var req model.AdminUpdate
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	admin, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, err, "failed to update admin", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// UpdateProfile handles PUT /api/admins/{id}. Owners may only edit themselves.
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}
	if id != actor {
		handleServiceError(w, model.ErrForbidden, "failed to update profile", h.logger)
		return
	}

	var req model.ProfileUpdateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	admin, err := h.service.UpdateProfile(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, err, "failed to update profile", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// Delete handles DELETE /api/admins/{id} requests.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err, "failed to delete admin", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetPublic handles GET /api/public/admin/{username} requests.
func (h *AdminHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.GetPublic(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err, "failed to retrieve admin", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}
