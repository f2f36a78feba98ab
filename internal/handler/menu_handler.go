package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"qrmenu/internal/model"
	"qrmenu/internal/service"
)

// MenuHandler handles menu list and item requests.
type MenuHandler struct {
	service service.MenuService
	logger  zerolog.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(service service.MenuService, logger zerolog.Logger) *MenuHandler {
	return &MenuHandler{
		service: service,
		logger:  logger.With().Str("handler", "menu").Logger(),
	}
}

// Lists handles GET /api/lists?adminId= requests.
func (h *MenuHandler) Lists(w http.ResponseWriter, r *http.Request) {
	adminID, ok := queryUUID(w, r, "adminId", h.logger)
	if !ok {
		return
	}

	lists, err := h.service.Lists(r.Context(), adminID)
	if err != nil {
		handleServiceError(w, err, "failed to retrieve lists", h.logger)
		return
	}
	if lists == nil {
		lists = []model.MenuList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// CreateList handles POST /api/lists requests.
func (h *MenuHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	var req model.CreateListRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	list, err := h.service.CreateList(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, err, "failed to create list", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// GetList handles GET /api/lists/{id} requests.
func (h *MenuHandler) GetList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.service.GetList(r.Context(), id)
	if err != nil {
		handleServiceError(w, err, "failed to retrieve list", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateList handles PUT /api/lists/{id} requests.
func (h *MenuHandler) UpdateList(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}
	var req model.UpdateListRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	list, err := h.service.UpdateList(r.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(w, err, "failed to update list", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteList handles DELETE /api/lists/{id} requests.
func (h *MenuHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteList(r.Context(), actor, id); err != nil {
		handleServiceError(w, err, "failed to delete list", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Items handles GET /api/menu requests. With listId it returns that list's
// items; otherwise adminId is required and every item of the admin is returned
// together with the lists.
func (h *MenuHandler) Items(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.URL.Query().Get("listId")) != "" {
		listID, ok := queryUUID(w, r, "listId", h.logger)
		if !ok {
			return
		}
		items, err := h.service.ItemsByList(r.Context(), listID)
		if err != nil {
			handleServiceError(w, err, "failed to retrieve items", h.logger)
			return
		}
		if items == nil {
			items = []model.MenuItem{}
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	if strings.TrimSpace(r.URL.Query().Get("adminId")) == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "listId or adminId is required", h.logger)
		return
	}
	adminID, ok := queryUUID(w, r, "adminId", h.logger)
	if !ok {
		return
	}

	resp, err := h.service.ItemsByAdmin(r.Context(), adminID)
	if err != nil {
		handleServiceError(w, err, "failed to retrieve items", h.logger)
		return
	}
	if resp.Items == nil {
		resp.Items = []model.MenuItem{}
	}
	if resp.Lists == nil {
		resp.Lists = []model.MenuList{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem handles POST /api/menu requests.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	var req model.CreateItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	item, err := h.service.CreateItem(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, err, "failed to create item", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// GetItem handles GET /api/menu/{id} requests.
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		handleServiceError(w, err, "failed to retrieve item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// UpdateItem handles PUT /api/menu/{id} requests.
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}
	var req model.UpdateItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	item, err := h.service.UpdateItem(r.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(w, err, "failed to update item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/menu/{id} requests.
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), actor, id); err != nil {
		handleServiceError(w, err, "failed to delete item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PublicMenu handles GET /api/public/menu/{username} requests.
func (h *MenuHandler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.PublicMenu(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err, "failed to retrieve menu", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}
