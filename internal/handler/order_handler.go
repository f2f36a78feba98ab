package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"qrmenu/internal/model"
	"qrmenu/internal/service"
)

// channelKinds are the kinds listed and deleted under /api/orders.
var channelKinds = []model.OrderKind{model.OrderKindWebsite, model.OrderKindWhatsApp}

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err, "failed to create order", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// CreateTable handles POST /api/table-orders requests.
func (h *OrderHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTableOrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.CreateTableOrder(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err, "failed to create table order", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders?adminId= requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	filter.Kinds = channelKinds
	h.list(w, r, filter)
}

// ListTable handles GET /api/table-orders?adminId=&tableNumber= requests.
func (h *OrderHandler) ListTable(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	table, ok := queryInt(w, r, "tableNumber", h.logger)
	if !ok {
		return
	}
	filter.Kinds = []model.OrderKind{model.OrderKindTable}
	filter.TableNumber = table
	h.list(w, r, filter)
}

// filter reads the common listing parameters. The adminId must be the
// session's own admin.
func (h *OrderHandler) filter(w http.ResponseWriter, r *http.Request) (model.OrderFilter, bool) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return model.OrderFilter{}, false
	}
	adminID, ok := queryUUID(w, r, "adminId", h.logger)
	if !ok {
		return model.OrderFilter{}, false
	}
	if adminID != actor {
		handleServiceError(w, model.ErrForbidden, "failed to retrieve orders", h.logger)
		return model.OrderFilter{}, false
	}

	filter := model.OrderFilter{AdminID: adminID}
	limit, ok := queryInt(w, r, "limit", h.logger)
	if !ok {
		return model.OrderFilter{}, false
	}
	offset, ok := queryInt(w, r, "offset", h.logger)
	if !ok {
		return model.OrderFilter{}, false
	}
	if limit != nil {
		filter.Limit = *limit
	}
	if offset != nil {
		filter.Offset = *offset
	}
	return filter, true
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, filter model.OrderFilter) {
	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err, "failed to retrieve orders", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Delete handles DELETE /api/orders/{id} requests.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, channelKinds...)
}

// DeleteTable handles DELETE /api/table-orders/{id} requests.
func (h *OrderHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, model.OrderKindTable)
}

func (h *OrderHandler) delete(w http.ResponseWriter, r *http.Request, kinds ...model.OrderKind) {
	actor, ok := sessionAdmin(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id, kinds...); err != nil {
		handleServiceError(w, err, "failed to delete order", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
