package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qrmenu/internal/model"
	"qrmenu/internal/pricing"
	"qrmenu/internal/repository"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	adminRepo repository.AdminRepository
	metrics   OrderMetrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service. metrics may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	adminRepo repository.AdminRepository,
	metrics OrderMetrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		adminRepo: adminRepo,
		metrics:   metrics,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       time.Now,
	}
}

// CreateOrder records a website or WhatsApp order.
func (s *orderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is nil")
	}

	admin, err := s.tenant(ctx, req.AdminID)
	if err != nil {
		return nil, err
	}

	order := &model.Order{Kind: req.OrderType}
	switch req.OrderType {
	case model.OrderKindWebsite:
		if !admin.IsAcceptingOrders {
			return nil, model.ErrWebsiteOrdersClosed
		}
		order.CustomerName = strings.TrimSpace(req.CustomerName)
		order.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
		if order.CustomerName == "" || order.CustomerPhone == "" {
			return nil, model.ErrCustomerRequired
		}
	case model.OrderKindWhatsApp:
		if !admin.IsAcceptingOrdersViaWhatsapp || strings.TrimSpace(admin.WhatsappNumber) == "" {
			return nil, model.ErrWhatsAppOrdersClosed
		}
	default:
		return nil, model.NewDomainError(model.ErrCodeValidation, "orderType must be website or whatsapp")
	}

	return s.record(ctx, admin, order, req.Items, pricing.Totals{Price: req.TotalPrice, Discount: req.TotalDiscount})
}

// CreateTableOrder records an order placed from a table.
func (s *orderService) CreateTableOrder(ctx context.Context, req *model.CreateTableOrderRequest) (*model.Order, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is nil")
	}
	if req.TableNumber < 1 {
		return nil, model.NewDomainError(model.ErrCodeValidation, "tableNumber must be at least 1")
	}

	admin, err := s.tenant(ctx, req.AdminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAcceptingTableOrders {
		return nil, model.ErrTableOrdersClosed
	}

	table := req.TableNumber
	order := &model.Order{Kind: model.OrderKindTable, TableNumber: &table}
	return s.record(ctx, admin, order, req.Items, pricing.Totals{Price: req.TotalPrice, Discount: req.TotalDiscount})
}

func (s *orderService) tenant(ctx context.Context, rawID string) (*model.Admin, error) {
	adminID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, model.NewDomainError(model.ErrCodeValidation, "adminId must be a UUID")
	}
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if admin == nil {
		return nil, model.ErrAdminNotFound
	}
	return admin, nil
}

// record validates the lines, recomputes the totals and stores the order
// with its lines in one transaction.
func (s *orderService) record(ctx context.Context, admin *model.Admin, order *model.Order, items []model.OrderLine, claimed pricing.Totals) (*model.Order, error) {
	lines, err := s.sanitizeLines(items)
	if err != nil {
		return nil, err
	}

	totals := pricing.Compute(pricing.FromOrderLines(lines))
	if !totals.Equal(claimed) {
		s.logger.Warn().
			Str("admin_id", admin.ID.String()).
			Str("claimed_total", claimed.Price.String()).
			Str("computed_total", totals.Price.String()).
			Str("claimed_discount", claimed.Discount.String()).
			Str("computed_discount", totals.Discount.String()).
			Msg("client totals disagree, storing computed totals")
	}

	order.ID = uuid.New()
	order.AdminID = admin.ID
	order.Items = lines
	order.TotalPrice = totals.Price
	order.TotalDiscount = totals.Discount
	order.CreatedAt = s.now().UTC()

	// Start transaction
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderLines(ctx, tx, order.ID, lines); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("line_count", len(lines)).
			Msg("failed to create order lines")
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.OrderCreated(order.Kind, order.TotalPrice)
	}

	logEvent := s.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("number", order.Number).
		Str("kind", string(order.Kind)).
		Str("admin_id", admin.ID.String()).
		Int("line_count", len(lines)).
		Str("total", order.TotalPrice.String())
	if order.TableNumber != nil {
		logEvent = logEvent.Int("table", *order.TableNumber)
	}
	logEvent.Msg("order created successfully")

	return order, nil
}

// sanitizeLines keeps only the snapshot fields of each line and checks them.
func (s *orderService) sanitizeLines(items []model.OrderLine) ([]model.OrderLine, error) {
	if len(items) == 0 {
		return nil, model.NewDomainError(model.ErrCodeValidation, "order must contain at least one item")
	}

	lines := make([]model.OrderLine, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, model.NewDomainError(model.ErrCodeValidation, fmt.Sprintf("item %d: name is required", i))
		}
		if item.Quantity < 1 {
			s.logger.Warn().
				Int("item_index", i).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return nil, model.ErrInvalidQuantity
		}
		if item.Price.IsNegative() || (item.DiscountedPrice != nil && item.DiscountedPrice.IsNegative()) {
			return nil, model.ErrNegativePrice
		}

		line := model.OrderLine{
			Name:     name,
			Quantity: item.Quantity,
			Price:    item.Price,
			ImageURL: strings.TrimSpace(item.ImageURL),
		}
		if item.DiscountedPrice != nil {
			d := *item.DiscountedPrice
			line.DiscountedPrice = &d
		}
		lines[i] = line
	}
	return lines, nil
}

// List returns the orders of the filter's admin, newest first.
func (s *orderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// Delete removes an order owned by actor.
func (s *orderService) Delete(ctx context.Context, actor, id uuid.UUID, kinds ...model.OrderKind) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || (len(kinds) > 0 && !slices.Contains(kinds, order.Kind)) {
		return model.ErrOrderNotFound
	}
	if order.AdminID != actor {
		s.logger.Warn().
			Str("actor", actor.String()).
			Str("order_id", id.String()).
			Msg("order delete denied")
		return model.ErrForbidden
	}

	deleted, err := s.orderRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if !deleted {
		return model.ErrOrderNotFound
	}

	s.logger.Info().Str("order_id", id.String()).Msg("order deleted")
	return nil
}
