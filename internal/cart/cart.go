// Package cart keeps the customer's selected items for one menu scope and
// persists them after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"qrmenu/internal/pricing"
)

// Scope identifies an independently persisted cart: one per tenant, and one
// per table within a tenant.
type Scope struct {
	Tenant string
	Table  int // 0 when browsing without a table
}

// HasTable reports whether the scope belongs to a table.
func (s Scope) HasTable() bool {
	return s.Table > 0
}

// Key is the storage key for the scope.
func (s Scope) Key() string {
	if s.HasTable() {
		return "menu_cart_table_" + strconv.Itoa(s.Table) + "_" + s.Tenant
	}
	return "menu_cart_" + s.Tenant
}

// PendingKey is the storage key of the unconfirmed order attempt of the
// scope. The prefix keeps it apart from every cart key.
func (s Scope) PendingKey() string {
	return "pending_order_" + s.Key()
}

// Item is the catalog data captured into a line when it is first added.
type Item struct {
	ItemID              string
	Name                string
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice *decimal.Decimal
	ImageURL            string
}

// Line is one row of the cart.
type Line struct {
	ItemID              string           `json:"id"`
	Name                string           `json:"name"`
	UnitPrice           decimal.Decimal  `json:"price"`
	DiscountedUnitPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Quantity            int              `json:"quantity"`
	ImageURL            string           `json:"imageUrl,omitempty"`
}

func (l Line) priced() pricing.Line {
	return pricing.Line{
		UnitPrice:           l.UnitPrice,
		DiscountedUnitPrice: l.DiscountedUnitPrice,
		Quantity:            l.Quantity,
	}
}

// Store is the cart of a single scope. It is safe for concurrent use; two
// stores over the same scope in different processes are last-writer-wins.
type Store struct {
	mu      sync.Mutex
	scope   Scope
	storage Storage
	lines   []Line
	logger  zerolog.Logger
}

// Open loads the persisted cart for scope. A missing or unreadable value
// yields an empty cart; only storage failures are returned.
func Open(ctx context.Context, storage Storage, scope Scope, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		scope:   scope,
		storage: storage,
		logger:  logger.With().Str("component", "cart").Str("scope", scope.Key()).Logger(),
	}

	raw, err := storage.Get(ctx, scope.Key())
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", scope.Key(), err)
	}

	lines, err := decodeLines(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed stored cart")
		return s, nil
	}
	s.lines = lines

	s.logger.Debug().Int("lines", len(lines)).Msg("cart loaded")
	return s, nil
}

func decodeLines(raw []byte) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(lines))
	for i, l := range lines {
		if l.ItemID == "" {
			return nil, fmt.Errorf("line %d has no item id", i)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("line %d has quantity %d", i, l.Quantity)
		}
		if seen[l.ItemID] {
			return nil, fmt.Errorf("item %s appears twice", l.ItemID)
		}
		seen[l.ItemID] = true
	}
	return lines, nil
}

// Scope returns the scope the store was opened for.
func (s *Store) Scope() Scope {
	return s.scope
}

// AddItem increments the line for item, appending it with quantity 1 when absent.
func (s *Store) AddItem(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.ItemID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, Line{
			ItemID:              item.ItemID,
			Name:                item.Name,
			UnitPrice:           item.UnitPrice,
			DiscountedUnitPrice: item.DiscountedUnitPrice,
			Quantity:            1,
			ImageURL:            item.ImageURL,
		})
	}
	return s.persist(ctx)
}

// UpdateQuantity sets the quantity of a line. Zero or less removes the line;
// an unknown item is ignored.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(itemID)
	if i < 0 || s.lines[i].Quantity == quantity {
		return nil
	}
	s.lines[i].Quantity = quantity
	return s.persist(ctx)
}

// RemoveItem deletes the line for itemID if present.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(itemID)
	if i < 0 {
		return nil
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	return s.persist(ctx)
}

// PendingSubmission is an order attempt sent for this cart but not yet
// confirmed. Fingerprint identifies the cart contents the Key was issued for.
type PendingSubmission struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
}

// PendingSubmission returns the stored attempt, or nil when there is none or
// the stored value is unreadable.
func (s *Store) PendingSubmission(ctx context.Context) (*PendingSubmission, error) {
	raw, err := s.storage.Get(ctx, s.scope.PendingKey())
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending order %s: %w", s.scope.PendingKey(), err)
	}

	var p PendingSubmission
	if err := json.Unmarshal(raw, &p); err != nil || p.Key == "" {
		s.logger.Warn().Err(err).Msg("discarding malformed pending order")
		return nil, nil
	}
	return &p, nil
}

// SetPendingSubmission records an attempt so a later process can retry it
// with the same key.
func (s *Store) SetPendingSubmission(ctx context.Context, p PendingSubmission) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode pending order: %w", err)
	}
	if err := s.storage.Set(ctx, s.scope.PendingKey(), raw); err != nil {
		return fmt.Errorf("failed to persist pending order %s: %w", s.scope.PendingKey(), err)
	}
	return nil
}

// ClearPendingSubmission forgets the stored attempt.
func (s *Store) ClearPendingSubmission(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.scope.PendingKey()); err != nil {
		return fmt.Errorf("failed to delete pending order %s: %w", s.scope.PendingKey(), err)
	}
	return nil
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Count is the total number of units in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Totals returns the price to pay and the discount granted.
func (s *Store) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	priced := make([]pricing.Line, len(s.lines))
	for i, l := range s.lines {
		priced[i] = l.priced()
	}
	return pricing.Compute(priced)
}

// TotalPrice sums the effective price of every line.
func (s *Store) TotalPrice() decimal.Decimal {
	return s.Totals().Price
}

// TotalDiscount sums the savings of every discounted line.
func (s *Store) TotalDiscount() decimal.Decimal {
	return s.Totals().Discount
}

func (s *Store) indexOf(itemID string) int {
	for i, l := range s.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// persist writes the current lines. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) error {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, s.scope.Key(), raw); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist cart")
		return fmt.Errorf("failed to persist cart %s: %w", s.scope.Key(), err)
	}
	return nil
}
