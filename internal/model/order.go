package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderKind is the channel an order arrived through.
type OrderKind string

const (
	OrderKindWebsite  OrderKind = "website"
	OrderKindWhatsApp OrderKind = "whatsapp"
	OrderKindTable    OrderKind = "table"
)

// OrderLine is a frozen copy of a cart line. It deliberately carries no item
// id so the order stays readable after the menu item is edited or deleted.
type OrderLine struct {
	Name            string           `json:"name" validate:"required,max=200"`
	Quantity        int              `json:"quantity" validate:"min=1"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	ImageURL        string           `json:"imageUrl,omitempty"`
}

// Order represents a customer order.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	Number        int64           `json:"number"`
	AdminID       uuid.UUID       `json:"adminId"`
	Kind          OrderKind       `json:"orderType"`
	TableNumber   *int            `json:"tableNumber,omitempty"`
	Items         []OrderLine     `json:"items"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Reference is the short order number shown to customers.
func (o *Order) Reference() string {
	return strconv.FormatInt(o.Number, 10)
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	AdminID       string          `json:"adminId" validate:"required,uuid"`
	OrderType     OrderKind       `json:"orderType" validate:"required,oneof=website whatsapp"`
	Items         []OrderLine     `json:"items" validate:"required,min=1,max=200,dive"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	CustomerName  string          `json:"customerName,omitempty" validate:"max=200"`
	CustomerPhone string          `json:"customerPhone,omitempty" validate:"max=50"`
}

// CreateTableOrderRequest is the body of POST /api/table-orders.
type CreateTableOrderRequest struct {
	AdminID       string          `json:"adminId" validate:"required,uuid"`
	TableNumber   int             `json:"tableNumber" validate:"min=1,max=10000"`
	Items         []OrderLine     `json:"items" validate:"required,min=1,max=200,dive"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
}

// OrderFilter narrows order listings. Empty Kinds matches every kind.
type OrderFilter struct {
	AdminID     uuid.UUID
	Kinds       []OrderKind
	TableNumber *int
	Limit       int
	Offset      int
}
