package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"qrmenu/internal/auth"
	"qrmenu/internal/model"
)

// AdminService defines operations for tenant management.
type AdminService interface {
	List(ctx context.Context) ([]model.Admin, error)
	Create(ctx context.Context, req *model.CreateAdminRequest) (*model.Admin, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error)

	// Update applies an operator edit, which may reset the password.
	Update(ctx context.Context, id uuid.UUID, update *model.AdminUpdate) (*model.Admin, error)

	// UpdateProfile applies an owner edit. A new password needs the current one.
	UpdateProfile(ctx context.Context, id uuid.UUID, req *model.ProfileUpdateRequest) (*model.Admin, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// GetPublic returns the tenant profile shown to customers.
	GetPublic(ctx context.Context, username string) (*model.Admin, error)
}

// AuthService defines login and session verification.
type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	Authenticate(token string) (*auth.Session, error)
}

// MenuService defines operations on menu lists and items. Every write takes
// the acting admin and fails with model.ErrForbidden on foreign resources.
type MenuService interface {
	Lists(ctx context.Context, adminID uuid.UUID) ([]model.MenuList, error)
	GetList(ctx context.Context, id uuid.UUID) (*model.MenuList, error)
	CreateList(ctx context.Context, actor uuid.UUID, req *model.CreateListRequest) (*model.MenuList, error)
	UpdateList(ctx context.Context, actor, id uuid.UUID, req *model.UpdateListRequest) (*model.MenuList, error)
	DeleteList(ctx context.Context, actor, id uuid.UUID) error

	ItemsByList(ctx context.Context, listID uuid.UUID) ([]model.MenuItem, error)
	ItemsByAdmin(ctx context.Context, adminID uuid.UUID) (*model.ItemsResponse, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error)
	CreateItem(ctx context.Context, actor uuid.UUID, req *model.CreateItemRequest) (*model.MenuItem, error)
	UpdateItem(ctx context.Context, actor, id uuid.UUID, req *model.UpdateItemRequest) (*model.MenuItem, error)
	DeleteItem(ctx context.Context, actor, id uuid.UUID) error

	// PublicMenu returns the tenant with every list and its items.
	PublicMenu(ctx context.Context, username string) (*model.PublicMenu, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder records a website or WhatsApp order.
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error)

	// CreateTableOrder records an order placed from a table.
	CreateTableOrder(ctx context.Context, req *model.CreateTableOrderRequest) (*model.Order, error)

	// List returns the orders of the filter's admin, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// Delete removes an order owned by actor. When kinds is non-empty the
	// order must be of one of them.
	Delete(ctx context.Context, actor, id uuid.UUID, kinds ...model.OrderKind) error
}

// RateLimiter limits repeated attempts per scope.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// OrderMetrics observes stored orders.
type OrderMetrics interface {
	OrderCreated(kind model.OrderKind, total decimal.Decimal)
}
