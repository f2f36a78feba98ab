package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"qrmenu/internal/model"
)

// AdminRepository defines the interface for admin data access operations.
type AdminRepository interface {
	// List returns every admin ordered by username.
	List(ctx context.Context) ([]model.Admin, error)

	// GetByID returns nil, nil when no admin has the id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error)

	// GetByUsername returns nil, nil when no admin has the username.
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)

	// Create inserts the admin. Returns model.ErrUsernameTaken on a duplicate username.
	Create(ctx context.Context, admin *model.Admin) error

	// Update writes every column of the admin, including the password hash.
	Update(ctx context.Context, admin *model.Admin) error

	// Delete removes the admin and, through cascades, its menu and orders.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// MenuRepository defines the interface for menu list and item data access.
type MenuRepository interface {
	ListLists(ctx context.Context, adminID uuid.UUID) ([]model.MenuList, error)
	GetList(ctx context.Context, id uuid.UUID) (*model.MenuList, error)
	CreateList(ctx context.Context, list *model.MenuList) error
	UpdateList(ctx context.Context, list *model.MenuList) error
	DeleteList(ctx context.Context, id uuid.UUID) (bool, error)

	ItemsByList(ctx context.Context, listID uuid.UUID) ([]model.MenuItem, error)
	ItemsByAdmin(ctx context.Context, adminID uuid.UUID) ([]model.MenuItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error)
	CreateItem(ctx context.Context, item *model.MenuItem) error
	UpdateItem(ctx context.Context, item *model.MenuItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts the order row within tx and fills in its number.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderLines inserts the lines of an order within tx.
	CreateOrderLines(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []model.OrderLine) error

	// GetByID returns the order with its lines, or nil, nil when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List returns the orders matching filter, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// Delete removes an order and its lines.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
