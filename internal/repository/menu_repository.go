package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"qrmenu/internal/model"
)

const (
	listColumns = `id, admin_id, name, item_type, created_at`
	itemColumns = `i.id, i.list_id, i.name, i.price, i.discounted_price, i.description, i.image_url, i.created_at, i.updated_at`
)

// menuRepository implements the MenuRepository interface using PostgreSQL.
type menuRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMenuRepository creates a new PostgreSQL-backed menu repository.
func NewMenuRepository(pool *pgxpool.Pool, logger zerolog.Logger) MenuRepository {
	return &menuRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "menu").Logger(),
	}
}

func scanList(row pgx.Row) (*model.MenuList, error) {
	var l model.MenuList
	if err := row.Scan(&l.ID, &l.AdminID, &l.Name, &l.ItemType, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanItem(row pgx.Row) (*model.MenuItem, error) {
	var (
		it         model.MenuItem
		discounted decimal.NullDecimal
	)
	err := row.Scan(
		&it.ID,
		&it.ListID,
		&it.Name,
		&it.Price,
		&discounted,
		&it.Description,
		&it.ImageURL,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discounted.Valid {
		it.DiscountedPrice = &discounted.Decimal
	}
	return &it, nil
}

// ListLists returns the lists of an admin in creation order.
func (r *menuRepository) ListLists(ctx context.Context, adminID uuid.UUID) ([]model.MenuList, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listColumns+` FROM menu_lists WHERE admin_id = $1 ORDER BY created_at, name`, adminID)
	if err != nil {
		r.logger.Error().Err(err).Str("admin_id", adminID.String()).Msg("failed to query lists")
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	lists := make([]model.MenuList, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan list row")
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lists: %w", err)
	}
	return lists, nil
}

// GetList returns nil, nil when the list does not exist.
func (r *menuRepository) GetList(ctx context.Context, id uuid.UUID) (*model.MenuList, error) {
	l, err := scanList(r.pool.QueryRow(ctx, `SELECT `+listColumns+` FROM menu_lists WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("list_id", id.String()).Msg("failed to query list")
		return nil, fmt.Errorf("failed to query list: %w", err)
	}
	return l, nil
}

func (r *menuRepository) CreateList(ctx context.Context, l *model.MenuList) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO menu_lists (`+listColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.AdminID, l.Name, l.ItemType, l.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("admin_id", l.AdminID.String()).Msg("failed to create list")
		return fmt.Errorf("failed to create list: %w", err)
	}
	return nil
}

func (r *menuRepository) UpdateList(ctx context.Context, l *model.MenuList) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE menu_lists SET name = $2, item_type = $3 WHERE id = $1`,
		l.ID, l.Name, l.ItemType,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("list_id", l.ID.String()).Msg("failed to update list")
		return fmt.Errorf("failed to update list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrListNotFound
	}
	return nil
}

func (r *menuRepository) DeleteList(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_lists WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("list_id", id.String()).Msg("failed to delete list")
		return false, fmt.Errorf("failed to delete list: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *menuRepository) queryItems(ctx context.Context, query string, arg any) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query items")
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]model.MenuItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan item row")
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// ItemsByList returns the items of one list in creation order.
func (r *menuRepository) ItemsByList(ctx context.Context, listID uuid.UUID) ([]model.MenuItem, error) {
	return r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM menu_items i WHERE i.list_id = $1 ORDER BY i.created_at, i.name`,
		listID)
}

// ItemsByAdmin returns the items of every list owned by the admin.
func (r *menuRepository) ItemsByAdmin(ctx context.Context, adminID uuid.UUID) ([]model.MenuItem, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items i
		JOIN menu_lists l ON l.id = i.list_id
		WHERE l.admin_id = $1
		ORDER BY l.created_at, i.created_at, i.name`,
		adminID)
}

// GetItem returns nil, nil when the item does not exist.
func (r *menuRepository) GetItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items i WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("item_id", id.String()).Msg("failed to query item")
		return nil, fmt.Errorf("failed to query item: %w", err)
	}
	return it, nil
}

func (r *menuRepository) CreateItem(ctx context.Context, it *model.MenuItem) error {
	query := `
		INSERT INTO menu_items (id, list_id, name, price, discounted_price, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		it.ID, it.ListID, it.Name, it.Price, nullDecimal(it.DiscountedPrice),
		it.Description, it.ImageURL, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("list_id", it.ListID.String()).Msg("failed to create item")
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *menuRepository) UpdateItem(ctx context.Context, it *model.MenuItem) error {
	query := `
		UPDATE menu_items SET
			list_id = $2, name = $3, price = $4, discounted_price = $5,
			description = $6, image_url = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		it.ID, it.ListID, it.Name, it.Price, nullDecimal(it.DiscountedPrice),
		it.Description, it.ImageURL, it.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", it.ID.String()).Msg("failed to update item")
		return fmt.Errorf("failed to update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

func (r *menuRepository) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", id.String()).Msg("failed to delete item")
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
