package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"qrmenu/internal/model"
)

const adminColumns = `
	id, username, password_hash, logo_url, background_url, theme,
	welcome_message, contact_message, whatsapp_number,
	is_accepting_orders, is_accepting_orders_via_whatsapp, is_accepting_table_orders,
	created_at, updated_at`

// adminRepository implements the AdminRepository interface using PostgreSQL.
type adminRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAdminRepository creates a new PostgreSQL-backed admin repository.
func NewAdminRepository(pool *pgxpool.Pool, logger zerolog.Logger) AdminRepository {
	return &adminRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "admin").Logger(),
	}
}

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	var a model.Admin
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.LogoURL,
		&a.BackgroundURL,
		&a.Theme,
		&a.WelcomeMessage,
		&a.ContactMessage,
		&a.WhatsappNumber,
		&a.IsAcceptingOrders,
		&a.IsAcceptingOrdersViaWhatsapp,
		&a.IsAcceptingTableOrders,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns every admin ordered by username.
func (r *adminRepository) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY username`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query admins")
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	admins := make([]model.Admin, 0)
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan admin row")
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, *a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating admin rows")
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}

	return admins, nil
}

// GetByID returns nil, nil when no admin has the id.
func (r *adminRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	a, err := scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("admin_id", id.String()).Msg("admin not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("admin_id", id.String()).Msg("failed to query admin")
		return nil, fmt.Errorf("failed to query admin: %w", err)
	}
	return a, nil
}

// GetByUsername returns nil, nil when no admin has the username.
func (r *adminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	a, err := scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("username", username).Msg("failed to query admin by username")
		return nil, fmt.Errorf("failed to query admin: %w", err)
	}
	return a, nil
}

// Create inserts the admin.
func (r *adminRepository) Create(ctx context.Context, a *model.Admin) error {
	query := `
		INSERT INTO admins (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.LogoURL, a.BackgroundURL, a.Theme,
		a.WelcomeMessage, a.ContactMessage, a.WhatsappNumber,
		a.IsAcceptingOrders, a.IsAcceptingOrdersViaWhatsapp, a.IsAcceptingTableOrders,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameTaken
		}
		r.logger.Error().Err(err).Str("username", a.Username).Msg("failed to create admin")
		return fmt.Errorf("failed to create admin: %w", err)
	}

	r.logger.Debug().Str("admin_id", a.ID.String()).Msg("admin created successfully")
	return nil
}

// Update writes every column of the admin.
func (r *adminRepository) Update(ctx context.Context, a *model.Admin) error {
	query := `
		UPDATE admins SET
			username = $2, password_hash = $3, logo_url = $4, background_url = $5, theme = $6,
			welcome_message = $7, contact_message = $8, whatsapp_number = $9,
			is_accepting_orders = $10, is_accepting_orders_via_whatsapp = $11,
			is_accepting_table_orders = $12, updated_at = $13
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.LogoURL, a.BackgroundURL, a.Theme,
		a.WelcomeMessage, a.ContactMessage, a.WhatsappNumber,
		a.IsAcceptingOrders, a.IsAcceptingOrdersViaWhatsapp, a.IsAcceptingTableOrders,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameTaken
		}
		r.logger.Error().Err(err).Str("admin_id", a.ID.String()).Msg("failed to update admin")
		return fmt.Errorf("failed to update admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAdminNotFound
	}
	return nil
}

// Delete removes the admin.
func (r *adminRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("admin_id", id.String()).Msg("failed to delete admin")
		return false, fmt.Errorf("failed to delete admin: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
