package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qrmenu/internal/auth"
	"qrmenu/internal/model"
	"qrmenu/internal/repository"
)

// adminService implements AdminService.
type adminService struct {
	repo   repository.AdminRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewAdminService creates a new admin service.
func NewAdminService(repo repository.AdminRepository, logger zerolog.Logger) AdminService {
	return &adminService{
		repo:   repo,
		logger: logger.With().Str("service", "admin").Logger(),
		now:    time.Now,
	}
}

func (s *adminService) List(ctx context.Context) ([]model.Admin, error) {
	admins, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

// Create hashes the password and stores a new tenant.
func (s *adminService) Create(ctx context.Context, req *model.CreateAdminRequest) (*model.Admin, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	theme := req.Theme
	if theme == "" {
		theme = model.DefaultTheme
	}

	now := s.now().UTC()
	admin := &model.Admin{
		ID:                           uuid.New(),
		Username:                     strings.TrimSpace(req.Username),
		PasswordHash:                 hash,
		LogoURL:                      req.LogoURL,
		BackgroundURL:                req.BackgroundURL,
		Theme:                        theme,
		WelcomeMessage:               req.WelcomeMessage,
		ContactMessage:               req.ContactMessage,
		WhatsappNumber:               strings.TrimSpace(req.WhatsappNumber),
		IsAcceptingOrders:            req.IsAcceptingOrders,
		IsAcceptingOrdersViaWhatsapp: req.IsAcceptingOrdersViaWhatsapp,
		IsAcceptingTableOrders:       req.IsAcceptingTableOrders,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		if err == model.ErrUsernameTaken {
			s.logger.Warn().Str("username", admin.Username).Msg("username already taken")
			return nil, err
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info().
		Str("admin_id", admin.ID.String()).
		Str("username", admin.Username).
		Msg("admin created successfully")

	return admin, nil
}

func (s *adminService) GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	admin, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if admin == nil {
		return nil, model.ErrAdminNotFound
	}
	return admin, nil
}

// Update applies an operator edit.
func (s *adminService) Update(ctx context.Context, id uuid.UUID, update *model.AdminUpdate) (*model.Admin, error) {
	admin, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(admin)
	if update.Password != nil {
		hash, err := auth.HashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		admin.PasswordHash = hash
		s.logger.Info().Str("admin_id", id.String()).Msg("password reset by operator")
	}

	return s.save(ctx, admin)
}

// UpdateProfile applies an owner edit.
func (s *adminService) UpdateProfile(ctx context.Context, id uuid.UUID, req *model.ProfileUpdateRequest) (*model.Admin, error) {
	admin, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NewPassword != "" {
		ok, err := auth.VerifyPassword(req.CurrentPassword, admin.PasswordHash)
		if err != nil || !ok {
			s.logger.Warn().Str("admin_id", id.String()).Msg("profile password change rejected")
			return nil, model.ErrCurrentPassword
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		admin.PasswordHash = hash
	}

	update := req.Update()
	update.Apply(admin)

	return s.save(ctx, admin)
}

func (s *adminService) save(ctx context.Context, admin *model.Admin) (*model.Admin, error) {
	admin.Username = strings.TrimSpace(admin.Username)
	admin.WhatsappNumber = strings.TrimSpace(admin.WhatsappNumber)
	admin.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, admin); err != nil {
		if err == model.ErrUsernameTaken || err == model.ErrAdminNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}

	s.logger.Info().Str("admin_id", admin.ID.String()).Msg("admin updated successfully")
	return admin, nil
}

func (s *adminService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	if !deleted {
		return model.ErrAdminNotFound
	}
	s.logger.Info().Str("admin_id", id.String()).Msg("admin deleted with its menu and orders")
	return nil
}

func (s *adminService) GetPublic(ctx context.Context, username string) (*model.Admin, error) {
	admin, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if admin == nil {
		return nil, model.ErrAdminNotFound
	}
	return admin, nil
}
