package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"qrmenu/internal/auth"
	"qrmenu/internal/config"
	"qrmenu/internal/model"
	"qrmenu/internal/repository"
)

// authService implements AuthService.
type authService struct {
	repo    repository.AdminRepository
	tokens  *auth.Tokens
	limiter RateLimiter
	cfg     config.AuthConfig
	logger  zerolog.Logger
}

// NewAuthService creates a new auth service. limiter may be nil, in which
// case logins are not rate limited.
func NewAuthService(repo repository.AdminRepository, tokens *auth.Tokens, limiter RateLimiter, cfg config.AuthConfig, logger zerolog.Logger) AuthService {
	return &authService{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With().Str("service", "auth").Logger(),
	}
}

// Login verifies credentials and issues a session token.
func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	if s.limiter != nil {
		allowed, count, err := s.limiter.FixedWindowAllow(ctx, "login:"+strings.ToLower(username), s.cfg.LoginAttempts, s.cfg.LoginWindow)
		if err != nil {
			// Redis trouble must not lock every admin out.
			s.logger.Warn().Err(err).Msg("login rate limiter unavailable")
		} else if !allowed {
			s.logger.Warn().Str("username", username).Int64("attempts", count).Msg("login rate limited")
			return nil, model.ErrTooManyAttempts
		}
	}

	admin, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		s.logger.Debug().Str("username", username).Msg("login for unknown username")
		return nil, model.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Str("admin_id", admin.ID.String()).Msg("stored password hash is unreadable")
		return nil, model.ErrInvalidCredentials
	}
	if !ok {
		s.logger.Info().Str("admin_id", admin.ID.String()).Msg("login with wrong password")
		return nil, model.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Mint(admin.ID, admin.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info().Str("admin_id", admin.ID.String()).Msg("admin logged in")

	return &model.LoginResponse{
		Admin:        admin,
		SessionToken: token,
		ExpiresAt:    expiresAt,
	}, nil
}

// Authenticate verifies a session token.
func (s *authService) Authenticate(token string) (*auth.Session, error) {
	return s.tokens.Parse(token)
}
