package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qrmenu/internal/auth"
	"qrmenu/internal/model"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func storedAdmin(t *testing.T, password string) *model.Admin {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &model.Admin{
		ID:           uuid.New(),
		Username:     "cafe",
		PasswordHash: hash,
		Theme:        model.ThemeSunset,
	}
}

func TestAdminService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success with default theme", func(t *testing.T) {
		mockRepo := new(MockAdminRepository)
		service := NewAdminService(mockRepo, zerolog.Nop())

		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Admin")).Return(nil)

		admin, err := service.Create(ctx, &model.CreateAdminRequest{
			Username:       "  cafe ",
			Password:       "secret1",
			WhatsappNumber: " 2010 ",
		})

		require.NoError(t, err)
		assert.Equal(t, "cafe", admin.Username)
		assert.Equal(t, "2010", admin.WhatsappNumber)
		assert.Equal(t, model.DefaultTheme, admin.Theme)
		assert.NotEqual(t, "secret1", admin.PasswordHash)
		ok, err := auth.VerifyPassword("secret1", admin.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Username taken", func(t *testing.T) {
		mockRepo := new(MockAdminRepository)
		service := NewAdminService(mockRepo, zerolog.Nop())

		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Admin")).Return(model.ErrUsernameTaken)

		admin, err := service.Create(ctx, &model.CreateAdminRequest{Username: "cafe", Password: "secret1"})
		assert.Equal(t, model.ErrUsernameTaken, err)
		assert.Nil(t, admin)
	})

	t.Run("Repository failure is wrapped", func(t *testing.T) {
		mockRepo := new(MockAdminRepository)
		service := NewAdminService(mockRepo, zerolog.Nop())

		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Admin")).Return(errors.New("db down"))

		_, err := service.Create(ctx, &model.CreateAdminRequest{Username: "cafe", Password: "secret1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create admin")
	})
}

func TestAdminService_GetByID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAdminRepository)
	service := NewAdminService(mockRepo, zerolog.Nop())

	missing := uuid.New()
	mockRepo.On("GetByID", ctx, missing).Return(nil, nil)

	_, err := service.GetByID(ctx, missing)
	assert.Equal(t, model.ErrAdminNotFound, err)
}

func TestAdminService_Update(t *testing.T) {
	ctx := context.Background()
	admin := storedAdmin(t, "oldpass")
	oldHash := admin.PasswordHash

	mockRepo := new(MockAdminRepository)
	svc := NewAdminService(mockRepo, zerolog.Nop()).(*adminService)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	mockRepo.On("GetByID", ctx, admin.ID).Return(admin, nil)
	mockRepo.On("Update", ctx, admin).Return(nil)

	updated, err := svc.Update(ctx, admin.ID, &model.AdminUpdate{
		Password:               strPtr("newpass"),
		IsAcceptingTableOrders: boolPtr(true),
	})

	require.NoError(t, err)
	assert.True(t, updated.IsAcceptingTableOrders)
	assert.Equal(t, fixed, updated.UpdatedAt)
	assert.NotEqual(t, oldHash, updated.PasswordHash)
	ok, _ := auth.VerifyPassword("newpass", updated.PasswordHash)
	assert.True(t, ok)
}

func TestAdminService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		req         *model.ProfileUpdateRequest
		expectSave  bool
		expectedErr error
	}{
		{
			name:       "Plain field edit",
			req:        &model.ProfileUpdateRequest{WelcomeMessage: strPtr("Hi")},
			expectSave: true,
		},
		{
			name:       "Password change with current password",
			req:        &model.ProfileUpdateRequest{CurrentPassword: "oldpass", NewPassword: "newpass"},
			expectSave: true,
		},
		{
			name:        "Password change with wrong current password",
			req:         &model.ProfileUpdateRequest{CurrentPassword: "nope", NewPassword: "newpass"},
			expectedErr: model.ErrCurrentPassword,
		},
		{
			name:        "Password change without current password",
			req:         &model.ProfileUpdateRequest{NewPassword: "newpass"},
			expectedErr: model.ErrCurrentPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := storedAdmin(t, "oldpass")
			mockRepo := new(MockAdminRepository)
			service := NewAdminService(mockRepo, zerolog.Nop())

			mockRepo.On("GetByID", ctx, admin.ID).Return(admin, nil)
			if tt.expectSave {
				mockRepo.On("Update", ctx, admin).Return(nil)
			}

			updated, err := service.UpdateProfile(ctx, admin.ID, tt.req)

			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, err)
				mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			if tt.req.NewPassword != "" {
				ok, _ := auth.VerifyPassword(tt.req.NewPassword, updated.PasswordHash)
				assert.True(t, ok)
			}
			if tt.req.WelcomeMessage != nil {
				assert.Equal(t, *tt.req.WelcomeMessage, updated.WelcomeMessage)
			}
		})
	}
}

func TestAdminService_Update_UsernameTaken(t *testing.T) {
	ctx := context.Background()
	admin := storedAdmin(t, "oldpass")
	mockRepo := new(MockAdminRepository)
	service := NewAdminService(mockRepo, zerolog.Nop())

	mockRepo.On("GetByID", ctx, admin.ID).Return(admin, nil)
	mockRepo.On("Update", ctx, admin).Return(model.ErrUsernameTaken)

	_, err := service.Update(ctx, admin.ID, &model.AdminUpdate{Username: strPtr("taken")})
	assert.Equal(t, model.ErrUsernameTaken, err)
}

func TestAdminService_Delete(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAdminRepository)
	service := NewAdminService(mockRepo, zerolog.Nop())

	present, missing := uuid.New(), uuid.New()
	mockRepo.On("Delete", ctx, present).Return(true, nil)
	mockRepo.On("Delete", ctx, missing).Return(false, nil)

	assert.NoError(t, service.Delete(ctx, present))
	assert.Equal(t, model.ErrAdminNotFound, service.Delete(ctx, missing))
}

func TestAdminService_GetPublic(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAdminRepository)
	service := NewAdminService(mockRepo, zerolog.Nop())

	admin := &model.Admin{ID: uuid.New(), Username: "cafe"}
	mockRepo.On("GetByUsername", ctx, "cafe").Return(admin, nil)
	mockRepo.On("GetByUsername", ctx, "ghost").Return(nil, nil)

	got, err := service.GetPublic(ctx, "cafe")
	require.NoError(t, err)
	assert.Equal(t, admin, got)

	_, err = service.GetPublic(ctx, "ghost")
	assert.Equal(t, model.ErrAdminNotFound, err)
}
