package model

import (
	"time"

	"github.com/google/uuid"
)

// Theme names the colour palette a menu page is rendered with.
type Theme string

const (
	ThemeOcean  Theme = "ocean"
	ThemeSunset Theme = "sunset"
	ThemeForest Theme = "forest"
	ThemeRoyal  Theme = "royal"
	ThemeRose   Theme = "rose"
)

// DefaultTheme is applied when an admin is created without one.
const DefaultTheme = ThemeOcean

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeOcean, ThemeSunset, ThemeForest, ThemeRoyal, ThemeRose:
		return true
	}
	return false
}

// Admin is a tenant: the owner of a menu and the recipient of its orders.
type Admin struct {
	ID                           uuid.UUID `json:"id"`
	Username                     string    `json:"username"`
	PasswordHash                 string    `json:"-"`
	LogoURL                      string    `json:"logoUrl,omitempty"`
	BackgroundURL                string    `json:"backgroundUrl,omitempty"`
	Theme                        Theme     `json:"theme"`
	WelcomeMessage               string    `json:"welcomeMessage,omitempty"`
	ContactMessage               string    `json:"contactMessage,omitempty"`
	WhatsappNumber               string    `json:"whatsappNumber,omitempty"`
	IsAcceptingOrders            bool      `json:"isAcceptingOrders"`
	IsAcceptingOrdersViaWhatsapp bool      `json:"isAcceptingOrdersViaWhatsapp"`
	IsAcceptingTableOrders       bool      `json:"isAcceptingTableOrders"`
	CreatedAt                    time.Time `json:"createdAt"`
	UpdatedAt                    time.Time `json:"updatedAt"`
}

// CreateAdminRequest is the body of POST /api/admins.
type CreateAdminRequest struct {
	Username                     string `json:"username" validate:"required,min=3,max=64,excludesall=/?#& "`
	Password                     string `json:"password" validate:"required,min=6,max=128"`
	Theme                        Theme  `json:"theme" validate:"omitempty,oneof=ocean sunset forest royal rose"`
	LogoURL                      string `json:"logoUrl" validate:"omitempty,max=2048"`
	BackgroundURL                string `json:"backgroundUrl" validate:"omitempty,max=2048"`
	WelcomeMessage               string `json:"welcomeMessage" validate:"max=2000"`
	ContactMessage               string `json:"contactMessage" validate:"max=2000"`
	WhatsappNumber               string `json:"whatsappNumber" validate:"max=32"`
	IsAcceptingOrders            bool   `json:"isAcceptingOrders"`
	IsAcceptingOrdersViaWhatsapp bool   `json:"isAcceptingOrdersViaWhatsapp"`
	IsAcceptingTableOrders       bool   `json:"isAcceptingTableOrders"`
}

// AdminUpdate carries a partial update; nil fields are left unchanged.
type AdminUpdate struct {
	Username                     *string `json:"username" validate:"omitempty,min=3,max=64,excludesall=/?#& "`
	Password                     *string `json:"password" validate:"omitempty,min=6,max=128"`
	Theme                        *Theme  `json:"theme" validate:"omitempty,oneof=ocean sunset forest royal rose"`
	LogoURL                      *string `json:"logoUrl" validate:"omitempty,max=2048"`
	BackgroundURL                *string `json:"backgroundUrl" validate:"omitempty,max=2048"`
	WelcomeMessage               *string `json:"welcomeMessage" validate:"omitempty,max=2000"`
	ContactMessage               *string `json:"contactMessage" validate:"omitempty,max=2000"`
	WhatsappNumber               *string `json:"whatsappNumber" validate:"omitempty,max=32"`
	IsAcceptingOrders            *bool   `json:"isAcceptingOrders"`
	IsAcceptingOrdersViaWhatsapp *bool   `json:"isAcceptingOrdersViaWhatsapp"`
	IsAcceptingTableOrders       *bool   `json:"isAcceptingTableOrders"`
}

// Apply copies the set fields of u onto a. The password is handled by the caller.
func (u *AdminUpdate) Apply(a *Admin) {
	if u.Username != nil {
		a.Username = *u.Username
	}
	if u.Theme != nil {
		a.Theme = *u.Theme
	}
	if u.LogoURL != nil {
		a.LogoURL = *u.LogoURL
	}
	if u.BackgroundURL != nil {
		a.BackgroundURL = *u.BackgroundURL
	}
	if u.WelcomeMessage != nil {
		a.WelcomeMessage = *u.WelcomeMessage
	}
	if u.ContactMessage != nil {
		a.ContactMessage = *u.ContactMessage
	}
	if u.WhatsappNumber != nil {
		a.WhatsappNumber = *u.WhatsappNumber
	}
	if u.IsAcceptingOrders != nil {
		a.IsAcceptingOrders = *u.IsAcceptingOrders
	}
	if u.IsAcceptingOrdersViaWhatsapp != nil {
		a.IsAcceptingOrdersViaWhatsapp = *u.IsAcceptingOrdersViaWhatsapp
	}
	if u.IsAcceptingTableOrders != nil {
		a.IsAcceptingTableOrders = *u.IsAcceptingTableOrders
	}
}

// ProfileUpdateRequest is the body of PUT /api/admins/{id}, sent by the owner.
// A new password is only accepted together with the current one.
type ProfileUpdateRequest struct {
	Username                     *string `json:"username" validate:"omitempty,min=3,max=64,excludesall=/?#& "`
	Theme                        *Theme  `json:"theme" validate:"omitempty,oneof=ocean sunset forest royal rose"`
	LogoURL                      *string `json:"logoUrl" validate:"omitempty,max=2048"`
	BackgroundURL                *string `json:"backgroundUrl" validate:"omitempty,max=2048"`
	WelcomeMessage               *string `json:"welcomeMessage" validate:"omitempty,max=2000"`
	ContactMessage               *string `json:"contactMessage" validate:"omitempty,max=2000"`
	WhatsappNumber               *string `json:"whatsappNumber" validate:"omitempty,max=32"`
	IsAcceptingOrders            *bool   `json:"isAcceptingOrders"`
	IsAcceptingOrdersViaWhatsapp *bool   `json:"isAcceptingOrdersViaWhatsapp"`
	IsAcceptingTableOrders       *bool   `json:"isAcceptingTableOrders"`
	CurrentPassword              string  `json:"currentPassword"`
	NewPassword                  string  `json:"newPassword" validate:"omitempty,min=6,max=128"`
}

// Update converts the profile fields into an AdminUpdate.
func (r *ProfileUpdateRequest) Update() AdminUpdate {
	return AdminUpdate{
		Username:                     r.Username,
		Theme:                        r.Theme,
		LogoURL:                      r.LogoURL,
		BackgroundURL:                r.BackgroundURL,
		WelcomeMessage:               r.WelcomeMessage,
		ContactMessage:               r.ContactMessage,
		WhatsappNumber:               r.WhatsappNumber,
		IsAcceptingOrders:            r.IsAcceptingOrders,
		IsAcceptingOrdersViaWhatsapp: r.IsAcceptingOrdersViaWhatsapp,
		IsAcceptingTableOrders:       r.IsAcceptingTableOrders,
	}
}

// LoginRequest is the body of POST /api/auth.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Admin        *Admin    `json:"admin"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
