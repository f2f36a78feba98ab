package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultItemType labels the items of a list when the owner gives no type.
const DefaultItemType = "عنصر"

// MenuList groups menu items under a heading.
type MenuList struct {
	ID        uuid.UUID `json:"id"`
	AdminID   uuid.UUID `json:"adminId"`
	Name      string    `json:"name"`
	ItemType  string    `json:"itemType"`
	CreatedAt time.Time `json:"createdAt"`
}

// MenuItem is a single orderable entry of a list. Prices decode from JSON
// numbers or strings; how they encode follows decimal.MarshalJSONWithoutQuotes,
// which the binaries set.
type MenuItem struct {
	ID              uuid.UUID        `json:"id"`
	ListID          uuid.UUID        `json:"listId"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Description     string           `json:"description,omitempty"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// CreateListRequest is the body of POST /api/lists.
type CreateListRequest struct {
	AdminID  string `json:"adminId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,max=200"`
	ItemType string `json:"itemType" validate:"max=100"`
}

// UpdateListRequest is the body of PUT /api/lists/{id}.
type UpdateListRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	ItemType *string `json:"itemType" validate:"omitempty,max=100"`
}

// CreateItemRequest is the body of POST /api/menu.
type CreateItemRequest struct {
	ListID          string           `json:"listId" validate:"required,uuid"`
	Name            string           `json:"name" validate:"required,max=200"`
	Price           *decimal.Decimal `json:"price" validate:"required"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	Description     string           `json:"description" validate:"max=4000"`
	ImageURL        string           `json:"imageUrl" validate:"omitempty,max=2048"`
}

// UpdateItemRequest is the body of PUT /api/menu/{id}. Setting ClearDiscount
// removes an existing discounted price.
type UpdateItemRequest struct {
	ListID          *string          `json:"listId" validate:"omitempty,uuid"`
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Price           *decimal.Decimal `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	ClearDiscount   bool             `json:"clearDiscount"`
	Description     *string          `json:"description" validate:"omitempty,max=4000"`
	ImageURL        *string          `json:"imageUrl" validate:"omitempty,max=2048"`
}

// MenuSection is one list together with its items.
type MenuSection struct {
	List  MenuList   `json:"list"`
	Items []MenuItem `json:"items"`
}

// PublicMenu is everything a customer needs to render a menu and order from it.
type PublicMenu struct {
	Admin    *Admin        `json:"admin"`
	Sections []MenuSection `json:"sections"`
}

// ItemsResponse is returned by GET /api/menu.
type ItemsResponse struct {
	Items []MenuItem `json:"items"`
	Lists []MenuList `json:"lists"`
}
