package client

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"qrmenu/internal/model"
)

// Dashboard is an owner's editable view of their menu.
type Dashboard struct {
	client  *Client
	adminID uuid.UUID
	menu    *Optimistic[model.ItemsResponse]
}

// NewDashboard loads the menu of adminID. The client must hold a session
// for that admin.
func NewDashboard(ctx context.Context, c *Client, adminID uuid.UUID) (*Dashboard, error) {
	d := &Dashboard{client: c, adminID: adminID}
	d.menu = NewOptimistic(model.ItemsResponse{}, d.fetch)
	if err := d.menu.Refresh(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dashboard) fetch(ctx context.Context) (model.ItemsResponse, error) {
	resp, err := d.client.Menu(ctx, d.adminID)
	if err != nil {
		return model.ItemsResponse{}, err
	}
	return *resp, nil
}

// Menu returns the current lists and items.
func (d *Dashboard) Menu() model.ItemsResponse {
	return d.menu.State()
}

// Refresh reloads the menu from the server.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.menu.Refresh(ctx)
}

func (d *Dashboard) CreateList(ctx context.Context, name, itemType string) error {
	req := &model.CreateListRequest{AdminID: d.adminID.String(), Name: name, ItemType: itemType}
	return d.menu.Do(ctx,
		func(m model.ItemsResponse) model.ItemsResponse {
			m.Lists = append(slices.Clone(m.Lists), model.MenuList{
				ID:        uuid.New(),
				AdminID:   d.adminID,
				Name:      name,
				ItemType:  itemType,
				CreatedAt: time.Now().UTC(),
			})
			return m
		},
		func(ctx context.Context) error {
			_, err := d.client.CreateList(ctx, req)
			return err
		})
}

func (d *Dashboard) UpdateList(ctx context.Context, id uuid.UUID, req *model.UpdateListRequest) error {
	return d.menu.Do(ctx,
		func(m model.ItemsResponse) model.ItemsResponse {
			m.Lists = slices.Clone(m.Lists)
			for i := range m.Lists {
				if m.Lists[i].ID != id {
					continue
				}
				if req.Name != nil {
					m.Lists[i].Name = *req.Name
				}
				if req.ItemType != nil {
					m.Lists[i].ItemType = *req.ItemType
				}
			}
			return m
		},
		func(ctx context.Context) error {
			_, err := d.client.UpdateList(ctx, id, req)
			return err
		})
}

// DeleteList removes the list and its items.
func (d *Dashboard) DeleteList(ctx context.Context, id uuid.UUID) error {
	return d.menu.Do(ctx,
		func(m model.ItemsResponse) model.ItemsResponse {
			m.Lists = slices.DeleteFunc(slices.Clone(m.Lists), func(l model.MenuList) bool { return l.ID == id })
			m.Items = slices.DeleteFunc(slices.Clone(m.Items), func(it model.MenuItem) bool { return it.ListID == id })
			return m
		},
		func(ctx context.Context) error {
			return d.client.DeleteList(ctx, id)
		})
}

func (d *Dashboard) CreateItem(ctx context.Context, req *model.CreateItemRequest) error {
	return d.menu.Do(ctx,
		func(m model.ItemsResponse) model.ItemsResponse {
			listID, err := uuid.Parse(req.ListID)
			if err != nil || req.Price == nil {
				return m
			}
			now := time.Now().UTC()
			m.Items = append(slices.Clone(m.Items), model.MenuItem{
				ID:              uuid.New(),
				ListID:          listID,
				Name:            req.Name,
				Price:           *req.Price,
				DiscountedPrice: req.DiscountedPrice,
				Description:     req.Description,
				ImageURL:        req.ImageURL,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			return m
		},
		func(ctx context.Context) error {
			_, err := d.client.CreateItem(ctx, req)
			return err
		})
}

func (d *Dashboard) UpdateItem(ctx context.Context, id uuid.UUID, req *model.UpdateItemRequest) error {
	return d.menu.Do(ctx,
		func(m model.ItemsResponse) model.ItemsResponse {
			m.Items = slices.Clone(m.Items)
			for i := range m.Items {
				if m.Items[i].ID == id {
					applyItemUpdate(&m.Items[i], req)
				}
			}
			return m
		},
		func(ctx context.Context) error {
			_, err := d.client.UpdateItem(ctx, id, req)
			return err
		})
}

func (d *Dashboard) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return d.menu.Do(ctx,
		func(m model.ItemsResponse) model.ItemsResponse {
			m.Items = slices.DeleteFunc(slices.Clone(m.Items), func(it model.MenuItem) bool { return it.ID == id })
			return m
		},
		func(ctx context.Context) error {
			return d.client.DeleteItem(ctx, id)
		})
}

func applyItemUpdate(item *model.MenuItem, req *model.UpdateItemRequest) {
	if req.ListID != nil {
		if listID, err := uuid.Parse(*req.ListID); err == nil {
			item.ListID = listID
		}
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.ClearDiscount {
		item.DiscountedPrice = nil
	} else if req.DiscountedPrice != nil {
		item.DiscountedPrice = req.DiscountedPrice
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
}
