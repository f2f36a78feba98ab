package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"qrmenu/internal/model"
	"qrmenu/internal/repository"
)

// menuService implements MenuService.
type menuService struct {
	menus  repository.MenuRepository
	admins repository.AdminRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewMenuService creates a new menu service.
func NewMenuService(menus repository.MenuRepository, admins repository.AdminRepository, logger zerolog.Logger) MenuService {
	return &menuService{
		menus:  menus,
		admins: admins,
		logger: logger.With().Str("service", "menu").Logger(),
		now:    time.Now,
	}
}

func (s *menuService) Lists(ctx context.Context, adminID uuid.UUID) ([]model.MenuList, error) {
	lists, err := s.menus.ListLists(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu lists: %w", err)
	}
	return lists, nil
}

func (s *menuService) GetList(ctx context.Context, id uuid.UUID) (*model.MenuList, error) {
	list, err := s.menus.GetList(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu list: %w", err)
	}
	if list == nil {
		return nil, model.ErrListNotFound
	}
	return list, nil
}

// ownedList loads a list and checks that actor owns it.
func (s *menuService) ownedList(ctx context.Context, actor, id uuid.UUID) (*model.MenuList, error) {
	list, err := s.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if list.AdminID != actor {
		s.logger.Warn().
			Str("actor", actor.String()).
			Str("list_id", id.String()).
			Msg("list access denied")
		return nil, model.ErrForbidden
	}
	return list, nil
}

func (s *menuService) CreateList(ctx context.Context, actor uuid.UUID, req *model.CreateListRequest) (*model.MenuList, error) {
	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		return nil, model.NewDomainError(model.ErrCodeValidation, "adminId must be a UUID")
	}
	if adminID != actor {
		return nil, model.ErrForbidden
	}

	itemType := strings.TrimSpace(req.ItemType)
	if itemType == "" {
		itemType = model.DefaultItemType
	}

	list := &model.MenuList{
		ID:        uuid.New(),
		AdminID:   adminID,
		Name:      strings.TrimSpace(req.Name),
		ItemType:  itemType,
		CreatedAt: s.now().UTC(),
	}
	if err := s.menus.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to create menu list: %w", err)
	}

	s.logger.Info().Str("list_id", list.ID.String()).Str("admin_id", adminID.String()).Msg("menu list created")
	return list, nil
}

func (s *menuService) UpdateList(ctx context.Context, actor, id uuid.UUID, req *model.UpdateListRequest) (*model.MenuList, error) {
	list, err := s.ownedList(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		list.Name = strings.TrimSpace(*req.Name)
	}
	if req.ItemType != nil {
		list.ItemType = strings.TrimSpace(*req.ItemType)
		if list.ItemType == "" {
			list.ItemType = model.DefaultItemType
		}
	}

	if err := s.menus.UpdateList(ctx, list); err != nil {
		if err == model.ErrListNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update menu list: %w", err)
	}
	return list, nil
}

func (s *menuService) DeleteList(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.ownedList(ctx, actor, id); err != nil {
		return err
	}
	deleted, err := s.menus.DeleteList(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu list: %w", err)
	}
	if !deleted {
		return model.ErrListNotFound
	}
	s.logger.Info().Str("list_id", id.String()).Msg("menu list deleted with its items")
	return nil
}

func (s *menuService) ItemsByList(ctx context.Context, listID uuid.UUID) ([]model.MenuItem, error) {
	items, err := s.menus.ItemsByList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	return items, nil
}

func (s *menuService) ItemsByAdmin(ctx context.Context, adminID uuid.UUID) (*model.ItemsResponse, error) {
	lists, err := s.menus.ListLists(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu lists: %w", err)
	}
	items, err := s.menus.ItemsByAdmin(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	return &model.ItemsResponse{Items: items, Lists: lists}, nil
}

func (s *menuService) GetItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	item, err := s.menus.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	if item == nil {
		return nil, model.ErrItemNotFound
	}
	return item, nil
}

func (s *menuService) CreateItem(ctx context.Context, actor uuid.UUID, req *model.CreateItemRequest) (*model.MenuItem, error) {
	listID, err := uuid.Parse(req.ListID)
	if err != nil {
		return nil, model.NewDomainError(model.ErrCodeValidation, "listId must be a UUID")
	}
	if _, err := s.ownedList(ctx, actor, listID); err != nil {
		return nil, err
	}
	if req.Price == nil {
		return nil, model.NewDomainError(model.ErrCodeValidation, "price is required")
	}
	if err := checkPrices(*req.Price, req.DiscountedPrice); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := &model.MenuItem{
		ID:              uuid.New(),
		ListID:          listID,
		Name:            strings.TrimSpace(req.Name),
		Price:           *req.Price,
		DiscountedPrice: req.DiscountedPrice,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.menus.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	s.logger.Info().Str("item_id", item.ID.String()).Str("list_id", listID.String()).Msg("menu item created")
	return item, nil
}

func (s *menuService) UpdateItem(ctx context.Context, actor, id uuid.UUID, req *model.UpdateItemRequest) (*model.MenuItem, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedList(ctx, actor, item.ListID); err != nil {
		return nil, err
	}

	if req.ListID != nil {
		dest, err := uuid.Parse(*req.ListID)
		if err != nil {
			return nil, model.NewDomainError(model.ErrCodeValidation, "listId must be a UUID")
		}
		if dest != item.ListID {
			if _, err := s.ownedList(ctx, actor, dest); err != nil {
				return nil, err
			}
			item.ListID = dest
		}
	}
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
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

	if err := checkPrices(item.Price, item.DiscountedPrice); err != nil {
		return nil, err
	}

	item.UpdatedAt = s.now().UTC()
	if err := s.menus.UpdateItem(ctx, item); err != nil {
		if err == model.ErrItemNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return item, nil
}

func (s *menuService) DeleteItem(ctx context.Context, actor, id uuid.UUID) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedList(ctx, actor, item.ListID); err != nil {
		return err
	}
	deleted, err := s.menus.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if !deleted {
		return model.ErrItemNotFound
	}
	return nil
}

// PublicMenu returns the tenant with every list and its items.
func (s *menuService) PublicMenu(ctx context.Context, username string) (*model.PublicMenu, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if admin == nil {
		return nil, model.ErrAdminNotFound
	}

	resp, err := s.ItemsByAdmin(ctx, admin.ID)
	if err != nil {
		return nil, err
	}

	byList := make(map[uuid.UUID][]model.MenuItem, len(resp.Lists))
	for _, it := range resp.Items {
		byList[it.ListID] = append(byList[it.ListID], it)
	}

	sections := make([]model.MenuSection, len(resp.Lists))
	for i, l := range resp.Lists {
		items := byList[l.ID]
		if items == nil {
			items = []model.MenuItem{}
		}
		sections[i] = model.MenuSection{List: l, Items: items}
	}

	return &model.PublicMenu{Admin: admin, Sections: sections}, nil
}

// checkPrices rejects negative prices and discounts above the price.
func checkPrices(price decimal.Decimal, discounted *decimal.Decimal) error {
	if price.IsNegative() {
		return model.ErrNegativePrice
	}
	if discounted != nil {
		if discounted.IsNegative() {
			return model.ErrNegativePrice
		}
		if discounted.GreaterThan(price) {
			return model.ErrDiscountAbovePrice
		}
	}
	return nil
}
