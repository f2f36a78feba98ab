package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"qrmenu/internal/auth"
	"qrmenu/internal/model"
	"qrmenu/internal/repository"
)

// Report summarises an import. Errors joins every per-record failure.
type Report struct {
	AdminsCreated int
	AdminsSkipped int
	ListsCreated  int
	ListsSkipped  int
	ItemsCreated  int
	ItemsSkipped  int
	Errors        error
}

// Failed returns the number of records that could not be imported.
func (r *Report) Failed() int {
	return len(multierr.Errors(r.Errors))
}

// Importer writes legacy snapshots through the repositories.
type Importer struct {
	admins repository.AdminRepository
	menus  repository.MenuRepository
	logger zerolog.Logger
	now    func() time.Time
	hash   func(string) (string, error)
}

// New creates an importer.
func New(admins repository.AdminRepository, menus repository.MenuRepository, logger zerolog.Logger) *Importer {
	return &Importer{
		admins: admins,
		menus:  menus,
		logger: logger.With().Str("component", "importer").Logger(),
		now:    time.Now,
		hash:   auth.HashPassword,
	}
}

// Import creates admins, then lists, then items. An admin whose username
// already exists is skipped together with its lists and items. Per-record
// failures are collected in the report; only cancellation aborts the run.
func (im *Importer) Import(ctx context.Context, snap *Snapshot) (*Report, error) {
	report := &Report{}
	if snap == nil {
		return report, nil
	}

	adminIDs := make(map[string]uuid.UUID, len(snap.Admins))
	skippedAdmins := make(map[string]bool)
	listIDs := make(map[string]uuid.UUID, len(snap.Lists))
	skippedLists := make(map[string]bool)

	for _, la := range snap.Admins {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id, skipped, err := im.importAdmin(ctx, la)
		switch {
		case err != nil:
			report.Errors = multierr.Append(report.Errors, fmt.Errorf("admin %q: %w", la.ID, err))
		case skipped:
			report.AdminsSkipped++
			skippedAdmins[la.ID] = true
		default:
			report.AdminsCreated++
			adminIDs[la.ID] = id
		}
	}

	for _, ll := range snap.Lists {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if skippedAdmins[ll.AdminID] {
			report.ListsSkipped++
			skippedLists[ll.ID] = true
			continue
		}
		adminID, ok := adminIDs[ll.AdminID]
		if !ok {
			report.Errors = multierr.Append(report.Errors, fmt.Errorf("list %q: unknown admin %q", ll.ID, ll.AdminID))
			continue
		}
		id, err := im.importList(ctx, adminID, ll)
		if err != nil {
			report.Errors = multierr.Append(report.Errors, fmt.Errorf("list %q: %w", ll.ID, err))
			continue
		}
		report.ListsCreated++
		listIDs[ll.ID] = id
	}

	for _, li := range snap.Items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if skippedLists[li.ListID] {
			report.ItemsSkipped++
			continue
		}
		listID, ok := listIDs[li.ListID]
		if !ok {
			report.Errors = multierr.Append(report.Errors, fmt.Errorf("item %q: unknown list %q", li.ID, li.ListID))
			continue
		}
		if err := im.importItem(ctx, listID, li); err != nil {
			report.Errors = multierr.Append(report.Errors, fmt.Errorf("item %q: %w", li.ID, err))
			continue
		}
		report.ItemsCreated++
	}

	im.logger.Info().
		Int("admins_created", report.AdminsCreated).
		Int("admins_skipped", report.AdminsSkipped).
		Int("lists_created", report.ListsCreated).
		Int("items_created", report.ItemsCreated).
		Int("failed", report.Failed()).
		Msg("import finished")

	return report, nil
}

func (im *Importer) importAdmin(ctx context.Context, la LegacyAdmin) (uuid.UUID, bool, error) {
	username := strings.TrimSpace(la.Username)
	if username == "" {
		return uuid.Nil, false, fmt.Errorf("username is empty")
	}
	if la.Password == "" {
		return uuid.Nil, false, fmt.Errorf("password is empty")
	}

	existing, err := im.admins.GetByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up username: %w", err)
	}
	if existing != nil {
		im.logger.Info().Str("username", username).Msg("username exists, skipping admin")
		return existing.ID, true, nil
	}

	hash, err := im.hash(la.Password)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	theme := model.Theme(la.Theme)
	if !theme.Valid() {
		theme = model.DefaultTheme
	}

	now := im.now().UTC()
	admin := &model.Admin{
		ID:                           uuid.New(),
		Username:                     username,
		PasswordHash:                 hash,
		LogoURL:                      la.LogoURL,
		BackgroundURL:                la.BackgroundURL,
		Theme:                        theme,
		WelcomeMessage:               la.WelcomeMessage,
		ContactMessage:               la.ContactMessage,
		WhatsappNumber:               strings.TrimSpace(la.WhatsappNumber),
		IsAcceptingOrders:            la.IsAcceptingOrders,
		IsAcceptingOrdersViaWhatsapp: la.IsAcceptingOrdersViaWhatsapp,
		IsAcceptingTableOrders:       la.IsAcceptingTableOrders,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	if err := im.admins.Create(ctx, admin); err != nil {
		if err == model.ErrUsernameTaken {
			return uuid.Nil, true, nil
		}
		return uuid.Nil, false, err
	}
	return admin.ID, false, nil
}

func (im *Importer) importList(ctx context.Context, adminID uuid.UUID, ll LegacyList) (uuid.UUID, error) {
	itemType := strings.TrimSpace(ll.ItemType)
	if itemType == "" {
		itemType = model.DefaultItemType
	}
	list := &model.MenuList{
		ID:        uuid.New(),
		AdminID:   adminID,
		Name:      strings.TrimSpace(ll.Name),
		ItemType:  itemType,
		CreatedAt: im.now().UTC(),
	}
	if err := im.menus.CreateList(ctx, list); err != nil {
		return uuid.Nil, err
	}
	return list.ID, nil
}

func (im *Importer) importItem(ctx context.Context, listID uuid.UUID, li LegacyItem) error {
	if strings.TrimSpace(li.Name) == "" {
		return fmt.Errorf("name is empty")
	}
	if li.Price.IsNegative() {
		return model.ErrNegativePrice
	}
	discounted := li.DiscountedPrice
	if discounted != nil && (discounted.IsNegative() || discounted.GreaterThan(li.Price)) {
		im.logger.Warn().Str("item", li.ID).Msg("dropping invalid discounted price")
		discounted = nil
	}

	now := im.now().UTC()
	return im.menus.CreateItem(ctx, &model.MenuItem{
		ID:              uuid.New(),
		ListID:          listID,
		Name:            strings.TrimSpace(li.Name),
		Price:           li.Price,
		DiscountedPrice: discounted,
		Description:     li.Description,
		ImageURL:        li.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}
