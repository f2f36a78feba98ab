package importer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"qrmenu/internal/auth"
	"qrmenu/internal/model"
)

type memoryAdmins struct {
	mu        sync.Mutex
	byName    map[string]*model.Admin
	createErr error
}

func newMemoryAdmins(existing ...string) *memoryAdmins {
	m := &memoryAdmins{byName: map[string]*model.Admin{}}
	for _, name := range existing {
		m.byName[name] = &model.Admin{ID: uuid.New(), Username: name}
	}
	return m
}

func (m *memoryAdmins) List(ctx context.Context) ([]model.Admin, error) { return nil, nil }
func (m *memoryAdmins) GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	return nil, nil
}
func (m *memoryAdmins) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byName[username], nil
}
func (m *memoryAdmins) Create(ctx context.Context, admin *model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byName[admin.Username]; ok {
		return model.ErrUsernameTaken
	}
	m.byName[admin.Username] = admin
	return nil
}
func (m *memoryAdmins) Update(ctx context.Context, admin *model.Admin) error { return nil }
func (m *memoryAdmins) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

type memoryMenus struct {
	lists []model.MenuList
	items []model.MenuItem
}

func (m *memoryMenus) ListLists(ctx context.Context, adminID uuid.UUID) ([]model.MenuList, error) {
	return nil, nil
}
func (m *memoryMenus) GetList(ctx context.Context, id uuid.UUID) (*model.MenuList, error) {
	return nil, nil
}
func (m *memoryMenus) CreateList(ctx context.Context, list *model.MenuList) error {
	m.lists = append(m.lists, *list)
	return nil
}
func (m *memoryMenus) UpdateList(ctx context.Context, list *model.MenuList) error { return nil }
func (m *memoryMenus) DeleteList(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}
func (m *memoryMenus) ItemsByList(ctx context.Context, listID uuid.UUID) ([]model.MenuItem, error) {
	return nil, nil
}
func (m *memoryMenus) ItemsByAdmin(ctx context.Context, adminID uuid.UUID) ([]model.MenuItem, error) {
	return nil, nil
}
func (m *memoryMenus) GetItem(ctx context.Context, id uuid.UUID) (*model.MenuItem, error) {
	return nil, nil
}
func (m *memoryMenus) CreateItem(ctx context.Context, item *model.MenuItem) error {
	m.items = append(m.items, *item)
	return nil
}
func (m *memoryMenus) UpdateItem(ctx context.Context, item *model.MenuItem) error { return nil }
func (m *memoryMenus) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func newTestImporter(admins *memoryAdmins, menus *memoryMenus) *Importer {
	im := New(admins, menus, zerolog.Nop())
	im.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return im
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestImport_MapsLegacyIDs(t *testing.T) {
	admins := newMemoryAdmins()
	menus := &memoryMenus{}
	im := newTestImporter(admins, menus)

	snap := &Snapshot{
		Admins: []LegacyAdmin{{ID: "a1", Username: " cafe ", Password: "secret1", Theme: "neon"}},
		Lists:  []LegacyList{{ID: "l1", Name: "Drinks", AdminID: "a1"}},
		Items: []LegacyItem{
			{ID: "i1", Name: "Tea", Price: decimal.NewFromInt(10), DiscountedPrice: decPtr("8"), ListID: "l1"},
			{ID: "i2", Name: "Coffee", Price: decimal.NewFromInt(12), DiscountedPrice: decPtr("20"), ListID: "l1"},
		},
	}

	report, err := im.Import(context.Background(), snap)
	require.NoError(t, err)
	assert.NoError(t, report.Errors)
	assert.Equal(t, 1, report.AdminsCreated)
	assert.Equal(t, 1, report.ListsCreated)
	assert.Equal(t, 2, report.ItemsCreated)

	admin := admins.byName["cafe"]
	require.NotNil(t, admin)
	assert.Equal(t, "hashed:secret1", admin.PasswordHash)
	assert.Equal(t, model.DefaultTheme, admin.Theme)

	require.Len(t, menus.lists, 1)
	assert.Equal(t, admin.ID, menus.lists[0].AdminID)
	assert.Equal(t, model.DefaultItemType, menus.lists[0].ItemType)

	require.Len(t, menus.items, 2)
	for _, it := range menus.items {
		assert.Equal(t, menus.lists[0].ID, it.ListID)
	}
	require.NotNil(t, menus.items[0].DiscountedPrice)
	assert.Nil(t, menus.items[1].DiscountedPrice, "discount above price is dropped")
}

func TestImport_SkipsExistingUsernames(t *testing.T) {
	admins := newMemoryAdmins("cafe")
	menus := &memoryMenus{}
	im := newTestImporter(admins, menus)

	snap := &Snapshot{
		Admins: []LegacyAdmin{
			{ID: "a1", Username: "cafe", Password: "secret1"},
			{ID: "a2", Username: "bakery", Password: "secret2"},
		},
		Lists: []LegacyList{
			{ID: "l1", Name: "Drinks", AdminID: "a1"},
			{ID: "l2", Name: "Bread", AdminID: "a2"},
		},
		Items: []LegacyItem{
			{ID: "i1", Name: "Tea", Price: decimal.NewFromInt(10), ListID: "l1"},
			{ID: "i2", Name: "Baguette", Price: decimal.NewFromInt(4), ListID: "l2"},
		},
	}

	report, err := im.Import(context.Background(), snap)
	require.NoError(t, err)
	assert.NoError(t, report.Errors)
	assert.Equal(t, 1, report.AdminsCreated)
	assert.Equal(t, 1, report.AdminsSkipped)
	assert.Equal(t, 1, report.ListsSkipped)
	assert.Equal(t, 1, report.ItemsSkipped)
	require.Len(t, menus.items, 1)
	assert.Equal(t, "Baguette", menus.items[0].Name)
}

func TestImport_CollectsFailures(t *testing.T) {
	admins := newMemoryAdmins()
	menus := &memoryMenus{}
	im := newTestImporter(admins, menus)

	snap := &Snapshot{
		Admins: []LegacyAdmin{
			{ID: "a1", Username: "cafe", Password: "secret1"},
			{ID: "a2", Username: "", Password: "x"},
			{ID: "a3", Username: "nopass"},
		},
		Lists: []LegacyList{
			{ID: "l1", Name: "Drinks", AdminID: "a1"},
			{ID: "l2", Name: "Orphan", AdminID: "ghost"},
		},
		Items: []LegacyItem{
			{ID: "i1", Name: "Tea", Price: decimal.NewFromInt(10), ListID: "l1"},
			{ID: "i2", Name: "Refund", Price: decimal.NewFromInt(-1), ListID: "l1"},
			{ID: "i3", Name: "Lost", Price: decimal.NewFromInt(1), ListID: "l2"},
			{ID: "i4", Name: " ", Price: decimal.NewFromInt(1), ListID: "l1"},
		},
	}

	report, err := im.Import(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AdminsCreated)
	assert.Equal(t, 1, report.ListsCreated)
	assert.Equal(t, 1, report.ItemsCreated)
	assert.Equal(t, 6, report.Failed())

	errs := multierr.Errors(report.Errors)
	assert.Contains(t, errs[0].Error(), `admin "a2"`)
	assert.ErrorIs(t, report.Errors, model.ErrNegativePrice)
}

func TestImport_RepositoryError(t *testing.T) {
	admins := newMemoryAdmins()
	admins.createErr = errors.New("connection reset")
	im := newTestImporter(admins, &memoryMenus{})

	report, err := im.Import(context.Background(), &Snapshot{
		Admins: []LegacyAdmin{{ID: "a1", Username: "cafe", Password: "secret1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.AdminsCreated)
	assert.Equal(t, 1, report.Failed())
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	im := newTestImporter(newMemoryAdmins(), &memoryMenus{})
	_, err := im.Import(ctx, &Snapshot{Admins: []LegacyAdmin{{ID: "a1", Username: "cafe", Password: "secret1"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImport_HashesWithArgon2(t *testing.T) {
	admins := newMemoryAdmins()
	im := New(admins, &memoryMenus{}, zerolog.Nop())

	_, err := im.Import(context.Background(), &Snapshot{
		Admins: []LegacyAdmin{{ID: "a1", Username: "cafe", Password: "secret1"}},
	})
	require.NoError(t, err)

	ok, err := auth.VerifyPassword("secret1", admins.byName["cafe"].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
