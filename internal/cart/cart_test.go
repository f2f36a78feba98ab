package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmenu/internal/cache"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func openStore(t *testing.T, storage Storage, scope Scope) *Store {
	t.Helper()
	s, err := Open(context.Background(), storage, scope, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestScope_Key(t *testing.T) {
	assert.Equal(t, "menu_cart_cafe", Scope{Tenant: "cafe"}.Key())
	assert.Equal(t, "menu_cart_table_7_cafe", Scope{Tenant: "cafe", Table: 7}.Key())
	assert.False(t, Scope{Tenant: "cafe"}.HasTable())
	assert.True(t, Scope{Tenant: "cafe", Table: 7}.HasTable())
	assert.Equal(t, "pending_order_menu_cart_table_7_cafe", Scope{Tenant: "cafe", Table: 7}.PendingKey())
}

func TestStore_AddItemAccumulates(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, NewMemoryStorage(), Scope{Tenant: "cafe"})

	tea := Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddItem(ctx, tea))
	}
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "b", Name: "Cake", UnitPrice: dec("20")}))

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].ItemID)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "b", lines[1].ItemID)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.Equal(t, 6, s.Count())
}

func TestStore_AddItemKeepsFirstSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, NewMemoryStorage(), Scope{Tenant: "cafe"})

	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea (new)", UnitPrice: dec("12")}))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Tea", lines[0].Name)
	assert.True(t, dec("10").Equal(lines[0].UnitPrice))
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		itemID    string
		quantity  int
		wantLines int
		wantQty   int
	}{
		{name: "Absolute set", itemID: "a", quantity: 4, wantLines: 1, wantQty: 4},
		{name: "Zero removes", itemID: "a", quantity: 0, wantLines: 0},
		{name: "Negative removes", itemID: "a", quantity: -1, wantLines: 0},
		{name: "Unknown item is ignored", itemID: "zzz", quantity: 9, wantLines: 1, wantQty: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := openStore(t, NewMemoryStorage(), Scope{Tenant: "cafe"})
			tea := Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}
			require.NoError(t, s.AddItem(ctx, tea))
			require.NoError(t, s.AddItem(ctx, tea))

			require.NoError(t, s.UpdateQuantity(ctx, tt.itemID, tt.quantity))

			lines := s.Lines()
			require.Len(t, lines, tt.wantLines)
			if tt.wantLines > 0 {
				assert.Equal(t, tt.wantQty, lines[0].Quantity)
			}
		})
	}
}

func TestStore_RemoveItem(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, NewMemoryStorage(), Scope{Tenant: "cafe"})
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "b", Name: "Cake", UnitPrice: dec("20")}))

	require.NoError(t, s.RemoveItem(ctx, "a"))
	require.NoError(t, s.RemoveItem(ctx, "missing"))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "b", lines[0].ItemID)
}

func TestStore_Totals(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, NewMemoryStorage(), Scope{Tenant: "cafe"})

	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "b", Name: "Cake", UnitPrice: dec("20"), DiscountedUnitPrice: decPtr("15")}))

	assert.True(t, dec("35").Equal(s.TotalPrice()), "got %s", s.TotalPrice())
	assert.True(t, dec("5").Equal(s.TotalDiscount()), "got %s", s.TotalDiscount())
}

func TestStore_ClearThenReloadIsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	scope := Scope{Tenant: "cafe"}

	s := openStore(t, storage, scope)
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
	require.NoError(t, s.Clear(ctx))

	reloaded := openStore(t, storage, scope)
	assert.Empty(t, reloaded.Lines())

	raw, err := storage.Get(ctx, scope.Key())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	scope := Scope{Tenant: "cafe", Table: 3}

	s := openStore(t, storage, scope)
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10"), ImageURL: "https://img/tea.png"}))
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "b", Name: "Cake", UnitPrice: dec("20"), DiscountedUnitPrice: decPtr("15")}))

	reloaded := openStore(t, storage, scope)
	assert.Equal(t, s.Lines(), reloaded.Lines())
}

func TestStore_ScopeIsolation(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	scopes := []Scope{
		{Tenant: "cafe"},
		{Tenant: "cafe", Table: 1},
		{Tenant: "cafe", Table: 2},
		{Tenant: "bakery"},
	}

	for i, scope := range scopes {
		s := openStore(t, storage, scope)
		for n := 0; n <= i; n++ {
			require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
		}
	}

	for i, scope := range scopes {
		s := openStore(t, storage, scope)
		lines := s.Lines()
		require.Len(t, lines, 1, scope.Key())
		assert.Equal(t, i+1, lines[0].Quantity, scope.Key())
	}

	fresh := openStore(t, storage, Scope{Tenant: "cafe", Table: 9})
	assert.Empty(t, fresh.Lines())
}

func TestOpen_MalformedStoredValueYieldsEmptyCart(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "Not JSON", raw: `{{{`},
		{name: "Wrong shape", raw: `{"id":"a"}`},
		{name: "Zero quantity", raw: `[{"id":"a","name":"Tea","price":10,"quantity":0}]`},
		{name: "Duplicate item", raw: `[{"id":"a","name":"Tea","price":10,"quantity":1},{"id":"a","name":"Tea","price":10,"quantity":2}]`},
		{name: "Missing id", raw: `[{"name":"Tea","price":10,"quantity":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage()
			scope := Scope{Tenant: "cafe"}
			require.NoError(t, storage.Set(ctx, scope.Key(), []byte(tt.raw)))

			s, err := Open(ctx, storage, scope, zerolog.Nop())
			require.NoError(t, err)
			assert.Empty(t, s.Lines())
		})
	}
}

func TestOpen_ReadsLegacyFormat(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	scope := Scope{Tenant: "cafe"}
	raw := `[{"id":"1712","name":"Tea","price":10,"discountedPrice":8,"quantity":2,"imageUrl":"https://img/tea.png"}]`
	require.NoError(t, storage.Set(ctx, scope.Key(), []byte(raw)))

	s := openStore(t, storage, scope)
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "1712", lines[0].ItemID)
	require.NotNil(t, lines[0].DiscountedUnitPrice)
	assert.True(t, dec("8").Equal(*lines[0].DiscountedUnitPrice))
	assert.True(t, dec("16").Equal(s.TotalPrice()))
	assert.True(t, dec("4").Equal(s.TotalDiscount()))
}

type failingStorage struct {
	Storage
	setErr error
	getErr error
}

func (f *failingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Storage.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Storage.Set(ctx, key, value)
}

func TestOpen_StorageErrorIsReturned(t *testing.T) {
	storage := &failingStorage{Storage: NewMemoryStorage(), getErr: errors.New("disk gone")}

	_, err := Open(context.Background(), storage, Scope{Tenant: "cafe"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestStore_PersistFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{Storage: NewMemoryStorage()}
	s := openStore(t, storage, Scope{Tenant: "cafe"})

	storage.setErr = errors.New("quota exceeded")
	err := s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")})
	require.Error(t, err)
	assert.Len(t, s.Lines(), 1)

	storage.setErr = nil
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))
	reloaded := openStore(t, storage, Scope{Tenant: "cafe"})
	require.Len(t, reloaded.Lines(), 1)
	assert.Equal(t, 2, reloaded.Lines()[0].Quantity)
}

func TestStore_PendingSubmission(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	scope := Scope{Tenant: "cafe", Table: 2}
	s := openStore(t, storage, scope)

	p, err := s.PendingSubmission(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.SetPendingSubmission(ctx, PendingSubmission{Key: "k-1", Fingerprint: "f-1"}))

	reopened := openStore(t, storage, scope)
	p, err = reopened.PendingSubmission(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, PendingSubmission{Key: "k-1", Fingerprint: "f-1"}, *p)
	assert.Empty(t, reopened.Lines(), "the pending attempt is not a cart line")

	other := openStore(t, storage, Scope{Tenant: "cafe"})
	p, err = other.PendingSubmission(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, reopened.ClearPendingSubmission(ctx))
	p, err = s.PendingSubmission(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_MalformedPendingSubmissionIsIgnored(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	scope := Scope{Tenant: "cafe"}
	require.NoError(t, storage.Set(ctx, scope.PendingKey(), []byte("{not json")))

	p, err := openStore(t, storage, scope).PendingSubmission(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Get(ctx, "menu_cart_café/1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.Set(ctx, "menu_cart_café/1", []byte(`[]`)))
	got, err := storage.Get(ctx, "menu_cart_café/1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, storage.Delete(ctx, "menu_cart_café/1"))
	require.NoError(t, storage.Delete(ctx, "menu_cart_café/1"))
	_, err = storage.Get(ctx, "menu_cart_café/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeKV) CartKey(scope string) string {
	return "qm:cart:" + scope
}

func TestRedisStorage(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
	storage := NewRedisStorage(kv, 48*time.Hour)
	scope := Scope{Tenant: "cafe", Table: 2}

	s := openStore(t, storage, scope)
	require.NoError(t, s.AddItem(ctx, Item{ItemID: "a", Name: "Tea", UnitPrice: dec("10")}))

	assert.Contains(t, kv.values, "qm:cart:menu_cart_table_2_cafe")
	assert.Equal(t, 48*time.Hour, kv.ttls["qm:cart:menu_cart_table_2_cafe"])

	reloaded := openStore(t, storage, scope)
	assert.Len(t, reloaded.Lines(), 1)

	require.NoError(t, storage.Delete(ctx, scope.Key()))
	_, err := storage.Get(ctx, scope.Key())
	assert.ErrorIs(t, err, ErrNotFound)
}
