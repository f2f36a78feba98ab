package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmenu/internal/cache"
)

type fakeStore struct {
	mu     sync.Mutex
	data   map[string]string
	err    error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", cache.ErrMiss
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *outcomeRecorder) IdempotencyOutcome(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call":%d,"echo":%q}`, *calls, string(body))
	})
}

func post(handler http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysSameBody(t *testing.T) {
	store := newFakeStore()
	observer := &outcomeRecorder{}
	calls := 0
	handler := Idempotency(store, time.Hour, observer, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))

	first := post(handler, "key-1", `{"a":1}`)
	second := post(handler, "key-1", `{"a":1}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Empty(t, first.Header().Get(ReplayHeader))
	assert.Equal(t, "true", second.Header().Get(ReplayHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, []string{"stored", "replayed"}, observer.outcomes)
}

func TestIdempotency_DifferentBody(t *testing.T) {
	store := newFakeStore()
	observer := &outcomeRecorder{}
	calls := 0
	handler := Idempotency(store, time.Hour, observer, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))

	post(handler, "key-1", `{"a":1}`)
	w := post(handler, "key-1", `{"a":2}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_CONFLICT")
	assert.Equal(t, []string{"stored", "mismatch"}, observer.outcomes)
}

func TestIdempotency_InFlight(t *testing.T) {
	store := newFakeStore()
	observer := &outcomeRecorder{}
	calls := 0
	handler := Idempotency(store, time.Hour, observer, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))

	store.data[store.IdempotencyKey("POST|/api/orders", "key-1")] = inFlightMarker

	w := post(handler, "key-1", `{"a":1}`)

	assert.Equal(t, 0, calls)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, []string{"conflict"}, observer.outcomes)
}

func TestIdempotency_FailureReleasesKey(t *testing.T) {
	store := newFakeStore()
	calls := 0
	status := http.StatusBadRequest
	handler := Idempotency(store, time.Hour, nil, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	first := post(handler, "key-1", `{}`)
	status = http.StatusCreated
	second := post(handler, "key-1", `{}`)

	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_PassThrough(t *testing.T) {
	tests := []struct {
		name  string
		store IdempotencyStore
		key   string
	}{
		{name: "No key", store: newFakeStore(), key: ""},
		{name: "No store", store: nil, key: "key-1"},
		{name: "Store unavailable", store: &fakeStore{data: map[string]string{}, err: errors.New("redis down")}, key: "key-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := Idempotency(tt.store, time.Hour, nil, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))

			post(handler, tt.key, `{}`)
			w := post(handler, tt.key, `{}`)

			require.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, 2, calls)
			assert.Empty(t, w.Header().Get(ReplayHeader))
		})
	}
}

func TestIdempotency_ScopesByPath(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))

	post(handler, "key-1", `{}`)

	req := httptest.NewRequest(http.MethodPost, "/api/table-orders", strings.NewReader(`{}`))
	req.Header.Set(IdempotencyHeader, "key-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, 2, calls)
	assert.Empty(t, w.Header().Get(ReplayHeader))
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := newFakeStore()
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("order service exploded")
	})
	handler := Recovery(zerolog.Nop())(Idempotency(store, time.Hour, nil, zerolog.Nop())(panicking))

	w := post(handler, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	store.mu.Lock()
	assert.Empty(t, store.data, "a panicking request must not hold the key")
	store.mu.Unlock()

	calls := 0
	retry := Idempotency(store, time.Hour, nil, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))
	w = post(retry, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_FailedRecordWriteReleasesKey(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("redis write failed")
	calls := 0
	handler := Idempotency(store, time.Hour, nil, zerolog.Nop())(countingHandler(&calls, http.StatusCreated))

	w := post(handler, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	store.mu.Lock()
	assert.Empty(t, store.data)
	store.mu.Unlock()

	w = post(handler, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, calls)
}
