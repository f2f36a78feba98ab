package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"qrmenu/internal/auth"
	"qrmenu/internal/config"
	"qrmenu/internal/handler"
	"qrmenu/internal/metrics"
	"qrmenu/internal/migrate"
	"qrmenu/internal/model"
	"qrmenu/internal/repository"
	"qrmenu/internal/router"
	"qrmenu/internal/service"
	"qrmenu/internal/upload"
)

const testAPIKey = "test-api-key"

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
}

// SetupTestDB creates a PostgreSQL test container and applies the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := migrate.Apply(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{Container: postgresContainer, Pool: pool}
}

// StartServer wires the full API against the test database and serves it.
func StartServer(t *testing.T, testDB *TestDB) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	authCfg := config.AuthConfig{
		APIKey:        testAPIKey,
		SessionSecret: "integration-session-secret-0123456789",
		SessionTTL:    time.Hour,
		Issuer:        "qrmenu-test",
		LoginAttempts: 10,
		LoginWindow:   time.Minute,
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)

	adminRepo := repository.NewAdminRepository(testDB.Pool, logger)
	menuRepo := repository.NewMenuRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)

	authService := service.NewAuthService(adminRepo, auth.NewTokens(authCfg), nil, authCfg, logger)
	adminService := service.NewAdminService(adminRepo, logger)
	menuService := service.NewMenuService(menuRepo, adminRepo, logger)
	orderService := service.NewOrderService(orderRepo, adminRepo, m, logger)

	uploadDir := t.TempDir()
	store, err := upload.NewLocalStore(uploadDir, "/uploads", logger)
	require.NoError(t, err)

	h := router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{"database": testDB.Pool}, logger),
		Auth:   handler.NewAuthHandler(authService, logger),
		Admin:  handler.NewAdminHandler(adminService, logger),
		Menu:   handler.NewMenuHandler(menuService, logger),
		Order:  handler.NewOrderHandler(orderService, logger),
		Upload: handler.NewUploadHandler(upload.NewUploader(store, 1<<20, logger), logger),
	}

	srv := httptest.NewServer(router.New(h, router.Options{
		APIKey:        testAPIKey,
		CORSOrigins:   []string{"*"},
		Authenticator: authService,
		Metrics:       m,
		UploadDir:     uploadDir,
	}, logger))
	t.Cleanup(srv.Close)
	return srv
}

// CreateAdmin registers a tenant through the operator endpoint.
func CreateAdmin(t *testing.T, srv *httptest.Server, req model.CreateAdminRequest) *model.Admin {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admins", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", testAPIKey)

	resp, err := srv.Client().Do(httpReq)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var admin model.Admin
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&admin))
	return &admin
}

// CleanupDB removes every tenant; lists, items and orders cascade.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "DELETE FROM admins"); err != nil {
		t.Logf("failed to clean admins: %v", err)
	}
}
