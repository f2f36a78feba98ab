package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"qrmenu/internal/handler"
	"qrmenu/internal/metrics"
	"qrmenu/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Admin  *handler.AdminHandler
	Menu   *handler.MenuHandler
	Order  *handler.OrderHandler
	Upload *handler.UploadHandler
}

// Options configures authentication and cross-cutting middleware.
type Options struct {
	APIKey        string
	CORSOrigins   []string
	Authenticator middleware.Authenticator
	Metrics       *metrics.Metrics

	// Idempotency is nil when Redis is disabled.
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration

	// UploadDir, when set, is served under /uploads/.
	UploadDir string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> Logging -> CORS
	r.Use(
		middleware.Recovery(logger),
		middleware.Logging(logger, opts.Metrics),
		cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", middleware.IdempotencyHeader},
			ExposedHeaders: []string{middleware.ReplayHeader},
			MaxAge:         300,
		}).Handler,
	)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	if opts.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", http.FileServer(http.Dir(opts.UploadDir))))
	}

	apiKey := middleware.APIKeyAuth(opts.APIKey, logger)
	session := middleware.SessionAuth(opts.Authenticator, logger)
	idempotent := middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL, opts.Metrics, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth", h.Auth.Login)

		r.Route("/public", func(r chi.Router) {
			r.Get("/admin/{username}", h.Admin.GetPublic)
			r.Get("/menu/{username}", h.Menu.PublicMenu)
		})

		r.Route("/admins", func(r chi.Router) {
			r.With(apiKey).Get("/", h.Admin.List)
			r.With(apiKey).Post("/", h.Admin.Create)
			r.With(apiKey).Get("/{id}", h.Admin.GetByID)
			r.With(apiKey).Patch("/{id}", h.Admin.Update)
			r.With(apiKey).Delete("/{id}", h.Admin.Delete)
			r.With(session).Put("/{id}", h.Admin.UpdateProfile)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", h.Menu.Lists)
			r.Get("/{id}", h.Menu.GetList)
			r.Group(func(r chi.Router) {
				r.Use(session)
				r.Post("/", h.Menu.CreateList)
				r.Put("/{id}", h.Menu.UpdateList)
				r.Delete("/{id}", h.Menu.DeleteList)
			})
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", h.Menu.Items)
			r.Get("/{id}", h.Menu.GetItem)
			r.Group(func(r chi.Router) {
				r.Use(session)
				r.Post("/", h.Menu.CreateItem)
				r.Put("/{id}", h.Menu.UpdateItem)
				r.Delete("/{id}", h.Menu.DeleteItem)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(idempotent).Post("/", h.Order.Create)
			r.With(session).Get("/", h.Order.List)
			r.With(session).Delete("/{id}", h.Order.Delete)
		})

		r.Route("/table-orders", func(r chi.Router) {
			r.With(idempotent).Post("/", h.Order.CreateTable)
			r.With(session).Get("/", h.Order.ListTable)
			r.With(session).Delete("/{id}", h.Order.DeleteTable)
		})

		r.With(session).Post("/upload", h.Upload.Upload)
	})

	return r
}
