package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skillforge/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	auth    RouteRegistrar
	catalog RouteRegistrar
	cart    RouteRegistrar
	orders  RouteRegistrar
	wizard  RouteRegistrar
	player  RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and expected route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers(nil)
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(path string, registrar RouteRegistrar, name string) {
			api.Route(path, func(group chi.Router) {
				if registrar != nil {
					registrar(group)
					return
				}
				registerNotImplemented(group, name)
			})
		}

		mount("/auth", cfg.auth, "auth")
		mount("/catalog", cfg.catalog, "catalog")
		mount("/cart", cfg.cart, "cart")
		mount("/orders", cfg.orders, "orders")
		mount("/wizard", cfg.wizard, "wizard")
		mount("/player", cfg.player, "player")
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithAuthRoutes mounts the credential endpoints under /auth.
func WithAuthRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.auth = registrar
	}
}

// WithCatalogRoutes mounts the catalog endpoints under /catalog.
func WithCatalogRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.catalog = registrar
	}
}

// WithCartRoutes mounts the cart endpoints under /cart.
func WithCartRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = registrar
	}
}

// WithOrderRoutes mounts the order endpoints under /orders.
func WithOrderRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.orders = registrar
	}
}

// WithWizardRoutes mounts the authoring endpoints under /wizard.
func WithWizardRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.wizard = registrar
	}
}

// WithPlayerRoutes mounts the playback endpoints under /player.
func WithPlayerRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.player = registrar
	}
}

func registerNotImplemented(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s endpoints are not configured", name), http.StatusNotImplemented))
	}
	r.HandleFunc("/", handler)
	r.HandleFunc("/*", handler)
}
