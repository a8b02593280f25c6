// Package app wires configuration into the running services. Both the HTTP
// server and navctl build on it.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"navmenus/internal/blog"
	"navmenus/internal/content"
	"navmenus/internal/delivery"
	"navmenus/internal/delivery/store"
	navhandler "navmenus/internal/navigation/handler"
	navmetrics "navmenus/internal/navigation/metrics"
	"navmenus/internal/navigation/models"
	"navmenus/internal/navigation/service"
	"navmenus/internal/platform/config"
	"navmenus/internal/platform/metrics"
	"navmenus/internal/platform/middleware"
	"navmenus/internal/platform/redis"
	"navmenus/pkg/platform/circuit"
	"navmenus/pkg/platform/httputil"
)

// App holds the wired services and their shared infrastructure.
type App struct {
	Config     config.Server
	Navigation *service.Service
	Blog       *blog.Service
	Transport  *delivery.HTTPTransport
	Redis      *redis.Client

	logger   *slog.Logger
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

type Option func(*App)

// WithRegistry registers metrics with reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
		a.gatherer = reg
	}
}

// New connects to Redis when configured and builds every service.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:   cfg,
		logger:   logger,
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}

	transportOpts := []delivery.TransportOption{
		delivery.WithTimeout(cfg.Delivery.Timeout),
		delivery.WithTransportLogger(logger),
	}
	if cfg.Delivery.BaseURL != "" {
		transportOpts = append(transportOpts, delivery.WithBaseURL(cfg.Delivery.BaseURL))
	}
	if cfg.Delivery.PreviewAPIKey != "" {
		transportOpts = append(transportOpts, delivery.WithPreviewAPIKey(cfg.Delivery.PreviewAPIKey))
	}
	if cfg.Delivery.BreakerFailures > 0 {
		transportOpts = append(transportOpts, delivery.WithBreaker(
			circuit.New("delivery-api", circuit.WithFailureThreshold(cfg.Delivery.BreakerFailures)),
		))
	}
	transport, err := delivery.NewHTTPTransport(cfg.Delivery.ProjectID, transportOpts...)
	if err != nil {
		return nil, err
	}
	a.Transport = transport

	responses, err := a.responseStore(ctx)
	if err != nil {
		return nil, err
	}
	cached := delivery.NewCachedTransport(transport, responses, cfg.Delivery.ResponseCacheTTL, logger)

	types := content.NewTypeProvider()
	models.RegisterType(types)
	client, err := delivery.NewClient(cached,
		delivery.WithLogger(logger),
		delivery.WithTypeProvider(types),
	)
	if err != nil {
		return nil, err
	}

	var nav *service.Service
	nav, err = service.New(cfg.Navigation, client,
		service.WithLogger(logger),
		service.WithMetrics(navmetrics.NewWithRegisterer(a.registry)),
		service.WithInvalidateHook(func(ctx context.Context) {
			if err := cached.Forget(ctx, nav.NavigationQuery()); err != nil {
				logger.WarnContext(ctx, "failed to purge cached navigation response", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	a.Navigation = nav

	a.Blog, err = blog.New(client, nav, cfg.Navigation.Archive.ContentType, cfg.Navigation.Archive.DateElement,
		blog.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) responseStore(ctx context.Context) (store.ResponseStore, error) {
	if a.Config.Redis.URL == "" {
		a.logger.Info("using in-process response cache")
		return store.NewMemory(time.Now), nil
	}
	client, err := redis.New(ctx, a.Config.Redis)
	if err != nil {
		return nil, err
	}
	a.Redis = client
	a.logger.Info("using redis response cache")
	return store.NewRedis(client.Client, ""), nil
}

// Router builds the HTTP surface.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(a.logger))
	r.Use(middleware.AccessLog(a.logger))
	r.Use(metrics.NewWithRegisterer(a.registry).Middleware)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	nav := navhandler.New(a.Navigation, a.logger, navhandler.WithWebhookSecret(a.Config.WebhookSecret))
	nav.Register(r)
	if mount := a.Config.Navigation.Archive.MountPoint; mount != "" {
		blog.NewHandler(a.Blog, a.logger).Register(r, "/"+strings.Trim(mount, "/"))
	}
	nav.RegisterStatic(r)
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":   "ok",
		"delivery": a.Transport.Breaker().State().String(),
	}
	code := http.StatusOK
	if a.Redis != nil {
		if err := a.Redis.Health(r.Context()); err != nil {
			status["status"] = "degraded"
			status["redis"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "ok"
		}
	}
	httputil.WriteJSON(w, code, status)
}

// Close releases external connections.
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
