// Package service orchestrates loading, decorating, caching and resolving
// the navigation tree for the HTTP layer and the CLI.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"navmenus/internal/content"
	"navmenus/internal/delivery"
	"navmenus/internal/navigation/cache"
	"navmenus/internal/navigation/decorator"
	"navmenus/internal/navigation/loader"
	"navmenus/internal/navigation/menu"
	"navmenus/internal/navigation/metrics"
	"navmenus/internal/navigation/models"
	"navmenus/internal/navigation/resolver"
	"navmenus/internal/navigation/sitemap"
	"navmenus/internal/platform/config"
	dErrors "navmenus/pkg/domain-errors"
	"navmenus/pkg/platform/sentinel"
)

// Cache keys of the two cached trees.
const (
	NavigationCacheKey = "navigationWithUrlPaths"
	MenuCacheKey       = "navigationMenu"
)

// ContentClient fetches content items from the delivery API.
type ContentClient interface {
	GetItems(ctx context.Context, q delivery.Query) (*delivery.Response, error)
}

// Page is everything needed to render one resolved URL.
type Page struct {
	ViewName string
	Menu     *models.NavigationItem
	Items    []content.ContentItem
}

type Service struct {
	client    ContentClient
	loader    *loader.Loader
	decorator *decorator.Decorator
	resolver  *resolver.Resolver
	augmenter *menu.Augmenter
	navCache  *cache.Cache[*models.NavigationItem]
	menuCache *cache.Cache[*models.NavigationItem]

	rules   []menu.Rule
	onReset []func(ctx context.Context)
	clock   cache.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock drives cache expiry.
func WithClock(clock cache.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithMenuRules replaces the archive rule derived from configuration.
func WithMenuRules(rules ...menu.Rule) Option {
	return func(s *Service) {
		s.rules = rules
	}
}

// WithInvalidateHook runs fn on every Invalidate, e.g. to purge upstream
// response caches.
func WithInvalidateHook(fn func(ctx context.Context)) Option {
	return func(s *Service) {
		s.onReset = append(s.onReset, fn)
	}
}

// New validates cfg eagerly; any error is a fatal configuration error.
func New(cfg config.Navigation, client ContentClient, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("content client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		client: client,
		logger: slog.Default(),
		tracer: otel.Tracer("navmenus/navigation"),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.loader, err = loader.New(client, cfg.RootCodename, cfg.MaxDepth); err != nil {
		return nil, err
	}
	if s.decorator, err = decorator.New(cfg.RootToken, cfg.HomepageToken); err != nil {
		return nil, err
	}
	if s.resolver, err = resolver.New(cfg.HomepageToken, resolver.WithRootLevel(cfg.RootLevel)); err != nil {
		return nil, err
	}

	if s.rules == nil && cfg.Archive.MountPoint != "" {
		archiveOpts := []menu.ArchiveOption{menu.WithLogger(s.logger)}
		if cfg.Archive.Hierarchical {
			archiveOpts = append(archiveOpts, menu.Hierarchical())
		}
		gen, err := menu.NewArchiveGenerator(client, cfg.Archive.ContentType, cfg.Archive.DateElement, archiveOpts...)
		if err != nil {
			return nil, err
		}
		s.rules = []menu.Rule{{MountPoint: cfg.Archive.MountPoint, Generator: gen}}
	}
	if s.augmenter, err = menu.New(s.rules...); err != nil {
		return nil, err
	}

	var cacheOpts []cache.Option[*models.NavigationItem]
	if s.clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock[*models.NavigationItem](s.clock))
	}
	if s.navCache, err = cache.New(cfg.CacheExpiration, cacheOpts...); err != nil {
		return nil, err
	}
	if s.menuCache, err = cache.New(cfg.MenuCacheExpiration, cacheOpts...); err != nil {
		return nil, err
	}
	return s, nil
}

// Navigation returns the decorated tree, loading it on a cache miss. The
// returned tree is shared and must not be modified.
func (s *Service) Navigation(ctx context.Context) (*models.NavigationItem, error) {
	return s.navCache.GetOrLoad(ctx, NavigationCacheKey, s.loadNavigation)
}

func (s *Service) loadNavigation(ctx context.Context) (root *models.NavigationItem, err error) {
	ctx, span := s.tracer.Start(ctx, "navigation.Load",
		trace.WithAttributes(attribute.String("codename", s.loader.Codename())),
	)
	start := time.Now()
	defer func() {
		s.metrics.ObserveLoad("navigation", start, err)
		endSpan(span, err)
	}()

	root, err = s.loader.Load(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "navigation root not found", "codename", s.loader.Codename())
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "navigation root item not found")
		}
		s.logger.ErrorContext(ctx, "failed to load navigation", "codename", s.loader.Codename(), "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load navigation")
	}

	if _, err = s.decorator.Decorate(ctx, root); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decorate navigation")
	}

	s.logger.InfoContext(ctx, "navigation loaded",
		"codename", s.loader.Codename(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return root, nil
}

// Menu returns the augmented menu tree, cached under its own key.
func (s *Service) Menu(ctx context.Context) (*models.NavigationItem, error) {
	return s.menuCache.GetOrLoad(ctx, MenuCacheKey, s.loadMenu)
}

func (s *Service) loadMenu(ctx context.Context) (out *models.NavigationItem, err error) {
	ctx, span := s.tracer.Start(ctx, "navigation.Menu")
	start := time.Now()
	defer func() {
		s.metrics.ObserveLoad("menu", start, err)
		endSpan(span, err)
	}()

	root, err := s.Navigation(ctx)
	if err != nil {
		return nil, err
	}
	out, err = s.augmenter.Augment(ctx, root)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate menu items", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate menu")
	}
	return out, nil
}

// Resolve maps a relative URL path onto the cached tree.
func (s *Service) Resolve(ctx context.Context, urlPath string) (result models.ResolveResult, err error) {
	ctx, span := s.tracer.Start(ctx, "navigation.Resolve",
		trace.WithAttributes(attribute.String("url_path", urlPath)),
	)
	start := time.Now()
	defer func() {
		if err == nil {
			s.metrics.ObserveResolve(string(result.Kind()), start)
			span.SetAttributes(attribute.String("kind", string(result.Kind())))
		}
		endSpan(span, err)
	}()

	root, err := s.Navigation(ctx)
	if err != nil {
		return models.ResolveResult{}, err
	}
	return s.resolver.Resolve(root, urlPath), nil
}

// Page fetches the menu and the body items of a resolved page. Items come
// back in the order of codenames; codenames the API did not return are
// skipped.
func (s *Service) Page(ctx context.Context, result models.ResolveResult) (*Page, error) {
	ctx, span := s.tracer.Start(ctx, "navigation.Page",
		trace.WithAttributes(attribute.StringSlice("codenames", result.ContentItemCodenames)),
	)
	var err error
	defer func() { endSpan(span, err) }()

	if result.Kind() != models.KindContent {
		err = dErrors.New(dErrors.CodeBadRequest, "result has no content to render")
		return nil, err
	}

	m, err := s.Menu(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetItems(ctx, delivery.Query{
		delivery.In("system.codename", result.ContentItemCodenames...),
		delivery.Depth(1),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch page items", "error", err)
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch page content")
		return nil, err
	}

	return &Page{
		ViewName: result.ViewName,
		Menu:     m,
		Items:    inOrder(resp.Items, result.ContentItemCodenames),
	}, nil
}

func inOrder(items []content.ContentItem, codenames []string) []content.ContentItem {
	byCodename := make(map[string]content.ContentItem, len(items))
	for _, item := range items {
		byCodename[item.Sys().Codename] = item
	}
	out := make([]content.ContentItem, 0, len(codenames))
	for _, c := range codenames {
		if item, ok := byCodename[c]; ok {
			out = append(out, item)
		}
	}
	return out
}

// Sitemap lists every navigable path that has fetched content, dated by its
// most recently modified item.
func (s *Service) Sitemap(ctx context.Context) (entries []sitemap.Entry, err error) {
	ctx, span := s.tracer.Start(ctx, "navigation.Sitemap")
	defer func() { endSpan(span, err) }()

	root, err := s.Navigation(ctx)
	if err != nil {
		return nil, err
	}
	nodes := sitemap.Flatten(root)
	codenames := sitemap.ContentCodenames(nodes)
	if len(codenames) == 0 {
		return []sitemap.Entry{}, nil
	}

	resp, err := s.client.GetItems(ctx, delivery.Query{
		delivery.In("system.codename", codenames...),
		delivery.Depth(0),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch sitemap items", "error", err)
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch sitemap content")
		return nil, err
	}
	entries = sitemap.Build(nodes, resp.Items)
	if entries == nil {
		entries = []sitemap.Entry{}
	}
	return entries, nil
}

// NavigationQuery is the delivery query that loads the tree.
func (s *Service) NavigationQuery() delivery.Query {
	return s.loader.Query()
}

// Invalidate drops both cached trees.
func (s *Service) Invalidate(ctx context.Context) {
	for _, fn := range s.onReset {
		fn(ctx)
	}
	s.navCache.Invalidate(NavigationCacheKey)
	s.menuCache.Invalidate(MenuCacheKey)
	s.logger.InfoContext(ctx, "navigation cache invalidated")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
