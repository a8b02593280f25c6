package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"navmenus/internal/content"
	"navmenus/internal/delivery"
	"navmenus/internal/navigation/metrics"
	"navmenus/internal/navigation/models"
	"navmenus/internal/platform/config"
	dErrors "navmenus/pkg/domain-errors"
	"navmenus/pkg/platform/sentinel"
	"navmenus/pkg/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	clock     *fakeClock
	client    *testutil.FakeClient
	treeLoads atomic.Int32
	navErr    error
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func navigationConfig() config.Navigation {
	cfg := config.Defaults().Navigation
	cfg.RootToken = testutil.RootToken
	cfg.HomepageToken = testutil.HomepageToken
	cfg.CacheExpiration = time.Minute
	cfg.MenuCacheExpiration = time.Minute
	return cfg
}

// tree builds a fresh graph per call, like a decoded delivery response.
func tree() *models.NavigationItem {
	blogNew := testutil.Nav("blog_new", "blog-new", testutil.ContentItems("item-1"))
	return testutil.Root(
		testutil.Nav("home", testutil.HomepageToken, testutil.ContentItems("hero"), testutil.View("Home")),
		testutil.Nav("about", "about", testutil.ContentItems("about-1", "about-2")),
		testutil.Nav("blog", "blog", testutil.RedirectTo(blogNew), testutil.Children(blogNew)),
		testutil.Nav("docs", "docs", testutil.ExternalRedirect("https://docs.example.com")),
	)
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	s.treeLoads.Store(0)
	s.navErr = nil
	s.client = &testutil.FakeClient{Respond: s.respond}
	svc, err := New(navigationConfig(), s.client,
		WithClock(s.clock),
		WithMetrics(metrics.NewWithRegisterer(prometheus.NewRegistry())),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) respond(_ context.Context, q delivery.Query) (*delivery.Response, error) {
	v := q.Values()
	switch {
	case v.Get("system.type") == models.ContentType:
		s.treeLoads.Add(1)
		if s.navErr != nil {
			return nil, s.navErr
		}
		return testutil.Items(tree()), nil
	case v.Get("system.type") == "article":
		return testutil.Items(testutil.Article("a", "2014-10-05"), testutil.Article("b", "2015-01-20")), nil
	case v.Has("system.codename[in]"):
		var items []content.ContentItem
		modified := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		for i, c := range strings.Split(v.Get("system.codename[in]"), ",") {
			items = append(items, testutil.Item(c, "page", modified.Add(time.Duration(i)*time.Hour)))
		}
		// Reverse to check callers restore the requested order.
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		return testutil.Items(items...), nil
	}
	return testutil.Items(), nil
}

func (s *ServiceSuite) TestNewValidatesConfig() {
	cfg := navigationConfig()
	cfg.MaxDepth = 1
	_, err := New(cfg, s.client)
	s.Require().Error(err)

	cfg = navigationConfig()
	cfg.RootCodename = ""
	_, err = New(cfg, s.client)
	s.Require().Error(err)

	_, err = New(navigationConfig(), nil)
	s.Require().Error(err)
}

func (s *ServiceSuite) TestResolve() {
	tests := []struct {
		path string
		want models.ResolveResult
	}{
		{"", models.ResolveResult{Found: true, ContentItemCodenames: []string{"hero"}, ViewName: "Home"}},
		{"/", models.ResolveResult{Found: true, ContentItemCodenames: []string{"hero"}, ViewName: "Home"}},
		{"about", models.ResolveResult{Found: true, ContentItemCodenames: []string{"about-1", "about-2"}}},
		{"blog", models.ResolveResult{Found: true, LocalRedirect: "blog/blog-new"}},
		{"blog/blog-new", models.ResolveResult{Found: true, ContentItemCodenames: []string{"item-1"}}},
		{"docs", models.ResolveResult{ExternalRedirect: "https://docs.example.com"}},
		{"missing/deeper", models.Miss()},
	}
	for _, tt := range tests {
		s.Run("path "+tt.path, func() {
			got, err := s.service.Resolve(s.ctx, tt.path)
			s.Require().NoError(err)
			s.Equal(tt.want, got)
		})
	}
	s.Equal(int32(1), s.treeLoads.Load(), "tree is loaded once and shared")
}

func (s *ServiceSuite) TestCacheExpiry() {
	_, err := s.service.Resolve(s.ctx, "about")
	s.Require().NoError(err)

	s.clock.Advance(59 * time.Second)
	_, err = s.service.Resolve(s.ctx, "about")
	s.Require().NoError(err)
	s.Equal(int32(1), s.treeLoads.Load())

	s.clock.Advance(time.Second)
	_, err = s.service.Resolve(s.ctx, "about")
	s.Require().NoError(err)
	s.Equal(int32(2), s.treeLoads.Load())
}

func (s *ServiceSuite) TestConcurrentResolveLoadsOnce() {
	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			got, err := s.service.Resolve(s.ctx, "about")
			s.NoError(err)
			s.True(got.Found)
		})
	}
	wg.Wait()
	s.Equal(int32(1), s.treeLoads.Load())
}

func (s *ServiceSuite) TestInvalidate() {
	_, err := s.service.Menu(s.ctx)
	s.Require().NoError(err)
	s.service.Invalidate(s.ctx)
	_, err = s.service.Menu(s.ctx)
	s.Require().NoError(err)
	s.Equal(int32(2), s.treeLoads.Load())
}

func (s *ServiceSuite) TestInvalidateRunsHooks() {
	var calls atomic.Int32
	svc, err := New(navigationConfig(), s.client, WithInvalidateHook(func(context.Context) { calls.Add(1) }))
	s.Require().NoError(err)

	svc.Invalidate(s.ctx)
	s.Equal(int32(1), calls.Load())
	s.Equal(models.ContentType, svc.NavigationQuery().Values().Get("system.type"))
}

func (s *ServiceSuite) TestUpstreamFailure() {
	s.navErr = sentinel.ErrUnavailable

	_, err := s.service.Resolve(s.ctx, "about")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, sentinel.ErrUnavailable)

	s.navErr = nil
	got, err := s.service.Resolve(s.ctx, "about")
	s.Require().NoError(err, "failures are not cached")
	s.True(got.Found)
}

func (s *ServiceSuite) TestMissingRoot() {
	s.client.Respond = func(context.Context, delivery.Query) (*delivery.Response, error) {
		return testutil.Items(), nil
	}

	_, err := s.service.Resolve(s.ctx, "about")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestMenu() {
	m, err := s.service.Menu(s.ctx)
	s.Require().NoError(err)

	blog := m.Children[2]
	s.Require().Len(blog.Children, 2)
	s.Equal("October 2014", blog.Children[0].Title)
	s.Equal("blog/2015/1", blog.Children[1].URLPath)

	again, err := s.service.Menu(s.ctx)
	s.Require().NoError(err)
	s.Same(m, again)

	nav, err := s.service.Navigation(s.ctx)
	s.Require().NoError(err)
	s.Len(nav.Children[2].Children, 1, "menu generation leaves the navigation tree alone")
}

func (s *ServiceSuite) TestPage() {
	result, err := s.service.Resolve(s.ctx, "about")
	s.Require().NoError(err)

	page, err := s.service.Page(s.ctx, result)
	s.Require().NoError(err)
	s.NotNil(page.Menu)
	s.Equal([]string{"about-1", "about-2"}, content.Codenames(page.Items))

	_, err = s.service.Page(s.ctx, models.Miss())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestPageFetchFailure() {
	result, err := s.service.Resolve(s.ctx, "about")
	s.Require().NoError(err)
	_, err = s.service.Menu(s.ctx)
	s.Require().NoError(err)

	boom := errors.New("boom")
	s.client.Respond = func(context.Context, delivery.Query) (*delivery.Response, error) { return nil, boom }
	_, err = s.service.Page(s.ctx, result)
	s.Require().ErrorIs(err, boom)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestSitemap() {
	entries, err := s.service.Sitemap(s.ctx)
	s.Require().NoError(err)

	paths := map[string]time.Time{}
	for _, e := range entries {
		paths[e.Path] = e.LastModified
	}
	s.Len(entries, 3)
	s.Contains(paths, "")
	s.Contains(paths, "about")
	s.Contains(paths, "blog/blog-new")
	s.NotContains(paths, "docs")
}
