package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"navmenus/internal/content"
	"navmenus/internal/navigation/handler/mocks"
	"navmenus/internal/navigation/models"
	"navmenus/internal/navigation/service"
	"navmenus/internal/navigation/sitemap"
	dErrors "navmenus/pkg/domain-errors"
	"navmenus/pkg/platform/httputil"
	"navmenus/pkg/testutil"
)

const webhookSecret = "publish-secret"

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWebhookSecret(webhookSecret))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterStatic(s.router)
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	return testutil.Get(s.T(), s.router, path)
}

func menuTree() *models.NavigationItem {
	about := testutil.Nav("about", "about", testutil.AppearsIn("main_menu"))
	about.URLPath = "about"
	return testutil.Root(about)
}

func (s *HandlerSuite) TestStaticContent() {
	s.Run("renders the resolved page", func() {
		result := models.ResolveResult{Found: true, ContentItemCodenames: []string{"about-1"}, ViewName: "About"}
		s.service.EXPECT().Resolve(gomock.Any(), "about").Return(result, nil)
		s.service.EXPECT().Page(gomock.Any(), result).Return(&service.Page{
			ViewName: "About",
			Menu:     menuTree(),
			Items:    []content.ContentItem{testutil.Item("about-1", "page", time.Time{})},
		}, nil)

		rr := s.get("/about")
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		body := testutil.UnmarshalResponse[PageResponse](s.T(), rr)
		s.Equal("About", body.View)
		s.Require().Len(body.Body, 1)
		s.Equal("about-1", body.Body[0].System.Codename)
		s.Require().Len(body.Navigation.Children, 1)
		s.Equal("about", body.Navigation.Children[0].URLPath)
		s.Equal([]string{"main_menu"}, body.Navigation.Children[0].AppearsIn)
	})

	s.Run("falls back to the default view", func() {
		result := models.ResolveResult{Found: true, ContentItemCodenames: []string{"hero"}}
		s.service.EXPECT().Resolve(gomock.Any(), "").Return(result, nil)
		s.service.EXPECT().Page(gomock.Any(), result).Return(&service.Page{Menu: menuTree()}, nil)

		rr := s.get("/")
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(DefaultView, testutil.UnmarshalResponse[PageResponse](s.T(), rr).View)
	})

	s.Run("passes nested paths with trailing slash", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "about/team/").Return(models.Miss(), nil)
		testutil.AssertStatus(s.T(), s.get("/about/team/"), http.StatusNotFound)
	})
}

func (s *HandlerSuite) TestRedirects() {
	s.Run("local redirect is permanent and rooted", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "blog").
			Return(models.ResolveResult{Found: true, LocalRedirect: "blog-new"}, nil)
		testutil.AssertRedirect(s.T(), s.get("/blog"), "/blog-new")
	})

	s.Run("local redirect to the homepage", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "start").
			Return(models.ResolveResult{Found: true, LocalRedirect: ""}, nil)
		testutil.AssertRedirect(s.T(), s.get("/start"), "/")
	})

	s.Run("external redirect", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "docs").
			Return(models.ResolveResult{ExternalRedirect: "https://docs.example.com"}, nil)
		testutil.AssertRedirect(s.T(), s.get("/docs"), "https://docs.example.com")
	})
}

func (s *HandlerSuite) TestNotFound() {
	s.service.EXPECT().Resolve(gomock.Any(), "missing").Return(models.Miss(), nil)
	rr := s.get("/missing")
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	testutil.AssertErrorCode(s.T(), rr, "not_found")
}

func (s *HandlerSuite) TestFailures() {
	s.Run("resolution failure is a generic 500", func() {
		s.service.EXPECT().Resolve(gomock.Any(), "about").
			Return(models.ResolveResult{}, dErrors.Wrap(errors.New("dial tcp: refused"), dErrors.CodeInternal, "failed to load navigation"))

		rr := s.get("/about")
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		body := testutil.UnmarshalResponse[map[string]string](s.T(), rr)
		s.Equal(httputil.InternalErrorMessage, (*body)["error_description"])
		s.NotContains(rr.Body.String(), "refused")
	})

	s.Run("page failure is a 500", func() {
		result := models.ResolveResult{Found: true, ContentItemCodenames: []string{"x"}}
		s.service.EXPECT().Resolve(gomock.Any(), "x").Return(result, nil)
		s.service.EXPECT().Page(gomock.Any(), result).Return(nil, errors.New("boom"))
		testutil.AssertStatus(s.T(), s.get("/x"), http.StatusInternalServerError)
	})
}

func (s *HandlerSuite) TestMenu() {
	s.service.EXPECT().Menu(gomock.Any()).Return(menuTree(), nil)

	rr := s.get("/navigation")
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.UnmarshalResponse[MenuItem](s.T(), rr)
	s.Equal("root", body.Codename)
	s.Require().Len(body.Children, 1)
	s.Equal("about", body.Children[0].Codename)
}

func (s *HandlerSuite) TestMenuCycleIsCut() {
	root := menuTree()
	root.Children[0].Children = []*models.NavigationItem{root}
	s.service.EXPECT().Menu(gomock.Any()).Return(root, nil)

	rr := s.get("/navigation")
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.UnmarshalResponse[MenuItem](s.T(), rr)
	s.Empty(body.Children[0].Children)
}

func (s *HandlerSuite) TestSitemap() {
	modified := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	s.service.EXPECT().Sitemap(gomock.Any()).Return([]sitemap.Entry{{Path: "about", LastModified: modified}}, nil)

	rr := s.get("/sitemap.json")
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.UnmarshalResponse[SitemapResponse](s.T(), rr)
	s.Equal([]sitemap.Entry{{Path: "about", LastModified: modified}}, body.Entries)
}

func (s *HandlerSuite) invalidate(body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/navigation/invalidate", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(WebhookSignatureHeader, signature)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req.WithContext(context.Background()))
	return rr
}

func sign(secret, body string) string {
	return base64.StdEncoding.EncodeToString(SignWebhook([]byte(secret), []byte(body)))
}

func (s *HandlerSuite) TestInvalidate() {
	body := `{"message":{"operation":"publish"}}`

	s.Run("signed webhook drops the caches", func() {
		s.service.EXPECT().Invalidate(gomock.Any())
		rr := s.invalidate(body, sign(webhookSecret, body))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("missing signature is rejected", func() {
		rr := s.invalidate(body, "")
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeUnauthorized))
	})

	s.Run("signature from another secret is rejected", func() {
		rr := s.invalidate(body, sign("guess", body))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("signature of another body is rejected", func() {
		rr := s.invalidate(`{"message":{"operation":"unpublish"}}`, sign(webhookSecret, body))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("malformed signature is rejected", func() {
		rr := s.invalidate(body, "not base64!")
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *HandlerSuite) TestInvalidateDisabledWithoutSecret() {
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := chi.NewRouter()
	h.Register(router)
	h.RegisterStatic(router)

	req := httptest.NewRequest(http.MethodPost, "/admin/navigation/invalidate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	s.NotEqual(http.StatusNoContent, rr.Code)
}
