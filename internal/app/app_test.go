package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	navhandler "navmenus/internal/navigation/handler"
	"navmenus/internal/platform/config"
	"navmenus/pkg/testutil"
)

const navigationListing = `{
  "items": [{
    "system": {"codename": "navigation", "type": "navigation_item"},
    "elements": {
      "title": {"type": "text", "value": "Root"},
      "url_slug": {"type": "url_slug", "value": "[root]"},
      "child_navigation_items": {"type": "modular_content", "value": ["about", "old"]}
    }
  }],
  "modular_content": {
    "about": {
      "system": {"codename": "about", "type": "navigation_item"},
      "elements": {
        "title": {"type": "text", "value": "About"},
        "url_slug": {"type": "url_slug", "value": "about"},
        "content_items": {"type": "modular_content", "value": ["about_text"]}
      }
    },
    "old": {
      "system": {"codename": "old", "type": "navigation_item"},
      "elements": {
        "title": {"type": "text", "value": "Old"},
        "url_slug": {"type": "url_slug", "value": "old"},
        "redirect_to_item": {"type": "modular_content", "value": ["about"]}
      }
    },
    "about_text": {
      "system": {"codename": "about_text", "type": "text_block"},
      "elements": {}
    }
  },
  "pagination": {"skip": 0, "limit": 1, "count": 1, "next_page": ""}
}`

const webhookSecret = "publish-secret"

const emptyListing = `{"items": [], "modular_content": {}, "pagination": {}}`

type fixture struct {
	router        http.Handler
	navigationHit *atomic.Int32
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hits := &atomic.Int32{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("system.codename") == "navigation" {
			hits.Add(1)
			_, _ = io.WriteString(w, navigationListing)
			return
		}
		_, _ = io.WriteString(w, emptyListing)
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Defaults()
	cfg.Delivery.ProjectID = "project-1"
	cfg.Delivery.BaseURL = upstream.URL
	cfg.WebhookSecret = webhookSecret

	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return fixture{router: a.Router(), navigationHit: hits}
}

func (f fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func (f fixture) publish(t *testing.T, secret string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"message":{"operation":"publish"}}`
	req := httptest.NewRequest(http.MethodPost, "/admin/navigation/invalidate", strings.NewReader(body))
	req.Header.Set(navhandler.WebhookSignatureHeader,
		base64.StdEncoding.EncodeToString(navhandler.SignWebhook([]byte(secret), []byte(body))))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	t.Run("health reports the delivery breaker", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "closed", body["delivery"])
		assert.NotContains(t, body, "redis")
	})

	t.Run("menu is served from the upstream tree", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/navigation")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"url_path":"about"`)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("redirect node answers with a permanent redirect", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/old")
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "/about", rec.Header().Get("Location"))
	})

	t.Run("unknown path is not found", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/missing/page")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, http.MethodGet, "/old")
		rec := f.do(t, http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "navmenus_http_requests_total"))
		assert.Contains(t, rec.Body.String(), "navmenus_navigation_loads_total")
	})
}

func TestInvalidationPurgesCachedResponses(t *testing.T) {
	testutil.Given(t, "a server that has loaded the tree", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, http.MethodGet, "/old")
		f.do(t, http.MethodGet, "/missing")

		testutil.Then(t, "the upstream was asked once", func(t *testing.T) {
			assert.Equal(t, int32(1), f.navigationHit.Load())
		})

		testutil.When(t, "a publish invalidates the navigation", func(t *testing.T) {
			rec := f.publish(t, webhookSecret)
			require.Equal(t, http.StatusNoContent, rec.Code)
			f.do(t, http.MethodGet, "/old")

			testutil.Then(t, "the next request reaches the upstream again", func(t *testing.T) {
				assert.Equal(t, int32(2), f.navigationHit.Load())
			})
			testutil.And(t, "a webhook signed with another secret changes nothing", func(t *testing.T) {
				rec := f.publish(t, "guess")
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				f.do(t, http.MethodGet, "/old")
				assert.Equal(t, int32(2), f.navigationHit.Load())
			})
			testutil.And(t, "redirects keep working", func(t *testing.T) {
				testutil.AssertRedirect(t, f.do(t, http.MethodGet, "/old"), "/about")
			})
		})
	})
}
