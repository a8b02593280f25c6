//go:build e2e

package e2e

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"navmenus/e2e/steps/navigation"
	"navmenus/internal/app"
	navhandler "navmenus/internal/navigation/handler"
	"navmenus/internal/platform/config"
)

const (
	rootCodename  = "navigation"
	webhookSecret = "e2e-publish-secret"
)

// TestContext runs the real router against an in-process delivery API that
// serves the scenario's navigation tree.
type TestContext struct {
	items    map[string]rawItem
	upstream *httptest.Server
	app      *app.App
	router   http.Handler
	fetches  atomic.Int32
	last     *httptest.ResponseRecorder
}

type rawItem struct {
	System   map[string]string         `json:"system"`
	Elements map[string]map[string]any `json:"elements"`
}

type listing struct {
	Items          []rawItem          `json:"items"`
	ModularContent map[string]rawItem `json:"modular_content"`
	Pagination     map[string]any     `json:"pagination"`
}

func NewTestContext() *TestContext {
	return &TestContext{}
}

func (tc *TestContext) SetNavigation(rows []navigation.Row) error {
	items := map[string]rawItem{
		rootCodename: navItem(rootCodename, "[root]"),
	}
	for _, row := range rows {
		item := navItem(row.Codename, row.Slug)
		if row.RedirectTo != "" {
			item.Elements["redirect_to_item"] = linked(row.RedirectTo)
		}
		if row.ExternalURL != "" {
			item.Elements["redirect_to_url"] = text(row.ExternalURL)
		}
		if len(row.Content) > 0 {
			item.Elements["content_items"] = linked(row.Content...)
			for _, c := range row.Content {
				items[c] = rawItem{
					System:   map[string]string{"codename": c, "type": "text_block"},
					Elements: map[string]map[string]any{"body": text(c)},
				}
			}
		}
		items[row.Codename] = item
	}
	for _, row := range rows {
		parent := row.Parent
		if parent == "" {
			parent = rootCodename
		}
		p, ok := items[parent]
		if !ok {
			return fmt.Errorf("unknown parent %q of %q", parent, row.Codename)
		}
		children, _ := p.Elements["child_navigation_items"]["value"].([]string)
		p.Elements["child_navigation_items"] = linked(append(children, row.Codename)...)
	}
	tc.items = items
	return nil
}

func navItem(codename, slug string) rawItem {
	return rawItem{
		System: map[string]string{"codename": codename, "type": "navigation_item"},
		Elements: map[string]map[string]any{
			"title":    text(strings.ToUpper(codename[:1]) + codename[1:]),
			"url_slug": {"type": "url_slug", "value": slug},
		},
	}
}

func text(v string) map[string]any {
	return map[string]any{"type": "text", "value": v}
}

func linked(codenames ...string) map[string]any {
	return map[string]any{"type": "modular_content", "value": codenames}
}

func (tc *TestContext) serveDelivery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := listing{Items: []rawItem{}, ModularContent: map[string]rawItem{}, Pagination: map[string]any{}}
	switch {
	case q.Get("system.codename") == rootCodename:
		tc.fetches.Add(1)
		out.Items = append(out.Items, tc.items[rootCodename])
		for codename, item := range tc.items {
			if codename != rootCodename {
				out.ModularContent[codename] = item
			}
		}
	case q.Get("system.codename[in]") != "":
		for _, codename := range strings.Split(q.Get("system.codename[in]"), ",") {
			if item, ok := tc.items[codename]; ok {
				out.Items = append(out.Items, item)
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (tc *TestContext) start() error {
	if tc.router != nil {
		return nil
	}
	if tc.items == nil {
		return fmt.Errorf("no navigation tree given")
	}
	tc.upstream = httptest.NewServer(http.HandlerFunc(tc.serveDelivery))

	cfg := config.Defaults()
	cfg.Delivery.ProjectID = "e2e"
	cfg.Delivery.BaseURL = tc.upstream.URL
	cfg.WebhookSecret = webhookSecret
	a, err := app.New(context.Background(), cfg, slog.New(slog.DiscardHandler), app.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	tc.app = a
	tc.router = a.Router()
	return nil
}

func (tc *TestContext) do(req *http.Request) error {
	if err := tc.start(); err != nil {
		return err
	}
	tc.last = httptest.NewRecorder()
	tc.router.ServeHTTP(tc.last, req)
	return nil
}

func (tc *TestContext) GET(path string) error {
	return tc.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// Publish sends a signed publish webhook.
func (tc *TestContext) Publish() error {
	body := `{"message":{"operation":"publish"}}`
	req := httptest.NewRequest(http.MethodPost, "/admin/navigation/invalidate", strings.NewReader(body))
	signature := navhandler.SignWebhook([]byte(webhookSecret), []byte(body))
	req.Header.Set(navhandler.WebhookSignatureHeader, base64.StdEncoding.EncodeToString(signature))
	return tc.do(req)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.last == nil {
		return 0
	}
	return tc.last.Code
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.last == nil {
		return ""
	}
	return tc.last.Header().Get(name)
}

func (tc *TestContext) GetLastResponseBody() []byte {
	if tc.last == nil {
		return nil
	}
	return tc.last.Body.Bytes()
}

func (tc *TestContext) NavigationFetches() int {
	return int(tc.fetches.Load())
}

// Close stops the fake delivery API.
func (tc *TestContext) Close() {
	if tc.app != nil {
		_ = tc.app.Close()
	}
	if tc.upstream != nil {
		tc.upstream.Close()
	}
}
