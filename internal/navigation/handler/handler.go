package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"navmenus/internal/navigation/models"
	"navmenus/internal/navigation/service"
	"navmenus/internal/navigation/sitemap"
	dErrors "navmenus/pkg/domain-errors"
	"navmenus/pkg/platform/httputil"
	"navmenus/pkg/requestcontext"
)

// DefaultView is rendered when no node on the resolved path names a view.
const DefaultView = "Default"

// WebhookSignatureHeader carries the base64 HMAC-SHA256 of the webhook body
// keyed with the shared webhook secret.
const WebhookSignatureHeader = "X-KC-Signature"

const maxWebhookBody = 1 << 20

// Service defines the navigation operations used by the HTTP layer.
type Service interface {
	Menu(ctx context.Context) (*models.NavigationItem, error)
	Resolve(ctx context.Context, urlPath string) (models.ResolveResult, error)
	Page(ctx context.Context, result models.ResolveResult) (*service.Page, error)
	Sitemap(ctx context.Context) ([]sitemap.Entry, error)
	Invalidate(ctx context.Context)
}

// Handler serves menus, the sitemap and static content pages.
type Handler struct {
	service       Service
	logger        *slog.Logger
	webhookSecret []byte
}

type Option func(*Handler)

// WithWebhookSecret enables the invalidation webhook. Requests must be signed
// with secret.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) {
		h.webhookSecret = []byte(secret)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts navigation endpoints. The static content catch-all is
// registered separately so more specific routes can be added first. The
// invalidation webhook is only mounted when a webhook secret is set.
func (h *Handler) Register(r chi.Router) {
	r.Get("/navigation", h.HandleMenu)
	r.Get("/sitemap.json", h.HandleSitemap)
	if len(h.webhookSecret) > 0 {
		r.Post("/admin/navigation/invalidate", h.HandleInvalidate)
	}
}

// RegisterStatic mounts the catch-all static content route.
func (h *Handler) RegisterStatic(r chi.Router) {
	r.Get("/*", h.HandleStatic)
}

// HandleMenu handles GET /navigation.
func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	menu, err := h.service.Menu(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load menu",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewMenuItem(menu))
}

// HandleSitemap handles GET /sitemap.json.
func (h *Handler) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.Sitemap(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build sitemap",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SitemapResponse{Entries: entries})
}

// HandleInvalidate handles POST /admin/navigation/invalidate, typically
// called by a CMS publish webhook.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read webhook body"))
		return
	}
	if !h.validSignature(body, r.Header.Get(WebhookSignatureHeader)) {
		h.logger.WarnContext(ctx, "rejected unsigned navigation invalidation",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
		return
	}
	h.service.Invalidate(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validSignature(body []byte, signature string) bool {
	if len(h.webhookSecret) == 0 || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, SignWebhook(h.webhookSecret, body))
}

// SignWebhook returns the raw HMAC-SHA256 of body keyed with secret.
func SignWebhook(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// HandleStatic resolves the request path against the navigation tree.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	urlPath := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	result, err := h.service.Resolve(ctx, urlPath)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve url path",
			"request_id", requestID,
			"url_path", urlPath,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	switch result.Kind() {
	case models.KindContent:
		h.renderPage(w, r, result)
	case models.KindLocalRedirect:
		http.Redirect(w, r, "/"+result.LocalRedirect, http.StatusMovedPermanently)
	case models.KindExternalRedirect:
		http.Redirect(w, r, result.ExternalRedirect, http.StatusMovedPermanently)
	default:
		h.logger.InfoContext(ctx, "no navigation item for url path",
			"request_id", requestID,
			"url_path", urlPath,
		)
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": "no page at this address",
		})
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, result models.ResolveResult) {
	ctx := r.Context()
	page, err := h.service.Page(ctx, result)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load page",
			"request_id", requestcontext.RequestID(ctx),
			"codenames", result.ContentItemCodenames,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}
