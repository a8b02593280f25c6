package blog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"navmenus/internal/content"
	navhandler "navmenus/internal/navigation/handler"
	dErrors "navmenus/pkg/domain-errors"
	"navmenus/pkg/platform/httputil"
	"navmenus/pkg/requestcontext"
)

// ArchiveService builds archive pages.
type ArchiveService interface {
	Archive(ctx context.Context, p Period) (*Archive, error)
}

type Handler struct {
	service ArchiveService
	logger  *slog.Logger
}

func NewHandler(service ArchiveService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts archive endpoints under mount, e.g. "/blog".
func (h *Handler) Register(r chi.Router, mount string) {
	r.Route(mount, func(r chi.Router) {
		r.Get("/", h.HandleArchive)
		r.Get("/{year}", h.HandleArchive)
		r.Get("/{year}/{month}", h.HandleArchive)
	})
}

// ArchiveResponse is the archive page model.
type ArchiveResponse struct {
	View       string              `json:"view"`
	Year       int                 `json:"year,omitempty"`
	Month      int                 `json:"month,omitempty"`
	Navigation navhandler.MenuItem `json:"navigation"`
	Body       []content.RawItem   `json:"body"`
}

// HandleArchive handles GET {mount}, {mount}/{year} and {mount}/{year}/{month}.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := parsePeriod(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	archive, err := h.service.Archive(ctx, p)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load archive",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	body := make([]content.RawItem, 0, len(archive.Articles))
	for _, a := range archive.Articles {
		body = append(body, content.RawOf(a))
	}
	httputil.WriteJSON(w, http.StatusOK, ArchiveResponse{
		View:       navhandler.DefaultView,
		Year:       p.Year,
		Month:      p.Month,
		Navigation: navhandler.NewMenuItem(archive.Menu),
		Body:       body,
	})
}

func parsePeriod(year, month string) (Period, error) {
	var p Period
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return Period{}, dErrors.New(dErrors.CodeBadRequest, "year must be a number")
		}
		p.Year = y
	}
	if month != "" {
		m, err := strconv.Atoi(month)
		if err != nil {
			return Period{}, dErrors.New(dErrors.CodeBadRequest, "month must be a number")
		}
		p.Month = m
	}
	if year != "" && p.Year == 0 {
		return Period{}, dErrors.New(dErrors.CodeBadRequest, "year out of range")
	}
	if month != "" && p.Month == 0 {
		return Period{}, dErrors.New(dErrors.CodeBadRequest, "month must be between 1 and 12")
	}
	return p, p.Validate()
}
