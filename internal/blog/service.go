// Package blog serves the dated article archive linked from the generated
// archive menu.
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"navmenus/internal/content"
	"navmenus/internal/delivery"
	"navmenus/internal/navigation/models"
	dErrors "navmenus/pkg/domain-errors"
)

// ContentClient fetches content items from the delivery API.
type ContentClient interface {
	GetItems(ctx context.Context, q delivery.Query) (*delivery.Response, error)
}

// MenuSource provides the cached menu rendered alongside the archive.
type MenuSource interface {
	Menu(ctx context.Context) (*models.NavigationItem, error)
}

// Period selects a year, a month of a year, or everything when zero.
type Period struct {
	Year  int
	Month int
}

// Validate rejects months without a year and out of range values.
func (p Period) Validate() error {
	if p.Year == 0 && p.Month != 0 {
		return dErrors.New(dErrors.CodeBadRequest, "month requires a year")
	}
	if p.Year < 0 || p.Year > 9998 {
		return dErrors.New(dErrors.CodeBadRequest, "year out of range")
	}
	if p.Month < 0 || p.Month > 12 {
		return dErrors.New(dErrors.CodeBadRequest, "month must be between 1 and 12")
	}
	return nil
}

// Bounds returns the half-open date range of the period as YYYY-MM strings.
// ok is false for the zero period.
func (p Period) Bounds() (lower, upper string, ok bool) {
	switch {
	case p.Year == 0:
		return "", "", false
	case p.Month == 0:
		return yearMonth(p.Year, 1), yearMonth(p.Year+1, 1), true
	case p.Month == 12:
		return yearMonth(p.Year, 12), yearMonth(p.Year+1, 1), true
	default:
		return yearMonth(p.Year, p.Month), yearMonth(p.Year, p.Month+1), true
	}
}

func yearMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Archive is one archive page.
type Archive struct {
	Period   Period
	Menu     *models.NavigationItem
	Articles []content.ContentItem
}

type Service struct {
	client      ContentClient
	menus       MenuSource
	contentType string
	dateElement string
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(client ContentClient, menus MenuSource, contentType, dateElement string, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("content client is required")
	}
	if menus == nil {
		return nil, errors.New("menu source is required")
	}
	if strings.TrimSpace(contentType) == "" || strings.TrimSpace(dateElement) == "" {
		return nil, errors.New("archive content type and date element are required")
	}
	s := &Service{
		client:      client,
		menus:       menus,
		contentType: contentType,
		dateElement: dateElement,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Query lists articles of the period ordered by their date.
func (s *Service) Query(p Period) delivery.Query {
	field := "elements." + s.dateElement
	q := delivery.Query{
		delivery.Equals("system.type", s.contentType),
		delivery.Depth(0),
		delivery.Order(field, delivery.Ascending),
	}
	if lower, upper, ok := p.Bounds(); ok {
		q = append(q, delivery.Range(field, lower, upper))
	}
	return q
}

// Archive fetches the articles of p and the menu concurrently.
func (s *Service) Archive(ctx context.Context, p Period) (*Archive, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := &Archive{Period: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.client.GetItems(gctx, s.Query(p))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch articles")
		}
		out.Articles = resp.Items
		return nil
	})
	g.Go(func() error {
		m, err := s.menus.Menu(gctx)
		if err != nil {
			return err
		}
		out.Menu = m
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to build archive", "year", p.Year, "month", p.Month, "error", err)
		return nil, err
	}
	if out.Articles == nil {
		out.Articles = []content.ContentItem{}
	}
	return out, nil
}
