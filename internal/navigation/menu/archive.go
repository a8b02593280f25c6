package menu

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"navmenus/internal/content"
	"navmenus/internal/delivery"
	"navmenus/internal/navigation/models"
)

// ContentClient fetches content items from the delivery API.
type ContentClient interface {
	GetItems(ctx context.Context, q delivery.Query) (*delivery.Response, error)
}

// ArchiveGenerator lists the months in which items of one content type were
// published, either flat ("October 2014") or grouped under year nodes.
type ArchiveGenerator struct {
	client       ContentClient
	contentType  string
	dateElement  string
	hierarchical bool
	logger       *slog.Logger
}

type ArchiveOption func(*ArchiveGenerator)

func Hierarchical() ArchiveOption {
	return func(g *ArchiveGenerator) {
		g.hierarchical = true
	}
}

func WithLogger(logger *slog.Logger) ArchiveOption {
	return func(g *ArchiveGenerator) {
		g.logger = logger
	}
}

func NewArchiveGenerator(client ContentClient, contentType, dateElement string, opts ...ArchiveOption) (*ArchiveGenerator, error) {
	if client == nil {
		return nil, errors.New("content client is required")
	}
	if strings.TrimSpace(contentType) == "" {
		return nil, errors.New("archive content type must not be empty")
	}
	if strings.TrimSpace(dateElement) == "" {
		return nil, errors.New("archive date element must not be empty")
	}
	g := &ArchiveGenerator{
		client:      client,
		contentType: contentType,
		dateElement: dateElement,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Query fetches every item of the archived type with only the date projected.
func (g *ArchiveGenerator) Query() delivery.Query {
	return delivery.Query{
		delivery.Equals("system.type", g.contentType),
		delivery.Elements(g.dateElement),
		delivery.Depth(0),
	}
}

func (g *ArchiveGenerator) Generate(ctx context.Context, mount *models.NavigationItem) ([]*models.NavigationItem, error) {
	resp, err := g.client.GetItems(ctx, g.Query())
	if err != nil {
		return nil, err
	}

	months := g.buckets(ctx, resp.Items)
	if g.hierarchical {
		return g.years(mount, months), nil
	}

	out := make([]*models.NavigationItem, 0, len(months))
	for _, ym := range months {
		out = append(out, g.node(mount, ym.Month.String()+" "+strconv.Itoa(ym.Year), monthPath(mount.URLPath, ym), ym))
	}
	return out, nil
}

// buckets returns the distinct months of items in ascending order.
func (g *ArchiveGenerator) buckets(ctx context.Context, items []content.ContentItem) []models.YearMonth {
	seen := map[models.YearMonth]struct{}{}
	for _, item := range items {
		t, ok := content.DateTimeOf(item, g.dateElement)
		if !ok {
			g.logger.DebugContext(ctx, "skipping archive item without date", "codename", item.Sys().Codename)
			continue
		}
		seen[models.YearMonthOf(t)] = struct{}{}
	}

	months := make([]models.YearMonth, 0, len(seen))
	for ym := range seen {
		months = append(months, ym)
	}
	slices.SortFunc(months, models.YearMonth.Compare)
	return months
}

func (g *ArchiveGenerator) years(mount *models.NavigationItem, months []models.YearMonth) []*models.NavigationItem {
	var (
		out     []*models.NavigationItem
		current *models.NavigationItem
		year    models.YearMonth
	)
	for _, ym := range months {
		if current == nil || !ym.SameYear(year) {
			year = models.YearMonth{Year: ym.Year}
			current = g.node(mount, strconv.Itoa(ym.Year), joinPath(mount.URLPath, strconv.Itoa(ym.Year)), year)
			out = append(out, current)
		}
		current.Children = append(current.Children, g.node(mount, ym.Month.String(), monthPath(mount.URLPath, ym), ym))
	}
	return out
}

func (g *ArchiveGenerator) node(mount *models.NavigationItem, title, urlPath string, ym models.YearMonth) *models.NavigationItem {
	slug := strconv.Itoa(ym.Year)
	codename := mount.Codename() + "_" + slug
	if ym.Month != 0 {
		slug = strconv.Itoa(int(ym.Month))
		codename += "_" + slug
	}
	n := &models.NavigationItem{
		Title:     title,
		URLSlug:   slug,
		URLPath:   urlPath,
		AppearsIn: slices.Clone(mount.AppearsIn),
	}
	n.System = content.System{Codename: codename, Type: models.ContentType}
	return n
}

func monthPath(mountPath string, ym models.YearMonth) string {
	return joinPath(joinPath(mountPath, strconv.Itoa(ym.Year)), strconv.Itoa(int(ym.Month)))
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return strings.TrimSuffix(base, "/") + "/" + segment
}
