package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// Row is one navigation item of a scenario tree. Items without a parent hang
// off the root.
type Row struct {
	Codename    string
	Slug        string
	Parent      string
	RedirectTo  string
	ExternalURL string
	Content     []string
}

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SetNavigation(rows []Row) error
	GET(path string) error
	Publish() error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	GetLastResponseBody() []byte
	NavigationFetches() int
}

// RegisterSteps registers navigation, redirect and cache step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &navigationSteps{tc: tc}

	ctx.Step(`^the navigation tree:$`, steps.theNavigationTree)
	ctx.Step(`^I request "([^"]*)"$`, steps.iRequest)
	ctx.Step(`^I invalidate the navigation cache$`, steps.iInvalidateTheNavigationCache)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should redirect to "([^"]*)"$`, steps.responseShouldRedirectTo)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the menu should contain the path "([^"]*)"$`, steps.menuShouldContainPath)
	ctx.Step(`^the navigation should have been fetched (\d+) times?$`, steps.navigationFetchedTimes)
}

type navigationSteps struct {
	tc TestContext
}

func (s *navigationSteps) theNavigationTree(ctx context.Context, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("navigation table needs a header and at least one row")
	}
	header := table.Rows[0].Cells
	rows := make([]Row, 0, len(table.Rows)-1)
	for _, r := range table.Rows[1:] {
		var row Row
		for i, cell := range r.Cells {
			value := strings.TrimSpace(cell.Value)
			switch header[i].Value {
			case "codename":
				row.Codename = value
			case "slug":
				row.Slug = value
			case "parent":
				row.Parent = value
			case "redirect_to":
				row.RedirectTo = value
			case "external_url":
				row.ExternalURL = value
			case "content":
				if value != "" {
					row.Content = strings.Split(value, ",")
				}
			default:
				return fmt.Errorf("unknown navigation column %q", header[i].Value)
			}
		}
		rows = append(rows, row)
	}
	return s.tc.SetNavigation(rows)
}

func (s *navigationSteps) iRequest(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *navigationSteps) iInvalidateTheNavigationCache(ctx context.Context) error {
	if err := s.tc.Publish(); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 204)
}

func (s *navigationSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *navigationSteps) responseShouldRedirectTo(ctx context.Context, location string) error {
	if err := s.responseStatusShouldBe(ctx, 301); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseHeader("Location"); got != location {
		return fmt.Errorf("expected redirect to %q, got %q", location, got)
	}
	return nil
}

func (s *navigationSteps) responseFieldShouldBe(ctx context.Context, field, expected string) error {
	var body map[string]any
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	got, ok := body[field]
	if !ok {
		return fmt.Errorf("response has no field %q", field)
	}
	if fmt.Sprint(got) != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, fmt.Sprint(got))
	}
	return nil
}

type menuItem struct {
	URLPath  string     `json:"url_path"`
	Children []menuItem `json:"children"`
}

func (s *navigationSteps) menuShouldContainPath(ctx context.Context, path string) error {
	var root menuItem
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &root); err != nil {
		return fmt.Errorf("response is not a menu: %w", err)
	}
	var found bool
	var walk func(n menuItem)
	walk = func(n menuItem) {
		if n.URLPath == path {
			found = true
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	if !found {
		return fmt.Errorf("menu has no item at %q", path)
	}
	return nil
}

func (s *navigationSteps) navigationFetchedTimes(ctx context.Context, expected int) error {
	if got := s.tc.NavigationFetches(); got != expected {
		return fmt.Errorf("expected %d navigation fetches, got %d", expected, got)
	}
	return nil
}
