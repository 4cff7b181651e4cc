package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

type stubAdvisory struct {
	resp  *output.AdvisoryResponse
	err   error
	calls int
}

func (s *stubAdvisory) Decide(ctx context.Context, req output.AdvisoryRequest) (*output.AdvisoryResponse, error) {
	s.calls++
	return s.resp, s.err
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (l nopLogger) WithField(string, any) output.LoggerPort     { return l }
func (l nopLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                                  { return nil }

func shopGraph() *entity.SiteGraph {
	g := entity.NewSiteGraph("https://shop.test/")

	home := g.AddNode("https://shop.test/", 0)
	home.Status = entity.NodeVisited
	home.Title = "Shop"
	home.PageType = "home"
	home.Elements = []entity.PageElement{
		{Role: entity.RoleSearch, Priority: 7, Locator: entity.Locator{Selector: "#q"}},
		{Role: entity.RoleNavLink, Href: "https://shop.test/products", Priority: 9},
	}

	products := g.AddNode("https://shop.test/products", 1)
	products.Status = entity.NodeVisited
	products.Title = "Products"
	products.PageType = "listing"

	login := g.AddNode("https://shop.test/login", 1)
	login.Status = entity.NodeVisited
	login.Title = "Sign in"
	login.PageType = "login"

	contact := g.AddNode("https://shop.test/contact", 1)
	contact.Status = entity.NodeVisited
	contact.Title = "Contact"
	contact.PageType = "contact"
	contact.Elements = []entity.PageElement{
		{Role: entity.RoleForm, Priority: 8, Locator: entity.Locator{Selector: "form"}},
	}

	g.AddEdge("https://shop.test/", "https://shop.test/products")
	g.AddEdge("https://shop.test/", "https://shop.test/login")
	g.AddEdge("https://shop.test/", "https://shop.test/contact")
	return g
}

func TestHeuristicFlowsSearchFirst(t *testing.T) {
	flows := HeuristicFlows(shopGraph(), "ecommerce")

	require.GreaterOrEqual(t, len(flows), 5)
	assert.LessOrEqual(t, len(flows), 8)
	assert.Equal(t, "Search for content", flows[0].Name)
	assert.Equal(t, 1, flows[0].Priority)

	for i := 1; i < len(flows); i++ {
		assert.GreaterOrEqual(t, flows[i].Priority, flows[i-1].Priority)
	}
}

func TestHeuristicFlowsLoginRequiresAuth(t *testing.T) {
	flows := HeuristicFlows(shopGraph(), "ecommerce")

	var login *entity.Flow
	for idx := range flows {
		if flows[idx].Name == "Log in with test credentials" {
			login = &flows[idx]
		}
	}
	require.NotNil(t, login)
	assert.Contains(t, login.Requires, "requires-auth")
}

func TestHeuristicFlowsEmptyGraph(t *testing.T) {
	g := entity.NewSiteGraph("https://dead.test/")
	g.AddNode("https://dead.test/", 0).Status = entity.NodeFailed

	assert.Empty(t, HeuristicFlows(g, "generic"))
}

func TestHeuristicFlowsDeterministic(t *testing.T) {
	a := HeuristicFlows(shopGraph(), "ecommerce")
	b := HeuristicFlows(shopGraph(), "ecommerce")
	assert.Equal(t, a, b)
}

func TestIdentifyUsesAdvisoryFlows(t *testing.T) {
	advisory := &stubAdvisory{resp: &output.AdvisoryResponse{Flows: []entity.Flow{
		{Name: "Search and add to cart", Priority: 1, Steps: []entity.FlowStep{
			{Action: entity.ActionSearch, Target: "search box"},
			{Action: entity.ActionClick, Target: "first product", URLHint: "/products"},
		}},
	}}}

	ident, err := NewIdentifier(advisory, nopLogger{})
	require.NoError(t, err)

	flows := ident.Identify(context.Background(), shopGraph(), "ecommerce")
	require.NotEmpty(t, flows)
	assert.Equal(t, "Search and add to cart", flows[0].Name)
	// padded with heuristics up to the minimum
	assert.GreaterOrEqual(t, len(flows), 5)
}

func TestIdentifyFallsBackOnAdvisoryError(t *testing.T) {
	advisory := &stubAdvisory{err: errors.New("model timeout")}
	ident, err := NewIdentifier(advisory, nopLogger{})
	require.NoError(t, err)

	flows := ident.Identify(context.Background(), shopGraph(), "ecommerce")
	require.NotEmpty(t, flows)
	assert.Equal(t, "Search for content", flows[0].Name)
}

func TestIdentifyDropsFlowsWithUnknownPages(t *testing.T) {
	// the admin hint is a superstring of crawled URLs but names a page
	// the crawl never reached; the catalogue hint is a crawled page
	advisory := &stubAdvisory{resp: &output.AdvisoryResponse{Flows: []entity.Flow{
		{Name: "Visit the admin panel", Priority: 1, Steps: []entity.FlowStep{
			{Action: entity.ActionNavigate, Target: "admin", URLHint: "https://shop.test/admin/secret"},
		}},
		{Name: "Open the catalogue", Priority: 2, Steps: []entity.FlowStep{
			{Action: entity.ActionNavigate, Target: "products", URLHint: "https://shop.test/products"},
			{Action: entity.ActionVerify, Target: "product list", Verify: "products are listed"},
		}},
	}}}
	ident, err := NewIdentifier(advisory, nopLogger{})
	require.NoError(t, err)

	flows := ident.Identify(context.Background(), shopGraph(), "ecommerce")
	names := make([]string, 0, len(flows))
	for _, f := range flows {
		names = append(names, f.Name)
	}
	assert.NotContains(t, names, "Visit the admin panel")
	assert.Contains(t, names, "Open the catalogue")
}

func TestIdentifyCachesByGraphShape(t *testing.T) {
	advisory := &stubAdvisory{err: errors.New("down")}
	ident, err := NewIdentifier(advisory, nopLogger{})
	require.NoError(t, err)

	first := ident.Identify(context.Background(), shopGraph(), "ecommerce")
	second := ident.Identify(context.Background(), shopGraph(), "ecommerce")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, advisory.calls)
}

func TestDetectSiteType(t *testing.T) {
	assert.Equal(t, "ecommerce", DetectSiteType(shopGraph()))

	g := entity.NewSiteGraph("https://blog.test/")
	home := g.AddNode("https://blog.test/", 0)
	home.Status = entity.NodeVisited
	home.PageType = "home"
	for _, path := range []string{"/blog/one", "/blog/two"} {
		n := g.AddNode("https://blog.test"+path, 1)
		n.Status = entity.NodeVisited
		n.PageType = "article"
	}
	assert.Equal(t, "blog", DetectSiteType(g))
}

func TestSummarizeMarksCapabilities(t *testing.T) {
	summary := Summarize(shopGraph())

	assert.Contains(t, summary, "https://shop.test/ (home)")
	assert.Contains(t, summary, "[has search]")
	assert.Contains(t, summary, "[has form]")
	assert.NotContains(t, summary, "discovered")
}
