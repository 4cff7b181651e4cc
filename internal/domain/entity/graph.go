package entity

// NodeStatus is the lifecycle of a page in the site graph.
type NodeStatus string

const (
	NodeDiscovered NodeStatus = "discovered"
	NodeVisiting   NodeStatus = "visiting"
	NodeVisited    NodeStatus = "visited"
	NodeFailed     NodeStatus = "failed"
)

// ElementRole classifies an interactive element by where it sits on the page
// and what a user would do with it.
type ElementRole string

const (
	RoleNavLink     ElementRole = "nav_link"
	RoleContentLink ElementRole = "content_link"
	RoleFooterLink  ElementRole = "footer_link"
	RoleSidebarLink ElementRole = "sidebar_link"
	RoleForm        ElementRole = "form"
	RoleSearch      ElementRole = "search"
	RoleCTA         ElementRole = "cta"
	RoleDropdown    ElementRole = "dropdown"
)

// Locator describes how to find an element again on a rendered page.
// It is a ranked set of matching hints, not a single brittle selector:
// the concrete Selector is the cheapest strategy, the attribute hints let
// the resolver fall back when the selector goes stale.
type Locator struct {
	Selector    string `json:"selector"`
	TestID      string `json:"test_id,omitempty"`
	AriaLabel   string `json:"aria_label,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	SemRole     string `json:"sem_role,omitempty"`
}

// PageElement is an interactive element discovered on a rendered page.
type PageElement struct {
	Role     ElementRole `json:"role"`
	Locator  Locator     `json:"locator"`
	Text     string      `json:"text"`
	Href     string      `json:"href,omitempty"`
	Priority int         `json:"priority"` // 1 (lowest) to 10 (highest)
}

// ActionResult records one interaction taken on a page during crawling.
type ActionResult struct {
	Action  string `json:"action"`  // click | fill_form | expand_menu | search
	Target  string `json:"target"`  // what we acted on
	Outcome string `json:"outcome"` // navigated | new_content | no_change | error | already_known
	NewURL  string `json:"new_url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SiteNode is a single page in the site graph. Created on first discovery,
// mutated only by the crawl task that visits it, never deleted.
type SiteNode struct {
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	PageType      string         `json:"page_type"` // home | nav | product | form | login | search | other
	Status        NodeStatus     `json:"status"`
	FailReason    string         `json:"fail_reason,omitempty"`
	Depth         int            `json:"depth"`
	Synthetic     bool           `json:"synthetic,omitempty"` // SPA state recorded without a URL change
	Elements      []PageElement  `json:"elements"`
	Actions       []ActionResult `json:"actions"`
	Findings      []BugFinding   `json:"findings"`
	Metrics       *PageMetrics   `json:"metrics,omitempty"`
	ScreenshotRef string         `json:"screenshot_ref,omitempty"`
}

// Edge is a directed link between two pages.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SiteGraph is the directed page graph built during crawling. Nodes are
// unique per normalized URL; edges only connect existing nodes.
type SiteGraph struct {
	RootURL string               `json:"root_url"`
	Nodes   map[string]*SiteNode `json:"nodes"`
	Edges   []Edge               `json:"edges"`

	edgeSeen map[Edge]struct{}
}

func NewSiteGraph(rootURL string) *SiteGraph {
	return &SiteGraph{
		RootURL:  rootURL,
		Nodes:    make(map[string]*SiteNode),
		edgeSeen: make(map[Edge]struct{}),
	}
}

// AddNode registers a page on first discovery. Re-discovering a known URL
// returns the existing node untouched.
func (g *SiteGraph) AddNode(url string, depth int) *SiteNode {
	if n, ok := g.Nodes[url]; ok {
		return n
	}
	n := &SiteNode{URL: url, Status: NodeDiscovered, Depth: depth, PageType: "other"}
	g.Nodes[url] = n
	return n
}

// AddEdge records a directed link. Both endpoints must already be nodes;
// self-loops and duplicates are dropped.
func (g *SiteGraph) AddEdge(from, to string) {
	if from == to {
		return
	}
	if _, ok := g.Nodes[from]; !ok {
		return
	}
	if _, ok := g.Nodes[to]; !ok {
		return
	}
	e := Edge{From: from, To: to}
	if g.edgeSeen == nil {
		g.edgeSeen = make(map[Edge]struct{})
	}
	if _, ok := g.edgeSeen[e]; ok {
		return
	}
	g.edgeSeen[e] = struct{}{}
	g.Edges = append(g.Edges, e)
}

func (g *SiteGraph) Node(url string) *SiteNode {
	return g.Nodes[url]
}

// Visited returns the nodes that completed a visit, in no particular order.
func (g *SiteGraph) Visited() []*SiteNode {
	out := make([]*SiteNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Status == NodeVisited {
			out = append(out, n)
		}
	}
	return out
}
