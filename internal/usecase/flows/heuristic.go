package flows

import (
	"fmt"
	"sort"
	"strings"

	"siteqa/internal/domain/entity"
)

// HeuristicFlows derives test flows from the graph alone. This is the
// deterministic identification path; it always yields between five and
// eight flows for any graph with at least one visited page, with the
// most valuable journey for the site type first.
func HeuristicFlows(graph *entity.SiteGraph, siteType string) []entity.Flow {
	var flows []entity.Flow

	visited := graph.Visited()
	if len(visited) == 0 {
		return nil
	}

	byType := map[string][]*entity.SiteNode{}
	for _, n := range visited {
		byType[n.PageType] = append(byType[n.PageType], n)
	}

	if hasSearchElement(visited) {
		flows = append(flows, searchFlow(siteType))
	}

	if login := firstOf(byType, "login"); login != nil {
		flows = append(flows, entity.Flow{
			Name:     "Log in with test credentials",
			Priority: 2,
			Requires: []string{"requires-auth"},
			Steps: []entity.FlowStep{
				{Action: entity.ActionNavigate, Target: "login page", URLHint: login.URL},
				{Action: entity.ActionFillForm, Target: "login form"},
				{Action: entity.ActionVerify, Verify: "logged in or a clear validation message is shown"},
			},
		})
	}

	flows = append(flows, entity.Flow{
		Name:     "Browse the homepage",
		Priority: 2,
		Steps: []entity.FlowStep{
			{Action: entity.ActionNavigate, Target: "homepage", URLHint: graph.RootURL},
			{Action: entity.ActionVerify, Verify: "page renders with visible content and no error"},
		},
	})

	for _, n := range topNavTargets(graph, 3) {
		label := n.Title
		if label == "" {
			label = n.PageType + " page"
		}
		flows = append(flows, entity.Flow{
			Name:     fmt.Sprintf("Navigate to %s", label),
			Priority: 3,
			Steps: []entity.FlowStep{
				{Action: entity.ActionNavigate, Target: "homepage", URLHint: graph.RootURL},
				{Action: entity.ActionClick, Target: fmt.Sprintf("navigation link to %s", label), URLHint: n.URL},
				{Action: entity.ActionVerify, Verify: "the target page loads with its own content"},
			},
		})
	}

	if listing := firstOf(byType, "listing", "product", "article"); listing != nil {
		flows = append(flows, entity.Flow{
			Name:     "Open the first content item",
			Priority: 3,
			Steps: []entity.FlowStep{
				{Action: entity.ActionNavigate, Target: "content listing", URLHint: listing.URL},
				{Action: entity.ActionClick, Target: "first content item on the page"},
				{Action: entity.ActionVerify, Verify: "a detail page opens"},
			},
		})
	}

	if form := firstFormPage(visited); form != nil {
		flows = append(flows, entity.Flow{
			Name:     "Submit a form with test data",
			Priority: 3,
			Steps: []entity.FlowStep{
				{Action: entity.ActionNavigate, Target: "page with a form", URLHint: form.URL},
				{Action: entity.ActionFillForm, Target: "main form"},
				{Action: entity.ActionVerify, Verify: "a confirmation or validation message appears"},
			},
		})
	}

	if deep := deepestNode(visited); deep != nil && deep.Depth >= 2 {
		flows = append(flows, entity.Flow{
			Name:     "Reach a deep page through navigation",
			Priority: 4,
			Steps: []entity.FlowStep{
				{Action: entity.ActionNavigate, Target: "homepage", URLHint: graph.RootURL},
				{Action: entity.ActionClick, Target: "a section link in the main navigation"},
				{Action: entity.ActionClick, Target: "a link inside the section"},
				{Action: entity.ActionVerify, Verify: "a page at least two levels deep is shown"},
			},
		})
	}

	flows = padFlows(flows, visited, graph.RootURL)

	sort.SliceStable(flows, func(i, j int) bool { return flows[i].Priority < flows[j].Priority })
	if len(flows) > 8 {
		flows = flows[:8]
	}
	return flows
}

// searchFlow is priority 1: for every site type with a search box, the
// search journey is the highest value thing to test.
func searchFlow(siteType string) entity.Flow {
	verify := "relevant results are listed"
	if siteType == "ecommerce" {
		verify = "matching products are listed"
	}
	return entity.Flow{
		Name:     "Search for content",
		Priority: 1,
		Steps: []entity.FlowStep{
			{Action: entity.ActionSearch, Target: "search box"},
			{Action: entity.ActionVerify, Verify: verify},
		},
	}
}

func hasSearchElement(nodes []*entity.SiteNode) bool {
	for _, n := range nodes {
		for _, el := range n.Elements {
			if el.Role == entity.RoleSearch {
				return true
			}
		}
	}
	return false
}

func firstOf(byType map[string][]*entity.SiteNode, types ...string) *entity.SiteNode {
	for _, t := range types {
		if nodes := byType[t]; len(nodes) > 0 {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].URL < nodes[j].URL })
			return nodes[0]
		}
	}
	return nil
}

func firstFormPage(nodes []*entity.SiteNode) *entity.SiteNode {
	sorted := append([]*entity.SiteNode(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })
	for _, n := range sorted {
		if n.PageType == "login" || n.PageType == "signup" {
			continue
		}
		for _, el := range n.Elements {
			if el.Role == entity.RoleForm {
				return n
			}
		}
	}
	return nil
}

func deepestNode(nodes []*entity.SiteNode) *entity.SiteNode {
	var deepest *entity.SiteNode
	for _, n := range nodes {
		if deepest == nil || n.Depth > deepest.Depth ||
			(n.Depth == deepest.Depth && n.URL < deepest.URL) {
			deepest = n
		}
	}
	return deepest
}

// topNavTargets picks the most linked-to non-root pages, root's direct
// children first. Deterministic for a given graph.
func topNavTargets(graph *entity.SiteGraph, limit int) []*entity.SiteNode {
	inbound := map[string]int{}
	for _, e := range graph.Edges {
		inbound[e.To]++
	}

	candidates := make([]*entity.SiteNode, 0, len(graph.Nodes))
	for _, n := range graph.Visited() {
		if n.URL == graph.RootURL || n.Synthetic {
			continue
		}
		candidates = append(candidates, n)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Depth != candidates[j].Depth {
			return candidates[i].Depth < candidates[j].Depth
		}
		if inbound[candidates[i].URL] != inbound[candidates[j].URL] {
			return inbound[candidates[i].URL] > inbound[candidates[j].URL]
		}
		return candidates[i].URL < candidates[j].URL
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// padFlows tops the list up to five with single-page visit flows so a
// scan always exercises a minimum amount of ground.
func padFlows(flows []entity.Flow, visited []*entity.SiteNode, rootURL string) []entity.Flow {
	if len(flows) >= 5 {
		return flows
	}

	used := map[string]bool{}
	for _, f := range flows {
		for _, s := range f.Steps {
			if s.URLHint != "" {
				used[s.URLHint] = true
			}
		}
	}

	sorted := append([]*entity.SiteNode(nil), visited...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	for _, n := range sorted {
		if len(flows) >= 5 {
			break
		}
		if n.URL == rootURL || used[n.URL] || n.Synthetic {
			continue
		}
		label := n.Title
		if label == "" {
			label = n.URL
		}
		flows = append(flows, entity.Flow{
			Name:     fmt.Sprintf("Visit %s", label),
			Priority: 4,
			Steps: []entity.FlowStep{
				{Action: entity.ActionNavigate, Target: label, URLHint: n.URL},
				{Action: entity.ActionVerify, Verify: "the page renders without errors"},
			},
		})
		used[n.URL] = true
	}
	return flows
}

// DetectSiteType guesses the kind of site from page types and titles.
// Drives which flows rank first and which test data gets used.
func DetectSiteType(graph *entity.SiteGraph) string {
	score := map[string]int{}
	for _, n := range graph.Visited() {
		lower := strings.ToLower(n.URL + " " + n.Title)
		switch {
		case n.PageType == "product" || n.PageType == "cart" || n.PageType == "checkout":
			score["ecommerce"] += 2
		case strings.Contains(lower, "cart") || strings.Contains(lower, "shop") || strings.Contains(lower, "price"):
			score["ecommerce"]++
		}
		if n.PageType == "article" || strings.Contains(lower, "blog") || strings.Contains(lower, "post") {
			score["blog"]++
		}
		if n.PageType == "pricing" || strings.Contains(lower, "pricing") || strings.Contains(lower, "dashboard") || strings.Contains(lower, "trial") {
			score["saas"]++
		}
		if strings.Contains(lower, "docs") || strings.Contains(lower, "documentation") || strings.Contains(lower, "api reference") {
			score["docs"]++
		}
	}

	best, bestScore := "generic", 1
	for t, s := range score {
		if s > bestScore || (s == bestScore && t < best) {
			best, bestScore = t, s
		}
	}
	return best
}
