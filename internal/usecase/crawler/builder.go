package crawler

import (
	"container/heap"
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

// Config bounds one crawl. Zero values fall back to defaults.
type Config struct {
	MaxPages            int
	MaxDepth            int
	RequestsPerSec      float64
	PaginationCap       int
	ScrollPasses        int
	SPAThreshold        float64
	MaxRetries          int
	InteractionsPerPage int
}

func DefaultConfig() Config {
	return Config{
		MaxPages:            30,
		MaxDepth:            3,
		RequestsPerSec:      1,
		PaginationCap:       5,
		ScrollPasses:        2,
		SPAThreshold:        0.30,
		MaxRetries:          3,
		InteractionsPerPage: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = d.RequestsPerSec
	}
	if c.PaginationCap <= 0 {
		c.PaginationCap = d.PaginationCap
	}
	if c.ScrollPasses <= 0 {
		c.ScrollPasses = d.ScrollPasses
	}
	if c.SPAThreshold <= 0 {
		c.SPAThreshold = d.SPAThreshold
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InteractionsPerPage <= 0 {
		c.InteractionsPerPage = d.InteractionsPerPage
	}
	return c
}

// queueItem is one pending page visit. Higher element priority wins,
// shallower depth breaks ties.
type queueItem struct {
	url      string
	from     string
	depth    int
	priority int
}

type visitQueue []*queueItem

func (q visitQueue) Len() int { return len(q) }
func (q visitQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].depth < q[j].depth
}
func (q visitQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *visitQueue) Push(x any)        { *q = append(*q, x.(*queueItem)) }
func (q *visitQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Builder walks a site breadth-first and produces its page graph.
type Builder struct {
	browser output.BrowserPort
	logger  output.LoggerPort
	cfg     Config
	limiter *rate.Limiter
}

func NewBuilder(browser output.BrowserPort, logger output.LoggerPort, cfg Config) *Builder {
	cfg = cfg.withDefaults()
	return &Builder{
		browser: browser,
		logger:  logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
	}
}

// Build crawls from rootURL until the page budget, depth limit or queue
// is exhausted. Unreachable pages become failed nodes; the graph is
// returned even when every page fails.
func (b *Builder) Build(ctx context.Context, rootURL string) (*entity.SiteGraph, error) {
	root, err := Normalize(rootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid root url: %w", err)
	}

	graph := entity.NewSiteGraph(root)
	graph.AddNode(root, 0)

	queue := &visitQueue{{url: root, depth: 0, priority: 10}}
	heap.Init(queue)

	enqueued := map[string]bool{root: true}
	paginationDepth := map[string]int{}
	visited := 0

	for queue.Len() > 0 && visited < b.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return graph, err
		}

		item := heap.Pop(queue).(*queueItem)
		node := graph.Node(item.url)
		if node == nil || node.Status == entity.NodeVisited || node.Status == entity.NodeFailed {
			continue
		}
		node.Status = entity.NodeVisiting
		node.Depth = item.depth

		if err := b.limiter.Wait(ctx); err != nil {
			return graph, err
		}

		state, err := b.visit(ctx, item.url)
		if err != nil {
			node.Status = entity.NodeFailed
			node.FailReason = err.Error()
			b.logger.Warn("page visit failed", "url", item.url, "error", err)
			continue
		}
		visited++

		landed, nerr := Normalize(state.URL)
		if nerr != nil {
			landed = item.url
		}

		// Redirects land somewhere else; record the real page and keep
		// the discovered URL as an alias edge source.
		if landed != item.url {
			redirected := graph.AddNode(landed, item.depth)
			graph.AddEdge(item.url, landed)
			node.Status = entity.NodeVisited
			if redirected.Status == entity.NodeVisited {
				continue
			}
			node = redirected
		}

		if reason := blockReason(state); reason != "" {
			node.Status = entity.NodeFailed
			node.FailReason = reason
			b.logger.Warn("page blocked", "url", landed, "reason", reason)
			continue
		}

		b.settle(ctx)

		var base *entity.DOMFingerprint
		if fp, ferr := b.browser.StructuralFingerprint(ctx); ferr == nil {
			base = fp
		}

		node.Status = entity.NodeVisited
		node.Title = b.browser.Title()
		node.PageType = classifyPage(landed, node.Title)

		elements, eerr := b.browser.DiscoverElements(ctx)
		if eerr != nil {
			b.logger.Warn("element discovery failed", "url", landed, "error", eerr)
			continue
		}
		node.Elements = elements

		found := b.interact(ctx, graph, node, landed, item.depth, base)

		if item.depth >= b.cfg.MaxDepth {
			continue
		}

		for _, target := range found {
			if !enqueued[target] {
				enqueued[target] = true
				heap.Push(queue, &queueItem{
					url:      target,
					from:     landed,
					depth:    item.depth + 1,
					priority: 5,
				})
			}
		}

		for _, el := range elements {
			if el.Href == "" {
				continue
			}
			target, rerr := Resolve(landed, el.Href)
			if rerr != nil || target == landed {
				continue
			}
			if !IsCrawlable(target) || !SameRootDomain(root, target) {
				continue
			}
			if IsPagination(target) {
				paginationDepth[landed]++
				if paginationDepth[landed] > b.cfg.PaginationCap {
					continue
				}
			}

			graph.AddNode(target, item.depth+1)
			graph.AddEdge(landed, target)

			if !enqueued[target] {
				enqueued[target] = true
				heap.Push(queue, &queueItem{
					url:      target,
					from:     landed,
					depth:    item.depth + 1,
					priority: el.Priority,
				})
			}
		}
	}

	b.logger.Info("crawl finished",
		"root", root,
		"visited", visited,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
	)
	return graph, nil
}

// visit navigates with retry on rate limiting. 429 responses back off
// exponentially before the next attempt.
func (b *Builder) visit(ctx context.Context, url string) (*entity.PageState, error) {
	var state *entity.PageState
	var err error
	backoff := 2 * time.Second

	for attempt := 0; attempt < b.cfg.MaxRetries; attempt++ {
		state, err = b.browser.Navigate(ctx, url)
		if err != nil {
			return nil, err
		}
		if state.Status != 429 {
			return state, nil
		}

		b.logger.Warn("rate limited, backing off", "url", url, "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return state, nil
}

// interact clicks through a page's buttons and menu toggles to surface
// states that plain link-following misses. URL changes become graph
// nodes and edges; same-URL layout shifts past the SPA threshold become
// synthetic view nodes. Every attempt is recorded on the node. Returns
// newly discovered crawlable URLs so the caller can enqueue them.
func (b *Builder) interact(ctx context.Context, graph *entity.SiteGraph, node *entity.SiteNode, pageURL string, depth int, base *entity.DOMFingerprint) []string {
	var discovered []string
	taken := 0
	for _, el := range node.Elements {
		if taken >= b.cfg.InteractionsPerPage {
			break
		}
		if el.Href != "" || el.Locator.Selector == "" {
			continue
		}
		var action string
		switch el.Role {
		case entity.RoleDropdown:
			action = "expand_menu"
		case entity.RoleCTA:
			action = "click"
		default:
			continue
		}
		taken++

		target := el.Text
		if target == "" {
			target = el.Locator.Selector
		}
		result := entity.ActionResult{Action: action, Target: target}

		if err := b.browser.Click(ctx, el.Locator.Selector); err != nil {
			result.Outcome = "error"
			result.Error = err.Error()
			node.Actions = append(node.Actions, result)
			continue
		}
		_ = b.browser.WaitStable(ctx)

		landed, nerr := Normalize(b.browser.CurrentURL())
		if nerr == nil && landed != pageURL {
			result.Outcome = "navigated"
			result.NewURL = landed
			if graph.Node(landed) != nil {
				result.Outcome = "already_known"
			} else if IsCrawlable(landed) && SameRootDomain(graph.RootURL, landed) {
				graph.AddNode(landed, depth+1)
				discovered = append(discovered, landed)
			}
			graph.AddEdge(pageURL, landed)
			node.Actions = append(node.Actions, result)

			if _, err := b.browser.Navigate(ctx, pageURL); err != nil {
				b.logger.Warn("return navigation failed", "url", pageURL, "error", err)
				return discovered
			}
			_ = b.browser.WaitStable(ctx)
			continue
		}

		if fp, ferr := b.browser.StructuralFingerprint(ctx); ferr == nil && base != nil && base.Delta(*fp) > b.cfg.SPAThreshold {
			// Same URL, materially different layout: a client-side
			// route. Record it as its own synthetic page.
			synthetic := fmt.Sprintf("%s#view-%x", pageURL, fp.Hash&0xffff)
			view := graph.AddNode(synthetic, depth+1)
			view.Title = b.browser.Title()
			view.Status = entity.NodeVisited
			view.Synthetic = true
			graph.AddEdge(pageURL, synthetic)
			result.Outcome = "new_content"
			result.NewURL = synthetic
		} else {
			result.Outcome = "no_change"
		}
		node.Actions = append(node.Actions, result)
	}
	return discovered
}

// settle dismisses overlays and scrolls to pull in lazy content, then
// returns to the top so discovery sees the whole page. Scrolling stops
// early once a pass leaves the page structure unchanged.
func (b *Builder) settle(ctx context.Context) {
	if n, err := b.browser.DismissOverlays(ctx); err == nil && n > 0 {
		b.logger.Debug("dismissed overlays", "count", n)
	}
	var last uint64
	if fp, err := b.browser.StructuralFingerprint(ctx); err == nil {
		last = fp.Hash
	}
	for i := 0; i < b.cfg.ScrollPasses; i++ {
		if err := b.browser.ScrollBy(ctx, 1200); err != nil {
			break
		}
		_ = b.browser.WaitStable(ctx)
		fp, err := b.browser.StructuralFingerprint(ctx)
		if err != nil || fp.Hash == last {
			// the scroll pulled in nothing new
			break
		}
		last = fp.Hash
	}
	_ = b.browser.ScrollTop(ctx)
	_ = b.browser.WaitStable(ctx)
}

// blockReason detects bot walls and hard HTTP failures.
func blockReason(state *entity.PageState) string {
	if state.Status == 403 || state.Status == 429 {
		return fmt.Sprintf("blocked with status %d", state.Status)
	}
	if state.Status >= 400 {
		return fmt.Sprintf("http %d", state.Status)
	}
	title := strings.ToLower(state.Title)
	for _, marker := range []string{"access denied", "just a moment", "attention required", "are you a robot", "captcha"} {
		if strings.Contains(title, marker) {
			return "bot protection: " + marker
		}
	}
	return ""
}

// classifyPage assigns a coarse page type from URL path and title.
func classifyPage(pageURL, title string) string {
	lower := strings.ToLower(pageURL + " " + title)
	switch {
	case strings.Contains(lower, "/cart") || strings.Contains(lower, "basket"):
		return "cart"
	case strings.Contains(lower, "checkout"):
		return "checkout"
	case strings.Contains(lower, "/product") || strings.Contains(lower, "/item") || strings.Contains(lower, "/p/"):
		return "product"
	case strings.Contains(lower, "search"):
		return "search"
	case strings.Contains(lower, "login") || strings.Contains(lower, "signin") || strings.Contains(lower, "sign-in"):
		return "login"
	case strings.Contains(lower, "signup") || strings.Contains(lower, "register"):
		return "signup"
	case strings.Contains(lower, "/blog") || strings.Contains(lower, "/news") || strings.Contains(lower, "/article"):
		return "article"
	case strings.Contains(lower, "contact"):
		return "contact"
	case strings.Contains(lower, "about"):
		return "about"
	case strings.Contains(lower, "pricing") || strings.Contains(lower, "plans"):
		return "pricing"
	case strings.Contains(lower, "/category") || strings.Contains(lower, "/collection") || strings.Contains(lower, "/shop"):
		return "listing"
	default:
		if u := strings.TrimPrefix(pageURL, "https://"); strings.Count(u, "/") <= 1 {
			return "home"
		}
		return "content"
	}
}
