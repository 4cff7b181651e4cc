package flows

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

// Identifier produces the flow list for a scan. The advisory model gets
// the first word, the heuristic planner always has the last: any model
// failure, timeout or contract violation falls back silently.
type Identifier struct {
	advisory output.AdvisoryPort
	logger   output.LoggerPort
	cache    *lru.Cache[uint64, []entity.Flow]
}

func NewIdentifier(advisory output.AdvisoryPort, logger output.LoggerPort) (*Identifier, error) {
	cache, err := lru.New[uint64, []entity.Flow](64)
	if err != nil {
		return nil, fmt.Errorf("flow cache: %w", err)
	}
	return &Identifier{
		advisory: advisory,
		logger:   logger,
		cache:    cache,
	}, nil
}

// Identify returns 5 to 8 flows for the graph, best first. Identical
// graph shapes reuse the cached decision so re-scans of an unchanged
// site stay stable and cheap.
func (i *Identifier) Identify(ctx context.Context, graph *entity.SiteGraph, siteType string) []entity.Flow {
	key := shapeHash(graph, siteType)
	if cached, ok := i.cache.Get(key); ok {
		i.logger.Debug("flow identification cache hit", "key", key)
		return cached
	}

	flows := i.fromAdvisory(ctx, graph, siteType)
	if flows == nil {
		flows = HeuristicFlows(graph, siteType)
	}

	sort.SliceStable(flows, func(a, b int) bool { return flows[a].Priority < flows[b].Priority })
	if len(flows) > 8 {
		flows = flows[:8]
	}

	if len(flows) > 0 {
		i.cache.Add(key, flows)
	}
	return flows
}

func (i *Identifier) fromAdvisory(ctx context.Context, graph *entity.SiteGraph, siteType string) []entity.Flow {
	if i.advisory == nil {
		return nil
	}

	resp, err := i.advisory.Decide(ctx, output.AdvisoryRequest{
		Task:         output.TaskIdentifyFlows,
		SiteType:     siteType,
		GraphSummary: Summarize(graph),
	})
	if err != nil {
		i.logger.Warn("advisory flow identification failed, using heuristics", "error", err)
		return nil
	}

	flows := pruneUnknownPages(resp.Flows, graph)
	if len(flows) == 0 {
		i.logger.Warn("advisory flows all referenced unknown pages, using heuristics")
		return nil
	}

	// Top the list up with heuristic flows when the model under-delivers.
	if len(flows) < 5 {
		seen := map[string]bool{}
		for _, f := range flows {
			seen[strings.ToLower(f.Name)] = true
		}
		for _, f := range HeuristicFlows(graph, siteType) {
			if len(flows) >= 5 {
				break
			}
			if !seen[strings.ToLower(f.Name)] {
				flows = append(flows, f)
			}
		}
	}
	return flows
}

// pruneUnknownPages drops flows whose URL hints point outside the graph.
// The model only ever gets to choose among pages the crawl proved exist.
func pruneUnknownPages(flows []entity.Flow, graph *entity.SiteGraph) []entity.Flow {
	kept := flows[:0]
	for _, f := range flows {
		ok := true
		for _, s := range f.Steps {
			if s.URLHint == "" {
				continue
			}
			if !knownPage(graph, s.URLHint) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, f)
		}
	}
	return kept
}

// knownPage matches a hint against graph URLs. A hint may be a partial
// path, so containment runs one way only: the hint inside a crawled
// URL, never a crawled URL inside the hint.
func knownPage(graph *entity.SiteGraph, hint string) bool {
	hint = strings.TrimSpace(strings.ToLower(hint))
	if hint == "" {
		return true
	}
	for url := range graph.Nodes {
		if strings.Contains(strings.ToLower(url), hint) {
			return true
		}
	}
	return false
}

// Summarize renders the graph as the page list the advisory prompt
// embeds. Visited pages only, capped so huge sites stay in budget.
func Summarize(graph *entity.SiteGraph) string {
	nodes := graph.Visited()
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].URL < nodes[j].URL
	})
	if len(nodes) > 40 {
		nodes = nodes[:40]
	}

	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "- %s (%s)", n.URL, n.PageType)
		if n.Title != "" {
			fmt.Fprintf(&b, " %q", n.Title)
		}
		roles := map[entity.ElementRole]int{}
		for _, el := range n.Elements {
			roles[el.Role]++
		}
		if roles[entity.RoleSearch] > 0 {
			b.WriteString(" [has search]")
		}
		if roles[entity.RoleForm] > 0 {
			b.WriteString(" [has form]")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// shapeHash digests the graph's page set and structure. Content changes
// on a page do not move the hash; adding or removing pages does.
func shapeHash(graph *entity.SiteGraph, siteType string) uint64 {
	urls := make([]string, 0, len(graph.Nodes))
	for url, n := range graph.Nodes {
		urls = append(urls, fmt.Sprintf("%s|%s|%s", url, n.PageType, n.Status))
	}
	sort.Strings(urls)

	h := fnv.New64a()
	h.Write([]byte(siteType))
	for _, u := range urls {
		h.Write([]byte(u))
		h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
