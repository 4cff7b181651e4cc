package entity

import "time"

// PageMetrics is a timing/layout snapshot collected after a page settles.
type PageMetrics struct {
	URL           string `json:"url"`
	Viewport      string `json:"viewport"`
	LoadTimeMS    int    `json:"load_time_ms"`
	TTFBMS        int    `json:"ttfb_ms"`
	FCPMS         int    `json:"fcp_ms,omitempty"`
	DOMNodeCount  int    `json:"dom_node_count"`
	RequestCount  int    `json:"request_count"`
	TransferBytes int64  `json:"transfer_bytes"`
}

// CrawlResult is the top-level scan aggregate. The orchestrator assembles
// it; the core produces every input. Advisory-tier findings are carried
// separately so they never contaminate the deterministic defect list.
type CrawlResult struct {
	URL              string        `json:"url"`
	ScanID           string        `json:"scan_id"`
	PagesTested      int           `json:"pages_tested"`
	PagesVisited     []string      `json:"pages_visited"`
	Findings         []BugFinding  `json:"findings"`
	AdvisoryFindings []BugFinding  `json:"advisory_findings,omitempty"`
	Metrics          []PageMetrics `json:"metrics"`
	Flows            []FlowResult  `json:"flows"`
	HealthScore      int           `json:"health_score"`
	Errors           []string      `json:"errors,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at"`
}
