package entity

// StateSnapshot captures browser-side state at a point in time so silent
// failures (no UI change, but errors underneath) can be detected.
type StateSnapshot struct {
	URL            string
	Cookies        []Cookie
	LocalStorage   map[string]string
	SessionStorage map[string]string
	ConsoleErrors  []string
	NetworkErrors  []string
	DOMHash        uint64
}

// StateChange is the diff between two snapshots.
type StateChange struct {
	URLChanged       bool
	CookiesAdded     []string
	CookiesRemoved   []string
	StorageChanges   map[string]string
	NewConsoleErrors []string
	NewNetworkErrors []string
	DOMChanged       bool
}

func (c StateChange) HasErrors() bool {
	return len(c.NewConsoleErrors) > 0 || len(c.NewNetworkErrors) > 0
}

// DiffSnapshots compares before/after browser state.
func DiffSnapshots(before, after StateSnapshot) StateChange {
	change := StateChange{
		URLChanged:     before.URL != after.URL,
		DOMChanged:     before.DOMHash != after.DOMHash,
		StorageChanges: make(map[string]string),
	}

	beforeCookies := make(map[string]struct{}, len(before.Cookies))
	for _, c := range before.Cookies {
		beforeCookies[c.Name] = struct{}{}
	}
	afterCookies := make(map[string]struct{}, len(after.Cookies))
	for _, c := range after.Cookies {
		afterCookies[c.Name] = struct{}{}
		if _, ok := beforeCookies[c.Name]; !ok {
			change.CookiesAdded = append(change.CookiesAdded, c.Name)
		}
	}
	for _, c := range before.Cookies {
		if _, ok := afterCookies[c.Name]; !ok {
			change.CookiesRemoved = append(change.CookiesRemoved, c.Name)
		}
	}

	for key, val := range after.LocalStorage {
		if _, ok := before.LocalStorage[key]; !ok {
			change.StorageChanges[key] = val
		}
	}

	seenConsole := make(map[string]struct{}, len(before.ConsoleErrors))
	for _, e := range before.ConsoleErrors {
		seenConsole[e] = struct{}{}
	}
	for _, e := range after.ConsoleErrors {
		if _, ok := seenConsole[e]; !ok {
			change.NewConsoleErrors = append(change.NewConsoleErrors, e)
		}
	}

	seenNet := make(map[string]struct{}, len(before.NetworkErrors))
	for _, e := range before.NetworkErrors {
		seenNet[e] = struct{}{}
	}
	for _, e := range after.NetworkErrors {
		if _, ok := seenNet[e]; !ok {
			change.NewNetworkErrors = append(change.NewNetworkErrors, e)
		}
	}

	return change
}

// FlowContext is the mutable state accumulated across one flow's steps.
// Owned exclusively by the executor while the flow runs, discarded after.
type FlowContext struct {
	Variables         map[string]any
	NavigationHistory []string
	Snapshots         []StateSnapshot
	Changes           []StateChange
	ConsoleErrors     []string
	NetworkErrors     []string
	StepsCompleted    int
	StepsFailed       int
	AuthCompleted     bool
	SiteType          string
	SearchQueryUsed   string
}

func NewFlowContext(siteType string) *FlowContext {
	return &FlowContext{
		Variables: make(map[string]any),
		SiteType:  siteType,
	}
}

func (c *FlowContext) Set(key string, value any) { c.Variables[key] = value }

func (c *FlowContext) Get(key string) (any, bool) {
	v, ok := c.Variables[key]
	return v, ok
}

func (c *FlowContext) RecordNavigation(url string) {
	c.NavigationHistory = append(c.NavigationHistory, url)
}

func (c *FlowContext) RecordChange(snapshot StateSnapshot, change StateChange) {
	c.Snapshots = append(c.Snapshots, snapshot)
	c.Changes = append(c.Changes, change)
	c.ConsoleErrors = append(c.ConsoleErrors, change.NewConsoleErrors...)
	c.NetworkErrors = append(c.NetworkErrors, change.NewNetworkErrors...)
}

// Summary condenses the context for the flow result.
func (c *FlowContext) Summary() map[string]any {
	return map[string]any{
		"steps_completed":      c.StepsCompleted,
		"steps_failed":         c.StepsFailed,
		"pages_visited":        len(c.NavigationHistory),
		"total_js_errors":      len(c.ConsoleErrors),
		"total_network_errors": len(c.NetworkErrors),
		"auth_completed":       c.AuthCompleted,
		"site_type":            c.SiteType,
	}
}
