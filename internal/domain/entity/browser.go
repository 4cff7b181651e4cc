package entity

import "time"

// PageState is what a navigation settled into.
type PageState struct {
	URL    string
	Title  string
	Status int // HTTP status of the document response, 0 when unknown
}

// Screenshot is a captured page image, already downscaled for transport.
type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Candidate is one interactive element offered to the resolution chain.
// The advisory service, when consulted, picks an index into a candidate
// list; it never invents a selector.
type Candidate struct {
	Index       int    `json:"index"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Text        string `json:"text"`
	TestID      string `json:"test_id,omitempty"`
	AriaLabel   string `json:"aria_label,omitempty"`
	SemRole     string `json:"sem_role,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Href        string `json:"href,omitempty"`
	Selector    string `json:"selector"`
}

// PageObservation is a heuristic-verification snapshot of the current page.
// Verifiers are pure functions over this struct.
type PageObservation struct {
	URL              string
	Title            string
	WordCount        int
	ResultCount      int    // result-like elements (cards, list items, search hits)
	NoResultsText    bool   // visible "no results" style message
	ErrorRegionText  string // text of the first visible error-indicator region
	SuccessText      string // text of the first visible success-indicator region
	HasPasswordField bool
	HasCaptcha       bool
	LoginFormVisible bool
}

// PageProbe is a DOM health snapshot consumed by the detection tiers.
type PageProbe struct {
	URL                string
	BrokenImages       []string // src of images that failed to load
	HasViewportMeta    bool
	MixedContent       []string // http:// resources loaded on an https page
	HorizontalOverflow bool
	SmallTouchTargets  int // interactive elements under 44x44 px
	ImagesMissingAlt   int
	InputsMissingLabel int
	HasLangAttr        bool
	HasTitle           bool
	BodyFontPx         float64
}

// DOMFingerprint is a structural digest of the rendered DOM: the tag and
// attribute skeleton, never text. Used for SPA new-page detection and the
// executor's anti-loop guard.
type DOMFingerprint struct {
	Hash      uint64         `json:"hash"`
	TagCounts map[string]int `json:"tag_counts"`
}

// Delta returns the fraction of tag occurrences that differ between two
// fingerprints, in [0,1]. Two nil-ish fingerprints compare equal.
func (f DOMFingerprint) Delta(other DOMFingerprint) float64 {
	total := 0
	diff := 0
	seen := make(map[string]struct{}, len(f.TagCounts)+len(other.TagCounts))
	for tag := range f.TagCounts {
		seen[tag] = struct{}{}
	}
	for tag := range other.TagCounts {
		seen[tag] = struct{}{}
	}
	for tag := range seen {
		a := f.TagCounts[tag]
		b := other.TagCounts[tag]
		if a > b {
			diff += a - b
			total += a
		} else {
			diff += b - a
			total += b
		}
	}
	if total == 0 {
		return 0
	}
	return float64(diff) / float64(total)
}

// BrowserEventType tags passive browser session events.
type BrowserEventType string

const (
	EventConsoleError    BrowserEventType = "console_error"
	EventPageError       BrowserEventType = "page_error"
	EventNetworkResponse BrowserEventType = "network_response"
)

// BrowserEvent is one passive observation from the browser session,
// fanned out to the detection tiers.
type BrowserEvent struct {
	Type      BrowserEventType
	PageURL   string // page the session was on when the event fired
	Text      string // console/error message
	URL       string // network: request URL
	Method    string // network: request method
	Status    int    // network: response status
	Resource  string // network: resource type (document, image, xhr, ...)
	Timestamp time.Time
}

// Cookie is the subset of cookie state the engine snapshots.
type Cookie struct {
	Name   string
	Domain string
}

// Viewport is a named browser window size.
type Viewport struct {
	Name   string
	Width  int
	Height int
	Mobile bool
}

var (
	ViewportDesktop = Viewport{Name: "desktop", Width: 1920, Height: 1080}
	ViewportMobile  = Viewport{Name: "mobile", Width: 375, Height: 812, Mobile: true}
)
