package output

import (
	"context"

	"siteqa/internal/domain/entity"
)

// BrowserPort is the engine's view of a live browser session. One port
// instance is one page; the session pool hands them out per viewport.
type BrowserPort interface {
	Navigate(ctx context.Context, url string) (*entity.PageState, error)
	Reload(ctx context.Context) error
	Back(ctx context.Context) error
	CurrentURL() string
	Title() string

	// DiscoverElements ranks the interactive surface of the current page.
	DiscoverElements(ctx context.Context) ([]entity.PageElement, error)
	// Candidates lists fillable/clickable elements for step resolution,
	// scoped by a coarse kind ("clickable", "fillable", "any").
	Candidates(ctx context.Context, kind string) ([]entity.Candidate, error)
	Observe(ctx context.Context) (*entity.PageObservation, error)
	Probe(ctx context.Context) (*entity.PageProbe, error)
	Metrics(ctx context.Context) (*entity.PageMetrics, error)
	StructuralFingerprint(ctx context.Context) (*entity.DOMFingerprint, error)

	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	Press(ctx context.Context, key string) error
	ScrollBy(ctx context.Context, pixels int) error
	ScrollTop(ctx context.Context) error
	SelectOption(ctx context.Context, selector, value string) error

	// DismissOverlays closes cookie banners, modals and newsletter popups
	// that would swallow clicks. Best effort; reports how many it closed.
	DismissOverlays(ctx context.Context) (int, error)
	// WaitStable blocks until in-flight requests drain and the DOM stops
	// mutating, or the deadline passes.
	WaitStable(ctx context.Context) error

	Screenshot(ctx context.Context) (*entity.Screenshot, error)
	Cookies(ctx context.Context) ([]entity.Cookie, error)
	Storage(ctx context.Context) (local, session map[string]string, err error)
	StateSnapshot(ctx context.Context) (*entity.StateSnapshot, error)

	// SetEventSink registers the receiver for passive session events
	// (console errors, page errors, network responses). One sink per
	// session; a later call replaces the previous sink.
	SetEventSink(sink func(entity.BrowserEvent))

	SetViewport(ctx context.Context, vp entity.Viewport) error
	Close()
}
