package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (l nopLogger) WithField(string, any) output.LoggerPort     { return l }
func (l nopLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                                  { return nil }

func TestRegistryDeduplicates(t *testing.T) {
	r := NewRegistry()

	finding := entity.BugFinding{
		Title:    "JavaScript console error: x is undefined",
		Category: entity.CategoryFunctional,
		Severity: entity.SeverityP1,
		PageURL:  "https://shop.test/",
	}

	assert.True(t, r.Add(finding))
	assert.False(t, r.Add(finding))
	// case and spacing differences collapse too
	dup := finding
	dup.Title = "  JavaScript Console Error: X is undefined "
	assert.False(t, r.Add(dup))

	assert.Len(t, r.Findings(), 1)
}

func TestRegistryUpgradesSeverityOnRepeat(t *testing.T) {
	r := NewRegistry()

	f := entity.BugFinding{Title: "Request failed", Category: entity.CategoryFunctional, Severity: entity.SeverityP2, PageURL: "https://shop.test/"}
	r.Add(f)

	f.Severity = entity.SeverityP0
	assert.False(t, r.Add(f))
	assert.Equal(t, entity.SeverityP0, r.Findings()[0].Severity)
}

func TestRegistrySortsBySeverity(t *testing.T) {
	r := NewRegistry()
	r.Add(entity.BugFinding{Title: "minor", Severity: entity.SeverityP4, Category: entity.CategoryAccessibility, PageURL: "a"})
	r.Add(entity.BugFinding{Title: "major", Severity: entity.SeverityP0, Category: entity.CategoryFunctional, PageURL: "b"})
	r.Add(entity.BugFinding{Title: "medium", Severity: entity.SeverityP2, Category: entity.CategoryVisual, PageURL: "c"})

	findings := r.Findings()
	assert.Equal(t, "major", findings[0].Title)
	assert.Equal(t, "minor", findings[2].Title)
}

func TestHealthScorePenalties(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 100, r.HealthScore())

	r.Add(entity.BugFinding{Title: "a", Severity: entity.SeverityP0, Category: entity.CategoryFunctional, PageURL: "1"})
	r.Add(entity.BugFinding{Title: "b", Severity: entity.SeverityP1, Category: entity.CategoryFunctional, PageURL: "2"})
	r.Add(entity.BugFinding{Title: "c", Severity: entity.SeverityP4, Category: entity.CategoryAccessibility, PageURL: "3"})
	assert.Equal(t, 100-25-15-1, r.HealthScore())

	// advisory suspicions never move the score
	r.AddAdvisory(entity.BugFinding{Title: "maybe misaligned", Severity: entity.SeverityP3, Category: entity.CategoryVisual, PageURL: "4"})
	assert.Equal(t, 100-25-15-1, r.HealthScore())
}

func TestHealthScoreFloorsAtZero(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 6; i++ {
		r.Add(entity.BugFinding{
			Title:    "broken " + string(rune('a'+i)),
			Severity: entity.SeverityP0,
			Category: entity.CategoryFunctional,
			PageURL:  "https://shop.test/",
		})
	}
	assert.Equal(t, 0, r.HealthScore())
}

func TestFunctionalDetectorConsoleError(t *testing.T) {
	r := NewRegistry()
	d := NewFunctionalDetector(r, "desktop")

	d.HandleEvent(entity.BrowserEvent{
		Type:      entity.EventConsoleError,
		PageURL:   "https://shop.test/",
		Text:      "Uncaught TypeError: x is undefined",
		Timestamp: time.Now(),
	})

	findings := r.Findings()
	require.Len(t, findings, 1)
	assert.Equal(t, entity.SeverityP1, findings[0].Severity)
	assert.Equal(t, entity.ConfidenceHigh, findings[0].Confidence)
	assert.Equal(t, entity.CategoryFunctional, findings[0].Category)
}

func TestFunctionalDetectorNetworkSeverities(t *testing.T) {
	r := NewRegistry()
	d := NewFunctionalDetector(r, "desktop")

	d.HandleEvent(entity.BrowserEvent{Type: entity.EventNetworkResponse, PageURL: "p", URL: "https://shop.test/api/x", Status: 404, Resource: "xhr"})
	d.HandleEvent(entity.BrowserEvent{Type: entity.EventNetworkResponse, PageURL: "p", URL: "https://shop.test/api/y", Status: 500, Resource: "xhr"})
	d.HandleEvent(entity.BrowserEvent{Type: entity.EventNetworkResponse, PageURL: "p", URL: "https://shop.test/broken", Status: 500, Resource: "document"})
	// successes and third-party noise are ignored
	d.HandleEvent(entity.BrowserEvent{Type: entity.EventNetworkResponse, PageURL: "p", URL: "https://shop.test/ok", Status: 200, Resource: "xhr"})
	d.HandleEvent(entity.BrowserEvent{Type: entity.EventNetworkResponse, PageURL: "p", URL: "https://www.google-analytics.com/collect", Status: 404, Resource: "xhr"})

	findings := r.Findings()
	require.Len(t, findings, 3)
	assert.Equal(t, entity.SeverityP0, findings[0].Severity) // failed document
	assert.Equal(t, entity.SeverityP1, findings[1].Severity) // 500 xhr
	assert.Equal(t, entity.SeverityP2, findings[2].Severity) // 404 xhr
}

func TestFunctionalDetectorProbe(t *testing.T) {
	r := NewRegistry()
	d := NewFunctionalDetector(r, "desktop")

	d.CheckProbe(&entity.PageProbe{
		URL:             "https://shop.test/",
		BrokenImages:    []string{"https://shop.test/img/hero.jpg"},
		HasViewportMeta: false,
		MixedContent:    []string{"http://cdn.test/script.js"},
		HasLangAttr:     true,
		HasTitle:        true,
	})

	findings := r.Findings()
	require.Len(t, findings, 3)

	categories := map[entity.Category]bool{}
	for _, f := range findings {
		categories[f.Category] = true
	}
	assert.True(t, categories[entity.CategoryVisual])
	assert.True(t, categories[entity.CategoryResponsive])
	assert.True(t, categories[entity.CategorySecurity])
}

func TestThresholdDetectorMetrics(t *testing.T) {
	r := NewRegistry()
	d := NewThresholdDetector(r, "desktop", false)

	d.CheckMetrics(&entity.PageMetrics{URL: "https://shop.test/fast", LoadTimeMS: 1200, FCPMS: 900, DOMNodeCount: 400})
	assert.Empty(t, r.Findings())

	d.CheckMetrics(&entity.PageMetrics{URL: "https://shop.test/slow", LoadTimeMS: 3500, FCPMS: 2000, DOMNodeCount: 1600})
	findings := r.Findings()
	require.Len(t, findings, 3)
	for _, f := range findings {
		assert.Equal(t, entity.ConfidenceMedium, f.Confidence)
	}

	d.CheckMetrics(&entity.PageMetrics{URL: "https://shop.test/worse", LoadTimeMS: 6000, FCPMS: 3500, DOMNodeCount: 3500})
	for _, f := range r.Findings() {
		if f.PageURL == "https://shop.test/worse" && f.Category == entity.CategoryPerformance {
			assert.NotEqual(t, entity.SeverityP4, f.Severity)
		}
	}
}

func TestThresholdDetectorMobileOnlyChecks(t *testing.T) {
	probe := &entity.PageProbe{
		URL:                "https://shop.test/",
		HasViewportMeta:    true,
		HasLangAttr:        true,
		HasTitle:           true,
		HorizontalOverflow: true,
		SmallTouchTargets:  9,
		BodyFontPx:         12,
	}

	desktop := NewRegistry()
	NewThresholdDetector(desktop, "desktop", false).CheckProbe(probe)
	assert.Empty(t, desktop.Findings())

	mobile := NewRegistry()
	NewThresholdDetector(mobile, "mobile", true).CheckProbe(probe)
	assert.Len(t, mobile.Findings(), 3)
}

func TestThresholdDetectorAccessibility(t *testing.T) {
	r := NewRegistry()
	d := NewThresholdDetector(r, "desktop", false)

	d.CheckProbe(&entity.PageProbe{
		URL:              "https://shop.test/",
		ImagesMissingAlt: 4,
		HasLangAttr:      false,
		HasTitle:         false,
		HasViewportMeta:  true,
	})

	findings := r.Findings()
	assert.Len(t, findings, 3)
	for _, f := range findings {
		assert.Equal(t, entity.CategoryAccessibility, f.Category)
	}
}

type reviewStub struct {
	resp  *output.AdvisoryResponse
	err   error
	calls int
}

func (s *reviewStub) Decide(ctx context.Context, req output.AdvisoryRequest) (*output.AdvisoryResponse, error) {
	s.calls++
	return s.resp, s.err
}

func TestAdvisoryReviewerBudget(t *testing.T) {
	r := NewRegistry()
	stub := &reviewStub{resp: &output.AdvisoryResponse{Suspicions: []output.PageSuspicion{
		{Title: "Overlapping text in header", Description: "nav overlaps logo"},
	}}}
	rev := NewAdvisoryReviewer(stub, r, nopLogger{}, 2)

	shot := &entity.Screenshot{Data: []byte{1}, Format: "jpeg"}
	rev.Review(context.Background(), "https://shop.test/a", "desktop", shot)
	rev.Review(context.Background(), "https://shop.test/b", "desktop", shot)
	rev.Review(context.Background(), "https://shop.test/c", "desktop", shot)

	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, 0, rev.Remaining())
	assert.Len(t, r.AdvisoryFindings(), 2)
	assert.Empty(t, r.Findings())
}

func TestAdvisoryReviewerErrorNeverFailsScan(t *testing.T) {
	r := NewRegistry()
	stub := &reviewStub{err: errors.New("model unavailable")}
	rev := NewAdvisoryReviewer(stub, r, nopLogger{}, 3)

	rev.Review(context.Background(), "https://shop.test/", "desktop", &entity.Screenshot{Data: []byte{1}})

	assert.Empty(t, r.AdvisoryFindings())
	assert.Empty(t, r.Findings())
}

func TestAdvisoryFindingsForcedLowConfidence(t *testing.T) {
	r := NewRegistry()
	r.AddAdvisory(entity.BugFinding{Title: "suspicious gap", Confidence: entity.ConfidenceHigh, Category: entity.CategoryVisual, PageURL: "x"})

	advisory := r.AdvisoryFindings()
	require.Len(t, advisory, 1)
	assert.Equal(t, entity.ConfidenceLow, advisory[0].Confidence)
}
