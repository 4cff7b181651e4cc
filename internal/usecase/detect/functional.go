package detect

import (
	"fmt"
	"strings"

	"siteqa/internal/domain/entity"
)

// ignorableRequests are third-party noise that should not count against
// the site under test.
var ignorableRequests = []string{
	"favicon.ico", "google-analytics", "googletagmanager", "doubleclick",
	"facebook.net", "hotjar", "segment.io", "sentry.io",
}

// FunctionalDetector is the HIGH confidence tier: every finding here is
// a directly observed fact from the browser session.
type FunctionalDetector struct {
	registry *Registry
	viewport string
}

func NewFunctionalDetector(registry *Registry, viewport string) *FunctionalDetector {
	return &FunctionalDetector{registry: registry, viewport: viewport}
}

// HandleEvent consumes one passive browser event. Wired as an event bus
// subscriber; called for every console message and network response.
func (d *FunctionalDetector) HandleEvent(evt entity.BrowserEvent) {
	switch evt.Type {
	case entity.EventConsoleError:
		d.registry.Add(entity.BugFinding{
			Title:       "JavaScript console error: " + truncate(evt.Text, 120),
			Category:    entity.CategoryFunctional,
			Severity:    entity.SeverityP1,
			Confidence:  entity.ConfidenceHigh,
			PageURL:     evt.PageURL,
			Viewport:    d.viewport,
			Description: evt.Text,
			Evidence:    map[string]any{"message": evt.Text},
			DetectedAt:  evt.Timestamp,
		})

	case entity.EventPageError:
		d.registry.Add(entity.BugFinding{
			Title:       "Uncaught page exception: " + truncate(evt.Text, 120),
			Category:    entity.CategoryFunctional,
			Severity:    entity.SeverityP1,
			Confidence:  entity.ConfidenceHigh,
			PageURL:     evt.PageURL,
			Viewport:    d.viewport,
			Description: evt.Text,
			Evidence:    map[string]any{"message": evt.Text},
			DetectedAt:  evt.Timestamp,
		})

	case entity.EventNetworkResponse:
		if evt.Status < 400 || ignorable(evt.URL) {
			return
		}
		severity := entity.SeverityP2
		if evt.Status >= 500 {
			severity = entity.SeverityP1
		}
		if evt.Resource == "document" {
			severity = entity.SeverityP0
		}
		d.registry.Add(entity.BugFinding{
			Title:       fmt.Sprintf("Request failed with %d: %s", evt.Status, truncate(evt.URL, 120)),
			Category:    entity.CategoryFunctional,
			Severity:    severity,
			Confidence:  entity.ConfidenceHigh,
			PageURL:     evt.PageURL,
			Viewport:    d.viewport,
			Description: fmt.Sprintf("%s %s returned %d", evt.Method, evt.URL, evt.Status),
			Evidence: map[string]any{
				"url":      evt.URL,
				"status":   evt.Status,
				"resource": evt.Resource,
			},
			DetectedAt: evt.Timestamp,
		})
	}
}

// CheckProbe inspects the settled DOM for hard functional facts.
func (d *FunctionalDetector) CheckProbe(probe *entity.PageProbe) {
	if probe == nil {
		return
	}

	for _, src := range probe.BrokenImages {
		d.registry.Add(entity.BugFinding{
			Title:      "Broken image: " + truncate(src, 120),
			Category:   entity.CategoryVisual,
			Severity:   entity.SeverityP2,
			Confidence: entity.ConfidenceHigh,
			PageURL:    probe.URL,
			Viewport:   d.viewport,
			Evidence:   map[string]any{"src": src},
		})
	}

	if !probe.HasViewportMeta {
		d.registry.Add(entity.BugFinding{
			Title:      "Missing viewport meta tag",
			Category:   entity.CategoryResponsive,
			Severity:   entity.SeverityP2,
			Confidence: entity.ConfidenceHigh,
			PageURL:    probe.URL,
			Viewport:   d.viewport,
		})
	}

	for _, res := range probe.MixedContent {
		d.registry.Add(entity.BugFinding{
			Title:      "Mixed content: insecure resource on https page",
			Category:   entity.CategorySecurity,
			Severity:   entity.SeverityP1,
			Confidence: entity.ConfidenceHigh,
			PageURL:    probe.URL,
			Viewport:   d.viewport,
			Evidence:   map[string]any{"resource": res},
		})
	}
}

func ignorable(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range ignorableRequests {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
