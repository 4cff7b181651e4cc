package detect

import (
	"fmt"

	"siteqa/internal/domain/entity"
)

// Threshold boundaries for the MEDIUM confidence tier. Values follow
// common web vitals guidance: the low bound flags a degradation, the
// high bound a serious one.
const (
	loadSlowMS     = 3000
	loadVerySlowMS = 5000
	fcpSlowMS      = 1800
	fcpVerySlowMS  = 3000
	domLargeNodes  = 1500
	domHugeNodes   = 3000

	touchTargetTolerance = 5
	minBodyFontPx        = 14.0
)

// ThresholdDetector is the MEDIUM tier: measurements judged against
// fixed boundaries. Real numbers, judged severity.
type ThresholdDetector struct {
	registry *Registry
	viewport string
	mobile   bool
}

func NewThresholdDetector(registry *Registry, viewport string, mobile bool) *ThresholdDetector {
	return &ThresholdDetector{registry: registry, viewport: viewport, mobile: mobile}
}

// CheckMetrics judges page timings and weight.
func (d *ThresholdDetector) CheckMetrics(m *entity.PageMetrics) {
	if m == nil {
		return
	}

	if m.LoadTimeMS > loadVerySlowMS {
		d.add(m.URL, entity.CategoryPerformance, entity.SeverityP2,
			fmt.Sprintf("Very slow page load: %dms", m.LoadTimeMS),
			map[string]any{"load_ms": m.LoadTimeMS, "threshold_ms": loadVerySlowMS})
	} else if m.LoadTimeMS > loadSlowMS {
		d.add(m.URL, entity.CategoryPerformance, entity.SeverityP3,
			fmt.Sprintf("Slow page load: %dms", m.LoadTimeMS),
			map[string]any{"load_ms": m.LoadTimeMS, "threshold_ms": loadSlowMS})
	}

	if m.FCPMS > fcpVerySlowMS {
		d.add(m.URL, entity.CategoryPerformance, entity.SeverityP2,
			fmt.Sprintf("First contentful paint at %dms", m.FCPMS),
			map[string]any{"fcp_ms": m.FCPMS, "threshold_ms": fcpVerySlowMS})
	} else if m.FCPMS > fcpSlowMS {
		d.add(m.URL, entity.CategoryPerformance, entity.SeverityP3,
			fmt.Sprintf("First contentful paint at %dms", m.FCPMS),
			map[string]any{"fcp_ms": m.FCPMS, "threshold_ms": fcpSlowMS})
	}

	if m.DOMNodeCount > domHugeNodes {
		d.add(m.URL, entity.CategoryPerformance, entity.SeverityP3,
			fmt.Sprintf("Excessive DOM size: %d nodes", m.DOMNodeCount),
			map[string]any{"dom_nodes": m.DOMNodeCount, "threshold": domHugeNodes})
	} else if m.DOMNodeCount > domLargeNodes {
		d.add(m.URL, entity.CategoryPerformance, entity.SeverityP4,
			fmt.Sprintf("Large DOM: %d nodes", m.DOMNodeCount),
			map[string]any{"dom_nodes": m.DOMNodeCount, "threshold": domLargeNodes})
	}
}

// CheckProbe judges accessibility and responsive layout signals.
func (d *ThresholdDetector) CheckProbe(probe *entity.PageProbe) {
	if probe == nil {
		return
	}

	if probe.ImagesMissingAlt > 0 {
		d.add(probe.URL, entity.CategoryAccessibility, entity.SeverityP3,
			fmt.Sprintf("%d images without alt text", probe.ImagesMissingAlt),
			map[string]any{"count": probe.ImagesMissingAlt})
	}
	if probe.InputsMissingLabel > 0 {
		d.add(probe.URL, entity.CategoryAccessibility, entity.SeverityP3,
			fmt.Sprintf("%d form inputs without labels", probe.InputsMissingLabel),
			map[string]any{"count": probe.InputsMissingLabel})
	}
	if !probe.HasLangAttr {
		d.add(probe.URL, entity.CategoryAccessibility, entity.SeverityP4,
			"Document missing lang attribute", nil)
	}
	if !probe.HasTitle {
		d.add(probe.URL, entity.CategoryAccessibility, entity.SeverityP3,
			"Document has no title", nil)
	}

	if d.mobile {
		if probe.HorizontalOverflow {
			d.add(probe.URL, entity.CategoryResponsive, entity.SeverityP2,
				"Horizontal overflow on mobile viewport",
				map[string]any{"viewport": d.viewport})
		}
		if probe.SmallTouchTargets > touchTargetTolerance {
			d.add(probe.URL, entity.CategoryResponsive, entity.SeverityP3,
				fmt.Sprintf("%d touch targets under 44x44px", probe.SmallTouchTargets),
				map[string]any{"count": probe.SmallTouchTargets})
		}
		if probe.BodyFontPx > 0 && probe.BodyFontPx < minBodyFontPx {
			d.add(probe.URL, entity.CategoryResponsive, entity.SeverityP3,
				fmt.Sprintf("Body font %.1fpx is below readable size on mobile", probe.BodyFontPx),
				map[string]any{"font_px": probe.BodyFontPx})
		}
	}
}

func (d *ThresholdDetector) add(url string, cat entity.Category, sev entity.Severity, title string, evidence map[string]any) {
	d.registry.Add(entity.BugFinding{
		Title:      title,
		Category:   cat,
		Severity:   sev,
		Confidence: entity.ConfidenceMedium,
		PageURL:    url,
		Viewport:   d.viewport,
		Evidence:   evidence,
	})
}
