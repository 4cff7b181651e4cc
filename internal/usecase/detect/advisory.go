package detect

import (
	"context"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

// AdvisoryReviewer is the LOW tier: screenshot review by the model,
// bounded to a fixed number of pages per scan. Everything it produces
// is a suspicion, kept out of the deterministic defect list.
type AdvisoryReviewer struct {
	advisory output.AdvisoryPort
	registry *Registry
	logger   output.LoggerPort
	budget   int
	used     int
}

func NewAdvisoryReviewer(advisory output.AdvisoryPort, registry *Registry, logger output.LoggerPort, budget int) *AdvisoryReviewer {
	if budget <= 0 {
		budget = 5
	}
	return &AdvisoryReviewer{
		advisory: advisory,
		registry: registry,
		logger:   logger,
		budget:   budget,
	}
}

// Review submits one page screenshot if budget remains. A failed or
// refused review costs budget but never fails the scan.
func (r *AdvisoryReviewer) Review(ctx context.Context, pageURL, viewport string, shot *entity.Screenshot) {
	if r.advisory == nil || shot == nil || r.used >= r.budget {
		return
	}
	r.used++

	resp, err := r.advisory.Decide(ctx, output.AdvisoryRequest{
		Task:       output.TaskReviewPage,
		PageURL:    pageURL,
		Screenshot: shot,
	})
	if err != nil {
		r.logger.Warn("advisory page review failed", "url", pageURL, "error", err)
		return
	}

	for _, s := range resp.Suspicions {
		r.registry.AddAdvisory(entity.BugFinding{
			Title:       s.Title,
			Category:    entity.CategoryVisual,
			Severity:    entity.SeverityP3,
			PageURL:     pageURL,
			Viewport:    viewport,
			Description: s.Description,
		})
	}
}

// Remaining reports the unused review budget.
func (r *AdvisoryReviewer) Remaining() int { return r.budget - r.used }
