package output

import (
	"context"

	"siteqa/internal/domain/entity"
)

// AdvisoryTask discriminates what the engine is asking the model for.
type AdvisoryTask string

const (
	TaskIdentifyFlows  AdvisoryTask = "identify_flows"
	TaskResolveElement AdvisoryTask = "resolve_element"
	TaskVerifyOutcome  AdvisoryTask = "verify_outcome"
	TaskClassifyField  AdvisoryTask = "classify_field"
	TaskReviewPage     AdvisoryTask = "review_page"
)

// AdvisoryRequest is one bounded consultation. Every field the task does
// not need stays zero. Callers must pass a context with a deadline; the
// adapter enforces its own ceiling regardless.
type AdvisoryRequest struct {
	Task AdvisoryTask

	// identify_flows
	GraphSummary string
	SiteType     string

	// resolve_element: the model picks an index into Candidates,
	// never a selector of its own.
	StepDescription string
	Candidates      []entity.Candidate

	// verify_outcome
	ExpectedOutcome string
	Observation     *entity.PageObservation

	// classify_field
	FieldContext string

	// review_page
	Screenshot *entity.Screenshot
	PageURL    string
}

// AdvisoryResponse is the validated union of task results. Exactly the
// member matching the request task is populated.
type AdvisoryResponse struct {
	Flows          []entity.Flow
	CandidateIndex int  // -1 when the model declined to pick
	OutcomeMet     bool
	OutcomeReason  string
	FieldKind      string
	Suspicions     []PageSuspicion
}

// PageSuspicion is a possible visual defect reported by the advisory
// reviewer. Always low confidence; never enters the deterministic tiers.
type PageSuspicion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// AdvisoryPort consults a language model for judgment calls the
// heuristics cannot settle. Implementations must be strict about output:
// malformed or out-of-contract responses come back as errors so callers
// fall through to their deterministic fallback.
type AdvisoryPort interface {
	Decide(ctx context.Context, req AdvisoryRequest) (*AdvisoryResponse, error)
}
