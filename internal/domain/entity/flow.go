package entity

// ActionKind is the kind of user action a flow step performs.
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionClick    ActionKind = "click"
	ActionSearch   ActionKind = "search"
	ActionFillForm ActionKind = "fill_form"
	ActionVerify   ActionKind = "verify"
)

// KnownAction reports whether k is one of the recognized action kinds.
func KnownAction(k ActionKind) bool {
	switch k {
	case ActionNavigate, ActionClick, ActionSearch, ActionFillForm, ActionVerify:
		return true
	}
	return false
}

// FlowStep is a single user-intent step. Target is a natural-language
// locator hint ("search box", "add to cart button"), never a selector.
type FlowStep struct {
	Action  ActionKind `json:"action"`
	Target  string     `json:"target"`
	URLHint string     `json:"url_hint,omitempty"` // expected URL pattern, may be partial
	Verify  string     `json:"verify,omitempty"`   // expected outcome, in words
}

// Flow is a named user journey. Immutable once identified for a scan.
// Priority is inverted relative to its magnitude: 1 is the most
// critical journey and 5 the most peripheral, so consumers rank flows
// by sorting Priority ascending. The site's primary value-delivering
// journey always carries 1 and sorts first.
type Flow struct {
	Name     string     `json:"name"`
	Priority int        `json:"priority"`
	Steps    []FlowStep `json:"steps"`
	Requires []string   `json:"requires,omitempty"` // precondition tags, e.g. "requires-auth"
}

// StepStatus is the terminal outcome of one executed step.
type StepStatus string

const (
	StepPassed       StepStatus = "passed"
	StepFailed       StepStatus = "failed"
	StepBlocked      StepStatus = "blocked" // auth/permission barrier, never a defect
	StepInconclusive StepStatus = "inconclusive"
	StepSkipped      StepStatus = "skipped"
)

// FlowStatus aggregates step outcomes for a whole flow.
type FlowStatus string

const (
	FlowPassed  FlowStatus = "passed"
	FlowFailed  FlowStatus = "failed"
	FlowPartial FlowStatus = "partial"
	FlowError   FlowStatus = "error"
)

// FlowStepResult is the outcome of executing one step.
type FlowStepResult struct {
	Step          FlowStep          `json:"step"`
	Status        StepStatus        `json:"status"`
	ActualURL     string            `json:"actual_url"`
	ScreenshotRef string            `json:"screenshot_ref,omitempty"`
	Error         string            `json:"error,omitempty"`
	AdvisoryUsed  bool              `json:"ai_used"`
	Method        string            `json:"method,omitempty"` // which strategy resolved/verified the step
	StateChanges  map[string]any    `json:"state_changes,omitempty"`
}

// FlowResult is the outcome of executing an entire flow.
type FlowResult struct {
	Flow           Flow             `json:"flow"`
	Status         FlowStatus       `json:"status"`
	Steps          []FlowStepResult `json:"steps"`
	DurationMillis int64            `json:"duration_ms"`
	ContextSummary map[string]any   `json:"context_summary,omitempty"`
}
