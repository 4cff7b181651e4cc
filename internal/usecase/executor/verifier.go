package executor

import (
	"strings"

	"siteqa/internal/domain/entity"
)

// Verdict is the outcome of verifying one step against the page.
type Verdict struct {
	Status entity.StepStatus
	Method string
	Reason string
}

// VerifyStep checks a step's outcome with deterministic rules only.
// Returns StepInconclusive when the rules cannot decide either way; the
// executor then asks the advisory verifier, and failing that records the
// step as inconclusive rather than guessing.
func VerifyStep(step entity.FlowStep, beforeURL string, obs *entity.PageObservation, authExpected bool) Verdict {
	if obs == nil {
		return Verdict{Status: entity.StepInconclusive, Method: "none", Reason: "no page observation"}
	}

	// Auth and captcha walls are barriers, not defects.
	if !authExpected {
		if obs.HasCaptcha {
			return Verdict{Status: entity.StepBlocked, Method: "barrier", Reason: "captcha challenge shown"}
		}
		if obs.LoginFormVisible && step.Action != entity.ActionNavigate {
			return Verdict{Status: entity.StepBlocked, Method: "barrier", Reason: "login required"}
		}
	}

	if step.URLHint != "" {
		if urlMatchesHint(obs.URL, step.URLHint) {
			return Verdict{Status: entity.StepPassed, Method: "url", Reason: "landed on expected url"}
		}
		if step.Action == entity.ActionNavigate {
			return Verdict{Status: entity.StepFailed, Method: "url", Reason: "landed on " + obs.URL}
		}
	}

	if step.Action == entity.ActionSearch {
		switch {
		case obs.ResultCount > 0:
			return Verdict{Status: entity.StepPassed, Method: "results", Reason: "results listed"}
		case obs.NoResultsText:
			return Verdict{Status: entity.StepFailed, Method: "results", Reason: "search returned no results for a common query"}
		case obs.WordCount < 30:
			return Verdict{Status: entity.StepFailed, Method: "results", Reason: "search produced a near-empty page"}
		}
	}

	if expectation := strings.ToLower(step.Verify); expectation != "" {
		if v, decided := checkExpectation(expectation, beforeURL, obs); decided {
			return v
		}
	}

	if strings.TrimSpace(obs.ErrorRegionText) != "" && step.Action == entity.ActionFillForm {
		// a visible validation message is a legitimate form response
		return Verdict{Status: entity.StepPassed, Method: "indicator", Reason: "validation message shown"}
	}

	return Verdict{Status: entity.StepInconclusive, Method: "none", Reason: "no deterministic signal"}
}

func checkExpectation(expectation, beforeURL string, obs *entity.PageObservation) (Verdict, bool) {
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(expectation, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("result", "listed", "products are"):
		if obs.ResultCount > 0 {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "results listed"}, true
		}
		if obs.NoResultsText {
			return Verdict{Status: entity.StepFailed, Method: "expectation", Reason: "explicit no-results state"}, true
		}
		return Verdict{Status: entity.StepFailed, Method: "expectation", Reason: "no results and no empty state"}, true

	case has("confirmation", "success", "thank"):
		if obs.SuccessText != "" {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "success indicator shown"}, true
		}
		if obs.ErrorRegionText != "" && has("validation") {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "validation message shown"}, true
		}
		return Verdict{}, false

	case has("logged in"):
		if !obs.LoginFormVisible {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "login form gone"}, true
		}
		if obs.ErrorRegionText != "" {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "credentials rejected with a clear message"}, true
		}
		return Verdict{}, false

	case has("validation"):
		if obs.SuccessText != "" || obs.ErrorRegionText != "" {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "form responded visibly"}, true
		}
		return Verdict{}, false

	case has("without error", "no error"):
		if strings.TrimSpace(obs.ErrorRegionText) != "" {
			return Verdict{Status: entity.StepFailed, Method: "expectation", Reason: "error region: " + obs.ErrorRegionText}, true
		}
		if obs.WordCount > 30 {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "page rendered cleanly"}, true
		}
		return Verdict{}, false

	case has("content", "renders", "loads"):
		if obs.WordCount > 50 {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "substantial content rendered"}, true
		}
		if obs.WordCount < 10 {
			return Verdict{Status: entity.StepFailed, Method: "expectation", Reason: "page is effectively empty"}, true
		}
		return Verdict{}, false

	case has("detail", "opens", "deep"):
		if obs.URL != beforeURL {
			return Verdict{Status: entity.StepPassed, Method: "expectation", Reason: "navigated to a new page"}, true
		}
		return Verdict{}, false
	}

	return Verdict{}, false
}

// urlMatchesHint tolerates partial hints: a hint of "/products" matches
// any URL whose path contains it.
func urlMatchesHint(actual, hint string) bool {
	a := strings.ToLower(strings.TrimRight(actual, "/"))
	h := strings.ToLower(strings.TrimRight(strings.TrimSpace(hint), "/"))
	if h == "" {
		return true
	}
	return strings.Contains(a, h) || strings.Contains(h, a)
}
