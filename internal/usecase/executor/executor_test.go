package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

// scriptedBrowser plays back a canned site for flow execution. Methods
// the executor must not touch stay on the embedded nil interface.
type scriptedBrowser struct {
	output.BrowserPort

	currentURL    string
	observations  map[string]*entity.PageObservation
	observeQueue  []*entity.PageObservation // consumed first when non-empty
	candidates    map[string][]entity.Candidate
	clickEffects  map[string]string // selector -> url it navigates to
	clickFailures map[string]int    // selector -> errors before it works
	fingerprints  []uint64          // consumed one per call, last repeats
	fpIdx         int

	candidateCalls int
	clicked        []string
	filled         map[string]string
	scrolledTop    bool
}

func (s *scriptedBrowser) Navigate(ctx context.Context, url string) (*entity.PageState, error) {
	s.currentURL = url
	return &entity.PageState{URL: url, Status: 200}, nil
}

func (s *scriptedBrowser) CurrentURL() string { return s.currentURL }

func (s *scriptedBrowser) Candidates(ctx context.Context, kind string) ([]entity.Candidate, error) {
	s.candidateCalls++
	return s.candidates[kind], nil
}

func (s *scriptedBrowser) Click(ctx context.Context, selector string) error {
	s.clicked = append(s.clicked, selector)
	if s.clickFailures[selector] > 0 {
		s.clickFailures[selector]--
		return errors.New("element not interactable: " + selector)
	}
	if url, ok := s.clickEffects[selector]; ok {
		s.currentURL = url
		return nil
	}
	return errors.New("element not found: " + selector)
}

func (s *scriptedBrowser) Fill(ctx context.Context, selector, text string) error {
	if s.filled == nil {
		s.filled = map[string]string{}
	}
	s.filled[selector] = text
	return nil
}

func (s *scriptedBrowser) Press(ctx context.Context, key string) error { return nil }

func (s *scriptedBrowser) Observe(ctx context.Context) (*entity.PageObservation, error) {
	if len(s.observeQueue) > 0 {
		obs := s.observeQueue[0]
		s.observeQueue = s.observeQueue[1:]
		return obs, nil
	}
	if obs, ok := s.observations[s.currentURL]; ok {
		return obs, nil
	}
	return &entity.PageObservation{URL: s.currentURL, WordCount: 200}, nil
}

func (s *scriptedBrowser) StateSnapshot(ctx context.Context) (*entity.StateSnapshot, error) {
	return &entity.StateSnapshot{URL: s.currentURL}, nil
}

func (s *scriptedBrowser) StructuralFingerprint(ctx context.Context) (*entity.DOMFingerprint, error) {
	hash := uint64(100 + s.fpIdx)
	if len(s.fingerprints) > 0 {
		idx := s.fpIdx
		if idx >= len(s.fingerprints) {
			idx = len(s.fingerprints) - 1
		}
		hash = s.fingerprints[idx]
	}
	s.fpIdx++
	return &entity.DOMFingerprint{Hash: hash}, nil
}

func (s *scriptedBrowser) DismissOverlays(ctx context.Context) (int, error) { return 0, nil }
func (s *scriptedBrowser) WaitStable(ctx context.Context) error             { return nil }

func (s *scriptedBrowser) ScrollTop(ctx context.Context) error {
	s.scrolledTop = true
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (l nopLogger) WithField(string, any) output.LoggerPort     { return l }
func (l nopLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                                  { return nil }

type stubAdvisory struct {
	resp  *output.AdvisoryResponse
	err   error
	calls int
}

func (s *stubAdvisory) Decide(ctx context.Context, req output.AdvisoryRequest) (*output.AdvisoryResponse, error) {
	s.calls++
	return s.resp, s.err
}

func newExecutor(t *testing.T, browser output.BrowserPort, advisory output.AdvisoryPort) *Executor {
	t.Helper()
	e, err := New(browser, advisory, nopLogger{}, DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestRunFlowNavigateAndVerifyPasses(t *testing.T) {
	browser := &scriptedBrowser{}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Browse the homepage", Priority: 2, Steps: []entity.FlowStep{
		{Action: entity.ActionNavigate, Target: "homepage", URLHint: "https://shop.test/"},
		{Action: entity.ActionVerify, Verify: "page renders with visible content and no error"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	assert.Equal(t, entity.FlowPassed, result.Status)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, entity.StepPassed, result.Steps[0].Status)
	assert.Equal(t, entity.StepPassed, result.Steps[1].Status)
	assert.False(t, result.Steps[0].AdvisoryUsed)
}

func TestRunFlowClickResolvesHeuristically(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/",
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "a", Text: "Products", Selector: "#products-link"},
		}},
		clickEffects: map[string]string{"#products-link": "https://shop.test/products"},
	}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Navigate to products", Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "products link", URLHint: "/products"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepPassed, result.Steps[0].Status)
	assert.Equal(t, "text", result.Steps[0].Method)
	assert.Equal(t, []string{"#products-link"}, browser.clicked)
}

func TestRunFlowAdvisoryResolvesWhenHeuristicsCannot(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/",
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "div", Text: "☰", Selector: "#cryptic-1"},
			{Index: 1, Tag: "div", Text: "◆", Selector: "#cryptic-2"},
		}},
		clickEffects: map[string]string{"#cryptic-2": "https://shop.test/deals"},
	}
	advisory := &stubAdvisory{resp: &output.AdvisoryResponse{CandidateIndex: 1}}
	e := newExecutor(t, browser, advisory)

	flow := entity.Flow{Name: "Open deals", Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "deals section", URLHint: "/deals"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepPassed, result.Steps[0].Status)
	assert.True(t, result.Steps[0].AdvisoryUsed)
	assert.Equal(t, 1, advisory.calls)
}

func TestRunFlowResolutionFailureFailsStep(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/",
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "div", Text: "☰", Selector: "#cryptic-1"},
		}},
	}
	advisory := &stubAdvisory{err: errors.New("timeout")}
	e := newExecutor(t, browser, advisory)

	flow := entity.Flow{Name: "Open deals", Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "deals section"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepFailed, result.Steps[0].Status)
	assert.Contains(t, result.Steps[0].Error, "could not resolve")
	assert.Equal(t, entity.FlowFailed, result.Status)
}

func TestRunFlowBlockedSkipsUntilNavigate(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/account",
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "a", Text: "Order history", Selector: "#orders"},
		}},
		clickEffects: map[string]string{"#orders": "https://shop.test/login"},
		observations: map[string]*entity.PageObservation{
			"https://shop.test/login": {URL: "https://shop.test/login", LoginFormVisible: true, WordCount: 80},
		},
	}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Check orders", Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "order history link"},
		{Action: entity.ActionClick, Target: "first order"},
		{Action: entity.ActionNavigate, Target: "homepage", URLHint: "https://shop.test/"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 3)
	assert.Equal(t, entity.StepBlocked, result.Steps[0].Status)
	assert.Equal(t, entity.StepSkipped, result.Steps[1].Status)
	assert.Equal(t, entity.StepPassed, result.Steps[2].Status)
	assert.NotEqual(t, entity.FlowFailed, result.Status)
}

func TestRunFlowHaltsAtFirstFailedStep(t *testing.T) {
	browser := &scriptedBrowser{currentURL: "https://shop.test/checkout"}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Check out", Priority: 1, Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "place order button"},
		{Action: entity.ActionNavigate, Target: "homepage", URLHint: "https://shop.test/"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "ecommerce", "g1")

	// the second step must never run
	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepFailed, result.Steps[0].Status)
	assert.Equal(t, entity.FlowFailed, result.Status)
	assert.Equal(t, "https://shop.test/checkout", browser.currentURL)
}

func TestRunFlowLoopGuardAborts(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL:   "https://shop.test/",
		fingerprints: []uint64{7}, // frozen page structure
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "button", Text: "Load more", Selector: "#more"},
		}},
		clickEffects: map[string]string{"#more": "https://shop.test/"},
	}
	e := newExecutor(t, browser, nil)

	steps := make([]entity.FlowStep, 6)
	for i := range steps {
		steps[i] = entity.FlowStep{Action: entity.ActionClick, Target: "load more button"}
	}
	flow := entity.Flow{Name: "Load forever", Steps: steps}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	assert.Equal(t, entity.FlowError, result.Status)
	assert.Less(t, len(result.Steps), 6)
}

func TestRunFlowLoopGuardAbortsOnTwoCycle(t *testing.T) {
	// clicking bounces the page between two structures: the fingerprint
	// alternates, but each (url, structure) state keeps recurring
	fps := make([]uint64, 12)
	for i := range fps {
		fps[i] = uint64(7 + i%2)
	}
	browser := &scriptedBrowser{
		currentURL:   "https://shop.test/",
		fingerprints: fps,
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "button", Text: "Next", Selector: "#next"},
		}},
		clickEffects: map[string]string{"#next": "https://shop.test/"},
	}
	e := newExecutor(t, browser, nil)

	steps := make([]entity.FlowStep, 10)
	for i := range steps {
		steps[i] = entity.FlowStep{Action: entity.ActionClick, Target: "next button"}
	}
	flow := entity.Flow{Name: "Page forever", Steps: steps}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	assert.Equal(t, entity.FlowError, result.Status)
	assert.Less(t, len(result.Steps), 10)
}

func TestRunFlowScrollRetriesFailedClick(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/",
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "a", Text: "Pricing", Selector: "#pricing-link"},
		}},
		clickEffects:  map[string]string{"#pricing-link": "https://shop.test/pricing"},
		clickFailures: map[string]int{"#pricing-link": 1},
	}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Open pricing", Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "pricing link", URLHint: "/pricing"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepPassed, result.Steps[0].Status)
	assert.True(t, browser.scrolledTop)
	assert.Equal(t, []string{"#pricing-link", "#pricing-link"}, browser.clicked)
}

func TestRunFlowReverifiesAfterLateRender(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/",
		observeQueue: []*entity.PageObservation{
			{URL: "https://shop.test/", WordCount: 5},
			{URL: "https://shop.test/", WordCount: 300},
		},
	}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Browse the homepage", Steps: []entity.FlowStep{
		{Action: entity.ActionVerify, Verify: "page renders with visible content"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepPassed, result.Steps[0].Status)
	assert.Equal(t, entity.FlowPassed, result.Status)
}

func TestRunFlowSelectorCacheReused(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/",
		candidates: map[string][]entity.Candidate{"clickable": {
			{Index: 0, Tag: "a", Text: "Products", Selector: "#products-link"},
		}},
		clickEffects: map[string]string{"#products-link": "https://shop.test/products"},
	}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Navigate to products", Steps: []entity.FlowStep{
		{Action: entity.ActionClick, Target: "products link", URLHint: "/products"},
	}}

	_ = e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")
	callsAfterFirst := browser.candidateCalls

	browser.currentURL = "https://shop.test/"
	second := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	assert.Equal(t, callsAfterFirst, browser.candidateCalls)
	assert.Equal(t, "cache", second.Steps[0].Method)
}

func TestRunFlowFillsFormWithClassifiedData(t *testing.T) {
	browser := &scriptedBrowser{
		currentURL: "https://shop.test/contact",
		candidates: map[string][]entity.Candidate{
			"fillable": {
				{Index: 0, Tag: "input", Type: "email", Name: "email", Selector: "#email"},
				{Index: 1, Tag: "textarea", Placeholder: "Your message", Selector: "#msg"},
			},
			"clickable": {
				{Index: 0, Tag: "button", Type: "submit", Text: "Send", Selector: "#send"},
			},
		},
		clickEffects: map[string]string{"#send": "https://shop.test/contact?sent=1"},
		observations: map[string]*entity.PageObservation{
			"https://shop.test/contact?sent=1": {URL: "https://shop.test/contact?sent=1", SuccessText: "Thanks!", WordCount: 90},
		},
	}
	e := newExecutor(t, browser, nil)

	flow := entity.Flow{Name: "Submit a form with test data", Steps: []entity.FlowStep{
		{Action: entity.ActionFillForm, Target: "main form", Verify: "a confirmation or validation message appears"},
	}}

	result := e.RunFlow(context.Background(), flow, "https://shop.test/", "generic", "g1")

	require.Len(t, result.Steps, 1)
	assert.Equal(t, entity.StepPassed, result.Steps[0].Status)
	assert.Contains(t, browser.filled["#email"], "@example.com")
	assert.NotEmpty(t, browser.filled["#msg"])
	assert.Equal(t, []string{"#send"}, browser.clicked)
}

func TestFlowStatusAggregation(t *testing.T) {
	passed := entity.FlowStepResult{Status: entity.StepPassed}
	failed := entity.FlowStepResult{Status: entity.StepFailed}
	blocked := entity.FlowStepResult{Status: entity.StepBlocked}

	assert.Equal(t, entity.FlowPassed, flowStatus([]entity.FlowStepResult{passed, passed}))
	assert.Equal(t, entity.FlowFailed, flowStatus([]entity.FlowStepResult{failed}))
	// execution halts at the first failure, so a later failed step means
	// earlier progress was real
	assert.Equal(t, entity.FlowPartial, flowStatus([]entity.FlowStepResult{passed, failed}))
	assert.Equal(t, entity.FlowPartial, flowStatus([]entity.FlowStepResult{passed, blocked}))
	assert.Equal(t, entity.FlowError, flowStatus(nil))
}
