package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
)

// Config bounds flow execution. LoopLimit caps how many times one
// (url, structure) page state may recur within a flow before the flow
// is aborted as looping.
type Config struct {
	StepTimeout   time.Duration
	ScreenshotDir string
	LoopLimit     int
}

func DefaultConfig() Config {
	return Config{
		StepTimeout: 30 * time.Second,
		LoopLimit:   3,
	}
}

// Executor runs identified flows step by step against a live browser.
type Executor struct {
	browser  output.BrowserPort
	advisory output.AdvisoryPort
	logger   output.LoggerPort
	cfg      Config

	// selectors remembers which selector resolved a given step of a
	// given flow on a given graph, so re-runs act on the same element.
	selectors *lru.Cache[string, string]
}

func New(browser output.BrowserPort, advisory output.AdvisoryPort, logger output.LoggerPort, cfg Config) (*Executor, error) {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultConfig().StepTimeout
	}
	if cfg.LoopLimit <= 0 {
		cfg.LoopLimit = DefaultConfig().LoopLimit
	}
	selectors, err := lru.New[string, string](512)
	if err != nil {
		return nil, fmt.Errorf("selector cache: %w", err)
	}
	return &Executor{
		browser:   browser,
		advisory:  advisory,
		logger:    logger,
		cfg:       cfg,
		selectors: selectors,
	}, nil
}

// RunFlow executes one flow and never returns an error: every internal
// failure lands in the result so one broken flow cannot end a scan.
func (e *Executor) RunFlow(ctx context.Context, flow entity.Flow, rootURL, siteType, graphKey string) *entity.FlowResult {
	start := time.Now()
	log := e.logger.WithField("flow", flow.Name)
	log.Info("flow started", "steps", len(flow.Steps), "priority", flow.Priority)

	data := NewTestData(siteType)
	fctx := entity.NewFlowContext(siteType)
	authExpected := requiresAuth(flow)

	result := &entity.FlowResult{Flow: flow, Status: entity.FlowPassed}

	stateSeen := map[string]int{}
	blocked := false

	for idx, step := range flow.Steps {
		if blocked && step.Action != entity.ActionNavigate {
			result.Steps = append(result.Steps, entity.FlowStepResult{
				Step: step, Status: entity.StepSkipped, Error: "previous step blocked",
			})
			continue
		}
		blocked = false

		stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
		stepResult := e.runStep(stepCtx, step, idx, flow, rootURL, graphKey, data, fctx, authExpected)
		cancel()

		result.Steps = append(result.Steps, *stepResult)

		switch stepResult.Status {
		case entity.StepPassed:
			fctx.StepsCompleted++
		case entity.StepFailed:
			fctx.StepsFailed++
		case entity.StepBlocked:
			blocked = true
		}

		if ctx.Err() != nil {
			result.Status = entity.FlowError
			break
		}

		// halt at the first failed or undecidable step, no skipping ahead
		if stepResult.Status == entity.StepFailed || stepResult.Status == entity.StepInconclusive {
			break
		}

		// loop guard: revisiting the same (url, structure) state again
		// and again means the flow is going in circles
		if fp, err := e.browser.StructuralFingerprint(ctx); err == nil {
			state := fmt.Sprintf("%s|%x", e.browser.CurrentURL(), fp.Hash)
			stateSeen[state]++
			if stateSeen[state] > e.cfg.LoopLimit {
				log.Warn("flow aborted, page state recurring", "step", idx)
				result.Status = entity.FlowError
				result.Steps[len(result.Steps)-1].Error = "aborted: same page state recurring across steps"
				break
			}
		}
	}

	if result.Status != entity.FlowError {
		result.Status = flowStatus(result.Steps)
	}
	result.DurationMillis = time.Since(start).Milliseconds()
	result.ContextSummary = fctx.Summary()

	log.Info("flow finished", "status", string(result.Status), "durationMs", result.DurationMillis)
	return result
}

func (e *Executor) runStep(ctx context.Context, step entity.FlowStep, idx int, flow entity.Flow, rootURL, graphKey string, data *TestData, fctx *entity.FlowContext, authExpected bool) *entity.FlowStepResult {
	res := &entity.FlowStepResult{Step: step}

	before, _ := e.browser.StateSnapshot(ctx)
	beforeURL := e.browser.CurrentURL()

	var actErr error
	switch step.Action {
	case entity.ActionNavigate:
		actErr = e.doNavigate(ctx, step, rootURL, fctx)
	case entity.ActionClick:
		actErr = e.doClick(ctx, step, idx, flow, graphKey, res)
	case entity.ActionSearch:
		actErr = e.doSearch(ctx, step, idx, flow, graphKey, data, fctx, res)
	case entity.ActionFillForm:
		actErr = e.fillForm(ctx, data, fctx, res)
	case entity.ActionVerify:
		// verification-only step, no interaction
	default:
		actErr = fmt.Errorf("unknown action %q", step.Action)
	}

	res.ActualURL = e.browser.CurrentURL()

	if actErr != nil {
		res.Status = entity.StepFailed
		res.Error = actErr.Error()
		res.ScreenshotRef = e.captureFailure(ctx, flow.Name, idx)
		return res
	}

	obs, _ := e.browser.Observe(ctx)
	verdict := VerifyStep(step, beforeURL, obs, authExpected)

	if verdict.Status == entity.StepFailed {
		// slow pages can render past the first settle; look again before
		// trusting a failure
		_ = e.browser.WaitStable(ctx)
		if again, oerr := e.browser.Observe(ctx); oerr == nil {
			if v := VerifyStep(step, beforeURL, again, authExpected); v.Status != entity.StepFailed {
				obs, verdict = again, v
			}
		}
	}

	if verdict.Status == entity.StepInconclusive && step.Verify != "" {
		verdict = e.advisoryVerdict(ctx, step, obs, verdict)
		res.AdvisoryUsed = verdict.Method == "advisory"
	}
	if verdict.Status == entity.StepInconclusive && step.Verify == "" {
		// an action that ran without error and with nothing to verify
		verdict = Verdict{Status: entity.StepPassed, Method: "action", Reason: "action completed"}
	}

	res.Status = verdict.Status
	if res.Method == "" {
		res.Method = verdict.Method
	}
	if verdict.Status == entity.StepFailed {
		res.Error = verdict.Reason
		res.ScreenshotRef = e.captureFailure(ctx, flow.Name, idx)
	}

	if after, err := e.browser.StateSnapshot(ctx); err == nil && before != nil {
		change := entity.DiffSnapshots(*before, *after)
		fctx.RecordChange(*after, change)
		res.StateChanges = map[string]any{
			"url_changed":        change.URLChanged,
			"dom_changed":        change.DOMChanged,
			"new_console_errors": len(change.NewConsoleErrors),
			"new_network_errors": len(change.NewNetworkErrors),
			"cookies_added":      len(change.CookiesAdded),
		}
	}
	fctx.RecordNavigation(res.ActualURL)

	return res
}

func (e *Executor) doNavigate(ctx context.Context, step entity.FlowStep, rootURL string, fctx *entity.FlowContext) error {
	target := step.URLHint
	if target == "" || !strings.Contains(target, "://") {
		if strings.HasPrefix(target, "/") {
			target = strings.TrimRight(rootURL, "/") + target
		} else {
			target = rootURL
		}
	}
	if _, err := e.browser.Navigate(ctx, target); err != nil {
		return err
	}
	_, _ = e.browser.DismissOverlays(ctx)
	return e.browser.WaitStable(ctx)
}

func (e *Executor) doClick(ctx context.Context, step entity.FlowStep, idx int, flow entity.Flow, graphKey string, res *entity.FlowStepResult) error {
	selector, method, err := e.resolve(ctx, step.Target, "clickable", idx, flow, graphKey, res)
	if err != nil {
		return err
	}
	res.Method = method
	if err := e.browser.Click(ctx, selector); err != nil {
		// first rung: the element may sit outside the viewport
		_ = e.browser.ScrollTop(ctx)
		if rerr := e.browser.Click(ctx, selector); rerr == nil {
			return e.browser.WaitStable(ctx)
		}
		// second rung: an overlay may swallow the click, or the cached
		// selector went stale; clear both and resolve fresh once
		_, _ = e.browser.DismissOverlays(ctx)
		e.selectors.Remove(selectorKey(graphKey, flow.Name, idx))
		selector, method, rerr := e.resolve(ctx, step.Target, "clickable", idx, flow, graphKey, res)
		if rerr != nil {
			return err
		}
		res.Method = method
		if err := e.browser.Click(ctx, selector); err != nil {
			return err
		}
	}
	return e.browser.WaitStable(ctx)
}

func (e *Executor) doSearch(ctx context.Context, step entity.FlowStep, idx int, flow entity.Flow, graphKey string, data *TestData, fctx *entity.FlowContext, res *entity.FlowStepResult) error {
	selector, method, err := e.resolve(ctx, step.Target, "fillable", idx, flow, graphKey, res)
	if err != nil {
		return err
	}
	res.Method = method

	query := data.SearchQuery()
	fctx.SearchQueryUsed = query
	if err := e.browser.Fill(ctx, selector, query); err != nil {
		return err
	}
	if err := e.browser.Press(ctx, "enter"); err != nil {
		return err
	}
	return e.browser.WaitStable(ctx)
}

// resolve finds the selector for a step target: consistency cache, then
// the heuristic ladder, then the advisory index pick.
func (e *Executor) resolve(ctx context.Context, target, kind string, idx int, flow entity.Flow, graphKey string, res *entity.FlowStepResult) (string, string, error) {
	key := selectorKey(graphKey, flow.Name, idx)
	if cached, ok := e.selectors.Get(key); ok {
		return cached, "cache", nil
	}

	candidates, err := e.browser.Candidates(ctx, kind)
	if err != nil {
		return "", "", fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return "", "", fmt.Errorf("no %s elements on page", kind)
	}

	if r, ok := ResolveHeuristic(target, candidates); ok {
		e.selectors.Add(key, r.Candidate.Selector)
		return r.Candidate.Selector, r.Method, nil
	}

	if e.advisory != nil {
		resp, aerr := e.advisory.Decide(ctx, output.AdvisoryRequest{
			Task:            output.TaskResolveElement,
			StepDescription: target,
			Candidates:      candidates,
		})
		if aerr == nil && resp.CandidateIndex >= 0 {
			res.AdvisoryUsed = true
			chosen := candidates[resp.CandidateIndex]
			e.selectors.Add(key, chosen.Selector)
			return chosen.Selector, "advisory", nil
		}
		if aerr != nil {
			e.logger.Warn("advisory element resolution failed", "target", target, "error", aerr)
		}
	}

	return "", "", fmt.Errorf("could not resolve %q among %d candidates", target, len(candidates))
}

func (e *Executor) advisoryVerdict(ctx context.Context, step entity.FlowStep, obs *entity.PageObservation, fallback Verdict) Verdict {
	if e.advisory == nil || obs == nil {
		return fallback
	}
	resp, err := e.advisory.Decide(ctx, output.AdvisoryRequest{
		Task:            output.TaskVerifyOutcome,
		ExpectedOutcome: step.Verify,
		Observation:     obs,
	})
	if err != nil {
		e.logger.Warn("advisory verification failed", "error", err)
		return fallback
	}
	status := entity.StepPassed
	if !resp.OutcomeMet {
		status = entity.StepFailed
	}
	return Verdict{Status: status, Method: "advisory", Reason: resp.OutcomeReason}
}

func (e *Executor) captureFailure(ctx context.Context, flowName string, idx int) string {
	if e.cfg.ScreenshotDir == "" {
		return ""
	}
	shot, err := e.browser.Screenshot(ctx)
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(e.cfg.ScreenshotDir, 0755); err != nil {
		return ""
	}
	name := fmt.Sprintf("%s_step%d_%d.jpg", sanitizeName(flowName), idx, time.Now().UnixMilli())
	path := filepath.Join(e.cfg.ScreenshotDir, name)
	if err := os.WriteFile(path, shot.Data, 0644); err != nil {
		return ""
	}
	return path
}

func selectorKey(graphKey, flowName string, idx int) string {
	return fmt.Sprintf("%s|%s|%d", graphKey, flowName, idx)
}

func requiresAuth(flow entity.Flow) bool {
	for _, r := range flow.Requires {
		if strings.EqualFold(r, "requires-auth") {
			return true
		}
	}
	return false
}

// flowStatus folds step outcomes. Execution halts at the first failed
// step, so a failure is either the very first step (nothing worked) or
// came after real progress (partial).
func flowStatus(steps []entity.FlowStepResult) entity.FlowStatus {
	if len(steps) == 0 {
		return entity.FlowError
	}
	passed := 0
	for _, s := range steps {
		if s.Status == entity.StepPassed {
			passed++
		}
	}
	if passed == len(steps) {
		return entity.FlowPassed
	}
	if steps[0].Status == entity.StepFailed {
		return entity.FlowFailed
	}
	return entity.FlowPartial
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(s))
}
