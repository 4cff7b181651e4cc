// Package scan orchestrates a full site check: crawl the page graph,
// identify and execute user flows, run the detection tiers across
// viewports and fold everything into one result.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
	"siteqa/internal/usecase/crawler"
	"siteqa/internal/usecase/detect"
	"siteqa/internal/usecase/executor"
	"siteqa/internal/usecase/flows"
)

// BrowserFactory opens a fresh browser session for one viewport.
type BrowserFactory func(ctx context.Context, vp entity.Viewport) (output.BrowserPort, error)

type Config struct {
	Crawl        crawler.Config
	Executor     executor.Config
	Viewports    []entity.Viewport
	ReviewBudget int
	MaxFlows     int
	RecheckPages int // pages re-opened per extra viewport for detection
}

func DefaultConfig() Config {
	return Config{
		Crawl:        crawler.DefaultConfig(),
		Executor:     executor.DefaultConfig(),
		Viewports:    []entity.Viewport{entity.ViewportDesktop, entity.ViewportMobile},
		ReviewBudget: 5,
		MaxFlows:     8,
		RecheckPages: 10,
	}
}

type Scanner struct {
	newBrowser BrowserFactory
	advisory   output.AdvisoryPort
	logger     output.LoggerPort
	cfg        Config
}

func NewScanner(newBrowser BrowserFactory, advisory output.AdvisoryPort, logger output.LoggerPort, cfg Config) *Scanner {
	if len(cfg.Viewports) == 0 {
		cfg.Viewports = DefaultConfig().Viewports
	}
	if cfg.RecheckPages <= 0 {
		cfg.RecheckPages = DefaultConfig().RecheckPages
	}
	if cfg.MaxFlows <= 0 {
		cfg.MaxFlows = DefaultConfig().MaxFlows
	}
	return &Scanner{
		newBrowser: newBrowser,
		advisory:   advisory,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run performs one complete scan. Partial failure is the normal case:
// broken pages, dead flows and advisory outages all land in the result
// instead of aborting it.
func (s *Scanner) Run(ctx context.Context, targetURL string) (*entity.CrawlResult, error) {
	scanID := uuid.NewString()
	log := s.logger.WithField("scanId", scanID)
	result := &entity.CrawlResult{
		URL:       targetURL,
		ScanID:    scanID,
		StartedAt: time.Now(),
	}

	registry := detect.NewRegistry()

	primary := s.cfg.Viewports[0]
	browser, err := s.newBrowser(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer browser.Close()

	functional := detect.NewFunctionalDetector(registry, primary.Name)
	browser.SetEventSink(functional.HandleEvent)

	// 1. crawl; a deadline mid-crawl still yields the partial graph
	graph, err := crawler.NewBuilder(browser, log, s.cfg.Crawl).Build(ctx, targetURL)
	if err != nil {
		if graph == nil || len(graph.Nodes) == 0 {
			return nil, fmt.Errorf("crawl: %w", err)
		}
		log.Warn("crawl ended early", "error", err, "pages", len(graph.Nodes))
		result.Errors = append(result.Errors, "crawl ended early: "+err.Error())
	}
	for url, node := range graph.Nodes {
		if node.Status == entity.NodeVisited {
			result.PagesVisited = append(result.PagesVisited, url)
		} else if node.Status == entity.NodeFailed {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", url, node.FailReason))
		}
	}

	siteType := flows.DetectSiteType(graph)
	log.Info("site classified", "type", siteType, "pages", len(result.PagesVisited))

	// 2. per-page detection on the primary viewport
	thresholds := detect.NewThresholdDetector(registry, primary.Name, primary.Mobile)
	reviewer := detect.NewAdvisoryReviewer(s.advisory, registry, log, s.cfg.ReviewBudget)
	s.inspectPages(ctx, browser, primary.Name, graph, thresholds, functional, reviewer, result)

	// 3. identify and execute flows
	identifier, err := flows.NewIdentifier(s.advisory, log)
	if err != nil {
		return nil, err
	}
	flowList := identifier.Identify(ctx, graph, siteType)
	if len(flowList) > s.cfg.MaxFlows {
		flowList = flowList[:s.cfg.MaxFlows]
	}

	exec, err := executor.New(browser, s.advisory, log, s.cfg.Executor)
	if err != nil {
		return nil, err
	}
	graphKey := fmt.Sprintf("%s-%d", graph.RootURL, len(graph.Nodes))
	for _, flow := range flowList {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "scan deadline reached before flow "+flow.Name)
			break
		}
		fr := exec.RunFlow(ctx, flow, graph.RootURL, siteType, graphKey)
		result.Flows = append(result.Flows, *fr)
		s.flowFindings(registry, fr, primary.Name)
	}

	// 4. extra viewports re-check a slice of the visited pages
	if len(s.cfg.Viewports) > 1 && len(result.PagesVisited) > 0 && ctx.Err() == nil {
		s.recheckViewports(ctx, graph, registry, result)
	}

	result.Findings = registry.Findings()
	result.AdvisoryFindings = registry.AdvisoryFindings()
	result.HealthScore = registry.HealthScore()
	result.PagesTested = len(result.PagesVisited)
	result.CompletedAt = time.Now()

	log.Info("scan finished",
		"findings", len(result.Findings),
		"advisoryFindings", len(result.AdvisoryFindings),
		"healthScore", result.HealthScore,
		"flows", len(result.Flows),
	)
	return result, nil
}

// inspectPages runs probe, metrics and advisory review over the visited
// part of the graph with the session that crawled it.
func (s *Scanner) inspectPages(ctx context.Context, browser output.BrowserPort, viewport string, graph *entity.SiteGraph, thresholds *detect.ThresholdDetector, functional *detect.FunctionalDetector, reviewer *detect.AdvisoryReviewer, result *entity.CrawlResult) {
	inspected := 0
	for _, node := range graph.Visited() {
		if ctx.Err() != nil {
			return
		}
		if node.Synthetic {
			continue
		}
		if inspected >= s.cfg.RecheckPages {
			break
		}
		inspected++

		if _, err := browser.Navigate(ctx, node.URL); err != nil {
			continue
		}
		_ = browser.WaitStable(ctx)

		if probe, err := browser.Probe(ctx); err == nil {
			functional.CheckProbe(probe)
			thresholds.CheckProbe(probe)
		}
		if metrics, err := browser.Metrics(ctx); err == nil {
			metrics.Viewport = viewport
			node.Metrics = metrics
			result.Metrics = append(result.Metrics, *metrics)
			thresholds.CheckMetrics(metrics)
		}
		if reviewer.Remaining() > 0 {
			if shot, err := browser.Screenshot(ctx); err == nil {
				reviewer.Review(ctx, node.URL, viewport, shot)
			}
		}
	}
}

// recheckViewports opens one session per extra viewport and replays the
// top visited pages through the detection tiers. Sessions run in
// parallel; each keeps its own registry locks.
func (s *Scanner) recheckViewports(ctx context.Context, graph *entity.SiteGraph, registry *detect.Registry, result *entity.CrawlResult) {
	pages := make([]string, 0, s.cfg.RecheckPages)
	for _, node := range graph.Visited() {
		if node.Synthetic {
			continue
		}
		pages = append(pages, node.URL)
		if len(pages) >= s.cfg.RecheckPages {
			break
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	metricsCh := make(chan entity.PageMetrics, len(pages)*len(s.cfg.Viewports))

	for _, vp := range s.cfg.Viewports[1:] {
		vp := vp
		g.Go(func() error {
			browser, err := s.newBrowser(gctx, vp)
			if err != nil {
				s.logger.Warn("viewport session failed", "viewport", vp.Name, "error", err)
				return nil
			}
			defer browser.Close()

			functional := detect.NewFunctionalDetector(registry, vp.Name)
			browser.SetEventSink(functional.HandleEvent)
			thresholds := detect.NewThresholdDetector(registry, vp.Name, vp.Mobile)

			for _, url := range pages {
				if gctx.Err() != nil {
					return nil
				}
				if _, err := browser.Navigate(gctx, url); err != nil {
					continue
				}
				_ = browser.WaitStable(gctx)

				if probe, err := browser.Probe(gctx); err == nil {
					functional.CheckProbe(probe)
					thresholds.CheckProbe(probe)
				}
				if metrics, err := browser.Metrics(gctx); err == nil {
					metrics.Viewport = vp.Name
					metricsCh <- *metrics
					thresholds.CheckMetrics(metrics)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	close(metricsCh)
	for m := range metricsCh {
		result.Metrics = append(result.Metrics, m)
	}
}

// flowFindings raises defects for flows that failed outright. Blocked
// and partial journeys are results, not bugs.
func (s *Scanner) flowFindings(registry *detect.Registry, fr *entity.FlowResult, viewport string) {
	if fr.Status != entity.FlowFailed {
		return
	}
	for _, step := range fr.Steps {
		if step.Status != entity.StepFailed {
			continue
		}
		severity := entity.SeverityP2
		if fr.Flow.Priority == 1 {
			severity = entity.SeverityP1
		}
		registry.Add(entity.BugFinding{
			Title:       fmt.Sprintf("User flow broken: %s", fr.Flow.Name),
			Category:    entity.CategoryFunctional,
			Severity:    severity,
			Confidence:  entity.ConfidenceHigh,
			PageURL:     step.ActualURL,
			Viewport:    viewport,
			Description: fmt.Sprintf("step %q %s: %s", step.Step.Target, step.Status, step.Error),
			Evidence: map[string]any{
				"flow":     fr.Flow.Name,
				"priority": fr.Flow.Priority,
				"step":     step.Step.Target,
				"action":   string(step.Step.Action),
			},
		})
		break
	}
}
