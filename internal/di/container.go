package di

import (
	"context"
	"fmt"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
	"siteqa/internal/infrastructure/browser/rod"
	"siteqa/internal/infrastructure/llm/anthropic"
	"siteqa/internal/infrastructure/llm/openrouter"
	"siteqa/internal/infrastructure/logger"
	"siteqa/internal/usecase/scan"
)

type Container struct {
	Advisory output.AdvisoryPort
	Logger   output.LoggerPort
	Scanner  *scan.Scanner
}

type Config struct {
	TargetURL string

	// AdvisoryProvider selects the model backend: "openrouter" (default)
	// or "anthropic".
	AdvisoryProvider string
	OpenRouterAPIKey string
	OpenRouterModel  string
	AnthropicAPIKey  string
	AnthropicModel   string

	BrowserHeadless bool
	Debug           bool

	MaxPages      int
	MaxDepth      int
	ReviewBudget  int
	ScreenshotDir string

	// SPAThreshold is the structural-change fraction above which a
	// same-URL transition counts as a new view; LoopLimit is how many
	// frozen-structure steps a flow survives before it is aborted.
	// Zero keeps the defaults.
	SPAThreshold float64
	LoopLimit    int
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log, err := logger.NewZapLogger(cfg.TargetURL, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	advisory, err := newAdvisory(cfg, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.BrowserHeadless
	factory := func(ctx context.Context, vp entity.Viewport) (output.BrowserPort, error) {
		browser, err := rod.NewBrowserAdapter(ctx, browserCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser: %w", err)
		}
		if err := browser.SetViewport(ctx, vp); err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to set %s viewport: %w", vp.Name, err)
		}
		return browser, nil
	}

	scanCfg := scan.DefaultConfig()
	if cfg.MaxPages > 0 {
		scanCfg.Crawl.MaxPages = cfg.MaxPages
	}
	if cfg.MaxDepth > 0 {
		scanCfg.Crawl.MaxDepth = cfg.MaxDepth
	}
	if cfg.ReviewBudget > 0 {
		scanCfg.ReviewBudget = cfg.ReviewBudget
	}
	if cfg.SPAThreshold > 0 {
		scanCfg.Crawl.SPAThreshold = cfg.SPAThreshold
	}
	if cfg.LoopLimit > 0 {
		scanCfg.Executor.LoopLimit = cfg.LoopLimit
	}
	scanCfg.Executor.ScreenshotDir = cfg.ScreenshotDir

	return &Container{
		Advisory: advisory,
		Logger:   log,
		Scanner:  scan.NewScanner(factory, advisory, log, scanCfg),
	}, nil
}

func newAdvisory(cfg Config, log output.LoggerPort) (output.AdvisoryPort, error) {
	switch cfg.AdvisoryProvider {
	case "anthropic":
		adapter, err := anthropic.NewAnthropicAdapter(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		return adapter, nil
	case "openrouter", "":
		llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		llmCfg.Logger = log
		return openrouter.NewOpenRouterAdapter(llmCfg), nil
	default:
		return nil, fmt.Errorf("unknown advisory provider %q", cfg.AdvisoryProvider)
	}
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
