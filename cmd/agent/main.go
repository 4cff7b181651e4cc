package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"siteqa/internal/di"
	"siteqa/internal/infrastructure/env"
)

func main() {
	envService := env.NewEnvService()

	targetURL := ""
	if len(os.Args) > 1 {
		targetURL = strings.TrimSpace(os.Args[1])
	}
	if targetURL == "" {
		fmt.Println("\nEnter the site URL to scan:")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Fatal("failed to read input: ", err)
		}
		targetURL = strings.TrimSpace(input)
	}
	if !strings.Contains(targetURL, "://") {
		targetURL = "https://" + targetURL
	}

	timeout := envService.GetDuration("SCAN_TIMEOUT", 30*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	container, err := di.NewContainer(ctx, di.Config{
		TargetURL:        targetURL,
		AdvisoryProvider: envService.GetWithDefault("ADVISORY_PROVIDER", "openrouter"),
		OpenRouterAPIKey: envService.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:  envService.Get("OPENROUTER_MODEL_NAME"),
		AnthropicAPIKey:  envService.Get("ANTHROPIC_API_KEY"),
		AnthropicModel:   envService.Get("ANTHROPIC_MODEL_NAME"),
		BrowserHeadless:  envService.GetBool("HEADLESS", true),
		Debug:            envService.GetBool("DEBUG", false),
		MaxPages:         envService.GetInt("MAX_PAGES", 0),
		MaxDepth:         envService.GetInt("MAX_DEPTH", 0),
		ReviewBudget:     envService.GetInt("REVIEW_BUDGET", 0),
		ScreenshotDir:    envService.GetWithDefault("SCREENSHOT_DIR", "screenshots"),
		SPAThreshold:     envService.GetFloat("SPA_HASH_DELTA", 0),
		LoopLimit:        envService.GetInt("LOOP_REPEAT_LIMIT", 0),
	})
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer container.Close()

	container.Logger.Info("Scan started", "url", targetURL)
	fmt.Printf("\nScanning %s ...\n", targetURL)

	result, err := container.Scanner.Run(ctx, targetURL)
	if err != nil {
		container.Logger.Error("Scan failed", "error", err)
		fmt.Printf("\nscan failed: %v\n", err)
		os.Exit(1)
	}

	reportPath := fmt.Sprintf("report_%s.json", result.ScanID)
	if data, err := json.MarshalIndent(result, "", "  "); err == nil {
		if err := os.WriteFile(reportPath, data, 0644); err != nil {
			container.Logger.Error("Failed to write report", "path", reportPath, "error", err)
		}
	}

	container.Logger.Info("Scan completed",
		"pages", result.PagesTested,
		"findings", len(result.Findings),
		"healthScore", result.HealthScore,
	)

	fmt.Printf("\nHealth score: %d/100\n", result.HealthScore)
	fmt.Printf("Pages tested: %d\n", result.PagesTested)
	fmt.Printf("Findings: %d (+%d advisory)\n", len(result.Findings), len(result.AdvisoryFindings))
	for _, f := range result.Findings {
		fmt.Printf("  [%s] %s (%s)\n", f.Severity, f.Title, f.PageURL)
	}
	fmt.Printf("Flows: %d\n", len(result.Flows))
	for _, fr := range result.Flows {
		fmt.Printf("  %-8s %s\n", fr.Status, fr.Flow.Name)
	}
	fmt.Printf("\nFull report: %s\n", reportPath)
}
