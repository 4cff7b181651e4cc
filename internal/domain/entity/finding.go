package entity

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the defect impact scale, most critical first.
type Severity string

const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
	SeverityP4 Severity = "P4"
)

// Category classifies what kind of defect a finding describes.
type Category string

const (
	CategoryFunctional    Category = "functional"
	CategoryVisual        Category = "visual"
	CategoryResponsive    Category = "responsive"
	CategoryPerformance   Category = "performance"
	CategoryAccessibility Category = "accessibility"
	CategorySecurity      Category = "security"
)

// Confidence expresses how likely a finding is a true defect.
// HIGH findings are deterministic facts; LOW findings are advisory
// suspicions and are never merged into the primary defect count.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// BugFinding is one observed defect. Immutable after creation; repeated
// observations collapse onto the same finding via Fingerprint.
type BugFinding struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Category    Category       `json:"category"`
	Severity    Severity       `json:"severity"`
	Confidence  Confidence     `json:"confidence"`
	PageURL     string         `json:"page_url"`
	Viewport    string         `json:"viewport"`
	Description string         `json:"description,omitempty"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	DetectedAt  time.Time      `json:"detected_at"`
}

// Fingerprint is the stable dedup key: category + page + normalized title.
func (b BugFinding) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s", b.Category, b.PageURL, normalizeTitle(b.Title))
}

func normalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	return strings.Join(strings.Fields(t), " ")
}

// severityRank orders severities for sorting and max-severity lookups.
var severityRank = map[Severity]int{
	SeverityP0: 0,
	SeverityP1: 1,
	SeverityP2: 2,
	SeverityP3: 3,
	SeverityP4: 4,
}

// MoreSevere reports whether a outranks b.
func MoreSevere(a, b Severity) bool {
	ra, ok := severityRank[a]
	if !ok {
		ra = len(severityRank)
	}
	rb, ok := severityRank[b]
	if !ok {
		rb = len(severityRank)
	}
	return ra < rb
}
