// Package detect turns raw page signals into deduplicated bug findings.
// Detection runs in three tiers: deterministic event facts (HIGH),
// threshold judgments over measurements (MEDIUM) and bounded advisory
// review (LOW). Advisory results never mix into the deterministic list.
package detect

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"siteqa/internal/domain/entity"
)

// Registry collects findings for one scan, collapsing repeats by
// fingerprint. Safe for concurrent use; viewport runs feed it in
// parallel.
type Registry struct {
	mu       sync.Mutex
	seen     map[string]int // fingerprint -> index into findings
	findings []entity.BugFinding
	advisory []entity.BugFinding
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]int)}
}

// Add records a finding unless an equivalent one exists. When a repeat
// carries a higher severity, the kept finding is upgraded in place.
func (r *Registry) Add(f entity.BugFinding) bool {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.DetectedAt.IsZero() {
		f.DetectedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fp := f.Fingerprint()
	if idx, ok := r.seen[fp]; ok {
		if entity.MoreSevere(f.Severity, r.findings[idx].Severity) {
			r.findings[idx].Severity = f.Severity
		}
		return false
	}
	r.seen[fp] = len(r.findings)
	r.findings = append(r.findings, f)
	return true
}

// AddAdvisory records a low-confidence suspicion. Kept apart from the
// deterministic findings and never deduplicated against them.
func (r *Registry) AddAdvisory(f entity.BugFinding) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.DetectedAt.IsZero() {
		f.DetectedAt = time.Now()
	}
	f.Confidence = entity.ConfidenceLow

	r.mu.Lock()
	defer r.mu.Unlock()
	r.advisory = append(r.advisory, f)
}

// Findings returns the deterministic findings, most severe first.
func (r *Registry) Findings() []entity.BugFinding {
	r.mu.Lock()
	out := append([]entity.BugFinding(nil), r.findings...)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return entity.MoreSevere(out[i].Severity, out[j].Severity)
	})
	return out
}

// AdvisoryFindings returns the low-confidence suspicions.
func (r *Registry) AdvisoryFindings() []entity.BugFinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.BugFinding(nil), r.advisory...)
}

// HealthScore folds deterministic findings into a 0-100 site score.
// Advisory suspicions deliberately do not move the score.
func (r *Registry) HealthScore() int {
	penalties := map[entity.Severity]int{
		entity.SeverityP0: 25,
		entity.SeverityP1: 15,
		entity.SeverityP2: 8,
		entity.SeverityP3: 3,
		entity.SeverityP4: 1,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	score := 100
	for _, f := range r.findings {
		score -= penalties[f.Severity]
	}
	if score < 0 {
		score = 0
	}
	return score
}
