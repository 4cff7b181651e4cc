package executor

import (
	"strings"

	"siteqa/internal/domain/entity"
)

// Resolution is a resolved step target: which candidate and which
// strategy found it. Method values feed the step result so a report
// shows how each element was located.
type Resolution struct {
	Candidate entity.Candidate
	Method    string
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "on": {}, "in": {},
	"for": {}, "of": {}, "with": {}, "page": {}, "main": {},
}

// ResolveHeuristic runs the deterministic strategy ladder over the
// candidate list. Strategies are ordered most-specific first; the first
// one with a confident match wins. Returns false when nothing matches,
// which is the cue to consult the advisory resolver.
func ResolveHeuristic(target string, candidates []entity.Candidate) (Resolution, bool) {
	tokens := tokenize(target)
	if len(tokens) == 0 || len(candidates) == 0 {
		return Resolution{}, false
	}

	type strategy struct {
		name  string
		match func([]string, entity.Candidate) int
	}
	strategies := []strategy{
		{"testid", matchTestID},
		{"aria", matchAria},
		{"text", matchText},
		{"attr", matchAttr},
		{"role", matchRole},
		{"pattern", matchPattern},
	}

	for _, s := range strategies {
		bestIdx, bestScore := -1, 0
		for idx, c := range candidates {
			if score := s.match(tokens, c); score > bestScore {
				bestIdx, bestScore = idx, score
			}
		}
		if bestIdx >= 0 {
			return Resolution{Candidate: candidates[bestIdx], Method: s.name}, true
		}
	}
	return Resolution{}, false
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func countContained(haystack string, tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			n++
		}
	}
	return n
}

func matchTestID(tokens []string, c entity.Candidate) int {
	if c.TestID == "" {
		return 0
	}
	return countContained(strings.ToLower(c.TestID), tokens) * 2
}

func matchAria(tokens []string, c entity.Candidate) int {
	if c.AriaLabel == "" {
		return 0
	}
	return countContained(strings.ToLower(c.AriaLabel), tokens)
}

func matchText(tokens []string, c entity.Candidate) int {
	if c.Text == "" {
		return 0
	}
	text := strings.ToLower(c.Text)
	score := countContained(text, tokens)
	// full-phrase hit outranks scattered token hits
	if strings.Contains(text, strings.Join(tokens, " ")) {
		score += len(tokens)
	}
	return score
}

func matchAttr(tokens []string, c entity.Candidate) int {
	attrs := strings.ToLower(c.Name + " " + c.ID + " " + c.Placeholder)
	if strings.TrimSpace(attrs) == "" {
		return 0
	}
	return countContained(attrs, tokens)
}

// matchRole maps descriptive targets onto element kinds: "search box"
// finds the search input even when no attribute mentions searching.
func matchRole(tokens []string, c entity.Candidate) int {
	for _, t := range tokens {
		switch t {
		case "search":
			if c.Type == "search" || c.SemRole == "searchbox" {
				return 2
			}
		case "submit":
			if c.Type == "submit" {
				return 2
			}
		case "password":
			if c.Type == "password" {
				return 2
			}
		case "email":
			if c.Type == "email" {
				return 2
			}
		case "button":
			if c.Tag == "button" || c.SemRole == "button" {
				return 1
			}
		case "link":
			if c.Tag == "a" {
				return 1
			}
		case "form":
			if c.Tag == "form" {
				return 1
			}
		case "checkbox":
			if c.Type == "checkbox" {
				return 2
			}
		}
	}
	return 0
}

// patternSynonyms catch common intents phrased differently from the
// page's own wording.
var patternSynonyms = map[string][]string{
	"cart":     {"cart", "basket", "bag"},
	"login":    {"login", "log in", "sign in", "signin"},
	"signup":   {"signup", "sign up", "register", "create account"},
	"checkout": {"checkout", "check out", "pay"},
	"buy":      {"buy", "purchase", "order"},
	"submit":   {"submit", "send", "go"},
	"menu":     {"menu", "navigation", "hamburger"},
	"first":    {}, // positional, handled below
}

func matchPattern(tokens []string, c entity.Candidate) int {
	label := strings.ToLower(c.Text + " " + c.AriaLabel + " " + c.ID + " " + c.TestID)
	for _, t := range tokens {
		synonyms, ok := patternSynonyms[t]
		if !ok {
			continue
		}
		for _, syn := range synonyms {
			if strings.Contains(label, syn) {
				return 1
			}
		}
	}
	// "first X" style targets: take the top candidate of the right kind
	if hasToken(tokens, "first") && c.Index == 0 && (c.Tag == "a" || c.Tag == "button") {
		return 1
	}
	return 0
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
