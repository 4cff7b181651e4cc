package executor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// searchQueries are per-site-type query pools. Picked round-robin so
// repeated search flows in one scan do not hammer the same query.
var searchQueries = map[string][]string{
	"ecommerce": {"shoes", "shirt", "gift", "sale", "black"},
	"blog":      {"guide", "how to", "review", "2025", "tips"},
	"saas":      {"pricing", "api", "integration", "security", "export"},
	"docs":      {"install", "authentication", "configuration", "api", "quickstart"},
	"generic":   {"about", "help", "news", "info", "contact"},
}

// TestData produces plausible, clearly synthetic form values. Email
// addresses embed a fresh uuid fragment so repeated runs never collide
// on unique-email validation.
type TestData struct {
	siteType  string
	queryIdx  int
	lastEmail string
}

func NewTestData(siteType string) *TestData {
	if _, ok := searchQueries[siteType]; !ok {
		siteType = "generic"
	}
	return &TestData{siteType: siteType}
}

// SearchQuery returns the next query from the site type's pool.
func (t *TestData) SearchQuery() string {
	pool := searchQueries[t.siteType]
	q := pool[t.queryIdx%len(pool)]
	t.queryIdx++
	return q
}

// Email returns a unique throwaway address, stable within one flow so a
// confirm-email field can match.
func (t *TestData) Email() string {
	if t.lastEmail == "" {
		t.lastEmail = fmt.Sprintf("qa.test+%s@example.com", uuid.NewString()[:8])
	}
	return t.lastEmail
}

// ResetEmail starts a fresh identity for the next flow.
func (t *TestData) ResetEmail() { t.lastEmail = "" }

// ValueFor maps a classified field kind to a fill value.
func (t *TestData) ValueFor(kind string) string {
	switch strings.ToLower(kind) {
	case "email":
		return t.Email()
	case "password":
		return "Testing123!qa"
	case "name":
		return "Alex Tester"
	case "first_name":
		return "Alex"
	case "last_name":
		return "Tester"
	case "phone":
		return "+15555550123"
	case "address":
		return "123 Test Street"
	case "city":
		return "Springfield"
	case "zip":
		return "12345"
	case "country":
		return "United States"
	case "company":
		return "QA Test Co"
	case "url":
		return "https://example.com"
	case "date":
		return "2025-01-15"
	case "number":
		return "42"
	case "search":
		return t.SearchQuery()
	case "message":
		return "This is an automated test message. Please ignore."
	default:
		return "test input"
	}
}

// ClassifyField guesses a field kind from its attributes. The advisory
// classifier is only consulted when this returns "other".
func ClassifyField(inputType, name, id, placeholder, ariaLabel string) string {
	hints := strings.ToLower(strings.Join([]string{inputType, name, id, placeholder, ariaLabel}, " "))

	switch strings.ToLower(inputType) {
	case "email":
		return "email"
	case "password":
		return "password"
	case "tel":
		return "phone"
	case "url":
		return "url"
	case "date":
		return "date"
	case "number":
		return "number"
	case "search":
		return "search"
	}

	switch {
	case strings.Contains(hints, "email") || strings.Contains(hints, "e-mail"):
		return "email"
	case strings.Contains(hints, "password"):
		return "password"
	case strings.Contains(hints, "search") || strings.Contains(hints, "query"):
		return "search"
	case strings.Contains(hints, "first") && strings.Contains(hints, "name"):
		return "first_name"
	case strings.Contains(hints, "last") && strings.Contains(hints, "name"):
		return "last_name"
	case strings.Contains(hints, "phone") || strings.Contains(hints, "mobile"):
		return "phone"
	case strings.Contains(hints, "company") || strings.Contains(hints, "organization"):
		return "company"
	case strings.Contains(hints, "address") || strings.Contains(hints, "street"):
		return "address"
	case strings.Contains(hints, "city") || strings.Contains(hints, "town"):
		return "city"
	case strings.Contains(hints, "zip") || strings.Contains(hints, "postal"):
		return "zip"
	case strings.Contains(hints, "country"):
		return "country"
	case strings.Contains(hints, "message") || strings.Contains(hints, "comment"):
		return "message"
	case strings.Contains(hints, "name") || strings.Contains(hints, "fullname"):
		return "name"
	case strings.Contains(hints, "subject") || strings.Contains(hints, "title"):
		return "message"
	default:
		return "other"
	}
}
