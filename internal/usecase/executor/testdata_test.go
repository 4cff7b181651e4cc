package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailUniqueAcrossRuns(t *testing.T) {
	a := NewTestData("generic")
	b := NewTestData("generic")

	assert.NotEqual(t, a.Email(), b.Email())
	assert.Contains(t, a.Email(), "@example.com")
}

func TestEmailStableWithinFlow(t *testing.T) {
	d := NewTestData("generic")
	assert.Equal(t, d.Email(), d.Email())

	first := d.Email()
	d.ResetEmail()
	assert.NotEqual(t, first, d.Email())
}

func TestSearchQueryRotates(t *testing.T) {
	d := NewTestData("ecommerce")
	q1 := d.SearchQuery()
	q2 := d.SearchQuery()
	assert.NotEqual(t, q1, q2)
}

func TestSearchQueryUnknownSiteTypeFallsBack(t *testing.T) {
	d := NewTestData("nonsense")
	assert.NotEmpty(t, d.SearchQuery())
}

func TestValueForKnownKinds(t *testing.T) {
	d := NewTestData("generic")

	assert.True(t, strings.Contains(d.ValueFor("email"), "@"))
	assert.NotEmpty(t, d.ValueFor("password"))
	assert.Equal(t, "12345", d.ValueFor("zip"))
	assert.Equal(t, "test input", d.ValueFor("anything-else"))
}

func TestClassifyFieldByType(t *testing.T) {
	assert.Equal(t, "email", ClassifyField("email", "", "", "", ""))
	assert.Equal(t, "password", ClassifyField("password", "", "", "", ""))
	assert.Equal(t, "phone", ClassifyField("tel", "", "", "", ""))
	assert.Equal(t, "search", ClassifyField("search", "", "", "", ""))
}

func TestClassifyFieldByHints(t *testing.T) {
	assert.Equal(t, "email", ClassifyField("text", "user_email", "", "", ""))
	assert.Equal(t, "first_name", ClassifyField("text", "", "", "First name", ""))
	assert.Equal(t, "zip", ClassifyField("text", "postal_code", "", "", ""))
	assert.Equal(t, "message", ClassifyField("", "", "", "Your comment", ""))
	assert.Equal(t, "other", ClassifyField("text", "x1", "", "", ""))
}
