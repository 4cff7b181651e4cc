package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesSpellings(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
	}{
		{"fragment stripped", "https://example.com/page#section", "https://example.com/page"},
		{"trailing slash", "https://example.com/page/", "https://example.com/page"},
		{"query order", "https://example.com/s?b=2&a=1", "https://example.com/s?a=1&b=2"},
		{"host case", "https://EXAMPLE.com/page", "https://example.com/page"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			na, err := Normalize(tc.a)
			require.NoError(t, err)
			nb, err := Normalize(tc.b)
			require.NoError(t, err)
			assert.Equal(t, nb, na)
		})
	}
}

func TestNormalizeKeepsRootSlash(t *testing.T) {
	n, err := Normalize("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", n)
}

func TestIsCrawlable(t *testing.T) {
	assert.True(t, IsCrawlable("https://example.com/products"))
	assert.True(t, IsCrawlable("/relative/path"))

	assert.False(t, IsCrawlable("mailto:hi@example.com"))
	assert.False(t, IsCrawlable("tel:+123456"))
	assert.False(t, IsCrawlable("javascript:void(0)"))
	assert.False(t, IsCrawlable("#top"))
	assert.False(t, IsCrawlable("https://example.com/report.pdf"))
	assert.False(t, IsCrawlable("https://example.com/logo.png"))
	assert.False(t, IsCrawlable("https://example.com/bundle.js"))
}

func TestSameRootDomain(t *testing.T) {
	root := "https://shop.example.com"

	assert.True(t, SameRootDomain(root, "https://example.com/about"))
	assert.True(t, SameRootDomain(root, "https://blog.example.com/post"))
	assert.True(t, SameRootDomain(root, "/relative"))

	assert.False(t, SameRootDomain(root, "https://other.com/page"))
	assert.False(t, SameRootDomain(root, "https://example.com.evil.net/"))
}

func TestSameRootDomainTwoPartSuffix(t *testing.T) {
	assert.True(t, SameRootDomain("https://www.example.co.uk", "https://shop.example.co.uk/x"))
	assert.False(t, SameRootDomain("https://www.example.co.uk", "https://other.co.uk/x"))
}

func TestIsPagination(t *testing.T) {
	assert.True(t, IsPagination("https://example.com/blog?page=4"))
	assert.True(t, IsPagination("https://example.com/blog/page/3"))
	assert.True(t, IsPagination("https://example.com/list?offset=20"))
	assert.True(t, IsPagination("https://example.com/list?p=2"))

	assert.False(t, IsPagination("https://example.com/blog"))
	assert.False(t, IsPagination("https://example.com/jump?dest=2"))
}

func TestResolveRelative(t *testing.T) {
	got, err := Resolve("https://example.com/shop/", "../about#team")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/about", got)
}
