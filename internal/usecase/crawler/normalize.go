package crawler

import (
	"net/url"
	"sort"
	"strings"
)

// skippedExtensions are asset URLs the crawler never treats as pages.
var skippedExtensions = []string{
	".pdf", ".zip", ".tar", ".gz", ".dmg", ".exe",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".mp4", ".mp3", ".avi", ".mov", ".webm",
	".css", ".js", ".json", ".xml", ".rss",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// paginationKeys identify page-N style URLs so infinite archives
// cannot eat the whole page budget.
var paginationKeys = map[string]struct{}{
	"page": {}, "p": {}, "pg": {}, "offset": {}, "start": {},
}

// Normalize canonicalizes a URL for graph identity: lowercase host,
// fragment stripped, query keys sorted, trailing slash removed. Two
// spellings of the same page must collapse to one node.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				if v != "" {
					b.WriteByte('=')
					b.WriteString(url.QueryEscape(v))
				}
			}
		}
		u.RawQuery = b.String()
	}

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// IsCrawlable reports whether a link is worth visiting at all.
func IsCrawlable(raw string) bool {
	lower := strings.ToLower(raw)
	if lower == "" ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "#") {
		return false
	}

	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	path := u.Path
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// SameRootDomain reports whether candidate belongs to the same
// registrable domain as the scan root. Subdomains count as in scope,
// external hosts never get visited.
func SameRootDomain(rootURL, candidate string) bool {
	root, err := url.Parse(rootURL)
	if err != nil {
		return false
	}
	c, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if c.Host == "" {
		return true // relative link
	}

	rootDomain := registrableDomain(root.Hostname())
	candDomain := registrableDomain(c.Hostname())
	return rootDomain != "" && rootDomain == candDomain
}

// registrableDomain approximates eTLD+1 with the last two labels, three
// for common two-part public suffixes.
func registrableDomain(host string) string {
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) < 2 {
		return host
	}
	n := 2
	if len(parts) >= 3 {
		secondLevel := parts[len(parts)-2] + "." + parts[len(parts)-1]
		switch secondLevel {
		case "co.uk", "com.au", "co.jp", "com.br", "co.nz", "org.uk", "com.mx":
			n = 3
		}
	}
	if len(parts) < n {
		n = len(parts)
	}
	return strings.Join(parts[len(parts)-n:], ".")
}

// IsPagination reports whether a URL looks like page N of an archive.
func IsPagination(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if strings.Contains(strings.ToLower(u.Path), "/page/") {
		return true
	}
	for key := range u.Query() {
		if _, ok := paginationKeys[strings.ToLower(key)]; ok {
			return true
		}
	}
	return false
}

// Resolve joins a possibly relative href against the current page URL
// and normalizes the result.
func Resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return Normalize(b.ResolveReference(h).String())
}
