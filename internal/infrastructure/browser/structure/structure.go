// Package structure digests HTML into a structural fingerprint: the tag
// and attribute skeleton with all text stripped. Two renders of the same
// template produce the same fingerprint even when their content differs.
package structure

import (
	"hash/fnv"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"siteqa/internal/domain/entity"
)

// Attributes that identify structure rather than content.
var structuralAttrs = map[string]struct{}{
	"class": {},
	"id":    {},
	"role":  {},
	"type":  {},
}

// Fingerprint parses markup and returns its structural digest.
func Fingerprint(markup string) (*entity.DOMFingerprint, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	counts := make(map[string]int)
	walk(doc, h, counts)

	return &entity.DOMFingerprint{Hash: h.Sum64(), TagCounts: counts}, nil
}

func walk(n *html.Node, h interface{ Write([]byte) (int, error) }, counts map[string]int) {
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		if tag == "script" || tag == "style" || tag == "noscript" {
			return
		}
		counts[tag]++

		h.Write([]byte(tag))
		h.Write([]byte{'<'})

		attrs := make([]string, 0, len(n.Attr))
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if _, ok := structuralAttrs[key]; !ok {
				continue
			}
			// class values carry layout identity, keep them sorted so
			// attribute order never shifts the hash
			attrs = append(attrs, key+"="+a.Val)
		}
		sort.Strings(attrs)
		for _, a := range attrs {
			h.Write([]byte(a))
			h.Write([]byte{';'})
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, h, counts)
	}

	if n.Type == html.ElementNode {
		h.Write([]byte{'>'})
	}
}
