package html

import (
	"fmt"
	"net/url"
	"strings"

	css "github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const cidScheme = "cid:"

// Attributes that can hold a URL pointing at another part of the message.
var cidAttrs = []string{"src", "href", "background"}

// cidSelector matches any element with one of cidAttrs set to a cid: URL.
var cidSelector = css.MustCompile(`[src^="cid:"], [href^="cid:"], [background^="cid:"]`)

// ContentIDRefs returns the Content-IDs that body references through cid:
// URLs (RFC 2392), without duplicates, in document order. The returned ids
// carry no angle brackets, matching what callers pass when attaching.
func ContentIDRefs(body string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("can't parse the HTML body: %v", err)
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, n := range cidSelector.MatchAll(doc) {
		for _, a := range n.Attr {
			if !isCIDAttr(a.Key) || !strings.HasPrefix(a.Val, cidScheme) {
				continue
			}
			id := contentID(a.Val)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func isCIDAttr(key string) bool {
	for _, k := range cidAttrs {
		if k == key {
			return true
		}
	}
	return false
}

// contentID turns a cid: URL into a bare Content-ID. The URL is
// percent-encoded, the header value isn't.
func contentID(u string) string {
	id := strings.TrimPrefix(u, cidScheme)
	if un, err := url.PathUnescape(id); err == nil {
		id = un
	}
	return strings.Trim(strings.TrimSpace(id), "<>")
}
