package facebook

import (
	"net/url"
	"strings"

	"github.com/kapu/multistream-checker-go/internal/util"
)

// skippedSegments are path segments that never identify a page or profile.
var skippedSegments = map[string]bool{
	"videos":        true,
	"live":          true,
	"pg":            true,
	"events":        true,
	"photos":        true,
	"reels":         true,
	"groups":        true,
	"watch":         true,
	"profile.php":   true,
	"permalink.php": true,
}

// ResolvePageID returns the Graph API node for a facebook.com URL. It prefers the first
// meaningful path segment, then the id or page_id query parameter, and finally the raw input.
func ResolvePageID(input string) string {
	raw := strings.TrimSpace(input)
	s := raw
	if !strings.Contains(strings.ToLower(s), "://") {
		if !strings.Contains(strings.ToLower(s), "facebook.com") {
			return raw
		}
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return raw
	}

	for _, seg := range util.PathSegments(u.Path) {
		if skippedSegments[strings.ToLower(seg)] {
			continue
		}
		return seg
	}

	q := u.Query()
	if id := q.Get("id"); id != "" {
		return id
	}
	if id := q.Get("page_id"); id != "" {
		return id
	}
	return raw
}
