package kick

import (
	"strings"

	"github.com/kapu/multistream-checker-go/internal/util"
	"github.com/kapu/multistream-checker-go/pkg/errors"
)

// ResolveUsername extracts the lowercase channel slug from a kick.com URL or a bare username.
func ResolveUsername(input string) (string, error) {
	s := strings.TrimSpace(input)
	if idx := util.IndexFold(s, "kick.com/"); idx >= 0 {
		s = s[idx+len("kick.com/"):]
	}
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.Trim(s, "/")
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	if s == "" || strings.ContainsAny(s, " \t:") {
		return "", errors.NewResolutionError("could not extract a Kick username", input)
	}
	return strings.ToLower(s), nil
}
