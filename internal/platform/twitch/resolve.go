package twitch

import (
	"strings"

	"github.com/kapu/multistream-checker-go/internal/util"
	"github.com/kapu/multistream-checker-go/pkg/errors"
)

// ResolveLogin extracts the lowercase login from a twitch.tv URL or a bare login.
func ResolveLogin(input string) (string, error) {
	s := strings.TrimSpace(input)
	if idx := util.IndexFold(s, "twitch.tv/"); idx >= 0 {
		s = s[idx+len("twitch.tv/"):]
	}
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.Trim(s, "/")
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimPrefix(s, "@")
	if s == "" || strings.ContainsAny(s, " \t:") {
		return "", errors.NewResolutionError("could not extract a Twitch login", input)
	}
	return strings.ToLower(s), nil
}
