package youtube

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kapu/multistream-checker-go/internal/util"
	"github.com/kapu/multistream-checker-go/pkg/errors"
)

// TargetKind says which lookup a YouTube identifier needs.
type TargetKind int

const (
	KindChannel TargetKind = iota
	KindVideo
	KindNeedsResolution
)

func (k TargetKind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindVideo:
		return "video"
	case KindNeedsResolution:
		return "needs_resolution"
	default:
		return "unknown"
	}
}

// Target is a classified YouTube identifier. For KindNeedsResolution Value is the name or
// handle (without the leading @) to search for.
type Target struct {
	Kind  TargetKind
	Value string
}

var (
	channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	videoIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ResolveTarget classifies a YouTube URL, channel ID, video ID, handle or bare name.
func ResolveTarget(input string) (Target, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Target{}, errors.NewResolutionError("empty YouTube identifier", input)
	}

	switch {
	case channelIDPattern.MatchString(s):
		return Target{Kind: KindChannel, Value: s}, nil
	case videoIDPattern.MatchString(s):
		return Target{Kind: KindVideo, Value: s}, nil
	case strings.HasPrefix(s, "@"):
		return needsResolution(strings.TrimPrefix(s, "@"), input)
	}

	lower := strings.ToLower(s)
	if !strings.Contains(lower, "youtube.com") && !strings.Contains(lower, "youtu.be") {
		return needsResolution(s, input)
	}
	if !strings.Contains(lower, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, errors.NewResolutionError("invalid YouTube URL", input)
	}
	host := strings.ToLower(u.Hostname())
	segments := util.PathSegments(u.Path)

	if host == "youtu.be" || strings.HasSuffix(host, ".youtu.be") {
		if len(segments) > 0 && videoIDPattern.MatchString(segments[0]) {
			return Target{Kind: KindVideo, Value: segments[0]}, nil
		}
		return Target{}, errors.NewResolutionError("invalid youtu.be link", input)
	}

	if len(segments) == 0 || segments[0] == "watch" {
		if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
			return Target{Kind: KindVideo, Value: v}, nil
		}
		return Target{}, errors.NewResolutionError("YouTube URL has no video or channel", input)
	}

	head := segments[0]
	switch {
	case head == "live" || head == "shorts" || head == "embed":
		if len(segments) > 1 && videoIDPattern.MatchString(segments[1]) {
			return Target{Kind: KindVideo, Value: segments[1]}, nil
		}
		return Target{}, errors.NewResolutionError("invalid YouTube video link", input)
	case head == "channel":
		if len(segments) > 1 && segments[1] != "" {
			return Target{Kind: KindChannel, Value: segments[1]}, nil
		}
		return Target{}, errors.NewResolutionError("YouTube channel URL without ID", input)
	case head == "c" || head == "user":
		if len(segments) > 1 {
			return needsResolution(segments[1], input)
		}
		return Target{}, errors.NewResolutionError("YouTube custom URL without name", input)
	case strings.HasPrefix(head, "@"):
		return needsResolution(strings.TrimPrefix(head, "@"), input)
	case len(segments) == 1:
		return needsResolution(head, input)
	}

	return Target{}, errors.NewResolutionError("unrecognized YouTube URL", input)
}

func needsResolution(name, input string) (Target, error) {
	name, _ = url.PathUnescape(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return Target{}, errors.NewResolutionError("empty YouTube handle", input)
	}
	return Target{Kind: KindNeedsResolution, Value: name}, nil
}
