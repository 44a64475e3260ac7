package domain

import "strings"

// Platform identifies which streaming service an entry belongs to.
type Platform string

const (
	PlatformTwitch   Platform = "twitch"
	PlatformKick     Platform = "kick"
	PlatformYouTube  Platform = "youtube"
	PlatformFacebook Platform = "facebook"
	PlatformUnknown  Platform = "unknown"
)

// KnownPlatforms lists the platforms with an adapter, in classification precedence order.
var KnownPlatforms = []Platform{PlatformTwitch, PlatformKick, PlatformYouTube, PlatformFacebook}

func (p Platform) String() string {
	return string(p)
}

func (p Platform) IsValid() bool {
	switch p {
	case PlatformTwitch, PlatformKick, PlatformYouTube, PlatformFacebook, PlatformUnknown:
		return true
	default:
		return false
	}
}

// IsKnown reports whether an adapter exists for the platform.
func (p Platform) IsKnown() bool {
	return p.IsValid() && p != PlatformUnknown
}

// IsQuotaMetered reports whether checks on this platform spend a daily unit budget.
// Metered platforms are skipped by automatic refreshes.
func (p Platform) IsQuotaMetered() bool {
	return p == PlatformYouTube
}

func (p Platform) DisplayName() string {
	switch p {
	case PlatformTwitch:
		return "Twitch"
	case PlatformKick:
		return "Kick"
	case PlatformYouTube:
		return "YouTube"
	case PlatformFacebook:
		return "Facebook"
	default:
		return "Unknown"
	}
}

// DomainFragments returns the lowercase host fragments used to recognise the platform in pasted text.
func (p Platform) DomainFragments() []string {
	switch p {
	case PlatformTwitch:
		return []string{"twitch.tv"}
	case PlatformKick:
		return []string{"kick.com"}
	case PlatformYouTube:
		return []string{"youtube.com", "youtu.be"}
	case PlatformFacebook:
		return []string{"facebook.com"}
	default:
		return nil
	}
}

func ParsePlatform(s string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return PlatformUnknown
	}
	return p
}
