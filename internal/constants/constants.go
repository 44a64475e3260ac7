package constants

import "time"

var APIConfig = struct {
	TwitchHelixBaseURL  string
	TwitchTokenURL      string
	KickBaseURL         string
	FacebookGraphURL    string
	FacebookVersion     string
	RequestTimeout      time.Duration
	MaxErrorBodyBytes   int64
	MaxPayloadBodyBytes int64
}{
	TwitchHelixBaseURL:  "https://api.twitch.tv/helix",
	TwitchTokenURL:      "https://id.twitch.tv/oauth2/token",
	KickBaseURL:         "https://kick.com/api/v2",
	FacebookGraphURL:    "https://graph.facebook.com",
	FacebookVersion:     "v19.0",
	RequestTimeout:      10 * time.Second,
	MaxErrorBodyBytes:   4 << 10,
	MaxPayloadBodyBytes: 2 << 20,
}

// YouTubeQuota holds the unit cost of each Data API call made by the checker.
var YouTubeQuota = struct {
	DailyLimit     int
	SearchCost     int
	VideosListCost int
	WarnRatio      float64
	ResetTimezone  string
}{
	DailyLimit:     10000,
	SearchCost:     100, // search.list (live search and name resolution)
	VideosListCost: 1,
	WarnRatio:      0.8,
	ResetTimezone:  "America/Los_Angeles",
}

var SchedulerConfig = struct {
	RefreshInterval time.Duration
	CheckTimeout    time.Duration
	MessageTTL      time.Duration
}{
	RefreshInterval: 2 * time.Minute,
	CheckTimeout:    15 * time.Second,
	MessageTTL:      5 * time.Second,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "multistream:",
}

var WebConfig = struct {
	SessionCookie     string
	SessionTTL        time.Duration
	WriteWait         time.Duration
	PongWait          time.Duration
	PingPeriod        time.Duration
	ClientBuffer      int
	MaxInputBytes     int64
	ReadHeaderTimeout time.Duration
}{
	SessionCookie:     "msc_session",
	SessionTTL:        12 * time.Hour,
	WriteWait:         10 * time.Second,
	PongWait:          60 * time.Second,
	PingPeriod:        54 * time.Second,
	ClientBuffer:      16,
	MaxInputBytes:     1 << 20,
	ReadHeaderTimeout: 10 * time.Second,
}

var WatcherConfig = struct {
	Debounce time.Duration
}{
	Debounce: 500 * time.Millisecond,
}

var StringLimits = struct {
	StreamTitle  int
	ErrorDetails int
}{
	StreamTitle:  100,
	ErrorDetails: 200,
}
