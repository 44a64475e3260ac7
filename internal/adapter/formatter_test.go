package adapter

import (
	"strings"
	"testing"
	"time"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/quota"
	"github.com/kapu/multistream-checker-go/internal/service/dispatcher"
)

func TestFormatEntries(t *testing.T) {
	f := NewResponseFormatter(time.UTC)
	checked := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	out := f.FormatEntries([]domain.MonitoredEntry{
		{Nickname: "MyChan", Platform: domain.PlatformTwitch, Name: "MyChan", Status: domain.StreamStatusLive,
			Title: "Blitz\tnight", Details: "Chess", Viewers: domain.Viewers(42), LastCheck: &checked},
		{Nickname: "x", Platform: domain.PlatformUnknown, Name: "x", Status: domain.StreamStatusUnsupported, Details: "Unsupported platform"},
	})

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "NICKNAME") {
		t.Fatalf("header = %q", lines[0])
	}
	for _, want := range []string{"MyChan", "Twitch", "42", "Blitz night (Chess)", "09:30:00"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row 1 missing %q: %q", want, lines[1])
		}
	}
	if !strings.Contains(lines[2], "Unsupported platform") || !strings.Contains(lines[2], "-") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestFormatEntriesEmpty(t *testing.T) {
	if got := NewResponseFormatter(nil).FormatEntries(nil); got != "No channels loaded." {
		t.Fatalf("got %q", got)
	}
}

func TestFormatLive(t *testing.T) {
	f := NewResponseFormatter(time.UTC)
	out := f.FormatLive([]domain.MonitoredEntry{
		{Nickname: "a", Platform: domain.PlatformKick, Status: domain.StreamStatusOffline},
		{Nickname: "b", Platform: domain.PlatformKick, Status: domain.StreamStatusLive, Title: "Hi", OriginalInput: "https://kick.com/b"},
	})
	if !strings.HasPrefix(out, "Live now (1)") || strings.Contains(out, "* a") || !strings.Contains(out, "https://kick.com/b") {
		t.Fatalf("out = %q", out)
	}
	if got := f.FormatLive(nil); got != "Nobody is live right now." {
		t.Fatalf("got %q", got)
	}
}

func TestFormatSummary(t *testing.T) {
	f := NewResponseFormatter(time.UTC)
	cases := []struct {
		res  dispatcher.CycleResult
		want string
	}{
		{dispatcher.CycleResult{Checked: 3, Live: 1, Offline: 1, Failed: 1}, "Checked 3: 1 live, 1 offline, 1 with errors"},
		{dispatcher.CycleResult{Checked: 1, Offline: 1, Skipped: 2}, "Checked 1: 0 live, 1 offline, 0 with errors (2 skipped)"},
		{dispatcher.CycleResult{Checked: 2, Panicked: 1}, "Some checks failed during refresh"},
		{dispatcher.CycleResult{Stale: true}, "Results discarded: the channel list changed during the check."},
	}
	for _, tc := range cases {
		if got := f.FormatSummary(tc.res); got != tc.want {
			t.Errorf("FormatSummary(%+v) = %q, want %q", tc.res, got, tc.want)
		}
	}
}

func TestFormatQuota(t *testing.T) {
	f := NewResponseFormatter(time.UTC)
	got := f.FormatQuota(quota.Usage{Used: 2500, Limit: 10000, ResetAt: time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)})
	if got != "YouTube quota: 2500 / 10000 units (25.0%), resets 2025-01-02 08:00 UTC" {
		t.Fatalf("got %q", got)
	}
}
