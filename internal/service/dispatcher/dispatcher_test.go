package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/platform"
	"github.com/kapu/multistream-checker-go/internal/platform/rest"
	"github.com/kapu/multistream-checker-go/internal/platform/twitch"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"go.uber.org/zap"
)

type message struct {
	text     string
	severity domain.Severity
}

type fakeSink struct {
	mu       sync.Mutex
	renders  [][]domain.MonitoredEntry
	messages []message
	loading  []bool
	checked  []time.Time
}

func (s *fakeSink) Render(entries []domain.MonitoredEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders = append(s.renders, entries)
}

func (s *fakeSink) NotifyMessage(text string, severity domain.Severity, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message{text, severity})
}

func (s *fakeSink) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = append(s.loading, loading)
}

func (s *fakeSink) SetLastChecked(ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = append(s.checked, ts)
}

func (s *fakeSink) renderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.renders)
}

func (s *fakeSink) lastMessage() message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return message{}
	}
	return s.messages[len(s.messages)-1]
}

type fakeAdapter struct {
	platform domain.Platform
	calls    int32
	check    func(ctx context.Context, identifier string) domain.StatusRecord
}

func (a *fakeAdapter) Platform() domain.Platform { return a.platform }

func (a *fakeAdapter) Check(ctx context.Context, identifier string, _ domain.Credentials) domain.StatusRecord {
	atomic.AddInt32(&a.calls, 1)
	if a.check != nil {
		return a.check(ctx, identifier)
	}
	return domain.StatusRecord{Platform: a.platform, Identifier: identifier, Name: identifier, Status: domain.StreamStatusOffline}
}

func (a *fakeAdapter) count() int { return int(atomic.LoadInt32(&a.calls)) }

type fakeQuota struct {
	used  int
	limit int
}

func (q *fakeQuota) Count(context.Context) int { return q.used }
func (q *fakeQuota) Limit() int                { return q.limit }

type fakeCreds struct {
	err map[domain.Platform]error
}

func (c *fakeCreds) Credentials(_ context.Context, p domain.Platform) (domain.Credentials, error) {
	if err := c.err[p]; err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{APIKey: "k", ClientID: "c", Token: "t"}, nil
}

type fakeSaver struct {
	mu   sync.Mutex
	text string
}

func (s *fakeSaver) SaveInputText(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	return nil
}

type fixture struct {
	d        *Dispatcher
	sink     *fakeSink
	twitch   *fakeAdapter
	kick     *fakeAdapter
	youtube  *fakeAdapter
	facebook *fakeAdapter
	quota    *fakeQuota
	creds    *fakeCreds
	saver    *fakeSaver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sink:     &fakeSink{},
		twitch:   &fakeAdapter{platform: domain.PlatformTwitch},
		kick:     &fakeAdapter{platform: domain.PlatformKick},
		youtube:  &fakeAdapter{platform: domain.PlatformYouTube},
		facebook: &fakeAdapter{platform: domain.PlatformFacebook},
		quota:    &fakeQuota{limit: 10000},
		creds:    &fakeCreds{},
		saver:    &fakeSaver{},
	}
	f.d = New(Options{
		Registry: &platform.Registry{
			Twitch:   f.twitch,
			Kick:     f.kick,
			YouTube:  f.youtube,
			Facebook: f.facebook,
		},
		Credentials: f.creds,
		Quota:       f.quota,
		Saver:       f.saver,
		Sink:        f.sink,
		Logger:      zap.NewNop(),
		Config:      Config{RefreshInterval: time.Hour, CheckTimeout: time.Second},
	})
	t.Cleanup(f.d.Stop)
	return f
}

func TestLoadFromTextRendersPendingThenResults(t *testing.T) {
	f := newFixture(t)

	n := f.d.LoadFromText(context.Background(), "a, https://kick.com/a\nhttps://twitch.tv/b\n\nnot a link")
	if n != 3 {
		t.Fatalf("loaded %d entries, want 3", n)
	}
	if f.sink.renderCount() != 2 {
		t.Fatalf("renders = %d, want 2 (pending + cycle)", f.sink.renderCount())
	}

	first := f.sink.renders[0]
	for _, e := range first {
		if e.Status != domain.StreamStatusPending {
			t.Fatalf("initial render has %s for %s", e.Status, e.OriginalInput)
		}
	}

	last := f.sink.renders[1]
	if last[0].Status != domain.StreamStatusOffline || last[0].Nickname != "a" {
		t.Fatalf("kick entry = %+v", last[0])
	}
	if last[2].Status != domain.StreamStatusUnsupported || last[2].Details != "Unsupported platform" {
		t.Fatalf("unknown entry = %+v", last[2])
	}
	if f.saver.text == "" {
		t.Fatal("input text was not saved")
	}
	if len(f.sink.checked) != 1 {
		t.Fatalf("last checked set %d times", len(f.sink.checked))
	}
	if !f.d.Active() {
		t.Fatal("timer not started after load")
	}
}

func TestDuplicatesCheckedIndependently(t *testing.T) {
	f := newFixture(t)
	f.d.LoadFromText(context.Background(), "https://kick.com/same\nhttps://kick.com/same")

	if f.kick.count() != 2 {
		t.Fatalf("kick calls = %d, want 2", f.kick.count())
	}
	if got := len(f.d.Entries()); got != 2 {
		t.Fatalf("entries = %d", got)
	}
}

func TestChecksRunConcurrently(t *testing.T) {
	f := newFixture(t)
	var arrived sync.WaitGroup
	arrived.Add(3)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()
	f.kick.check = func(ctx context.Context, id string) domain.StatusRecord {
		arrived.Done()
		select {
		case <-release:
		case <-ctx.Done():
			return domain.StatusRecord{Platform: domain.PlatformKick, Identifier: id, Status: domain.StreamStatusError, Details: "timeout"}
		}
		return domain.StatusRecord{Platform: domain.PlatformKick, Identifier: id, Status: domain.StreamStatusLive}
	}

	f.d.LoadFromText(context.Background(), "https://kick.com/a\nhttps://kick.com/b\nhttps://kick.com/c")
	for _, e := range f.d.Entries() {
		if e.Status != domain.StreamStatusLive {
			t.Fatalf("%s = %s (%s), checks were serialized", e.OriginalInput, e.Status, e.Details)
		}
	}
}

func TestAutomaticCycleSkipsYouTube(t *testing.T) {
	f := newFixture(t)
	f.d.LoadFromText(context.Background(), "https://youtube.com/channel/UCabcdefghijklmnopqrstuv\nhttps://kick.com/a")
	if f.youtube.count() != 1 {
		t.Fatalf("youtube calls after load = %d", f.youtube.count())
	}
	before := f.d.Entries()[0]

	res := f.d.CheckAll(context.Background(), false)
	if res.Skipped != 1 || res.Checked != 1 {
		t.Fatalf("result = %+v", res)
	}
	if f.youtube.count() != 1 {
		t.Fatalf("youtube checked by a non-forced cycle")
	}
	if f.kick.count() != 2 {
		t.Fatalf("kick calls = %d", f.kick.count())
	}
	after := f.d.Entries()[0]
	if after.Status != before.Status || !after.LastCheck.Equal(*before.LastCheck) {
		t.Fatalf("youtube entry changed: %+v -> %+v", before, after)
	}

	f.d.Refresh(context.Background())
	if f.youtube.count() != 2 {
		t.Fatalf("manual refresh did not check youtube")
	}
}

func TestQuotaExhaustedPreemptsYouTube(t *testing.T) {
	f := newFixture(t)
	f.quota.used = 10000

	f.d.LoadFromText(context.Background(), "https://youtube.com/watch?v=abcdefghijk")
	if f.youtube.count() != 0 {
		t.Fatalf("adapter called with exhausted quota")
	}
	e := f.d.Entries()[0]
	if e.Status != domain.StreamStatusAPIError {
		t.Fatalf("status = %s", e.Status)
	}
	if e.Details != "YouTube daily quota exhausted" {
		t.Fatalf("details = %q", e.Details)
	}
}

func TestPanicDegradesToAPIError(t *testing.T) {
	f := newFixture(t)
	f.kick.check = func(context.Context, string) domain.StatusRecord {
		panic("boom")
	}

	f.d.LoadFromText(context.Background(), "https://kick.com/a\nhttps://twitch.tv/b")
	entries := f.d.Entries()
	if entries[0].Status != domain.StreamStatusAPIError || entries[0].Details != "boom" {
		t.Fatalf("panicking entry = %+v", entries[0])
	}
	if entries[1].Status != domain.StreamStatusOffline {
		t.Fatalf("sibling entry = %+v", entries[1])
	}
	msg := f.sink.lastMessage()
	if msg.text != "Some checks failed during refresh" || msg.severity != domain.SeverityWarning {
		t.Fatalf("message = %+v", msg)
	}
}

func TestCredentialFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.creds.err = map[domain.Platform]error{
		domain.PlatformYouTube: errors.NewConfigError("YouTube API key not configured", "youtube_api_key"),
	}

	f.d.LoadFromText(context.Background(), "https://twitch.tv/a\nhttps://youtube.com/@someone")
	entries := f.d.Entries()
	if entries[0].Status != domain.StreamStatusOffline {
		t.Fatalf("twitch = %+v", entries[0])
	}
	if entries[1].Status != domain.StreamStatusConfigError {
		t.Fatalf("youtube = %+v", entries[1])
	}
	if f.youtube.count() != 0 {
		t.Fatal("adapter called without credentials")
	}
	msg := f.sink.lastMessage()
	if msg.text != "Checked 2: 0 live, 1 offline, 1 with errors" || msg.severity != domain.SeverityWarning {
		t.Fatalf("message = %+v", msg)
	}
}

func runCycleAcrossReload(t *testing.T, before, after string) (CycleResult, []domain.MonitoredEntry) {
	t.Helper()
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	f.kick.check = func(_ context.Context, id string) domain.StatusRecord {
		close(started)
		<-release
		return domain.StatusRecord{Platform: domain.PlatformKick, Identifier: id, Status: domain.StreamStatusLive}
	}
	f.d.replaceEntries(before)

	done := make(chan CycleResult)
	go func() { done <- f.d.CheckAll(context.Background(), true) }()
	<-started
	f.d.replaceEntries(after)
	close(release)

	res := <-done
	return res, f.d.Entries()
}

func TestReloadKeepsResultsForRetainedInput(t *testing.T) {
	res, entries := runCycleAcrossReload(t, "https://kick.com/old", "Renamed, x\nhttps://kick.com/old")
	if !res.Stale {
		t.Fatal("cycle not marked stale")
	}
	if entries[0].Status != domain.StreamStatusPending {
		t.Fatalf("result applied to an unrelated entry: %+v", entries[0])
	}
	if entries[1].Status != domain.StreamStatusLive {
		t.Fatalf("result for retained input dropped: %+v", entries[1])
	}
}

func TestReloadDropsResultsForRemovedInput(t *testing.T) {
	res, entries := runCycleAcrossReload(t, "https://kick.com/old", "https://kick.com/new")
	if !res.Stale || res.Checked != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if entries[0].Status != domain.StreamStatusPending {
		t.Fatalf("stale result merged into new list: %+v", entries[0])
	}
}

func TestIdentifierRefinedOnlyOnSuccess(t *testing.T) {
	f := newFixture(t)
	fail := false
	f.twitch.check = func(_ context.Context, id string) domain.StatusRecord {
		if fail {
			return domain.StatusRecord{Platform: domain.PlatformTwitch, Identifier: id, Status: domain.StreamStatusAPIError, Details: "Twitch API error (500): down"}
		}
		return domain.StatusRecord{Platform: domain.PlatformTwitch, Identifier: "mychan", Name: "MyChan", Status: domain.StreamStatusOffline}
	}

	f.d.LoadFromText(context.Background(), "https://twitch.tv/MyChan")
	if id := f.d.Entries()[0].Identifier; id != "mychan" {
		t.Fatalf("identifier = %q", id)
	}

	fail = true
	f.d.Refresh(context.Background())
	e := f.d.Entries()[0]
	if e.Identifier != "mychan" || e.Status != domain.StreamStatusAPIError {
		t.Fatalf("entry after failure = %+v", e)
	}
	if e.OriginalInput != "https://twitch.tv/MyChan" {
		t.Fatalf("original input changed: %q", e.OriginalInput)
	}
}

func TestEmptyListIsNoop(t *testing.T) {
	f := newFixture(t)
	res := f.d.CheckAll(context.Background(), true)
	if res != (CycleResult{}) {
		t.Fatalf("result = %+v", res)
	}
	if f.sink.renderCount() != 0 || len(f.sink.loading) != 0 {
		t.Fatal("empty cycle touched the sink")
	}
}

func TestTimerRunsCyclesUntilStopped(t *testing.T) {
	f := newFixture(t)
	f.d.cfg.RefreshInterval = 10 * time.Millisecond
	f.d.LoadFromText(context.Background(), "https://kick.com/a\nhttps://youtube.com/watch?v=abcdefghijk")

	deadline := time.Now().Add(2 * time.Second)
	for f.kick.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("timer did not fire, kick calls = %d", f.kick.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if f.youtube.count() != 1 {
		t.Fatalf("automatic cycles checked youtube: %d calls", f.youtube.count())
	}

	f.d.Stop()
	if f.d.Active() {
		t.Fatal("still active after Stop")
	}
	// Let a cycle that was already past its timer finish before sampling.
	time.Sleep(30 * time.Millisecond)
	f.d.cycleMu.Lock()
	f.d.cycleMu.Unlock()
	settled := f.kick.count()
	time.Sleep(50 * time.Millisecond)
	if f.kick.count() != settled {
		t.Fatalf("cycles continued after Stop: %d -> %d", settled, f.kick.count())
	}
}

func TestTwitchEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_login") != "mychan" {
			t.Errorf("user_login = %q", r.URL.Query().Get("user_login"))
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	sink := &fakeSink{}
	d := New(Options{
		Registry: &platform.Registry{
			Twitch: twitch.NewAdapter(rest.NewClient(srv.Client(), zap.NewNop()), srv.URL, zap.NewNop()),
		},
		Credentials: &fakeCreds{},
		Sink:        sink,
		Config:      Config{RefreshInterval: time.Hour},
	})
	defer d.Stop()

	d.LoadFromText(context.Background(), "MyChan, https://twitch.tv/myChan")
	e := d.Entries()[0]
	if e.Nickname != "MyChan" || e.Platform != domain.PlatformTwitch {
		t.Fatalf("entry = %+v", e)
	}
	if e.Status != domain.StreamStatusOffline || e.Identifier != "mychan" {
		t.Fatalf("entry = %+v", e)
	}
	if e.LastCheck == nil {
		t.Fatal("last check not recorded")
	}
}
