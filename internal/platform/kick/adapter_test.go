package kick

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/platform/rest"
	"go.uber.org/zap"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAdapter(rest.NewClient(srv.Client(), zap.NewNop()), srv.URL, zap.NewNop())
}

func TestResolveUsername(t *testing.T) {
	tests := map[string]string{
		"https://kick.com/SomeStreamer":  "somestreamer",
		"https://www.kick.com/abc?ref=x": "abc",
		"kick.com/abc/videos":            "abc",
		"plainname":                      "plainname",
		"ȺȺkick.com/Streamer":            "streamer",
	}
	for in, want := range tests {
		got, err := ResolveUsername(in)
		if err != nil || got != want {
			t.Fatalf("ResolveUsername(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"https://kick.com/", "ȺȺȺȺȺȺȺȺȺȺȺȺkick.com/"} {
		if _, err := ResolveUsername(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestCheckLive(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/streamer" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"slug":"streamer","user":{"username":"Streamer"},
			"livestream":{"session_title":"Just chatting","viewer_count":77,"categories":[{"name":"IRL"}]}}`))
	})
	rec := a.Check(context.Background(), "https://kick.com/Streamer", domain.Credentials{})
	if rec.Status != domain.StreamStatusLive {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.Name != "Streamer" || rec.Title != "Just chatting" || rec.Details != "IRL" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Viewers == nil || *rec.Viewers != 77 {
		t.Fatalf("viewers = %v", rec.Viewers)
	}
}

func TestCheckLiveDefaultTitle(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"username":"S"},"livestream":{"viewer_count":1}}`))
	})
	rec := a.Check(context.Background(), "s", domain.Credentials{})
	if rec.Title != "Live Stream" {
		t.Fatalf("title = %q", rec.Title)
	}
}

func TestCheckOfflineWhenLivestreamNull(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"username":"S"},"livestream":null}`))
	})
	rec := a.Check(context.Background(), "s", domain.Credentials{})
	if rec.Status != domain.StreamStatusOffline || rec.Name != "S" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestCheckNotFoundIsOffline(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	rec := a.Check(context.Background(), "ghost", domain.Credentials{})
	if rec.Status != domain.StreamStatusOffline {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.Details != notFoundDetails {
		t.Fatalf("details = %q", rec.Details)
	}
}

func TestCheckOtherStatusIsAPIError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	rec := a.Check(context.Background(), "blocked", domain.Credentials{})
	if rec.Status != domain.StreamStatusAPIError {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.Details != "Kick API error: 403 Forbidden" {
		t.Fatalf("details = %q", rec.Details)
	}
}
