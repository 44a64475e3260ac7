package twitch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/platform/rest"
	"go.uber.org/zap"
)

var testCreds = domain.Credentials{ClientID: "cid", Token: "tok"}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewAdapter(rest.NewClient(srv.Client(), zap.NewNop()), srv.URL, zap.NewNop()), &calls
}

func TestCheckLive(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_login"); got != "mychan" {
			t.Errorf("user_login = %q", got)
		}
		if r.Header.Get("Client-ID") != "cid" || r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(`{"data":[{"user_login":"mychan","user_name":"MyChan","game_name":"Chess","title":"Blitz","viewer_count":42}]}`))
	})

	rec := a.Check(context.Background(), "https://twitch.tv/myChan", testCreds)
	if rec.Status != domain.StreamStatusLive {
		t.Fatalf("status = %s (%s)", rec.Status, rec.Details)
	}
	if rec.Name != "MyChan" || rec.Identifier != "mychan" || rec.Title != "Blitz" || rec.Details != "Chess" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Viewers == nil || *rec.Viewers != 42 {
		t.Fatalf("viewers = %v", rec.Viewers)
	}
}

func TestCheckLiveWithoutGame(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"user_login":"x","user_name":"X","title":"hi","viewer_count":1}]}`))
	})
	rec := a.Check(context.Background(), "x", testCreds)
	if rec.Details != "Not playing" {
		t.Fatalf("details = %q", rec.Details)
	}
}

func TestCheckOfflineOnEmptyList(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	rec := a.Check(context.Background(), "https://twitch.tv/Nobody", testCreds)
	if rec.Status != domain.StreamStatusOffline {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.Identifier != "nobody" || rec.Name != "nobody" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCheckMissingCredentialsMakesNoCall(t *testing.T) {
	a, calls := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
	rec := a.Check(context.Background(), "https://twitch.tv/a", domain.Credentials{ClientID: "cid"})
	if rec.Status != domain.StreamStatusConfigError {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.Details == "" {
		t.Fatal("expected details")
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatalf("expected no HTTP calls, got %d", *calls)
	}
}

func TestCheckAPIError(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","status":401,"message":"Invalid OAuth token"}`))
	})
	rec := a.Check(context.Background(), "a", testCreds)
	if rec.Status != domain.StreamStatusAPIError {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.Details != "Twitch API error (401): Invalid OAuth token" {
		t.Fatalf("details = %q", rec.Details)
	}
}

func TestCheckMalformedPayload(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	rec := a.Check(context.Background(), "a", testCreds)
	if rec.Status != domain.StreamStatusError {
		t.Fatalf("status = %s", rec.Status)
	}
}
