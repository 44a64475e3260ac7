package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_ADDR", "TRUST_PROXY", "AUTH_USERNAME", "AUTH_PASSWORD", "SESSION_TTL_HOURS", "LOGIN_RATE_PER_MINUTE",
		"REFRESH_INTERVAL_SECONDS", "CHECK_TIMEOUT_SECONDS", "CHANNELS_FILE",
		"YOUTUBE_API_KEY", "YOUTUBE_DAILY_QUOTA", "TWITCH_CLIENT_ID", "TWITCH_CLIENT_SECRET",
		"TWITCH_ACCESS_TOKEN", "FACEBOOK_ACCESS_TOKEN", "FACEBOOK_GRAPH_VERSION",
		"STORE_DRIVER", "SQLITE_PATH", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.RefreshInterval != 2*time.Minute {
		t.Errorf("refresh = %s", cfg.Scheduler.RefreshInterval)
	}
	if cfg.YouTube.DailyQuota != 10000 {
		t.Errorf("quota = %d", cfg.YouTube.DailyQuota)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Facebook.GraphVersion != "v19.0" {
		t.Errorf("store = %q graph = %q", cfg.Store.Driver, cfg.Facebook.GraphVersion)
	}
	if cfg.YouTube.APIKey != "" || cfg.Twitch.AccessToken != "" || cfg.Facebook.AccessToken != "" {
		t.Error("secrets must not have defaults")
	}
	if cfg.Server.TrustProxy {
		t.Error("proxy headers must not be trusted by default")
	}
	if err := cfg.ValidateWeb(); err == nil {
		t.Error("web validation passed without AUTH_PASSWORD")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_PASSWORD", "pw")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "30")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.RefreshInterval != 30*time.Second {
		t.Errorf("refresh = %s", cfg.Scheduler.RefreshInterval)
	}
	sc := cfg.StoreConfig()
	if sc.Driver != "redis" || sc.Redis.Port != 6380 {
		t.Errorf("store config = %+v", sc)
	}
	if err := cfg.ValidateWeb(); err != nil {
		t.Errorf("web validation: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("unknown driver accepted")
	}

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TWITCH_CLIENT_SECRET", "s")
	if _, err := Load(); err == nil {
		t.Fatal("secret without client id accepted")
	}
}
