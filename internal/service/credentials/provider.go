// Package credentials supplies each adapter with the secrets it needs at check time.
package credentials

import (
	"context"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type Config struct {
	YouTubeAPIKey       string
	TwitchClientID      string
	TwitchClientSecret  string
	TwitchAccessToken   string
	TwitchTokenURL      string
	FacebookAccessToken string
}

// KeyStore returns a YouTube API key saved at runtime, or "" when none is stored.
type KeyStore interface {
	YouTubeAPIKey(ctx context.Context) (string, error)
}

type Provider struct {
	cfg          Config
	keys         KeyStore
	twitchTokens oauth2.TokenSource
	logger       *zap.Logger
}

// NewProvider builds a provider. When a Twitch client secret is configured, app access tokens
// are fetched with the client-credentials grant and refreshed on expiry; ctx bounds the
// lifetime of that token source.
func NewProvider(ctx context.Context, cfg Config, keys KeyStore, logger *zap.Logger) *Provider {
	p := &Provider{cfg: cfg, keys: keys, logger: logger}
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.TwitchClientID,
			ClientSecret: cfg.TwitchClientSecret,
			TokenURL:     cfg.TwitchTokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		p.twitchTokens = cc.TokenSource(ctx)
		logger.Info("Twitch app token flow enabled")
	}
	return p
}

// Credentials returns what the adapter for platform needs. An error means the credentials
// could not be obtained; it already carries the application error code to report.
func (p *Provider) Credentials(ctx context.Context, platform domain.Platform) (domain.Credentials, error) {
	switch platform {
	case domain.PlatformYouTube:
		return domain.Credentials{APIKey: p.youTubeKey(ctx)}, nil
	case domain.PlatformTwitch:
		return p.twitch()
	case domain.PlatformFacebook:
		return domain.Credentials{Token: p.cfg.FacebookAccessToken}, nil
	default:
		return domain.Credentials{}, nil
	}
}

func (p *Provider) youTubeKey(ctx context.Context) string {
	if p.keys != nil {
		key, err := p.keys.YouTubeAPIKey(ctx)
		if err != nil {
			p.logger.Warn("Failed to read stored YouTube API key", zap.Error(err))
		} else if key != "" {
			return key
		}
	}
	return p.cfg.YouTubeAPIKey
}

func (p *Provider) twitch() (domain.Credentials, error) {
	creds := domain.Credentials{ClientID: p.cfg.TwitchClientID, Token: p.cfg.TwitchAccessToken}
	if p.twitchTokens == nil {
		return creds, nil
	}
	tok, err := p.twitchTokens.Token()
	if err != nil {
		p.logger.Warn("Twitch token request failed", zap.Error(err))
		return creds, errors.NewAPIError("Twitch token request failed", 502, nil).WithCause(err)
	}
	creds.Token = tok.AccessToken
	return creds, nil
}
