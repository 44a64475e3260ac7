// Package twitch checks live status through the Helix streams endpoint.
package twitch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/platform"
	"github.com/kapu/multistream-checker-go/internal/platform/rest"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"go.uber.org/zap"
)

type streamsResponse struct {
	Data []stream `json:"data"`
}

type stream struct {
	UserLogin   string `json:"user_login"`
	UserName    string `json:"user_name"`
	GameName    string `json:"game_name"`
	Title       string `json:"title"`
	ViewerCount int64  `json:"viewer_count"`
}

type helixError struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type Adapter struct {
	client  *rest.Client
	baseURL string
	logger  *zap.Logger
}

func NewAdapter(client *rest.Client, baseURL string, logger *zap.Logger) *Adapter {
	return &Adapter{client: client, baseURL: baseURL, logger: logger}
}

func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformTwitch
}

func (a *Adapter) Check(ctx context.Context, identifier string, creds domain.Credentials) domain.StatusRecord {
	login, err := ResolveLogin(identifier)
	if err != nil {
		return platform.FailureRecord(domain.PlatformTwitch, identifier, err)
	}

	rec, err := a.check(ctx, login, creds)
	if err != nil {
		a.logger.Warn("Twitch check failed", zap.String("login", login), zap.Error(err))
		return platform.FailureRecord(domain.PlatformTwitch, login, err)
	}
	return rec
}

func (a *Adapter) check(ctx context.Context, login string, creds domain.Credentials) (domain.StatusRecord, error) {
	if creds.ClientID == "" || creds.Token == "" {
		return domain.StatusRecord{}, errors.NewConfigError("Twitch Client ID or access token not configured", "twitch_credentials")
	}

	endpoint := fmt.Sprintf("%s/streams?user_login=%s", a.baseURL, url.QueryEscape(login))
	headers := http.Header{
		"Client-ID":     {creds.ClientID},
		"Authorization": {"Bearer " + creds.Token},
	}

	var resp streamsResponse
	if err := a.client.GetJSON(ctx, endpoint, headers, &resp); err != nil {
		return domain.StatusRecord{}, describeError(err)
	}

	if len(resp.Data) == 0 {
		return domain.StatusRecord{
			Platform:   domain.PlatformTwitch,
			Identifier: login,
			Name:       login,
			Status:     domain.StreamStatusOffline,
		}, nil
	}

	s := resp.Data[0]
	details := s.GameName
	if details == "" {
		details = "Not playing"
	}
	identifier := s.UserLogin
	if identifier == "" {
		identifier = login
	}
	return domain.StatusRecord{
		Platform:   domain.PlatformTwitch,
		Identifier: identifier,
		Name:       s.UserName,
		Status:     domain.StreamStatusLive,
		Title:      s.Title,
		Viewers:    domain.Viewers(s.ViewerCount),
		Details:    details,
	}, nil
}

func describeError(err error) error {
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Message
	var body helixError
	if json.Unmarshal(rest.ErrorBody(apiErr), &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return errors.NewAPIError(fmt.Sprintf("Twitch API error (%d): %s", apiErr.StatusCode, msg), apiErr.StatusCode, apiErr.Context)
}
