// Package kick checks live status through Kick's public channel endpoint.
package kick

import (
	"context"
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

const notFoundDetails = "Channel not found on Kick or does not exist"

type channelResponse struct {
	Slug string `json:"slug"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Livestream *livestream `json:"livestream"`
}

type livestream struct {
	SessionTitle string `json:"session_title"`
	ViewerCount  int64  `json:"viewer_count"`
	Categories   []struct {
		Name string `json:"name"`
	} `json:"categories"`
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
	return domain.PlatformKick
}

// Check needs no credentials. A 404 is reported as Offline because Kick answers 404 for
// both unknown and idle channels.
func (a *Adapter) Check(ctx context.Context, identifier string, _ domain.Credentials) domain.StatusRecord {
	username, err := ResolveUsername(identifier)
	if err != nil {
		return platform.FailureRecord(domain.PlatformKick, identifier, err)
	}

	var resp channelResponse
	endpoint := fmt.Sprintf("%s/channels/%s", a.baseURL, url.PathEscape(username))
	if err := a.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusNotFound {
				return domain.StatusRecord{
					Platform:   domain.PlatformKick,
					Identifier: username,
					Name:       username,
					Status:     domain.StreamStatusOffline,
					Details:    notFoundDetails,
				}
			}
			err = errors.NewAPIError(fmt.Sprintf("Kick API error: %s", apiErr.Message), apiErr.StatusCode, apiErr.Context)
		}
		a.logger.Warn("Kick check failed", zap.String("username", username), zap.Error(err))
		return platform.FailureRecord(domain.PlatformKick, username, err)
	}

	name := resp.User.Username
	if name == "" {
		name = username
	}
	rec := domain.StatusRecord{
		Platform:   domain.PlatformKick,
		Identifier: username,
		Name:       name,
		Status:     domain.StreamStatusOffline,
	}
	if resp.Livestream == nil {
		return rec
	}

	rec.Status = domain.StreamStatusLive
	rec.Title = resp.Livestream.SessionTitle
	if rec.Title == "" {
		rec.Title = "Live Stream"
	}
	rec.Viewers = domain.Viewers(resp.Livestream.ViewerCount)
	if len(resp.Livestream.Categories) > 0 {
		rec.Details = resp.Livestream.Categories[0].Name
	}
	return rec
}
