// Package facebook checks live status through the Graph API live_videos edge.
package facebook

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/platform"
	"github.com/kapu/multistream-checker-go/internal/platform/rest"
	"github.com/kapu/multistream-checker-go/internal/util"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"go.uber.org/zap"
)

const liveMarker = "LIVE"

type pageResponse struct {
	Name string `json:"name"`
}

type liveVideosResponse struct {
	Data []liveVideo `json:"data"`
}

type liveVideo struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CreationTime string `json:"creation_time"`
	LiveViews    *int64 `json:"live_views"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Adapter struct {
	client  *rest.Client
	baseURL string
	version string
	logger  *zap.Logger
}

// NewAdapter builds an adapter for graphURL (e.g. https://graph.facebook.com) at API version.
func NewAdapter(client *rest.Client, graphURL, version string, logger *zap.Logger) *Adapter {
	return &Adapter{client: client, baseURL: graphURL, version: version, logger: logger}
}

func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformFacebook
}

func (a *Adapter) Check(ctx context.Context, identifier string, creds domain.Credentials) domain.StatusRecord {
	pageID := ResolvePageID(identifier)
	if creds.Token == "" {
		return platform.FailureRecord(domain.PlatformFacebook, pageID,
			errors.NewConfigError("Facebook access token not configured", "facebook_access_token"))
	}

	name := a.pageName(ctx, pageID, creds.Token)

	var resp liveVideosResponse
	if err := a.client.GetJSON(ctx, a.url(pageID, "live_videos", creds.Token, "status,title,description,creation_time,live_views"), nil, &resp); err != nil {
		err = describeError(err)
		a.logger.Warn("Facebook check failed", zap.String("page", pageID), zap.Error(err))
		rec := platform.FailureRecord(domain.PlatformFacebook, pageID, err)
		rec.Name = name
		return rec
	}

	rec := domain.StatusRecord{
		Platform:   domain.PlatformFacebook,
		Identifier: pageID,
		Name:       name,
		Status:     domain.StreamStatusOffline,
	}
	for _, v := range resp.Data {
		if v.Status != liveMarker {
			continue
		}
		rec.Status = domain.StreamStatusLive
		rec.Title = util.FirstNonEmpty(v.Title, v.Description, "Live stream")
		rec.Viewers = v.LiveViews
		return rec
	}
	return rec
}

// pageName looks up the display name of the page. Failure leaves the raw identifier as the name.
func (a *Adapter) pageName(ctx context.Context, pageID, token string) string {
	var page pageResponse
	if err := a.client.GetJSON(ctx, a.url(pageID, "", token, "name"), nil, &page); err != nil {
		a.logger.Debug("Facebook page name lookup failed", zap.String("page", pageID), zap.Error(err))
		return pageID
	}
	if page.Name == "" {
		return pageID
	}
	return page.Name
}

func (a *Adapter) url(node, edge, token, fields string) string {
	q := url.Values{}
	q.Set("fields", fields)
	q.Set("access_token", token)
	path := url.PathEscape(node)
	if edge != "" {
		path += "/" + edge
	}
	return fmt.Sprintf("%s/%s/%s?%s", a.baseURL, a.version, path, q.Encode())
}

func describeError(err error) error {
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Message
	var body graphError
	if json.Unmarshal(rest.ErrorBody(apiErr), &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return errors.NewAPIError(fmt.Sprintf("Facebook API error (%d): %s", apiErr.StatusCode, msg), apiErr.StatusCode, apiErr.Context)
}
