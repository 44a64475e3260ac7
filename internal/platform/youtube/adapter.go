// Package youtube checks live status through the YouTube Data API v3.
package youtube

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/platform"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// quotaReasons are the googleapi error reasons YouTube uses for budget rejections.
var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
}

// QuotaMeter is the subset of the quota tracker the adapter needs.
type QuotaMeter interface {
	Count(ctx context.Context) int
	Increment(ctx context.Context, cost int) int
	Limit() int
}

type Adapter struct {
	service *youtube.Service
	quota   QuotaMeter
	logger  *zap.Logger
}

// NewAdapter creates the Data API client. The API key is not bound to the client; it is
// supplied per check so a key saved at runtime takes effect on the next cycle.
func NewAdapter(ctx context.Context, quota QuotaMeter, logger *zap.Logger, opts ...option.ClientOption) (*Adapter, error) {
	base := []option.ClientOption{
		option.WithHTTPClient(&http.Client{Timeout: constants.APIConfig.RequestTimeout}),
	}
	service, err := youtube.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Adapter{service: service, quota: quota, logger: logger}, nil
}

func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformYouTube
}

func (a *Adapter) Check(ctx context.Context, identifier string, creds domain.Credentials) domain.StatusRecord {
	if creds.APIKey == "" {
		return platform.FailureRecord(domain.PlatformYouTube, identifier,
			errors.NewConfigError("YouTube API key not configured", "youtube_api_key"))
	}

	target, err := ResolveTarget(identifier)
	if err != nil {
		return platform.FailureRecord(domain.PlatformYouTube, identifier, err)
	}

	key := googleapi.QueryParameter("key", creds.APIKey)
	name := ""
	if target.Kind == KindNeedsResolution {
		channelID, title, err := a.resolveChannel(ctx, target.Value, key)
		if err != nil {
			return a.failure(identifier, err)
		}
		a.logger.Debug("Resolved YouTube channel",
			zap.String("query", target.Value),
			zap.String("channelId", channelID),
		)
		target = Target{Kind: KindChannel, Value: channelID}
		name = title
	}

	var rec domain.StatusRecord
	switch target.Kind {
	case KindVideo:
		rec, err = a.checkVideo(ctx, target.Value, key)
	default:
		rec, err = a.checkChannel(ctx, target.Value, name, key)
	}
	if err != nil {
		fail := a.failure(target.Value, err)
		fail.Name = name
		return fail
	}
	return rec
}

func (a *Adapter) checkVideo(ctx context.Context, videoID string, key googleapi.CallOption) (domain.StatusRecord, error) {
	if err := a.spend(ctx, constants.YouTubeQuota.VideosListCost); err != nil {
		return domain.StatusRecord{}, err
	}

	resp, err := a.service.Videos.List([]string{"snippet", "liveStreamingDetails"}).
		Id(videoID).
		Context(ctx).
		Do(key)
	if err != nil {
		return domain.StatusRecord{}, a.describeError(ctx, err)
	}
	if len(resp.Items) == 0 {
		return domain.StatusRecord{}, errors.NewResolutionError("video not found", videoID)
	}

	video := resp.Items[0]
	rec := domain.StatusRecord{
		Platform:   domain.PlatformYouTube,
		Identifier: videoID,
		Status:     domain.StreamStatusOffline,
	}
	if video.Snippet != nil {
		rec.Name = video.Snippet.ChannelTitle
	}

	details := video.LiveStreamingDetails
	if details == nil || details.ActualStartTime == "" {
		return rec, nil
	}
	if details.ActualEndTime != "" {
		rec.Details = "Broadcast ended"
		return rec, nil
	}

	rec.Status = domain.StreamStatusLive
	if video.Snippet != nil {
		rec.Title = video.Snippet.Title
	}
	rec.Viewers = domain.Viewers(int64(details.ConcurrentViewers))
	return rec, nil
}

func (a *Adapter) checkChannel(ctx context.Context, channelID, name string, key googleapi.CallOption) (domain.StatusRecord, error) {
	if err := a.spend(ctx, constants.YouTubeQuota.SearchCost); err != nil {
		return domain.StatusRecord{}, err
	}

	resp, err := a.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		EventType("live").
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do(key)
	if err != nil {
		return domain.StatusRecord{}, a.describeError(ctx, err)
	}

	rec := domain.StatusRecord{
		Platform:   domain.PlatformYouTube,
		Identifier: channelID,
		Name:       name,
		Status:     domain.StreamStatusOffline,
	}
	if len(resp.Items) == 0 {
		return rec, nil
	}

	item := resp.Items[0]
	rec.Status = domain.StreamStatusLive
	if item.Snippet != nil {
		rec.Title = item.Snippet.Title
		if item.Snippet.ChannelTitle != "" {
			rec.Name = item.Snippet.ChannelTitle
		}
	}
	return rec, nil
}

// resolveChannel turns a handle or custom name into a channel ID with a type=channel search.
func (a *Adapter) resolveChannel(ctx context.Context, query string, key googleapi.CallOption) (string, string, error) {
	if err := a.spend(ctx, constants.YouTubeQuota.SearchCost); err != nil {
		return "", "", err
	}

	resp, err := a.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do(key)
	if err != nil {
		return "", "", a.describeError(ctx, err)
	}
	if len(resp.Items) == 0 {
		return "", "", errors.NewResolutionError("channel not found by name", query)
	}

	item := resp.Items[0]
	channelID := ""
	title := ""
	if item.Id != nil {
		channelID = item.Id.ChannelId
	}
	if item.Snippet != nil {
		if channelID == "" {
			channelID = item.Snippet.ChannelId
		}
		title = item.Snippet.ChannelTitle
		if title == "" {
			title = item.Snippet.Title
		}
	}
	if channelID == "" {
		return "", "", errors.NewResolutionError("channel not found by name", query)
	}
	return channelID, title, nil
}

// spend records cost before the call is made and refuses when the budget is already spent.
func (a *Adapter) spend(ctx context.Context, cost int) error {
	if a.quota == nil {
		return nil
	}
	if used := a.quota.Count(ctx); used >= a.quota.Limit() {
		return errors.NewQuotaError("YouTube daily quota exhausted", used, a.quota.Limit())
	}
	a.quota.Increment(ctx, cost)
	return nil
}

func (a *Adapter) describeError(ctx context.Context, err error) error {
	var gerr *googleapi.Error
	if !stderrors.As(err, &gerr) {
		return err
	}
	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			used := 0
			if a.quota != nil {
				// Saturate the local counter so later checks are pre-empted until the reset.
				if remaining := a.quota.Limit() - a.quota.Count(ctx); remaining > 0 {
					a.quota.Increment(ctx, remaining)
				}
				used = a.quota.Count(ctx)
			}
			return errors.NewQuotaError("YouTube API quota exceeded", used, a.limit())
		}
	}
	msg := gerr.Message
	if msg == "" {
		msg = http.StatusText(gerr.Code)
	}
	return errors.NewAPIError(fmt.Sprintf("YouTube API error (%d): %s", gerr.Code, msg), gerr.Code, nil).WithCause(err)
}

func (a *Adapter) limit() int {
	if a.quota == nil {
		return 0
	}
	return a.quota.Limit()
}

func (a *Adapter) failure(identifier string, err error) domain.StatusRecord {
	a.logger.Warn("YouTube check failed", zap.String("identifier", identifier), zap.Error(err))
	return platform.FailureRecord(domain.PlatformYouTube, identifier, err)
}
