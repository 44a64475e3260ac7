// Package platform defines the contract every streaming-service adapter satisfies and the
// registry that maps a domain.Platform to its adapter.
package platform

import (
	"context"
	"fmt"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/util"
	apperrors "github.com/kapu/multistream-checker-go/pkg/errors"
)

// Adapter checks the live status of one identifier. Check never returns an error:
// ordinary failures are encoded in the record's Status and Details.
type Adapter interface {
	Platform() domain.Platform
	Check(ctx context.Context, identifier string, creds domain.Credentials) domain.StatusRecord
}

// Registry maps each known platform to its adapter. A nil field means the platform is not configured.
type Registry struct {
	Twitch   Adapter
	Kick     Adapter
	YouTube  Adapter
	Facebook Adapter
}

// Adapter returns the adapter for p. The switch must stay exhaustive over domain.KnownPlatforms.
func (r *Registry) Adapter(p domain.Platform) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	var a Adapter
	switch p {
	case domain.PlatformTwitch:
		a = r.Twitch
	case domain.PlatformKick:
		a = r.Kick
	case domain.PlatformYouTube:
		a = r.YouTube
	case domain.PlatformFacebook:
		a = r.Facebook
	case domain.PlatformUnknown:
		return nil, false
	default:
		return nil, false
	}
	return a, a != nil
}

// UnsupportedRecord is the result for entries whose platform has no adapter.
func UnsupportedRecord(p domain.Platform, identifier string) domain.StatusRecord {
	return domain.StatusRecord{
		Platform:   p,
		Identifier: identifier,
		Status:     domain.StreamStatusUnsupported,
		Details:    "Unsupported platform",
	}
}

// FailureRecord converts an adapter error into a record using the error taxonomy.
func FailureRecord(p domain.Platform, identifier string, err error) domain.StatusRecord {
	rec := domain.StatusRecord{
		Platform:   p,
		Identifier: identifier,
		Status:     domain.StreamStatusError,
	}

	switch apperrors.CodeOf(err) {
	case apperrors.CodeConfig:
		rec.Status = domain.StreamStatusConfigError
		rec.Details = apperrors.MessageOf(err)
	case apperrors.CodeAPIError:
		rec.Status = domain.StreamStatusAPIError
		rec.Details = apperrors.MessageOf(err)
	case apperrors.CodeQuota:
		rec.Status = domain.StreamStatusAPIError
		rec.Details = apperrors.MessageOf(err)
	case apperrors.CodeResolution:
		rec.Details = apperrors.MessageOf(err)
	default:
		rec.Details = fmt.Sprintf("Connection or parsing failure with %s API", p.DisplayName())
	}

	rec.Details = util.TruncateString(rec.Details, constants.StringLimits.ErrorDetails)
	return rec.Normalized()
}
