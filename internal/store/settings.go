package store

import (
	"context"
	"encoding/json"

	"github.com/kapu/multistream-checker-go/internal/domain"
	apperrors "github.com/kapu/multistream-checker-go/pkg/errors"
)

const (
	KeyInputText     = "input_text"
	KeyYouTubeAPIKey = "youtube_api_key"
	KeyYouTubeQuota  = "youtube_quota"
)

// Settings gives typed access to the persisted configuration on top of any Store.
type Settings struct {
	store Store
}

func NewSettings(store Store) *Settings {
	return &Settings{store: store}
}

func (s *Settings) InputText(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, KeyInputText)
	return v, err
}

func (s *Settings) SaveInputText(ctx context.Context, text string) error {
	return s.store.Set(ctx, KeyInputText, text)
}

func (s *Settings) YouTubeAPIKey(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, KeyYouTubeAPIKey)
	return v, err
}

// SaveYouTubeAPIKey stores key, or removes the stored key when it is empty.
func (s *Settings) SaveYouTubeAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return s.store.Delete(ctx, KeyYouTubeAPIKey)
	}
	return s.store.Set(ctx, KeyYouTubeAPIKey, key)
}

func (s *Settings) LoadQuota(ctx context.Context) (domain.QuotaState, bool, error) {
	raw, found, err := s.store.Get(ctx, KeyYouTubeQuota)
	if err != nil || !found {
		return domain.QuotaState{}, false, err
	}
	var state domain.QuotaState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.QuotaState{}, false, apperrors.NewStoreError("corrupt quota state", "get", KeyYouTubeQuota, err)
	}
	return state, true, nil
}

func (s *Settings) SaveQuota(ctx context.Context, state domain.QuotaState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewStoreError("marshal quota state", "set", KeyYouTubeQuota, err)
	}
	return s.store.Set(ctx, KeyYouTubeQuota, string(raw))
}
