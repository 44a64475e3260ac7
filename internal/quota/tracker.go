// Package quota tracks YouTube Data API unit spend against the daily budget.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/util"
	"go.uber.org/zap"
)

// Store persists the (count, date) pair. found is false when nothing was saved yet.
type Store interface {
	LoadQuota(ctx context.Context) (state domain.QuotaState, found bool, err error)
	SaveQuota(ctx context.Context, state domain.QuotaState) error
}

// Usage is a point-in-time view of the budget.
type Usage struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Date      string    `json:"date"`
	ResetAt   time.Time `json:"resetAt"`
}

// Tracker accumulates whatever costs callers report. It is cost-agnostic; callers declare
// the unit cost of each API operation before making it.
type Tracker struct {
	store  Store
	limit  int
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	cached domain.QuotaState
	warned string
}

func NewTracker(store Store, limit int, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *Tracker) Limit() int {
	return t.limit
}

// Count returns today's spend. A stored state from a previous quota day is reset to zero
// and persisted as a side effect.
func (t *Tracker) Count(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current(ctx).Count
}

// Increment adds cost to today's spend, persists it and returns the new total.
func (t *Tracker) Increment(ctx context.Context, cost int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.current(ctx)
	state.Count += cost
	t.save(ctx, state)

	remaining := t.limit - state.Count
	t.logger.Debug("YouTube API quota consumed",
		zap.Int("cost", cost),
		zap.Int("used", state.Count),
		zap.Int("remaining", remaining),
	)
	if t.limit > 0 && float64(state.Count) >= float64(t.limit)*constants.YouTubeQuota.WarnRatio && t.warned != state.Date {
		t.warned = state.Date
		t.logger.Warn("YouTube API quota running low",
			zap.Int("used", state.Count),
			zap.Int("limit", t.limit),
			zap.Time("resetAt", util.NextQuotaReset(t.now())),
		)
	}
	return state.Count
}

// Exhausted reports whether today's spend is at or above the budget.
func (t *Tracker) Exhausted(ctx context.Context) bool {
	return t.Count(ctx) >= t.limit
}

func (t *Tracker) Usage(ctx context.Context) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.current(ctx)
	remaining := t.limit - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Used:      state.Count,
		Limit:     t.limit,
		Remaining: remaining,
		Date:      state.Date,
		ResetAt:   util.NextQuotaReset(t.now()),
	}
}

// current must be called with mu held.
func (t *Tracker) current(ctx context.Context) domain.QuotaState {
	today := util.QuotaDate(t.now())

	state, found, err := t.store.LoadQuota(ctx)
	if err != nil {
		t.logger.Warn("Failed to load quota state, using last known value", zap.Error(err))
		state, found = t.cached, t.cached.Date != ""
	}

	if !found || state.Date != today {
		if found {
			t.logger.Info("YouTube API quota reset for new day",
				zap.String("previousDate", state.Date),
				zap.Int("previousCount", state.Count),
			)
		}
		state = domain.QuotaState{Count: 0, Date: today}
		t.save(ctx, state)
	}

	t.cached = state
	return state
}

func (t *Tracker) save(ctx context.Context, state domain.QuotaState) {
	t.cached = state
	if err := t.store.SaveQuota(ctx, state); err != nil {
		t.logger.Warn("Failed to persist quota state", zap.Error(err))
	}
}
