package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/util"
	"go.uber.org/zap"
)

type fakeStore struct {
	state   domain.QuotaState
	found   bool
	saves   int
	loadErr error
}

func (f *fakeStore) LoadQuota(context.Context) (domain.QuotaState, bool, error) {
	if f.loadErr != nil {
		return domain.QuotaState{}, false, f.loadErr
	}
	return f.state, f.found, nil
}

func (f *fakeStore) SaveQuota(_ context.Context, s domain.QuotaState) error {
	f.state, f.found = s, true
	f.saves++
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCountResetsOnNewDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, util.QuotaLocation())
	yesterday := util.QuotaDate(now.AddDate(0, 0, -1))
	store := &fakeStore{state: domain.QuotaState{Count: 8000, Date: yesterday}, found: true}

	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	if got := tr.Count(context.Background()); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
	if store.state.Count != 0 || store.state.Date != util.QuotaDate(now) {
		t.Fatalf("reset not persisted: %+v", store.state)
	}
}

func TestCountSameDayKeepsValue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, util.QuotaLocation())
	store := &fakeStore{state: domain.QuotaState{Count: 8000, Date: util.QuotaDate(now)}, found: true}

	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	if got := tr.Count(context.Background()); got != 8000 {
		t.Fatalf("Count() = %d, want 8000", got)
	}
	if store.saves != 0 {
		t.Fatalf("same-day read must not write, saves = %d", store.saves)
	}
}

func TestDayBoundaryFollowsPacificTime(t *testing.T) {
	// 07:30 UTC on the 11th is still the 10th in Los Angeles.
	now := time.Date(2024, 3, 11, 7, 30, 0, 0, time.UTC)
	store := &fakeStore{state: domain.QuotaState{Count: 50, Date: "2024-03-10"}, found: true}

	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	if got := tr.Count(context.Background()); got != 50 {
		t.Fatalf("Count() = %d, want 50", got)
	}
}

func TestIncrementAccumulatesAndPersists(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, util.QuotaLocation())
	store := &fakeStore{}
	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	ctx := context.Background()
	tr.Increment(ctx, 100)
	if got := tr.Increment(ctx, 1); got != 101 {
		t.Fatalf("Increment() = %d, want 101", got)
	}
	if store.state.Count != 101 {
		t.Fatalf("persisted count = %d", store.state.Count)
	}
}

func TestIncrementAfterDayChangeStartsFromZero(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, util.QuotaLocation())
	store := &fakeStore{state: domain.QuotaState{Count: 9999, Date: "2024-03-09"}, found: true}
	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	if got := tr.Increment(context.Background(), 100); got != 100 {
		t.Fatalf("Increment() = %d, want 100", got)
	}
}

func TestExhausted(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, util.QuotaLocation())
	store := &fakeStore{state: domain.QuotaState{Count: 10000, Date: util.QuotaDate(now)}, found: true}
	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	if !tr.Exhausted(context.Background()) {
		t.Fatal("expected exhausted at the limit")
	}
	u := tr.Usage(context.Background())
	if u.Remaining != 0 || u.Used != 10000 {
		t.Fatalf("unexpected usage %+v", u)
	}
}

func TestLoadFailureFallsBackToCachedState(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, util.QuotaLocation())
	store := &fakeStore{}
	tr := NewTracker(store, 10000, zap.NewNop())
	tr.SetClock(fixedClock(now))

	tr.Increment(context.Background(), 300)
	store.loadErr = errors.New("redis down")

	if got := tr.Count(context.Background()); got != 300 {
		t.Fatalf("Count() = %d, want cached 300", got)
	}
}
