// Package dispatcher owns the monitored entry list, runs check cycles across every entry
// concurrently and re-runs them on a fixed timer.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/metrics"
	"github.com/kapu/multistream-checker-go/internal/parser"
	"github.com/kapu/multistream-checker-go/internal/platform"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Sink receives every visible state change. Render always carries the full list.
type Sink interface {
	Render(entries []domain.MonitoredEntry)
	NotifyMessage(text string, severity domain.Severity, ttl time.Duration)
	SetLoading(loading bool)
	SetLastChecked(ts time.Time)
}

type CredentialProvider interface {
	Credentials(ctx context.Context, p domain.Platform) (domain.Credentials, error)
}

// QuotaGate is consulted before every check on a quota-metered platform.
type QuotaGate interface {
	Count(ctx context.Context) int
	Limit() int
}

type InputSaver interface {
	SaveInputText(ctx context.Context, text string) error
}

type Config struct {
	RefreshInterval time.Duration
	CheckTimeout    time.Duration
	MessageTTL      time.Duration
}

type Options struct {
	Registry    *platform.Registry
	Credentials CredentialProvider
	Quota       QuotaGate
	Saver       InputSaver
	Sink        Sink
	Metrics     *metrics.Registry
	Logger      *zap.Logger
	Config      Config
}

type Dispatcher struct {
	registry *platform.Registry
	creds    CredentialProvider
	quota    QuotaGate
	saver    InputSaver
	sink     Sink
	metrics  *metrics.Registry
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time

	cycleMu sync.Mutex

	mu          sync.Mutex
	entries     []*domain.MonitoredEntry
	generation  uint64
	lastChecked time.Time

	timerMu   sync.Mutex
	lifetime  context.Context
	stopTimer context.CancelFunc
}

// target is an immutable view of one entry taken at the start of a cycle.
type target struct {
	index         int
	originalInput string
	platform      domain.Platform
	identifier    string
}

type outcome struct {
	record   domain.StatusRecord
	skipped  bool
	panicked bool
}

// CycleResult summarises one check cycle.
type CycleResult struct {
	Checked  int
	Skipped  int
	Live     int
	Offline  int
	Failed   int
	Panicked int
	Stale    bool
}

func New(opts Options) *Dispatcher {
	cfg := opts.Config
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = constants.SchedulerConfig.RefreshInterval
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = constants.SchedulerConfig.CheckTimeout
	}
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = constants.SchedulerConfig.MessageTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: opts.Registry,
		creds:    opts.Credentials,
		quota:    opts.Quota,
		saver:    opts.Saver,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		lifetime: context.Background(),
	}
}

// Start binds the dispatcher to ctx. Timer-driven cycles run under ctx and stop when it ends.
func (d *Dispatcher) Start(ctx context.Context) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	d.lifetime = ctx
}

// LoadFromText replaces the whole list with the parsed text, renders it as Pending, runs one
// forced cycle and restarts the refresh timer. It returns the number of entries loaded.
func (d *Dispatcher) LoadFromText(ctx context.Context, text string) int {
	n := d.replaceEntries(text)
	if d.saver != nil {
		if err := d.saver.SaveInputText(ctx, text); err != nil {
			d.logger.Warn("Failed to save input text", zap.Error(err))
		}
	}

	d.logger.Info("Channel list loaded", zap.Int("entries", n))
	d.CheckAll(ctx, true)
	d.restartTimer()
	return n
}

// Refresh runs a forced cycle, including quota-metered platforms, and restarts the timer.
func (d *Dispatcher) Refresh(ctx context.Context) CycleResult {
	res := d.CheckAll(ctx, true)
	d.restartTimer()
	return res
}

func (d *Dispatcher) replaceEntries(text string) int {
	parsed := parser.Parse(text)
	entries := make([]*domain.MonitoredEntry, 0, len(parsed))
	for _, p := range parsed {
		entries = append(entries, domain.NewMonitoredEntry(p))
	}

	d.mu.Lock()
	d.entries = entries
	d.generation++
	snapshot := d.snapshotLocked()
	d.mu.Unlock()

	d.sink.Render(snapshot)
	d.metrics.SetEntries(snapshot)
	return len(entries)
}

// CheckAll checks every entry concurrently and merges the results once all have settled.
// When forceExpensive is false, entries on quota-metered platforms keep their previous status.
// Cycles never overlap; a call made while another cycle runs waits for it.
func (d *Dispatcher) CheckAll(ctx context.Context, forceExpensive bool) CycleResult {
	d.cycleMu.Lock()
	defer d.cycleMu.Unlock()

	d.mu.Lock()
	generation := d.generation
	targets := make([]target, len(d.entries))
	for i, e := range d.entries {
		targets[i] = target{
			index:         i,
			originalInput: e.OriginalInput,
			platform:      e.Platform,
			identifier:    e.Identifier,
		}
	}
	d.mu.Unlock()

	if len(targets) == 0 {
		return CycleResult{}
	}

	start := d.now()
	d.sink.SetLoading(true)

	// No concurrency limit: every entry is in flight at once.
	outcomes := make([]outcome, len(targets))
	p := pool.New()
	for i, t := range targets {
		if !forceExpensive && t.platform.IsQuotaMetered() {
			outcomes[i].skipped = true
			continue
		}
		p.Go(func() {
			outcomes[i] = d.checkOne(ctx, t)
		})
	}
	p.Wait()

	checkedAt := d.now()
	res := d.merge(generation, targets, outcomes, checkedAt)

	d.mu.Lock()
	d.lastChecked = checkedAt
	snapshot := d.snapshotLocked()
	d.mu.Unlock()

	d.sink.Render(snapshot)
	d.sink.SetLastChecked(checkedAt)
	d.sink.SetLoading(false)
	d.notifySummary(res)

	d.metrics.SetEntries(snapshot)
	d.metrics.ObserveCycle(forceExpensive, checkedAt.Sub(start))
	if d.quota != nil && forceExpensive {
		d.metrics.SetQuotaUsed(d.quota.Count(ctx))
	}

	d.logger.Info("Check cycle completed",
		zap.Bool("forced", forceExpensive),
		zap.Int("checked", res.Checked),
		zap.Int("skipped", res.Skipped),
		zap.Int("live", res.Live),
		zap.Int("failed", res.Failed),
		zap.Bool("stale", res.Stale),
		zap.Duration("took", checkedAt.Sub(start)),
	)
	return res
}

// merge applies outcomes to the live list. When the list was replaced while the cycle ran,
// outcomes are matched by original input and those for removed entries are dropped.
func (d *Dispatcher) merge(generation uint64, targets []target, outcomes []outcome, at time.Time) CycleResult {
	var res CycleResult

	d.mu.Lock()
	defer d.mu.Unlock()

	var byInput map[string][]*domain.MonitoredEntry
	if generation != d.generation {
		res.Stale = true
		byInput = make(map[string][]*domain.MonitoredEntry, len(d.entries))
		for _, e := range d.entries {
			byInput[e.OriginalInput] = append(byInput[e.OriginalInput], e)
		}
		d.logger.Debug("Merging results into a replaced channel list by input")
	}

	for i, o := range outcomes {
		if o.skipped {
			res.Skipped++
			continue
		}
		t := targets[i]
		var dest []*domain.MonitoredEntry
		switch {
		case byInput != nil:
			dest = byInput[t.originalInput]
		case t.index < len(d.entries) && d.entries[t.index].OriginalInput == t.originalInput:
			dest = d.entries[t.index : t.index+1]
		}
		if len(dest) == 0 {
			continue
		}
		for _, e := range dest {
			e.Apply(o.record, at)
		}

		res.Checked++
		switch {
		case o.record.Status == domain.StreamStatusLive:
			res.Live++
		case o.record.Status == domain.StreamStatusOffline:
			res.Offline++
		default:
			res.Failed++
		}
		if o.panicked {
			res.Panicked++
		}
	}
	return res
}

func (d *Dispatcher) checkOne(ctx context.Context, t target) (out outcome) {
	start := d.now()

	var pc panics.Catcher
	pc.Try(func() {
		out.record = d.runCheck(ctx, t)
	})
	if r := pc.Recovered(); r != nil {
		d.metrics.IncPanics()
		d.logger.Error("Entry check panicked",
			zap.String("input", t.originalInput),
			zap.String("platform", t.platform.String()),
			zap.Any("panic", r.Value),
		)
		out.panicked = true
		out.record = domain.StatusRecord{
			Platform:   t.platform,
			Identifier: t.identifier,
			Status:     domain.StreamStatusAPIError,
			Details:    fmt.Sprint(r.Value),
		}
	}

	out.record = out.record.Normalized()
	if out.record.Status.IsFailure() {
		d.logger.Warn("Entry check failed",
			zap.String("input", t.originalInput),
			zap.String("platform", t.platform.String()),
			zap.String("status", out.record.Status.String()),
			zap.String("details", out.record.Details),
		)
	}
	d.metrics.ObserveCheck(t.platform, out.record.Status, d.now().Sub(start))
	return out
}

func (d *Dispatcher) runCheck(ctx context.Context, t target) domain.StatusRecord {
	adapter, ok := d.registry.Adapter(t.platform)
	if !ok {
		return platform.UnsupportedRecord(t.platform, t.identifier)
	}

	if t.platform.IsQuotaMetered() && d.quota != nil {
		if used := d.quota.Count(ctx); used >= d.quota.Limit() {
			return platform.FailureRecord(t.platform, t.identifier,
				errors.NewQuotaError("YouTube daily quota exhausted", used, d.quota.Limit()))
		}
	}

	var creds domain.Credentials
	if d.creds != nil {
		c, err := d.creds.Credentials(ctx, t.platform)
		if err != nil {
			return platform.FailureRecord(t.platform, t.identifier, err)
		}
		creds = c
	}

	checkCtx, cancel := context.WithTimeout(ctx, d.cfg.CheckTimeout)
	defer cancel()
	return adapter.Check(checkCtx, t.identifier, creds)
}

func (d *Dispatcher) notifySummary(res CycleResult) {
	if res.Stale {
		return
	}
	if res.Panicked > 0 {
		d.sink.NotifyMessage("Some checks failed during refresh", domain.SeverityWarning, d.cfg.MessageTTL)
		return
	}
	if res.Checked == 0 {
		return
	}
	severity := domain.SeveritySuccess
	if res.Failed > 0 {
		severity = domain.SeverityWarning
	}
	text := fmt.Sprintf("Checked %d: %d live, %d offline, %d with errors", res.Checked, res.Live, res.Offline, res.Failed)
	d.sink.NotifyMessage(text, severity, d.cfg.MessageTTL)
}

// restartTimer cancels the running refresh timer, if any, and installs a new one.
func (d *Dispatcher) restartTimer() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.stopTimer != nil {
		d.stopTimer()
	}
	ctx, cancel := context.WithCancel(d.lifetime)
	d.stopTimer = cancel
	go d.runTimer(ctx, d.lifetime)
}

// runTimer schedules the next automatic cycle only after the previous one has finished.
func (d *Dispatcher) runTimer(ctx, cycleCtx context.Context) {
	timer := time.NewTimer(d.cfg.RefreshInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if ctx.Err() != nil {
				return
			}
			d.CheckAll(cycleCtx, false)
			timer.Reset(d.cfg.RefreshInterval)
		}
	}
}

// Stop cancels the refresh timer. In-flight checks are left to finish.
func (d *Dispatcher) Stop() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.stopTimer != nil {
		d.stopTimer()
		d.stopTimer = nil
		d.logger.Info("Refresh timer stopped")
	}
}

// Active reports whether a refresh timer is installed.
func (d *Dispatcher) Active() bool {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	return d.stopTimer != nil
}

// Entries returns a copy of the current list.
func (d *Dispatcher) Entries() []domain.MonitoredEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Dispatcher) LastChecked() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastChecked
}

func (d *Dispatcher) snapshotLocked() []domain.MonitoredEntry {
	out := make([]domain.MonitoredEntry, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Clone()
	}
	return out
}
