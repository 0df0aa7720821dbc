package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mealdesk/models"
	"mealdesk/services/store"

	"go.uber.org/zap"
)

// StatusFetcher reads trial and subscription status from the backend.
type StatusFetcher interface {
	GetTrialStatus(ctx context.Context, providerID string) (*models.TrialStatus, error)
	GetSubscription(ctx context.Context, providerID string) (*models.SubscriptionStatus, error)
}

// ErrSyncInFlight is returned by SyncNow when another sync is outstanding.
var ErrSyncInFlight = errors.New("entitlement sync already in flight")

type SyncConfig struct {
	Timeout         time.Duration
	FailClosedAfter time.Duration
	RefreshInterval time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// TrialSync keeps the session's trial/subscription status in step with the
// backend. At most one fetch runs at a time; failures keep the cached status.
type TrialSync struct {
	fetcher StatusFetcher
	store   *store.Store
	writer  *store.SessionWriter
	cfg     SyncConfig
	logger  *zap.Logger

	mu         sync.Mutex
	gen        uint64
	inFlight   bool
	providerID string
	// lastSuccess is when the tracked provider's status was last confirmed.
	lastSuccess time.Time
	lastFailed  bool
	// unconfirmedSince starts the fail-closed window. Zero while confirmed.
	unconfirmedSince time.Time
	onDone           func()

	wg sync.WaitGroup
}

func NewTrialSync(fetcher StatusFetcher, st *store.Store, writer *store.SessionWriter, cfg SyncConfig) *TrialSync {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailClosedAfter <= 0 {
		cfg.FailClosedAfter = 30 * time.Second
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialSync{fetcher: fetcher, store: st, writer: writer, cfg: cfg, logger: logger}
}

// setOnDone registers the callback run after every finished fetch.
func (t *TrialSync) setOnDone(fn func()) {
	t.mu.Lock()
	t.onDone = fn
	t.mu.Unlock()
}

// NeedsSync reports whether providerID's status is missing, failed last time or stale.
func (t *TrialSync) NeedsSync(providerID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight {
		return false
	}
	if providerID != t.providerID || t.lastSuccess.IsZero() || t.lastFailed {
		return true
	}
	return now.Sub(t.lastSuccess) >= t.cfg.RefreshInterval
}

// Unconfirmed reports whether the fail-closed window has run out.
func (t *TrialSync) Unconfirmed(providerID string, now time.Time) bool {
	deadline, ok := t.FailClosedAt(providerID)
	return ok && !now.Before(deadline)
}

// FailClosedAt is when gated screens start being denied, if a window is open.
func (t *TrialSync) FailClosedAt(providerID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if providerID != t.providerID || t.unconfirmedSince.IsZero() {
		return time.Time{}, false
	}
	return t.unconfirmedSince.Add(t.cfg.FailClosedAfter), true
}

// Reset forgets everything tracked. A fetch still running is ignored when it lands.
// Switching providers needs no Reset: the next fetch for the new provider starts
// from scratch on its own.
func (t *TrialSync) Reset() {
	t.mu.Lock()
	if t.providerID == "" && !t.inFlight {
		t.mu.Unlock()
		return
	}
	t.gen++
	t.inFlight = false
	t.providerID = ""
	t.lastSuccess = time.Time{}
	t.lastFailed = false
	t.unconfirmedSince = time.Time{}
	t.mu.Unlock()
}

// Trigger starts a background fetch for providerID unless one is outstanding.
func (t *TrialSync) Trigger(ctx context.Context, providerID string) bool {
	gen, ok := t.begin(providerID)
	if !ok {
		return false
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = t.run(ctx, gen, providerID)
	}()
	return true
}

// SyncNow fetches synchronously. Fetch errors are returned for the caller to
// log; the session keeps its cached status either way.
func (t *TrialSync) SyncNow(ctx context.Context, providerID string) error {
	gen, ok := t.begin(providerID)
	if !ok {
		return ErrSyncInFlight
	}
	return t.run(ctx, gen, providerID)
}

// Wait blocks until background fetches started by Trigger have finished.
func (t *TrialSync) Wait() {
	t.wg.Wait()
}

func (t *TrialSync) begin(providerID string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if providerID != t.providerID {
		t.gen++
		t.inFlight = false
		t.providerID = providerID
		t.lastSuccess = time.Time{}
		t.lastFailed = false
		t.unconfirmedSince = time.Time{}
	}
	if t.inFlight || providerID == "" {
		return 0, false
	}
	t.inFlight = true
	if t.lastSuccess.IsZero() && t.unconfirmedSince.IsZero() {
		t.unconfirmedSince = t.cfg.Now()
	}
	return t.gen, true
}

func (t *TrialSync) run(parent context.Context, gen uint64, providerID string) error {
	ctx, cancel := context.WithTimeout(parent, t.cfg.Timeout)
	defer cancel()

	trial, sub, err := t.fetch(ctx, providerID)
	if err != nil {
		t.logger.Warn("entitlement sync failed, keeping cached status",
			zap.String("providerId", providerID), zap.Error(err))
		t.finish(gen, false)
		return err
	}

	if t.markConfirmed(gen) {
		t.writer.Dispatch(store.EntitlementResolved{ProviderID: providerID, Trial: trial, Subscription: sub})
		t.logger.Debug("entitlement status synced",
			zap.String("providerId", providerID),
			zap.Bool("trialActive", trial.IsActive),
			zap.Bool("subscriptionActive", sub.Active()),
		)
	}
	t.finish(gen, true)
	return nil
}

// fetch reads the trial status, then the subscription. A failed subscription
// read is tolerated while the trial is active.
func (t *TrialSync) fetch(ctx context.Context, providerID string) (*models.TrialStatus, *models.SubscriptionStatus, error) {
	trial, err := t.fetcher.GetTrialStatus(ctx, providerID)
	if err != nil {
		return nil, nil, fmt.Errorf("trial status: %w", err)
	}
	if trial == nil {
		return nil, nil, errors.New("trial status: empty response")
	}
	sub, err := t.fetcher.GetSubscription(ctx, providerID)
	if err != nil {
		if !trial.IsActive {
			return nil, nil, fmt.Errorf("subscription: %w", err)
		}
		t.logger.Debug("subscription read failed during active trial", zap.Error(err))
		sub = t.store.Session().Subscription
	}
	return trial, sub, nil
}

func (t *TrialSync) markConfirmed(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return false
	}
	t.lastSuccess = t.cfg.Now()
	t.lastFailed = false
	t.unconfirmedSince = time.Time{}
	return true
}

func (t *TrialSync) finish(gen uint64, ok bool) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.inFlight = false
	if !ok {
		t.lastFailed = true
		if t.unconfirmedSince.IsZero() {
			t.unconfirmedSince = t.cfg.Now()
		}
	}
	onDone := t.onDone
	t.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}
