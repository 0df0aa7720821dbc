package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mealdesk/models"
	"mealdesk/services/store"

	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errBackendDown = errors.New("backend down")

type fakeFetcher struct {
	mu         sync.Mutex
	trial      *models.TrialStatus
	sub        *models.SubscriptionStatus
	trialErr   error
	subErr     error
	trialCalls int
	block      chan struct{}
}

func (f *fakeFetcher) set(trial *models.TrialStatus, sub *models.SubscriptionStatus, trialErr, subErr error) {
	f.mu.Lock()
	f.trial, f.sub, f.trialErr, f.subErr = trial, sub, trialErr, subErr
	f.mu.Unlock()
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trialCalls
}

func (f *fakeFetcher) GetTrialStatus(ctx context.Context, providerID string) (*models.TrialStatus, error) {
	f.mu.Lock()
	f.trialCalls++
	block := f.block
	trial, err := f.trial, f.trialErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if trial == nil {
		return &models.TrialStatus{IsActive: true, DaysLeft: 14}, nil
	}
	out := *trial
	return &out, nil
}

func (f *fakeFetcher) GetSubscription(ctx context.Context, providerID string) (*models.SubscriptionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	if f.sub == nil {
		return nil, nil
	}
	out := *f.sub
	return &out, nil
}

type harness struct {
	store   *store.Store
	writer  *store.SessionWriter
	fetcher *fakeFetcher
	sync    *TrialSync
	clock   *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.New()
	writer, err := st.ClaimSessionWriter()
	require.NoError(t, err)
	clk := newClock()
	fetcher := &fakeFetcher{}
	return &harness{
		store:   st,
		writer:  writer,
		fetcher: fetcher,
		clock:   clk,
		sync: NewTrialSync(fetcher, st, writer, SyncConfig{
			Timeout:         2 * time.Second,
			FailClosedAfter: 30 * time.Second,
			RefreshInterval: 5 * time.Minute,
			Now:             clk.Now,
		}),
	}
}

func (h *harness) signIn(providerID string, prefs models.MealPreferences) {
	h.writer.Dispatch(store.SignedIn{Token: "tok-" + providerID, ProviderID: providerID})
	h.writer.Dispatch(store.PreferencesLoaded{Prefs: prefs})
}
