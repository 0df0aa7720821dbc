package cron

import (
	"context"
	"errors"
	"time"

	"mealdesk/services/entitlement"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher re-fetches entitlement status for the signed-in provider.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// EntitlementWorker runs the periodic entitlement refresh.
type EntitlementWorker struct {
	cron      *robfig.Cron
	refresher Refresher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEntitlementWorker schedules refresher on spec (standard cron syntax or
// descriptors such as "@every 5m").
func NewEntitlementWorker(spec string, refresher Refresher, timeout time.Duration, logger *zap.Logger) (*EntitlementWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &EntitlementWorker{
		cron:      robfig.New(),
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
	}
	if _, err := w.cron.AddFunc(spec, w.runRefresh); err != nil {
		return nil, err
	}
	return w, nil
}

// Start runs the scheduler in the background.
func (w *EntitlementWorker) Start() {
	w.cron.Start()
	w.logger.Info("entitlement worker started", zap.Int("jobs", len(w.cron.Entries())))
}

// Stop halts scheduling and waits for a running refresh to finish.
func (w *EntitlementWorker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *EntitlementWorker) runRefresh() {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	err := w.refresher.Refresh(ctx)
	switch {
	case err == nil:
		w.logger.Debug("scheduled entitlement refresh done")
	case errors.Is(err, entitlement.ErrSyncInFlight):
		w.logger.Debug("scheduled entitlement refresh skipped, sync already running")
	default:
		w.logger.Warn("scheduled entitlement refresh failed", zap.Error(err))
	}
}
