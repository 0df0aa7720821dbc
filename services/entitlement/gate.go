package entitlement

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mealdesk/models"
	"mealdesk/services/store"

	"go.uber.org/zap"
)

// PreferenceLoader loads the business meal preferences into the session.
type PreferenceLoader interface {
	LoadMealPreferences(ctx context.Context) error
}

// Gate evaluates the current screen on every screen change and session mutation
// and issues at most one navigation per evaluation.
type Gate struct {
	store  *store.Store
	sync   *TrialSync
	prefs  PreferenceLoader
	nav    Navigator
	logger *zap.Logger
	now    func() time.Time

	evaluating   atomic.Bool
	dirty        atomic.Bool
	dirtySync    atomic.Bool
	loadingPrefs atomic.Bool

	mu          sync.Mutex
	ctx         context.Context
	screen      models.Screen
	decision    models.Decision
	decidedFor  models.Screen
	timer       *time.Timer
	timerAt     time.Time
	unsubscribe func()
}

type GateConfig struct {
	Logger *zap.Logger
	Now    func() time.Time
}

func NewGate(st *store.Store, trialSync *TrialSync, prefs PreferenceLoader, nav Navigator, cfg GateConfig) *Gate {
	g := &Gate{
		store:    st,
		sync:     trialSync,
		prefs:    prefs,
		nav:      nav,
		logger:   cfg.Logger,
		now:      cfg.Now,
		ctx:      context.Background(),
		decision: models.Hold(),
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	trialSync.setOnDone(func() { g.evaluate(false) })
	return g
}

// Start subscribes the gate to session changes. Side effects run under ctx.
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	g.ctx = ctx
	g.unsubscribe = g.store.Subscribe(func(changed store.Slice) {
		if changed == store.SliceSession {
			g.evaluate(true)
		}
	})
	g.mu.Unlock()
}

// Stop unsubscribes and cancels the pending re-evaluation timer.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// Decision returns the latest decision.
func (g *Gate) Decision() models.Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// Screen returns the screen the view last reported.
func (g *Gate) Screen() models.Screen {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.screen
}

// Current returns the latest decision together with the screen it was made for.
func (g *Gate) Current() (models.Screen, models.Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decidedFor, g.decision
}

// OnScreenChange records the screen the view moved to and returns the decision
// for it. If a running evaluation has not reached screen yet, the decision is
// computed without side effects and the running evaluation repeats for screen.
func (g *Gate) OnScreenChange(screen models.Screen) models.Decision {
	g.mu.Lock()
	g.screen = screen
	g.mu.Unlock()
	g.evaluate(true)

	g.mu.Lock()
	decidedFor, decision := g.decidedFor, g.decision
	g.mu.Unlock()
	if decidedFor == screen {
		return decision
	}
	return g.decide(screen, decision)
}

// Refresh re-fetches entitlement status for the signed-in provider.
func (g *Gate) Refresh(ctx context.Context) error {
	session := g.store.Session()
	if !session.Authenticated() {
		return nil
	}
	return g.sync.SyncNow(ctx, session.ProviderID)
}

// evaluate runs one evaluation, or marks the running one dirty so it repeats.
// withSync allows the evaluation to start a trial status fetch.
func (g *Gate) evaluate(withSync bool) models.Decision {
	if withSync {
		g.dirtySync.Store(true)
	}
	g.dirty.Store(true)
	for g.evaluating.CompareAndSwap(false, true) {
		for g.dirty.Swap(false) {
			g.evaluateOnce(g.dirtySync.Swap(false))
		}
		g.evaluating.Store(false)
		if !g.dirty.Load() {
			break
		}
	}
	return g.Decision()
}

func (g *Gate) evaluateOnce(withSync bool) {
	session := g.store.Session()
	now := g.now()

	g.mu.Lock()
	screen := g.screen
	prev := g.decision
	ctx := g.ctx
	g.mu.Unlock()

	if session.Authenticated() {
		g.runSideEffects(ctx, session, now, withSync)
	} else {
		// a fetch still running for the signed-out provider is dropped
		g.sync.Reset()
	}

	decision := Evaluate(screen, session, prev, g.syncState(session, now))

	g.mu.Lock()
	g.decision = decision
	g.decidedFor = screen
	g.mu.Unlock()

	if decision.Kind == models.DecisionHold && session.Authenticated() {
		g.scheduleRecheck(session.ProviderID, now)
	}
	if decision != prev {
		g.logger.Debug("entitlement decision",
			zap.String("screen", string(screen)),
			zap.String("kind", string(decision.Kind)),
			zap.String("target", string(decision.Target)),
		)
	}
	suspended := session.Authenticated() && session.MealPreferences.Status == models.PreferencesLoading
	if decision.IsRedirect() && !suspended && g.nav != nil {
		g.nav.Navigate(decision)
	}
}

// decide evaluates screen against the current session without side effects.
func (g *Gate) decide(screen models.Screen, prev models.Decision) models.Decision {
	session := g.store.Session()
	return Evaluate(screen, session, prev, g.syncState(session, g.now()))
}

func (g *Gate) syncState(session models.Session, now time.Time) SyncState {
	var state SyncState
	if session.Authenticated() {
		state.Unconfirmed = g.sync.Unconfirmed(session.ProviderID, now)
	}
	return state
}

func (g *Gate) runSideEffects(ctx context.Context, session models.Session, now time.Time, withSync bool) {
	if session.MealPreferences.Status == models.PreferencesUnloaded && g.prefs != nil &&
		g.loadingPrefs.CompareAndSwap(false, true) {
		go func() {
			defer g.loadingPrefs.Store(false)
			if err := g.prefs.LoadMealPreferences(ctx); err != nil {
				g.logger.Warn("failed to load meal preferences", zap.Error(err))
			}
		}()
	}
	if !withSync {
		return
	}
	if !session.StatusResolved() || g.sync.NeedsSync(session.ProviderID, now) {
		g.sync.Trigger(ctx, session.ProviderID)
	}
}

// scheduleRecheck re-evaluates once the fail-closed window ends so a held
// screen does not wait forever.
func (g *Gate) scheduleRecheck(providerID string, now time.Time) {
	deadline, ok := g.sync.FailClosedAt(providerID)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil && g.timerAt.Equal(deadline) {
		return
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timerAt = deadline
	g.timer = time.AfterFunc(deadline.Sub(now), func() { g.evaluate(true) })
}
