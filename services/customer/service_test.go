package customer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"mealdesk/apperrors"
	"mealdesk/models"
	"mealdesk/services/remote"
	"mealdesk/services/remote/remotetest"
	"mealdesk/services/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const provider = "prov-1"

type clock struct {
	mu  sync.Mutex
	now time.Time
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

type totalsRecorder struct {
	mu    sync.Mutex
	total int
	saves int
}

func (r *totalsRecorder) SaveCustomerTotals(ctx context.Context, total int, refreshedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	r.saves++
	return nil
}

// moreGate blocks cursor requests until released.
type moreGate struct {
	Backend
	release chan struct{}
	entered chan struct{}
}

func (g *moreGate) ListCustomers(ctx context.Context, providerID string, limit int, cursor *models.Cursor) (*models.CustomerPage, error) {
	if cursor != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Backend.ListCustomers(ctx, providerID, limit, cursor)
}

type fixture struct {
	svc     *DefaultCustomerService
	store   *store.Store
	server  *remotetest.Server
	clock   *clock
	totals  *totalsRecorder
	backend Backend
}

func newFixture(t *testing.T, wrap func(Backend) Backend) *fixture {
	t.Helper()
	server := remotetest.NewServer()
	t.Cleanup(server.Close)

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		Token:   func() string { return "tok" },
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var backend Backend = client
	if wrap != nil {
		backend = wrap(client)
	}

	st := store.New()
	writer, err := st.ClaimCustomerWriter()
	require.NoError(t, err)
	clk := &clock{now: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	totals := &totalsRecorder{}
	svc := NewCustomerService(backend, st, writer, Config{
		PageSize:         10,
		LoadMoreCooldown: 300 * time.Millisecond,
		Totals:           totals,
		Now:              clk.Now,
	})
	t.Cleanup(svc.Wait)
	return &fixture{svc: svc, store: st, server: server, clock: clk, totals: totals, backend: backend}
}

func (f *fixture) view() store.CustomerListView {
	return store.NewCustomerListView(f.store.Customers())
}

func ids(customers []models.Customer) []string {
	out := make([]string, len(customers))
	for i, c := range customers {
		out[i] = c.ID
	}
	return out
}

func validCustomer() models.Customer {
	return models.Customer{
		Name: "Meera Iyer", Phone: "9123456789", Email: "meera@example.com",
		Address: "4 Temple Street", Pincode: "600004", City: "Chennai", State: "Tamil Nadu",
		Area: "Mylapore", Preference: models.PreferenceVeg, IsActive: true, ProviderID: provider,
	}
}

func TestInitialLoadThenLoadMoreReachesEnd(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.server.Seed(provider, 15)
	ctx := context.Background()

	require.NoError(t, f.svc.InitialLoad(ctx, provider))
	v := f.view()
	assert.Len(t, v.Customers, 10)
	assert.True(t, v.HasMore)
	assert.Equal(t, 15, v.TotalItems)
	assert.Equal(t, store.PhasePopulated, v.Phase)
	assert.Equal(t, 15, f.totals.total)

	f.clock.Advance(time.Second)
	require.NoError(t, f.svc.LoadMore(ctx, provider))
	v = f.view()
	assert.Len(t, v.Customers, 15)
	assert.False(t, v.HasMore)
	assert.Equal(t, ids(seeded), ids(v.Customers), "server order is preserved")
}

func TestInitialLoadRunsOncePerSession(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 3)
	ctx := context.Background()

	require.NoError(t, f.svc.InitialLoad(ctx, provider))
	require.NoError(t, f.svc.InitialLoad(ctx, provider))
	assert.Equal(t, 1, f.server.Calls(remotetest.RouteList))

	f.svc.Reset()
	assert.Empty(t, f.view().Customers)
	require.NoError(t, f.svc.InitialLoad(ctx, provider))
	assert.Equal(t, 2, f.server.Calls(remotetest.RouteList))
}

func TestLoadMoreWithoutCursorIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 5)

	err := f.svc.LoadMore(context.Background(), provider)
	assert.ErrorIs(t, err, ErrNoCursor)
	assert.Zero(t, f.server.Calls(remotetest.RouteList))
	assert.Equal(t, store.PhaseEmpty, f.view().Phase)
}

func TestLoadMoreAtEndMakesNoCall(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 4)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))
	before := f.view()
	require.False(t, before.HasMore)

	f.clock.Advance(time.Second)
	require.NoError(t, f.svc.LoadMore(ctx, provider))
	assert.Equal(t, 1, f.server.Calls(remotetest.RouteList))
	assert.Equal(t, before.Customers, f.view().Customers)
}

func TestLoadMoreCooldown(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 25)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	require.NoError(t, f.svc.LoadMore(ctx, provider))
	require.NoError(t, f.svc.LoadMore(ctx, provider))
	assert.Equal(t, 2, f.server.Calls(remotetest.RouteList), "second trigger falls inside the cool-down")
	assert.Len(t, f.view().Customers, 20)

	f.clock.Advance(300 * time.Millisecond)
	require.NoError(t, f.svc.LoadMore(ctx, provider))
	assert.Len(t, f.view().Customers, 25)
}

func TestLoadMoreDropsOverlappingRecords(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 15)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	f.server.OverlapNextPage()
	require.NoError(t, f.svc.LoadMore(ctx, provider))

	v := f.view()
	require.Len(t, v.Customers, 15)
	seen := make(map[string]bool)
	for _, c := range v.Customers {
		assert.False(t, seen[c.ID], "duplicate %s", c.ID)
		seen[c.ID] = true
	}
}

func TestRefreshWinsOverOutstandingLoadMore(t *testing.T) {
	gate := &moreGate{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	f := newFixture(t, func(b Backend) Backend {
		gate.Backend = b
		return gate
	})
	f.server.Seed(provider, 15)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	done := make(chan error, 1)
	go func() { done <- f.svc.LoadMore(ctx, provider) }()
	<-gate.entered
	assert.True(t, f.view().LoadingMore)

	f.server.Seed(provider, 2)
	require.NoError(t, f.svc.Refresh(ctx, provider))
	close(gate.release)
	require.NoError(t, <-done)

	v := f.view()
	assert.Len(t, v.Customers, 10, "the superseded page is not appended")
	assert.Equal(t, 17, v.TotalItems)
	assert.False(t, v.LoadingMore)
	assert.Equal(t, f.server.Customers(provider)[0].ID, v.Customers[0].ID)
}

func TestToggleFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.server.Seed(provider, 3)
	target := seeded[1].ID
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	release := f.server.Hold(remotetest.RouteToggle)
	f.server.Fail(remotetest.RouteToggle, http.StatusInternalServerError, "toggle unavailable")

	done := make(chan error, 1)
	go func() { done <- f.svc.ToggleActive(ctx, provider, target, true) }()

	require.Eventually(t, func() bool {
		_, pending := f.view().PendingToggles[target]
		return pending
	}, 2*time.Second, 5*time.Millisecond)
	v := f.view()
	assert.False(t, v.Customers[1].IsActive, "optimistic value is displayed")
	assert.Equal(t, map[string]bool{target: false}, v.PendingToggles)

	release()
	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServer))
	assert.Equal(t, "toggle unavailable", apperrors.Message(err))

	v = f.view()
	assert.True(t, v.Customers[1].IsActive)
	assert.NotContains(t, v.PendingToggles, target)

	f.svc.Wait()
	assert.Equal(t, 2, f.server.Calls(remotetest.RouteList), "failure triggers a refresh")
}

func TestToggleSuccessMergesServerRecord(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.server.Seed(provider, 2)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	require.NoError(t, f.svc.ToggleActive(ctx, provider, seeded[0].ID, true))
	v := f.view()
	assert.False(t, v.Customers[0].IsActive)
	assert.Empty(t, v.PendingToggles)

	assert.ErrorIs(t, f.svc.ToggleActive(ctx, provider, "missing", true), ErrUnknownCustomer)
}

func TestCreateValidatesLocally(t *testing.T) {
	f := newFixture(t, nil)
	bad := validCustomer()
	bad.Phone = "12345"
	bad.Pincode = "abcdef"
	bad.Preference = "vegan"

	_, err := f.svc.Create(context.Background(), bad)
	require.Error(t, err)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "must be exactly 10 digits", appErr.Fields["phone"])
	assert.Equal(t, "must contain only digits", appErr.Fields["pincode"])
	assert.Contains(t, appErr.Fields["preference"], "must be one of")
	assert.Zero(t, f.server.Calls(remotetest.RouteCreate))
}

func TestCreateInsertsAtHead(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 2)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	created, err := f.svc.Create(ctx, validCustomer())
	require.NoError(t, err)
	v := f.view()
	assert.Equal(t, created.ID, v.Customers[0].ID)
	assert.Equal(t, 3, v.TotalItems)

	_, err = f.svc.Create(ctx, validCustomer())
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Len(t, f.view().Customers, 3)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	seeded := f.server.Seed(provider, 3)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	area := "Jayanagar"
	updated, err := f.svc.Update(ctx, seeded[2].ID, models.CustomerPatch{Area: &area})
	require.NoError(t, err)
	assert.Equal(t, "Jayanagar", updated.Area)
	assert.Equal(t, "Jayanagar", f.view().Customers[2].Area)

	badPhone := "98"
	_, err = f.svc.Update(ctx, seeded[2].ID, models.CustomerPatch{Phone: &badPhone})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, 1, f.server.Calls(remotetest.RouteUpdate), "invalid patch never leaves the client")

	require.NoError(t, f.svc.Delete(ctx, seeded[0].ID))
	v := f.view()
	assert.Len(t, v.Customers, 2)
	assert.Equal(t, 2, v.TotalItems)

	f.server.Fail(remotetest.RouteDelete, http.StatusInternalServerError, "")
	err = f.svc.Delete(ctx, seeded[1].ID)
	assert.Equal(t, apperrors.GenericMessage, apperrors.Message(err))
	assert.Len(t, f.view().Customers, 2)
}

func TestFailedRefreshKeepsList(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Seed(provider, 4)
	ctx := context.Background()
	require.NoError(t, f.svc.InitialLoad(ctx, provider))

	f.server.Fail(remotetest.RouteList, http.StatusServiceUnavailable, "maintenance")
	err := f.svc.Refresh(ctx, provider)
	require.Error(t, err)

	v := f.view()
	assert.Len(t, v.Customers, 4)
	assert.Equal(t, "maintenance", v.Error)
	assert.False(t, v.Refreshing)
}

func TestRestoreTotalsSeedsEmptyList(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.RestoreTotals(42)
	assert.Equal(t, 42, f.view().TotalItems)
	assert.Equal(t, store.PhaseEmpty, f.view().Phase)
}
