package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"mealdesk/apperrors"
	"mealdesk/models"
	"mealdesk/services/remote/remotetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Token:   func() string { return "tok-123" },
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func newBackend(t *testing.T) *remotetest.Server {
	t.Helper()
	server := remotetest.NewServer()
	t.Cleanup(server.Close)
	return server
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "  "})
	require.Error(t, err)
}

func TestListCustomersPaginatesWithCursor(t *testing.T) {
	backend := newBackend(t)
	seeded := backend.Seed("p1", 15)
	client := mustClient(t, backend.URL)
	ctx := context.Background()

	first, err := client.ListCustomers(ctx, "p1", 10, nil)
	require.NoError(t, err)
	require.Len(t, first.Data, 10)
	assert.True(t, first.Pagination.HasMore)
	assert.Equal(t, 15, first.Pagination.TotalItems)
	assert.Equal(t, seeded[0].ID, first.Data[0].ID)
	assert.Equal(t, "Bearer tok-123", backend.LastAuthorization())

	cursor := first.Pagination.Cursor()
	require.NotNil(t, cursor)
	assert.Equal(t, seeded[9].ID, cursor.LastID)

	second, err := client.ListCustomers(ctx, "p1", 10, cursor)
	require.NoError(t, err)
	require.Len(t, second.Data, 5)
	assert.False(t, second.Pagination.HasMore)
	assert.Equal(t, seeded[10].ID, second.Data[0].ID)

	query, err := url.ParseQuery(backend.LastQuery(remotetest.RouteList))
	require.NoError(t, err)
	assert.Equal(t, "10", query.Get("limit"))
	assert.Equal(t, cursor.LastID, query.Get("lastId"))
	assert.Equal(t, cursor.LastCreatedAt, query.Get("lastCreatedAt"))
}

func TestCreateCustomerUnwrapsDataEnvelope(t *testing.T) {
	backend := newBackend(t)
	client := mustClient(t, backend.URL)

	created, err := client.CreateCustomer(context.Background(), models.Customer{
		Name: "Asha", Phone: "9876543210", Address: "1 Lake View", Pincode: "560034",
		City: "Bengaluru", State: "Karnataka", Area: "Koramangala",
		Preference: models.PreferenceJain, IsActive: true, ProviderID: "p1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, "Asha", created.Name)
}

func TestCreateCustomerDuplicatePhoneIsConflict(t *testing.T) {
	backend := newBackend(t)
	seeded := backend.Seed("p1", 1)
	client := mustClient(t, backend.URL)

	dup := seeded[0]
	dup.ID = ""
	_, err := client.CreateCustomer(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "Customer with this phone number already exists", apperrors.Message(err))
}

func TestServerErrorCarriesPayloadMessage(t *testing.T) {
	backend := newBackend(t)
	backend.Fail(remotetest.RouteDelete, http.StatusInternalServerError, "database unavailable")
	backend.Fail(remotetest.RouteDelete, http.StatusBadGateway, "")
	client := mustClient(t, backend.URL)

	_, err := client.DeleteCustomer(context.Background(), "c1")
	require.Error(t, err)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindServer, appErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, "database unavailable", appErr.UserMessage())

	_, err = client.DeleteCustomer(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, apperrors.GenericMessage, apperrors.Message(err))
}

func TestDeleteCustomerReturnsEchoedID(t *testing.T) {
	backend := newBackend(t)
	seeded := backend.Seed("p1", 2)
	client := mustClient(t, backend.URL)

	id, err := client.DeleteCustomer(context.Background(), seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[1].ID, id)
	assert.Len(t, backend.Customers("p1"), 1)
}

func TestToggleAndUpdateCustomer(t *testing.T) {
	backend := newBackend(t)
	seeded := backend.Seed("p1", 1)
	client := mustClient(t, backend.URL)
	ctx := context.Background()

	toggled, err := client.ToggleCustomerActive(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	city := "Mysuru"
	updated, err := client.UpdateCustomer(ctx, seeded[0].ID, models.CustomerPatch{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Mysuru", updated.City)
	assert.Equal(t, seeded[0].Name, updated.Name)
}

func TestTrialAndSubscriptionStatus(t *testing.T) {
	backend := newBackend(t)
	backend.SetTrial("p1", models.TrialStatus{IsActive: false, RequiresSubscription: true})
	client := mustClient(t, backend.URL)
	ctx := context.Background()

	trial, err := client.GetTrialStatus(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, trial.IsActive)
	assert.True(t, trial.RequiresSubscription)

	sub, err := client.GetSubscription(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, sub, "a provider without a subscription gets no record")

	backend.SetSubscription("p1", models.SubscriptionActive)
	sub, err = client.GetSubscription(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.True(t, sub.Active())
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := mustClient(t, baseURL)
	_, err := client.GetTrialStatus(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
}

func TestMalformedListIsRejectedAtBoundary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"name":"no id"}],"pagination":{"hasMore":false,"totalItems":1}}`))
	}))
	t.Cleanup(server.Close)

	client := mustClient(t, server.URL)
	_, err := client.ListCustomers(context.Background(), "p1", 10, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServer))
}
