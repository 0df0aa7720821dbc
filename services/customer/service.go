// Package customer keeps the provider's customer list in step with the backend:
// cursor pagination, refresh, mutations and optimistic active toggles.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mealdesk/apperrors"
	"mealdesk/models"
	"mealdesk/services/store"

	"go.uber.org/zap"
)

var (
	// ErrNoCursor rejects LoadMore before a first page supplied a cursor.
	ErrNoCursor = errors.New("load more requires a cursor from a previous page")
	// ErrUnknownCustomer is returned when toggling a record that is not listed.
	ErrUnknownCustomer = errors.New("customer is not in the list")
)

// Backend is the remote customer collection.
type Backend interface {
	ListCustomers(ctx context.Context, providerID string, limit int, cursor *models.Cursor) (*models.CustomerPage, error)
	CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id string) (string, error)
	ToggleCustomerActive(ctx context.Context, id string) (*models.Customer, error)
}

// TotalsSink keeps the page-1 totals between runs.
type TotalsSink interface {
	SaveCustomerTotals(ctx context.Context, total int, refreshedAt time.Time) error
}

// CustomerService is the customer list synchronization engine.
type CustomerService interface {
	InitialLoad(ctx context.Context, providerID string) error
	Refresh(ctx context.Context, providerID string) error
	LoadMore(ctx context.Context, providerID string) error
	Create(ctx context.Context, customer models.Customer) (*models.Customer, error)
	Update(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, providerID, id string, currentValue bool) error
	Reset()
	RestoreTotals(total int)
}

type Config struct {
	PageSize         int
	LoadMoreCooldown time.Duration
	Totals           TotalsSink
	Logger           *zap.Logger
	Now              func() time.Time
}

// DefaultCustomerService owns the customer list slice of the store.
type DefaultCustomerService struct {
	backend Backend
	writer  *store.CustomerWriter
	store   *store.Store
	cfg     Config
	logger  *zap.Logger

	// background refreshes started after a failed toggle
	wg sync.WaitGroup
}

func NewCustomerService(backend Backend, st *store.Store, writer *store.CustomerWriter, cfg Config) *DefaultCustomerService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultCustomerService{backend: backend, writer: writer, store: st, cfg: cfg, logger: logger}
}

// InitialLoad fetches page 1 once per session. Later calls are no-ops until Reset.
func (s *DefaultCustomerService) InitialLoad(ctx context.Context, providerID string) error {
	st, ok := s.writer.Dispatch(store.FetchStarted{Mode: store.FetchInitial, At: s.cfg.Now()})
	if !ok {
		return nil
	}
	return s.fetchFirstPage(ctx, providerID, store.FetchInitial, st.Generation)
}

// Refresh refetches page 1 and replaces the list. An outstanding LoadMore is
// superseded and its result dropped.
func (s *DefaultCustomerService) Refresh(ctx context.Context, providerID string) error {
	st, ok := s.writer.Dispatch(store.FetchStarted{Mode: store.FetchRefresh, At: s.cfg.Now()})
	if !ok {
		return nil
	}
	return s.fetchFirstPage(ctx, providerID, store.FetchRefresh, st.Generation)
}

func (s *DefaultCustomerService) fetchFirstPage(ctx context.Context, providerID string, mode store.FetchMode, gen uint64) error {
	page, err := s.backend.ListCustomers(ctx, providerID, s.cfg.PageSize, nil)
	if err != nil {
		s.writer.Dispatch(store.FetchFailed{Mode: mode, Generation: gen, Err: err, At: s.cfg.Now()})
		s.logger.Warn("customer list fetch failed",
			zap.String("mode", string(mode)), zap.String("providerId", providerID), zap.Error(err))
		return fmt.Errorf("failed to load customers: %w", err)
	}

	now := s.cfg.Now()
	st, applied := s.writer.Dispatch(store.PageLoaded{Mode: mode, Generation: gen, Page: *page, At: now})
	if !applied {
		s.logger.Debug("dropping stale customer page", zap.String("mode", string(mode)), zap.Uint64("generation", gen))
		return nil
	}
	s.saveTotals(ctx, st.TotalItems, now)
	return nil
}

// LoadMore appends the next page. It is a no-op while a fetch is outstanding,
// during the cool-down and once hasMore is false.
func (s *DefaultCustomerService) LoadMore(ctx context.Context, providerID string) error {
	if s.store.Customers().Cursor == nil {
		return ErrNoCursor
	}
	st, ok := s.writer.Dispatch(store.FetchStarted{Mode: store.FetchMore, At: s.cfg.Now()})
	if !ok {
		return nil
	}

	page, err := s.backend.ListCustomers(ctx, providerID, s.cfg.PageSize, st.Cursor)
	if err != nil {
		s.writer.Dispatch(store.FetchFailed{
			Mode: store.FetchMore, Generation: st.Generation, Err: err,
			At: s.cfg.Now(), Cooldown: s.cfg.LoadMoreCooldown,
		})
		s.logger.Warn("customer load more failed", zap.String("providerId", providerID), zap.Error(err))
		return fmt.Errorf("failed to load more customers: %w", err)
	}

	_, applied := s.writer.Dispatch(store.PageLoaded{
		Mode: store.FetchMore, Generation: st.Generation, Page: *page,
		At: s.cfg.Now(), Cooldown: s.cfg.LoadMoreCooldown,
	})
	if !applied {
		s.logger.Debug("dropping stale customer page", zap.String("mode", string(store.FetchMore)), zap.Uint64("generation", st.Generation))
	}
	return nil
}

// Create sends a new record and puts the server copy at the head of the list.
func (s *DefaultCustomerService) Create(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	customer.ID = ""
	if err := checkFields("create_customer", customer); err != nil {
		return nil, err
	}
	created, err := s.backend.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.writer.Dispatch(store.CustomerCreated{Customer: *created})
	s.logger.Info("customer created", zap.String("customerId", created.ID))
	return created, nil
}

// Update sends patch and replaces the listed record with the server copy.
func (s *DefaultCustomerService) Update(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("update_customer", map[string]string{"id": "is required"})
	}
	if err := checkFields("update_customer", patch); err != nil {
		return nil, err
	}
	updated, err := s.backend.UpdateCustomer(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.writer.Dispatch(store.CustomerUpdated{Customer: *updated})
	return updated, nil
}

// Delete removes the record remotely, then locally.
func (s *DefaultCustomerService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("delete_customer", map[string]string{"id": "is required"})
	}
	deleted, err := s.backend.DeleteCustomer(ctx, id)
	if err != nil {
		return err
	}
	s.writer.Dispatch(store.CustomerDeleted{ID: deleted})
	s.logger.Info("customer deleted", zap.String("customerId", deleted))
	return nil
}

// ToggleActive shows !currentValue immediately and flips the record remotely.
// On failure the display rolls back to the stored value and a Refresh runs in
// the background.
func (s *DefaultCustomerService) ToggleActive(ctx context.Context, providerID, id string, currentValue bool) error {
	entry, found := s.store.Customers().Find(id)
	if !found {
		return ErrUnknownCustomer
	}
	if entry.Pending != nil {
		return nil
	}
	if _, ok := s.writer.Dispatch(store.ToggleRequested{ID: id, Desired: !currentValue}); !ok {
		return nil
	}

	updated, err := s.backend.ToggleCustomerActive(ctx, id)
	if err != nil {
		s.writer.Dispatch(store.ToggleResolved{ID: id})
		s.logger.Warn("toggle failed, rolling back",
			zap.String("customerId", id), zap.Bool("restored", entry.Record.IsActive), zap.Error(err))

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.Refresh(context.WithoutCancel(ctx), providerID); err != nil {
				s.logger.Warn("refresh after failed toggle", zap.Error(err))
			}
		}()
		return err
	}

	s.writer.Dispatch(store.ToggleResolved{ID: id, Record: updated})
	return nil
}

// Reset clears the list so the next InitialLoad fetches again.
func (s *DefaultCustomerService) Reset() {
	s.writer.Dispatch(store.ListReset{})
}

// RestoreTotals seeds the empty list with the count kept from the previous run.
func (s *DefaultCustomerService) RestoreTotals(total int) {
	s.writer.Dispatch(store.TotalsRestored{TotalItems: total})
}

// Wait blocks until background refreshes have finished.
func (s *DefaultCustomerService) Wait() {
	s.wg.Wait()
}

func (s *DefaultCustomerService) saveTotals(ctx context.Context, total int, at time.Time) {
	if s.cfg.Totals == nil {
		return
	}
	if err := s.cfg.Totals.SaveCustomerTotals(ctx, total, at); err != nil {
		s.logger.Warn("failed to persist customer totals", zap.Error(err))
	}
}
