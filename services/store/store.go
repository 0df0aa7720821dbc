// Package store is the process-wide application state container. It holds the
// entitlement session and the customer list; each slice has exactly one writer.
package store

import (
	"errors"
	"sync"

	"mealdesk/models"
)

// Slice names a part of the state.
type Slice string

const (
	SliceSession   Slice = "session"
	SliceCustomers Slice = "customers"
)

// Listener is called after a dispatched action changed a slice.
type Listener func(changed Slice)

var ErrWriterClaimed = errors.New("store: slice writer already claimed")

// Store holds the session and customer list slices.
type Store struct {
	mu        sync.RWMutex
	session   models.Session
	customers CustomerListState

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int

	sessionClaimed  bool
	customerClaimed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Session returns a copy of the session slice.
func (s *Store) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.session)
}

// Customers returns a copy of the customer list slice.
func (s *Store) Customers() CustomerListState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customers.clone()
}

// Subscribe registers l and returns a func that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify(changed Slice) {
	s.listenerMu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			ls = append(ls, l)
		}
	}
	s.listenerMu.Unlock()

	for _, l := range ls {
		l(changed)
	}
}

// ClaimSessionWriter hands out the only writer of the session slice.
func (s *Store) ClaimSessionWriter() (*SessionWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionClaimed {
		return nil, ErrWriterClaimed
	}
	s.sessionClaimed = true
	return &SessionWriter{store: s}, nil
}

// ClaimCustomerWriter hands out the only writer of the customer list slice.
func (s *Store) ClaimCustomerWriter() (*CustomerWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customerClaimed {
		return nil, ErrWriterClaimed
	}
	s.customerClaimed = true
	return &CustomerWriter{store: s}, nil
}

// SessionWriter applies session actions.
type SessionWriter struct {
	store *Store
}

// Dispatch applies a and notifies listeners when the session changed.
func (w *SessionWriter) Dispatch(a SessionAction) models.Session {
	w.store.mu.Lock()
	changed := a.reduceSession(&w.store.session)
	out := copySession(w.store.session)
	w.store.mu.Unlock()

	if changed {
		w.store.notify(SliceSession)
	}
	return out
}

// CustomerWriter applies customer list actions.
type CustomerWriter struct {
	store *Store
}

// Dispatch applies a. It reports whether the action was accepted; rejected actions
// (stale epoch, guard held) leave the state untouched and notify nobody.
func (w *CustomerWriter) Dispatch(a CustomerAction) (CustomerListState, bool) {
	w.store.mu.Lock()
	applied := a.reduceCustomers(&w.store.customers)
	out := w.store.customers.clone()
	w.store.mu.Unlock()

	if applied {
		w.store.notify(SliceCustomers)
	}
	return out, applied
}

func copySession(s models.Session) models.Session {
	out := s
	if s.Trial != nil {
		trial := *s.Trial
		out.Trial = &trial
	}
	if s.Subscription != nil {
		sub := *s.Subscription
		out.Subscription = &sub
	}
	return out
}
