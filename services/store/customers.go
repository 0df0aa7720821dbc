package store

import (
	"time"

	"mealdesk/models"
)

// PendingChange is an optimistic active/inactive change awaiting the backend.
type PendingChange struct {
	Committed bool
	Desired   bool
}

// CustomerEntry is a list record that is either committed (Pending == nil) or
// carries a pending change on top of its committed value.
type CustomerEntry struct {
	Record  models.Customer
	Pending *PendingChange
}

// EffectiveActive is the value the view displays.
func (e CustomerEntry) EffectiveActive() bool {
	if e.Pending != nil {
		return e.Pending.Desired
	}
	return e.Record.IsActive
}

// View returns the record as displayed.
func (e CustomerEntry) View() models.Customer {
	out := e.Record
	out.IsActive = e.EffectiveActive()
	return out
}

// ListPhase is the lifecycle phase of the customer list.
type ListPhase string

const (
	PhaseEmpty       ListPhase = "empty"
	PhaseLoading     ListPhase = "loading"
	PhasePopulated   ListPhase = "populated"
	PhaseRefreshing  ListPhase = "refreshing"
	PhaseLoadingMore ListPhase = "loadingMore"
)

// FetchMode distinguishes the three list fetches.
type FetchMode string

const (
	FetchInitial FetchMode = "initial"
	FetchRefresh FetchMode = "refresh"
	FetchMore    FetchMode = "more"
)

// CustomerListState is the customer list slice.
type CustomerListState struct {
	Entries         []CustomerEntry
	Loading         bool
	Refreshing      bool
	LoadingMore     bool
	HasMore         bool
	TotalItems      int
	Cursor          *models.Cursor
	LastRefreshedAt time.Time
	Err             error
	Initialized     bool
	// Generation is the fetch epoch. Results tagged with an older epoch are dropped.
	Generation    uint64
	CooldownUntil time.Time
}

// Phase derives the lifecycle phase from the flags.
func (s CustomerListState) Phase() ListPhase {
	switch {
	case s.Refreshing:
		return PhaseRefreshing
	case s.Loading:
		return PhaseLoading
	case s.LoadingMore:
		return PhaseLoadingMore
	case len(s.Entries) == 0 && s.LastRefreshedAt.IsZero():
		return PhaseEmpty
	default:
		return PhasePopulated
	}
}

// Find returns the entry with id.
func (s CustomerListState) Find(id string) (CustomerEntry, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Entries[i], true
	}
	return CustomerEntry{}, false
}

// PendingToggles maps customer id to the desired active value of every pending toggle.
func (s CustomerListState) PendingToggles() map[string]bool {
	out := make(map[string]bool)
	for _, e := range s.Entries {
		if e.Pending != nil {
			out[e.Record.ID] = e.Pending.Desired
		}
	}
	return out
}

func (s CustomerListState) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range s.Entries {
		if e.Record.ID == id {
			return i
		}
	}
	return -1
}

func (s CustomerListState) clone() CustomerListState {
	out := s
	out.Entries = make([]CustomerEntry, len(s.Entries))
	for i, e := range s.Entries {
		out.Entries[i] = e
		if e.Pending != nil {
			p := *e.Pending
			out.Entries[i].Pending = &p
		}
	}
	if s.Cursor != nil {
		c := *s.Cursor
		out.Cursor = &c
	}
	return out
}

// CustomerAction is one of the closed set of customer list mutations.
type CustomerAction interface {
	reduceCustomers(s *CustomerListState) bool
}

// FetchStarted claims the in-flight guard for a list fetch. It is rejected while an
// equivalent fetch is outstanding. Initial and refresh fetches open a new epoch.
type FetchStarted struct {
	Mode FetchMode
	At   time.Time
}

func (a FetchStarted) reduceCustomers(s *CustomerListState) bool {
	switch a.Mode {
	case FetchInitial:
		if s.Initialized || s.Loading || s.Refreshing {
			return false
		}
		s.Initialized = true
		s.Loading = true
	case FetchRefresh:
		if s.Loading || s.Refreshing {
			return false
		}
		s.Refreshing = true
		// An outstanding load-more belongs to the old epoch now.
		s.LoadingMore = false
	case FetchMore:
		if s.LoadingMore || s.Loading || s.Refreshing || !s.HasMore || s.Cursor == nil {
			return false
		}
		if a.At.Before(s.CooldownUntil) {
			return false
		}
		s.LoadingMore = true
		s.Err = nil
		return true
	default:
		return false
	}
	s.Generation++
	s.Err = nil
	return true
}

// PageLoaded applies a successful fetch that started in epoch Generation.
type PageLoaded struct {
	Mode       FetchMode
	Generation uint64
	Page       models.CustomerPage
	At         time.Time
	Cooldown   time.Duration
}

func (a PageLoaded) reduceCustomers(s *CustomerListState) bool {
	if a.Generation != s.Generation {
		return false
	}
	switch a.Mode {
	case FetchInitial, FetchRefresh:
		if a.Mode == FetchInitial && !s.Loading {
			return false
		}
		if a.Mode == FetchRefresh && !s.Refreshing {
			return false
		}
		s.Entries = replaceEntries(s.Entries, a.Page.Data)
		s.Cursor = a.Page.Pagination.Cursor()
		s.LastRefreshedAt = a.At
		s.Initialized = true
		s.Loading = false
		s.Refreshing = false
	case FetchMore:
		if !s.LoadingMore {
			return false
		}
		s.Entries = appendEntries(s.Entries, a.Page.Data)
		if next := a.Page.Pagination.Cursor(); next != nil {
			s.Cursor = next
		}
		s.LoadingMore = false
		s.CooldownUntil = a.At.Add(a.Cooldown)
	default:
		return false
	}
	s.HasMore = a.Page.Pagination.HasMore
	s.TotalItems = a.Page.Pagination.TotalItems
	s.Err = nil
	return true
}

// FetchFailed records a failed fetch. Existing entries are kept.
type FetchFailed struct {
	Mode       FetchMode
	Generation uint64
	Err        error
	At         time.Time
	Cooldown   time.Duration
}

func (a FetchFailed) reduceCustomers(s *CustomerListState) bool {
	if a.Generation != s.Generation {
		return false
	}
	switch a.Mode {
	case FetchInitial:
		if !s.Loading {
			return false
		}
		s.Loading = false
		// Let a later InitialLoad try again.
		s.Initialized = false
	case FetchRefresh:
		if !s.Refreshing {
			return false
		}
		s.Refreshing = false
	case FetchMore:
		if !s.LoadingMore {
			return false
		}
		s.LoadingMore = false
		s.CooldownUntil = a.At.Add(a.Cooldown)
	default:
		return false
	}
	s.Err = a.Err
	return true
}

// CustomerCreated inserts a server-confirmed record at the head.
type CustomerCreated struct {
	Customer models.Customer
}

func (a CustomerCreated) reduceCustomers(s *CustomerListState) bool {
	existed := s.indexOf(a.Customer.ID) >= 0
	s.Entries = prepend(removeID(s.Entries, a.Customer.ID), CustomerEntry{Record: a.Customer})
	if !existed {
		s.TotalItems++
	}
	return true
}

// CustomerUpdated replaces a record in place, or prepends it when absent.
type CustomerUpdated struct {
	Customer models.Customer
}

func (a CustomerUpdated) reduceCustomers(s *CustomerListState) bool {
	if i := s.indexOf(a.Customer.ID); i >= 0 {
		entry := s.Entries[i]
		entry.Record = a.Customer
		if entry.Pending != nil {
			entry.Pending.Committed = a.Customer.IsActive
		}
		s.Entries[i] = entry
		return true
	}
	s.Entries = prepend(s.Entries, CustomerEntry{Record: a.Customer})
	return true
}

// CustomerDeleted removes a record.
type CustomerDeleted struct {
	ID string
}

func (a CustomerDeleted) reduceCustomers(s *CustomerListState) bool {
	s.Entries = removeID(s.Entries, a.ID)
	if s.TotalItems > 0 {
		s.TotalItems--
	}
	return true
}

// ToggleRequested marks a record as pending its Desired active value.
type ToggleRequested struct {
	ID      string
	Desired bool
}

func (a ToggleRequested) reduceCustomers(s *CustomerListState) bool {
	i := s.indexOf(a.ID)
	if i < 0 || s.Entries[i].Pending != nil {
		return false
	}
	s.Entries[i].Pending = &PendingChange{Committed: s.Entries[i].Record.IsActive, Desired: a.Desired}
	return true
}

// ToggleResolved clears a pending change. A non-nil Record is the authoritative
// server copy and is merged; a nil Record rolls the display back to the committed value.
type ToggleResolved struct {
	ID     string
	Record *models.Customer
}

func (a ToggleResolved) reduceCustomers(s *CustomerListState) bool {
	i := s.indexOf(a.ID)
	if i < 0 {
		return false
	}
	s.Entries[i].Pending = nil
	if a.Record != nil {
		s.Entries[i].Record = *a.Record
	}
	return true
}

// ListReset empties the list and opens a new epoch so in-flight results are dropped.
type ListReset struct{}

func (ListReset) reduceCustomers(s *CustomerListState) bool {
	*s = CustomerListState{Generation: s.Generation + 1}
	return true
}

// TotalsRestored seeds an empty list with the persisted count from a previous run.
type TotalsRestored struct {
	TotalItems int
}

func (a TotalsRestored) reduceCustomers(s *CustomerListState) bool {
	if s.Initialized || len(s.Entries) > 0 || a.TotalItems < 0 {
		return false
	}
	s.TotalItems = a.TotalItems
	return true
}

// replaceEntries builds a fresh entry list from a page-1 response. Pending changes of
// records that are still listed survive with their committed value refreshed.
func replaceEntries(old []CustomerEntry, data []models.Customer) []CustomerEntry {
	pending := make(map[string]PendingChange)
	for _, e := range old {
		if e.Pending != nil {
			pending[e.Record.ID] = *e.Pending
		}
	}

	out := make([]CustomerEntry, 0, len(data))
	seen := make(map[string]int, len(data))
	for _, c := range data {
		entry := CustomerEntry{Record: c}
		if p, ok := pending[c.ID]; ok {
			p.Committed = c.IsActive
			entry.Pending = &p
		}
		if i, dup := seen[c.ID]; dup {
			out[i] = entry
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, entry)
	}
	return out
}

// appendEntries appends a later page. A record already listed is not appended again;
// its existing entry takes the newly arrived copy.
func appendEntries(entries []CustomerEntry, data []models.Customer) []CustomerEntry {
	index := make(map[string]int, len(entries)+len(data))
	for i, e := range entries {
		index[e.Record.ID] = i
	}
	for _, c := range data {
		if i, ok := index[c.ID]; ok {
			entries[i].Record = c
			if entries[i].Pending != nil {
				entries[i].Pending.Committed = c.IsActive
			}
			continue
		}
		index[c.ID] = len(entries)
		entries = append(entries, CustomerEntry{Record: c})
	}
	return entries
}

func removeID(entries []CustomerEntry, id string) []CustomerEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Record.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func prepend(entries []CustomerEntry, e CustomerEntry) []CustomerEntry {
	out := make([]CustomerEntry, 0, len(entries)+1)
	out = append(out, e)
	return append(out, entries...)
}
