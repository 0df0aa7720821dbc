// Package remotetest provides an in-memory provider backend for tests.
package remotetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mealdesk/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Route names accepted by Fail, Hold and Calls.
const (
	RouteList         = "list"
	RouteCreate       = "create"
	RouteUpdate       = "update"
	RouteDelete       = "delete"
	RouteToggle       = "toggle"
	RouteTrial        = "trial"
	RouteSubscription = "subscription"
)

type failure struct {
	status  int
	message string
}

// Server is a fake provider backend speaking the customer and subscription endpoints.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	customers     map[string]models.Customer
	trials        map[string]models.TrialStatus
	subs          map[string]models.SubscriptionStatus
	failures      map[string][]failure
	holds         map[string]chan struct{}
	calls         map[string]int
	lastQuery     map[string]string
	lastAuth      string
	inclusiveNext bool
	seq           int
	base          time.Time
}

// NewServer starts the fake backend. Callers close it with t.Cleanup(server.Close).
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		customers: make(map[string]models.Customer),
		trials:    make(map[string]models.TrialStatus),
		subs:      make(map[string]models.SubscriptionStatus),
		failures:  make(map[string][]failure),
		holds:     make(map[string]chan struct{}),
		calls:     make(map[string]int),
		lastQuery: make(map[string]string),
		base:      time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}

	r := gin.New()
	r.GET("/customer/provider/:id", s.track(RouteList, s.listCustomers))
	r.POST("/customer", s.track(RouteCreate, s.createCustomer))
	r.PUT("/customer/:id", s.track(RouteUpdate, s.updateCustomer))
	r.DELETE("/customer/:id", s.track(RouteDelete, s.deleteCustomer))
	r.PATCH("/customer/:id/toggle-active", s.track(RouteToggle, s.toggleCustomer))
	r.GET("/subscription/trial-status/:id", s.track(RouteTrial, s.trialStatus))
	r.GET("/subscription/provider/:id", s.track(RouteSubscription, s.subscription))

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) track(route string, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[route]++
		s.lastQuery[route] = c.Request.URL.RawQuery
		s.lastAuth = c.GetHeader("Authorization")
		hold := s.holds[route]
		var fail *failure
		if queue := s.failures[route]; len(queue) > 0 {
			fail = &queue[0]
			s.failures[route] = queue[1:]
		}
		s.mu.Unlock()

		if hold != nil {
			<-hold
		}
		if fail != nil {
			if fail.message == "" {
				c.Status(fail.status)
				return
			}
			c.JSON(fail.status, gin.H{"message": fail.message})
			return
		}
		next(c)
	}
}

// Fail makes the next request to route answer with status and message.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastQuery returns the raw query string of the last request to route.
func (s *Server) LastQuery(route string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[route]
}

// LastAuthorization returns the Authorization header of the last request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// OverlapNextPage makes the next cursor page repeat the cursor record.
func (s *Server) OverlapNextPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inclusiveNext = true
}

// Seed creates n customers for providerID and returns them newest first.
func (s *Server) Seed(providerID string, n int) []models.Customer {
	s.mu.Lock()
	for i := 0; i < n; i++ {
		s.insertLocked(models.Customer{
			Name:       fmt.Sprintf("Customer %d", s.seq+1),
			Phone:      fmt.Sprintf("98%08d", s.seq+1),
			Address:    "12 Market Road",
			Pincode:    "560001",
			City:       "Bengaluru",
			State:      "Karnataka",
			Area:       "Indiranagar",
			Preference: models.PreferenceVeg,
			IsActive:   true,
			ProviderID: providerID,
		}, "")
	}
	s.mu.Unlock()
	return s.Customers(providerID)
}

// Customers returns the server-side list of providerID in list order.
func (s *Server) Customers(providerID string) []models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedLocked(providerID)
}

// Customer returns one stored record.
func (s *Server) Customer(id string) (models.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	return c, ok
}

// SetTrial sets the trial status returned for providerID.
func (s *Server) SetTrial(providerID string, status models.TrialStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials[providerID] = status
}

// SetSubscription sets the subscription returned for providerID.
func (s *Server) SetSubscription(providerID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[providerID] = models.SubscriptionStatus{ID: "sub-" + providerID, Status: status, PlanName: "monthly"}
}

func (s *Server) insertLocked(c models.Customer, id string) models.Customer {
	s.seq++
	if id == "" {
		id = fmt.Sprintf("c%04d", s.seq)
	}
	c.ID = id
	c.CreatedAt = s.base.Add(time.Duration(s.seq) * time.Second)
	c.UpdatedAt = c.CreatedAt
	s.customers[id] = c
	return c
}

func (s *Server) orderedLocked(providerID string) []models.Customer {
	out := make([]models.Customer, 0)
	for _, c := range s.customers {
		if c.ProviderID == providerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// after reports whether c sorts after the cursor position.
func after(c models.Customer, at time.Time, id string, inclusive bool) bool {
	if c.CreatedAt.Before(at) {
		return true
	}
	if c.CreatedAt.Equal(at) {
		if inclusive {
			return c.ID <= id
		}
		return c.ID < id
	}
	return false
}

func (s *Server) listCustomers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid limit"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.orderedLocked(c.Param("id"))
	if rawAt := c.Query("lastCreatedAt"); rawAt != "" {
		at, err := time.Parse(time.RFC3339Nano, rawAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid cursor"})
			return
		}
		inclusive := s.inclusiveNext
		s.inclusiveNext = false
		filtered := all[:0:0]
		for _, item := range all {
			if after(item, at, c.Query("lastId"), inclusive) {
				filtered = append(filtered, item)
			}
		}
		all = filtered
	}

	page := all
	if len(page) > limit {
		page = page[:limit]
	}
	pagination := gin.H{
		"hasMore":    len(all) > limit,
		"totalItems": len(s.orderedLocked(c.Param("id"))),
	}
	if len(page) > 0 {
		last := page[len(page)-1]
		pagination["nextCursor"] = last.CreatedAt.Format(time.RFC3339Nano)
		pagination["nextId"] = last.ID
	}
	c.JSON(http.StatusOK, gin.H{"data": page, "pagination": pagination})
}

func (s *Server) createCustomer(c *gin.Context) {
	var in models.Customer
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.customers {
		if existing.ProviderID == in.ProviderID && existing.Phone == in.Phone {
			c.JSON(http.StatusConflict, gin.H{"message": "Customer with this phone number already exists"})
			return
		}
	}
	created := s.insertLocked(in, "c-"+uuid.New().String())
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": created})
}

func (s *Server) updateCustomer(c *gin.Context) {
	var patch models.CustomerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.customers[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Customer not found"})
		return
	}
	applyPatch(&existing, patch)
	existing.UpdatedAt = existing.UpdatedAt.Add(time.Second)
	s.customers[existing.ID] = existing
	c.JSON(http.StatusOK, existing)
}

func (s *Server) deleteCustomer(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.customers[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Customer not found"})
		return
	}
	delete(s.customers, id)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": id})
}

func (s *Server) toggleCustomer(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.customers[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Customer not found"})
		return
	}
	existing.IsActive = !existing.IsActive
	s.customers[existing.ID] = existing
	c.JSON(http.StatusOK, gin.H{"data": existing})
}

func (s *Server) trialStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.trials[c.Param("id")]
	if !ok {
		status = models.TrialStatus{IsActive: true, DaysLeft: 14}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) subscription(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "No subscription found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func applyPatch(c *models.Customer, p models.CustomerPatch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, p.Name)
	set(&c.Phone, p.Phone)
	set(&c.Email, p.Email)
	set(&c.Address, p.Address)
	set(&c.Pincode, p.Pincode)
	set(&c.City, p.City)
	set(&c.State, p.State)
	set(&c.Area, p.Area)
	set(&c.Preference, p.Preference)
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
}
