package entitlement

import (
	"sync"
	"time"

	"mealdesk/models"
)

// Navigator performs a navigation in the view.
type Navigator interface {
	Navigate(d models.Decision)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(d models.Decision)

func (f NavigatorFunc) Navigate(d models.Decision) { f(d) }

// Debouncer coalesces redirects to the same target issued within Window.
type Debouncer struct {
	Next   Navigator
	Window time.Duration
	Now    func() time.Time

	mu         sync.Mutex
	lastTarget models.Screen
	lastAt     time.Time
}

// NewDebouncer wraps next.
func NewDebouncer(next Navigator, window time.Duration) *Debouncer {
	return &Debouncer{Next: next, Window: window, Now: time.Now}
}

// Navigate forwards redirects unless one repeats the previous target inside the window.
func (d *Debouncer) Navigate(decision models.Decision) {
	d.forward(decision)
}

// forward reports whether decision reached the wrapped navigator.
func (d *Debouncer) forward(decision models.Decision) bool {
	if !decision.IsRedirect() {
		return false
	}
	now := d.Now()

	d.mu.Lock()
	if decision.Target == d.lastTarget && now.Sub(d.lastAt) < d.Window {
		d.mu.Unlock()
		return false
	}
	d.lastTarget = decision.Target
	d.lastAt = now
	d.mu.Unlock()

	if d.Next != nil {
		d.Next.Navigate(decision)
	}
	return true
}
