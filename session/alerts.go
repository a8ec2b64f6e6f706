// ABOUTME: Transient, dismissable notifications raised by session actions.
// ABOUTME: Alerts auto-hide after a fixed interval and keep a bounded history.
package session

import (
	"sync"
	"time"
)

// AutoHide is how long an alert stays active.
const AutoHide = 6 * time.Second

const maxAlerts = 50

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
)

type Alert struct {
	ID        uint64    `json:"id"`
	Variant   Variant   `json:"variant"`
	Message   string    `json:"message"`
	RaisedAt  time.Time `json:"raisedAt"`
	Dismissed bool      `json:"dismissed"`
}

// Alerts is the notification channel of one session.
type Alerts struct {
	mu      sync.Mutex
	next    uint64
	items   []Alert
	now     func() time.Time
	onRaise func(Alert)
}

func NewAlerts() *Alerts {
	return &Alerts{now: time.Now}
}

// Raise records a new alert.
func (a *Alerts) Raise(v Variant, msg string) Alert {
	a.mu.Lock()
	a.next++
	al := Alert{ID: a.next, Variant: v, Message: msg, RaisedAt: a.now()}
	a.items = append(a.items, al)
	if len(a.items) > maxAlerts {
		a.items = a.items[len(a.items)-maxAlerts:]
	}
	hook := a.onRaise
	a.mu.Unlock()

	if hook != nil {
		hook(al)
	}
	return al
}

func (a *Alerts) Success(msg string) Alert { return a.Raise(VariantSuccess, msg) }
func (a *Alerts) Error(msg string) Alert { return a.Raise(VariantError, msg) }

// Dismiss hides an alert before it expires.
func (a *Alerts) Dismiss(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ID == id && !a.items[i].Dismissed {
			a.items[i].Dismissed = true
			return true
		}
	}
	return false
}

// Active returns alerts neither dismissed nor expired, oldest first.
func (a *Alerts) Active() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := a.now().Add(-AutoHide)
	var out []Alert
	for _, al := range a.items {
		if al.Dismissed || al.RaisedAt.Before(cutoff) {
			continue
		}
		out = append(out, al)
	}
	return out
}

// History returns every retained alert.
func (a *Alerts) History() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Alert, len(a.items))
	copy(out, a.items)
	return out
}

// Latest returns the most recent alert.
func (a *Alerts) Latest() (Alert, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.items) == 0 {
		return Alert{}, false
	}
	return a.items[len(a.items)-1], true
}
