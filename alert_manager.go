package authui

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type alertActionType int

const (
	alertActionAdd alertActionType = iota
	alertActionRemove
	alertActionClear
)

type alertAction struct {
	kind  alertActionType
	alert Alert
	id    string
}

// reduceAlerts is the single transition function for the alert store.
// At most one alert is displayed: an add either replaces everything or,
// when an alert with the same kind and message is already shown, is
// ignored. The returned bool reports whether state changed.
func reduceAlerts(state []Alert, action alertAction) ([]Alert, bool) {
	switch action.kind {
	case alertActionAdd:
		for _, a := range state {
			if a.Kind == action.alert.Kind && a.Message == action.alert.Message {
				return state, false
			}
		}
		return []Alert{action.alert}, true
	case alertActionRemove:
		for i, a := range state {
			if a.ID == action.id {
				next := make([]Alert, 0, len(state)-1)
				next = append(next, state[:i]...)
				return append(next, state[i+1:]...), true
			}
		}
		return state, false
	case alertActionClear:
		if len(state) == 0 {
			return state, false
		}
		return []Alert{}, true
	}
	return state, false
}

// AlertScheduler runs fn once after d.
type AlertScheduler func(d time.Duration, fn func())

func defaultAlertScheduler(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// AlertManager owns the list of displayed alerts. It is safe for
// concurrent use; expiry callbacks go through the same dispatch as user
// actions.
type AlertManager struct {
	mu         sync.Mutex
	alerts     []Alert
	listeners  map[int]func([]Alert)
	nextListen int
	schedule   AlertScheduler
	newID      func() string
	onAdd      func(Alert)

	// pending snapshots are delivered in dispatch order by one drainer
	pending  []alertNotification
	draining bool
}

type alertNotification struct {
	snapshot  []Alert
	listeners []func([]Alert)
}

// AlertManagerOption configures an AlertManager.
type AlertManagerOption func(*AlertManager)

// WithAlertScheduler swaps the timer used for auto expiry.
func WithAlertScheduler(s AlertScheduler) AlertManagerOption {
	return func(m *AlertManager) {
		if s != nil {
			m.schedule = s
		}
	}
}

// WithAlertIDGenerator swaps the alert id source.
func WithAlertIDGenerator(fn func() string) AlertManagerOption {
	return func(m *AlertManager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithAlertAddedHook is called after an alert is accepted.
func WithAlertAddedHook(fn func(Alert)) AlertManagerOption {
	return func(m *AlertManager) {
		m.onAdd = fn
	}
}

func NewAlertManager(opts ...AlertManagerOption) *AlertManager {
	m := &AlertManager{
		alerts:    []Alert{},
		listeners: map[int]func([]Alert){},
		schedule:  defaultAlertScheduler,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *AlertManager) dispatch(action alertAction) bool {
	m.mu.Lock()
	next, changed := reduceAlerts(m.alerts, action)
	if !changed {
		m.mu.Unlock()
		return false
	}
	m.alerts = next

	listeners := make([]func([]Alert), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.pending = append(m.pending, alertNotification{snapshot: cloneAlerts(next), listeners: listeners})
	if m.draining {
		m.mu.Unlock()
		return true
	}

	m.draining = true
	for len(m.pending) > 0 {
		n := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		for _, fn := range n.listeners {
			fn(n.snapshot)
		}
		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
	return true
}

// Add displays alert with a fresh id and returns it. When an alert of the
// same kind and message is already displayed nothing changes and added is
// false. Alerts with AutoExpireAfter set are removed once it elapses.
func (m *AlertManager) Add(alert Alert) (id string, added bool) {
	alert.ID = m.newID()
	if alert.Variant == "" {
		alert.Variant = VariantForStatus(alert.Status)
	}

	if !m.dispatch(alertAction{kind: alertActionAdd, alert: alert}) {
		return alert.ID, false
	}

	if m.onAdd != nil {
		m.onAdd(alert)
	}

	if alert.AutoExpireAfter > 0 {
		m.schedule(alert.AutoExpireAfter, func() {
			m.Remove(alert.ID)
		})
	}
	return alert.ID, true
}

// Remove drops the alert with id. Unknown ids are ignored.
func (m *AlertManager) Remove(id string) {
	m.dispatch(alertAction{kind: alertActionRemove, id: id})
}

func (m *AlertManager) Clear() {
	m.dispatch(alertAction{kind: alertActionClear})
}

// Alerts returns a snapshot in display order.
func (m *AlertManager) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAlerts(m.alerts)
}

// Subscribe registers fn to receive the alert list after every change.
// Snapshots arrive in the order the changes were made. A listener may call
// back into the manager; the resulting snapshot is delivered after it
// returns.
func (m *AlertManager) Subscribe(fn func([]Alert)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.nextListen
	m.nextListen++
	m.listeners[key] = fn
	return func() {
		m.mu.Lock()
		delete(m.listeners, key)
		m.mu.Unlock()
	}
}

func cloneAlerts(in []Alert) []Alert {
	out := make([]Alert, len(in))
	copy(out, in)
	return out
}
