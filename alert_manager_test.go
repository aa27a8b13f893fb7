package authui

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler collects scheduled callbacks and fires them when the
// simulated clock passes their deadline.
type fakeScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []fakeTask
}

type fakeTask struct {
	at time.Duration
	fn func()
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, fakeTask{at: s.now + d, fn: fn})
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	sort.SliceStable(s.tasks, func(i, j int) bool { return s.tasks[i].at < s.tasks[j].at })
	var due []func()
	var rest []fakeTask
	for _, task := range s.tasks {
		if task.at <= s.now {
			due = append(due, task.fn)
		} else {
			rest = append(rest, task)
		}
	}
	s.tasks = rest
	s.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	}
}

func newTestAlertManager() (*AlertManager, *fakeScheduler) {
	sched := &fakeScheduler{}
	m := NewAlertManager(
		WithAlertScheduler(sched.Schedule),
		WithAlertIDGenerator(sequentialIDs()),
	)
	return m, sched
}

func TestAlertManagerAddReplacesExisting(t *testing.T) {
	m, _ := newTestAlertManager()

	id1, added := m.Add(Alert{Kind: AlertKindLogin, Status: AlertStatusError, Message: "first"})
	require.True(t, added)

	id2, added := m.Add(Alert{Kind: AlertKindSignup, Status: AlertStatusInfo, Message: "second"})
	require.True(t, added)
	require.NotEqual(t, id1, id2)

	alerts := m.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, id2, alerts[0].ID)
	assert.Equal(t, "second", alerts[0].Message)
	assert.Equal(t, AlertVariantInfo, alerts[0].Variant)
}

func TestAlertManagerAddDuplicateIsNoop(t *testing.T) {
	m, _ := newTestAlertManager()

	id1, _ := m.Add(Alert{Kind: AlertKindLogin, Message: "Wrong email or password."})
	_, added := m.Add(Alert{Kind: AlertKindLogin, Message: "Wrong email or password.", Title: "other"})
	require.False(t, added)

	alerts := m.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, id1, alerts[0].ID)
	assert.Empty(t, alerts[0].Title)
}

func TestAlertManagerSameMessageDifferentKindReplaces(t *testing.T) {
	m, _ := newTestAlertManager()

	m.Add(Alert{Kind: AlertKindLogin, Message: "same"})
	id2, added := m.Add(Alert{Kind: AlertKindSignup, Message: "same"})
	require.True(t, added)

	alerts := m.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, id2, alerts[0].ID)
}

func TestAlertManagerAutoExpire(t *testing.T) {
	m, sched := newTestAlertManager()

	m.Add(Alert{Kind: AlertKindVerification, Message: "sent", AutoExpireAfter: 5 * time.Second})
	sched.Advance(4 * time.Second)
	require.Len(t, m.Alerts(), 1)

	sched.Advance(time.Second)
	require.Empty(t, m.Alerts())
}

func TestAlertManagerExpiryOfReplacedAlertIsNoop(t *testing.T) {
	m, sched := newTestAlertManager()

	m.Add(Alert{Kind: AlertKindLogin, Message: "a", AutoExpireAfter: time.Second})
	idB, _ := m.Add(Alert{Kind: AlertKindLogin, Message: "b"})

	sched.Advance(2 * time.Second)

	alerts := m.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, idB, alerts[0].ID)
}

func TestAlertManagerDuplicateIsNotRetimed(t *testing.T) {
	m, sched := newTestAlertManager()

	m.Add(Alert{Kind: AlertKindLogin, Message: "x", AutoExpireAfter: 2 * time.Second})
	sched.Advance(time.Second)
	m.Add(Alert{Kind: AlertKindLogin, Message: "x", AutoExpireAfter: 2 * time.Second})

	sched.Advance(time.Second)
	require.Empty(t, m.Alerts())
	require.Empty(t, sched.tasks)
}

func TestAlertManagerRemoveAndClear(t *testing.T) {
	m, _ := newTestAlertManager()

	m.Remove("missing")
	m.Clear()
	require.Empty(t, m.Alerts())

	id, _ := m.Add(Alert{Kind: AlertKindForm, Message: "bad"})
	m.Remove("other")
	require.Len(t, m.Alerts(), 1)

	m.Remove(id)
	require.Empty(t, m.Alerts())

	m.Add(Alert{Kind: AlertKindForm, Message: "bad"})
	m.Clear()
	require.Empty(t, m.Alerts())
}

func TestAlertManagerSubscribe(t *testing.T) {
	m, _ := newTestAlertManager()

	var seen [][]Alert
	unsubscribe := m.Subscribe(func(alerts []Alert) {
		seen = append(seen, alerts)
	})

	m.Add(Alert{Kind: AlertKindLogin, Message: "one"})
	m.Add(Alert{Kind: AlertKindLogin, Message: "one"})
	m.Clear()
	unsubscribe()
	m.Add(Alert{Kind: AlertKindLogin, Message: "two"})

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Empty(t, seen[1])
}

func TestAlertManagerSubscribeDeliversInOrder(t *testing.T) {
	m := NewAlertManager()

	var (
		mu   sync.Mutex
		last []Alert
	)
	m.Subscribe(func(alerts []Alert) {
		mu.Lock()
		last = alerts
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(Alert{Kind: AlertKindLogin, Message: fmt.Sprintf("alert-%d", i)})
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, m.Alerts(), last)
}

func TestAlertManagerListenerCanChangeAlerts(t *testing.T) {
	m, _ := newTestAlertManager()

	var seen [][]Alert
	m.Subscribe(func(alerts []Alert) {
		seen = append(seen, alerts)
		if len(alerts) == 1 && alerts[0].Message == "one" {
			m.Add(Alert{Kind: AlertKindLogin, Message: "two"})
		}
	})

	m.Add(Alert{Kind: AlertKindLogin, Message: "one"})

	require.Len(t, seen, 2)
	assert.Equal(t, "one", seen[0][0].Message)
	assert.Equal(t, "two", seen[1][0].Message)
	assert.Equal(t, "two", m.Alerts()[0].Message)
}

func TestAlertManagerAddedHook(t *testing.T) {
	var kinds []AlertKind
	m := NewAlertManager(WithAlertAddedHook(func(a Alert) {
		kinds = append(kinds, a.Kind)
	}))

	m.Add(Alert{Kind: AlertKindLogin, Message: "one"})
	m.Add(Alert{Kind: AlertKindLogin, Message: "one"})
	m.Add(Alert{Kind: AlertKindPassword, Message: "two"})

	assert.Equal(t, []AlertKind{AlertKindLogin, AlertKindPassword}, kinds)
}

func TestAlertManagerConcurrentAdds(t *testing.T) {
	m := NewAlertManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(Alert{Kind: AlertKindLogin, Message: fmt.Sprintf("msg-%d", i%5)})
		}(i)
	}
	wg.Wait()

	require.Len(t, m.Alerts(), 1)
}

func TestReduceAlertsNeverExceedsOne(t *testing.T) {
	state := []Alert{}
	actions := []alertAction{
		{kind: alertActionAdd, alert: Alert{ID: "1", Kind: AlertKindLogin, Message: "a"}},
		{kind: alertActionAdd, alert: Alert{ID: "2", Kind: AlertKindLogin, Message: "b"}},
		{kind: alertActionRemove, id: "1"},
		{kind: alertActionAdd, alert: Alert{ID: "3", Kind: AlertKindLogin, Message: "b"}},
		{kind: alertActionRemove, id: "2"},
		{kind: alertActionClear},
	}

	for _, action := range actions {
		state, _ = reduceAlerts(state, action)
		require.LessOrEqual(t, len(state), 1)
	}
	require.Empty(t, state)
}

func TestSnapshotIsACopy(t *testing.T) {
	m, _ := newTestAlertManager()
	m.Add(Alert{Kind: AlertKindLogin, Message: "a"})

	snap := m.Alerts()
	snap[0].Message = "changed"

	assert.Equal(t, "a", m.Alerts()[0].Message)
}
