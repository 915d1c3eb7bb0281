package application

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/domain"
)

// subscriberBuffer is the per-subscriber channel depth; a consumer that falls
// further behind starts losing events rather than blocking publishers.
const subscriberBuffer = 16

// NotificationCenter fans severity-tagged notifications out to subscribers
// and owns the auto-hide lifecycle: one timer per open notification, a close
// event fired exactly once per notification with its reason. It implements
// domain.Notifier.
type NotificationCenter struct {
	mu     sync.Mutex
	open   map[string]domain.Notification
	timers map[string]*time.Timer
	subs   map[int]chan domain.NotificationEvent
	nextID int
	closed bool
	log    *logrus.Entry
}

func NewNotificationCenter(log *logrus.Entry) *NotificationCenter {
	return &NotificationCenter{
		open:   map[string]domain.Notification{},
		timers: map[string]*time.Timer{},
		subs:   map[int]chan domain.NotificationEvent{},
		log:    log,
	}
}

// Publish opens a notification, filling in id and timestamp when the caller
// left them empty, and arms its auto-hide timer.
func (c *NotificationCenter) Publish(n domain.Notification) domain.Notification {
	if n.ID == "" {
		fresh := domain.NewNotification(n.Severity, n.Title, n.Message)
		fresh.Source = n.Source
		fresh.AutoHide = n.AutoHide
		if !n.CreatedAt.IsZero() {
			fresh.CreatedAt = n.CreatedAt
		}
		n = fresh
	} else if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n
	}
	c.open[n.ID] = n
	if d, ok := n.EffectiveAutoHide(); ok {
		id := n.ID
		c.timers[id] = time.AfterFunc(d, func() {
			c.Dismiss(id, domain.CloseTimeout)
		})
	}
	c.broadcastLocked(domain.NotificationEvent{Type: domain.EventOpened, Notification: n})
	c.mu.Unlock()

	if c.log != nil {
		c.log.WithFields(logrus.Fields{"id": n.ID, "severity": n.Severity}).Debug("notification published")
	}
	return n
}

// Dismiss closes an open notification. The close event fires at most once per
// notification; a second dismissal, or the timer racing a manual dismissal,
// reports false.
func (c *NotificationCenter) Dismiss(id string, reason domain.CloseReason) bool {
	c.mu.Lock()
	n, ok := c.open[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.open, id)
	if t := c.timers[id]; t != nil {
		t.Stop()
		delete(c.timers, id)
	}
	c.broadcastLocked(domain.NotificationEvent{Type: domain.EventClosed, Notification: n, Reason: reason})
	c.mu.Unlock()
	return true
}

// Subscribe registers an event consumer. The returned cancel function
// unsubscribes and closes the channel.
func (c *NotificationCenter) Subscribe() (<-chan domain.NotificationEvent, func()) {
	_, ch, cancel := c.SubscribeWithReplay()
	return ch, cancel
}

// SubscribeWithReplay registers a consumer and returns the notifications that
// were open at subscription time. Snapshot and registration happen under one
// lock, so replaying the snapshot and then draining the channel sees each
// notification exactly once.
func (c *NotificationCenter) SubscribeWithReplay() ([]domain.Notification, <-chan domain.NotificationEvent, func()) {
	ch := make(chan domain.NotificationEvent, subscriberBuffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return nil, ch, func() {}
	}
	snapshot := c.openLocked()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
			c.mu.Unlock()
		})
	}
	return snapshot, ch, cancel
}

// Open snapshots the currently open notifications, oldest first.
func (c *NotificationCenter) Open() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked()
}

func (c *NotificationCenter) openLocked() []domain.Notification {
	out := make([]domain.Notification, 0, len(c.open))
	for _, n := range c.open {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops every timer and closes all subscriber channels. Further
// publishes are no-ops.
func (c *NotificationCenter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.open = map[string]domain.Notification{}
}

// broadcastLocked delivers without blocking; a full subscriber buffer drops
// the event.
func (c *NotificationCenter) broadcastLocked(event domain.NotificationEvent) {
	for _, ch := range c.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
