// Package notify keeps the operator-facing notification feed. A
// notification is started once and may later be updated in place through
// the token returned by Start.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iago/media-console/internal/domain"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Token string

// Action is the follow-up an operator can take from a notification.
type Action struct {
	Label  string           `json:"label"`
	Report domain.ReportRef `json:"report"`
}

type Notification struct {
	Token     Token     `json:"token"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Sticky    bool      `json:"sticky"`
	Action    *Action   `json:"action,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Notifier interface {
	Start(notification Notification) Token
	Update(token Token, notification Notification) bool
	Post(notification Notification) Token
}

type EventKind string

const (
	EventStarted EventKind = "started"
	EventUpdated EventKind = "updated"
)

type Event struct {
	Kind         EventKind
	Notification Notification
}

// Sink mirrors center events somewhere outside the process.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

type CenterConfig struct {
	Capacity int
	Sink     Sink
	// SinkBuffer bounds the events waiting for the sink. Events beyond it
	// are dropped and logged.
	SinkBuffer int
	Logger     *log.Logger
	Now        func() time.Time
}

const sinkPublishTimeout = 2 * time.Second

// Center is the in-memory Notifier with a bounded history. Sink delivery
// happens on a single background goroutine, so Start and Update never wait
// on the sink.
type Center struct {
	mu       sync.RWMutex
	items    map[Token]Notification
	order    []Token
	capacity int
	sink     Sink
	logger   *log.Logger
	now      func() time.Time

	sendMu  sync.Mutex
	closed  bool
	events  chan Event
	drained chan struct{}
}

var _ Notifier = (*Center)(nil)

func NewCenter(config CenterConfig) *Center {
	if config.Capacity <= 0 {
		config.Capacity = 200
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	if config.SinkBuffer <= 0 {
		config.SinkBuffer = 256
	}
	center := &Center{
		items:    make(map[Token]Notification),
		capacity: config.Capacity,
		sink:     config.Sink,
		logger:   config.Logger,
		now:      config.Now,
	}
	if center.sink != nil {
		center.events = make(chan Event, config.SinkBuffer)
		center.drained = make(chan struct{})
		go center.drain()
	}
	return center
}

// Close stops accepting sink events and waits until the queued ones were
// handed to the sink. Start and Update keep working afterwards without
// mirroring.
func (c *Center) Close() {
	if c.events == nil {
		return
	}
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		<-c.drained
		return
	}
	c.closed = true
	close(c.events)
	c.sendMu.Unlock()
	<-c.drained
}

// Start records a new notification and returns the token that addresses it.
func (c *Center) Start(notification Notification) Token {
	now := c.now()
	notification.Token = Token(uuid.NewString())
	notification.CreatedAt = now
	notification.UpdatedAt = now
	if notification.Level == "" {
		notification.Level = LevelInfo
	}

	c.mu.Lock()
	c.items[notification.Token] = notification
	c.order = append(c.order, notification.Token)
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.mu.Unlock()

	c.publish(Event{Kind: EventStarted, Notification: notification})
	return notification.Token
}

// Post is Start for notifications nobody will update.
func (c *Center) Post(notification Notification) Token {
	return c.Start(notification)
}

// Update replaces the notification addressed by token, keeping its
// position and creation time. It reports false when the token is unknown
// or was already evicted.
func (c *Center) Update(token Token, notification Notification) bool {
	c.mu.Lock()
	current, ok := c.items[token]
	if !ok {
		c.mu.Unlock()
		return false
	}
	notification.Token = token
	notification.CreatedAt = current.CreatedAt
	notification.UpdatedAt = c.now()
	if notification.Level == "" {
		notification.Level = current.Level
	}
	c.items[token] = notification
	c.mu.Unlock()

	c.publish(Event{Kind: EventUpdated, Notification: notification})
	return true
}

func (c *Center) Get(token Token) (Notification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	notification, ok := c.items[token]
	return cloneNotification(notification), ok
}

// List returns up to limit notifications, newest first. limit <= 0 means all.
func (c *Center) List(limit int) []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.order) {
		limit = len(c.order)
	}
	result := make([]Notification, 0, limit)
	for i := len(c.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, cloneNotification(c.items[c.order[i]]))
	}
	return result
}

func (c *Center) publish(event Event) {
	if c.events == nil {
		return
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		c.logf("notification sink queue full token=%s kind=%s dropped=true", event.Notification.Token, event.Kind)
	}
}

func (c *Center) drain() {
	defer close(c.drained)
	for event := range c.events {
		ctx, cancel := context.WithTimeout(context.Background(), sinkPublishTimeout)
		err := c.sink.Publish(ctx, event)
		cancel()
		if err != nil {
			c.logf("notification sink publish failed token=%s kind=%s err=%v", event.Notification.Token, event.Kind, err)
		}
	}
}

func (c *Center) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func cloneNotification(notification Notification) Notification {
	if notification.Action != nil {
		action := *notification.Action
		notification.Action = &action
	}
	return notification
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Start(Notification) Token        { return "" }
func (Nop) Update(Token, Notification) bool { return false }
func (Nop) Post(Notification) Token         { return "" }
