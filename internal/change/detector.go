// Package change turns the raw window event stream into foreground
// application changes.
//
// The detector keeps the current app in memory so that the many
// window-state events a single app emits are dropped without touching
// storage. The cache is seeded from the store on Start and then kept in
// step with every change; it is never invalidated.
package change

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/metrics"
	"github.com/actionsum/appwatch/internal/models"
	"github.com/actionsum/appwatch/pkg/window"
)

// Store is the durable side of a change.
type Store interface {
	CurrentApp() (string, bool)
	RecordChange(appID string, timestamp int64) error
}

// Notifier is the live side of a change.
type Notifier interface {
	Deliver(event models.ChangeEvent)
}

type Option func(*Detector)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(d *Detector) { d.clock = clock }
}

func WithLogger(log *slog.Logger) Option {
	return func(d *Detector) { d.log = log }
}

type Detector struct {
	store    Store
	notifier Notifier
	clock    func() time.Time
	log      *slog.Logger

	mu      sync.RWMutex
	current string
	changes uint64
}

func NewDetector(store Store, notifier Notifier, opts ...Option) *Detector {
	d := &Detector{
		store:    store,
		notifier: notifier,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logger.OrDefault(d.log).With("component", "detector")
	return d
}

// Start seeds the in-memory app from the store, so an app that was already
// in front before a restart is not reported again.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != "" {
		return
	}
	if app, ok := d.store.CurrentApp(); ok {
		d.current = app
	}
	d.log.Info("detector started", "last_app", d.current)
}

// HandleEvent processes one raw event. It reports the change it produced,
// if any. Errors never escape: a failed write is logged and the in-memory
// app stays advanced; the next change writes the full state again.
func (d *Detector) HandleEvent(ev window.RawEvent) (models.ChangeEvent, bool) {
	metrics.IncRawEvent(string(ev.Type))
	if ev.Type != window.WindowStateChanged {
		return models.ChangeEvent{}, false
	}

	appID := strings.TrimSpace(ev.AppID)

	d.mu.Lock()
	if appID == "" || appID == d.current {
		d.mu.Unlock()
		metrics.IncNoise()
		return models.ChangeEvent{}, false
	}
	previous := d.current
	d.current = appID
	d.changes++
	d.mu.Unlock()

	change := models.ChangeEvent{AppID: appID, Timestamp: d.clock().UnixMilli()}
	metrics.IncTransition()
	d.log.Debug("app changed", "from", previous, "to", appID, "timestamp", change.Timestamp)

	if err := d.store.RecordChange(change.AppID, change.Timestamp); err != nil {
		d.log.Error("failed to persist change", "app", appID, "error", err)
	}
	d.notifier.Deliver(change)

	return change, true
}

// CurrentApp returns the in-memory foreground app; empty before the first
// change when the store had nothing either.
func (d *Detector) CurrentApp() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Changes counts the transitions seen since construction.
func (d *Detector) Changes() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.changes
}
