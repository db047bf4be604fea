// Package relay forwards foreground changes to whichever host consumer is
// currently attached. Delivery is best effort: the history store is the
// source of truth, so a missing or failing consumer loses nothing.
package relay

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/metrics"
	"github.com/actionsum/appwatch/internal/models"
)

// EventAppChanged is the name hosts subscribe to.
const EventAppChanged = "onAppChanged"

// Consumer receives change notifications. OnAppChanged is called on the
// detector's goroutine and must not block.
type Consumer interface {
	OnAppChanged(event models.ChangeEvent) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(event models.ChangeEvent) error

func (f ConsumerFunc) OnAppChanged(event models.ChangeEvent) error { return f(event) }

// Relay holds at most one consumer. Attach replaces any previous one.
type Relay struct {
	mu       sync.RWMutex
	consumer Consumer
	log      *slog.Logger
}

func New(log *slog.Logger) *Relay {
	return &Relay{log: logger.OrDefault(log).With("component", "relay")}
}

func (r *Relay) Attach(c Consumer) {
	r.mu.Lock()
	r.consumer = c
	r.mu.Unlock()
	r.log.Info("consumer attached")
}

func (r *Relay) Detach() {
	r.mu.Lock()
	r.consumer = nil
	r.mu.Unlock()
	r.log.Info("consumer detached")
}

// DetachIf clears the slot only if c is still the attached consumer, so a
// consumer leaving does not knock out one that replaced it. c must be a
// comparable value such as a pointer.
func (r *Relay) DetachIf(c Consumer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumer != c {
		return false
	}
	r.consumer = nil
	r.log.Info("consumer detached")
	return true
}

func (r *Relay) Attached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.consumer != nil
}

// Deliver hands event to the attached consumer. It never fails and never
// retries; with no consumer it does nothing.
func (r *Relay) Deliver(event models.ChangeEvent) {
	r.mu.RLock()
	c := r.consumer
	r.mu.RUnlock()

	if c == nil {
		metrics.IncDelivery(metrics.DeliveryNoConsumer)
		r.log.Debug("no consumer attached, change kept in history", "app", event.AppID)
		return
	}

	if err := safeCall(c, event); err != nil {
		metrics.IncDelivery(metrics.DeliveryFailed)
		r.log.Error("failed to deliver change", "event", EventAppChanged, "app", event.AppID, "error", err)
		return
	}
	metrics.IncDelivery(metrics.DeliveryOK)
}

func safeCall(c Consumer, event models.ChangeEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("consumer panicked: %v", p)
		}
	}()
	return c.OnAppChanged(event)
}
