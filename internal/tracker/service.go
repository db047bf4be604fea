package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/actionsum/appwatch/internal/change"
	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/models"
	"github.com/actionsum/appwatch/pkg/window"
)

// ErrSourceClosed is returned by Start when the event stream ends on its own.
var ErrSourceClosed = errors.New("event source closed")

// StateReader is the read side of the history store.
type StateReader interface {
	CurrentApp() (string, bool)
	History() []models.ChangeEvent
	Snapshot() models.State
}

// Service runs the observer: it feeds display server events, or polled
// samples, into the change detector until stopped.
type Service struct {
	config   *config.Config
	detector *change.Detector
	store    StateReader
	source   window.Source
	log      *slog.Logger

	mu      sync.Mutex
	running bool
}

func NewService(cfg *config.Config, det *change.Detector, store StateReader, source window.Source, log *slog.Logger) *Service {
	return &Service{
		config:   cfg,
		detector: det,
		store:    store,
		source:   source,
		log:      logger.OrDefault(log).With("component", "tracker"),
	}
}

// Start blocks until ctx is cancelled or the source fails.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.detector.Start()

	if s.config.Tracker.Mode == config.ModePoll {
		return s.poll(ctx)
	}
	return s.listen(ctx)
}

func (s *Service) listen(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := s.source.Events(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", s.source.DisplayServer(), err)
	}
	s.log.Info("listening for window events", "display_server", s.source.DisplayServer())

	for {
		select {
		case <-ctx.Done():
			s.log.Info("tracker stopped by context")
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return ErrSourceClosed
			}
			if ce, changed := s.detector.HandleEvent(ev); changed {
				s.log.Info("app changed", "app", ce.AppID, "title", ev.WindowTitle)
			}
		}
	}
}

// poll samples the active app on a ticker and feeds each sample through
// the detector as a window-state event, so dedupe and persistence behave
// exactly as in event mode.
func (s *Service) poll(ctx context.Context) error {
	prober, ok := s.source.(window.Prober)
	if !ok {
		return fmt.Errorf("%s source does not support polling", s.source.DisplayServer())
	}

	interval := s.config.Tracker.PollInterval
	s.log.Info("polling active window", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.pollOnce(prober)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("tracker stopped by context")
			return ctx.Err()

		case <-ticker.C:
			s.pollOnce(prober)
		}
	}
}

func (s *Service) pollOnce(prober window.Prober) {
	info, err := prober.ActiveApp()
	if err != nil {
		s.log.Warn("failed to sample active window", "error", err)
		return
	}
	if info == nil {
		return
	}

	ev := window.RawEvent{
		Type:          window.WindowStateChanged,
		AppID:         info.AppID,
		WindowID:      info.WindowID,
		WindowTitle:   info.WindowTitle,
		DisplayServer: "poll",
	}
	if ce, changed := s.detector.HandleEvent(ev); changed {
		s.log.Info("app changed", "app", ce.AppID, "title", info.WindowTitle)
	}
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentApp prefers the detector's in-memory app and falls back to the
// persisted one while the detector has not seen anything yet.
func (s *Service) CurrentApp() (string, bool) {
	if app := s.detector.CurrentApp(); app != "" {
		return app, true
	}
	return s.store.CurrentApp()
}

func (s *Service) History() []models.ChangeEvent {
	return s.store.History()
}

// Snapshot is the persisted state with the current app taken from
// CurrentApp, so a change whose write failed is still reported.
func (s *Service) Snapshot() models.State {
	state := s.store.Snapshot()
	if app, ok := s.CurrentApp(); ok {
		state.CurrentApp = app
	}
	return state
}
