// Package history persists the current foreground application and a
// bounded log of recent changes.
//
// The state lives in three keys of one preferences scope: currentApp,
// lastUpdate and appHistory (a JSON array of {packageName, timestamp}).
// All three are written in one transaction, appHistory first and currentApp
// last, so currentApp never names an app that is missing from the history.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/actionsum/appwatch/internal/database"
	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/metrics"
	"github.com/actionsum/appwatch/internal/models"
)

const (
	Scope = "appwatch.usage"

	KeyCurrentApp = "currentApp"
	KeyLastUpdate = "lastUpdate"
	KeyAppHistory = "appHistory"

	// MaxEntries caps the rolling history. Older entries are evicted first.
	MaxEntries = 100
)

// Backend is the key/value medium the store writes to.
// *database.Preferences satisfies it.
type Backend interface {
	Get(scope, key string) (string, bool, error)
	GetAll(scope string) (map[string]string, error)
	PutAll(scope string, entries ...database.Entry) error
	DeleteScope(scope string) error
}

// record is the on-disk shape of a history entry.
type record struct {
	PackageName string `json:"packageName"`
	Timestamp   int64  `json:"timestamp"`
}

// Store is the single-writer, multi-reader owner of the persisted state.
type Store struct {
	mu    sync.RWMutex
	prefs Backend
	log   *slog.Logger
}

func New(prefs Backend, log *slog.Logger) *Store {
	return &Store{
		prefs: prefs,
		log:   logger.OrDefault(log).With("component", "history"),
	}
}

// RecordChange appends appID@timestamp to the history, trims it to
// MaxEntries and updates currentApp and lastUpdate, all in one commit.
// A corrupted history is replaced rather than treated as an error.
func (s *Store) RecordChange(appID string, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _, err := s.prefs.Get(Scope, KeyAppHistory)
	if err != nil {
		metrics.IncPersistFailure("read")
		return fmt.Errorf("failed to read history: %w", err)
	}

	entries := s.decode(raw)
	entries = append(entries, record{PackageName: appID, Timestamp: timestamp})
	entries = trim(entries, MaxEntries)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	err = s.prefs.PutAll(Scope,
		database.Entry{Key: KeyAppHistory, Value: string(data)},
		database.Entry{Key: KeyLastUpdate, Value: strconv.FormatInt(timestamp, 10)},
		database.Entry{Key: KeyCurrentApp, Value: appID},
	)
	if err != nil {
		metrics.IncPersistFailure("write")
		return fmt.Errorf("failed to record change to %s: %w", appID, err)
	}

	metrics.SetHistoryLength(len(entries))
	s.log.Debug("change recorded", "app", appID, "timestamp", timestamp, "entries", len(entries))
	return nil
}

// CurrentApp returns the last persisted foreground app.
func (s *Store) CurrentApp() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok, err := s.prefs.Get(Scope, KeyCurrentApp)
	if err != nil {
		metrics.IncPersistFailure("read")
		s.log.Error("failed to read current app", "error", err)
		return "", false
	}
	if !ok || app == "" {
		return "", false
	}
	return app, true
}

// LastUpdate returns the epoch millis of the last recorded change.
func (s *Store) LastUpdate() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok, err := s.prefs.Get(Scope, KeyLastUpdate)
	if err != nil {
		metrics.IncPersistFailure("read")
		s.log.Error("failed to read last update", "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	return parseMillis(raw)
}

// History returns a copy of the rolling history, oldest first. Read or
// decode failures yield an empty history.
func (s *Store) History() []models.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, _, err := s.prefs.Get(Scope, KeyAppHistory)
	if err != nil {
		metrics.IncPersistFailure("read")
		s.log.Error("failed to read history", "error", err)
		return []models.ChangeEvent{}
	}
	return toEvents(s.decode(raw))
}

// Snapshot reads the whole persisted state in one pass.
func (s *Store) Snapshot() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := models.State{History: []models.ChangeEvent{}}
	values, err := s.prefs.GetAll(Scope)
	if err != nil {
		metrics.IncPersistFailure("read")
		s.log.Error("failed to read state", "error", err)
		return state
	}

	state.CurrentApp = values[KeyCurrentApp]
	if raw, ok := values[KeyLastUpdate]; ok {
		state.LastUpdate, _ = parseMillis(raw)
	}
	state.History = toEvents(s.decode(values[KeyAppHistory]))
	return state
}

// Clear drops all persisted state.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prefs.DeleteScope(Scope); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	metrics.SetHistoryLength(0)
	return nil
}

// decode parses the serialized history. Anything unparseable counts as
// empty. Caller holds mu.
func (s *Store) decode(raw string) []record {
	if raw == "" {
		return nil
	}
	var entries []record
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		metrics.IncPersistFailure("decode")
		s.log.Warn("discarding corrupted history", "error", err, "bytes", len(raw))
		return nil
	}
	return entries
}

// trim keeps the newest max entries in one contiguous cut.
func trim[T any](entries []T, max int) []T {
	if len(entries) <= max {
		return entries
	}
	kept := make([]T, max)
	copy(kept, entries[len(entries)-max:])
	return kept
}

func toEvents(entries []record) []models.ChangeEvent {
	events := make([]models.ChangeEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, models.ChangeEvent{AppID: e.PackageName, Timestamp: e.Timestamp})
	}
	return events
}

func parseMillis(raw string) (int64, bool) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
