package window

import "context"

// EventType tags a raw window event.
type EventType string

const (
	// WindowStateChanged means the foreground window changed.
	WindowStateChanged EventType = "window_state_changed"
	// Other covers every other notification the display server sends.
	Other EventType = "other"
)

// RawEvent is one notification from the display server. AppID may be empty
// when the source could not be resolved.
type RawEvent struct {
	Type          EventType
	AppID         string
	WindowID      uint32
	WindowTitle   string
	DisplayServer string // "x11" or "poll"
}

// AppInfo describes the application owning the foreground window.
type AppInfo struct {
	AppID       string
	WindowTitle string
	ProcessName string
	PID         uint32
	WindowID    uint32
}

// Source is an event-driven stream of window notifications.
type Source interface {
	// Events starts delivering events until ctx is done or the source
	// fails, then closes the channel.
	Events(ctx context.Context) (<-chan RawEvent, error)

	// DisplayServer returns the backing display server ("x11")
	DisplayServer() string

	// Close releases the connection
	Close() error
}

// Prober answers "what is in front right now" for polling mode.
type Prober interface {
	ActiveApp() (*AppInfo, error)
}
