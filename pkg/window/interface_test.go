package window

import (
	"context"
	"testing"
)

type MockSource struct {
	events []RawEvent
	closed bool
}

func (m *MockSource) Events(ctx context.Context) (<-chan RawEvent, error) {
	ch := make(chan RawEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *MockSource) DisplayServer() string { return "mock" }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

type MockProber struct {
	info *AppInfo
}

func (m *MockProber) ActiveApp() (*AppInfo, error) { return m.info, nil }

func TestMockSource(t *testing.T) {
	var _ Source = (*MockSource)(nil)

	mock := &MockSource{events: []RawEvent{
		{Type: WindowStateChanged, AppID: "firefox"},
		{Type: Other},
		{Type: WindowStateChanged, AppID: "code"},
	}}

	ch, err := mock.Events(context.Background())
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}

	var got []RawEvent
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[2].AppID != "code" {
		t.Errorf("AppID = %s, want code", got[2].AppID)
	}

	if err := mock.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if !mock.closed {
		t.Error("Close() did not mark source closed")
	}
}

func TestMockProber(t *testing.T) {
	var _ Prober = (*MockProber)(nil)

	mock := &MockProber{info: &AppInfo{AppID: "Firefox", ProcessName: "firefox", PID: 42}}
	info, err := mock.ActiveApp()
	if err != nil {
		t.Fatalf("ActiveApp() error: %v", err)
	}
	if info.AppID != "Firefox" {
		t.Errorf("AppID = %s, want Firefox", info.AppID)
	}
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		ev   RawEvent
		want bool
	}{
		{RawEvent{Type: WindowStateChanged, AppID: "a"}, true},
		{RawEvent{Type: Other, AppID: "a"}, false},
		{RawEvent{}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.ev.Type), func(t *testing.T) {
			if got := tt.ev.Type == WindowStateChanged; got != tt.want {
				t.Errorf("is window state change = %v, want %v", got, tt.want)
			}
		})
	}
}
