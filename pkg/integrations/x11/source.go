// Package x11 watches the X11 root window for focus changes.
//
// Window managers following EWMH publish the focused client in the root
// window's _NET_ACTIVE_WINDOW property. Selecting PropertyChangeMask on the
// root delivers a PropertyNotify every time it (or any other root property)
// changes, which gives an event stream without polling.
package x11

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/appwatch/pkg/window"
)

const (
	displayServer = "x11"

	// appCacheSize bounds the window -> app id cache. Long sessions create
	// and destroy many windows; ids are not reused quickly.
	appCacheSize = 512

	eventBuffer = 64
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_CLASS",
	"WM_NAME",
	"UTF8_STRING",
}

// PIDResolver maps a process id to an application name.
type PIDResolver interface {
	Name(pid int32) (string, error)
}

// Source implements window.Source and window.Prober over one X connection.
type Source struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
	apps  *lru.Cache[xproto.Window, string]
	pids  PIDResolver
	log   *slog.Logger

	closeOnce sync.Once
}

// NewSource connects to $DISPLAY. pids may be nil, in which case windows
// without WM_CLASS resolve to an empty id.
func NewSource(pids PIDResolver, log *slog.Logger) (*Source, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	apps, err := lru.New[xproto.Window, string](appCacheSize)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	s := &Source{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
		apps:  apps,
		pids:  pids,
		log:   log.With("component", "x11"),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		s.atoms[name] = reply.Atom
	}

	return s, nil
}

func (s *Source) DisplayServer() string {
	return displayServer
}

// Events subscribes to root property changes. The first event describes the
// window that is already focused. The channel closes when ctx is done or
// the connection drops.
func (s *Source) Events(ctx context.Context) (<-chan window.RawEvent, error) {
	err := xproto.ChangeWindowAttributesChecked(s.conn, s.root,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to select root property events: %w", err)
	}

	out := make(chan window.RawEvent, eventBuffer)

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	go func() {
		defer close(out)

		send := func(ev window.RawEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(s.activeEvent()) {
			return
		}

		for {
			ev, xerr := s.conn.WaitForEvent()
			if ev == nil && xerr == nil {
				s.log.Info("X connection closed")
				return
			}
			if xerr != nil {
				s.log.Warn("X protocol error", "error", xerr)
				continue
			}

			notify, ok := ev.(xproto.PropertyNotifyEvent)
			if !ok {
				continue
			}

			raw := window.RawEvent{Type: window.Other, WindowID: uint32(notify.Window), DisplayServer: displayServer}
			if notify.Window == s.root && notify.Atom == s.atoms["_NET_ACTIVE_WINDOW"] {
				raw = s.activeEvent()
			}
			if !send(raw) {
				return
			}
		}
	}()

	return out, nil
}

// ActiveApp implements window.Prober.
func (s *Source) ActiveApp() (*window.AppInfo, error) {
	win := s.activeWindow()
	if win == 0 {
		return nil, fmt.Errorf("no active window found")
	}

	info := &window.AppInfo{
		AppID:       s.appID(win),
		WindowTitle: s.windowName(win),
		PID:         s.windowPID(win),
		WindowID:    uint32(win),
	}
	if s.pids != nil && info.PID > 0 {
		info.ProcessName, _ = s.pids.Name(int32(info.PID))
	}
	return info, nil
}

func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
	return nil
}

// activeEvent builds the window-state event for the current active window.
// An unresolvable window yields an empty AppID, which downstream treats as
// no change.
func (s *Source) activeEvent() window.RawEvent {
	ev := window.RawEvent{Type: window.WindowStateChanged, DisplayServer: displayServer}
	win := s.activeWindow()
	if win == 0 {
		return ev
	}
	ev.WindowID = uint32(win)
	ev.AppID = s.appID(win)
	ev.WindowTitle = s.windowName(win)
	return ev
}

func (s *Source) activeWindow() xproto.Window {
	data, err := s.property(s.root, s.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err == nil && len(data) >= 4 {
		if win := xproto.Window(xgb.Get32(data)); win != 0 {
			return win
		}
	}

	reply, err := xproto.GetInputFocus(s.conn).Reply()
	if err != nil || reply.Focus == 0 || reply.Focus == s.root {
		return 0
	}
	return s.topLevel(reply.Focus)
}

func (s *Source) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(s.conn, win).Reply()
		if err != nil || reply.Parent == s.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

// appID resolves the application id for win: WM_CLASS class, then the
// process name behind _NET_WM_PID. Only successful lookups are cached.
func (s *Source) appID(win xproto.Window) string {
	if id, ok := s.apps.Get(win); ok {
		return id
	}

	data, err := s.property(win, s.atoms["WM_CLASS"], xproto.AtomString, 256)
	id := ""
	if err == nil {
		instance, class := parseWMClass(data)
		id = class
		if id == "" {
			id = instance
		}
	}

	if id == "" && s.pids != nil {
		if pid := s.windowPID(win); pid > 0 {
			if name, err := s.pids.Name(int32(pid)); err == nil {
				id = name
			}
		}
	}

	if id != "" {
		s.apps.Add(win, id)
	}
	return id
}

func (s *Source) windowName(win xproto.Window) string {
	data, err := s.property(win, s.atoms["_NET_WM_NAME"], s.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	data, err = s.property(win, s.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (s *Source) windowPID(win xproto.Window) uint32 {
	data, err := s.property(win, s.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xgb.Get32(data)
}

// property reads up to length 32-bit units of a window property.
func (s *Source) property(win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(s.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// parseWMClass splits a raw WM_CLASS value, two NUL terminated strings:
// the instance name followed by the class name.
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = strings.TrimSpace(parts[0])
	}
	if len(parts) >= 2 {
		class = strings.TrimSpace(parts[1])
	}
	return instance, class
}
