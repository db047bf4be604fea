package detector

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/actionsum/appwatch/pkg/integrations/process"
	"github.com/actionsum/appwatch/pkg/integrations/x11"
)

// New connects to the display server of the current session. The returned
// source also implements window.Prober.
func New(log *slog.Logger) (*x11.Source, error) {
	switch server := DetectDisplayServer(); server {
	case "x11", "xwayland":
		return x11.NewSource(process.NewResolver(), log)
	default:
		return nil, fmt.Errorf("unsupported display server %q: an X11 session (DISPLAY) is required", server)
	}
}

// DetectDisplayServer classifies the session from its environment. Wayland
// sessions that still expose DISPLAY are reported as "xwayland": the X
// root window there only sees XWayland clients.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		if x11Display != "" {
			return "xwayland"
		}
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
