package web

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/daemon"
	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/metrics"
	"github.com/actionsum/appwatch/internal/models"
	"github.com/actionsum/appwatch/internal/reporter"
	"github.com/actionsum/appwatch/pkg/utils"
)

// StateReader is the query side of the observer. CurrentApp is
// authoritative for the foreground app; Snapshot supplies the rest.
type StateReader interface {
	CurrentApp() (string, bool)
	History() []models.ChangeEvent
	Snapshot() models.State
}

// runReporter is implemented by readers backed by a live tracker.
type runReporter interface {
	IsRunning() bool
}

// StatusProbe reports whether the observer is registered.
type StatusProbe interface {
	Status() (daemon.Status, error)
}

type Handler struct {
	config   *config.Config
	state    StateReader
	status   StatusProbe
	hub      *Hub
	reporter *reporter.Reporter
	log      *slog.Logger
}

func NewHandler(cfg *config.Config, state StateReader, status StatusProbe, hub *Hub, log *slog.Logger) *Handler {
	return &Handler{
		config:   cfg,
		state:    state,
		status:   status,
		hub:      hub,
		reporter: reporter.New(cfg, state),
		log:      logger.OrDefault(log).With("component", "web"),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/current", h.handleCurrent)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/summary", h.handleSummary)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/status", h.handleStatus)
	if h.hub != nil {
		mux.Handle("/api/stream", h.hub)
	}

	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", h.handleIndex)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := h.snapshot()
	resp := map[string]interface{}{
		"appId":      nil,
		"lastUpdate": nil,
	}
	if state.CurrentApp != "" {
		resp["appId"] = state.CurrentApp
	}
	if state.LastUpdate != 0 {
		resp["lastUpdate"] = state.LastUpdate
	}

	h.respondJSON(w, resp)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events := h.state.History()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			http.Error(w, fmt.Sprintf("invalid limit: %q", limitStr), http.StatusBadRequest)
			return
		}
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
	}

	h.respondJSON(w, events)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.respondJSON(w, h.snapshot())
}

// snapshot overlays CurrentApp on the persisted state.
func (h *Handler) snapshot() models.State {
	state := h.state.Snapshot()
	if app, ok := h.state.CurrentApp(); ok {
		state.CurrentApp = app
	}
	return state
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, ok := h.generate(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(h.reporter.FormatReportText(report)))
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, ok := h.generate(w, r)
	if !ok {
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondSummaryHTML(w, report)
		return
	}

	h.respondJSON(w, map[string]interface{}{
		"period":        report.Period,
		"apps":          report.Apps,
		"total_seconds": report.TotalSeconds,
		"total_minutes": float64(report.TotalSeconds) / 60.0,
	})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return report, true
}

func (h *Handler) respondSummaryHTML(w http.ResponseWriter, report *models.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(report.Apps) == 0 {
		_, _ = w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, app := range report.Apps {
		fmt.Fprintf(&b, `
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<div>
				<span class="app-time">%s</span>
				<span class="app-percentage">%.1f%%</span>
			</div>
		</div>`, app.Percentage, html.EscapeString(app.AppID), utils.FormatRoundedUnit(app.TotalSeconds), app.Percentage)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(report.TotalSeconds))

	_, _ = w.Write([]byte(b.String()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := h.status.Status()
	if err != nil {
		h.log.Error("observer status check failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	status := map[string]interface{}{
		"active":        st.Active,
		"mode":          h.config.Tracker.Mode,
		"poll_interval": h.config.Tracker.PollInterval.String(),
		"database_path": h.config.Database.Path,
	}
	if st.Active {
		status["pid"] = st.PID
	}
	if rr, ok := h.state.(runReporter); ok {
		status["tracking"] = rr.IsRunning()
	}
	if h.hub != nil {
		status["subscribers"] = h.hub.Subscribers()
		status["dropped"] = h.hub.Dropped()
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("error encoding JSON", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
