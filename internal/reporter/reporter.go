package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/models"
	"github.com/actionsum/appwatch/pkg/utils"
)

// HistorySource supplies the change history, oldest first.
type HistorySource interface {
	History() []models.ChangeEvent
}

// Reporter turns the change history into per-app dwell times
type Reporter struct {
	config *config.Config
	source HistorySource
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, source HistorySource) *Reporter {
	return &Reporter{
		config: cfg,
		source: source,
		now:    time.Now,
	}
}

// GenerateReport summarizes the history for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	since, err := r.periodStart(periodType)
	if err != nil {
		return nil, err
	}

	report := Summarize(r.source.History(), since, r.now(), r.config.Report.ExcludeApps)
	report.Period = periodType
	return report, nil
}

// Summarize attributes the time between consecutive changes to the earlier
// app. The newest entry runs until now. Time before since is clipped, and
// apps matching exclude (case-insensitive substring) are dropped after
// their span has been cut, so they do not inflate their neighbours.
func Summarize(history []models.ChangeEvent, since, now time.Time, exclude []string) *models.Report {
	sinceMs := since.UnixMilli()
	nowMs := now.UnixMilli()

	byApp := make(map[string]*models.AppSummary)
	excluded := 0

	for i, ev := range history {
		end := nowMs
		if i+1 < len(history) {
			end = history[i+1].Timestamp
		}
		if end <= sinceMs {
			continue
		}

		if isExcluded(ev.AppID, exclude) {
			excluded++
			continue
		}

		start := ev.Timestamp
		if start < sinceMs {
			start = sinceMs
		}
		spent := int64(0)
		if end > start {
			spent = (end - start) / 1000
		}

		s, ok := byApp[ev.AppID]
		if !ok {
			s = &models.AppSummary{AppID: ev.AppID}
			byApp[ev.AppID] = s
		}
		s.TotalSeconds += spent
		s.Sessions++
		if ev.Timestamp > s.LastUsed {
			s.LastUsed = ev.Timestamp
		}
	}

	apps := make([]models.AppSummary, 0, len(byApp))
	var totalSeconds int64
	for _, s := range byApp {
		s.TotalMinutes = float64(s.TotalSeconds) / 60.0
		totalSeconds += s.TotalSeconds
		apps = append(apps, *s)
	}

	if totalSeconds > 0 {
		for i := range apps {
			apps[i].Percentage = (float64(apps[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].TotalSeconds != apps[j].TotalSeconds {
			return apps[i].TotalSeconds > apps[j].TotalSeconds
		}
		return apps[i].AppID < apps[j].AppID
	})

	return &models.Report{
		Since:        since,
		Apps:         apps,
		TotalSeconds: totalSeconds,
		Excluded:     excluded,
		GeneratedAt:  now,
	}
}

func isExcluded(appID string, exclude []string) bool {
	id := strings.ToLower(appID)
	for _, pattern := range exclude {
		if pattern != "" && strings.Contains(id, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// periodStart returns the beginning of the reporting window. "all" covers
// the whole retained history.
func (r *Reporter) periodStart(periodType string) (time.Time, error) {
	now := r.now()

	switch periodType {
	case "all", "":
		return time.Time{}, nil

	case "hour":
		return now.Add(-time.Hour), nil

	case "day", "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1)), nil

	default:
		return time.Time{}, fmt.Errorf("invalid period type: %s (valid: all, hour, day, week)", periodType)
	}
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "App Usage Report - %s\n", report.Period)
	if !report.Since.IsZero() {
		fmt.Fprintf(&b, "Since: %s\n", report.Since.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Total Time: %s\n\n", utils.FormatDwell(report.TotalSeconds))

	if len(report.Apps) == 0 {
		b.WriteString("No app changes recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %10s %10s %8s\n", "Application", "Time", "Sessions", "Last used", "Percent")
	b.WriteString(strings.Repeat("-", 72) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-30s %10s %10d %10s %7.1f%%\n",
			utils.Truncate(app.AppID, 30),
			utils.FormatDwell(app.TotalSeconds),
			app.Sessions,
			time.UnixMilli(app.LastUsed).Format("15:04"),
			app.Percentage)
	}

	if report.Excluded > 0 {
		fmt.Fprintf(&b, "\n%d system app sessions excluded\n", report.Excluded)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
