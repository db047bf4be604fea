package reporter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHistory []models.ChangeEvent

func (h staticHistory) History() []models.ChangeEvent { return h }

var base = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func at(minutes int) int64 {
	return base.Add(time.Duration(minutes) * time.Minute).UnixMilli()
}

func TestSummarizeDwellTimes(t *testing.T) {
	history := []models.ChangeEvent{
		{AppID: "firefox", Timestamp: at(0)},
		{AppID: "code", Timestamp: at(10)},
		{AppID: "firefox", Timestamp: at(40)},
	}
	now := base.Add(50 * time.Minute)

	report := Summarize(history, time.Time{}, now, nil)

	require.Len(t, report.Apps, 2)
	assert.Equal(t, int64(50*60), report.TotalSeconds)

	assert.Equal(t, "code", report.Apps[0].AppID)
	assert.Equal(t, int64(30*60), report.Apps[0].TotalSeconds)
	assert.Equal(t, 1, report.Apps[0].Sessions)
	assert.InDelta(t, 60.0, report.Apps[0].Percentage, 0.001)

	assert.Equal(t, "firefox", report.Apps[1].AppID)
	assert.Equal(t, int64(20*60), report.Apps[1].TotalSeconds)
	assert.Equal(t, 2, report.Apps[1].Sessions)
	assert.Equal(t, at(40), report.Apps[1].LastUsed)
	assert.InDelta(t, 20.0, report.Apps[1].TotalMinutes, 0.001)
}

func TestSummarizeClipsToSince(t *testing.T) {
	history := []models.ChangeEvent{
		{AppID: "old", Timestamp: at(0)},
		{AppID: "spans", Timestamp: at(10)},
		{AppID: "recent", Timestamp: at(30)},
	}
	since := base.Add(20 * time.Minute)

	report := Summarize(history, since, base.Add(40*time.Minute), nil)

	require.Len(t, report.Apps, 2)
	assert.Equal(t, "recent", report.Apps[0].AppID)
	assert.Equal(t, "spans", report.Apps[1].AppID)
	assert.Equal(t, int64(10*60), report.Apps[1].TotalSeconds)
}

func TestSummarizeExcludesSystemApps(t *testing.T) {
	history := []models.ChangeEvent{
		{AppID: "firefox", Timestamp: at(0)},
		{AppID: "Gnome-Shell", Timestamp: at(5)},
		{AppID: "code", Timestamp: at(6)},
	}

	report := Summarize(history, time.Time{}, base.Add(10*time.Minute), []string{"gnome-shell"})

	assert.Equal(t, 1, report.Excluded)
	require.Len(t, report.Apps, 2)
	assert.Equal(t, "firefox", report.Apps[0].AppID)
	assert.Equal(t, int64(5*60), report.Apps[0].TotalSeconds)
	assert.Equal(t, int64(4*60), report.Apps[1].TotalSeconds)
	assert.Equal(t, int64(9*60), report.TotalSeconds)
}

func TestSummarizeEmpty(t *testing.T) {
	report := Summarize(nil, time.Time{}, base, nil)
	assert.NotNil(t, report.Apps)
	assert.Empty(t, report.Apps)
	assert.Zero(t, report.TotalSeconds)
}

func TestGenerateReportPeriods(t *testing.T) {
	r := New(config.Default(), staticHistory{{AppID: "firefox", Timestamp: at(0)}})
	r.now = func() time.Time { return base.Add(30 * time.Minute) }

	tests := []struct {
		period  string
		wantErr bool
	}{
		{"all", false},
		{"hour", false},
		{"day", false},
		{"week", false},
		{"month", true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			report, err := r.GenerateReport(tt.period)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.period, report.Period)
			require.Len(t, report.Apps, 1)
			assert.Equal(t, int64(30*60), report.Apps[0].TotalSeconds)
		})
	}
}

func TestFormatReport(t *testing.T) {
	r := New(config.Default(), staticHistory{})
	report := Summarize([]models.ChangeEvent{
		{AppID: "firefox", Timestamp: at(0)},
		{AppID: "launcher", Timestamp: at(65)},
	}, time.Time{}, base.Add(70*time.Minute), []string{"launcher"})
	report.Period = "all"

	text := r.FormatReportText(report)
	assert.Contains(t, text, "App Usage Report - all")
	assert.Contains(t, text, "firefox")
	assert.Contains(t, text, "1h 5m")
	assert.Contains(t, text, "1 system app sessions excluded")

	empty := r.FormatReportText(&models.Report{Period: "day"})
	assert.True(t, strings.HasSuffix(empty, "No app changes recorded for this period.\n"))

	out, err := r.FormatReportJSON(report)
	require.NoError(t, err)

	var decoded models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "firefox", decoded.Apps[0].AppID)
}
