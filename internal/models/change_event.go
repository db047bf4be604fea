package models

import "time"

// ChangeEvent is one foreground application transition.
type ChangeEvent struct {
	AppID     string `json:"appId"`
	Timestamp int64  `json:"timestamp"` // epoch millis
}

// Time returns the event timestamp as a time.Time.
func (e ChangeEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// State is the persisted observer state: last known app, when it was
// recorded, and the rolling history, oldest first.
type State struct {
	CurrentApp string        `json:"currentApp,omitempty"`
	LastUpdate int64         `json:"lastUpdate,omitempty"`
	History    []ChangeEvent `json:"history"`
}

type AppSummary struct {
	AppID        string  `json:"app_id"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	Sessions     int     `json:"sessions"`
	LastUsed     int64   `json:"last_used"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type Report struct {
	Period       string       `json:"period"`
	Since        time.Time    `json:"since"`
	Apps         []AppSummary `json:"apps"`
	TotalSeconds int64        `json:"total_seconds"`
	Excluded     int          `json:"excluded"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
