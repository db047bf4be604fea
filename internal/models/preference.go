package models

import "time"

// Preference is a single key/value pair inside a named persistence scope.
type Preference struct {
	Scope     string    `gorm:"primaryKey;size:64" json:"scope"`
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
