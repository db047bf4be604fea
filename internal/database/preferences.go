package database

import (
	"time"

	"github.com/actionsum/appwatch/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Preferences is a scoped key/value repository. Each scope behaves like a
// small preferences file: a handful of string values that are read and
// written together.
type Preferences struct {
	db *DB
}

// NewPreferences creates a new preferences repository
func NewPreferences(db *DB) *Preferences {
	return &Preferences{db: db}
}

// Get returns the value stored under scope/key. The boolean is false when
// the key has never been written.
func (p *Preferences) Get(scope, key string) (string, bool, error) {
	var pref models.Preference
	result := p.db.Where("scope = ? AND key = ?", scope, key).Limit(1).Find(&pref)
	if result.Error != nil {
		return "", false, errors.Wrapf(result.Error, "failed to read %s/%s", scope, key)
	}
	if result.RowsAffected == 0 {
		return "", false, nil
	}
	return pref.Value, true, nil
}

// GetAll returns every key in scope.
func (p *Preferences) GetAll(scope string) (map[string]string, error) {
	var prefs []models.Preference
	result := p.db.Where("scope = ?", scope).Find(&prefs)
	if result.Error != nil {
		return nil, errors.Wrapf(result.Error, "failed to read scope %s", scope)
	}

	values := make(map[string]string, len(prefs))
	for _, pref := range prefs {
		values[pref.Key] = pref.Value
	}
	return values, nil
}

// Entry is one key/value pair for PutAll. A slice keeps the write order
// stable inside the transaction.
type Entry struct {
	Key   string
	Value string
}

// PutAll upserts all entries in a single transaction, in the order given.
// Either every entry is committed or none is.
func (p *Preferences) PutAll(scope string, entries ...Entry) error {
	err := p.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, e := range entries {
			pref := models.Preference{Scope: scope, Key: e.Key, Value: e.Value, UpdatedAt: now}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&pref)
			if result.Error != nil {
				return errors.Wrapf(result.Error, "failed to write %s/%s", scope, e.Key)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "preferences transaction failed")
	}
	return nil
}

// DeleteScope removes every key in scope.
func (p *Preferences) DeleteScope(scope string) error {
	result := p.db.Where("scope = ?", scope).Delete(&models.Preference{})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to clear scope %s", scope)
	}
	return nil
}
