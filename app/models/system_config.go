package models

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Well-known system config keys.
const (
	ConfigKeyGracePeriodDays      = "payment_grace_period_days"
	ConfigKeyWebhookRetentionDays = "webhook_event_retention_days"
)

// SystemConfig is a string key/value table for runtime-tunable settings.
type SystemConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:config_key;type:varchar(191);not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetSystemConfig returns the raw value for a key, or "" when absent.
func GetSystemConfig(db *gorm.DB, key string) (string, error) {
	var cfg SystemConfig
	if err := db.Where("config_key = ?", key).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return cfg.Value, nil
}

// GetSystemConfigInt returns an integer config value, falling back to def
// when the key is missing or not numeric.
func GetSystemConfigInt(db *gorm.DB, key string, def int) int {
	raw, err := GetSystemConfig(db, key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
