package models

import "time"

// Tool is a sellable product area. Every plan belongs to exactly one tool;
// trial-abuse detection groups plans by tool.
type Tool struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(150);not null;uniqueIndex" json:"slug"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Feature is a limitable capability of a tool (e.g. api_calls, seats).
type Feature struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ToolID    uint      `gorm:"not null;index:ux_features_tool_key,unique,priority:1" json:"tool_id"`
	Key       string    `gorm:"type:varchar(100);not null;index:ux_features_tool_key,unique,priority:2" json:"key"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
