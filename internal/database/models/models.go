// Package models contains the database model definitions.
package models

import (
	"time"
)

// Setting keys.
const (
	SettingBrightness   = "brightness"
	SettingWifiSSID     = "wifi_ssid"
	SettingWifiPassword = "wifi_password"
)

// Setting is a key/value pair that survives restarts.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// FetchCycle records one METAR fetch and display update.
// Table: fetch_cycles
type FetchCycle struct {
	ID             string    `gorm:"column:id;primaryKey"`
	StartedAt      time.Time `gorm:"column:started_at;index"`
	DurationMs     int64     `gorm:"column:duration_ms"`
	Success        bool      `gorm:"column:success"`
	StationCount   int       `gorm:"column:station_count"`
	ReportCount    int       `gorm:"column:report_count"`
	LightningCount int       `gorm:"column:lightning_count"`
	Error          *string   `gorm:"column:error"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (FetchCycle) TableName() string { return "fetch_cycles" }
