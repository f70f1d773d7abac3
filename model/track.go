// Package model defines database models
package model

import "time"

// PlaceholderName is used whenever a track would otherwise end up nameless
const PlaceholderName = "Unnamed Track"

type Track struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;index" json:"name"`

	// Name of the file as uploaded. Informational only
	OriginalFilename string `json:"original_filename"`
	// Key of the raw file in the blob store, unique per track
	StoredFilename string `gorm:"uniqueIndex;not null" json:"stored_filename"`

	DistanceKm *float64  `json:"distance_km"`
	UploadDate time.Time `json:"upload_date"`
	// Earliest point timestamp, UTC. Nil for files without timestamps
	TrackDate *time.Time `gorm:"index" json:"track_date"`

	Labels       Labels   `gorm:"type:text" json:"labels"`
	TotalAscent  *float64 `json:"total_ascent"`
	TotalDescent *float64 `json:"total_descent"`
}
