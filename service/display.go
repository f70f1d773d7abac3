// Package service turns repository data into what the map, table and chart
// views show
package service

import (
	"bitwise74/trackbook/model"
	"fmt"
	"strings"
	"time"
)

// DisplayRow is one line of the track table
type DisplayRow struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	DistanceStr  string     `json:"distance_str"`
	TrackDateStr string     `json:"track_date_str"`
	Labels       []string   `json:"labels"`
	LabelsStr    string     `json:"labels_str"`
	DistanceKm   *float64   `json:"distance_km"`
	TotalAscent  *float64   `json:"total_ascent"`
	TotalDescent *float64   `json:"total_descent"`
	TrackDate    *time.Time `json:"track_date"`
	UploadDate   time.Time  `json:"upload_date"`
}

func NewDisplayRow(t model.Track) DisplayRow {
	name := t.Name
	if strings.TrimSpace(name) == "" {
		name = model.PlaceholderName
	}

	var dist float64
	if t.DistanceKm != nil {
		dist = *t.DistanceKm
	}

	date := "N/A"
	if t.TrackDate != nil {
		date = t.TrackDate.UTC().Format("2006-01-02")
	}

	labels := []string(t.Labels)
	if labels == nil {
		labels = []string{}
	}

	return DisplayRow{
		ID:           t.ID,
		Name:         name,
		DistanceStr:  fmt.Sprintf("%.2f km", dist),
		TrackDateStr: date,
		Labels:       labels,
		LabelsStr:    strings.Join(labels, ", "),
		DistanceKm:   t.DistanceKm,
		TotalAscent:  t.TotalAscent,
		TotalDescent: t.TotalDescent,
		TrackDate:    t.TrackDate,
		UploadDate:   t.UploadDate,
	}
}

func DisplayRows(tracks []model.Track) []DisplayRow {
	out := make([]DisplayRow, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, NewDisplayRow(t))
	}

	return out
}
