package service

import (
	"bitwise74/trackbook/gpx"
	"bitwise74/trackbook/repository"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type Tracks struct {
	Repo *repository.TrackRepo
}

func NewTracks(r *repository.TrackRepo) *Tracks {
	return &Tracks{Repo: r}
}

type ImportResult struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Import parses raw and stores it as a new track
func (s *Tracks) Import(ctx context.Context, filename string, raw []byte) (*ImportResult, error) {
	summary, err := gpx.Parse(raw, filename)
	if err != nil {
		return nil, err
	}

	id, err := s.Repo.Create(ctx, summary, raw)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Imported track", zap.Int64("id", id), zap.String("file", filename), zap.Int("points", len(summary.Points)))
	return &ImportResult{ID: id, Name: summary.Name}, nil
}

type TrackGeometry struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Points []gpx.TrackPoint `json:"points"`
}

type ElevationProfile struct {
	TrackID int64                 `json:"track_id"`
	Name    string                `json:"name"`
	Samples []gpx.ElevationSample `json:"samples"`
}

// Selection is everything the map and chart need for the selected tracks
type Selection struct {
	IDs             []int64           `json:"ids"`
	Tracks          []TrackGeometry   `json:"tracks"`
	TotalDistanceKm float64           `json:"total_distance_km"`
	TotalAscentM    float64           `json:"total_ascent_m"`
	Bounds          *gpx.Bounds       `json:"bounds"`
	Elevation       *ElevationProfile `json:"elevation"`
}

// Selection loads the selected tracks. Ids that no longer exist are
// dropped. Tracks whose stored file can't be read still count towards the
// totals but have no geometry. The elevation profile is only built when
// exactly one track is selected.
func (s *Tracks) Selection(ctx context.Context, ids []int64) (*Selection, error) {
	tracks, err := s.Repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		IDs:    []int64{},
		Tracks: []TrackGeometry{},
	}

	var sequences [][]gpx.TrackPoint
	for i := range tracks {
		t := &tracks[i]
		sel.IDs = append(sel.IDs, t.ID)

		if t.DistanceKm != nil {
			sel.TotalDistanceKm += *t.DistanceKm
		}
		if t.TotalAscent != nil {
			sel.TotalAscentM += *t.TotalAscent
		}

		points, err := s.Repo.ReadPoints(ctx, t)
		if err != nil {
			zap.L().Warn("Failed to load track geometry", zap.Int64("id", t.ID), zap.Error(err))
			continue
		}

		sequences = append(sequences, points)
		sel.Tracks = append(sel.Tracks, TrackGeometry{ID: t.ID, Name: t.Name, Points: points})
	}

	if b, ok := gpx.BoundsOf(sequences...); ok {
		sel.Bounds = &b
	}

	if len(tracks) == 1 && len(sel.Tracks) == 1 {
		samples := gpx.ElevationSeries(sel.Tracks[0].Points)
		if len(samples) > 0 {
			sel.Elevation = &ElevationProfile{
				TrackID: tracks[0].ID,
				Name:    tracks[0].Name,
				Samples: samples,
			}
		}
	}

	return sel, nil
}

// Points returns the point sequence of a single track
func (s *Tracks) Points(ctx context.Context, id int64) ([]gpx.TrackPoint, error) {
	t, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	points, err := s.Repo.ReadPoints(ctx, t)
	if err != nil {
		if errors.Is(err, gpx.ErrParse) {
			return nil, fmt.Errorf("%w: stored file of track %d is unreadable, %w", repository.ErrPersistence, id, err)
		}

		return nil, err
	}

	return points, nil
}
