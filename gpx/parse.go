// Package gpx turns raw GPX documents into track summaries and point
// sequences used for maps and elevation charts
package gpx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

// ErrParse is returned for any document that can't be turned into a track
var ErrParse = errors.New("gpx parse failure")

// TrackPoint is a single fix of a track. Elevation and Time are nil when the
// source point doesn't carry them. DistanceKm is the cumulative distance from
// the first point of the sequence.
type TrackPoint struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Elevation  *float64   `json:"ele,omitempty"`
	Time       *time.Time `json:"time,omitempty"`
	DistanceKm float64    `json:"dist_km"`
}

// Summary is what gets stored about a freshly uploaded file
type Summary struct {
	Name             string
	OriginalFilename string
	Points           []TrackPoint
	TrackDate        *time.Time
	DistanceKm       *float64
	TotalAscent      *float64
	TotalDescent     *float64
	Labels           []string
}

// Parse decodes raw and computes the summary values. The name falls back from
// the metadata name to the first track name and finally to the file name
// without its extension.
func Parse(raw []byte, originalFilename string) (*Summary, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}

	points := collectPoints(doc)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no track or route points found", ErrParse)
	}

	dist := points[len(points)-1].DistanceKm
	s := &Summary{
		Name:             trackName(doc, originalFilename),
		OriginalFilename: originalFilename,
		Points:           points,
		TrackDate:        earliestTime(points, doc.Time),
		DistanceKm:       &dist,
		Labels:           []string{},
	}

	if up, down, ok := AscentDescent(points); ok {
		s.TotalAscent = &up
		s.TotalDescent = &down
	}

	return s, nil
}

// Points decodes raw and returns only the point sequence. Used when a stored
// file is read back for drawing.
func Points(raw []byte) ([]TrackPoint, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}

	points := collectPoints(doc)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no track or route points found", ErrParse)
	}

	return points, nil
}

func decode(raw []byte) (*gpxgo.GPX, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	doc, err := gpxgo.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	// gpxgo reads a missing lat or lon as 0
	if err := checkCoordinates(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return doc, nil
}

// checkCoordinates requires a valid lat and lon attribute on every track
// and route point
func checkCoordinates(raw []byte) error {
	d := xml.NewDecoder(bytes.NewReader(raw))
	// Only ASCII attributes are inspected, the declared charset doesn't matter
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		el, ok := tok.(xml.StartElement)
		if !ok || (el.Name.Local != "trkpt" && el.Name.Local != "rtept") {
			continue
		}

		var lat, lon *float64
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "lat":
				lat = parseCoord(a.Value, 90)
			case "lon":
				lon = parseCoord(a.Value, 180)
			}
		}

		if lat == nil || lon == nil {
			line, _ := d.InputPos()
			return fmt.Errorf("%s on line %d has a missing or invalid lat/lon", el.Name.Local, line)
		}
	}
}

func parseCoord(v string, limit float64) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > limit {
		return nil
	}

	return &f
}

// collectPoints flattens every track segment in document order. Route points
// are only used when the file has no track points at all.
func collectPoints(doc *gpxgo.GPX) []TrackPoint {
	var src []gpxgo.GPXPoint
	for _, t := range doc.Tracks {
		for _, seg := range t.Segments {
			src = append(src, seg.Points...)
		}
	}

	if len(src) == 0 {
		for _, r := range doc.Routes {
			src = append(src, r.Points...)
		}
	}

	out := make([]TrackPoint, 0, len(src))
	var total float64

	for i, p := range src {
		tp := TrackPoint{
			Lat: p.Latitude,
			Lon: p.Longitude,
		}

		if p.Elevation.NotNull() {
			e := p.Elevation.Value()
			tp.Elevation = &e
		}

		if !p.Timestamp.IsZero() {
			t := p.Timestamp.UTC()
			tp.Time = &t
		}

		if i > 0 {
			total += Haversine(out[i-1].Lat, out[i-1].Lon, tp.Lat, tp.Lon)
		}
		tp.DistanceKm = total

		out = append(out, tp)
	}

	return out
}

func trackName(doc *gpxgo.GPX, originalFilename string) string {
	if n := strings.TrimSpace(doc.Name); n != "" {
		return n
	}

	for _, t := range doc.Tracks {
		if n := strings.TrimSpace(t.Name); n != "" {
			return n
		}
	}

	base := filepath.Base(originalFilename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// earliestTime returns the minimum point timestamp, falling back to the
// document time when no point carries one
func earliestTime(points []TrackPoint, docTime *time.Time) *time.Time {
	var earliest *time.Time
	for _, p := range points {
		if p.Time == nil {
			continue
		}

		if earliest == nil || p.Time.Before(*earliest) {
			earliest = p.Time
		}
	}

	if earliest == nil && docTime != nil && !docTime.IsZero() {
		t := docTime.UTC()
		earliest = &t
	}

	if earliest == nil {
		return nil
	}

	t := *earliest
	return &t
}
