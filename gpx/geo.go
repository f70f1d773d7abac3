package gpx

import "math"

// EarthRadiusKm is the mean earth radius used by Haversine
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two coordinates in km
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// AscentDescent sums positive and negative elevation changes between
// consecutive points. Pairs where either side has no elevation are skipped.
// ok is false when no pair could be used.
func AscentDescent(points []TrackPoint) (ascent, descent float64, ok bool) {
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Elevation, points[i].Elevation
		if prev == nil || cur == nil {
			continue
		}

		ok = true
		diff := *cur - *prev
		if diff > 0 {
			ascent += diff
		} else {
			descent -= diff
		}
	}

	return ascent, descent, ok
}

// Bounds is the smallest lat/lon rectangle enclosing a set of points
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf computes the bounds over every point of every sequence.
// ok is false when there are no points at all.
func BoundsOf(sequences ...[]TrackPoint) (b Bounds, ok bool) {
	for _, seq := range sequences {
		for _, p := range seq {
			if !ok {
				b = Bounds{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
				ok = true
				continue
			}

			b.MinLat = math.Min(b.MinLat, p.Lat)
			b.MinLon = math.Min(b.MinLon, p.Lon)
			b.MaxLat = math.Max(b.MaxLat, p.Lat)
			b.MaxLon = math.Max(b.MaxLon, p.Lon)
		}
	}

	return b, ok
}

// ElevationSample is one point of an elevation profile
type ElevationSample struct {
	DistanceKm float64 `json:"dist_km"`
	ElevationM float64 `json:"ele_m"`
}

// ElevationSeries returns the distance/elevation pairs of every point that
// has an elevation
func ElevationSeries(points []TrackPoint) []ElevationSample {
	out := make([]ElevationSample, 0, len(points))
	for _, p := range points {
		if p.Elevation == nil {
			continue
		}

		out = append(out, ElevationSample{
			DistanceKm: p.DistanceKm,
			ElevationM: *p.Elevation,
		})
	}

	return out
}
