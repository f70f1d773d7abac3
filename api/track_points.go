package api

import (
	"bitwise74/trackbook/gpx"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackPoints returns the point sequence of a track for drawing
func (a *API) TrackPoints(c *gin.Context) {
	id, ok := trackID(c)
	if !ok {
		return
	}

	points, err := a.Tracks.Points(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "Failed to load track points")
		return
	}

	b, _ := gpx.BoundsOf(points)

	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"points": points,
		"bounds": b,
	})
}

// TrackElevation returns distance/elevation pairs of a track. Tracks
// without elevation data give an empty list.
func (a *API) TrackElevation(c *gin.Context) {
	id, ok := trackID(c)
	if !ok {
		return
	}

	points, err := a.Tracks.Points(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "Failed to load track points")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"samples": gpx.ElevationSeries(points),
	})
}
