package api

import (
	"bitwise74/trackbook/repository"
	"bitwise74/trackbook/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackFetchBulk lists tracks matching the date_from, date_to and label
// query parameters. The filter is remembered in the session and the
// selection is narrowed to the tracks still visible.
func (a *API) TrackFetchBulk(c *gin.Context) {
	s, ok := a.loadSession(c)
	if !ok {
		return
	}

	f := repository.Filter{
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Labels:   c.QueryArray("label"),
	}
	if f.Labels == nil {
		f.Labels = []string{}
	}

	tracks, err := a.Repo.List(c.Request.Context(), f)
	if err != nil {
		abortWithError(c, err, "Failed to list tracks")
		return
	}

	visible := make([]int64, 0, len(tracks))
	for _, t := range tracks {
		visible = append(visible, t.ID)
	}

	s.Filter = f
	s.PruneSelection(visible)
	a.saveSession(c, s)

	resp := gin.H{
		"tracks":       service.DisplayRows(tracks),
		"selected_ids": s.SelectedIDs,
		"filter":       f,
	}

	// The repository falls back to an unfiltered list, tell the client why
	if _, _, err := repository.ParseDateRange(f); err != nil {
		resp["warning"] = "Invalid date filter ignored"
	}

	c.JSON(http.StatusOK, resp)
}
