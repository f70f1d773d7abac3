package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type selectionOpts struct {
	IDs []int64 `json:"ids"`
}

// SelectionFetch returns geometry and totals for the session's selection
func (a *API) SelectionFetch(c *gin.Context) {
	s, ok := a.loadSession(c)
	if !ok {
		return
	}

	sel, err := a.Tracks.Selection(c.Request.Context(), s.SelectedIDs)
	if err != nil {
		abortWithError(c, err, "Failed to build selection")
		return
	}

	if len(sel.IDs) != len(s.SelectedIDs) {
		s.Select(sel.IDs...)
		a.saveSession(c, s)
	}

	c.JSON(http.StatusOK, sel)
}

// SelectionUpdate replaces the selection. Ids of missing tracks are dropped.
func (a *API) SelectionUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data selectionOpts
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	s, ok := a.loadSession(c)
	if !ok {
		return
	}

	sel, err := a.Tracks.Selection(c.Request.Context(), data.IDs)
	if err != nil {
		abortWithError(c, err, "Failed to build selection")
		return
	}

	s.Select(sel.IDs...)
	a.saveSession(c, s)

	c.JSON(http.StatusOK, sel)
}
