package api

import (
	"bitwise74/trackbook/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

type bulkDeleteOpts struct {
	IDs []int64 `json:"ids"`
}

// TrackDeleteBulk removes many tracks in one transaction. Problems with
// single ids are reported next to the count, not as a failed request. The
// session's selection is cleared.
func (a *API) TrackDeleteBulk(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data bulkDeleteOpts
	if err := c.ShouldBindJSON(&data); err != nil || len(data.IDs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No track IDs provided",
			"requestID": requestID,
		})
		return
	}

	deleted, errs := a.Repo.DeleteMany(c.Request.Context(), data.IDs)

	if deleted > 0 {
		a.forget(data.IDs...)
	}
	a.updateSession(c, func(s *session.State) {
		s.Select()
	})

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
		"errors":  errs,
	})
}
