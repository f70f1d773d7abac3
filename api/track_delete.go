package api

import (
	"bitwise74/trackbook/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackDelete removes a track with its file and drops it from the
// session's selection
func (a *API) TrackDelete(c *gin.Context) {
	id, ok := trackID(c)
	if !ok {
		return
	}

	name, err := a.Repo.DeleteOne(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "Failed to delete track")
		return
	}

	a.forget(id)
	a.updateSession(c, func(s *session.State) {
		s.Deselect(id)
	})

	c.JSON(http.StatusOK, gin.H{
		"id":   id,
		"name": name,
	})
}
