package api

import (
	"bitwise74/trackbook/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) TrackFetch(c *gin.Context) {
	id, ok := trackID(c)
	if !ok {
		return
	}

	t, err := a.Repo.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "Failed to fetch track")
		return
	}

	c.JSON(http.StatusOK, service.NewDisplayRow(*t))
}
