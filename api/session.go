package api

import (
	"bitwise74/trackbook/repository"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) SessionFetch(c *gin.Context) {
	s, ok := a.loadSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s)
}

// SessionFilterUpdate stores a new filter. Dates are validated here so the
// client learns about typos instead of silently getting every track.
func (a *API) SessionFilterUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var f repository.Filter
	if err := c.ShouldBindJSON(&f); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	if _, _, err := repository.ParseDateRange(f); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Dates must use the YYYY-MM-DD format",
			"requestID": requestID,
		})
		return
	}

	if f.Labels == nil {
		f.Labels = []string{}
	}

	s, ok := a.loadSession(c)
	if !ok {
		return
	}

	s.Filter = f
	a.saveSession(c, s)

	c.JSON(http.StatusOK, s)
}
