package api

import (
	"bitwise74/trackbook/repository"
	"bitwise74/trackbook/service"
	"bitwise74/trackbook/validators"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type trackEditOpts struct {
	Name string `json:"name"`
	// Comma separated, as typed into the edit form
	Labels string `json:"labels"`
}

// TrackEdit replaces name and labels. A blank name turns into the
// placeholder name.
func (a *API) TrackEdit(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	id, ok := trackID(c)
	if !ok {
		return
	}

	var data trackEditOpts
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to read JSON body", zap.Error(err))
		return
	}

	found, err := a.Repo.Update(c.Request.Context(), id, data.Name, validators.SplitLabels(data.Labels))
	if err != nil {
		abortWithError(c, err, "Failed to update track")
		return
	}

	if !found {
		abortWithError(c, fmt.Errorf("%w: id %d", repository.ErrNotFound, id), "")
		return
	}

	t, err := a.Repo.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "Failed to fetch updated track")
		return
	}

	c.JSON(http.StatusOK, service.NewDisplayRow(*t))
}
