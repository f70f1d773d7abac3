package api

import (
	"bitwise74/trackbook/gpx"
	"bitwise74/trackbook/repository"
	"bitwise74/trackbook/session"
	"bitwise74/trackbook/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// abortWithError answers with the status matching err. Anything that isn't
// the client's fault is logged and hidden behind a generic message.
func abortWithError(c *gin.Context, err error, msg string) {
	requestID := c.GetString("requestID")

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Track not found",
			"requestID": requestID,
		})
	case errors.Is(err, gpx.ErrParse):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid GPX file",
			"requestID": requestID,
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error(msg, zap.String("requestID", requestID), zap.Error(err))
	}
}

// trackID reads the :id path parameter, answering 400 when it's invalid
func trackID(c *gin.Context) (int64, bool) {
	id, err := validators.TrackID(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid track ID",
			"requestID": c.GetString("requestID"),
		})
		return 0, false
	}

	return id, true
}

func (a *API) loadSession(c *gin.Context) (*session.State, bool) {
	s, err := a.Sessions.Get(c.Request.Context(), c.GetString("sessionID"))
	if err != nil {
		abortWithError(c, err, "Failed to load session")
		return nil, false
	}

	return s, true
}

func (a *API) saveSession(c *gin.Context, s *session.State) {
	err := a.Sessions.Save(c.Request.Context(), c.GetString("sessionID"), s)
	if err != nil {
		zap.L().Error("Failed to save session", zap.String("requestID", c.GetString("requestID")), zap.Error(err))
	}
}

// updateSession applies fn to the stored session. Failures are logged only
// since the request itself already succeeded.
func (a *API) updateSession(c *gin.Context, fn func(s *session.State)) {
	s, err := a.Sessions.Get(c.Request.Context(), c.GetString("sessionID"))
	if err != nil {
		zap.L().Error("Failed to load session", zap.String("requestID", c.GetString("requestID")), zap.Error(err))
		return
	}

	fn(s)
	a.saveSession(c, s)
}
