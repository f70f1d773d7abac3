package api

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackFile serves the original GPX file as a download
func (a *API) TrackFile(c *gin.Context) {
	id, ok := trackID(c)
	if !ok {
		return
	}

	t, rc, err := a.Repo.Open(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "Failed to open track file")
		return
	}
	defer rc.Close()

	// Non-ASCII names are sent as RFC 2231 filename*
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": t.OriginalFilename})
	if disposition == "" {
		disposition = "attachment"
	}

	c.DataFromReader(http.StatusOK, -1, "application/gpx+xml", rc, map[string]string{
		"Content-Disposition": disposition,
	})
}
