package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LabelsFetch returns the label vocabulary. Filter labels of the session
// that no track carries anymore are dropped.
func (a *API) LabelsFetch(c *gin.Context) {
	labels, err := a.Repo.ListUniqueLabels(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "Failed to list labels")
		return
	}

	s, ok := a.loadSession(c)
	if !ok {
		return
	}

	if s.PruneLabels(labels) {
		a.saveSession(c, s)
	}

	c.JSON(http.StatusOK, gin.H{
		"labels": labels,
		"filter": s.Filter,
	})
}
