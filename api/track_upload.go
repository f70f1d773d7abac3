package api

import (
	"bitwise74/trackbook/gpx"
	"bitwise74/trackbook/session"
	"bitwise74/trackbook/validators"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type uploadResult struct {
	Filename string `json:"filename"`
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TrackUpload imports every "file" field of a multipart form. Files are
// handled independently, a bad one doesn't stop the others. The last
// imported track becomes the session's selection.
func (a *API) TrackUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.Error(err)
		if strings.Contains(err.Error(), "request body too large") {
			return
		}

		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed multipart form",
			"requestID": requestID,
		})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	if limit := viper.GetInt("upload.max_files"); limit > 0 && len(files) > limit {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Too many files",
			"requestID": requestID,
		})
		return
	}

	results := make([]uploadResult, 0, len(files))
	var lastID int64
	serverErr := false

	for _, fh := range files {
		res := uploadResult{Filename: fh.Filename}

		code, f, err := validators.GPXFileValidator(fh)
		if err != nil {
			if code == http.StatusInternalServerError {
				zap.L().Error("Failed to validate file", zap.String("requestID", requestID), zap.Error(err))

				// That's to set the error into a general one for the users
				err = errors.New("internal server error")
				serverErr = true
			}

			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			zap.L().Error("Failed to read uploaded file", zap.String("requestID", requestID), zap.Error(err))
			res.Error = "internal server error"
			serverErr = true
			results = append(results, res)
			continue
		}

		imported, err := a.Tracks.Import(c.Request.Context(), fh.Filename, raw)
		if err != nil {
			if errors.Is(err, gpx.ErrParse) {
				res.Error = "invalid GPX file"
			} else {
				zap.L().Error("Failed to import track", zap.String("requestID", requestID), zap.String("file", fh.Filename), zap.Error(err))
				res.Error = "internal server error"
				serverErr = true
			}

			results = append(results, res)
			continue
		}

		a.forget(imported.ID)
		res.ID = imported.ID
		res.Name = imported.Name
		results = append(results, res)
		lastID = imported.ID
	}

	if lastID == 0 {
		code := http.StatusBadRequest
		if serverErr {
			code = http.StatusInternalServerError
		}

		c.AbortWithStatusJSON(code, gin.H{
			"error":     "No file could be imported",
			"results":   results,
			"requestID": requestID,
		})
		return
	}

	a.updateSession(c, func(s *session.State) {
		s.Select(lastID)
	})

	c.JSON(http.StatusCreated, gin.H{
		"results":      results,
		"selected_ids": []int64{lastID},
	})
}
