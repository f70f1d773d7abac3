// Package validators checks user input before it reaches the repository
package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("unsupported file type, only .gpx files are accepted")
	ErrNoFile              = errors.New("no file provided")
)

// Leaves room for the timestamp prefix of stored filenames
const maxFileNameSize = 230

// GPXFileValidator checks an uploaded file and returns it opened and
// rewound. The returned status code is meant for the response when err is
// not nil.
func GPXFileValidator(fh *multipart.FileHeader) (int, multipart.File, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoFile
	}

	// Check the name first which is easy to spoof, but faster for legit clients
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".gpx") {
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, ErrFileNameTooLong
	}

	maxFileSize := viper.GetInt64("upload.max_size_bytes")
	if maxFileSize > 0 && fh.Size > maxFileSize {
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	// And now do the checks on the actual file to avoid
	// malicious clients
	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, err
	}

	if !isXML(mime) {
		f.Close()
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, err
	}

	return 0, f, nil
}

// isXML accepts GPX and anything detected as a kind of XML, since some
// exporters write GPX without the namespace mimetype looks for
func isXML(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("application/gpx+xml") || m.Is("text/xml") {
			return true
		}
	}

	return false
}
