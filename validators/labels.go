package validators

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidID = errors.New("invalid track ID")

// SplitLabels turns the comma separated label text of the edit form into
// a list. Blank entries are dropped.
func SplitLabels(text string) []string {
	out := []string{}
	for _, l := range strings.Split(text, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}

	return out
}

// TrackID parses a path parameter into a positive track id
func TrackID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}

	return id, nil
}
