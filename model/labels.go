package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Labels is stored as a JSON array in a text column. Every write goes
// through NormalizeLabels so the column never holds blanks or duplicates.
type Labels []string

// NormalizeLabels trims every label, drops empty ones, removes duplicates
// and sorts the result
func NormalizeLabels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}

	slices.Sort(out)
	return out
}

// EncodeLabel returns the JSON form of a single label as it appears inside
// the stored array. Label filters match against it.
func EncodeLabel(l string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// A string always encodes
	_ = enc.Encode(l)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Value implements the driver.Valuer interface.
func (l Labels) Value() (driver.Value, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(NormalizeLabels(l)); err != nil {
		return nil, fmt.Errorf("failed to encode labels, %w", err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Scan implements the sql.Scanner interface. Malformed JSON is read as an
// empty list so a single bad row doesn't break listings.
func (l *Labels) Scan(value any) error {
	if value == nil {
		*l = Labels{}
		return nil
	}

	str, ok := value.(string)
	if !ok {
		b, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan Labels, %v", value)
		}

		str = string(b)
	}

	labels, err := ParseLabels(str)
	if err != nil {
		zap.L().Warn("Malformed labels column, treating as empty", zap.String("raw", str), zap.Error(err))
		*l = Labels{}
		return nil
	}

	*l = labels
	return nil
}

// ParseLabels decodes a stored labels column. An empty string is an empty list.
func ParseLabels(raw string) (Labels, error) {
	if strings.TrimSpace(raw) == "" {
		return Labels{}, nil
	}

	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}

	return Labels(NormalizeLabels(out)), nil
}
