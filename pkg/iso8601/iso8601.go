// Package iso8601 parses the ISO-8601 timestamps found in sitemaps and page metadata.
package iso8601

import (
	"fmt"
	"strings"
	"time"
)

// layouts are tried in order. Layouts without a zone parse as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"20060102T150405Z0700",
	"20060102",
}

// Parse parses raw as an ISO-8601 date or date-time.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("parse iso8601: empty value")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("parse iso8601: unrecognized date %q", raw)
}
