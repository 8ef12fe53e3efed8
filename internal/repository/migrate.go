package repository

import (
	"strconv"
	"strings"
	"time"
)

// legacyDateLayouts are the shapes the old bot stored in lastDaily before it
// switched to epoch milliseconds. All are interpreted as UTC.
var legacyDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseLegacyDate converts a legacy lastDaily value to epoch milliseconds.
// Values that are already integers pass through unchanged.
func parseLegacyDate(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, true
	}
	for _, layout := range legacyDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
