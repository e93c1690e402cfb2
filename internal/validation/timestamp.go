package validation

import (
	"errors"
	"strings"
	"time"
)

// ServerTimestampLayout is the form used for server-generated ts values.
const ServerTimestampLayout = "2006-01-02T15:04:05.000000"

var errTimestamp = errors.New("not an ISO-8601 timestamp")

var timestampLayouts = func() []string {
	clocks := []string{"15", "15:04", "15:04:05"} // fractional seconds are accepted after :05
	zones := []string{"", "Z07:00", "Z0700", "Z07"}
	out := []string{"2006-01-02", "20060102"}
	for _, sep := range []string{"T", " "} {
		for _, c := range clocks {
			for _, z := range zones {
				out = append(out, "2006-01-02"+sep+c+z)
			}
		}
	}
	// basic format: 20240101T100000
	for _, c := range []string{"15", "1504", "150405"} {
		for _, z := range zones {
			out = append(out, "20060102T"+c+z)
		}
	}
	return out
}()

// ParseTimestamp parses the ISO-8601 forms clients send: a calendar date,
// or date and time (hour, minute or second precision, optional fraction)
// separated by 'T' or a space, with an optional Z or numeric offset.
// The basic format without '-' and ':' is accepted with a 'T' separator.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" || strings.TrimSpace(s) != s {
		return time.Time{}, errTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errTimestamp
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ServerTimestampLayout)
}
