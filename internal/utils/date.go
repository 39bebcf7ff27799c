// Package utils provides utility functions for date conversion, file
// operations and timing used by the rubrik_polaris commands.
package utils

import (
	"fmt"
	"strings"
	"time"
)

// ConvertTimeToPolarisDate formats t in UTC as RFC 3339, the form Polaris
// filters expect for DateTime arguments.
func ConvertTimeToPolarisDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseSince turns a --since flag into an absolute time. A Go duration such
// as "24h" is subtracted from now; anything else must be an RFC 3339
// timestamp. An empty value yields the zero time.
func ParseSince(since string, now time.Time) (time.Time, error) {
	since = strings.TrimSpace(since)
	if since == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(since); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %q", since)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, since)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since value %q: use a duration such as 24h or an RFC 3339 timestamp", since)
	}
	return t, nil
}
