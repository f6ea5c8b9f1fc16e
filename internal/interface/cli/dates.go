package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// parseSince reads a cutoff like "yesterday", "last week" or "2026-01-02"
// relative to now. An empty string means no cutoff.
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}

	// Fall back to natural language. Exact formats go first so "2026/03/04"
	// is not read as a day/month pair.
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(s, now)
	if err == nil && result != nil {
		return result.Time, nil
	}

	return time.Time{}, fmt.Errorf("cannot understand date %q", s)
}
