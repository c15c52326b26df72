// Package dates parses post dates and formats them for display.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DisplayLayout is the human-readable date format used on pages.
const DisplayLayout = "January 2, 2006"

// Parse reads a date in any unambiguous common format. Dates without a zone
// are taken as UTC so output does not depend on the host.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if _, err := dateparse.ParseStrict(raw); err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// Format parses raw and renders it with DisplayLayout.
func Format(raw string) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Format(DisplayLayout), nil
}

// ISO renders raw as RFC 3339 for machine-readable metadata.
func ISO(raw string) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}
