// Package dates parses locale-variant date strings from bank exports.
package dates

import (
	"strings"
	"time"
)

// Format is an explicit date-format hint.
type Format string

const (
	FormatUnknown  Format = ""
	FormatMDYSlash Format = "MM/DD/YYYY"
	FormatDMYSlash Format = "DD/MM/YYYY"
	FormatISO      Format = "YYYY-MM-DD"
	FormatYMDSlash Format = "YYYY/MM/DD"
	FormatMDYDash  Format = "MM-DD-YYYY"
	FormatDMYDash  Format = "DD-MM-YYYY"
	FormatDMYDot   Format = "DD.MM.YYYY"
	FormatMDYShort Format = "MM/DD/YY"
	FormatLongUS   Format = "Month DD, YYYY"
	FormatLongIntl Format = "DD Month YYYY"
)

// layouts maps each format to its Go reference layout.
var layouts = map[Format]string{
	FormatMDYSlash: "1/2/2006",
	FormatDMYSlash: "2/1/2006",
	FormatISO:      "2006-01-02",
	FormatYMDSlash: "2006/1/2",
	FormatMDYDash:  "1-2-2006",
	FormatDMYDash:  "2-1-2006",
	FormatDMYDot:   "2.1.2006",
	FormatMDYShort: "1/2/06",
	FormatLongUS:   "January 2, 2006",
	FormatLongIntl: "2 January 2006",
}

// priority is the fixed order tried when no hint is given. US slash
// dates come first to match the dominant export convention; ambiguous
// m/d vs d/m strings therefore resolve to MM/DD unless hinted.
var priority = []Format{
	FormatISO,
	FormatMDYSlash,
	FormatDMYSlash,
	FormatYMDSlash,
	FormatMDYDash,
	FormatDMYDash,
	FormatDMYDot,
	FormatMDYShort,
	FormatLongUS,
	FormatLongIntl,
}

// Formats returns the supported hint values in priority order.
func Formats() []Format {
	out := make([]Format, len(priority))
	copy(out, priority)
	return out
}

// Parse converts a raw date string into a time. The hinted format is
// tried first; with no hint each supported format is tried in priority
// order and the first one matching the whole trimmed string wins.
// Garbage returns ok=false rather than an error.
func Parse(s string, hint Format) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if layout, ok := layouts[hint]; ok {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, f := range priority {
		if f == hint {
			continue
		}
		if t, err := time.Parse(layouts[f], s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatAs renders t in the layout named by f, defaulting to ISO.
func FormatAs(t time.Time, f Format) string {
	layout, ok := layouts[f]
	if !ok {
		layout = layouts[FormatISO]
	}
	return t.Format(layout)
}
