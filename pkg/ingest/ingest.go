// Package ingest parses exported CSV and JSON data into normalized records:
// meeting rosters, ad spend rows, CRM leads, and event registrations.
// Upstream exports are noisy, so malformed rows are skipped and counted
// rather than failing the batch. Field fallbacks (official revenue vs the
// estimate column, guest name vs email-derived name) are resolved here, once,
// so downstream packages never see raw export quirks.
package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Stats counts the outcome of one parse pass.
type Stats struct {
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

// dateLayouts are accepted input formats, tried in order. Everything
// normalizes to YYYY-MM-DD keys internally.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// parseDateKey normalizes a raw date string to a YYYY-MM-DD key. Empty
// result means unparseable.
func parseDateKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// startTimeLayouts are accepted session start-time formats, tried in order.
var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// parseStartTime parses an optional session start timestamp. Blank or
// unparseable input yields the zero time; start time is auxiliary metadata
// and never a reason to skip a session.
func parseStartTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseMoney parses a currency-ish number, tolerating $ signs, commas, and
// whitespace. Returns ok=false for blanks and garbage.
func parseMoney(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCount parses a non-negative integer, tolerating blanks as zero.
func parseCount(raw string) (int, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, true
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// header maps lowercased column names to indices for one CSV file.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

// get returns the trimmed cell under the first matching column name.
func (h header) get(row []string, names ...string) string {
	for _, name := range names {
		if i, ok := h[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

// has reports whether any of the named columns exists.
func (h header) has(names ...string) bool {
	for _, name := range names {
		if _, ok := h[name]; ok {
			return true
		}
	}
	return false
}
