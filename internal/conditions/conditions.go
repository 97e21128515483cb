// Package conditions reads the pre-resolved weather document and maps the
// hour of day to a time-of-day label.
package conditions

import (
	"errors"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aliceagent/alice-display/internal/display"
)

// Time-of-day labels produced by TimePeriodForHour.
const (
	LateNight    = "Late Night"
	Dawn         = "Dawn"
	EarlyMorning = "Early Morning"
	Morning      = "Morning"
	Midday       = "Midday"
	Afternoon    = "Afternoon"
	GoldenHour   = "Golden Hour"
	Evening      = "Evening"
	Night        = "Night"
)

// TimePeriodForHour returns the time-of-day label for an hour (0-23).
// Hours outside that range are taken modulo 24.
func TimePeriodForHour(hour int) string {
	hour = ((hour % 24) + 24) % 24
	switch {
	case hour >= 23 || hour < 5:
		return LateNight
	case hour < 6:
		return Dawn
	case hour < 8:
		return EarlyMorning
	case hour < 11:
		return Morning
	case hour < 14:
		return Midday
	case hour < 17:
		return Afternoon
	case hour < 18:
		return GoldenHour
	case hour < 20:
		return Evening
	default:
		return Night
	}
}

// Current is the weather snapshot a selection is made for.
type Current struct {
	Condition   string   `json:"condition"`
	TimePeriod  string   `json:"time_period"`
	Hour        *int     `json:"current_hour,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// LoadCurrent reads the weather document at path. Fields the document does
// not provide are taken from defaults; when the time period is missing but
// the hour is known, the period is derived from the hour. A missing or
// malformed document yields defaults and a warning.
func LoadCurrent(path string, defaults Current, logger display.Logger) Current {
	if logger == nil {
		logger = display.NewNopLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("weather document not found; using defaults", "path", path, "condition", defaults.Condition, "time_period", defaults.TimePeriod)
		} else {
			logger.Warn("reading weather document failed; using defaults", "path", path, "error", err)
		}
		return defaults
	}

	var cur Current
	if err := json.Unmarshal(data, &cur); err != nil {
		logger.Warn("weather document is malformed; using defaults", "path", path, "error", err)
		return defaults
	}

	cur.Condition = strings.TrimSpace(cur.Condition)
	cur.TimePeriod = strings.TrimSpace(cur.TimePeriod)

	if cur.Condition == "" {
		cur.Condition = defaults.Condition
	}
	if cur.Hour != nil && (*cur.Hour < 0 || *cur.Hour > 23) {
		logger.Warn("ignoring out-of-range current_hour", "hour", *cur.Hour)
		cur.Hour = nil
	}
	if cur.Hour == nil {
		cur.Hour = defaults.Hour
	}
	if cur.TimePeriod == "" {
		if cur.Hour != nil {
			cur.TimePeriod = TimePeriodForHour(*cur.Hour)
		} else {
			cur.TimePeriod = defaults.TimePeriod
		}
	}
	return cur
}
