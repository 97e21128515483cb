// Package publish writes the selection outputs consumed by the display site.
package publish

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/aliceagent/alice-display/internal/conditions"
	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/fs"
)

// WriteSelected writes the chosen record, as its full catalog document, to path.
func WriteSelected(path string, r display.Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding selected image: %w", err)
	}
	if err := fs.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing selected image to %s: %w", path, err)
	}
	return nil
}

// Control is the display-control document read by the display page.
type Control struct {
	CurrentImage ControlImage   `json:"currentImage"`
	Weather      ControlWeather `json:"weather"`
	Time         ControlTime    `json:"time"`
	LastUpdated  time.Time      `json:"lastUpdated"`
	NextUpdate   time.Time      `json:"nextUpdate"`
	Selection    ControlInfo    `json:"selection"`
}

// ControlImage describes the image on screen.
type ControlImage struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Activity    string `json:"activity"`
	Location    string `json:"location"`
	Mood        string `json:"mood"`
	Weather     string `json:"weather_context"`
	TimeOfDay   string `json:"time_context"`
	Verified    bool   `json:"verified"`
}

// ControlWeather mirrors the weather snapshot the selection was made for.
type ControlWeather struct {
	Condition   string   `json:"condition"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// ControlTime is the time-of-day context.
type ControlTime struct {
	Period   string `json:"period"`
	Hour     int    `json:"hour"`
	Timezone string `json:"timezone"`
}

// ControlInfo records how the image was chosen.
type ControlInfo struct {
	Stage          string `json:"stage"`
	Candidates     int    `json:"candidates"`
	RelaxedRecency bool   `json:"relaxedRecency"`
	RunID          string `json:"runId"`
}

// NewControl builds the control document for a selection made at now.
func NewControl(sel *display.Selection, weather conditions.Current, now time.Time, runID string) Control {
	r := sel.Record
	activity := r.Activity
	if activity == "" {
		activity = "Unknown"
	}
	title := r.Name
	if title == "" {
		title = "Alice"
	}
	return Control{
		CurrentImage: ControlImage{
			ID:          r.ID,
			URL:         r.DisplayURL(),
			Title:       title,
			Description: stringField(r, "full_description"),
			Activity:    activity,
			Location:    stringField(r, "location"),
			Mood:        stringField(r, "mood"),
			Weather:     r.Weather,
			TimeOfDay:   r.TimeOfDay,
			Verified:    r.Verified,
		},
		Weather: ControlWeather{
			Condition:   weather.Condition,
			Temperature: weather.Temperature,
			Humidity:    weather.Humidity,
			Description: weather.Description,
			Icon:        weather.Icon,
		},
		Time: ControlTime{
			Period:   weather.TimePeriod,
			Hour:     now.Hour(),
			Timezone: now.Location().String(),
		},
		LastUpdated: now.UTC(),
		NextUpdate:  NextUpdate(now).UTC(),
		Selection: ControlInfo{
			Stage:          sel.Stage.String(),
			Candidates:     sel.Candidates,
			RelaxedRecency: sel.RelaxedRecency,
			RunID:          runID,
		},
	}
}

// NextUpdate returns the top of the hour after now.
func NextUpdate(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour)
}

// WriteControl writes the display-control document to path.
func WriteControl(path string, c Control) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding display control: %w", err)
	}
	if err := fs.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing display control to %s: %w", path, err)
	}
	return nil
}

// stringField returns a string-valued catalog field the engine does not model.
func stringField(r display.Record, key string) string {
	if s, ok := r.Fields[key].(string); ok {
		return s
	}
	return ""
}
