package display

import (
	"maps"
	"strings"

	"github.com/goccy/go-json"
)

// Record is one displayable image and its tags, normalized from a catalog entry.
// Records are created once at catalog load time and never mutated by the engine.
type Record struct {
	ID           string // id or notion_id
	Name         string // name or title
	Weather      string
	TimeOfDay    string // time_of_day, time_period or time
	Activity     string
	Holiday      string
	Verified     bool
	RatingScore  int
	TotalRatings int
	CDNURL       string // cloudinary_url
	URL          string // url
	LocalPath    string // path or filename
	RowNumber    int

	// Fields holds the original catalog document for this record. It is what
	// gets written to the selected-output file, so keys the engine does not
	// understand (location, mood, description...) survive the round trip.
	Fields map[string]any
}

// Key returns the identity used for recency exclusion: the id, or the
// display name when the catalog entry carries no id.
func (r Record) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}

// DisplayURL returns the best location the display surface can render:
// the CDN URL, then the plain URL, then the local path.
func (r Record) DisplayURL() string {
	switch {
	case r.CDNURL != "":
		return r.CDNURL
	case r.URL != "":
		return r.URL
	default:
		return r.LocalPath
	}
}

// HasCDNURL reports whether the record has a CDN-hosted location.
func (r Record) HasCDNURL() bool { return strings.TrimSpace(r.CDNURL) != "" }

// HasDisplayURL reports whether the record has any resolvable location.
func (r Record) HasDisplayURL() bool { return strings.TrimSpace(r.DisplayURL()) != "" }

// IsHoliday reports whether the record is tagged for a holiday.
// Holiday records are never eligible for ordinary selection.
func (r Record) IsHoliday() bool { return strings.TrimSpace(r.Holiday) != "" }

// MarshalJSON writes the original catalog document, with cloudinary_url
// reflecting any enrichment applied at load time. Records built in code
// without a source document are written from their normalized fields.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Fields == nil {
		return json.Marshal(recordDocument{
			ID:           r.ID,
			Name:         r.Name,
			Weather:      r.Weather,
			TimeOfDay:    r.TimeOfDay,
			Activity:     r.Activity,
			Holiday:      r.Holiday,
			Verified:     r.Verified,
			RatingScore:  r.RatingScore,
			TotalRatings: r.TotalRatings,
			CDNURL:       r.CDNURL,
			URL:          r.URL,
			Path:         r.LocalPath,
		})
	}

	doc := maps.Clone(r.Fields)
	if r.CDNURL != "" {
		doc["cloudinary_url"] = r.CDNURL
	}
	return json.Marshal(doc)
}

// recordDocument is the normalized on-disk shape of a Record.
type recordDocument struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Weather      string `json:"weather,omitempty"`
	TimeOfDay    string `json:"time_of_day,omitempty"`
	Activity     string `json:"activity,omitempty"`
	Holiday      string `json:"holiday,omitempty"`
	Verified     bool   `json:"verified"`
	RatingScore  int    `json:"rating_score"`
	TotalRatings int    `json:"total_ratings"`
	CDNURL       string `json:"cloudinary_url,omitempty"`
	URL          string `json:"url,omitempty"`
	Path         string `json:"path,omitempty"`
}
