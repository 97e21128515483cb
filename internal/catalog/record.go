package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/goccy/go-json"

	"github.com/aliceagent/alice-display/internal/display"
)

// Field aliases, first match wins. Catalog exports have used all of these.
var (
	idKeys        = []string{"id", "notion_id"}
	nameKeys      = []string{"name", "title"}
	timeOfDayKeys = []string{"time_of_day", "time_period", "time"}
	pathKeys      = []string{"path", "filename"}
)

// parseRecord normalizes one catalog entry. Values are read leniently: ids
// may be numbers, booleans may be strings, and counts may be floats or
// numeric strings.
func parseRecord(raw []byte) (display.Record, error) {
	obj, err := jason.NewObjectFromBytes(raw)
	if err != nil {
		return display.Record{}, fmt.Errorf("entry is not an object: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return display.Record{}, fmt.Errorf("decoding entry: %w", err)
	}

	return display.Record{
		ID:           stringField(obj, idKeys...),
		Name:         stringField(obj, nameKeys...),
		Weather:      stringField(obj, "weather"),
		TimeOfDay:    stringField(obj, timeOfDayKeys...),
		Activity:     stringField(obj, "activity"),
		Holiday:      holidayField(obj),
		Verified:     boolField(obj, "verified"),
		RatingScore:  intField(obj, "rating_score"),
		TotalRatings: max(intField(obj, "total_ratings"), 0),
		CDNURL:       stringField(obj, "cloudinary_url"),
		URL:          stringField(obj, "url"),
		LocalPath:    stringField(obj, pathKeys...),
		RowNumber:    intField(obj, "row_number"),
		Fields:       fields,
	}, nil
}

// stringField returns the first non-empty value among keys. Numbers are
// formatted without a trailing ".0" so numeric ids stay stable.
func stringField(obj *jason.Object, keys ...string) string {
	for _, k := range keys {
		v, err := obj.GetValue(k)
		if err != nil {
			continue
		}
		if s, err := v.String(); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		if n, err := v.Number(); err == nil {
			return n.String()
		}
	}
	return ""
}

// intField reads an integer that may be encoded as a number, a float or a
// numeric string. Anything else is 0.
func intField(obj *jason.Object, key string) int {
	v, err := obj.GetValue(key)
	if err != nil {
		return 0
	}
	if i, err := v.Int64(); err == nil {
		return int(i)
	}
	if f, err := v.Float64(); err == nil {
		return int(math.Round(f))
	}
	if s, err := v.String(); err == nil {
		s = strings.TrimSpace(s)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(math.Round(f))
		}
	}
	return 0
}

// boolField reads a boolean that may be encoded as true/false, "true"/"yes"
// or a number.
func boolField(obj *jason.Object, key string) bool {
	v, err := obj.GetValue(key)
	if err != nil {
		return false
	}
	if b, err := v.Boolean(); err == nil {
		return b
	}
	if s, err := v.String(); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	}
	if f, err := v.Float64(); err == nil {
		return f != 0
	}
	return false
}

// holidayField reads the holiday tag. A boolean true marks an unnamed
// holiday; false and empty values mean none.
func holidayField(obj *jason.Object) string {
	v, err := obj.GetValue("holiday")
	if err != nil {
		return ""
	}
	if b, err := v.Boolean(); err == nil {
		if b {
			return "true"
		}
		return ""
	}
	return stringField(obj, "holiday")
}
