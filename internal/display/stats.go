package display

import "strings"

// unknownLabel counts records with no value for a grouped field.
const unknownLabel = "Unknown"

// Stats summarizes a catalog.
type Stats struct {
	Total         int
	Verified      int
	WithCDNURL    int
	Holiday       int
	ByWeather     map[string]int
	ByTimeOfDay   map[string]int
	ByActivity    map[string]int
	RecentlyShown int // distinct ids and names inside the recency window
}

// ComputeStats aggregates counts over records. recent is the set returned
// by HistoryStore.RecentIDs and may be nil.
func ComputeStats(records []Record, recent map[string]bool) Stats {
	s := Stats{
		Total:         len(records),
		ByWeather:     make(map[string]int),
		ByTimeOfDay:   make(map[string]int),
		ByActivity:    make(map[string]int),
		RecentlyShown: len(recent),
	}
	for _, r := range records {
		if r.Verified {
			s.Verified++
		}
		if r.HasCDNURL() {
			s.WithCDNURL++
		}
		if r.IsHoliday() {
			s.Holiday++
		}
		s.ByWeather[labelOrUnknown(r.Weather)]++
		s.ByTimeOfDay[labelOrUnknown(r.TimeOfDay)]++
		s.ByActivity[labelOrUnknown(r.Activity)]++
	}
	return s
}

func labelOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownLabel
	}
	return s
}
