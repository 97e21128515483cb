package display

import "strings"

// HourRange is a half-open range of hours [Start, End) on a 24-hour clock.
// A range whose Start is after its End wraps past midnight (23 to 6 covers
// 23:00 through 05:59). A range with Start == End is empty.
type HourRange struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	hour = ((hour % 24) + 24) % 24
	switch {
	case r.Start == r.End:
		return false
	case r.Start < r.End:
		return hour >= r.Start && hour < r.End
	default:
		return hour >= r.Start || hour < r.End
	}
}

// ActivityPreference lists the activities that suit a range of hours.
type ActivityPreference struct {
	Hours      HourRange
	Activities []string
}

// ActivityTable maps hours of the day to preferred activities.
type ActivityTable []ActivityPreference

// DefaultActivityTable returns the built-in hour-to-activity preferences.
func DefaultActivityTable() ActivityTable {
	return ActivityTable{
		{Hours: HourRange{23, 5}, Activities: []string{"Sleeping", "Resting"}},
		{Hours: HourRange{5, 8}, Activities: []string{"Coffee", "Breakfast", "Exercise"}},
		{Hours: HourRange{8, 12}, Activities: []string{"Work", "Reading"}},
		{Hours: HourRange{12, 14}, Activities: []string{"Lunch", "Cooking"}},
		{Hours: HourRange{14, 18}, Activities: []string{"Work", "Creative", "Gardening"}},
		{Hours: HourRange{18, 21}, Activities: []string{"Cooking", "Dinner", "Leisure"}},
		{Hours: HourRange{21, 23}, Activities: []string{"Reading", "Relaxing", "Leisure"}},
	}
}

// PreferredAt returns the activities preferred at hour, in table order,
// without duplicates. It returns nil when no entry covers the hour.
func (t ActivityTable) PreferredAt(hour int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range t {
		if !p.Hours.Contains(hour) {
			continue
		}
		for _, a := range p.Activities {
			k := strings.ToLower(a)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, a)
		}
	}
	return out
}

// QuietHours is the window during which the global fallback only shows
// records whose activity is one of Activities.
type QuietHours struct {
	Hours      HourRange
	Activities []string
}

// DefaultQuietHours returns 23:00 to 06:00 with sleep-themed activities.
func DefaultQuietHours() QuietHours {
	return QuietHours{
		Hours:      HourRange{23, 6},
		Activities: []string{"Sleeping", "Resting", "Dreaming"},
	}
}

// Contains reports whether hour is inside the quiet window.
func (q QuietHours) Contains(hour int) bool {
	return len(q.Activities) > 0 && q.Hours.Contains(hour)
}

// matchesActivity reports whether the record's activity or name contains any
// of the given terms, case-insensitively.
func matchesActivity(r Record, terms []string) bool {
	activity := strings.ToLower(r.Activity)
	name := strings.ToLower(r.Name)
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(activity, t) || strings.Contains(name, t) {
			return true
		}
	}
	return false
}
