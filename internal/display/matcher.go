package display

import (
	"fmt"
	"slices"
	"strings"
)

// MatchMode controls how record tags are compared with query labels.
type MatchMode int

const (
	// MatchExact requires case-insensitive equality. Use for catalogs with a
	// controlled vocabulary.
	MatchExact MatchMode = iota
	// MatchSubstring accepts a label contained in the tag or a tag contained
	// in the label, case-insensitively. Use for legacy catalogs whose tags
	// drifted across data-entry passes ("Clear Night" matches "Night").
	MatchSubstring
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchSubstring:
		return "substring"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// ParseMatchMode parses "exact" or "substring". The empty string means exact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "substring", "legacy":
		return MatchSubstring, nil
	default:
		return MatchExact, fmt.Errorf("unknown match mode: %q", s)
	}
}

// labelMatches compares a record tag with a query label. An empty tag or an
// empty label never matches, in either mode.
func (m MatchMode) labelMatches(tag, label string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	label = strings.ToLower(strings.TrimSpace(label))
	if tag == "" || label == "" {
		return false
	}
	if m == MatchSubstring {
		return strings.Contains(tag, label) || strings.Contains(label, tag)
	}
	return tag == label
}

// Matcher filters a catalog down to eligible candidates for one
// weather/time-of-day pair.
type Matcher struct {
	records        []Record
	mode           MatchMode
	preferVerified bool
}

// NewMatcher creates a Matcher over records.
func NewMatcher(records []Record, mode MatchMode) *Matcher {
	return &Matcher{records: records, mode: mode}
}

// PreferVerified makes FindMatches narrow each match set to verified records
// when at least one is present.
func (m *Matcher) PreferVerified(on bool) *Matcher {
	m.preferVerified = on
	return m
}

// FindMatches returns the records eligible for weather and timeOfDay.
// The constraints apply in a fixed order:
//
//  1. holiday-tagged records are dropped
//  2. weather must match
//  3. time of day must match
//  4. records whose id or name is in excluded are dropped
//  5. if preferred activities yield at least one hit, only the hits remain
//  6. records with a CDN URL win; else records with any URL; else all survivors
//  7. with PreferVerified, verified records win if any survive
//
// A non-empty result may still lack display URLs; see Resolvable.
func (m *Matcher) FindMatches(weather, timeOfDay string, excluded map[string]bool, preferred []string) []Record {
	var matches []Record
	for _, r := range m.records {
		if r.IsHoliday() {
			continue
		}
		if !m.mode.labelMatches(r.Weather, weather) {
			continue
		}
		if !m.mode.labelMatches(r.TimeOfDay, timeOfDay) {
			continue
		}
		if isExcluded(r, excluded) {
			continue
		}
		matches = append(matches, r)
	}

	if len(preferred) > 0 {
		if hits := filterRecords(matches, func(r Record) bool { return matchesActivity(r, preferred) }); len(hits) > 0 {
			matches = hits
		}
	}

	matches = preferResolvable(matches)
	if m.preferVerified {
		matches = preferVerified(matches)
	}
	return matches
}

// Resolvable reports whether any record in the set has a display URL.
func Resolvable(records []Record) bool {
	return slices.ContainsFunc(records, Record.HasDisplayURL)
}

// isExcluded reports whether the record's id or name is in the excluded set.
func isExcluded(r Record, excluded map[string]bool) bool {
	if len(excluded) == 0 {
		return false
	}
	return (r.ID != "" && excluded[r.ID]) || (r.Name != "" && excluded[r.Name])
}

// preferResolvable narrows records to those with a CDN URL, else to those
// with any URL. When neither exists the input is returned unchanged so the
// caller still sees that matches were found.
func preferResolvable(records []Record) []Record {
	if cdn := filterRecords(records, Record.HasCDNURL); len(cdn) > 0 {
		return cdn
	}
	if any := filterRecords(records, Record.HasDisplayURL); len(any) > 0 {
		return any
	}
	return records
}

func preferVerified(records []Record) []Record {
	if verified := filterRecords(records, func(r Record) bool { return r.Verified }); len(verified) > 0 {
		return verified
	}
	return records
}

func filterRecords(records []Record, keep func(Record) bool) []Record {
	var out []Record
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
