package display

import (
	"maps"
	"slices"
	"strings"
)

// FallbackChains maps condition labels to ordered lists of acceptable
// substitutes, first entry tried first. Chains are authored, not derived,
// and need not be symmetric. Map keys are lower-cased labels; see ChainKey.
type FallbackChains struct {
	Weather map[string][]string
	Time    map[string][]string
}

// GalleryChains returns the chains for the gallery vocabulary
// (Sunny, Cloudy, Overcast, Rainy, Stormy, Snowy, Foggy;
// Dawn, Morning, Midday, Afternoon, Evening, Night). The weather feed also
// reports Early Morning, Golden Hour and Late Night; those fall back into
// the gallery periods.
func GalleryChains() FallbackChains {
	return FallbackChains{
		Weather: chainTable(map[string][]string{
			"Sunny":    {"Cloudy", "Overcast"},
			"Cloudy":   {"Overcast", "Sunny", "Foggy"},
			"Overcast": {"Cloudy", "Foggy", "Rainy"},
			"Rainy":    {"Stormy", "Overcast", "Cloudy"},
			"Stormy":   {"Rainy", "Overcast"},
			"Snowy":    {"Cloudy", "Overcast", "Foggy"},
			"Foggy":    {"Cloudy", "Overcast"},
		}),
		Time: chainTable(map[string][]string{
			"Dawn":      {"Morning", "Evening"},
			"Morning":   {"Dawn", "Midday"},
			"Midday":    {"Morning", "Afternoon"},
			"Afternoon": {"Midday", "Evening"},
			"Evening":   {"Afternoon", "Night"},
			"Night":     {"Evening", "Dawn"},

			"Early Morning": {"Dawn", "Morning"},
			"Golden Hour":   {"Evening", "Afternoon"},
			"Late Night":    {"Night", "Evening"},
		}),
	}
}

// LegacyChains returns the chains for the older, wider vocabulary that
// includes Partly Cloudy, Windy, Early Morning, Golden Hour and Late Night.
func LegacyChains() FallbackChains {
	return FallbackChains{
		Weather: chainTable(map[string][]string{
			"Sunny":         {"Partly Cloudy", "Cloudy"},
			"Partly Cloudy": {"Sunny", "Cloudy"},
			"Cloudy":        {"Overcast", "Partly Cloudy"},
			"Overcast":      {"Cloudy", "Rainy"},
			"Rainy":         {"Stormy", "Cloudy", "Overcast"},
			"Stormy":        {"Rainy", "Overcast"},
			"Snowy":         {"Cloudy", "Overcast", "Foggy"},
			"Foggy":         {"Cloudy", "Overcast"},
			"Windy":         {"Cloudy", "Partly Cloudy"},
		}),
		Time: chainTable(map[string][]string{
			"Dawn":          {"Early Morning", "Morning", "Golden Hour"},
			"Early Morning": {"Dawn", "Morning"},
			"Morning":       {"Dawn", "Midday", "Early Morning"},
			"Midday":        {"Afternoon", "Morning"},
			"Afternoon":     {"Midday", "Evening", "Golden Hour"},
			"Golden Hour":   {"Afternoon", "Evening"},
			"Evening":       {"Golden Hour", "Afternoon", "Night"},
			"Night":         {"Late Night", "Evening", "Dawn"},
			"Late Night":    {"Night", "Dawn"},
			"Clear Night":   {"Night", "Late Night", "Evening"},
		}),
	}
}

// ChainKey normalizes a condition label for use as a chain key.
func ChainKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// chainTable copies src with every key normalized by ChainKey.
func chainTable(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[ChainKey(k)] = v
	}
	return out
}

// ChainsByName returns the named built-in chain set ("gallery" or "legacy").
func ChainsByName(name string) (FallbackChains, bool) {
	switch strings.ToLower(name) {
	case "", "gallery":
		return GalleryChains(), true
	case "legacy":
		return LegacyChains(), true
	default:
		return FallbackChains{}, false
	}
}

// WithOverrides returns a copy of c where each label present in weather or
// timeOfDay replaces the built-in chain for that label. Labels match
// case-insensitively, so an override for "sunny" replaces "Sunny".
func (c FallbackChains) WithOverrides(weather, timeOfDay map[string][]string) FallbackChains {
	out := FallbackChains{
		Weather: chainTable(c.Weather),
		Time:    chainTable(c.Time),
	}
	maps.Copy(out.Weather, chainTable(weather))
	maps.Copy(out.Time, chainTable(timeOfDay))
	return out
}

// WeatherFallbacks returns the substitutes for a weather label, or nil for unknown labels.
func (c FallbackChains) WeatherFallbacks(label string) []string {
	return lookupChain(c.Weather, label)
}

// TimeFallbacks returns the substitutes for a time-of-day label, or nil for unknown labels.
func (c FallbackChains) TimeFallbacks(label string) []string {
	return lookupChain(c.Time, label)
}

// lookupChain finds a chain by its normalized label. The returned slice is
// a copy and never contains the label itself.
func lookupChain(table map[string][]string, label string) []string {
	key := ChainKey(label)
	chain, ok := table[key]
	if !ok {
		return nil
	}
	return slices.DeleteFunc(slices.Clone(chain), func(s string) bool {
		return ChainKey(s) == key
	})
}
