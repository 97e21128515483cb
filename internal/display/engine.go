package display

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrNoSelection is returned when every cascade stage, including the global
// fallback, produced no candidates. It only happens when the catalog has no
// eligible records at all.
var ErrNoSelection = errors.New("no selection possible")

// DefaultRecencyWindow is how far back recently shown records are avoided.
const DefaultRecencyWindow = 24 * time.Hour

// Stage identifies the cascade stage that produced the candidate set.
type Stage int

const (
	StageExact Stage = iota
	StageWeatherFallback
	StageTimeFallback
	StageCombinedFallback
	StageGlobalFallback
)

func (s Stage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageWeatherFallback:
		return "weather-fallback"
	case StageTimeFallback:
		return "time-fallback"
	case StageCombinedFallback:
		return "combined-fallback"
	case StageGlobalFallback:
		return "global-fallback"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Query is one selection request.
type Query struct {
	Weather   string
	TimeOfDay string
	// Hour is the local hour of day (0-23) used for activity preferences and
	// quiet hours. Nil disables both.
	Hour        *int
	AvoidRecent bool // exclude records shown inside the recency window
	Persist     bool // record the pick to history
}

// AtHour returns a pointer to h, for Query.Hour.
func AtHour(h int) *int { return &h }

// Selection is the outcome of a successful Select.
type Selection struct {
	Record         Record
	Stage          Stage
	Weather        string // weather label that produced the candidates
	TimeOfDay      string // time-of-day label that produced the candidates
	Candidates     int    // size of the candidate set the draw was made from
	RelaxedRecency bool   // true when recently shown records had to be allowed back
}

// Settings holds the tunable parts of the engine.
type Settings struct {
	MatchMode     MatchMode
	Chains        FallbackChains
	Activities    ActivityTable
	QuietHours    QuietHours
	RecencyWindow time.Duration
	Rand          *rand.Rand // nil seeds from the clock
	RunID         string     // stamped on recorded history entries
	// PreferVerified narrows every cascade stage to verified records when
	// any are present. The global fallback always prefers them.
	PreferVerified bool
}

// DefaultSettings returns exact matching over the gallery chains with the
// built-in activity table, quiet hours and a 24 hour recency window.
func DefaultSettings() Settings {
	return Settings{
		MatchMode:     MatchExact,
		Chains:        GalleryChains(),
		Activities:    DefaultActivityTable(),
		QuietHours:    DefaultQuietHours(),
		RecencyWindow: DefaultRecencyWindow,
	}
}

// Engine picks one catalog record for the current conditions.
// It owns its catalog and history handle for its lifetime and is not safe
// for concurrent use.
type Engine struct {
	records  []Record
	matcher  *Matcher
	history  HistoryStore
	settings Settings
	logger   Logger
	clock    Clock
	rng      *rand.Rand
}

// NewEngine creates an Engine over records. history may be nil, in which
// case nothing is excluded for recency and nothing is persisted.
func NewEngine(records []Record, history HistoryStore, logger Logger, clock Clock, settings Settings) *Engine {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if settings.RecencyWindow <= 0 {
		settings.RecencyWindow = DefaultRecencyWindow
	}
	rng := settings.Rand
	if rng == nil {
		seed := uint64(clock.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Engine{
		records:  records,
		matcher:  NewMatcher(records, settings.MatchMode).PreferVerified(settings.PreferVerified),
		history:  history,
		settings: settings,
		logger:   logger,
		clock:    clock,
		rng:      rng,
	}
}

// Records returns the catalog the engine selects from.
func (e *Engine) Records() []Record { return e.records }

// recencyPolicy is one pass of the cascade.
type recencyPolicy struct {
	avoidRecent bool
}

// candidateSet is the non-empty output of one cascade stage.
type candidateSet struct {
	records   []Record
	stage     Stage
	weather   string
	timeOfDay string
}

// Select runs the cascade for q and draws one record from the first
// candidate set that has a display URL. The cascade is tried with recency
// avoidance first (when requested), then without it, and finally falls back
// to the whole catalog. Sets without any URL are skipped; the first one seen
// is drawn from only when no stage produced a resolvable set.
// ErrNoSelection is returned when every stage came up empty.
func (e *Engine) Select(q Query) (*Selection, error) {
	if len(e.records) == 0 {
		e.logger.Warn("catalog is empty")
		return nil, ErrNoSelection
	}

	now := e.clock.Now()
	var preferred []string
	if q.Hour != nil {
		preferred = e.settings.Activities.PreferredAt(*q.Hour)
	}

	var recent map[string]bool
	if q.AvoidRecent {
		recent = e.recentKeys(now)
	}

	e.logger.Info("searching", "weather", q.Weather, "time_of_day", q.TimeOfDay, "avoiding", len(recent), "preferred_activities", len(preferred))

	policies := []recencyPolicy{{avoidRecent: q.AvoidRecent}}
	if q.AvoidRecent {
		policies = append(policies, recencyPolicy{avoidRecent: false})
	}

	var (
		found, unresolved *candidateSet
		relaxed           bool // recency was relaxed to produce found
		unresolvedRelaxed bool
	)
	for i, p := range policies {
		var excluded map[string]bool
		if p.avoidRecent {
			excluded = recent
		}
		if i > 0 {
			e.logger.Info("relaxing recency restriction")
		}
		set, skipped := e.cascade(q.Weather, q.TimeOfDay, excluded, preferred)
		if unresolved == nil && skipped != nil {
			unresolved = skipped
			unresolvedRelaxed = i > 0
		}
		if set != nil {
			found = set
			relaxed = i > 0
			break
		}
	}

	if found == nil {
		global := e.globalFallback(q.Hour)
		switch {
		case global != nil && Resolvable(global.records):
			found, relaxed = global, q.AvoidRecent
		case unresolved != nil:
			e.logger.Warn("no candidates have a display URL; using unresolvable matches", "stage", unresolved.stage.String())
			found, relaxed = unresolved, unresolvedRelaxed
		case global != nil:
			e.logger.Warn("no candidates have a display URL; using unresolvable matches", "stage", global.stage.String())
			found, relaxed = global, q.AvoidRecent
		default:
			e.logger.Warn("no eligible records in catalog")
			return nil, ErrNoSelection
		}
	}

	sel := e.draw(found)
	sel.RelaxedRecency = relaxed

	e.logger.Info("selected", "id", sel.Record.ID, "name", sel.Record.Name, "stage", sel.Stage.String(), "candidates", sel.Candidates)

	if q.Persist && e.history != nil {
		entry := NewHistoryEntry(sel.Record, now, e.settings.RunID)
		if err := e.history.Record(entry); err != nil {
			return nil, fmt.Errorf("recording selection: %w", err)
		}
	}

	return sel, nil
}

// cascade tries the exact match, then weather substitutes, then time
// substitutes, then every weather x time substitute pair (weather outer).
// It returns the first set with a display URL, or nil. skipped is the
// first non-empty set that had no URL at all.
func (e *Engine) cascade(weather, timeOfDay string, excluded map[string]bool, preferred []string) (found, skipped *candidateSet) {
	try := func(stage Stage, w, t string) bool {
		c := e.matcher.FindMatches(w, t, excluded, preferred)
		if len(c) == 0 {
			return false
		}
		set := &candidateSet{records: c, stage: stage, weather: w, timeOfDay: t}
		if !Resolvable(c) {
			e.logger.Debug("matches have no display URL", "stage", stage.String(), "weather", w, "time_of_day", t, "count", len(c))
			if skipped == nil {
				skipped = set
			}
			return false
		}
		found = set
		return true
	}

	if try(StageExact, weather, timeOfDay) {
		return found, skipped
	}

	weatherSubs := e.settings.Chains.WeatherFallbacks(weather)
	timeSubs := e.settings.Chains.TimeFallbacks(timeOfDay)

	for _, w := range weatherSubs {
		if try(StageWeatherFallback, w, timeOfDay) {
			e.logger.Info("using weather fallback", "from", weather, "to", w)
			return found, skipped
		}
	}

	for _, t := range timeSubs {
		if try(StageTimeFallback, weather, t) {
			e.logger.Info("using time fallback", "from", timeOfDay, "to", t)
			return found, skipped
		}
	}

	for _, w := range weatherSubs {
		for _, t := range timeSubs {
			if try(StageCombinedFallback, w, t) {
				e.logger.Info("using combined fallback", "from", weather+"/"+timeOfDay, "to", w+"/"+t)
				return found, skipped
			}
		}
	}

	return nil, skipped
}

// globalFallback draws from the whole catalog. Holiday records stay
// excluded and the resolvable-URL preference still applies. During quiet
// hours only records with a quiet activity are used, if any exist; among the
// remainder verified records are preferred.
func (e *Engine) globalFallback(hour *int) *candidateSet {
	e.logger.Info("using global fallback")

	candidates := preferResolvable(filterRecords(e.records, func(r Record) bool { return !r.IsHoliday() }))
	if len(candidates) == 0 {
		return nil
	}

	if hour != nil && e.settings.QuietHours.Contains(*hour) {
		quiet := filterRecords(candidates, func(r Record) bool { return matchesActivity(r, e.settings.QuietHours.Activities) })
		if len(quiet) > 0 {
			candidates = quiet
		} else {
			e.logger.Warn("no quiet-hours records available", "hour", *hour)
		}
	}

	return &candidateSet{records: preferVerified(candidates), stage: StageGlobalFallback}
}

func (e *Engine) draw(set *candidateSet) *Selection {
	return &Selection{
		Record:     Choose(set.records, e.rng),
		Stage:      set.stage,
		Weather:    set.weather,
		TimeOfDay:  set.timeOfDay,
		Candidates: len(set.records),
	}
}

// recentKeys returns the ids and names shown inside the recency window.
// A history failure is logged and treated as an empty history.
func (e *Engine) recentKeys(now time.Time) map[string]bool {
	if e.history == nil {
		return nil
	}
	recent, err := e.history.RecentIDs(now.Add(-e.settings.RecencyWindow))
	if err != nil {
		e.logger.Warn("reading selection history failed; treating as empty", "error", err)
		return nil
	}
	return recent
}
