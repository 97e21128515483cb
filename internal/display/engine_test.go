package display_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/testutil"
)

func newTestEngine(records []display.Record, history display.HistoryStore, seed uint64) (*display.Engine, *testutil.StubClock) {
	clock := testutil.FixedClock()
	settings := testutil.Settings(seed)
	settings.RunID = "run-1"
	return display.NewEngine(records, history, nil, clock, settings), clock
}

func TestEngine_Select_Stages(t *testing.T) {
	tests := []struct {
		name      string
		records   []display.Record
		weather   string
		timeOfDay string
		wantID    string
		wantStage display.Stage
	}{
		{
			name:      "exact match",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning"), testutil.NewRecord("2", "Rainy", "Night")},
			weather:   "Sunny",
			timeOfDay: "Morning",
			wantID:    "1",
			wantStage: display.StageExact,
		},
		{
			name:      "weather fallback",
			records:   []display.Record{testutil.NewRecord("1", "Rainy", "Night")},
			weather:   "Stormy",
			timeOfDay: "Night",
			wantID:    "1",
			wantStage: display.StageWeatherFallback,
		},
		{
			name:      "time fallback",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning")},
			weather:   "Sunny",
			timeOfDay: "Dawn",
			wantID:    "1",
			wantStage: display.StageTimeFallback,
		},
		{
			name:      "weather fallback wins over time fallback",
			records:   []display.Record{testutil.NewRecord("t", "Sunny", "Morning"), testutil.NewRecord("w", "Cloudy", "Dawn")},
			weather:   "Sunny",
			timeOfDay: "Dawn",
			wantID:    "w",
			wantStage: display.StageWeatherFallback,
		},
		{
			name:      "combined fallback",
			records:   []display.Record{testutil.NewRecord("1", "Rainy", "Morning")},
			weather:   "Stormy",
			timeOfDay: "Dawn",
			wantID:    "1",
			wantStage: display.StageCombinedFallback,
		},
		{
			name:      "global fallback",
			records:   []display.Record{testutil.NewRecord("1", "Volcanic", "Teatime")},
			weather:   "Sunny",
			timeOfDay: "Morning",
			wantID:    "1",
			wantStage: display.StageGlobalFallback,
		},
		{
			name:      "unknown labels go straight to global",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning")},
			weather:   "Hail",
			timeOfDay: "Teatime",
			wantID:    "1",
			wantStage: display.StageGlobalFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(tt.records, nil, 1)
			sel, err := engine.Select(display.Query{Weather: tt.weather, TimeOfDay: tt.timeOfDay})
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if sel.Record.ID != tt.wantID {
				t.Errorf("Record.ID = %q, want %q", sel.Record.ID, tt.wantID)
			}
			if sel.Stage != tt.wantStage {
				t.Errorf("Stage = %v, want %v", sel.Stage, tt.wantStage)
			}
		})
	}
}

func TestEngine_Select_SingleMatchAnySeed(t *testing.T) {
	records := []display.Record{
		testutil.NewRecord("1", "Sunny", "Morning"),
		testutil.NewRecord("2", "Rainy", "Morning"),
		testutil.NewRecord("3", "Sunny", "Night"),
	}

	for seed := range uint64(25) {
		engine, _ := newTestEngine(records, nil, seed)
		sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning"})
		if err != nil {
			t.Fatalf("seed %d: Select() error = %v", seed, err)
		}
		if sel.Record.ID != "1" {
			t.Errorf("seed %d: Record.ID = %q, want 1", seed, sel.Record.ID)
		}
	}
}

func TestEngine_Select_EmptyCatalog(t *testing.T) {
	engine, _ := newTestEngine(nil, nil, 1)
	_, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning"})
	if !errors.Is(err, display.ErrNoSelection) {
		t.Errorf("Select() error = %v, want ErrNoSelection", err)
	}
}

func TestEngine_Select_HolidayOnlyCatalog(t *testing.T) {
	r := testutil.NewRecord("1", "Snowy", "Night")
	r.Holiday = "Christmas"

	engine, _ := newTestEngine([]display.Record{r}, nil, 1)
	_, err := engine.Select(display.Query{Weather: "Snowy", TimeOfDay: "Night"})
	if !errors.Is(err, display.ErrNoSelection) {
		t.Errorf("Select() error = %v, want ErrNoSelection", err)
	}
}

func TestEngine_Select_SkipsRecordsWithoutURL(t *testing.T) {
	bare := display.Record{ID: "bare", Name: "Bare", Weather: "Stormy", TimeOfDay: "Night"}
	hosted := testutil.NewRecord("hosted", "Rainy", "Night")
	offCondition := testutil.NewRecord("other", "Volcanic", "Teatime")

	tests := []struct {
		name      string
		records   []display.Record
		weather   string
		timeOfDay string
		wantID    string
		wantStage display.Stage
	}{
		{
			name:      "hosted fallback beats bare exact match",
			records:   []display.Record{bare, hosted},
			weather:   "Stormy",
			timeOfDay: "Night",
			wantID:    "hosted",
			wantStage: display.StageWeatherFallback,
		},
		{
			name:      "hosted global record beats bare exact match",
			records:   []display.Record{bare, offCondition},
			weather:   "Stormy",
			timeOfDay: "Night",
			wantID:    "other",
			wantStage: display.StageGlobalFallback,
		},
		{
			name:      "bare exact match is the last resort",
			records:   []display.Record{bare},
			weather:   "Stormy",
			timeOfDay: "Night",
			wantID:    "bare",
			wantStage: display.StageExact,
		},
		{
			name:      "bare global record is the last resort",
			records:   []display.Record{bare},
			weather:   "Sunny",
			timeOfDay: "Morning",
			wantID:    "bare",
			wantStage: display.StageGlobalFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := range uint64(10) {
				engine, _ := newTestEngine(tt.records, nil, seed)
				sel, err := engine.Select(display.Query{Weather: tt.weather, TimeOfDay: tt.timeOfDay})
				if err != nil {
					t.Fatalf("seed %d: Select() error = %v", seed, err)
				}
				if sel.Record.ID != tt.wantID || sel.Stage != tt.wantStage {
					t.Errorf("seed %d: got %q at %v, want %q at %v", seed, sel.Record.ID, sel.Stage, tt.wantID, tt.wantStage)
				}
			}
		})
	}
}

func TestEngine_Select_PreferVerified(t *testing.T) {
	plain := testutil.NewRecord("plain", "Sunny", "Morning")
	checked := testutil.NewRecord("checked", "Sunny", "Morning")
	checked.Verified = true
	records := []display.Record{plain, checked}

	settings := testutil.Settings(1)
	settings.PreferVerified = true
	for seed := range uint64(10) {
		settings.Rand = testutil.SeededRand(seed)
		engine := display.NewEngine(records, nil, nil, testutil.FixedClock(), settings)
		sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning"})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if sel.Record.ID != "checked" || sel.Candidates != 1 {
			t.Errorf("seed %d: got %q from %d candidates, want checked from 1", seed, sel.Record.ID, sel.Candidates)
		}
	}

	engine, _ := newTestEngine(records, nil, 1)
	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Candidates != 2 {
		t.Errorf("Candidates = %d without PreferVerified, want 2", sel.Candidates)
	}
}

func TestEngine_Select_RecencyAvoidance(t *testing.T) {
	history := testutil.NewTestHistory()
	records := []display.Record{
		testutil.NewRecord("1", "Sunny", "Morning"),
		testutil.NewRecord("2", "Cloudy", "Morning"),
	}
	engine, clock := newTestEngine(records, history, 1)

	shown := display.NewHistoryEntry(records[0], clock.Now().Add(-time.Hour), "earlier")
	if err := history.Record(shown); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", AvoidRecent: true})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Record.ID != "2" || sel.Stage != display.StageWeatherFallback {
		t.Errorf("got %q at %v, want 2 at weather-fallback", sel.Record.ID, sel.Stage)
	}
	if sel.RelaxedRecency {
		t.Error("RelaxedRecency = true, want false")
	}
}

func TestEngine_Select_RecencyRelaxed(t *testing.T) {
	history := testutil.NewTestHistory()
	records := []display.Record{testutil.NewRecord("1", "Sunny", "Morning")}
	engine, clock := newTestEngine(records, history, 1)

	if err := history.Record(display.NewHistoryEntry(records[0], clock.Now().Add(-time.Hour), "earlier")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", AvoidRecent: true})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Record.ID != "1" || sel.Stage != display.StageExact {
		t.Errorf("got %q at %v, want 1 at exact", sel.Record.ID, sel.Stage)
	}
	if !sel.RelaxedRecency {
		t.Error("RelaxedRecency = false, want true")
	}
}

func TestEngine_Select_OldHistoryIgnored(t *testing.T) {
	history := testutil.NewTestHistory()
	records := []display.Record{
		testutil.NewRecord("1", "Sunny", "Morning"),
		testutil.NewRecord("2", "Cloudy", "Morning"),
	}
	engine, clock := newTestEngine(records, history, 1)

	if err := history.Record(display.NewHistoryEntry(records[0], clock.Now().Add(-48*time.Hour), "earlier")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", AvoidRecent: true})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Record.ID != "1" {
		t.Errorf("Record.ID = %q, want 1", sel.Record.ID)
	}
}

func TestEngine_Select_Persist(t *testing.T) {
	history := testutil.NewTestHistory()
	engine, clock := newTestEngine([]display.Record{testutil.NewRecord("1", "Sunny", "Morning")}, history, 1)

	if _, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", Persist: true}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if _, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning"}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	entries, err := history.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != "1" || e.RunID != "run-1" || !e.Timestamp.Equal(clock.Now()) {
		t.Errorf("entry = %+v", e)
	}
}

func TestEngine_Select_ActivityPreference(t *testing.T) {
	coffee := testutil.NewRecord("coffee", "Sunny", "Morning")
	coffee.Activity = "Coffee"
	work := testutil.NewRecord("work", "Sunny", "Morning")
	work.Activity = "Work"

	for seed := range uint64(10) {
		engine, _ := newTestEngine([]display.Record{coffee, work}, nil, seed)
		sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", Hour: display.AtHour(6)})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if sel.Record.ID != "coffee" {
			t.Errorf("seed %d: Record.ID = %q, want coffee", seed, sel.Record.ID)
		}
	}
}

func TestEngine_GlobalFallback_QuietHours(t *testing.T) {
	sleeping := testutil.NewRecord("sleep", "Volcanic", "Teatime")
	sleeping.Activity = "Sleeping"
	working := testutil.NewRecord("work", "Volcanic", "Teatime")
	working.Activity = "Work"
	working.Verified = true

	records := []display.Record{sleeping, working}

	for seed := range uint64(10) {
		engine, _ := newTestEngine(records, nil, seed)
		sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Night", Hour: display.AtHour(2)})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if sel.Stage != display.StageGlobalFallback || sel.Record.ID != "sleep" {
			t.Errorf("seed %d: got %q at %v, want sleep at global-fallback", seed, sel.Record.ID, sel.Stage)
		}
	}

	// Outside quiet hours the verified record wins.
	engine, _ := newTestEngine(records, nil, 1)
	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Night", Hour: display.AtHour(15)})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Record.ID != "work" {
		t.Errorf("Record.ID = %q, want work", sel.Record.ID)
	}
}

func TestEngine_GlobalFallback_NoQuietRecords(t *testing.T) {
	engine, _ := newTestEngine([]display.Record{testutil.NewRecord("1", "Volcanic", "Teatime")}, nil, 1)
	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Night", Hour: display.AtHour(2)})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Record.ID != "1" {
		t.Errorf("Record.ID = %q, want 1", sel.Record.ID)
	}
}

func TestEngine_GlobalFallback_SkipsHoliday(t *testing.T) {
	holiday := testutil.NewRecord("h", "Volcanic", "Teatime")
	holiday.Holiday = "Halloween"

	for seed := range uint64(10) {
		engine, _ := newTestEngine([]display.Record{holiday, testutil.NewRecord("1", "Volcanic", "Teatime")}, nil, seed)
		sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning"})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if sel.Record.ID != "1" {
			t.Errorf("seed %d: Record.ID = %q, want 1", seed, sel.Record.ID)
		}
	}
}

// failingHistory fails every operation.
type failingHistory struct{}

var errHistory = errors.New("history unavailable")

func (failingHistory) Record(display.HistoryEntry) error { return errHistory }
func (failingHistory) Entries() ([]display.HistoryEntry, error) {
	return nil, errHistory
}
func (failingHistory) RecentIDs(time.Time) (map[string]bool, error) { return nil, errHistory }
func (failingHistory) Close() error { return nil }

func TestEngine_Select_HistoryReadFailure(t *testing.T) {
	engine, _ := newTestEngine([]display.Record{testutil.NewRecord("1", "Sunny", "Morning")}, failingHistory{}, 1)

	sel, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", AvoidRecent: true})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Record.ID != "1" {
		t.Errorf("Record.ID = %q, want 1", sel.Record.ID)
	}
}

func TestEngine_Select_HistoryWriteFailure(t *testing.T) {
	engine, _ := newTestEngine([]display.Record{testutil.NewRecord("1", "Sunny", "Morning")}, failingHistory{}, 1)

	_, err := engine.Select(display.Query{Weather: "Sunny", TimeOfDay: "Morning", Persist: true})
	if !errors.Is(err, errHistory) {
		t.Errorf("Select() error = %v, want wrapped errHistory", err)
	}
}

func TestStage_String(t *testing.T) {
	if got := display.StageCombinedFallback.String(); got != "combined-fallback" {
		t.Errorf("String() = %q", got)
	}
}
