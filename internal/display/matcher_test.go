package display_test

import (
	"slices"
	"testing"

	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/testutil"
)

func ids(records []display.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestMatcher_FindMatches(t *testing.T) {
	holiday := testutil.NewRecord("h", "Sunny", "Morning")
	holiday.Holiday = "Christmas"

	reading := testutil.NewRecord("r", "Sunny", "Morning")
	reading.Activity = "Reading"

	noCDN := testutil.NewRecord("u", "Sunny", "Morning")
	noCDN.CDNURL = ""
	noCDN.URL = "https://example.com/u.png"

	tests := []struct {
		name      string
		records   []display.Record
		mode      display.MatchMode
		weather   string
		timeOfDay string
		excluded  map[string]bool
		preferred []string
		want      []string
	}{
		{
			name:      "exact match ignores case",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning"), testutil.NewRecord("2", "Rainy", "Morning")},
			weather:   "sunny",
			timeOfDay: "MORNING",
			want:      []string{"1"},
		},
		{
			name:      "holiday records are never eligible",
			records:   []display.Record{holiday, testutil.NewRecord("1", "Sunny", "Morning")},
			weather:   "Sunny",
			timeOfDay: "Morning",
			want:      []string{"1"},
		},
		{
			name:      "exact mode rejects partial tags",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Clear Night")},
			weather:   "Sunny",
			timeOfDay: "Night",
			want:      []string{},
		},
		{
			name:      "substring mode accepts partial tags",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Clear Night")},
			mode:      display.MatchSubstring,
			weather:   "Sunny",
			timeOfDay: "Night",
			want:      []string{"1"},
		},
		{
			name:      "empty tag never matches",
			records:   []display.Record{testutil.NewRecord("1", "", "Morning")},
			mode:      display.MatchSubstring,
			weather:   "Sunny",
			timeOfDay: "Morning",
			want:      []string{},
		},
		{
			name:      "excluded by id",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning"), testutil.NewRecord("2", "Sunny", "Morning")},
			weather:   "Sunny",
			timeOfDay: "Morning",
			excluded:  map[string]bool{"1": true},
			want:      []string{"2"},
		},
		{
			name:      "excluded by name",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning"), testutil.NewRecord("2", "Sunny", "Morning")},
			weather:   "Sunny",
			timeOfDay: "Morning",
			excluded:  map[string]bool{"Image 2": true},
			want:      []string{"1"},
		},
		{
			name:      "preferred activity overrides the rest",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning"), reading},
			weather:   "Sunny",
			timeOfDay: "Morning",
			preferred: []string{"Work", "Reading"},
			want:      []string{"r"},
		},
		{
			name:      "preferred activity with no hits keeps all matches",
			records:   []display.Record{testutil.NewRecord("1", "Sunny", "Morning"), reading},
			weather:   "Sunny",
			timeOfDay: "Morning",
			preferred: []string{"Gardening"},
			want:      []string{"1", "r"},
		},
		{
			name:      "CDN-hosted records win over plain URLs",
			records:   []display.Record{noCDN, testutil.NewRecord("1", "Sunny", "Morning")},
			weather:   "Sunny",
			timeOfDay: "Morning",
			want:      []string{"1"},
		},
		{
			name:      "plain URLs used when no CDN",
			records:   []display.Record{noCDN, {ID: "bare", Weather: "Sunny", TimeOfDay: "Morning"}},
			weather:   "Sunny",
			timeOfDay: "Morning",
			want:      []string{"u"},
		},
		{
			name:      "unresolvable matches still returned",
			records:   []display.Record{{ID: "bare", Weather: "Sunny", TimeOfDay: "Morning"}},
			weather:   "Sunny",
			timeOfDay: "Morning",
			want:      []string{"bare"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := display.NewMatcher(tt.records, tt.mode)
			got := ids(m.FindMatches(tt.weather, tt.timeOfDay, tt.excluded, tt.preferred))
			if !slices.Equal(got, tt.want) {
				t.Errorf("FindMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatcher_PreferVerified(t *testing.T) {
	plain := testutil.NewRecord("plain", "Sunny", "Morning")
	checked := testutil.NewRecord("checked", "Sunny", "Morning")
	checked.Verified = true

	m := display.NewMatcher([]display.Record{plain, checked}, display.MatchExact)
	if got := ids(m.FindMatches("Sunny", "Morning", nil, nil)); !slices.Equal(got, []string{"plain", "checked"}) {
		t.Errorf("default FindMatches() = %v, want [plain checked]", got)
	}

	m.PreferVerified(true)
	if got := ids(m.FindMatches("Sunny", "Morning", nil, nil)); !slices.Equal(got, []string{"checked"}) {
		t.Errorf("FindMatches() with PreferVerified = %v, want [checked]", got)
	}

	unverified := display.NewMatcher([]display.Record{plain}, display.MatchExact).PreferVerified(true)
	if got := ids(unverified.FindMatches("Sunny", "Morning", nil, nil)); !slices.Equal(got, []string{"plain"}) {
		t.Errorf("FindMatches() with no verified records = %v, want [plain]", got)
	}
}

func TestResolvable(t *testing.T) {
	bare := display.Record{ID: "bare"}
	linked := display.Record{ID: "linked", URL: "https://example.com/x.png"}

	if display.Resolvable(nil) {
		t.Error("Resolvable(nil) = true")
	}
	if display.Resolvable([]display.Record{bare}) {
		t.Error("Resolvable([bare]) = true")
	}
	if !display.Resolvable([]display.Record{bare, linked}) {
		t.Error("Resolvable([bare linked]) = false")
	}
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    display.MatchMode
		wantErr bool
	}{
		{in: "", want: display.MatchExact},
		{in: "exact", want: display.MatchExact},
		{in: "Substring", want: display.MatchSubstring},
		{in: "legacy", want: display.MatchSubstring},
		{in: "fuzzy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := display.ParseMatchMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMatchMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMatchMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
