package testutil

import (
	"math/rand/v2"

	"github.com/aliceagent/alice-display/internal/display"
)

// NewRecord creates a CDN-hosted, untagged-activity record for weather and timeOfDay.
func NewRecord(id, weather, timeOfDay string) display.Record {
	return display.Record{
		ID:        id,
		Name:      "Image " + id,
		Weather:   weather,
		TimeOfDay: timeOfDay,
		CDNURL:    "https://cdn.example.com/" + id + ".png",
	}
}

// NewRatedRecord creates a record with rating data.
func NewRatedRecord(id string, score, total int) display.Record {
	r := NewRecord(id, "Sunny", "Morning")
	r.RatingScore = score
	r.TotalRatings = total
	return r
}

// SeededRand returns a deterministic random source for draws.
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Settings returns display.DefaultSettings with a seeded random source.
func Settings(seed uint64) display.Settings {
	s := display.DefaultSettings()
	s.Rand = SeededRand(seed)
	return s
}
