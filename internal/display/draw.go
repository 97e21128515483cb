package display

import "math/rand/v2"

const (
	// minRatingsForWeight is how many ratings a record needs before its score
	// affects the draw. Below it, one or two extreme votes would dominate.
	minRatingsForWeight = 5

	minWeight = 0.1
	maxWeight = 3.0
)

// Weight returns the draw weight for a record: 1.0, or
// clamp(1 + rating_score/10, 0.1, 3.0) once it has enough ratings.
func Weight(r Record) float64 {
	if r.TotalRatings < minRatingsForWeight {
		return 1.0
	}
	w := 1.0 + float64(r.RatingScore)/10.0
	return min(max(w, minWeight), maxWeight)
}

// Choose picks one candidate at random, biased by Weight. A single candidate
// is returned directly. candidates must be non-empty.
func Choose(candidates []Record, rng *rand.Rand) Record {
	if len(candidates) == 1 {
		return candidates[0]
	}

	total := 0.0
	for _, c := range candidates {
		total += Weight(c)
	}

	target := rng.Float64() * total
	cumulative := 0.0
	for _, c := range candidates {
		cumulative += Weight(c)
		if target < cumulative {
			return c
		}
	}

	// Float rounding can leave target a hair above the final bound.
	return candidates[len(candidates)-1]
}
