// Package toxicity defines the toxicity scoring capability used by the analysis
// pipeline together with helpers for thresholds and category ranking.
package toxicity

import (
	"context"
	"math"
	"sort"
)

const (
	// DefaultThreshold is the score at or above which a message is toxic.
	DefaultThreshold = 0.5
	// CategoryFloor is the minimum score a category needs to be reported as a top category.
	CategoryFloor = 0.3
	// TopK bounds the number of reported top categories.
	TopK = 3
)

// Result is the outcome of scoring one text.
type Result struct {
	Score      float64            `json:"score"`
	Categories map[string]float64 `json:"categories"`
}

// Zero is the neutral result substituted when scoring is unavailable.
func Zero() Result {
	return Result{Score: 0, Categories: map[string]float64{}}
}

// Scorer scores a text for toxicity.
type Scorer interface {
	Score(ctx context.Context, text string) (Result, error)
}

// IsToxic reports whether score reaches threshold.
func IsToxic(score, threshold float64) bool {
	return score >= threshold
}

// Clamp bounds v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalize clamps the overall score and every category score.
func (r Result) Normalize() Result {
	out := Result{Score: Clamp(r.Score), Categories: make(map[string]float64, len(r.Categories))}
	for name, s := range r.Categories {
		out.Categories[name] = Clamp(s)
	}
	return out
}

// TopCategories sorts categories by descending score, keeps the first k and then
// drops every entry with a score at or below floor. Equal scores are ordered by name.
func TopCategories(categories map[string]float64, k int, floor float64) []string {
	type pair struct {
		name  string
		score float64
	}
	pairs := make([]pair, 0, len(categories))
	for name, score := range categories {
		pairs = append(pairs, pair{name, score})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].name < pairs[j].name
	})

	if k < len(pairs) {
		pairs = pairs[:k]
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.score > floor {
			out = append(out, p.name)
		}
	}
	return out
}
