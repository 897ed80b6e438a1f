package signal

import (
	"sort"
	"time"

	"momentum-radar/internal/domain"
)

// recomputeAfter is how stale a persisted snapshot may get before a
// fresh computation is due.
const recomputeAfter = 5 * time.Minute

// ShouldRecompute decides whether the persisted snapshot for a
// timeframe is still fresh. Missing or malformed state always reads as
// "recompute"; it is never an error.
func ShouldRecompute(now time.Time, snapshot domain.RSISnapshot) bool {
	computedAt, ok := snapshot.ComputedAt()
	if !ok {
		return true
	}
	return now.Sub(computedAt) > recomputeAfter
}

// Classifier buckets RSI values into an ordered list of named
// categories and decides which values are notable enough to persist.
type Classifier struct {
	categories  []domain.RSICategory
	notableLow  float64
	notableHigh float64
}

// NewClassifier builds a classifier from configuration. Values inside
// [notableLow, notableHigh] are considered neutral and are reported
// once but never persisted.
func NewClassifier(categories []domain.RSICategory, notableLow, notableHigh float64) *Classifier {
	if len(categories) == 0 {
		categories = domain.DefaultRSICategories()
	}
	return &Classifier{
		categories:  categories,
		notableLow:  notableLow,
		notableHigh: notableHigh,
	}
}

// Classify assigns each pair to the first matching category and returns
// the grouped report in category order, members sorted by RSI
// descending. Pairs matching no category and categories with no members
// are left out.
func (c *Classifier) Classify(values map[string]float64) []domain.RSIGroup {
	members := make([][]domain.RSIResult, len(c.categories))
	for pair, value := range values {
		for i, cat := range c.categories {
			if cat.Matches(value) {
				members[i] = append(members[i], domain.RSIResult{Pair: pair, Value: value})
				break
			}
		}
	}

	var groups []domain.RSIGroup
	for i, cat := range c.categories {
		if len(members[i]) == 0 {
			continue
		}
		sort.Slice(members[i], func(a, b int) bool {
			if members[i][a].Value == members[i][b].Value {
				return members[i][a].Pair < members[i][b].Pair
			}
			return members[i][a].Value > members[i][b].Value
		})
		groups = append(groups, domain.RSIGroup{Category: cat, Members: members[i]})
	}
	return groups
}

// Notable filters to the values worth persisting, bounding snapshot
// growth. Neutral values are discarded after being reported once.
func (c *Classifier) Notable(values map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for pair, value := range values {
		if value < c.notableLow || value > c.notableHigh {
			out[pair] = value
		}
	}
	return out
}
