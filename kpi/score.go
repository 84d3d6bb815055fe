/*
score.go - Goal Achievement Scorer

PURPOSE:
  Turns a (goal, result, weight) triple per KPI into one weighted 0-100
  score for a store and period, and averages those scores across stores.
  Every screen that shows a performance score calls into this file.

RULES:
  - goal <= 0 (or absent): the KPI is skipped. It adds neither score nor
    weight, so it is never read as "0% achievement".
  - achievement = min(result / goal * 100, 100). Over-achievement is capped;
    a negative result gives a negative achievement (no floor).
  - score = round(sum(achievement * w/100) / sum(w/100)) over the KPIs in
    play, so a store with goals for 2 of 5 KPIs is not penalized for the
    other three.
  - No KPI in play: no data. Distinct from a real 0.

EXAMPLE:
  goals   {faturamento:100000, pa:3, conversao:10}
  weights {50, 30, 0, 0, 20}
  results {faturamento:120000, pa:2.4, conversao:8}
  achievements 100, 80, 80 -> (50 + 24 + 16) / 1.0 = 90
*/
package kpi

import "math"

// Achievement returns a single KPI's capped progress toward its goal. ok is
// false when the goal is unset (<= 0) and the KPI must be skipped.
func Achievement(goal, result float64) (pct float64, ok bool) {
	if goal <= 0 {
		return 0, false
	}
	return math.Min(result/goal*100, 100), true
}

// ScoreStore computes the weighted score. ok is false when no KPI had a
// usable goal; callers render that as "no data", not 0%.
func ScoreStore(goals, results Values, weights Weights) (score int, ok bool) {
	scoreSum, weightSum := 0.0, 0.0
	for _, k := range All {
		achievement, inPlay := Achievement(goals.Get(k), results.Get(k))
		if !inPlay {
			continue
		}
		w := weights.Get(k) / 100
		scoreSum += achievement * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0, false
	}
	return int(roundHalfUp(scoreSum / weightSum)), true
}

// Score is a nullable store score as carried through dashboards and JSON.
type Score = *int

// ScoreOf wraps ScoreStore into a nullable Score.
func ScoreOf(goals, results Values, weights Weights) Score {
	s, ok := ScoreStore(goals, results, weights)
	if !ok {
		return nil
	}
	return &s
}

// AggregateAcrossStores is the arithmetic mean of the non-nil scores. Empty
// or all-nil input yields 0, which dashboard tiles render as "no score yet".
func AggregateAcrossStores(scores []Score) float64 {
	total, n := 0, 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		total += *s
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// =============================================================================
// BREAKDOWN - Per-KPI detail for display
// =============================================================================

// KPIAchievement is one row of a score breakdown. Goal and Result keep the
// raw values; only Achievement is capped.
type KPIAchievement struct {
	KPI         KPI
	Goal        float64
	Result      float64
	Weight      float64
	Achievement float64
	InPlay      bool
}

// Breakdown lists every KPI in fixed order with its achievement.
func Breakdown(goals, results Values, weights Weights) []KPIAchievement {
	rows := make([]KPIAchievement, 0, len(All))
	for _, k := range All {
		achievement, inPlay := Achievement(goals.Get(k), results.Get(k))
		rows = append(rows, KPIAchievement{
			KPI:         k,
			Goal:        goals.Get(k),
			Result:      results.Get(k),
			Weight:      weights.Get(k),
			Achievement: achievement,
			InPlay:      inPlay,
		})
	}
	return rows
}

// StoreScore scores s for p with its configured weights.
func StoreScore(s *Store, p Period) Score {
	return ScoreOf(s.Goals.Get(p), s.StoreResults.Get(p), s.WeightsFor(p))
}
