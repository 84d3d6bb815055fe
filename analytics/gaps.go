package analytics

import (
	"math"

	"github.com/warp/store-performance/kpi"
)

// Gap is how far one KPI is from its goal.
type Gap struct {
	KPI         kpi.KPI
	Goal        float64
	Result      float64
	Remaining   float64 // goal - result, never below 0
	Surplus     float64 // result - goal, never below 0
	Achievement float64
	InPlay      bool
}

// GapAnalysis lists every KPI with a goal set, in fixed KPI order. KPIs
// without a goal are reported with InPlay false and no gap.
func GapAnalysis(goals, results kpi.Values) []Gap {
	gaps := make([]Gap, 0, len(kpi.All))
	for _, k := range kpi.All {
		goal, result := goals.Get(k), results.Get(k)
		achievement, inPlay := kpi.Achievement(goal, result)
		g := Gap{KPI: k, Goal: goal, Result: result, Achievement: achievement, InPlay: inPlay}
		if inPlay {
			g.Remaining = math.Max(0, goal-result)
			g.Surplus = math.Max(0, result-goal)
		}
		gaps = append(gaps, g)
	}
	return gaps
}

// LargestGap returns the in-play KPI with the lowest achievement, which is
// where a store manager should look first. ok is false when no KPI has a goal.
func LargestGap(gaps []Gap) (Gap, bool) {
	var worst Gap
	found := false
	for _, g := range gaps {
		if !g.InPlay {
			continue
		}
		if !found || g.Achievement < worst.Achievement {
			worst = g
			found = true
		}
	}
	return worst, found
}
