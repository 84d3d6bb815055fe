package analytics

import "github.com/warp/store-performance/kpi"

// PillarScore is one axis of the radar. Score is nil when the pillar has
// no data for the period.
type PillarScore struct {
	Pillar kpi.Pillar
	Score  *float64
	Count  int
}

// PillarScores blends the KPI score (Performance) with the plain mean of
// approved evaluation scores for each other pillar. Evaluations for other
// periods and non-approved evaluations are ignored.
func PillarScores(performance kpi.Score, evaluations []kpi.Evaluation, p kpi.Period) []PillarScore {
	sums := map[kpi.Pillar]float64{}
	counts := map[kpi.Pillar]int{}
	for _, e := range evaluations {
		if e.Status != kpi.EvaluationApproved || e.Period != p || e.Pillar == kpi.PillarPerformance {
			continue
		}
		sums[e.Pillar] += e.Score
		counts[e.Pillar]++
	}

	radar := make([]PillarScore, 0, len(kpi.Pillars))
	for _, pillar := range kpi.Pillars {
		ps := PillarScore{Pillar: pillar}
		if pillar == kpi.PillarPerformance {
			if performance != nil {
				v := float64(*performance)
				ps.Score = &v
				ps.Count = 1
			}
		} else if n := counts[pillar]; n > 0 {
			mean := sums[pillar] / float64(n)
			ps.Score = &mean
			ps.Count = n
		}
		radar = append(radar, ps)
	}
	return radar
}

// OverallPillarScore averages the radar axes that have data; 0 when none do.
func OverallPillarScore(radar []PillarScore) float64 {
	total, n := 0.0, 0
	for _, ps := range radar {
		if ps.Score == nil {
			continue
		}
		total += *ps.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
