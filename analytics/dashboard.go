/*
Package analytics aggregates store scores into network dashboards.

PURPOSE:
  Everything here is a read-only projection over store records already in
  memory: the network score tile, store ranking, gap analysis, the 4-pillar
  radar and the occupancy-cost model. All scoring goes through kpi.ScoreStore.

SEE ALSO:
  - kpi/score.go: Goal Achievement Scorer
  - api/handlers.go: Dashboard endpoints
*/
package analytics

import (
	"sort"
	"strings"

	"github.com/warp/store-performance/kpi"
)

// Filter narrows the stores a dashboard aggregates. Zero value keeps all.
type Filter struct {
	Region   string
	StoreIDs []kpi.StoreID
}

func (f Filter) match(s *kpi.Store) bool {
	if f.Region != "" && !strings.EqualFold(f.Region, s.Region) {
		return false
	}
	if len(f.StoreIDs) == 0 {
		return true
	}
	for _, id := range f.StoreIDs {
		if id == s.ID {
			return true
		}
	}
	return false
}

// StoreRow is one line of the ranking table.
type StoreRow struct {
	StoreID kpi.StoreID
	Code    string
	Name    string
	Region  string
	Score   kpi.Score
	Locked  bool
	KPIs    []kpi.KPIAchievement
}

// Dashboard is the network view for one period.
type Dashboard struct {
	Period       kpi.Period
	NetworkScore float64
	Scored       int
	WithoutData  int
	Stores       []StoreRow
	KPITotals    []KPITotal
}

// KPITotal sums goal and result of one KPI across the filtered network.
// Achievement is computed on the sums and capped like a store's.
type KPITotal struct {
	KPI         kpi.KPI
	Goal        float64
	Result      float64
	Achievement float64
	InPlay      bool
}

// NetworkDashboard scores every matching store for period p and ranks them
// by score, best first. Stores without data sort last, then by code.
func NetworkDashboard(stores []kpi.Store, p kpi.Period, f Filter) Dashboard {
	d := Dashboard{Period: p, Stores: []StoreRow{}}
	scores := make([]kpi.Score, 0, len(stores))
	goalTotals := kpi.Values{}
	resultTotals := kpi.Values{}

	for i := range stores {
		s := &stores[i]
		if !f.match(s) {
			continue
		}
		goals := s.Goals.Get(p)
		results := s.StoreResults.Get(p)
		weights := s.WeightsFor(p)
		score := kpi.ScoreOf(goals, results, weights)

		scores = append(scores, score)
		if score == nil {
			d.WithoutData++
		} else {
			d.Scored++
		}
		for _, k := range kpi.All {
			goalTotals[k] += goals.Get(k)
			resultTotals[k] += results.Get(k)
		}

		d.Stores = append(d.Stores, StoreRow{
			StoreID: s.ID,
			Code:    s.Code,
			Name:    s.Name,
			Region:  s.Region,
			Score:   score,
			Locked:  s.IsLocked(p),
			KPIs:    kpi.Breakdown(goals, results, weights),
		})
	}

	sort.SliceStable(d.Stores, func(i, j int) bool {
		a, b := d.Stores[i].Score, d.Stores[j].Score
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return d.Stores[i].Code < d.Stores[j].Code
	})

	d.NetworkScore = kpi.AggregateAcrossStores(scores)
	for _, k := range kpi.All {
		achievement, inPlay := kpi.Achievement(goalTotals.Get(k), resultTotals.Get(k))
		d.KPITotals = append(d.KPITotals, KPITotal{
			KPI:         k,
			Goal:        goalTotals.Get(k),
			Result:      resultTotals.Get(k),
			Achievement: achievement,
			InPlay:      inPlay,
		})
	}
	return d
}

// ScoreHistory scores one store across consecutive periods ending at last,
// oldest first. Used by the trend chart.
func ScoreHistory(s *kpi.Store, last kpi.Period, months int) []PeriodScore {
	if months <= 0 {
		return []PeriodScore{}
	}
	history := make([]PeriodScore, months)
	p := last
	for i := months - 1; i >= 0; i-- {
		history[i] = PeriodScore{Period: p, Score: kpi.StoreScore(s, p)}
		p = p.Prev()
	}
	return history
}

type PeriodScore struct {
	Period kpi.Period
	Score  kpi.Score
}
