/*
rebalance.go - Weight Rebalancer

PURPOSE:
  Keeps the five KPI weights valid (each in [0,100], total exactly 100)
  while a user drags or types one value at a time.

ALGORITHM:
  1. diff = newValue - current[changed]
  2. Every other weight gives up (or receives) a share of diff
     proportional to its current share of the others' total, floored at 0
  3. Float correction: the error against 100 goes to the largest other
     weight, or to the changed key if that would go negative
  4. Round every weight to the nearest integer
  5. Integer correction: the remaining drift goes to the largest weight

  Proportional redistribution followed by five independent roundings can
  drift by a few points; the two correction passes make the displayed
  percentages foot to 100.

EXAMPLE:
  {20,20,20,20,20}, faturamento -> 60
  diff = 40, each other loses 40 * 20/80 = 10
  result {60,10,10,10,10}

FAILURE SEMANTICS:
  Total over any numeric input. The input sum is not validated; only the
  output is guaranteed. Clamping newValue to [0,100] is the caller's job
  (see ClampWeight), except when every other weight is already 0.
*/
package kpi

import "math"

// Rebalance returns a new weight vector with changed set to newValue and the
// remaining weights adjusted so the integer total is exactly 100. The input
// is not modified.
func Rebalance(current Weights, changed KPI, newValue float64) Weights {
	others := make([]KPI, 0, len(All)-1)
	totalOthers := 0.0
	for _, k := range All {
		if k == changed {
			continue
		}
		others = append(others, k)
		totalOthers += current.Get(k)
	}

	// Nothing left to take from: the changed key alone has to carry 100.
	if totalOthers == 0 {
		newValue = ClampWeight(math.Min(newValue, 100-totalOthers))
	}

	diff := newValue - current.Get(changed)

	next := make(Weights, len(All))
	for _, k := range others {
		if totalOthers > 0 {
			share := current.Get(k) / totalOthers
			next[k] = math.Max(0, current.Get(k)-diff*share)
		} else {
			next[k] = 0
		}
	}
	next[changed] = newValue

	// Float correction pass.
	if errFloat := 100 - next.Sum(); math.Abs(errFloat) > 0.01 {
		target := largest(next, others)
		if next[target]+errFloat >= 0 {
			next[target] += errFloat
		} else {
			next[changed] += errFloat
		}
	}

	for _, k := range All {
		next[k] = roundHalfUp(next[k])
	}

	// Integer correction pass.
	if intError := 100 - next.Sum(); intError != 0 {
		next[largest(next, All)] += intError
	}

	return next
}

// ClampWeight bounds a user-entered weight to [0,100]. Handlers apply it
// before calling Rebalance.
func ClampWeight(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// largest returns the key of keys holding the greatest weight. Ties go to
// the key that comes first in keys.
func largest(w Weights, keys []KPI) KPI {
	best := keys[0]
	for _, k := range keys[1:] {
		if w[k] > w[best] {
			best = k
		}
	}
	return best
}

// roundHalfUp rounds to the nearest integer, halves toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
