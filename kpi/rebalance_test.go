package kpi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebalance_ProportionalShrink(t *testing.T) {
	// GIVEN: Even weights
	// WHEN: faturamento goes from 20 to 60
	// THEN: Each other weight loses 40 * 20/80 = 10
	got := Rebalance(DefaultWeights(), Faturamento, 60)

	assert.Equal(t, Weights{
		Faturamento:        60,
		PA:                 10,
		TicketMedio:        10,
		PrateleiraInfinita: 10,
		Conversao:          10,
	}, got)
}

func TestRebalance_ProportionalGrow(t *testing.T) {
	current := Weights{Faturamento: 40, PA: 30, TicketMedio: 10, PrateleiraInfinita: 10, Conversao: 10}

	got := Rebalance(current, Faturamento, 10)

	// The others gain 30 split 30:10:10:10 of 60 -> +15, +5, +5, +5
	assert.Equal(t, Weights{Faturamento: 10, PA: 45, TicketMedio: 15, PrateleiraInfinita: 15, Conversao: 15}, got)
}

func TestRebalance_NoOpEditKeepsWeights(t *testing.T) {
	cases := []Weights{
		DefaultWeights(),
		{Faturamento: 50, PA: 30, TicketMedio: 0, PrateleiraInfinita: 0, Conversao: 20},
		{Faturamento: 100},
		{Faturamento: 33, PA: 33, TicketMedio: 34},
	}
	for _, w := range cases {
		for _, k := range All {
			got := Rebalance(w, k, w.Get(k))
			for _, kk := range All {
				assert.Equal(t, w.Get(kk), got.Get(kk), "key %s after no-op edit of %s", kk, k)
			}
		}
	}
}

func TestRebalance_RoundingDriftCorrected(t *testing.T) {
	// 1/3 splits never round cleanly.
	current := Weights{Faturamento: 25, PA: 25, TicketMedio: 25, PrateleiraInfinita: 25, Conversao: 0}

	got := Rebalance(current, Faturamento, 0)

	assert.Equal(t, 100.0, got.Sum())
	assert.Equal(t, 0.0, got.Get(Faturamento))
	for _, k := range All {
		assert.Equal(t, math.Trunc(got[k]), got[k], "weight %s must be an integer", k)
	}
}

func TestRebalance_SumInvariantGrid(t *testing.T) {
	starts := []Weights{
		DefaultWeights(),
		{Faturamento: 50, PA: 30, Conversao: 20},
		{Faturamento: 1, PA: 2, TicketMedio: 3, PrateleiraInfinita: 4, Conversao: 90},
		{Faturamento: 97, PA: 1, TicketMedio: 1, PrateleiraInfinita: 1},
		{Faturamento: 33, PA: 33, TicketMedio: 34},
		{Conversao: 100},
	}

	for _, start := range starts {
		for _, k := range All {
			for v := 0.0; v <= 100; v++ {
				got := Rebalance(start, k, v)
				if got.Sum() != 100 {
					t.Fatalf("Rebalance(%v, %s, %v) sums to %v", start, k, v, got.Sum())
				}
				for _, kk := range All {
					w := got.Get(kk)
					if w < 0 || w != math.Trunc(w) {
						t.Fatalf("Rebalance(%v, %s, %v) produced %s=%v", start, k, v, kk, w)
					}
				}
			}
		}
	}
}

func TestRebalance_AllOthersZero(t *testing.T) {
	current := Weights{Faturamento: 100}

	t.Run("increase beyond 100 is clamped", func(t *testing.T) {
		got := Rebalance(current, Faturamento, 150)
		assert.Equal(t, 100.0, got.Get(Faturamento))
		assert.Equal(t, 100.0, got.Sum())
	})

	t.Run("decrease hands the difference to the first other key", func(t *testing.T) {
		got := Rebalance(current, Faturamento, 60)
		assert.Equal(t, 60.0, got.Get(Faturamento))
		assert.Equal(t, 40.0, got.Get(PA))
		assert.Equal(t, 100.0, got.Sum())
	})
}

func TestRebalance_DoesNotMutateInput(t *testing.T) {
	current := DefaultWeights()
	Rebalance(current, PA, 80)
	assert.Equal(t, DefaultWeights(), current)
}

func TestClampWeight(t *testing.T) {
	assert.Equal(t, 0.0, ClampWeight(-5))
	assert.Equal(t, 100.0, ClampWeight(140))
	assert.Equal(t, 42.0, ClampWeight(42))
	assert.Equal(t, 0.0, ClampWeight(math.NaN()))
}
