package kpi

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-03")
	require.NoError(t, err)
	assert.Equal(t, Period("2025-03"), p)

	for _, bad := range []string{"", "2025-3", "2025-13", "2025-00", "25-03", "2025/03", "2025-03-01", " 2025-03"} {
		_, err := ParsePeriod(bad)
		assert.True(t, errors.Is(err, ErrInvalidPeriod), "expected invalid period for %q", bad)
	}
}

func TestPeriod_Navigation(t *testing.T) {
	p := Period("2025-01")

	assert.Equal(t, Period("2024-12"), p.Prev())
	assert.Equal(t, Period("2025-02"), p.Next())
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, Period("2025-07"), PeriodOf(time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)))
}

func TestPeriodMap_AbsentReadsAsZero(t *testing.T) {
	var goals PeriodMap[Values]

	v := goals.Get("2025-03")
	assert.Equal(t, 0.0, v.Get(Faturamento))
	assert.True(t, v.IsEmpty())

	var locks PeriodMap[bool]
	assert.False(t, locks.Get("2025-03"))
}

func TestPeriodMap_MergeIsByPeriod(t *testing.T) {
	original := PeriodMap[Values]{
		"2025-01": {Faturamento: 100, PA: 2},
		"2025-02": {Faturamento: 200},
	}

	merged := original.Merge("2025-02", Values{PA: 3})

	// Whole period replaced, other periods kept, input untouched.
	assert.Equal(t, Values{PA: 3}, merged["2025-02"])
	assert.Equal(t, Values{Faturamento: 100, PA: 2}, merged["2025-01"])
	assert.Equal(t, Values{Faturamento: 200}, original["2025-02"])
	assert.Equal(t, []Period{"2025-01", "2025-02"}, merged.Periods())
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	err := Weights{Faturamento: 50, PA: 30}.Validate()
	var sumErr *WeightSumError
	require.ErrorAs(t, err, &sumErr)
	assert.Equal(t, 80.0, sumErr.Sum)
	assert.True(t, errors.Is(err, ErrWeightsUnbalanced))

	err = Weights{Faturamento: 120, PA: -20}.Validate()
	var rangeErr *WeightRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, Faturamento, rangeErr.KPI)

	// Sums to 100 but only whole points are stored
	err = Weights{Faturamento: 50.5, PA: 49.5}.Validate()
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, Faturamento, rangeErr.KPI)
	assert.Equal(t, 50.5, rangeErr.Value)
	assert.True(t, errors.Is(err, ErrWeightsUnbalanced))
}

func TestParseKPI(t *testing.T) {
	k, err := ParseKPI("ticketMedio")
	require.NoError(t, err)
	assert.Equal(t, TicketMedio, k)

	_, err = ParseKPI("ticketmedio")
	assert.True(t, errors.Is(err, ErrInvalidKPI))
}

func TestDeriveResults(t *testing.T) {
	got := DeriveResults(ResultsInput{
		Values:       Values{Faturamento: 50000, PA: 2.1},
		Transactions: 250,
		Items:        600,
		Visitors:     1000,
	})

	assert.Equal(t, 200.0, got.Get(TicketMedio))
	assert.Equal(t, 2.1, got.Get(PA), "explicit value wins")
	assert.Equal(t, 25.0, got.Get(Conversao))

	untouched := DeriveResults(ResultsInput{Values: Values{Faturamento: 10}})
	assert.Equal(t, Values{Faturamento: 10}, untouched)
}

func TestStore_BlobRoundTripDefaultsToEmptyObject(t *testing.T) {
	var s Store
	data, err := s.MarshalBlob(FieldGoals)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	require.NoError(t, s.UnmarshalBlob(FieldResultsLocks, []byte(`{"2025-03": true}`)))
	assert.True(t, s.IsLocked("2025-03"))
	assert.False(t, s.IsLocked("2025-04"))
}
