package kpi

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// =============================================================================
// PERIOD - One calendar month, "YYYY-MM"
// =============================================================================

// Period keys every goal, weight and result blob. Goals for different
// months never collide because each month is its own key.
type Period string

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParsePeriod validates s against the exact YYYY-MM format.
func ParsePeriod(s string) (Period, error) {
	if !periodPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period(s), nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.Format("2006-01"))
}

// Valid reports whether p is well formed.
func (p Period) Valid() bool {
	return periodPattern.MatchString(string(p))
}

// Start returns the first instant of the month in UTC.
func (p Period) Start() time.Time {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return time.Time{}
	}
	return t
}

// End returns the last day of the month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Prev returns the previous month.
func (p Period) Prev() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// Next returns the following month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

func (p Period) String() string {
	return string(p)
}

// =============================================================================
// PERIOD MAP - Period-keyed JSON blob
// =============================================================================

// PeriodMap is the in-memory form of a period-keyed JSON object such as
// {"2025-03": {...}, "2025-04": {...}}.
type PeriodMap[V any] map[Period]V

// Get returns the entry for p. An absent period yields the zero value,
// which for map-valued entries reads as all zeros.
func (m PeriodMap[V]) Get(p Period) V {
	return m[p]
}

// Has reports whether p has an entry.
func (m PeriodMap[V]) Has(p Period) bool {
	_, ok := m[p]
	return ok
}

// Merge returns a copy of m with p replaced by v. The receiver is not
// modified. Writes go back as the whole map, so callers always merge into a
// copy of what they read.
func (m PeriodMap[V]) Merge(p Period, v V) PeriodMap[V] {
	out := make(PeriodMap[V], len(m)+1)
	for k, existing := range m {
		out[k] = existing
	}
	out[p] = v
	return out
}

// Periods returns the keys in ascending order.
func (m PeriodMap[V]) Periods() []Period {
	keys := make([]Period, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
