package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warp/store-performance/kpi"
)

// Kind selects which period-keyed blob an import writes.
type Kind string

const (
	KindGoals        Kind = "goals"
	KindStoreResults Kind = "store_results"
)

// ParseKind validates an import kind from a URL or flag.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGoals, KindStoreResults:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown import kind %q", s)
}

// Row-level problem codes.
const (
	CodeStoreNotFound = "store_not_found"
	CodeMissingCode   = "missing_store_code"
	CodeInvalidPeriod = "invalid_period"
	CodePeriodLocked  = "period_locked"
	CodeWriteFailed   = "write_failed"
)

// RowError is a problem tied to one sheet line. Used for both row errors
// (row skipped) and warnings (row still imported).
type RowError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Report aggregates the outcome of one import.
type Report struct {
	Kind     Kind          `json:"kind"`
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Errors   []RowError    `json:"errors"`
	Warnings []RowError    `json:"warnings"`
	Periods  []kpi.Period  `json:"periods"`
	Stores   []kpi.StoreID `json:"stores"`
}

// Importer applies sheet rows to store records through the same Service the
// entry forms use.
type Importer struct {
	Repo    kpi.StoreRepository
	Service *kpi.Service
	Log     logrus.FieldLogger
}

func New(repo kpi.StoreRepository, log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{Repo: repo, Service: kpi.NewService(repo), Log: log}
}

// Apply imports every row of sheet. defaultPeriod is used unless a row
// carries a valid mes_ano override. Row failures are collected in the
// report; only context cancellation stops the import early.
func (im *Importer) Apply(ctx context.Context, sheet *Sheet, kind Kind, defaultPeriod kpi.Period) (*Report, error) {
	if !defaultPeriod.Valid() {
		return nil, fmt.Errorf("%w: default period %q", kpi.ErrInvalidPeriod, defaultPeriod)
	}

	report := &Report{Kind: kind, Total: len(sheet.Rows), Errors: []RowError{}, Warnings: []RowError{}}
	periods := map[kpi.Period]bool{}
	stores := map[kpi.StoreID]bool{}

	for _, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		code := row.Get(ColStoreCode)
		if code == "" {
			report.Errors = append(report.Errors, RowError{Line: row.Line, Code: CodeMissingCode, Message: "codigo_loja is empty"})
			continue
		}

		st, err := im.Repo.GetStoreByCode(ctx, code)
		if errors.Is(err, kpi.ErrStoreNotFound) {
			report.Errors = append(report.Errors, RowError{Line: row.Line, Code: CodeStoreNotFound, Message: fmt.Sprintf("store %q not found", code)})
			continue
		}
		if err != nil {
			return report, fmt.Errorf("line %d: lookup store %q: %w", row.Line, code, err)
		}

		period := defaultPeriod
		if raw := row.Get(ColPeriod); raw != "" {
			if p, err := kpi.ParsePeriod(raw); err == nil {
				period = p
			} else {
				report.Warnings = append(report.Warnings, RowError{
					Line:    row.Line,
					Code:    CodeInvalidPeriod,
					Message: fmt.Sprintf("mes_ano %q is not YYYY-MM, using %s", raw, defaultPeriod),
				})
			}
		}

		values := row.Values()
		switch kind {
		case KindGoals:
			_, err = im.Service.SaveGoals(ctx, st.ID, period, values, nil)
		case KindStoreResults:
			_, err = im.Service.SaveStoreResults(ctx, st.ID, period, values, false)
		default:
			return report, fmt.Errorf("unknown import kind %q", kind)
		}

		switch {
		case errors.Is(err, kpi.ErrPeriodLocked):
			report.Errors = append(report.Errors, RowError{Line: row.Line, Code: CodePeriodLocked, Message: err.Error()})
			continue
		case err != nil:
			report.Errors = append(report.Errors, RowError{Line: row.Line, Code: CodeWriteFailed, Message: err.Error()})
			continue
		}

		report.Imported++
		if !periods[period] {
			periods[period] = true
			report.Periods = append(report.Periods, period)
		}
		if !stores[st.ID] {
			stores[st.ID] = true
			report.Stores = append(report.Stores, st.ID)
		}
	}

	im.Log.WithFields(logrus.Fields{
		"kind":     kind,
		"total":    report.Total,
		"imported": report.Imported,
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
	}).Info("import applied")

	return report, nil
}
