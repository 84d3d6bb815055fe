package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/store-performance/kpi"
)

// =============================================================================
// COLUMNS
// =============================================================================

const (
	ColStoreCode = "codigo_loja"
	ColPeriod    = "mes_ano"
)

// kpiColumns maps the lowercase sheet header to the KPI it feeds.
var kpiColumns = []struct {
	Header string
	KPI    kpi.KPI
}{
	{"faturamento", kpi.Faturamento},
	{"pa", kpi.PA},
	{"ticketmedio", kpi.TicketMedio},
	{"prateleinfinita", kpi.PrateleiraInfinita},
	{"conversao", kpi.Conversao},
}

// RequiredHeaders lists the columns every sheet must carry.
func RequiredHeaders() []string {
	headers := []string{ColStoreCode}
	for _, c := range kpiColumns {
		headers = append(headers, c.Header)
	}
	return headers
}

// ErrMissingHeaders aborts a whole import.
var ErrMissingHeaders = errors.New("missing required headers")

// ErrEmptySheet is returned for a file without a header row.
var ErrEmptySheet = errors.New("sheet has no header row")

// MissingHeadersError names the required columns the sheet lacks.
type MissingHeadersError struct {
	Missing []string
}

func (e *MissingHeadersError) Error() string {
	return fmt.Sprintf("missing required headers: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingHeadersError) Unwrap() error {
	return ErrMissingHeaders
}

// =============================================================================
// SHEET - Header-indexed rows
// =============================================================================

// Row is one data line. Line is the 1-based line number in the source file,
// header included, so it matches what a spreadsheet user sees.
type Row struct {
	Line  int
	Cells map[string]string
}

// Get returns the trimmed cell under header, or "".
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Cells[header])
}

// Values reads the five KPI cells.
func (r Row) Values() kpi.Values {
	v := make(kpi.Values, len(kpiColumns))
	for _, c := range kpiColumns {
		v[c.KPI] = ParseNumericCell(r.Get(c.Header))
	}
	return v
}

type Sheet struct {
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the sheet has header h.
func (s *Sheet) HasColumn(h string) bool {
	for _, existing := range s.Headers {
		if existing == h {
			return true
		}
	}
	return false
}

// newSheet builds a sheet from raw records, validating headers. Header
// names are matched case-insensitively; blank lines are skipped.
func newSheet(records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	sheet := &Sheet{Headers: headers}

	var missing []string
	for _, required := range RequiredHeaders() {
		if !sheet.HasColumn(required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHeadersError{Missing: missing}
	}

	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		cells := make(map[string]string, len(headers))
		for col, h := range headers {
			if col < len(record) {
				cells[h] = record[col]
			}
		}
		sheet.Rows = append(sheet.Rows, Row{Line: i + 2, Cells: cells})
	}
	return sheet, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// READERS
// =============================================================================

// ParseCSV reads a comma- or semicolon-separated sheet. The delimiter is
// sniffed from the header line; Brazilian spreadsheets usually export ';'.
func ParseCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return newSheet(records)
}

// ParseXLSX reads the first worksheet of an Excel workbook.
func ParseXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return newSheet(records)
}

// Parse dispatches on the file name extension; anything that is not .xlsx
// is read as CSV.
func Parse(filename string, r io.Reader) (*Sheet, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return ParseXLSX(r)
	}
	return ParseCSV(r)
}
