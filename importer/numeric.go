/*
Package importer loads goal and result spreadsheets into store records.

PURPOSE:
  Converts a fixed-column CSV or XLSX sheet into the same Values shape the
  scorer consumes, one row per store, tolerating Brazilian-locale number
  formatting ("R$ 150.000,00", "2,8").

ERROR POLICY:
  - Missing required headers: hard error, nothing is imported
  - Unknown store code, locked period: that row fails, others continue
  - Malformed mes_ano override: warning, row imports against the default
  - Unparseable numeric cell: silently 0

SEE ALSO:
  - sheet.go: CSV/XLSX readers and header validation
  - importer.go: Row resolution and persistence
*/
package importer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)

// ParseNumericCell normalizes a spreadsheet cell to a number. It never
// fails: empty or non-numeric cells read as 0.
//
// Rules, applied after stripping "R$" and whitespace:
//   - comma, no dot: the comma is the decimal separator
//   - comma and dot: split on the first comma, dots before it are thousands
//     separators
//   - dots only, more than 2 digits after the last dot: every dot is a
//     thousands separator
//
// The longest numeric prefix of the normalized text is parsed, so "1,234,56"
// reads as 1.234 and "12%" as 12.
func ParseNumericCell(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.Join(strings.Fields(s), "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && !hasDot:
		s = strings.Replace(s, ",", ".", 1)
	case hasComma && hasDot:
		intPart, decPart, _ := strings.Cut(s, ",")
		s = strings.ReplaceAll(intPart, ".", "") + "." + decPart
	case hasDot:
		last := s[strings.LastIndex(s, ".")+1:]
		if len(last) > 2 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	match := numericPrefix.FindString(s)
	if match == "" {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimPrefix(match, "+"), "."))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
