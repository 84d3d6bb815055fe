package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/store-performance/kpi"
	"github.com/warp/store-performance/kpi/store"
)

func TestParseNumericCell(t *testing.T) {
	cases := map[string]float64{
		"R$ 150.000,00": 150000,
		"2,8":           2.8,
		"":              0,
		"   ":           0,
		"abc":           0,
		"1.500":         1500,
		"1.234.567":     1234567,
		"1.5":           1.5,
		"12.34":         12.34,
		"R$1.234,5":     1234.5,
		"12%":           12,
		"-3,5":          -3.5,
		"1,234,56":      1.234,
		"42":            42,
	}
	for in, want := range cases {
		assert.InDelta(t, want, ParseNumericCell(in), 1e-9, "ParseNumericCell(%q)", in)
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newImporter(t *testing.T) (*Importer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateStore(ctx, kpi.Store{ID: "s1", Code: "LJ001", Name: "Centro"}))
	require.NoError(t, mem.CreateStore(ctx, kpi.Store{ID: "s2", Code: "LJ002", Name: "Shopping"}))
	return New(mem, quietLogger()), mem
}

func TestParseCSV_MissingHeadersAbort(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("codigo_loja,faturamento,pa\nLJ001,1,2\n"))

	var missing *MissingHeadersError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"ticketmedio", "prateleinfinita", "conversao"}, missing.Missing)
	assert.True(t, errors.Is(err, ErrMissingHeaders))
}

func TestParseCSV_SemicolonAndCaseInsensitiveHeaders(t *testing.T) {
	data := "\ufeffCODIGO_LOJA;Faturamento;PA;TicketMedio;PrateleInfinita;Conversao;MES_ANO\n" +
		"lj001;R$ 150.000,00;2,8;350,50;1.200;12,5;2025-04\n" +
		";;;;;;\n"

	sheet, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)

	row := sheet.Rows[0]
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, "lj001", row.Get(ColStoreCode))
	assert.Equal(t, kpi.Values{
		kpi.Faturamento:        150000,
		kpi.PA:                 2.8,
		kpi.TicketMedio:        350.5,
		kpi.PrateleiraInfinita: 1200,
		kpi.Conversao:          12.5,
	}, row.Values())
}

func TestApply_GoalsWithOverridesAndRowErrors(t *testing.T) {
	// GIVEN: A sheet with a good row, an override, a bad override and an unknown store
	im, mem := newImporter(t)
	ctx := context.Background()

	data := "codigo_loja,faturamento,pa,ticketmedio,prateleinfinita,conversao,mes_ano\n" +
		"LJ001,100000,3,0,0,10,\n" +
		"lj002,80000,2,0,0,8,2025-04\n" +
		"LJ001,5,5,5,5,5,abril\n" +
		"LJ999,1,1,1,1,1,\n"
	sheet, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)

	// WHEN: Importing goals for March
	report, err := im.Apply(ctx, sheet, KindGoals, "2025-03")
	require.NoError(t, err)

	// THEN: Three rows import, one fails, one warns
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 3, report.Imported)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, CodeStoreNotFound, report.Errors[0].Code)
	assert.Equal(t, 5, report.Errors[0].Line)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, CodeInvalidPeriod, report.Warnings[0].Code)
	assert.ElementsMatch(t, []kpi.Period{"2025-03", "2025-04"}, report.Periods)

	s1, err := mem.GetStore(ctx, "s1")
	require.NoError(t, err)
	// Malformed override fell back to the default period and overwrote row 2.
	assert.Equal(t, 5.0, s1.Goals.Get("2025-03").Get(kpi.Faturamento))

	s2, err := mem.GetStore(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 80000.0, s2.Goals.Get("2025-04").Get(kpi.Faturamento))
	assert.False(t, s2.Goals.Has("2025-03"))
}

func TestApply_LockedPeriodFailsOnlyThatRow(t *testing.T) {
	im, mem := newImporter(t)
	ctx := context.Background()

	_, err := im.Service.SetLock(ctx, "s1", "2025-03", true)
	require.NoError(t, err)

	sheet, err := ParseCSV(strings.NewReader(
		"codigo_loja,faturamento,pa,ticketmedio,prateleinfinita,conversao\n" +
			"LJ001,1,1,1,1,1\n" +
			"LJ002,2,2,2,2,2\n"))
	require.NoError(t, err)

	report, err := im.Apply(ctx, sheet, KindStoreResults, "2025-03")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, CodePeriodLocked, report.Errors[0].Code)

	s2, _ := mem.GetStore(ctx, "s2")
	assert.Equal(t, 2.0, s2.StoreResults.Get("2025-03").Get(kpi.PA))
}

func TestApply_RejectsInvalidDefaultPeriod(t *testing.T) {
	im, _ := newImporter(t)

	_, err := im.Apply(context.Background(), &Sheet{}, KindGoals, "03/2025")
	assert.True(t, errors.Is(err, kpi.ErrInvalidPeriod))
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"codigo_loja", "faturamento", "pa", "ticketmedio", "prateleinfinita", "conversao"},
		{"LJ001", "R$ 10.000,00", "2,5", "", "", "9"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	parsed, err := Parse("metas.XLSX", &buf)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, 10000.0, parsed.Rows[0].Values().Get(kpi.Faturamento))
	assert.Equal(t, 2.5, parsed.Rows[0].Values().Get(kpi.PA))
	assert.Equal(t, 0.0, parsed.Rows[0].Values().Get(kpi.TicketMedio))
}
