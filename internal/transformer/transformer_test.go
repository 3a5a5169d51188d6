package transformer

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stocketl/internal/model"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func closeAt(i int) float64 {
	return 100 + float64(i%5)*1.5 + float64(i)*0.3
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// priceTable builds n daily rows starting at day0 with an optional ticker column.
func priceTable(n int, ticker string) *model.Table {
	header := []string{" Date ", "Open", "High", "Low", "Close", "Volume"}
	if ticker != "" {
		header = append(header, "Ticker")
	}
	tbl := &model.Table{Path: "test.csv", Header: header}
	for i := 0; i < n; i++ {
		c := closeAt(i)
		rec := []string{
			day0.AddDate(0, 0, i).Format("2006-01-02"),
			fmtFloat(c - 0.5), fmtFloat(c + 1), fmtFloat(c - 1), fmtFloat(c),
			strconv.Itoa(1000 + i),
		}
		if ticker != "" {
			rec = append(rec, ticker)
		}
		tbl.Records = append(tbl.Records, rec)
	}
	return tbl
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func TestTransform_WarmupLossAndRollingValues(t *testing.T) {
	const n = 40
	rows, err := New("").Transform(priceTable(n, ""))
	require.NoError(t, err)
	require.Len(t, rows, n-29)

	closes := make([]float64, n)
	returns := make([]float64, n)
	for i := range closes {
		closes[i] = closeAt(i)
		if i > 0 {
			returns[i] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}

	for k, r := range rows {
		i := k + 29
		require.Equal(t, day0.AddDate(0, 0, i), r.Date)
		require.Equal(t, DefaultTicker, r.Ticker)
		require.InDelta(t, returns[i], r.DailyReturn, 1e-12)
		require.InDelta(t, mean(closes[i-6:i+1]), r.MA7, 1e-9)
		require.InDelta(t, mean(closes[i-29:i+1]), r.MA30, 1e-9)
		require.InDelta(t, sampleStd(returns[i-19:i+1]), r.Volatility, 1e-12)
		require.Equal(t, float64(1000+i), r.Volume)
	}
}

func TestTransform_ShortSeriesYieldsNothing(t *testing.T) {
	rows, err := New("").Transform(priceTable(29, ""))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestTransform_Idempotent(t *testing.T) {
	first, err := New("").Transform(priceTable(45, ""))
	require.NoError(t, err)
	require.NotEmpty(t, first)

	again := &model.Table{
		Path: "enriched.csv",
		Header: []string{"date", "ticker", "open", "high", "low", "close", "volume",
			"daily_return", "ma7", "ma30", "volatility"},
	}
	for _, r := range first {
		again.Records = append(again.Records, []string{
			r.Date.Format(model.DateLayout), r.Ticker,
			fmtFloat(r.Open), fmtFloat(r.High), fmtFloat(r.Low), fmtFloat(r.Close), fmtFloat(r.Volume),
			fmtFloat(r.DailyReturn), fmtFloat(r.MA7), fmtFloat(r.MA30), fmtFloat(r.Volatility),
		})
	}

	second, err := New("").Transform(again)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestTransform_DatetimeFallbackAndDefaultTicker(t *testing.T) {
	tbl := priceTable(31, "")
	tbl.Header[0] = "DATETIME"
	for _, rec := range tbl.Records {
		rec[0] += " 16:00:00"
	}

	rows, err := New("MSFT").Transform(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "MSFT", rows[0].Ticker)
	require.Equal(t, "2024-01-30 16:00:00", rows[0].Date.Format(model.DateLayout))
}

func TestTransform_OffsetTimestampsKeepWrittenWallClock(t *testing.T) {
	tbl := priceTable(35, "")
	for _, rec := range tbl.Records {
		rec[0] += " 00:00:00-05:00"
	}
	// a Z suffix is accepted in the same layout
	tbl.Records[34][0] = "2024-02-04 00:00:00Z"

	rows, err := New("").Transform(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	require.Equal(t, "2024-01-30 00:00:00", rows[0].Date.Format(model.DateLayout))
	require.Equal(t, "2024-02-04 00:00:00", rows[5].Date.Format(model.DateLayout))

	_, offset := rows[0].Date.Zone()
	require.Equal(t, -5*3600, offset)
}

func TestTransform_RowsWithoutTimestampLeaveTheSeries(t *testing.T) {
	tbl := priceTable(41, "")
	tbl.Records[10][0] = ""

	rows, err := New("").Transform(tbl)
	require.NoError(t, err)
	// 40 dated rows remain in the series, so 11 survive warm-up
	require.Len(t, rows, 11)
	require.Equal(t, "2024-01-31 00:00:00", rows[0].Date.Format(model.DateLayout))
}

func TestTransform_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tbl *model.Table)
		column string
		line   int
	}{
		{"no timestamp column", func(tbl *model.Table) { tbl.Header[0] = "day" }, "date", 0},
		{"missing close", func(tbl *model.Table) { tbl.Header[4] = "adj close" }, "close", 0},
		{"bad number", func(tbl *model.Table) { tbl.Records[3][2] = "abc" }, "high", 5},
		{"bad timestamp", func(tbl *model.Table) { tbl.Records[0][0] = "yesterday" }, "date", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := priceTable(35, "")
			tt.mutate(tbl)

			_, err := New("").Transform(tbl)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			require.Equal(t, tt.column, schemaErr.Column)
			require.Equal(t, tt.line, schemaErr.Line)
		})
	}
}

func TestTransform_MissingCellsDropRows(t *testing.T) {
	tbl := priceTable(40, "")
	tbl.Records[35][4] = "" // close
	tbl.Records[39][0] = "" // date

	rows, err := New("").Transform(tbl)
	require.NoError(t, err)
	for _, r := range rows {
		require.False(t, r.Date.Equal(day0.AddDate(0, 0, 35)))
		require.False(t, r.Date.Equal(day0.AddDate(0, 0, 39)))
	}
	// 35 poisons its own row and every window that covers it
	require.Len(t, rows, 35-29)
}

func TestTransform_GroupsByTicker(t *testing.T) {
	a := priceTable(35, "AAA")
	b := priceTable(20, "BBB")
	for _, rec := range b.Records {
		rec[4] = "5" // constant close for BBB
	}

	// interleave: BBB rows between AAA rows
	mixed := &model.Table{Path: "mixed.csv", Header: a.Header}
	for i, rec := range a.Records {
		mixed.Records = append(mixed.Records, rec)
		if i < len(b.Records) {
			mixed.Records = append(mixed.Records, b.Records[i])
		}
	}

	rows, err := New("").Transform(mixed)
	require.NoError(t, err)
	require.Len(t, rows, 35-29)
	for _, r := range rows {
		require.Equal(t, "AAA", r.Ticker)
		require.Greater(t, r.MA7, 50.0)
	}
}

func TestTransform_SortsWithinTickerButKeepsFileOrder(t *testing.T) {
	sorted, err := New("").Transform(priceTable(40, "AAA"))
	require.NoError(t, err)

	reversed := priceTable(40, "AAA")
	for i, j := 0, len(reversed.Records)-1; i < j; i, j = i+1, j-1 {
		reversed.Records[i], reversed.Records[j] = reversed.Records[j], reversed.Records[i]
	}
	got, err := New("").Transform(reversed)
	require.NoError(t, err)
	require.Len(t, got, len(sorted))

	for k := range got {
		require.Equal(t, sorted[len(sorted)-1-k], got[k])
	}
}
