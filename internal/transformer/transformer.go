package transformer

import (
	"log"
	"math"
	"sort"

	"stocketl/internal/calculator"
	"stocketl/internal/model"
)

// DefaultTicker is assigned to every row of a file without a ticker column.
// Only correct for single-ticker files.
const DefaultTicker = "AAPL"

// Rolling window lengths, in observations.
const (
	ShortMAWindow    = 7
	LongMAWindow     = 30
	VolatilityWindow = 20
)

// Transformer derives per-ticker features from an extracted table.
type Transformer struct {
	DefaultTicker string
}

// New creates a Transformer; an empty ticker falls back to DefaultTicker.
func New(defaultTicker string) *Transformer {
	if defaultTicker == "" {
		defaultTicker = DefaultTicker
	}
	return &Transformer{DefaultTicker: defaultTicker}
}

// Transform resolves the table's schema, computes daily_return, ma7, ma30 and
// volatility per ticker, and returns only complete rows in file order.
// Derived columns already present in the table are kept as they are.
func (t *Transformer) Transform(tbl *model.Table) ([]model.EnrichedRow, error) {
	log.Printf("[INFO] transforming %s", tbl.Path)

	sch, err := resolveSchema(tbl.Header)
	if err != nil {
		return nil, err
	}
	ticker := t.DefaultTicker
	if ticker == "" {
		ticker = DefaultTicker
	}
	rows, err := sch.rows(tbl.Records, ticker)
	if err != nil {
		return nil, err
	}

	preserved := make(map[string]bool, len(derivedColumns))
	for _, c := range derivedColumns {
		preserved[c] = sch.has(c)
	}
	for _, group := range groupByTicker(rows) {
		computeFeatures(rows, group, preserved)
	}

	out := make([]model.EnrichedRow, 0, len(rows))
	for _, r := range rows {
		if complete(r) {
			out = append(out, enrich(r))
		}
	}
	log.Printf("[INFO] dropped rows with missing values; remaining rows: %d", len(out))
	return out, nil
}

// groupByTicker partitions row indices by ticker in order of first appearance,
// each partition sorted by timestamp. Rows lacking a ticker or timestamp
// belong to no partition.
func groupByTicker(rows []model.RawRow) [][]int {
	var order []string
	groups := make(map[string][]int)
	for i, r := range rows {
		if r.Ticker == "" || r.Time.IsZero() {
			continue
		}
		if _, ok := groups[r.Ticker]; !ok {
			order = append(order, r.Ticker)
		}
		groups[r.Ticker] = append(groups[r.Ticker], i)
	}

	out := make([][]int, 0, len(order))
	for _, tk := range order {
		idx := groups[tk]
		sort.SliceStable(idx, func(a, b int) bool {
			return rows[idx[a]].Time.Before(rows[idx[b]].Time)
		})
		out = append(out, idx)
	}
	return out
}

func computeFeatures(rows []model.RawRow, idx []int, preserved map[string]bool) {
	closes := make([]float64, len(idx))
	for k, i := range idx {
		closes[k] = rows[i].Close
	}

	if !preserved["daily_return"] {
		ret := calculator.PctChange(closes)
		for k, i := range idx {
			rows[i].DailyReturn = ret[k]
		}
	}
	if !preserved["ma7"] {
		ma := calculator.RollingMean(closes, ShortMAWindow)
		for k, i := range idx {
			rows[i].MA7 = ma[k]
		}
	}
	if !preserved["ma30"] {
		ma := calculator.RollingMean(closes, LongMAWindow)
		for k, i := range idx {
			rows[i].MA30 = ma[k]
		}
	}
	if !preserved["volatility"] {
		returns := make([]float64, len(idx))
		for k, i := range idx {
			returns[k] = rows[i].DailyReturn
		}
		vol := calculator.RollingStdDev(returns, VolatilityWindow)
		for k, i := range idx {
			rows[i].Volatility = vol[k]
		}
	}
}

func complete(r model.RawRow) bool {
	if r.Ticker == "" || r.Time.IsZero() {
		return false
	}
	for _, v := range []float64{
		r.Open, r.High, r.Low, r.Close, r.Volume,
		r.DailyReturn, r.MA7, r.MA30, r.Volatility,
	} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func enrich(r model.RawRow) model.EnrichedRow {
	return model.EnrichedRow{
		Date:        r.Time,
		Ticker:      r.Ticker,
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Close,
		Volume:      r.Volume,
		DailyReturn: r.DailyReturn,
		MA7:         r.MA7,
		MA30:        r.MA30,
		Volatility:  r.Volatility,
	}
}
