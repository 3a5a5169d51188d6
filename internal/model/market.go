package model

import "time"

// DateLayout is how dates are serialized in the destination table.
const DateLayout = "2006-01-02 15:04:05"

// Columns lists the destination columns in table order.
var Columns = []string{
	"Date", "Ticker", "Open", "High", "Low", "Close", "Volume",
	"Daily_Return", "MA7", "MA30", "Volatility",
}

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Table is one delimited file held in memory.
type Table struct {
	Path    string
	Header  []string
	Records [][]string
}

// Len returns the number of data records.
func (t *Table) Len() int { return len(t.Records) }

// RawRow is one input row after schema resolution. Missing numeric cells are
// NaN and a missing timestamp is the zero time. Derived fields are NaN unless
// the file already carried them.
type RawRow struct {
	OHLCV
	Line        int
	Ticker      string
	DailyReturn float64
	MA7         float64
	MA30        float64
	Volatility  float64
}

// EnrichedRow is a fully populated output row, one per (Date, Ticker).
type EnrichedRow struct {
	Date        time.Time
	Ticker      string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	DailyReturn float64
	MA7         float64
	MA30        float64
	Volatility  float64
}
