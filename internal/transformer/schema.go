package transformer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"stocketl/internal/model"
)

// Recognized column names, after normalization.
const (
	colDate     = "date"
	colDatetime = "datetime"
	colTicker   = "ticker"
)

var (
	requiredColumns = []string{"open", "high", "low", "close", "volume"}
	derivedColumns  = []string{"daily_return", "ma7", "ma30", "volatility"}
)

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
}

// SchemaError reports a file whose columns or cell values cannot be resolved
// into typed rows.
type SchemaError struct {
	Column string
	Line   int // 0 when the header itself is at fault
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema: column %q line %d: %s", e.Column, e.Line, e.Reason)
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// schema maps normalized column names to record positions.
type schema struct {
	timeCol   string
	index     map[string]int
	hasTicker bool
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// resolveSchema validates the header once, before any row is read.
func resolveSchema(header []string) (*schema, error) {
	s := &schema{index: make(map[string]int, len(header))}
	for i, h := range header {
		name := normalize(h)
		if _, dup := s.index[name]; !dup {
			s.index[name] = i
		}
	}

	switch {
	case s.has(colDate):
		s.timeCol = colDate
	case s.has(colDatetime):
		s.timeCol = colDatetime
	default:
		return nil, &SchemaError{Column: colDate, Reason: "no 'date' or 'datetime' column found"}
	}
	for _, c := range requiredColumns {
		if !s.has(c) {
			return nil, &SchemaError{Column: c, Reason: "required column missing"}
		}
	}
	s.hasTicker = s.has(colTicker)
	return s, nil
}

func (s *schema) has(col string) bool {
	_, ok := s.index[col]
	return ok
}

// rows converts records into RawRows. Line numbers count the header as line 1.
func (s *schema) rows(records [][]string, defaultTicker string) ([]model.RawRow, error) {
	out := make([]model.RawRow, len(records))
	for i, rec := range records {
		line := i + 2
		r := model.RawRow{Line: line, Ticker: defaultTicker}

		ts, err := parseTime(rec[s.index[s.timeCol]])
		if err != nil {
			return nil, &SchemaError{Column: s.timeCol, Line: line, Reason: err.Error()}
		}
		r.Time = ts

		if s.hasTicker {
			r.Ticker = strings.TrimSpace(rec[s.index[colTicker]])
		}

		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &r.Open}, {"high", &r.High}, {"low", &r.Low}, {"close", &r.Close}, {"volume", &r.Volume},
			{"daily_return", &r.DailyReturn}, {"ma7", &r.MA7}, {"ma30", &r.MA30}, {"volatility", &r.Volatility},
		}
		for _, f := range fields {
			idx, ok := s.index[f.name]
			if !ok {
				*f.dst = math.NaN()
				continue
			}
			v, err := parseNumber(rec[idx])
			if err != nil {
				return nil, &SchemaError{Column: f.name, Line: line, Reason: err.Error()}
			}
			*f.dst = v
		}
		out[i] = r
	}
	return out, nil
}

// parseTime keeps a written UTC offset as the value's zone, so formatting
// reproduces the wall clock as written.
func parseTime(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", cell)
}

func parseNumber(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "nan", "na", "n/a", "null":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", cell)
	}
	return v, nil
}
