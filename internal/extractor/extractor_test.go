package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExtract_ReadsHeaderAndRows(t *testing.T) {
	path := writeFile(t, "AAPL_stock_data.csv",
		"\ufeffDate, Open,High,Low,Close,Volume\n"+
			"2024-01-02,1,2,0.5,1.5,100\n"+
			"2024-01-03,1.5,2.5,1,2,200\n")

	tbl, err := Extract(path)
	require.NoError(t, err)
	require.Equal(t, path, tbl.Path)
	require.Equal(t, []string{"Date", "Open", "High", "Low", "Close", "Volume"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	require.Equal(t, "200", tbl.Records[1][5])
}

func TestExtract_HeaderOnly(t *testing.T) {
	tbl, err := Extract(writeFile(t, "x.csv", "date,open,high,low,close,volume\n"))
	require.NoError(t, err)
	require.Equal(t, 0, tbl.Len())
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") }},
		{"empty file", func(t *testing.T) string { return writeFile(t, "empty.csv", "") }},
		{"ragged rows", func(t *testing.T) string {
			return writeFile(t, "ragged.csv", "date,open,close\n2024-01-02,1\n")
		}},
		{"bare quote", func(t *testing.T) string {
			return writeFile(t, "quote.csv", "date,open\n2024-01-02,\"1\n")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			_, err := Extract(path)
			require.Error(t, err)

			var extErr *ExtractionError
			require.True(t, errors.As(err, &extErr))
			require.Equal(t, path, extErr.Path)
		})
	}
}
