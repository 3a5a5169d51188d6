package extractor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"stocketl/internal/model"
)

// ExtractionError reports a file that could not be read as delimited data.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract reads a comma-separated file with a header line into a Table.
// Every record must have as many fields as the header.
func Extract(path string) (*model.Table, error) {
	log.Printf("[INFO] extracting data from %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	tbl, err := read(f)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	tbl.Path = path

	log.Printf("[INFO] extracted %d rows from %s", tbl.Len(), path)
	return tbl, nil
}

func read(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no header line")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return &model.Table{Header: header, Records: records}, nil
}
