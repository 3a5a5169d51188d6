package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"stocketl/internal/extractor"
	"stocketl/internal/loader"
	"stocketl/internal/model"
	"stocketl/internal/runlock"
	"stocketl/internal/transformer"
)

// DefaultPattern matches per-ticker input files.
const DefaultPattern = "*_stock_data.csv"

// ErrNoData is returned when no input file yielded any rows.
var ErrNoData = errors.New("no data loaded")

// DiscoveryError reports an input directory without matching files.
type DiscoveryError struct {
	Dir     string
	Pattern string
	Err     error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discover %s in %s: %v", e.Pattern, e.Dir, e.Err)
	}
	return fmt.Sprintf("no files matching %s found in %s", e.Pattern, e.Dir)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Loader writes the consolidated rows to the destination.
type Loader interface {
	Replace(ctx context.Context, rows []model.EnrichedRow) (int, error)
}

// Pipeline runs discovery, per-file extraction and transformation,
// consolidation and the destination load.
type Pipeline struct {
	InputDir    string
	Pattern     string
	Transformer *transformer.Transformer
	Loader      Loader
	Locker      runlock.Locker
}

// New creates a Pipeline. A nil locker serializes runs within the process only.
func New(inputDir, pattern string, tr *transformer.Transformer, ld Loader, lk runlock.Locker) *Pipeline {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if tr == nil {
		tr = transformer.New("")
	}
	if lk == nil {
		lk = runlock.NewLocalLocker()
	}
	return &Pipeline{InputDir: inputDir, Pattern: pattern, Transformer: tr, Loader: ld, Locker: lk}
}

// Run executes one full-replace run. The returned error is non-nil exactly
// when the report ends in StateFailed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	rep.enter(StateIdle)
	log.Printf("[INFO] run %s: starting ETL process", rep.RunID)

	err := p.run(ctx, rep)
	rep.FinishedAt = time.Now()
	if err != nil {
		rep.Err = err
		rep.enter(StateFailed)
		log.Printf("[ERROR] run %s: ETL failed: %v", rep.RunID, err)
		return rep, err
	}
	rep.enter(StateSucceeded)
	log.Printf("[INFO] run %s: ETL process completed successfully (%d rows, %d files skipped, %s)",
		rep.RunID, rep.Loaded, len(rep.Skipped()), rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, rep *Report) error {
	rep.enter(StateDiscovering)
	files, err := Discover(p.InputDir, p.Pattern)
	if err != nil {
		return err
	}
	log.Printf("[INFO] run %s: discovered %d input files", rep.RunID, len(files))

	rep.enter(StateProcessing)
	batches := make([][]model.EnrichedRow, 0, len(files))
	for _, path := range files {
		rows, res := p.processFile(path)
		rep.Files = append(rep.Files, res)
		if !res.OK() {
			log.Printf("[ERROR] run %s: error processing %s: %v", rep.RunID, path, res.Err)
			continue
		}
		batches = append(batches, rows)
	}

	rep.enter(StateConsolidating)
	combined := Consolidate(batches)
	rep.Consolidated = len(combined)
	if len(combined) == 0 {
		return ErrNoData
	}

	rep.enter(StateLoading)
	if err := p.Locker.Lock(ctx); err != nil {
		return &loader.LoadError{Op: "lock destination", Err: err}
	}
	defer func() {
		if err := p.Locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[WARN] run %s: release lock: %v", rep.RunID, err)
		}
	}()

	n, err := p.Loader.Replace(ctx, combined)
	if err != nil {
		return err
	}
	rep.Loaded = n
	return nil
}

func (p *Pipeline) processFile(path string) ([]model.EnrichedRow, FileResult) {
	tbl, err := extractor.Extract(path)
	if err != nil {
		return nil, FileResult{Path: path, Err: err}
	}
	rows, err := p.Transformer.Transform(tbl)
	if err != nil {
		return nil, FileResult{Path: path, Err: fmt.Errorf("transform %s: %w", path, err)}
	}
	return rows, FileResult{Path: path, Rows: len(rows)}
}

// Discover returns the files in dir matching pattern, sorted by name.
func Discover(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Pattern: pattern, Err: err}
	}
	if len(matches) == 0 {
		return nil, &DiscoveryError{Dir: dir, Pattern: pattern}
	}
	sort.Strings(matches)
	return matches, nil
}

// Consolidate concatenates per-file outputs, keeping file then row order.
// Duplicate (date, ticker) pairs are passed through.
func Consolidate(batches [][]model.EnrichedRow) []model.EnrichedRow {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	out := make([]model.EnrichedRow, 0, total)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
