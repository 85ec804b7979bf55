package batch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/dfise"
)

// ErrUnreadableInput wraps failures to obtain a document's text.
var ErrUnreadableInput = errors.New("unreadable input")

// ReadDocument loads the file at path as a dfise.Document.
func ReadDocument(path string) (dfise.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dfise.Document{}, fmt.Errorf("batch: %w: %w", ErrUnreadableInput, err)
	}
	return dfise.Document{ID: path, Text: string(data)}, nil
}

// Result is the outcome for one document. Exactly one of Table and Err is
// set.
type Result struct {
	Path  string
	Table *dfise.ChannelTable
	Err   error
}

// Runner extracts channels from many documents. Documents are independent:
// one failure never stops the others.
type Runner struct {
	Config  *Config
	Logger  log.Logger
	Metrics *Metrics // optional

	// RunID, when set, tags every run of this runner. Otherwise each Run
	// draws a fresh identifier.
	RunID string
}

// NewRunner returns a runner for cfg. A nil cfg means DefaultConfig and a
// nil logger discards output.
func NewRunner(cfg *Config, logger log.Logger, metrics *Metrics) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Runner{Config: cfg, Logger: logger, Metrics: metrics}
}

// Outcome is what one Run produced.
type Outcome struct {
	RunID   string
	Results []Result // one per input path, in input order
}

// Run processes paths with at most Config.Workers concurrent documents (at
// least one). Documents not started before ctx is done carry ctx.Err().
// Run does not modify r and may be called concurrently.
func (r *Runner) Run(ctx context.Context, paths []string) Outcome {
	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	limit := r.Config.Workers
	if limit < 1 {
		limit = 1
	}
	logger := log.With(r.Logger, "run", runID)
	extractor := dfise.NewExtractor(logger)

	results := make([]Result, len(paths))
	var g errgroup.Group
	g.SetLimit(limit)

	level.Info(logger).Log("msg", "starting batch", "documents", len(paths), "workers", limit)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Path: path, Err: err}
				return nil
			}
			results[i] = r.process(extractor, logger, path)
			r.Metrics.observe(results[i])
			return nil
		})
	}
	_ = g.Wait()

	s := Summarize(results)
	level.Info(logger).Log("msg", "batch finished", "ok", s.Succeeded, "failed", s.Failed)
	return Outcome{RunID: runID, Results: results}
}

func (r *Runner) process(extractor *dfise.Extractor, logger log.Logger, path string) Result {
	doc, err := ReadDocument(path)
	if err != nil {
		level.Error(logger).Log("msg", "cannot read document", "document", path, "err", err)
		return Result{Path: path, Err: err}
	}
	table, err := extractor.Extract(doc, r.Config.Channels)
	if err != nil {
		level.Error(logger).Log("msg", "extraction failed", "document", path, "err", err)
		return Result{Path: path, Err: err}
	}
	level.Debug(logger).Log("msg", "extracted", "document", path, "rows", table.Rows, "channels", len(table.Order))
	return Result{Path: path, Table: table}
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Warnings  int
}

// Summarize counts successes, failures and warnings in results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, res := range results {
		if res.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Warnings += len(res.Table.Warnings)
	}
	return s
}
