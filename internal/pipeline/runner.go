// Package pipeline drives one gathering run: every enabled table is acquired,
// normalized through its registered filter and handed to the store, the
// archive and the CSV export.
//
// Tables are processed strictly one after another. A skipped table never
// aborts the run; a fatal acquisition error does.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gathernomics/internal/acquire"
	"github.com/JonMunkholm/gathernomics/internal/archive"
	"github.com/JonMunkholm/gathernomics/internal/core"
	"github.com/JonMunkholm/gathernomics/internal/logging"
	"github.com/JonMunkholm/gathernomics/internal/metrics"
)

// Acquirer fetches one table and cleans up everything it staged.
type Acquirer interface {
	Acquire(ctx context.Context, desc core.TableDescriptor) (*acquire.Context, error)
	Cleanup() error
}

// Store persists normalized records.
type Store interface {
	EnsureSourceTable(ctx context.Context, name string, source core.SourceType, lastUpdate time.Time) (int64, error)
	UpsertFactor(ctx context.Context, tableID int64, rec core.Record) (bool, error)
	CountFactors(ctx context.Context, tableID int64) (int64, error)
}

// Archiver keeps a copy of an acquired zip.
type Archiver interface {
	Store(ctx context.Context, ac *acquire.Context) (archive.ObjectInfo, error)
}

// Options configures a Runner. Every field is optional.
type Options struct {
	Store    Store
	Archiver Archiver
	Metrics  *metrics.Metrics
	Only     []string         // Restrict the run to these table names
	Collect  bool             // Keep records in the Summary for export
	Cleanup  bool             // Remove staged files when the run ends
	Now      func() time.Time // Clock for the source table last-update date
}

// Outcome is the result of processing one table.
type Outcome string

const (
	OutcomeLoaded   Outcome = metrics.OutcomeLoaded
	OutcomeSkipped  Outcome = metrics.OutcomeSkipped
	OutcomeDisabled Outcome = metrics.OutcomeDisabled
	OutcomeNoFilter Outcome = metrics.OutcomeNoFilter
	OutcomeFailed   Outcome = metrics.OutcomeFailed
)

// TableResult summarizes one table.
type TableResult struct {
	Name     string
	Outcome  Outcome
	Stats    core.Stats
	Upserted int
	Stored   int64  // Factors held for the table after the load
	Archived string // Object key, when archived
	Err      error  // Reason for a skip or failure
}

// Summary is the result of a run.
type Summary struct {
	RunID   string
	Tables  []TableResult
	Records []core.Record // Only populated when Options.Collect is set
}

// Count returns how many tables ended with outcome.
func (s Summary) Count(outcome Outcome) int {
	n := 0
	for _, t := range s.Tables {
		if t.Outcome == outcome {
			n++
		}
	}
	return n
}

// Stored returns the factors held in the store for the loaded tables.
func (s Summary) Stored() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Stored
	}
	return n
}

// Emitted returns the number of records produced across all tables.
func (s Summary) Emitted() int {
	n := 0
	for _, t := range s.Tables {
		n += t.Stats.Emitted
	}
	return n
}

// Runner executes gathering runs.
type Runner struct {
	acquirer Acquirer
	opts     Options
}

// NewRunner returns a Runner acquiring tables through acquirer.
func NewRunner(acquirer Acquirer, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{acquirer: acquirer, opts: opts}
}

// Run processes descs in order. It returns the first fatal error, together
// with the summary of everything processed before it.
func (r *Runner) Run(ctx context.Context, descs []core.TableDescriptor) (sum Summary, err error) {
	sum.RunID = logging.RunID(ctx)
	if sum.RunID == "" {
		sum.RunID = uuid.New().String()
		ctx = logging.WithRun(ctx, sum.RunID)
	}
	logger := logging.FromContext(ctx)
	logger.Info("run started", "tables", len(descs))

	if r.opts.Cleanup {
		defer func() {
			if cerr := r.acquirer.Cleanup(); cerr != nil {
				logger.Warn("cleanup incomplete", "error", cerr)
			}
		}()
	}

	for _, desc := range descs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if len(r.opts.Only) > 0 && !slices.Contains(r.opts.Only, desc.Name) {
			continue
		}

		res, err := r.runTable(ctx, desc, &sum)
		sum.Tables = append(sum.Tables, res)
		r.countTable(res)
		if err != nil {
			logger.Error("run aborted", "table", desc.Name, "error", err)
			return sum, err
		}
	}

	logger.Info("run finished",
		"loaded", sum.Count(OutcomeLoaded),
		"skipped", sum.Count(OutcomeSkipped)+sum.Count(OutcomeNoFilter)+sum.Count(OutcomeFailed),
		"disabled", sum.Count(OutcomeDisabled),
		"records", sum.Emitted(),
		"stored", sum.Stored(),
	)
	return sum, nil
}

// runTable processes a single descriptor. A non-nil error is fatal for the run.
func (r *Runner) runTable(ctx context.Context, desc core.TableDescriptor, sum *Summary) (TableResult, error) {
	res := TableResult{Name: desc.Name}
	logger := logging.WithFields(ctx, "table", desc.Name)

	if !desc.Enabled {
		logger.Debug("table disabled")
		res.Outcome = OutcomeDisabled
		return res, nil
	}

	def, ok := core.Lookup(desc.DataFilter)
	if !ok {
		logger.Warn("no filter registered for table", "filter", desc.DataFilter)
		res.Outcome = OutcomeNoFilter
		res.Err = fmt.Errorf("%w: %q", core.ErrUnknownFilter, desc.DataFilter)
		return res, nil
	}

	start := time.Now()
	defer func() {
		if r.opts.Metrics != nil {
			r.opts.Metrics.ObserveTable(desc.Name, time.Since(start).Seconds())
		}
	}()

	ac, err := r.acquirer.Acquire(ctx, desc)
	if err != nil {
		res.Err = err
		if acquire.IsSkipped(err) {
			logger.Warn("table skipped", "error", err)
			res.Outcome = OutcomeSkipped
			return res, nil
		}
		res.Outcome = OutcomeFailed
		return res, err
	}
	logger.Debug("table acquired", "data", ac.DataCSVPath, "metadata", ac.MetaCSVPath)

	if r.opts.Archiver != nil {
		info, err := r.opts.Archiver.Store(ctx, ac)
		if err != nil {
			logger.Warn("archive failed", "error", err)
		} else {
			res.Archived = info.Key
			if r.opts.Metrics != nil {
				r.opts.Metrics.Archived()
			}
		}
	}

	var tableID int64
	if r.opts.Store != nil {
		tableID, err = r.opts.Store.EnsureSourceTable(ctx, desc.Name, desc.Source, r.opts.Now())
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			return res, err
		}
	}

	stream, err := core.Open(ac.DataCSVPath, def, desc)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res, fmt.Errorf("open data csv: %w", err)
	}
	defer stream.Close()

	var records []core.Record
	for stream.Next() {
		rec := stream.Record()
		if r.opts.Store != nil {
			written, err := r.opts.Store.UpsertFactor(ctx, tableID, rec)
			if err != nil {
				res.Outcome = OutcomeFailed
				res.Stats = stream.Stats()
				res.Err = err
				return res, err
			}
			if written {
				res.Upserted++
			}
		}
		if r.opts.Collect {
			records = append(records, rec)
		}
	}
	res.Stats = stream.Stats()
	r.countRows(desc.Name, res)

	if err := stream.Err(); err != nil {
		// CSV syntax errors skip the table; records already upserted stay.
		logger.Warn("table skipped: unreadable data", "error", err, "rows", res.Stats.Rows)
		res.Outcome = OutcomeSkipped
		res.Err = err
		return res, nil
	}

	if r.opts.Store != nil {
		if res.Stored, err = r.opts.Store.CountFactors(ctx, tableID); err != nil {
			logger.Warn("count stored factors failed", "error", err)
		}
	}

	sum.Records = append(sum.Records, records...)
	res.Outcome = OutcomeLoaded
	logger.Info("table loaded",
		"rows", res.Stats.Rows,
		"records", res.Stats.Emitted,
		"skipped_rows", res.Stats.Skipped(),
		"upserted", res.Upserted,
		"stored", res.Stored,
	)
	return res, nil
}

func (r *Runner) countTable(res TableResult) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.Table(string(res.Outcome))
	}
}

func (r *Runner) countRows(table string, res TableResult) {
	if r.opts.Metrics == nil {
		return
	}
	r.opts.Metrics.Rows(table, int64(res.Stats.Emitted), int64(res.Stats.Rejected), int64(res.Stats.Undated), res.Stats.Bytes)
	r.opts.Metrics.Upserted(res.Upserted)
}
