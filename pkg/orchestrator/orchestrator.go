// Package orchestrator drives the per-row generation pipeline and schedules
// rows either sequentially or in bounded concurrent batches.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/siteforge/pkg/builddriver"
	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/finalize"
	"github.com/arthur-debert/siteforge/pkg/logging"
	"github.com/arthur-debert/siteforge/pkg/materialize"
	"github.com/arthur-debert/siteforge/pkg/report"
	"github.com/arthur-debert/siteforge/pkg/rowsource"
	"github.com/arthur-debert/siteforge/pkg/walker"
)

// State is one row's position in the pipeline.
type State string

const (
	StatePending       State = "pending"
	StateMaterializing State = "materializing"
	StateSubstituting  State = "substituting"
	StateFinalizing    State = "finalizing"
	StateInstalling    State = "installing"
	StateBuilding      State = "building"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// Result is one row's terminal outcome. Created once per row per run; rows
// are never retried.
type Result struct {
	Domain   string
	State    State
	Path     string
	Err      error
	Duration time.Duration
}

// Success reports whether the row reached the succeeded state.
func (r Result) Success() bool {
	return r.State == StateSucceeded
}

// Options configures a run.
type Options struct {
	TemplateDir string
	OutputRoot  string
	ExcludeDirs []string

	// Parallel enables bounded-concurrent batching; BatchSize rows run at
	// once and every row of a batch reaches a terminal state before the next
	// batch starts.
	Parallel  bool
	BatchSize int

	// SkipBuild stops each row after finalizing; install and build are not
	// invoked.
	SkipBuild bool

	// Only restricts the run to a single domain when non-empty.
	Only string
}

// Orchestrator sequences materialize, substitute, finalize, install and
// build for every row.
type Orchestrator struct {
	opts   Options
	walker *walker.Walker
	driver *builddriver.Driver
	logger zerolog.Logger
}

// New creates an Orchestrator.
func New(opts Options, w *walker.Walker, d *builddriver.Driver) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &Orchestrator{
		opts:   opts,
		walker: w,
		driver: d,
		logger: logging.GetLogger("orchestrator"),
	}
}

// Run processes every row to a terminal state and returns the run summary.
// A non-nil error here is process-fatal (nothing row-scoped); individual row
// failures are isolated into the summary.
func (o *Orchestrator) Run(ctx context.Context, rows []rowsource.Row) (*report.Summary, error) {
	if o.opts.Only != "" {
		rows = filterByDomain(rows, o.opts.Only)
		if len(rows) == 0 {
			return nil, forgeerr.Newf(forgeerr.ErrNotFound, "no row with domain %q", o.opts.Only)
		}
	}

	if err := os.MkdirAll(o.opts.OutputRoot, 0755); err != nil {
		return nil, forgeerr.Wrapf(err, forgeerr.ErrDirCreate,
			"failed to create output root %s", o.opts.OutputRoot)
	}

	var results []Result
	if o.opts.Parallel {
		results = o.runBatched(ctx, rows)
	} else {
		results = o.runSequential(ctx, rows)
	}

	outcomes := make([]report.RowOutcome, len(results))
	for i, r := range results {
		outcome := report.RowOutcome{
			Domain:   r.Domain,
			Success:  r.Success(),
			Duration: report.Duration(r.Duration),
		}
		if r.Success() {
			outcome.Path = r.Path
		} else if r.Err != nil {
			outcome.Error = r.Err.Error()
		}
		outcomes[i] = outcome
	}

	return report.New(outcomes), nil
}

// runSequential processes rows in strict index order, one at a time.
func (o *Orchestrator) runSequential(ctx context.Context, rows []rowsource.Row) []Result {
	results := make([]Result, len(rows))
	for i, row := range rows {
		results[i] = o.runRow(ctx, row)
	}
	return results
}

// runBatched processes rows in fixed-size batches. All rows of a batch run
// concurrently; the next batch starts only once every row of the current one
// is terminal. One row's failure never cancels its batch-mates.
func (o *Orchestrator) runBatched(ctx context.Context, rows []rowsource.Row) []Result {
	results := make([]Result, len(rows))
	size := o.opts.BatchSize

	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}

		o.logger.Info().
			Int("from", start+1).
			Int("to", end).
			Int("of", len(rows)).
			Msg("starting batch")

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = o.runRow(ctx, rows[i])
			}(i)
		}
		wg.Wait()
	}

	return results
}

// runRow walks one row through the state machine. The first failing step
// short-circuits to failed with that error; no step is retried and files
// already written stay on disk for inspection.
func (o *Orchestrator) runRow(ctx context.Context, row rowsource.Row) Result {
	start := time.Now()
	domain := row.Domain()
	dest := filepath.Join(o.opts.OutputRoot, finalize.Slug(domain))
	logger := o.logger.With().Str("domain", domain).Logger()

	state := StatePending
	fail := func(err error) Result {
		logger.Error().Err(err).Str("state", string(state)).Msg("row failed")
		return Result{Domain: domain, State: StateFailed, Err: err, Duration: time.Since(start)}
	}

	state = StateMaterializing
	logger.Info().Str("dest", dest).Msg("materializing")
	if err := materialize.Materialize(o.opts.TemplateDir, dest, o.opts.ExcludeDirs); err != nil {
		return fail(err)
	}

	state = StateSubstituting
	count, err := o.walker.Process(dest, row)
	if err != nil {
		return fail(err)
	}
	logger.Info().Int("files", count).Msg("substituted")

	state = StateFinalizing
	if err := finalize.Finalize(dest, domain); err != nil {
		return fail(err)
	}

	if !o.opts.SkipBuild {
		state = StateInstalling
		if _, err := o.driver.Install(ctx, dest); err != nil {
			return fail(err)
		}

		state = StateBuilding
		if _, err := o.driver.Build(ctx, dest); err != nil {
			return fail(err)
		}
	}

	state = StateSucceeded
	logger.Info().Dur("duration", time.Since(start)).Msg("row succeeded")
	return Result{Domain: domain, State: state, Path: dest, Duration: time.Since(start)}
}

// filterByDomain keeps only the row matching domain.
func filterByDomain(rows []rowsource.Row, domain string) []rowsource.Row {
	var out []rowsource.Row
	for _, row := range rows {
		if row.Domain() == domain {
			out = append(out, row)
		}
	}
	return out
}
