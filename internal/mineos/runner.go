package mineos

import (
	"context"
	"fmt"
	"slices"

	"github.com/seismic-data/dispersion.report/internal/config"
	"github.com/seismic-data/dispersion.report/internal/monitoring"
)

// Runner is the adaptive run-extension loop. It repeatedly invokes the
// solver with widened angular-order ranges until the accumulated results
// resolve the shortest requested period, or the run ceiling is hit.
type Runner struct {
	Port SolverPort
	Cfg  *config.SolverConfig
}

// RunSet is the ordered accumulation of productive solver invocations for
// one run identity. Attempts counts every invocation, including empty ones.
type RunSet struct {
	Records  []*RunRecord
	Attempts int
}

// Modes returns all accumulated mode records in production order: by
// increasing angular order within each invocation, and by invocation
// sequence across them. Overlapping angular orders at retry boundaries are
// not deduplicated here.
func (s *RunSet) Modes() []ModeRecord {
	var out []ModeRecord
	for _, r := range s.Records {
		out = append(out, r.Records...)
	}
	return out
}

// Run executes the extension loop for the given mode family and requested
// periods (seconds). The frequency ceiling is derived from the shortest
// requested period. On success the returned RunSet covers angular orders
// from the configured floor up to at least the order resolving that period.
func (r *Runner) Run(ctx context.Context, rc RunContext, mode ModeType, periods []float64) (*RunSet, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("no requested periods")
	}
	target := slices.Min(periods)
	if target <= 0 {
		return nil, fmt.Errorf("requested period %.3g s is not positive", target)
	}
	fmax := 1000/target + 1

	cfg := r.Cfg
	lmin := cfg.GetLMin()
	maxRuns := cfg.GetMaxRuns()
	set := &RunSet{}

	for attempt := 1; attempt <= maxRuns; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		job := ModeJob{
			Type:  mode,
			LMin:  lmin,
			LMax:  cfg.GetLMax(),
			FMin:  cfg.GetFMinMHz(),
			FMax:  fmax,
			Eps:   cfg.GetEps(),
			WGrav: cfg.GetWGrav(),
		}

		out, err := r.Port.Invoke(ctx, rc, job, set.Attempts)
		set.Attempts++
		if err != nil {
			return nil, err
		}

		if out.Empty {
			// The solver produced nothing in this window. Advance the
			// angular-order floor and retry; the attempt still counts
			// against the ceiling.
			monitoring.Logf("run %d empty at lmin=%d, advancing by %d", set.Attempts-1, lmin, cfg.GetLIncrementRetry())
			lmin += cfg.GetLIncrementRetry()
			continue
		}

		rec := out.Record
		set.Records = append(set.Records, rec)
		monitoring.Logf("run %d: l=[%d,%d], min period %.2f s (target %.2f s)",
			rec.Seq, rec.Summary.MinL, rec.Summary.MaxL, rec.Summary.MinPeriod, target)

		if rec.Summary.MinPeriod <= target {
			return set, nil
		}

		// lmin never decreases, even if the solver reports a lower MaxL
		// than the window floor we asked for.
		if next := rec.Summary.MaxL + cfg.GetLIncrementStandard(); next > lmin {
			lmin = next
		}
	}

	return nil, fmt.Errorf("%d attempts, shortest requested period %.2f s unresolved: %w", set.Attempts, target, ErrConvergence)
}
