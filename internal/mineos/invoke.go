package mineos

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
	"github.com/seismic-data/dispersion.report/internal/monitoring"
)

// ExecAdapter is the production SolverPort: it drives the external
// normal-mode binary through its file protocol. Each invocation writes a
// job description and an execution wrapper, runs the binary under a hard
// wall-clock timeout, then scans the results file. Job and wrapper files
// are transient and removed afterwards; results and eigenfunction
// artifacts are retained for the downstream stages.
type ExecAdapter struct {
	FS          fsutil.FileSystem
	Binary      string
	Timeout     time.Duration
	HeaderLines int // results header length, model layer count + 5
}

// NewExecAdapter builds an adapter for a model with the given layer count.
func NewExecAdapter(binary string, timeout time.Duration, layerCount int) *ExecAdapter {
	return &ExecAdapter{
		FS:          fsutil.OSFileSystem{},
		Binary:      binary,
		Timeout:     timeout,
		HeaderLines: ResultsHeaderLines(layerCount),
	}
}

// Invoke runs the solver for one job. A completed run that resolved no
// modes returns an Empty outcome; a timeout or crash is fatal.
func (a *ExecAdapter) Invoke(ctx context.Context, rc RunContext, job ModeJob, seq int) (RunOutcome, error) {
	jobPath := rc.JobPath(seq)
	wrapperPath := rc.WrapperPath(seq)
	resultsPath := rc.ResultsPath(seq)
	eigenPath := rc.EigenPath(seq)

	if err := a.FS.WriteFile(jobPath, []byte(job.Encode()), 0644); err != nil {
		return RunOutcome{}, fmt.Errorf("write job file: %w", err)
	}
	wrapper := strings.Join([]string{
		rc.CardPath(),
		resultsPath,
		eigenPath,
		jobPath,
		rc.LogPath(seq),
	}, "\n") + "\n"
	if err := a.FS.WriteFile(wrapperPath, []byte(wrapper), 0644); err != nil {
		return RunOutcome{}, fmt.Errorf("write execution wrapper: %w", err)
	}
	defer func() {
		// Transient per-invocation inputs; ignore cleanup failures.
		_ = a.FS.Remove(jobPath)
		_ = a.FS.Remove(wrapperPath)
	}()

	runCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.Binary)
	cmd.Stdin = strings.NewReader(wrapper)
	cmd.Dir = rc.WorkDir

	monitoring.Logf("solver run %d: l=[%d,%d] f=[%.3g,%.3g] mHz", seq, job.LMin, job.LMax, job.FMin, job.FMax)
	start := time.Now()
	err := cmd.Run()
	// Distinguish the caller giving up from the solver running out of
	// time: a canceled parent context is not a solver failure.
	if ctx.Err() != nil {
		return RunOutcome{}, fmt.Errorf("run %d: %w", seq, context.Cause(ctx))
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return RunOutcome{}, fmt.Errorf("run %d killed after %s: %w", seq, a.Timeout, ErrSolverTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return RunOutcome{}, fmt.Errorf("run %d exit code %d: %w", seq, exitErr.ExitCode(), ErrSolverCrash)
		}
		return RunOutcome{}, fmt.Errorf("run %d: %v: %w", seq, err, ErrSolverCrash)
	}
	monitoring.Logf("solver run %d finished in %s", seq, time.Since(start).Round(time.Millisecond))

	records, summary, err := ScanResults(a.FS, resultsPath, a.HeaderLines)
	if err != nil {
		return RunOutcome{}, err
	}
	if summary == nil {
		return RunOutcome{Empty: true}, nil
	}

	return RunOutcome{Record: &RunRecord{
		Seq:         seq,
		Job:         job,
		EigenPath:   eigenPath,
		ResultsPath: resultsPath,
		Summary:     *summary,
		Records:     records,
	}}, nil
}
