package mineos

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
	"github.com/seismic-data/dispersion.report/internal/monitoring"
)

// Repairer rebuilds one raw eigenfunction artifact into its usable form.
// The solver truncates the internal tables of every run it is asked to
// extend, so each accumulated artifact except the final one needs an
// explicit repair pass keyed by the maximum angular order that run reached.
type Repairer interface {
	Repair(ctx context.Context, rc RunContext, rec *RunRecord, outPath string) error
}

// RepairAll repairs every record in the set except the last, whose
// eigenfunction content is already complete. A repaired artifact that
// already exists and is newer than its source is reused rather than
// rebuilt. On success each repaired record's RepairedPath is set.
func RepairAll(ctx context.Context, rep Repairer, fs fsutil.FileSystem, rc RunContext, set *RunSet) error {
	for i, rec := range set.Records {
		if i == len(set.Records)-1 {
			break
		}
		out := rc.RepairedPath(rec.Seq)
		if fresh(fs, rec.EigenPath, out) {
			monitoring.Logf("repair run %d: %s up to date", rec.Seq, out)
			rec.RepairedPath = out
			continue
		}
		if err := rep.Repair(ctx, rc, rec, out); err != nil {
			return fmt.Errorf("run %d: %v: %w", rec.Seq, err, ErrRepair)
		}
		rec.RepairedPath = out
	}
	return nil
}

// fresh reports whether out exists and is at least as new as src.
func fresh(fs fsutil.FileSystem, src, out string) bool {
	oi, err := fs.Stat(out)
	if err != nil {
		return false
	}
	si, err := fs.Stat(src)
	if err != nil {
		return false
	}
	return !oi.ModTime().Before(si.ModTime())
}

// ExecRepairer drives the external eigenfunction repair binary. The
// invocation file names the target artifact, the output artifact, and the
// maximum angular order to repair to.
type ExecRepairer struct {
	FS      fsutil.FileSystem
	Binary  string
	Timeout time.Duration
}

// NewExecRepairer builds a repairer around the given binary.
func NewExecRepairer(binary string, timeout time.Duration) *ExecRepairer {
	return &ExecRepairer{FS: fsutil.OSFileSystem{}, Binary: binary, Timeout: timeout}
}

// Repair runs one repair invocation.
func (r *ExecRepairer) Repair(ctx context.Context, rc RunContext, rec *RunRecord, outPath string) error {
	jobPath := rc.RepairJobPath(rec.Seq)
	job := fmt.Sprintf("%s\n%s\n%d\n", rec.EigenPath, outPath, rec.Summary.MaxL)
	if err := r.FS.WriteFile(jobPath, []byte(job), 0644); err != nil {
		return fmt.Errorf("write repair invocation: %w", err)
	}
	defer func() { _ = r.FS.Remove(jobPath) }()

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Binary)
	cmd.Stdin = strings.NewReader(job)
	cmd.Dir = rc.WorkDir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("repair binary: %v", err)
	}
	if !r.FS.Exists(outPath) {
		return fmt.Errorf("repair produced no artifact at %s", outPath)
	}
	return nil
}
