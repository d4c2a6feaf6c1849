package mineos

import (
	"context"
	_ "embed"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
	"github.com/seismic-data/dispersion.report/internal/monitoring"
)

// Default attenuation model applied when the caller supplies none.
// PREM-derived radial Q profile, no ocean.
//
//go:embed prem_noocean.qmod
var defaultQModel string

// QCorrector applies a radial attenuation model to the accumulated
// eigenfunction artifacts in one combined pass, producing a single merged
// dispersion artifact.
type QCorrector interface {
	Correct(ctx context.Context, rc RunContext, qmodPath string, inputs []string) error
}

// EnsureQModel resolves the attenuation model for a computation: a
// caller-supplied path is used as-is, otherwise the embedded default is
// materialized into the run's namespace.
func EnsureQModel(fs fsutil.FileSystem, rc RunContext, callerPath string) (string, error) {
	if callerPath != "" {
		return callerPath, nil
	}
	path := rc.QModelPath()
	if fs.Exists(path) {
		return path, nil
	}
	if err := fs.WriteFile(path, []byte(defaultQModel), 0644); err != nil {
		return "", fmt.Errorf("write default q model: %w", err)
	}
	return path, nil
}

// CorrectAll runs the attenuation pass over the whole run set. Inputs are
// the repaired artifacts in production order, with the final record's raw
// artifact standing in for itself. The merged dispersion artifact must
// exist afterwards.
func CorrectAll(ctx context.Context, qc QCorrector, fs fsutil.FileSystem, rc RunContext, set *RunSet, qmodPath string) error {
	if len(set.Records) == 0 {
		return fmt.Errorf("no solver runs to correct: %w", ErrQCorrection)
	}
	inputs := make([]string, 0, len(set.Records))
	for _, rec := range set.Records {
		inputs = append(inputs, rec.CorrectedInput())
	}

	if err := qc.Correct(ctx, rc, qmodPath, inputs); err != nil {
		return fmt.Errorf("%v: %w", err, ErrQCorrection)
	}
	if !fs.Exists(rc.DispersionPath()) {
		return fmt.Errorf("no merged dispersion artifact at %s: %w", rc.DispersionPath(), ErrQCorrection)
	}
	monitoring.Logf("attenuation pass merged %d artifacts into %s", len(inputs), rc.DispersionPath())
	return nil
}

// ExecQCorrector drives the external attenuation-correction binary. The
// invocation file names the attenuation model, the output dispersion
// filename, and the full ordered list of eigenfunction artifacts.
type ExecQCorrector struct {
	FS      fsutil.FileSystem
	Binary  string
	Timeout time.Duration
}

// NewExecQCorrector builds a corrector around the given binary.
func NewExecQCorrector(binary string, timeout time.Duration) *ExecQCorrector {
	return &ExecQCorrector{FS: fsutil.OSFileSystem{}, Binary: binary, Timeout: timeout}
}

// Correct runs the single combined correction pass.
func (q *ExecQCorrector) Correct(ctx context.Context, rc RunContext, qmodPath string, inputs []string) error {
	jobPath := rc.QJobPath()
	var b strings.Builder
	b.WriteString(qmodPath + "\n")
	b.WriteString(rc.DispersionPath() + "\n")
	for _, in := range inputs {
		b.WriteString(in + "\n")
	}
	b.WriteString("0\n")
	if err := q.FS.WriteFile(jobPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write correction invocation: %w", err)
	}
	defer func() { _ = q.FS.Remove(jobPath) }()

	runCtx, cancel := context.WithTimeout(ctx, q.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, q.Binary)
	cmd.Stdin = strings.NewReader(b.String())
	cmd.Dir = rc.WorkDir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("correction binary: %v", err)
	}
	return nil
}
