package mineos

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/seismic-data/dispersion.report/internal/config"
	"github.com/seismic-data/dispersion.report/internal/earthmodel"
	"github.com/seismic-data/dispersion.report/internal/fsutil"
	"github.com/seismic-data/dispersion.report/internal/runstore"
)

// e2ePort is a full synthetic solver: it materializes the artifacts a real
// invocation would leave behind and reports a fundamental-branch summary
// claiming minPeriod was reached, so one invocation satisfies the loop.
type e2ePort struct {
	fs        fsutil.FileSystem
	minPeriod float64
}

func (p *e2ePort) Invoke(_ context.Context, rc RunContext, job ModeJob, seq int) (RunOutcome, error) {
	eig := rc.EigenPath(seq)
	results := rc.ResultsPath(seq)
	if err := p.fs.WriteFile(eig, []byte("eigenfunctions"), 0644); err != nil {
		return RunOutcome{}, err
	}
	if err := p.fs.WriteFile(results, []byte("results"), 0644); err != nil {
		return RunOutcome{}, err
	}

	records := []ModeRecord{
		{N: 0, Type: job.Type, L: 80, WmHz: 10, Period: 100, GroupV: 3.9},
		{N: 0, Type: job.Type, L: 170, WmHz: 20, Period: 50, GroupV: 3.7},
		{N: 0, Type: job.Type, L: 440, WmHz: 50, Period: 20, GroupV: 3.1},
	}
	return RunOutcome{Record: &RunRecord{
		Seq:         seq,
		Job:         job,
		EigenPath:   eig,
		ResultsPath: results,
		Summary:     RunSummary{MinL: 80, MaxL: 440, MinPeriod: p.minPeriod},
		Records:     records,
	}}, nil
}

// e2eQCorrector emits a plausible merged dispersion file spanning the
// requested periods.
type e2eQCorrector struct {
	fs fsutil.FileSystem
}

func (q *e2eQCorrector) Correct(_ context.Context, rc RunContext, _ string, _ []string) error {
	merged := `0 550 0.419 66.667 15.000 3.300 2.900 150.0 57823.0
0 440 0.314 50.000 20.000 3.500 3.100 150.0 57823.0
0 170 0.126 20.000 50.000 3.900 3.700 150.0 57823.0
0 80 0.063 10.000 100.000 4.200 3.900 150.0 57823.0
0 55 0.042 6.667 150.000 4.400 4.000 150.0 57823.0
`
	return q.fs.WriteFile(rc.DispersionPath(), []byte(merged), 0644)
}

func TestDriver_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	rc := NewRunContext(dir, "e2e")
	fs := fsutil.OSFileSystem{}

	model, err := earthmodel.Build("e2e_crust", earthmodel.Profile{
		Points: []earthmodel.ProfilePoint{
			{Depth: 0, Vs: 3.2, Vp: 5.8, Rho: 2.6},
			{Depth: 35, Vs: 3.2, Vp: 5.8, Rho: 2.6},
			{Depth: 35, Vs: 4.5, Vp: 8.1, Rho: 3.4},
			{Depth: 200, Vs: 4.6, Vp: 8.2, Rho: 3.4},
		},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	db, err := runstore.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	defer db.Close()

	d := &Driver{
		Cfg:        config.EmptySolverConfig(),
		FS:         fs,
		Port:       &e2ePort{fs: fs, minPeriod: 20},
		Repairer:   &fakeRepairer{fs: fs, failOn: -1},
		QCorrector: &e2eQCorrector{fs: fs},
		Store:      runstore.NewRunStore(db),
	}

	periods := []float64{20, 50, 100}
	res, err := d.ComputeDispersion(context.Background(), rc, model, Spherical, periods)
	if err != nil {
		t.Fatalf("ComputeDispersion failed: %v", err)
	}

	// One productive invocation was enough.
	if len(res.Runs.Records) != 1 || res.Runs.Attempts != 1 {
		t.Errorf("runs = %d (attempts %d), want 1 (1)", len(res.Runs.Records), res.Runs.Attempts)
	}
	if res.Coverage != nil {
		t.Errorf("unexpected coverage warning: %v", res.Coverage)
	}
	for _, p := range periods {
		v := res.Velocities[p]
		if math.IsNaN(v.Phase) || math.IsNaN(v.Group) {
			t.Errorf("period %.0f s: got NaN velocities", p)
		}
	}
	// Exact knots from the merged file survive interpolation.
	if got := res.Velocities[50].Phase; math.Abs(got-3.9) > 1e-9 {
		t.Errorf("phase at 50 s = %f, want 3.9", got)
	}

	// The artifact bundle is what the kernel pipeline consumes.
	if res.Bundle.DispersionPath != rc.DispersionPath() {
		t.Errorf("bundle dispersion path = %q", res.Bundle.DispersionPath)
	}
	if len(res.Bundle.EigenPaths) != 1 || res.Bundle.EigenPaths[0] != rc.EigenPath(0) {
		t.Errorf("bundle eigen paths = %v", res.Bundle.EigenPaths)
	}
	if !fs.Exists(rc.CardPath()) {
		t.Error("model card must be retained in the run namespace")
	}

	// The run store recorded the computation.
	store := runstore.NewRunStore(db)
	run, err := store.GetRun(rc.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != "completed" {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	solverRuns, err := store.ListSolverRuns(rc.ID)
	if err != nil {
		t.Fatalf("ListSolverRuns failed: %v", err)
	}
	if len(solverRuns) != 1 || solverRuns[0].MinPeriod != 20 {
		t.Errorf("solver runs = %+v", solverRuns)
	}
	n, err := store.CountModeRecords(rc.ID)
	if err != nil || n != 3 {
		t.Errorf("mode records = %d (%v), want 3", n, err)
	}
}

func TestDriver_CardInputUsedVerbatim(t *testing.T) {
	dir := t.TempDir()
	rc := NewRunContext(dir, "card")
	fs := fsutil.OSFileSystem{}

	// Velocities carry more precision than the card writer's two decimals;
	// the bytes reaching the solver must be exactly the caller's.
	card := `handmade
  1   -1   1
  2   0   0
      0.  2600.00  5800.12345  3200.54321  57823.0    600.0  5800.12345  3200.54321  1.00000
6371000.  2600.00  5800.12345  3200.54321  57823.0    600.0  5800.12345  3200.54321  1.00000
`
	src := filepath.Join(dir, "handmade.card")
	if err := fs.WriteFile(src, []byte(card), 0644); err != nil {
		t.Fatal(err)
	}

	d := &Driver{
		Cfg:        config.EmptySolverConfig(),
		FS:         fs,
		Port:       &e2ePort{fs: fs, minPeriod: 20},
		Repairer:   &fakeRepairer{fs: fs, failOn: -1},
		QCorrector: &e2eQCorrector{fs: fs},
	}

	res, err := d.ComputeDispersionFromCard(context.Background(), rc, src, Spherical, []float64{20, 50})
	if err != nil {
		t.Fatalf("ComputeDispersionFromCard failed: %v", err)
	}

	got, err := fs.ReadFile(rc.CardPath())
	if err != nil {
		t.Fatalf("read staged card: %v", err)
	}
	if string(got) != card {
		t.Errorf("staged card was rewritten:\n%s", got)
	}
	for _, p := range []float64{20, 50} {
		if math.IsNaN(res.Velocities[p].Phase) {
			t.Errorf("period %.0f s: got NaN velocities", p)
		}
	}
}

func TestDriver_CardInputRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	rc := NewRunContext(dir, "badcard")
	fs := fsutil.OSFileSystem{}

	src := filepath.Join(dir, "truncated.card")
	if err := fs.WriteFile(src, []byte("name\n  1   -1   1\n  5   0   0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d := &Driver{
		Cfg:        config.EmptySolverConfig(),
		FS:         fs,
		Port:       &e2ePort{fs: fs, minPeriod: 20},
		Repairer:   &fakeRepairer{fs: fs, failOn: -1},
		QCorrector: &e2eQCorrector{fs: fs},
	}

	if _, err := d.ComputeDispersionFromCard(context.Background(), rc, src, Spherical, []float64{20}); err == nil {
		t.Error("expected an error for a truncated card")
	}
}

func TestDriver_CoverageWarningIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	rc := NewRunContext(dir, "partial")
	fs := fsutil.OSFileSystem{}

	model, err := earthmodel.Build("partial_crust", earthmodel.Profile{
		Points: []earthmodel.ProfilePoint{
			{Depth: 0, Vs: 3.2, Vp: 5.8, Rho: 2.6},
			{Depth: 150, Vs: 4.5, Vp: 8.1, Rho: 3.4},
		},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	d := &Driver{
		Cfg:        config.EmptySolverConfig(),
		FS:         fs,
		// The solver claims 5 s coverage, but the merged curve bottoms out
		// at 15 s; the gap surfaces as a warning, not a failure.
		Port:       &e2ePort{fs: fs, minPeriod: 5},
		Repairer:   &fakeRepairer{fs: fs, failOn: -1},
		QCorrector: &e2eQCorrector{fs: fs},
	}

	res, err := d.ComputeDispersion(context.Background(), rc, model, Spherical, []float64{5, 50})
	if err != nil {
		t.Fatalf("a coverage gap must not fail the computation: %v", err)
	}
	if res.Coverage == nil {
		t.Fatal("expected a coverage warning")
	}
	if !math.IsNaN(res.Velocities[5].Phase) {
		t.Error("uncovered period must be NaN")
	}
	if math.IsNaN(res.Velocities[50].Phase) {
		t.Error("covered period must be interpolated")
	}
}
