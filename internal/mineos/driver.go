package mineos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seismic-data/dispersion.report/internal/config"
	"github.com/seismic-data/dispersion.report/internal/dispersion"
	"github.com/seismic-data/dispersion.report/internal/earthmodel"
	"github.com/seismic-data/dispersion.report/internal/fsutil"
	"github.com/seismic-data/dispersion.report/internal/kernels"
	"github.com/seismic-data/dispersion.report/internal/monitoring"
	"github.com/seismic-data/dispersion.report/internal/runstore"
)

// Driver runs the full dispersion pipeline for one run identity: model
// preparation, the adaptive extension loop, eigenfunction repair, the
// attenuation pass, and velocity extraction. Stages execute strictly in
// sequence; every stage consumes artifacts the previous one left in the
// run's namespace.
type Driver struct {
	Cfg *config.SolverConfig
	FS  fsutil.FileSystem

	// Port, Repairer and QCorrector may be replaced for testing. A nil
	// Port gets an ExecAdapter sized to the model at compute time.
	Port       SolverPort
	Repairer   Repairer
	QCorrector QCorrector

	// Store, when set, receives run bookkeeping. QModelPath, when set,
	// overrides the embedded attenuation model.
	Store      *runstore.RunStore
	QModelPath string
}

// NewDriver wires a production driver from configuration.
func NewDriver(cfg *config.SolverConfig) *Driver {
	return &Driver{
		Cfg:        cfg,
		FS:         fsutil.OSFileSystem{},
		Repairer:   NewExecRepairer(cfg.GetRepairBinary(), cfg.GetSolverTimeout()),
		QCorrector: NewExecQCorrector(cfg.GetQCorrectBinary(), cfg.GetSolverTimeout()),
	}
}

// Result is a completed dispersion computation. Velocities maps each
// requested period to its interpolated phase/group pair (NaN outside
// coverage). Coverage is non-nil when any requested period was uncovered;
// the result is still usable. Bundle lists the retained artifacts in the
// form the kernel pipeline consumes.
type Result struct {
	Velocities map[float64]dispersion.Velocities
	Bundle     kernels.ArtifactBundle
	Runs       *RunSet
	Coverage   *dispersion.CoverageWarning
}

// ComputeDispersion runs the pipeline end to end for an in-memory model.
func (d *Driver) ComputeDispersion(ctx context.Context, rc RunContext, model *earthmodel.RadialModel, mode ModeType, periods []float64) (result *Result, err error) {
	fs := d.FS
	if err := fs.MkdirAll(rc.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	d.beginRun(rc, mode)
	defer func() { d.finishRun(rc, err) }()

	// Write the card and parse it back: the parsed layer count fixes the
	// results-file header length for every invocation of this run.
	if err := earthmodel.WriteCard(fs, rc.CardPath(), model); err != nil {
		return nil, err
	}
	parsed, err := earthmodel.ParseCard(fs, rc.CardPath())
	if err != nil {
		return nil, err
	}
	return d.pipeline(ctx, rc, parsed.LayerCount(), mode, periods)
}

// ComputeDispersionFromCard runs the pipeline for an existing layered-model
// card. The card bytes are copied into the run's namespace unmodified; it is
// parsed back only to learn the layer count, never re-serialized, so the
// solver sees exactly what the caller supplied.
func (d *Driver) ComputeDispersionFromCard(ctx context.Context, rc RunContext, cardPath string, mode ModeType, periods []float64) (result *Result, err error) {
	fs := d.FS
	if err := fs.MkdirAll(rc.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	d.beginRun(rc, mode)
	defer func() { d.finishRun(rc, err) }()

	if cardPath != rc.CardPath() {
		data, rerr := fs.ReadFile(cardPath)
		if rerr != nil {
			return nil, fmt.Errorf("read card %s: %w", cardPath, rerr)
		}
		if werr := fs.WriteFile(rc.CardPath(), data, 0644); werr != nil {
			return nil, fmt.Errorf("copy card into run namespace: %w", werr)
		}
	}
	parsed, err := earthmodel.ParseCard(fs, rc.CardPath())
	if err != nil {
		return nil, err
	}
	return d.pipeline(ctx, rc, parsed.LayerCount(), mode, periods)
}

// pipeline runs the stages downstream of model preparation. The card is
// already in place at rc.CardPath().
func (d *Driver) pipeline(ctx context.Context, rc RunContext, layerCount int, mode ModeType, periods []float64) (*Result, error) {
	fs := d.FS
	port := d.Port
	if port == nil {
		adapter := NewExecAdapter(d.Cfg.GetSolverBinary(), d.Cfg.GetSolverTimeout(), layerCount)
		adapter.FS = fs
		port = adapter
	}

	runner := &Runner{Port: port, Cfg: d.Cfg}
	set, err := runner.Run(ctx, rc, mode, periods)
	if err != nil {
		return nil, err
	}
	d.recordRuns(rc, set)

	if err := RepairAll(ctx, d.Repairer, fs, rc, set); err != nil {
		return nil, err
	}

	qmod, err := EnsureQModel(fs, rc, d.QModelPath)
	if err != nil {
		return nil, err
	}
	if err := CorrectAll(ctx, d.QCorrector, fs, rc, set, qmod); err != nil {
		return nil, err
	}

	curve, err := dispersion.ParseCurve(fs, rc.DispersionPath())
	if err != nil {
		return nil, err
	}
	velocities, coverage, err := curve.Interpolate(periods)
	if err != nil {
		return nil, err
	}
	if coverage != nil {
		monitoring.Logf("%v", coverage)
	}

	inputs := make([]string, 0, len(set.Records))
	for _, rec := range set.Records {
		inputs = append(inputs, rec.CorrectedInput())
	}

	return &Result{
		Velocities: velocities,
		Bundle: kernels.ArtifactBundle{
			EigenPaths:     inputs,
			DispersionPath: rc.DispersionPath(),
			Periods:        periods,
		},
		Runs:     set,
		Coverage: coverage,
	}, nil
}

// beginRun opens the run's bookkeeping record when a store is attached.
// Store failures are reported but never abort the computation.
func (d *Driver) beginRun(rc RunContext, mode ModeType) {
	if d.Store == nil {
		return
	}
	params, err := json.Marshal(d.Cfg)
	if err != nil {
		params = []byte("{}")
	}
	if serr := d.Store.CreateRun(rc.ID, mode.String(), string(params)); serr != nil {
		monitoring.Logf("run store: %v", serr)
	}
}

// finishRun closes the run's bookkeeping record with the computation's
// outcome.
func (d *Driver) finishRun(rc RunContext, err error) {
	if d.Store == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if serr := d.Store.CompleteRun(rc.ID, msg); serr != nil {
		monitoring.Logf("run store: %v", serr)
	}
}

// recordRuns persists invocation summaries and mode records when a store is
// attached. Store failures are reported but never abort the computation.
func (d *Driver) recordRuns(rc RunContext, set *RunSet) {
	if d.Store == nil {
		return
	}
	for _, rec := range set.Records {
		sr := runstore.SolverRun{
			RunID:       rc.ID,
			Seq:         rec.Seq,
			LMin:        rec.Job.LMin,
			LMax:        rec.Job.LMax,
			MaxLReached: rec.Summary.MaxL,
			MinLReached: rec.Summary.MinL,
			MinPeriod:   rec.Summary.MinPeriod,
			EigenPath:   rec.EigenPath,
			ResultsPath: rec.ResultsPath,
		}
		if err := d.Store.RecordSolverRun(sr); err != nil {
			monitoring.Logf("run store: %v", err)
			continue
		}
		rows := make([]runstore.ModeRow, 0, len(rec.Records))
		for _, m := range rec.Records {
			rows = append(rows, runstore.ModeRow{
				Seq: rec.Seq, N: m.N, Type: m.Type.String(), L: m.L,
				WmHz: m.WmHz, Period: m.Period, GroupV: m.GroupV,
			})
		}
		if err := d.Store.InsertModeRecords(rc.ID, rows); err != nil {
			monitoring.Logf("run store: %v", err)
		}
	}
}
