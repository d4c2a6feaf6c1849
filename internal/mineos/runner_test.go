package mineos

import (
	"context"
	"errors"
	"testing"

	"github.com/seismic-data/dispersion.report/internal/config"
)

func intPtr(v int) *int { return &v }

// stubPort scripts solver outcomes for the extension loop without any
// external process. It returns Empty for the first emptyBefore calls, then
// productive records whose reported minimum period starts at firstPeriod
// and drops by periodStep per productive call.
type stubPort struct {
	emptyBefore int
	firstPeriod float64
	periodStep  float64
	lSpan       int

	jobs       []ModeJob
	productive int
}

func (s *stubPort) Invoke(_ context.Context, _ RunContext, job ModeJob, seq int) (RunOutcome, error) {
	s.jobs = append(s.jobs, job)
	if len(s.jobs) <= s.emptyBefore {
		return RunOutcome{Empty: true}, nil
	}

	period := s.firstPeriod - float64(s.productive)*s.periodStep
	s.productive++
	span := s.lSpan
	if span == 0 {
		span = 40
	}
	return RunOutcome{Record: &RunRecord{
		Seq: seq,
		Job: job,
		Summary: RunSummary{
			MinL:      job.LMin,
			MaxL:      job.LMin + span,
			MinPeriod: period,
		},
	}}, nil
}

func newRunner(port SolverPort, cfg *config.SolverConfig) *Runner {
	if cfg == nil {
		cfg = config.EmptySolverConfig()
	}
	return &Runner{Port: port, Cfg: cfg}
}

func TestRunner_FirstCallSatisfies(t *testing.T) {
	port := &stubPort{firstPeriod: 20}
	r := newRunner(port, nil)

	set, err := r.Run(context.Background(), NewRunContext(t.TempDir(), "one"), Spherical, []float64{20, 50, 100})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(set.Records) != 1 {
		t.Errorf("got %d records, want 1", len(set.Records))
	}
	if set.Attempts != 1 {
		t.Errorf("got %d attempts, want 1", set.Attempts)
	}
	// The frequency ceiling derives from the shortest requested period.
	wantFMax := 1000.0/20 + 1
	if port.jobs[0].FMax != wantFMax {
		t.Errorf("job FMax = %f, want %f", port.jobs[0].FMax, wantFMax)
	}
	if port.jobs[0].LMin != 0 || port.jobs[0].LMax != 3500 {
		t.Errorf("first job l range = [%d,%d], want [0,3500]", port.jobs[0].LMin, port.jobs[0].LMax)
	}
}

func TestRunner_EmptyRunsAdvanceFloor(t *testing.T) {
	const emptyRuns = 3
	port := &stubPort{emptyBefore: emptyRuns, firstPeriod: 20}
	r := newRunner(port, nil)

	set, err := r.Run(context.Background(), NewRunContext(t.TempDir(), "retry"), Spherical, []float64{20})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Each empty attempt advances lmin by the after-failure increment.
	for i := 0; i <= emptyRuns; i++ {
		want := i * 5
		if port.jobs[i].LMin != want {
			t.Errorf("attempt %d lmin = %d, want %d", i, port.jobs[i].LMin, want)
		}
	}
	// Empty attempts count against the ceiling.
	if set.Attempts != emptyRuns+1 {
		t.Errorf("attempts = %d, want %d", set.Attempts, emptyRuns+1)
	}
	if len(set.Records) != 1 {
		t.Errorf("records = %d, want 1", len(set.Records))
	}
}

func TestRunner_CeilingEnforced(t *testing.T) {
	const ceiling = 6
	port := &stubPort{emptyBefore: 1 << 30}
	cfg := &config.SolverConfig{MaxRuns: intPtr(ceiling)}
	r := newRunner(port, cfg)

	_, err := r.Run(context.Background(), NewRunContext(t.TempDir(), "stall"), Toroidal, []float64{20})
	if !errors.Is(err, ErrConvergence) {
		t.Fatalf("expected ErrConvergence, got %v", err)
	}
	if len(port.jobs) != ceiling {
		t.Errorf("solver invoked %d times, want exactly %d", len(port.jobs), ceiling)
	}
}

func TestRunner_ExtendsFromMaxReached(t *testing.T) {
	// Two productive runs needed: the first resolves only 60 s, the winner
	// resolves 20 s.
	port := &stubPort{firstPeriod: 60, periodStep: 40, lSpan: 100}
	r := newRunner(port, nil)

	set, err := r.Run(context.Background(), NewRunContext(t.TempDir(), "extend"), Spherical, []float64{20, 50})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(set.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(set.Records))
	}
	// Second window starts just past the first window's achieved ceiling.
	first, second := port.jobs[0], port.jobs[1]
	wantLMin := set.Records[0].Summary.MaxL + 2
	if second.LMin != wantLMin {
		t.Errorf("second lmin = %d, want %d", second.LMin, wantLMin)
	}
	if second.LMin < first.LMin {
		t.Error("lmin must be non-decreasing across iterations")
	}
}

func TestRunner_ModesAccumulateInProductionOrder(t *testing.T) {
	set := &RunSet{Records: []*RunRecord{
		{Seq: 0, Records: []ModeRecord{{L: 10, Period: 80}, {L: 12, Period: 70}}},
		// Overlapping angular order at the retry boundary stays duplicated.
		{Seq: 1, Records: []ModeRecord{{L: 12, Period: 70}, {L: 14, Period: 60}}},
	}}

	modes := set.Modes()
	if len(modes) != 4 {
		t.Fatalf("modes = %d, want 4 (no dedup at this layer)", len(modes))
	}
	wantL := []int{10, 12, 12, 14}
	for i, m := range modes {
		if m.L != wantL[i] {
			t.Errorf("mode %d has l=%d, want %d", i, m.L, wantL[i])
		}
	}
}

func TestRunner_RejectsEmptyPeriods(t *testing.T) {
	r := newRunner(&stubPort{}, nil)
	if _, err := r.Run(context.Background(), NewRunContext(t.TempDir(), "x"), Spherical, nil); err == nil {
		t.Error("expected error for empty period list")
	}
	if _, err := r.Run(context.Background(), NewRunContext(t.TempDir(), "y"), Spherical, []float64{0}); err == nil {
		t.Error("expected error for non-positive period")
	}
}

func TestRunner_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	port := &stubPort{emptyBefore: 1 << 30}
	r := newRunner(port, nil)
	if _, err := r.Run(ctx, NewRunContext(t.TempDir(), "z"), Spherical, []float64{20}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
