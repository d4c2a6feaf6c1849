package mineos

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
)

// fakeRepairer records repair calls and materializes the output artifact.
type fakeRepairer struct {
	fs     fsutil.FileSystem
	calls  []int // max angular order per call
	failOn int   // seq that should fail, -1 for never
}

func (f *fakeRepairer) Repair(_ context.Context, _ RunContext, rec *RunRecord, outPath string) error {
	if f.failOn == rec.Seq {
		return fmt.Errorf("synthetic repair failure for run %d", rec.Seq)
	}
	f.calls = append(f.calls, rec.Summary.MaxL)
	return f.fs.WriteFile(outPath, []byte("repaired"), 0644)
}

func repairSet(t *testing.T, fs fsutil.FileSystem, rc RunContext, n int) *RunSet {
	t.Helper()
	set := &RunSet{}
	for i := 0; i < n; i++ {
		eig := rc.EigenPath(i)
		if err := fs.WriteFile(eig, []byte("raw"), 0644); err != nil {
			t.Fatal(err)
		}
		set.Records = append(set.Records, &RunRecord{
			Seq:       i,
			EigenPath: eig,
			Summary:   RunSummary{MaxL: 100 * (i + 1)},
		})
	}
	return set
}

func TestRepairAll_SkipsFinalRecord(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rc := NewRunContext("/work", "rep")
	set := repairSet(t, fs, rc, 3)

	rep := &fakeRepairer{fs: fs, failOn: -1}
	if err := RepairAll(context.Background(), rep, fs, rc, set); err != nil {
		t.Fatalf("RepairAll failed: %v", err)
	}

	// All but the last are repaired, keyed by their own max angular order.
	if len(rep.calls) != 2 || rep.calls[0] != 100 || rep.calls[1] != 200 {
		t.Errorf("repair calls = %v, want [100 200]", rep.calls)
	}
	if set.Records[0].RepairedPath != rc.RepairedPath(0) {
		t.Errorf("record 0 RepairedPath = %q", set.Records[0].RepairedPath)
	}
	if set.Records[2].RepairedPath != "" {
		t.Error("final record must not be repaired")
	}
	// The attenuation stage consumes the repaired artifact where one
	// exists and the raw artifact for the final record.
	if got := set.Records[1].CorrectedInput(); got != rc.RepairedPath(1) {
		t.Errorf("record 1 CorrectedInput = %q", got)
	}
	if got := set.Records[2].CorrectedInput(); got != rc.EigenPath(2) {
		t.Errorf("record 2 CorrectedInput = %q", got)
	}
}

func TestRepairAll_SingleRecordNeedsNoRepair(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rc := NewRunContext("/work", "single")
	set := repairSet(t, fs, rc, 1)

	rep := &fakeRepairer{fs: fs, failOn: -1}
	if err := RepairAll(context.Background(), rep, fs, rc, set); err != nil {
		t.Fatalf("RepairAll failed: %v", err)
	}
	if len(rep.calls) != 0 {
		t.Errorf("single-record set should need no repairs, got %d", len(rep.calls))
	}
}

func TestRepairAll_ReusesFreshArtifact(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rc := NewRunContext("/work", "fresh")
	set := repairSet(t, fs, rc, 2)

	// Pre-materialize the repaired artifact after the raw one so it is
	// at least as new.
	if err := fs.WriteFile(rc.RepairedPath(0), []byte("already repaired"), 0644); err != nil {
		t.Fatal(err)
	}

	rep := &fakeRepairer{fs: fs, failOn: -1}
	if err := RepairAll(context.Background(), rep, fs, rc, set); err != nil {
		t.Fatalf("RepairAll failed: %v", err)
	}
	if len(rep.calls) != 0 {
		t.Error("fresh repaired artifact should be reused, not rebuilt")
	}
	if set.Records[0].RepairedPath != rc.RepairedPath(0) {
		t.Error("reused artifact must still be recorded on the RunRecord")
	}
}

func TestRepairAll_PropagatesFailure(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rc := NewRunContext("/work", "fail")
	set := repairSet(t, fs, rc, 3)

	rep := &fakeRepairer{fs: fs, failOn: 1}
	err := RepairAll(context.Background(), rep, fs, rc, set)
	if !errors.Is(err, ErrRepair) {
		t.Fatalf("expected ErrRepair, got %v", err)
	}
}
