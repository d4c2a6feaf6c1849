package mineos

import "context"

// ModeRecord is one parsed line of solver results: a single normal mode.
type ModeRecord struct {
	N      int      // radial order
	Type   ModeType // oscillation family
	L      int      // angular order
	WRad   float64  // angular frequency, rad/s
	WmHz   float64  // frequency, mHz
	Period float64  // s
	GroupV float64  // group velocity, km/s
	QMu    float64
	QKappa float64
}

// RunSummary is what the extension loop needs from one productive solver
// invocation: the angular-order span actually achieved and the shortest
// period resolved.
type RunSummary struct {
	MaxL      int
	MinL      int
	MinPeriod float64
}

// RunRecord captures one productive solver invocation: the job that was
// submitted, the retained artifacts, the scanned summary, and the parsed
// mode records in file order. Seq is the invocation's position within the
// run; artifact roles are explicit fields, never derived from filename
// suffixes.
type RunRecord struct {
	Seq         int
	Job         ModeJob
	EigenPath   string
	ResultsPath string
	// RepairedPath is set by the repair stage once a usable eigenfunction
	// artifact exists for this record.
	RepairedPath string
	Summary      RunSummary
	Records      []ModeRecord
}

// CorrectedInput returns the eigenfunction artifact the attenuation stage
// should consume for this record: the repaired artifact when one exists,
// otherwise the raw one.
func (r *RunRecord) CorrectedInput() string {
	if r.RepairedPath != "" {
		return r.RepairedPath
	}
	return r.EigenPath
}

// RunOutcome is the tagged result of one invocation-and-scan step. A run
// that completed but resolved no modes is Empty — the retry signal for the
// extension loop, not an error. Fatal conditions travel on the error return
// of SolverPort.Invoke instead of being encoded here.
type RunOutcome struct {
	Empty  bool
	Record *RunRecord
}

// SolverPort abstracts one external solver execution so the extension loop
// and the post-processing stages can be driven against a stub in tests.
type SolverPort interface {
	Invoke(ctx context.Context, rc RunContext, job ModeJob, seq int) (RunOutcome, error)
}
