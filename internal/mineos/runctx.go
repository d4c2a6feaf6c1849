package mineos

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// RunContext identifies one logical dispersion computation: a working
// directory plus a caller-chosen identifier. Every artifact path derives
// from it, so two computations with distinct identifiers never collide even
// in a shared directory. The context is passed explicitly through every
// stage; nothing is resolved through ambient state.
type RunContext struct {
	WorkDir string
	ID      string
}

// NewRunContext builds a context for workDir. An empty id is replaced with
// a fresh UUID; uniqueness of the identifier is the caller's only isolation
// mechanism between concurrent computations.
func NewRunContext(workDir, id string) RunContext {
	if id == "" {
		id = uuid.New().String()
	}
	return RunContext{WorkDir: workDir, ID: id}
}

// CardPath returns the layered model card path.
func (rc RunContext) CardPath() string {
	return filepath.Join(rc.WorkDir, rc.ID+".card")
}

// JobPath returns the solver job description path for one invocation.
func (rc RunContext) JobPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d.job", rc.ID, seq))
}

// WrapperPath returns the execution wrapper path for one invocation.
func (rc RunContext) WrapperPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d.in", rc.ID, seq))
}

// LogPath returns the solver log path for one invocation.
func (rc RunContext) LogPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d.log", rc.ID, seq))
}

// ResultsPath returns the solver results (mode listing) path for one
// invocation.
func (rc RunContext) ResultsPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d.results", rc.ID, seq))
}

// EigenPath returns the raw eigenfunction artifact path for one invocation.
func (rc RunContext) EigenPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d.eig", rc.ID, seq))
}

// RepairedPath returns the repaired eigenfunction artifact path for one
// invocation.
func (rc RunContext) RepairedPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d_fix.eig", rc.ID, seq))
}

// RepairJobPath returns the repair invocation file path for one invocation.
func (rc RunContext) RepairJobPath(seq int) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_%d.repair", rc.ID, seq))
}

// QModelPath returns the attenuation model path for this computation.
func (rc RunContext) QModelPath() string {
	return filepath.Join(rc.WorkDir, rc.ID+".qmod")
}

// QJobPath returns the attenuation-correction invocation file path.
func (rc RunContext) QJobPath() string {
	return filepath.Join(rc.WorkDir, rc.ID+".qjob")
}

// DispersionPath returns the merged dispersion artifact path.
func (rc RunContext) DispersionPath() string {
	return filepath.Join(rc.WorkDir, rc.ID+".disp")
}
