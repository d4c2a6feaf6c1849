// Package kernels defines the interface between the dispersion driver and
// the downstream perturbation-kernel pipeline. The pipeline itself lives
// outside this repository; the driver only hands it the artifacts it needs.
package kernels

import "context"

// ArtifactBundle is everything a kernel computation consumes: the ordered
// list of retained eigenfunction artifacts (repaired where applicable), the
// merged dispersion file they were corrected into, and the periods the
// caller asked about.
type ArtifactBundle struct {
	EigenPaths     []string
	DispersionPath string
	Periods        []float64
}

// Pipeline derives per-period perturbation-kernel artifacts from a
// completed dispersion computation.
type Pipeline interface {
	Derive(ctx context.Context, bundle ArtifactBundle) ([]string, error)
}
