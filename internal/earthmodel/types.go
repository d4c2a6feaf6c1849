// Package earthmodel builds and serializes the layered radial Earth models
// consumed by the normal-mode solver.
//
// A model is an ordered stack of layers from the center of the Earth to the
// surface. First-order discontinuities are represented as two consecutive
// layers sharing a radius, mirroring the solver's card format. Models are
// built once and treated as immutable afterwards.
package earthmodel

import (
	"errors"
	"math"
)

// ErrInvalidModel reports a structurally unusable input model: non-monotonic
// depths, non-positive density or velocity, or a malformed model card.
var ErrInvalidModel = errors.New("earthmodel: invalid model")

// Layer is one radial knot of the model. All values are SI: radius in m,
// density in kg/m^3, velocities in m/s. Vpv/Vph and Vsv/Vsh are the
// vertically and horizontally polarized P and S velocities; Eta is the
// anisotropy ratio.
type Layer struct {
	Radius float64
	Rho    float64
	Vpv    float64
	Vsv    float64
	QKappa float64
	QMu    float64
	Vph    float64
	Vsh    float64
	Eta    float64
}

// VoigtVs returns the Voigt-average isotropic shear velocity of the layer.
func (l Layer) VoigtVs() float64 {
	return math.Sqrt((2*l.Vsv*l.Vsv + l.Vsh*l.Vsh) / 3)
}

// VoigtVp returns the Voigt-average isotropic compressional velocity.
func (l Layer) VoigtVp() float64 {
	return math.Sqrt((l.Vpv*l.Vpv + 4*l.Vph*l.Vph) / 5)
}

// RadialModel is a complete layered model from center to surface.
type RadialModel struct {
	Name   string
	Layers []Layer

	// Discontinuities holds the index of the upper layer of every
	// repeated-radius pair.
	Discontinuities []int
}

// LayerCount returns the number of layers in the model. Solver results files
// carry LayerCount+5 header lines before the first mode record.
func (m *RadialModel) LayerCount() int {
	return len(m.Layers)
}

// SurfaceRadius returns the radius of the outermost layer in meters.
func (m *RadialModel) SurfaceRadius() float64 {
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[len(m.Layers)-1].Radius
}

// coreIndices locates the fluid outer core (vsv == 0 and qmu == 0) and
// returns the layer count of the inner core and the index one past the top
// of the outer core, the two values the card header needs.
func (m *RadialModel) coreIndices() (nic, noc int) {
	first, last := -1, -1
	for i, l := range m.Layers {
		if l.Vsv == 0 && l.QMu == 0 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0
	}
	return first, last + 1
}

// findDiscontinuities records the upper index of each repeated-radius pair.
func findDiscontinuities(layers []Layer) []int {
	var idx []int
	for i := 1; i < len(layers); i++ {
		if layers[i].Radius == layers[i-1].Radius {
			idx = append(idx, i)
		}
	}
	return idx
}

// validateRadii checks that radii never decrease and that repeats only occur
// in adjacent pairs (a discontinuity).
func validateRadii(layers []Layer) error {
	for i := 1; i < len(layers); i++ {
		if layers[i].Radius < layers[i-1].Radius {
			return ErrInvalidModel
		}
	}
	return nil
}
