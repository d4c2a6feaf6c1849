package earthmodel

import (
	"fmt"
)

// ProfilePoint is one knot of a caller-supplied near-surface model.
// Depth is km below the surface, Vs and Vp are km/s, Rho is g/cm^3.
type ProfilePoint struct {
	Depth float64 `json:"depth"`
	Vs    float64 `json:"vs"`
	Vp    float64 `json:"vp"`
	Rho   float64 `json:"rho"`
}

// Profile is a structured velocity/density model covering the shallow part
// of the Earth, with optional radial anisotropy applied uniformly. Points
// are ordered by increasing depth; a repeated depth is a discontinuity.
type Profile struct {
	Points   []ProfilePoint `json:"points"`
	PAnisPct float64        `json:"p_anis_pct"`
	SAnisPct float64        `json:"s_anis_pct"`
}

// smoothingBand is the depth range, in meters, over which a profile is
// blended onto the reference model below it.
const smoothingBand = 100e3

// Build converts a profile into a full RadialModel by decomposing the
// isotropic velocities into polarized components and stitching the result
// onto the embedded reference background model below the profile's deepest
// point. Q factors are interpolated from the reference model.
func Build(name string, p Profile) (*RadialModel, error) {
	if len(p.Points) < 2 {
		return nil, fmt.Errorf("build %s: need at least 2 profile points, got %d: %w", name, len(p.Points), ErrInvalidModel)
	}
	for i, pt := range p.Points {
		if pt.Vs <= 0 || pt.Vp <= 0 || pt.Rho <= 0 {
			return nil, fmt.Errorf("build %s: non-positive value at point %d: %w", name, i, ErrInvalidModel)
		}
		if i > 0 && pt.Depth < p.Points[i-1].Depth {
			return nil, fmt.Errorf("build %s: depth not monotonic at point %d: %w", name, i, ErrInvalidModel)
		}
	}

	ref, err := ReferenceModel()
	if err != nil {
		return nil, err
	}
	rEarth := ref.SurfaceRadius()

	deepest := p.Points[len(p.Points)-1].Depth * 1000
	rBase := rEarth - deepest
	blendBase := rBase - smoothingBand
	if blendBase <= ref.Layers[0].Radius {
		return nil, fmt.Errorf("build %s: profile bottom %.0f km exceeds reference coverage: %w", name, deepest/1000, ErrInvalidModel)
	}

	// Profile knots, deepest first so radii increase.
	prof := make([]Layer, 0, len(p.Points)+1)
	for i := len(p.Points) - 1; i >= 0; i-- {
		pt := p.Points[i]
		r := rEarth - pt.Depth*1000
		vsv, vsh := DecomposeS(pt.Vs*1000, p.SAnisPct)
		vpv, vph := DecomposeP(pt.Vp*1000, p.PAnisPct)
		bg := interpolateLayer(ref, r)
		prof = append(prof, Layer{
			Radius: r,
			Rho:    pt.Rho * 1000,
			Vpv:    vpv,
			Vsv:    vsv,
			QKappa: bg.QKappa,
			QMu:    bg.QMu,
			Vph:    vph,
			Vsh:    vsh,
			Eta:    1,
		})
	}
	// Extend the shallowest knot to the surface when the profile stops short.
	if top := prof[len(prof)-1]; top.Radius < rEarth {
		top.Radius = rEarth
		prof = append(prof, top)
	}

	// Reference layers below the profile: verbatim below the smoothing band,
	// linearly blended towards the profile's bottom values inside it.
	refAtBase := interpolateLayer(ref, rBase)
	bottom := prof[0]
	layers := make([]Layer, 0, len(ref.Layers)+len(prof))
	for _, l := range ref.Layers {
		if l.Radius >= rBase {
			break
		}
		if l.Radius < blendBase {
			layers = append(layers, l)
			continue
		}
		frac := (l.Radius - blendBase) / smoothingBand
		bl := l
		bl.Rho += (bottom.Rho - refAtBase.Rho) * frac
		bl.Vpv += (bottom.Vpv - refAtBase.Vpv) * frac
		bl.Vsv += (bottom.Vsv - refAtBase.Vsv) * frac
		bl.Vph += (bottom.Vph - refAtBase.Vph) * frac
		bl.Vsh += (bottom.Vsh - refAtBase.Vsh) * frac
		bl.Eta += (bottom.Eta - refAtBase.Eta) * frac
		layers = append(layers, bl)
	}
	layers = append(layers, prof...)

	if err := validateRadii(layers); err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}

	return &RadialModel{
		Name:            name,
		Layers:          layers,
		Discontinuities: findDiscontinuities(layers),
	}, nil
}

// interpolateLayer returns the reference model's parameters at radius r by
// linear interpolation between the bracketing knots. At a discontinuity the
// lower side wins. Outside the model range the nearest end layer is returned.
func interpolateLayer(m *RadialModel, r float64) Layer {
	layers := m.Layers
	if r <= layers[0].Radius {
		return layers[0]
	}
	last := layers[len(layers)-1]
	if r >= last.Radius {
		return last
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].Radius < r {
			continue
		}
		lo, hi := layers[i-1], layers[i]
		if hi.Radius == lo.Radius {
			return lo
		}
		frac := (r - lo.Radius) / (hi.Radius - lo.Radius)
		return Layer{
			Radius: r,
			Rho:    lo.Rho + (hi.Rho-lo.Rho)*frac,
			Vpv:    lo.Vpv + (hi.Vpv-lo.Vpv)*frac,
			Vsv:    lo.Vsv + (hi.Vsv-lo.Vsv)*frac,
			QKappa: lo.QKappa + (hi.QKappa-lo.QKappa)*frac,
			QMu:    lo.QMu + (hi.QMu-lo.QMu)*frac,
			Vph:    lo.Vph + (hi.Vph-lo.Vph)*frac,
			Vsh:    lo.Vsh + (hi.Vsh-lo.Vsh)*frac,
			Eta:    lo.Eta + (hi.Eta-lo.Eta)*frac,
		}
	}
	return last
}
