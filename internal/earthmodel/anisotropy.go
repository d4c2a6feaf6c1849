package earthmodel

import "math"

// DecomposeS splits an isotropic shear velocity into vertically and
// horizontally polarized components for a given radial S anisotropy
// percentage. With zero anisotropy both components equal vs.
func DecomposeS(vs, sanisPct float64) (vsv, vsh float64) {
	xi := 1 + sanisPct/100
	vsv = vs * math.Sqrt(3/(xi+2))
	vsh = vs * math.Sqrt(3*xi/(xi+2))
	return vsv, vsh
}

// DecomposeP splits an isotropic compressional velocity into vertically and
// horizontally polarized components for a given radial P anisotropy
// percentage.
func DecomposeP(vp, panisPct float64) (vpv, vph float64) {
	phi := 1 + panisPct/100
	vph = vp * math.Sqrt(5/(phi+4))
	vpv = vp * math.Sqrt(5*phi/(phi+4))
	return vpv, vph
}
